package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jmjalil96/claimsdesk/internal/models"
	"github.com/jmjalil96/claimsdesk/pkg/crypto"
	"github.com/jmjalil96/claimsdesk/pkg/logger"
	"github.com/jmjalil96/claimsdesk/pkg/metrics"
)

const (
	// DefaultSessionTTL is the fixed session lifetime.
	DefaultSessionTTL = 30 * 24 * time.Hour
	// DefaultActivityThreshold controls how stale last_active_at may get
	// before a validation schedules a refresh.
	DefaultActivityThreshold = 5 * time.Minute
)

// ErrSessionInvalid covers every rejection: unknown token, revoked, expired,
// owner deactivated or locked, or created before the owner's invalidation
// epoch. Collapsing them is deliberate; callers must not learn which.
var ErrSessionInvalid = errors.New("session: invalid")

// SessionConfig describes tunable behaviour for the SessionService.
type SessionConfig struct {
	TTL               time.Duration
	TokenLength       int
	ActivityThreshold time.Duration
	Clock             func() time.Time
}

// SessionMetadata captures contextual information about the client.
type SessionMetadata struct {
	IPAddress string
	UserAgent string
}

// IssuedSession pairs a persisted session with the raw token. The token is
// returned exactly once for cookie delivery and never stored or logged.
type IssuedSession struct {
	Session *models.Session
	Token   string
}

// Principal is the authenticated identity attached to a validated request.
type Principal struct {
	User    *models.User
	Session *models.Session
}

// SessionService issues, validates, and revokes opaque-token sessions.
// Sessions are stored by token digest only; there is no cross-request cache,
// so every validation observes the current lock and invalidation state.
type SessionService struct {
	db         *gorm.DB
	ttl        time.Duration
	tokenLen   int
	staleAfter time.Duration
	now        func() time.Time
	log        *zap.Logger
}

// NewSessionService constructs a session manager backed by the provided database.
func NewSessionService(db *gorm.DB, cfg SessionConfig) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	length := cfg.TokenLength
	if length <= 0 {
		length = crypto.TokenLength
	}

	staleAfter := cfg.ActivityThreshold
	if staleAfter <= 0 {
		staleAfter = DefaultActivityThreshold
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &SessionService{
		db:         db,
		ttl:        ttl,
		tokenLen:   length,
		staleAfter: staleAfter,
		now:        clock,
		log:        logger.WithModule("sessions"),
	}, nil
}

// Create generates a new session for the user and returns the raw token.
func (s *SessionService) Create(ctx context.Context, userID string, meta SessionMetadata) (*IssuedSession, error) {
	return s.CreateTx(s.db.WithContext(ctx), userID, meta)
}

// CreateTx issues a session inside the caller's transaction so issuance can
// commit atomically with related writes (login counter reset, invitation
// acceptance).
func (s *SessionService) CreateTx(tx *gorm.DB, userID string, meta SessionMetadata) (*IssuedSession, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("session service: user id is required")
	}
	if tx == nil {
		tx = s.db
	}

	token, err := crypto.GenerateToken(s.tokenLen)
	if err != nil {
		return nil, fmt.Errorf("session service: generate token: %w", err)
	}

	now := s.now()
	session := &models.Session{
		UserID:       userID,
		TokenHash:    crypto.DigestToken(token),
		IPAddress:    strings.TrimSpace(meta.IPAddress),
		UserAgent:    strings.TrimSpace(meta.UserAgent),
		ExpiresAt:    now.Add(s.ttl),
		LastActiveAt: now,
		CreatedAt:    now,
	}

	if err := tx.Create(session).Error; err != nil {
		return nil, fmt.Errorf("session service: create session: %w", err)
	}

	metrics.ActiveSessions.Inc()

	return &IssuedSession{Session: session, Token: token}, nil
}

// Validate resolves the raw token to an authenticated principal. Every
// rejection surfaces as ErrSessionInvalid. On acceptance, a stale
// last_active_at is refreshed best-effort in the background; that refresh can
// never fail the request.
func (s *SessionService) Validate(ctx context.Context, rawToken string) (*Principal, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, ErrSessionInvalid
	}

	var session models.Session
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("User.Role").
		Where("token_hash = ?", crypto.DigestToken(rawToken)).
		Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("session service: find session: %w", err)
	}

	now := s.now()
	user := session.User

	switch {
	case session.RevokedAt != nil:
		return nil, ErrSessionInvalid
	case !session.ExpiresAt.After(now):
		return nil, ErrSessionInvalid
	case user == nil || !user.IsActive:
		return nil, ErrSessionInvalid
	case user.LockedAt != nil:
		return nil, ErrSessionInvalid
	case user.SessionsInvalidBefore != nil && session.CreatedAt.Before(*user.SessionsInvalidBefore):
		return nil, ErrSessionInvalid
	}

	if now.Sub(session.LastActiveAt) >= s.staleAfter {
		go s.touch(session.ID, now)
	}

	return &Principal{User: user, Session: &session}, nil
}

// touch refreshes last_active_at; errors are logged and swallowed.
func (s *SessionService) touch(sessionID string, now time.Time) {
	if err := s.db.Model(&models.Session{}).
		Where("id = ?", sessionID).
		Update("last_active_at", now).Error; err != nil {
		s.log.Debug("refresh session activity", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// Revoke marks a single session as revoked. Used by logout.
func (s *SessionService) Revoke(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrSessionInvalid
	}

	now := s.now()
	result := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Update("revoked_at", now)
	if result.Error != nil {
		return fmt.Errorf("session service: revoke session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionInvalid
	}

	metrics.ActiveSessions.Sub(float64(result.RowsAffected))

	return nil
}

// RevokeAll moves the user's invalidation epoch to now. Every session created
// before this instant is rejected on next validation, including sessions that
// were being created concurrently: their created_at necessarily precedes the
// new cutoff. O(1) regardless of session count.
func (s *SessionService) RevokeAll(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrSessionInvalid
	}

	now := s.now()

	var active int64
	if err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ? AND created_at < ?", userID, now, now).
		Count(&active).Error; err == nil && active > 0 {
		metrics.ActiveSessions.Sub(float64(active))
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("sessions_invalid_before", now).Error; err != nil {
		return fmt.Errorf("session service: set invalidation epoch: %w", err)
	}

	return nil
}

// CleanupExpired removes expired and revoked session rows. Invoked by the
// maintenance scheduler; validation never depends on physical deletion.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	now := s.now()
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Or("revoked_at IS NOT NULL").
		Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("session service: cleanup expired sessions: %w", result.Error)
	}

	return result.RowsAffected, nil
}
