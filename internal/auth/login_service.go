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
	"github.com/jmjalil96/claimsdesk/pkg/mail"
	"github.com/jmjalil96/claimsdesk/pkg/metrics"
)

// ErrInvalidLogin is the single rejection for unknown email, wrong password,
// locked account, and deactivated account. The response never reveals which.
var ErrInvalidLogin = errors.New("auth: invalid credentials")

// LoginInput carries the credentials and client metadata for one attempt.
type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginResult is returned on success; Token is handed to the cookie layer.
type LoginResult struct {
	User    *models.User
	Session *models.Session
	Token   string
}

// LoginConfig tunes the orchestrator; the zero value uses defaults.
type LoginConfig struct {
	Clock func() time.Time
}

// LoginService composes credential verification, the lockout guard, and
// session issuance into the end-to-end login use case.
type LoginService struct {
	db       *gorm.DB
	sessions *SessionService
	lockout  *LockoutGuard
	mailer   mail.Mailer
	now      func() time.Time
	log      *zap.Logger
}

// NewLoginService constructs the login orchestrator. The mailer may be nil;
// lock notifications are then skipped.
func NewLoginService(db *gorm.DB, sessions *SessionService, lockout *LockoutGuard, mailer mail.Mailer, cfg LoginConfig) (*LoginService, error) {
	if db == nil {
		return nil, errors.New("login service: db is required")
	}
	if sessions == nil {
		return nil, errors.New("login service: session service is required")
	}
	if lockout == nil {
		return nil, errors.New("login service: lockout guard is required")
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &LoginService{
		db:       db,
		sessions: sessions,
		lockout:  lockout,
		mailer:   mailer,
		now:      clock,
		log:      logger.WithModule("login"),
	}, nil
}

// Login verifies the credentials and issues a session. On success the counter
// reset and session creation commit as one transaction, so a crash cannot
// leave one without the other. Store failures propagate; they are never
// folded into ErrInvalidLogin.
func (s *LoginService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, ErrInvalidLogin
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Burn the same hashing cost as a real verification so response
		// timing does not reveal which emails are registered.
		crypto.DummyVerify(input.Password)
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, ErrInvalidLogin
	}
	if err != nil {
		return nil, fmt.Errorf("login service: query user: %w", err)
	}

	if !user.IsActive || user.LockedAt != nil {
		crypto.DummyVerify(input.Password)
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, ErrInvalidLogin
	}

	if !crypto.VerifyPassword(user.Password, input.Password) {
		outcome, failErr := s.lockout.RecordFailure(ctx, user.ID)
		if failErr != nil {
			return nil, fmt.Errorf("login service: record failure: %w", failErr)
		}
		if outcome.JustLocked {
			s.dispatchLockNotification(user)
		}
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, ErrInvalidLogin
	}

	now := s.now()
	ip := strings.TrimSpace(input.IPAddress)

	var issued *IssuedSession
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockout.RecordSuccess(tx, user.ID); err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
			"last_login_at": now,
			"last_login_ip": ip,
		}).Error; err != nil {
			return fmt.Errorf("login service: update login metadata: %w", err)
		}

		var txErr error
		issued, txErr = s.sessions.CreateTx(tx, user.ID, SessionMetadata{
			IPAddress: input.IPAddress,
			UserAgent: input.UserAgent,
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()

	user.FailedLoginAttempts = 0
	user.LastLoginAt = &now
	user.LastLoginIP = ip

	return &LoginResult{
		User:    &user,
		Session: issued.Session,
		Token:   issued.Token,
	}, nil
}

// dispatchLockNotification emails the account owner from a detached goroutine.
// Exactly one caller per lock event reaches here (the JustLocked winner), and
// delivery failures never affect the login response.
func (s *LoginService) dispatchLockNotification(user models.User) {
	if s.mailer == nil {
		return
	}

	go func() {
		msg := mail.Message{
			To:      []string{user.Email},
			Subject: "Your account has been locked",
			Body: fmt.Sprintf("Hello,\n\nYour account was locked after %d failed sign-in attempts. "+
				"Contact your administrator to restore access.\n", LockoutThreshold),
		}
		if err := s.mailer.Send(context.Background(), msg); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
			s.log.Warn("send lock notification",
				zap.String("user_id", user.ID),
				zap.Error(err))
		}
	}()
}
