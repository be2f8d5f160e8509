package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jmjalil96/claimsdesk/internal/auth"
	"github.com/jmjalil96/claimsdesk/internal/models"
	"github.com/jmjalil96/claimsdesk/pkg/crypto"
	apperrors "github.com/jmjalil96/claimsdesk/pkg/errors"
	"github.com/jmjalil96/claimsdesk/pkg/logger"
	"github.com/jmjalil96/claimsdesk/pkg/mail"
	"github.com/jmjalil96/claimsdesk/pkg/metrics"
)

const (
	defaultInvitationExpiry = 7 * 24 * time.Hour

	minPasswordLength = 12
	maxPasswordLength = 128
)

// ErrInvitationInvalid is returned for every token that is not fresh and
// pending. Unknown, expired and already-accepted tokens are deliberately
// indistinguishable to the caller.
var ErrInvitationInvalid = apperrors.New(
	"INVITATION_INVALID",
	"Invitation not found or no longer valid",
	http.StatusNotFound,
)

// ErrInvitationNotFound covers by-id lookups on the authenticated surface.
var ErrInvitationNotFound = apperrors.New(
	"INVITATION_NOT_FOUND",
	"Invitation not found",
	http.StatusNotFound,
)

// InvitationOption customises InvitationService behaviour.
type InvitationOption func(*InvitationService)

// WithInvitationBaseURL configures the base URL used in invitation links.
func WithInvitationBaseURL(url string) InvitationOption {
	return func(s *InvitationService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithInvitationExpiry overrides the invitation token lifetime.
func WithInvitationExpiry(d time.Duration) InvitationOption {
	return func(s *InvitationService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithInvitationClock injects a custom clock primarily for testing.
func WithInvitationClock(clock func() time.Time) InvitationOption {
	return func(s *InvitationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// InvitationService manages the invitation lifecycle: issuing tokens against
// profile records, validating them, and converting an accepted token into a
// live user account with an open session.
type InvitationService struct {
	db       *gorm.DB
	sessions *auth.SessionService
	mailer   mail.Mailer
	audit    *AuditService

	baseURL string
	expiry  time.Duration
	now     func() time.Time
	log     *zap.Logger
}

func NewInvitationService(db *gorm.DB, sessions *auth.SessionService, mailer mail.Mailer, audit *AuditService, opts ...InvitationOption) (*InvitationService, error) {
	if db == nil {
		return nil, errors.New("invitation service: db is required")
	}
	if sessions == nil {
		return nil, errors.New("invitation service: session service is required")
	}

	service := &InvitationService{
		db:       db,
		sessions: sessions,
		mailer:   mailer,
		audit:    audit,
		expiry:   defaultInvitationExpiry,
		now:      time.Now,
		log:      logger.WithModule("invitations"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// CreateInvitationInput captures a new invitation request.
type CreateInvitationInput struct {
	RoleID        string
	Profile       models.ProfileRef
	EmailOverride string
	InvitedBy     string
}

// IssuedInvitation pairs the persisted invitation with the raw token. The
// token appears here exactly once; only its hash is stored.
type IssuedInvitation struct {
	Invitation *models.Invitation
	Token      string
	Link       string
}

// Create issues an invitation for a profile record. A second invitation for
// the same profile rotates the pending row in place rather than stacking a
// duplicate.
func (s *InvitationService) Create(ctx context.Context, input CreateInvitationInput) (*IssuedInvitation, error) {
	if !input.Profile.Valid() {
		return nil, apperrors.NewBadRequest("a valid profile reference is required")
	}

	roleID := strings.TrimSpace(input.RoleID)
	if roleID == "" {
		return nil, apperrors.NewBadRequest("role is required")
	}

	var role models.Role
	err := s.db.WithContext(ctx).Take(&role, "id = ?", roleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewBadRequest("unknown role")
	}
	if err != nil {
		return nil, fmt.Errorf("invitation service: load role: %w", err)
	}

	profile, err := s.loadProfile(ctx, input.Profile)
	if err != nil {
		return nil, err
	}
	if !profile.isActive {
		return nil, apperrors.NewBadRequest("profile is inactive")
	}
	if profile.userID != nil {
		return nil, apperrors.NewConflict("profile is already linked to a user")
	}

	email, err := effectiveEmail(input.Profile.Kind, profile.email, input.EmailOverride)
	if err != nil {
		return nil, err
	}

	var existingUsers int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Count(&existingUsers).Error; err != nil {
		return nil, fmt.Errorf("invitation service: check email: %w", err)
	}
	if existingUsers > 0 {
		return nil, apperrors.NewConflict("email is already in use")
	}

	token, err := crypto.GenerateToken(crypto.TokenLength)
	if err != nil {
		return nil, fmt.Errorf("invitation service: generate token: %w", err)
	}

	now := s.now()
	invitation, err := s.upsertForProfile(ctx, input.Profile, func(inv *models.Invitation) {
		inv.Email = email
		inv.TokenHash = crypto.DigestToken(token)
		inv.RoleID = role.ID
		inv.InvitedBy = strings.TrimSpace(input.InvitedBy)
		inv.ExpiresAt = now.Add(s.expiry)
		inv.AcceptedAt = nil
		inv.SetProfileRef(input.Profile)
	})
	if err != nil {
		return nil, err
	}

	metrics.InvitationsIssued.WithLabelValues(string(input.Profile.Kind)).Inc()

	link := s.invitationLink(token)
	s.sendInvitationMail(ctx, email, link)

	recordAudit(s.audit, ctx, AuditEntry{
		Action:     "invitation.create",
		Resource:   "invitation",
		ResourceID: invitation.ID,
		Result:     "success",
		Metadata:   map[string]any{"profile": input.Profile.String(), "role": role.ID},
	})

	return &IssuedInvitation{Invitation: invitation, Token: token, Link: link}, nil
}

// ValidateToken resolves a raw token to its pending invitation. Any token
// that is not fresh and pending yields ErrInvitationInvalid.
func (s *InvitationService) ValidateToken(ctx context.Context, token string) (*models.Invitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvitationInvalid
	}

	var invitation models.Invitation
	err := s.db.WithContext(ctx).
		Preload("Role").
		Take(&invitation, "token_hash = ?", crypto.DigestToken(token)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvitationInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("invitation service: find invitation: %w", err)
	}

	if invitation.Status(s.now()) != models.InvitationPending {
		return nil, ErrInvitationInvalid
	}

	return &invitation, nil
}

// AcceptInvitationInput carries the public acceptance request.
type AcceptInvitationInput struct {
	Token     string
	Password  string
	IPAddress string
	UserAgent string
}

// AcceptedInvitation is the outcome of a successful acceptance: the new user
// plus an already-open session.
type AcceptedInvitation struct {
	User    *models.User
	Session *auth.IssuedSession
}

// Accept converts a pending invitation into a user account, links the profile
// and opens a session, all inside one transaction. Concurrent accepts of the
// same token race on the accepted_at conditional update; exactly one wins.
func (s *InvitationService) Accept(ctx context.Context, input AcceptInvitationInput) (*AcceptedInvitation, error) {
	token := strings.TrimSpace(input.Token)
	if token == "" {
		return nil, ErrInvitationInvalid
	}
	if n := len(input.Password); n < minPasswordLength || n > maxPasswordLength {
		return nil, apperrors.NewBadRequest(
			fmt.Sprintf("password must be between %d and %d characters", minPasswordLength, maxPasswordLength))
	}

	// Hash outside the transaction; argon2id is deliberately slow.
	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("invitation service: hash password: %w", err)
	}

	now := s.now()
	var accepted AcceptedInvitation

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invitation models.Invitation
		err := tx.Take(&invitation, "token_hash = ?", crypto.DigestToken(token)).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvitationInvalid
		}
		if err != nil {
			return fmt.Errorf("invitation service: find invitation: %w", err)
		}
		if invitation.Status(now) != models.InvitationPending {
			return ErrInvitationInvalid
		}

		// Claim the invitation. A concurrent accept that committed first
		// leaves zero rows here.
		claim := tx.Model(&models.Invitation{}).
			Where("id = ? AND accepted_at IS NULL", invitation.ID).
			Update("accepted_at", now)
		if claim.Error != nil {
			return fmt.Errorf("invitation service: claim invitation: %w", claim.Error)
		}
		if claim.RowsAffected == 0 {
			return ErrInvitationInvalid
		}

		var existing int64
		if err := tx.Model(&models.User{}).
			Where("email = ?", invitation.Email).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("invitation service: check email: %w", err)
		}
		if existing > 0 {
			return apperrors.NewConflict("email is already in use")
		}

		user := &models.User{
			Email:           strings.ToLower(invitation.Email),
			Password:        hash,
			RoleID:          invitation.RoleID,
			IsActive:        true,
			EmailVerifiedAt: &now,
		}
		if err := tx.Create(user).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.NewConflict("email is already in use")
			}
			return fmt.Errorf("invitation service: create user: %w", err)
		}

		ref := invitation.ProfileRef()
		table, err := ref.TableName()
		if err != nil {
			return fmt.Errorf("invitation service: %w", err)
		}
		link := tx.Table(table).
			Where("id = ? AND user_id IS NULL", ref.ID).
			Update("user_id", user.ID)
		if link.Error != nil {
			return fmt.Errorf("invitation service: link profile: %w", link.Error)
		}
		if link.RowsAffected == 0 {
			return apperrors.NewConflict("profile is already linked to a user")
		}

		issued, err := s.sessions.CreateTx(tx, user.ID, auth.SessionMetadata{
			IPAddress: input.IPAddress,
			UserAgent: input.UserAgent,
		})
		if err != nil {
			return fmt.Errorf("invitation service: open session: %w", err)
		}

		accepted = AcceptedInvitation{User: user, Session: issued}
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		ActorID:    &accepted.User.ID,
		Action:     "invitation.accept",
		Resource:   "user",
		ResourceID: accepted.User.ID,
		Result:     "success",
		IPAddress:  input.IPAddress,
		UserAgent:  input.UserAgent,
	})

	return &accepted, nil
}

// Resend rotates the token and expiry of a not-yet-accepted invitation and
// re-sends the email. The invitation row keeps its identity.
func (s *InvitationService) Resend(ctx context.Context, id string) (*IssuedInvitation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvitationNotFound
	}

	var invitation models.Invitation
	err := s.db.WithContext(ctx).Take(&invitation, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invitation service: load invitation: %w", err)
	}

	token, err := crypto.GenerateToken(crypto.TokenLength)
	if err != nil {
		return nil, fmt.Errorf("invitation service: generate token: %w", err)
	}

	now := s.now()
	result := s.db.WithContext(ctx).Model(&models.Invitation{}).
		Where("id = ? AND accepted_at IS NULL", id).
		Updates(map[string]any{
			"token_hash": crypto.DigestToken(token),
			"expires_at": now.Add(s.expiry),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("invitation service: rotate token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.NewConflict("invitation has already been accepted")
	}

	invitation.TokenHash = crypto.DigestToken(token)
	invitation.ExpiresAt = now.Add(s.expiry)

	link := s.invitationLink(token)
	s.sendInvitationMail(ctx, invitation.Email, link)

	recordAudit(s.audit, ctx, AuditEntry{
		Action:     "invitation.resend",
		Resource:   "invitation",
		ResourceID: invitation.ID,
		Result:     "success",
	})

	return &IssuedInvitation{Invitation: &invitation, Token: token, Link: link}, nil
}

// List returns invitations newest-first with their roles preloaded.
func (s *InvitationService) List(ctx context.Context) ([]models.Invitation, error) {
	var invitations []models.Invitation
	if err := s.db.WithContext(ctx).
		Preload("Role").
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		return nil, fmt.Errorf("invitation service: list invitations: %w", err)
	}
	return invitations, nil
}

// StatusOf derives the invitation's lifecycle state against the service clock.
func (s *InvitationService) StatusOf(invitation *models.Invitation) models.InvitationStatus {
	return invitation.Status(s.now())
}

// CleanupExpired deletes invitations whose tokens lapsed without acceptance.
func (s *InvitationService) CleanupExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("accepted_at IS NULL AND expires_at < ?", s.now()).
		Delete(&models.Invitation{})
	if result.Error != nil {
		return 0, fmt.Errorf("invitation service: cleanup: %w", result.Error)
	}
	return result.RowsAffected, nil
}

type profileRecord struct {
	email    string
	isActive bool
	userID   *string
}

func (s *InvitationService) loadProfile(ctx context.Context, ref models.ProfileRef) (*profileRecord, error) {
	var record profileRecord
	var err error

	switch ref.Kind {
	case models.ProfileEmployee:
		var p models.Employee
		if err = s.db.WithContext(ctx).Take(&p, "id = ?", ref.ID).Error; err == nil {
			record = profileRecord{email: p.Email, isActive: p.IsActive, userID: p.UserID}
		}
	case models.ProfileAgent:
		var p models.Agent
		if err = s.db.WithContext(ctx).Take(&p, "id = ?", ref.ID).Error; err == nil {
			record = profileRecord{email: p.Email, isActive: p.IsActive, userID: p.UserID}
		}
	case models.ProfileClientAdmin:
		var p models.ClientAdmin
		if err = s.db.WithContext(ctx).Take(&p, "id = ?", ref.ID).Error; err == nil {
			record = profileRecord{email: p.Email, isActive: p.IsActive, userID: p.UserID}
		}
	case models.ProfileAffiliate:
		var p models.Affiliate
		if err = s.db.WithContext(ctx).Take(&p, "id = ?", ref.ID).Error; err == nil {
			record = profileRecord{email: p.Email, isActive: p.IsActive, userID: p.UserID}
		}
	default:
		return nil, apperrors.NewBadRequest("a valid profile reference is required")
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewBadRequest("profile not found")
	}
	if err != nil {
		return nil, fmt.Errorf("invitation service: load profile: %w", err)
	}

	return &record, nil
}

// effectiveEmail applies the override rules: affiliates may be invited at any
// address, every other profile kind must be invited at its profile email.
func effectiveEmail(kind models.ProfileKind, profileEmail, override string) (string, error) {
	profileEmail = strings.ToLower(strings.TrimSpace(profileEmail))
	override = strings.ToLower(strings.TrimSpace(override))

	if override == "" {
		if profileEmail == "" {
			return "", apperrors.NewBadRequest("profile has no email address")
		}
		return profileEmail, nil
	}

	if kind != models.ProfileAffiliate && override != profileEmail {
		return "", apperrors.NewBadRequest("email override must match the profile email")
	}

	return override, nil
}

// upsertForProfile finds the invitation row keyed by the profile reference
// and applies mutate to it, creating the row when absent.
func (s *InvitationService) upsertForProfile(ctx context.Context, ref models.ProfileRef, mutate func(*models.Invitation)) (*models.Invitation, error) {
	column := map[models.ProfileKind]string{
		models.ProfileEmployee:    "employee_id",
		models.ProfileAgent:       "agent_id",
		models.ProfileClientAdmin: "client_admin_id",
		models.ProfileAffiliate:   "affiliate_id",
	}[ref.Kind]

	var invitation models.Invitation
	err := s.db.WithContext(ctx).
		Take(&invitation, fmt.Sprintf("%s = ?", column), ref.ID).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		mutate(&invitation)
		createErr := s.db.WithContext(ctx).Create(&invitation).Error
		if createErr == nil {
			break
		}
		if !isUniqueConstraintError(createErr) {
			return nil, fmt.Errorf("invitation service: create invitation: %w", createErr)
		}
		// Lost a create race for the same profile: the unique index on the
		// profile column turned the second insert into the update path.
		invitation = models.Invitation{}
		if err := s.db.WithContext(ctx).
			Take(&invitation, fmt.Sprintf("%s = ?", column), ref.ID).Error; err != nil {
			return nil, fmt.Errorf("invitation service: find invitation: %w", err)
		}
		mutate(&invitation)
		if err := s.db.WithContext(ctx).Save(&invitation).Error; err != nil {
			return nil, fmt.Errorf("invitation service: update invitation: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("invitation service: find invitation: %w", err)
	default:
		mutate(&invitation)
		if err := s.db.WithContext(ctx).Save(&invitation).Error; err != nil {
			return nil, fmt.Errorf("invitation service: update invitation: %w", err)
		}
	}

	return &invitation, nil
}

func (s *InvitationService) invitationLink(token string) string {
	if s.baseURL == "" {
		return token
	}
	return fmt.Sprintf("%s/invitations/accept?token=%s", s.baseURL, token)
}

func (s *InvitationService) sendInvitationMail(ctx context.Context, email, link string) {
	if s.mailer == nil {
		return
	}
	message := mail.Message{
		To:      []string{email},
		Subject: "You have been invited to ClaimsDesk",
		Body: fmt.Sprintf("Hello,\n\nYou have been invited to ClaimsDesk. "+
			"Use the following link to set up your account:\n%s\n\n"+
			"The link expires in %d days. If you did not expect this email, you can ignore it.\n",
			link, int(s.expiry.Hours()/24)),
	}
	if err := s.mailer.Send(ctx, message); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		// Delivery problems must not fail the invitation write.
		s.log.Warn("send invitation email", zap.String("email", email), zap.Error(err))
	}
}
