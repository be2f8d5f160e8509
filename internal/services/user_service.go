package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/jmjalil96/claimsdesk/internal/auth"
	"github.com/jmjalil96/claimsdesk/internal/models"
	apperrors "github.com/jmjalil96/claimsdesk/pkg/errors"
)

// ErrUserNotFound indicates the requested user account does not exist.
var ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)

// UserService administers user accounts: listing, unlocking and
// deactivation. Account creation happens only through invitation acceptance.
type UserService struct {
	db       *gorm.DB
	sessions *auth.SessionService
	audit    *AuditService
}

func NewUserService(db *gorm.DB, sessions *auth.SessionService, audit *AuditService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	if sessions == nil {
		return nil, errors.New("user service: session service is required")
	}
	return &UserService{db: db, sessions: sessions, audit: audit}, nil
}

// UserListOptions paginates user listings.
type UserListOptions struct {
	Page     int
	PageSize int
}

// List returns user accounts with their roles, newest-first.
func (s *UserService) List(ctx context.Context, opts UserListOptions) ([]models.User, int64, error) {
	page, perPage := normalisePage(opts.Page, opts.PageSize)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: count users: %w", err)
	}

	var users []models.User
	if err := s.db.WithContext(ctx).
		Preload("Role").
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: list users: %w", err)
	}

	return users, total, nil
}

// Get fetches a single user account.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Role").
		Take(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}

// Unlock clears a lockout so the user can sign in again. Locks never expire
// on their own; this is the only path out.
func (s *UserService) Unlock(ctx context.Context, id, actorID string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrUserNotFound
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"locked_at":             nil,
			"failed_login_attempts": 0,
		})
	if result.Error != nil {
		return fmt.Errorf("user service: unlock user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	recordAudit(s.audit, ctx, AuditEntry{
		ActorID:    optionalID(actorID),
		Action:     "user.unlock",
		Resource:   "user",
		ResourceID: id,
		Result:     "success",
	})

	return nil
}

// Deactivate disables an account and revokes its sessions.
func (s *UserService) Deactivate(ctx context.Context, id, actorID string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrUserNotFound
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("user service: deactivate user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("user service: check user: %w", err)
		}
		if count == 0 {
			return ErrUserNotFound
		}
		return apperrors.NewConflict("user is already deactivated")
	}

	if err := s.sessions.RevokeAll(ctx, id); err != nil {
		return fmt.Errorf("user service: revoke sessions: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		ActorID:    optionalID(actorID),
		Action:     "user.deactivate",
		Resource:   "user",
		ResourceID: id,
		Result:     "success",
	})

	return nil
}
