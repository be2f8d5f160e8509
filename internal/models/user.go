package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an identity record. Users are only ever created through invitation
// acceptance; the email is stored lowercased and compared case-insensitively.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	RoleID string `gorm:"type:uuid;not null;index" json:"role_id"`
	Role   *Role  `json:"role,omitempty"`

	IsActive        bool       `gorm:"default:true" json:"is_active"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`

	// FailedLoginAttempts and LockedAt are mutated exclusively through the
	// lockout guard's conditional updates; LockedAt is non-nil iff the
	// account is locked.
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	LockedAt            *time.Time `json:"-"`

	// SessionsInvalidBefore is the bulk-invalidation epoch: sessions created
	// before this instant are rejected regardless of their own state.
	SessionsInvalidBefore *time.Time `json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `json:"last_login_ip"`

	Sessions []Session `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
