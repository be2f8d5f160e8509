package models

import "time"

// InvitationStatus is derived from stored fields, never persisted.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
)

// Invitation is a pending grant linking exactly one profile record to a
// future user account. At most one pending invitation exists per profile;
// re-inviting the same profile updates the row in place.
type Invitation struct {
	BaseModel

	Email     string `gorm:"not null;index" json:"email"`
	TokenHash string `gorm:"uniqueIndex;not null" json:"-"`

	RoleID string `gorm:"type:uuid;not null" json:"role_id"`
	Role   *Role  `json:"role,omitempty"`

	// Exactly one of the four profile columns is set, enforced at creation.
	// Each column is unique (NULLs do not collide) so the database holds the
	// one-invitation-per-profile rule even under concurrent creates.
	EmployeeID    *string `gorm:"type:uuid;uniqueIndex" json:"employee_id,omitempty"`
	AgentID       *string `gorm:"type:uuid;uniqueIndex" json:"agent_id,omitempty"`
	ClientAdminID *string `gorm:"type:uuid;uniqueIndex" json:"client_admin_id,omitempty"`
	AffiliateID   *string `gorm:"type:uuid;uniqueIndex" json:"affiliate_id,omitempty"`

	InvitedBy  string     `gorm:"type:uuid" json:"invited_by"`
	ExpiresAt  time.Time  `gorm:"index" json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at"`
}

// Status derives the lifecycle state at the supplied instant. Every expiry or
// acceptance check goes through here so the paths cannot diverge.
func (i *Invitation) Status(now time.Time) InvitationStatus {
	switch {
	case i.AcceptedAt != nil:
		return InvitationAccepted
	case !i.ExpiresAt.After(now):
		return InvitationExpired
	default:
		return InvitationPending
	}
}

// ProfileRef reconstructs the tagged union from the nullable columns.
func (i *Invitation) ProfileRef() ProfileRef {
	switch {
	case i.EmployeeID != nil:
		return ProfileRef{Kind: ProfileEmployee, ID: *i.EmployeeID}
	case i.AgentID != nil:
		return ProfileRef{Kind: ProfileAgent, ID: *i.AgentID}
	case i.ClientAdminID != nil:
		return ProfileRef{Kind: ProfileClientAdmin, ID: *i.ClientAdminID}
	case i.AffiliateID != nil:
		return ProfileRef{Kind: ProfileAffiliate, ID: *i.AffiliateID}
	}
	return ProfileRef{}
}

// SetProfileRef maps the tagged union onto the storage columns, clearing the
// other three.
func (i *Invitation) SetProfileRef(ref ProfileRef) {
	i.EmployeeID = nil
	i.AgentID = nil
	i.ClientAdminID = nil
	i.AffiliateID = nil

	id := ref.ID
	switch ref.Kind {
	case ProfileEmployee:
		i.EmployeeID = &id
	case ProfileAgent:
		i.AgentID = &id
	case ProfileClientAdmin:
		i.ClientAdminID = &id
	case ProfileAffiliate:
		i.AffiliateID = &id
	}
}
