package models

// ScopeType classifies how far a role's visibility reaches.
type ScopeType string

const (
	// ScopeUnlimited grants access to every record.
	ScopeUnlimited ScopeType = "UNLIMITED"
	// ScopeClient restricts access to records of explicitly assigned clients.
	ScopeClient ScopeType = "CLIENT"
	// ScopeSelf restricts access to records linked to the caller's own profile.
	ScopeSelf ScopeType = "SELF"
)

type Role struct {
	BaseModel

	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	DisplayName string    `json:"display_name"`
	ScopeType   ScopeType `gorm:"not null" json:"scope_type"`
	IsSystem    bool      `gorm:"default:false" json:"is_system"`

	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
	Users       []User       `gorm:"foreignKey:RoleID" json:"users,omitempty"`
}
