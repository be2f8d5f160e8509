package models

// Permission is an opaque resource:action pair (e.g. "claims:read") attached
// to roles. This core looks permissions up by membership only.
type Permission struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`

	Roles []Role `gorm:"many2many:role_permissions;" json:"roles,omitempty"`
}
