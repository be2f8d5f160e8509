package models

// Client is an insured client company whose claims this system administers.
type Client struct {
	BaseModel

	Name     string `gorm:"not null" json:"name"`
	Code     string `gorm:"uniqueIndex;not null" json:"code"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	Admins []ClientAdmin `gorm:"many2many:client_admin_clients;" json:"admins,omitempty"`
}
