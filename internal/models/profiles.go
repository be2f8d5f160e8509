package models

// Profile records describe the people the system administers claims for and
// with. Each carries a nullable, set-once UserID back-reference filled in when
// an invitation is accepted; both invitation creation and acceptance re-check
// the field under the actual write.

// Employee is an internal staff member (adjusters, administrators).
type Employee struct {
	BaseModel

	FirstName string  `gorm:"not null" json:"first_name"`
	LastName  string  `gorm:"not null" json:"last_name"`
	Email     string  `gorm:"uniqueIndex;not null" json:"email"`
	Phone     string  `json:"phone"`
	IsActive  bool    `gorm:"default:true" json:"is_active"`
	UserID    *string `gorm:"type:uuid;uniqueIndex" json:"user_id"`
}

// Agent is an external insurance agent placing business with clients.
type Agent struct {
	BaseModel

	FirstName string  `gorm:"not null" json:"first_name"`
	LastName  string  `gorm:"not null" json:"last_name"`
	Email     string  `gorm:"uniqueIndex;not null" json:"email"`
	Phone     string  `json:"phone"`
	IsActive  bool    `gorm:"default:true" json:"is_active"`
	UserID    *string `gorm:"type:uuid;uniqueIndex" json:"user_id"`
}

// ClientAdmin administers one or more client companies; the assignment set
// drives CLIENT-scope visibility.
type ClientAdmin struct {
	BaseModel

	FirstName string  `gorm:"not null" json:"first_name"`
	LastName  string  `gorm:"not null" json:"last_name"`
	Email     string  `gorm:"uniqueIndex;not null" json:"email"`
	Phone     string  `json:"phone"`
	IsActive  bool    `gorm:"default:true" json:"is_active"`
	UserID    *string `gorm:"type:uuid;uniqueIndex" json:"user_id"`

	Clients []Client `gorm:"many2many:client_admin_clients;" json:"clients,omitempty"`
}

// Affiliate is a claimant-side service provider (clinic, workshop, vendor)
// that files claims and invoices. Affiliates see only their own records.
type Affiliate struct {
	BaseModel

	Name     string  `gorm:"not null" json:"name"`
	Email    string  `gorm:"uniqueIndex;not null" json:"email"`
	Phone    string  `json:"phone"`
	TaxID    string  `json:"tax_id"`
	IsActive bool    `gorm:"default:true" json:"is_active"`
	UserID   *string `gorm:"type:uuid;uniqueIndex" json:"user_id"`

	ClientID *string `gorm:"type:uuid;index" json:"client_id,omitempty"`
	Client   *Client `json:"client,omitempty"`
}
