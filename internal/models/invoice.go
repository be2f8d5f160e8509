package models

import "time"

// InvoiceStatus tracks payment progress of an affiliate invoice.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSubmitted InvoiceStatus = "submitted"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceVoided    InvoiceStatus = "voided"
)

// Invoice bills work performed against a claim. ClientID is denormalised from
// the claim so scope filters stay single-table.
type Invoice struct {
	BaseModel

	InvoiceNumber string `gorm:"uniqueIndex;not null" json:"invoice_number"`

	ClaimID string `gorm:"type:uuid;not null;index" json:"claim_id"`
	Claim   *Claim `json:"claim,omitempty"`

	ClientID string  `gorm:"type:uuid;not null;index" json:"client_id"`
	Client   *Client `json:"client,omitempty"`

	AffiliateID *string    `gorm:"type:uuid;index" json:"affiliate_id,omitempty"`
	Affiliate   *Affiliate `json:"affiliate,omitempty"`

	Amount   float64       `json:"amount"`
	Status   InvoiceStatus `gorm:"not null;default:draft;index" json:"status"`
	IssuedAt time.Time     `json:"issued_at"`
	DueAt    *time.Time    `json:"due_at,omitempty"`
}
