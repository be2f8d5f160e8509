package models

import "time"

// ClaimStatus tracks the coarse progress of a claim.
type ClaimStatus string

const (
	ClaimOpen     ClaimStatus = "open"
	ClaimReview   ClaimStatus = "in_review"
	ClaimApproved ClaimStatus = "approved"
	ClaimRejected ClaimStatus = "rejected"
	ClaimClosed   ClaimStatus = "closed"
)

// Claim is a filed insurance claim. Visibility is governed entirely by the
// caller's resolved scope: UNLIMITED sees all, CLIENT filters by ClientID,
// SELF filters by AffiliateID.
type Claim struct {
	BaseModel

	ClaimNumber string `gorm:"uniqueIndex;not null" json:"claim_number"`

	ClientID string  `gorm:"type:uuid;not null;index" json:"client_id"`
	Client   *Client `json:"client,omitempty"`

	AffiliateID *string    `gorm:"type:uuid;index" json:"affiliate_id,omitempty"`
	Affiliate   *Affiliate `json:"affiliate,omitempty"`

	Status         ClaimStatus `gorm:"not null;default:open;index" json:"status"`
	Description    string      `json:"description"`
	AmountClaimed  float64     `json:"amount_claimed"`
	AmountApproved *float64    `json:"amount_approved,omitempty"`

	ReportedAt time.Time  `json:"reported_at"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
}
