package scope

import (
	"gorm.io/gorm"

	"github.com/jmjalil96/claimsdesk/internal/models"
)

// matchNothing is the predicate applied when a scope resolves to an empty
// set. Restrictive scopes with no assignments must see zero rows, never all.
func matchNothing(db *gorm.DB) *gorm.DB {
	return db.Where("1 = 0")
}

// ClaimsWhere narrows a claims query to the records the scope permits.
func ClaimsWhere(db *gorm.DB, s Scope) *gorm.DB {
	switch s.Kind {
	case models.ScopeUnlimited:
		return db
	case models.ScopeClient:
		if len(s.ClientIDs) == 0 {
			return matchNothing(db)
		}
		return db.Where("claims.client_id IN ?", s.ClientIDs)
	case models.ScopeSelf:
		if s.Profile.Kind == models.ProfileAffiliate && s.Profile.ID != "" {
			return db.Where("claims.affiliate_id = ?", s.Profile.ID)
		}
		return matchNothing(db)
	}
	return matchNothing(db)
}

// InvoicesWhere narrows an invoices query to the records the scope permits.
// Invoices carry denormalised client and affiliate columns so the predicate
// never needs a join through claims.
func InvoicesWhere(db *gorm.DB, s Scope) *gorm.DB {
	switch s.Kind {
	case models.ScopeUnlimited:
		return db
	case models.ScopeClient:
		if len(s.ClientIDs) == 0 {
			return matchNothing(db)
		}
		return db.Where("invoices.client_id IN ?", s.ClientIDs)
	case models.ScopeSelf:
		if s.Profile.Kind == models.ProfileAffiliate && s.Profile.ID != "" {
			return db.Where("invoices.affiliate_id = ?", s.Profile.ID)
		}
		return matchNothing(db)
	}
	return matchNothing(db)
}

// AffiliatesWhere narrows an affiliates query to the records the scope permits.
func AffiliatesWhere(db *gorm.DB, s Scope) *gorm.DB {
	switch s.Kind {
	case models.ScopeUnlimited:
		return db
	case models.ScopeClient:
		if len(s.ClientIDs) == 0 {
			return matchNothing(db)
		}
		return db.Where("affiliates.client_id IN ?", s.ClientIDs)
	case models.ScopeSelf:
		if s.Profile.Kind == models.ProfileAffiliate && s.Profile.ID != "" {
			return db.Where("affiliates.id = ?", s.Profile.ID)
		}
		return matchNothing(db)
	}
	return matchNothing(db)
}
