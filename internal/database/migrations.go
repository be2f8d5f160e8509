package database

import (
	"gorm.io/gorm"

	"github.com/jmjalil96/claimsdesk/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Role{},
		&models.Permission{},
		&models.User{},
		&models.Session{},
		&models.Client{},
		&models.Employee{},
		&models.Agent{},
		&models.ClientAdmin{},
		&models.Affiliate{},
		&models.Invitation{},
		&models.Claim{},
		&models.Invoice{},
		&models.AuditLog{},
	)
}

// seedPermissions is the fixed permission catalogue. Permissions are opaque
// resource:action strings; the core only tests membership.
var seedPermissions = []models.Permission{
	{BaseModel: models.BaseModel{ID: "claims:read"}, Name: "claims:read", Description: "View claims"},
	{BaseModel: models.BaseModel{ID: "claims:create"}, Name: "claims:create", Description: "File new claims"},
	{BaseModel: models.BaseModel{ID: "claims:update"}, Name: "claims:update", Description: "Update claims"},
	{BaseModel: models.BaseModel{ID: "invoices:read"}, Name: "invoices:read", Description: "View invoices"},
	{BaseModel: models.BaseModel{ID: "invoices:create"}, Name: "invoices:create", Description: "Submit invoices"},
	{BaseModel: models.BaseModel{ID: "invoices:update"}, Name: "invoices:update", Description: "Update invoices"},
	{BaseModel: models.BaseModel{ID: "affiliates:read"}, Name: "affiliates:read", Description: "View affiliates"},
	{BaseModel: models.BaseModel{ID: "affiliates:create"}, Name: "affiliates:create", Description: "Register affiliates"},
	{BaseModel: models.BaseModel{ID: "users:read"}, Name: "users:read", Description: "View user accounts"},
	{BaseModel: models.BaseModel{ID: "users:update"}, Name: "users:update", Description: "Unlock and deactivate user accounts"},
	{BaseModel: models.BaseModel{ID: "invitations:read"}, Name: "invitations:read", Description: "View invitations"},
	{BaseModel: models.BaseModel{ID: "invitations:create"}, Name: "invitations:create", Description: "Invite new users"},
	{BaseModel: models.BaseModel{ID: "audit:read"}, Name: "audit:read", Description: "Query the audit trail"},
}

// SeedData populates default roles and the permission catalogue. It is
// idempotent so repeated start-ups are safe.
func SeedData(db *gorm.DB) error {
	for _, perm := range seedPermissions {
		if err := db.Where(models.Permission{BaseModel: models.BaseModel{ID: perm.ID}}).
			Attrs(perm).FirstOrCreate(&models.Permission{}).Error; err != nil {
			return err
		}
	}

	roles := []struct {
		role        models.Role
		permissions []string
	}{
		{
			role: models.Role{
				BaseModel:   models.BaseModel{ID: "admin"},
				Name:        "admin",
				DisplayName: "Administrator",
				ScopeType:   models.ScopeUnlimited,
				IsSystem:    true,
			},
			permissions: allPermissionIDs(),
		},
		{
			role: models.Role{
				BaseModel:   models.BaseModel{ID: "adjuster"},
				Name:        "adjuster",
				DisplayName: "Claims Adjuster",
				ScopeType:   models.ScopeUnlimited,
				IsSystem:    true,
			},
			permissions: []string{
				"claims:read", "claims:update",
				"invoices:read", "invoices:update",
				"affiliates:read",
			},
		},
		{
			role: models.Role{
				BaseModel:   models.BaseModel{ID: "client_admin"},
				Name:        "client_admin",
				DisplayName: "Client Administrator",
				ScopeType:   models.ScopeClient,
				IsSystem:    true,
			},
			permissions: []string{
				"claims:read",
				"invoices:read",
				"affiliates:read",
			},
		},
		{
			role: models.Role{
				BaseModel:   models.BaseModel{ID: "affiliate"},
				Name:        "affiliate",
				DisplayName: "Affiliate",
				ScopeType:   models.ScopeSelf,
				IsSystem:    true,
			},
			permissions: []string{
				"claims:read", "claims:create",
				"invoices:read", "invoices:create",
			},
		},
	}

	for _, entry := range roles {
		if err := db.Where(models.Role{BaseModel: models.BaseModel{ID: entry.role.ID}}).
			Attrs(entry.role).FirstOrCreate(&models.Role{}).Error; err != nil {
			return err
		}
		if err := assignRolePermissions(db, entry.role.ID, entry.permissions); err != nil {
			return err
		}
	}

	return nil
}

func allPermissionIDs() []string {
	ids := make([]string, 0, len(seedPermissions))
	for _, perm := range seedPermissions {
		ids = append(ids, perm.ID)
	}
	return ids
}
