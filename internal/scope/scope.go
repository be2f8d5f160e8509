package scope

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jmjalil96/claimsdesk/internal/models"
)

// Scope is the class of records a caller may see, resolved once per request
// and translated into a query predicate per resource type.
type Scope struct {
	Kind models.ScopeType

	// ClientIDs is populated for CLIENT scope: the clients explicitly
	// assigned to the caller. An empty set matches nothing.
	ClientIDs []string

	// Profile is populated for SELF scope: the caller's own profile record.
	Profile models.ProfileRef
}

// Resolver computes scopes from the durable store. It holds no state of its
// own; assignments are read fresh on every resolution.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) (*Resolver, error) {
	if db == nil {
		return nil, errors.New("scope resolver: db is required")
	}
	return &Resolver{db: db}, nil
}

// Resolve produces the scope for the given user based on their role's scope
// type. Missing assignments or profiles degrade to a scope that matches
// nothing, never to unrestricted access.
func (r *Resolver) Resolve(ctx context.Context, user *models.User) (Scope, error) {
	if user == nil {
		return Scope{}, errors.New("scope resolver: user is required")
	}

	role := user.Role
	if role == nil {
		role = &models.Role{}
		if err := r.db.WithContext(ctx).Take(role, "id = ?", user.RoleID).Error; err != nil {
			return Scope{}, fmt.Errorf("scope resolver: load role: %w", err)
		}
	}

	switch role.ScopeType {
	case models.ScopeUnlimited:
		return Scope{Kind: models.ScopeUnlimited}, nil

	case models.ScopeClient:
		ids, err := r.assignedClientIDs(ctx, user.ID)
		if err != nil {
			return Scope{}, err
		}
		return Scope{Kind: models.ScopeClient, ClientIDs: ids}, nil

	case models.ScopeSelf:
		ref, err := r.ownProfile(ctx, user.ID)
		if err != nil {
			return Scope{}, err
		}
		return Scope{Kind: models.ScopeSelf, Profile: ref}, nil
	}

	return Scope{}, fmt.Errorf("scope resolver: unknown scope type %q", role.ScopeType)
}

func (r *Resolver) assignedClientIDs(ctx context.Context, userID string) ([]string, error) {
	var admin models.ClientAdmin
	err := r.db.WithContext(ctx).Take(&admin, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scope resolver: load client admin profile: %w", err)
	}

	var ids []string
	if err := r.db.WithContext(ctx).
		Table("client_admin_clients").
		Where("client_admin_id = ?", admin.ID).
		Pluck("client_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("scope resolver: load client assignments: %w", err)
	}

	return ids, nil
}

func (r *Resolver) ownProfile(ctx context.Context, userID string) (models.ProfileRef, error) {
	var affiliate models.Affiliate
	err := r.db.WithContext(ctx).Take(&affiliate, "user_id = ?", userID).Error
	if err == nil {
		return models.ProfileRef{Kind: models.ProfileAffiliate, ID: affiliate.ID}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ProfileRef{}, fmt.Errorf("scope resolver: load affiliate profile: %w", err)
	}

	var agent models.Agent
	err = r.db.WithContext(ctx).Take(&agent, "user_id = ?", userID).Error
	if err == nil {
		return models.ProfileRef{Kind: models.ProfileAgent, ID: agent.ID}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ProfileRef{}, fmt.Errorf("scope resolver: load agent profile: %w", err)
	}

	var employee models.Employee
	err = r.db.WithContext(ctx).Take(&employee, "user_id = ?", userID).Error
	if err == nil {
		return models.ProfileRef{Kind: models.ProfileEmployee, ID: employee.ID}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ProfileRef{}, fmt.Errorf("scope resolver: load employee profile: %w", err)
	}

	// No profile linked: SELF scope over nothing.
	return models.ProfileRef{}, nil
}
