package permissions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/jmjalil96/claimsdesk/internal/models"
	"github.com/jmjalil96/claimsdesk/pkg/metrics"
)

// Checker answers whether a user's role grants a named permission.
// Permissions are flat "resource:action" strings attached to roles; a user
// has exactly one role, so a check is a membership test on that role's set.
type Checker struct {
	db *gorm.DB
}

func NewChecker(db *gorm.DB) (*Checker, error) {
	if db == nil {
		return nil, errors.New("permission checker: db is required")
	}
	return &Checker{db: db}, nil
}

// Check reports whether the user's role carries the permission. The role's
// grants are read from the store on every call so revocations take effect
// immediately.
func (c *Checker) Check(ctx context.Context, user *models.User, permission string) (bool, error) {
	if user == nil {
		return false, errors.New("permission checker: user is required")
	}
	permission = strings.TrimSpace(permission)
	if permission == "" {
		return false, errors.New("permission checker: permission is required")
	}

	granted, err := c.rolePermissions(ctx, user.RoleID)
	if err != nil {
		return false, err
	}

	_, ok := granted[permission]
	if ok {
		metrics.PermissionChecks.WithLabelValues(permission, "allowed").Inc()
	} else {
		metrics.PermissionChecks.WithLabelValues(permission, "denied").Inc()
	}
	return ok, nil
}

// UserPermissions returns the sorted permission names granted to the user.
func (c *Checker) UserPermissions(ctx context.Context, user *models.User) ([]string, error) {
	if user == nil {
		return nil, errors.New("permission checker: user is required")
	}

	granted, err := c.rolePermissions(ctx, user.RoleID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(granted))
	for name := range granted {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *Checker) rolePermissions(ctx context.Context, roleID string) (map[string]struct{}, error) {
	var role models.Role
	if err := c.db.WithContext(ctx).
		Preload("Permissions").
		Take(&role, "id = ?", roleID).Error; err != nil {
		return nil, fmt.Errorf("permission checker: load role: %w", err)
	}

	granted := make(map[string]struct{}, len(role.Permissions))
	for _, perm := range role.Permissions {
		granted[perm.Name] = struct{}{}
	}
	return granted, nil
}
