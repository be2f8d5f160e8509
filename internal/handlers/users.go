package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jmjalil96/claimsdesk/internal/models"
	"github.com/jmjalil96/claimsdesk/internal/services"
	"github.com/jmjalil96/claimsdesk/pkg/response"
)

// UserHandler serves user account administration.
type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	users, total, err := h.users.List(requestContext(c), services.UserListOptions{
		Page:     page,
		PageSize: perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	payloads := make([]gin.H, 0, len(users))
	for i := range users {
		payloads = append(payloads, userPayload(&users[i]))
	}
	response.SuccessWithMeta(c, http.StatusOK, payloads, paginationMeta(page, perPage, total))
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, userPayload(user))
}

// POST /api/users/:id/unlock
func (h *UserHandler) Unlock(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	if err := h.users.Unlock(requestContext(c), c.Param("id"), principal.User.ID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "account unlocked"})
}

// POST /api/users/:id/deactivate
func (h *UserHandler) Deactivate(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	if err := h.users.Deactivate(requestContext(c), c.Param("id"), principal.User.ID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "account deactivated"})
}

// userPayload shapes a user for API responses. The password hash and lockout
// counters never leave the server.
func userPayload(user *models.User) gin.H {
	payload := gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"role_id":    user.RoleID,
		"is_active":  user.IsActive,
		"created_at": user.CreatedAt,
	}
	if user.Role != nil {
		payload["role"] = gin.H{
			"id":         user.Role.ID,
			"name":       user.Role.Name,
			"scope_type": user.Role.ScopeType,
		}
	}
	if user.LockedAt != nil {
		payload["locked_at"] = user.LockedAt
	}
	if user.LastLoginAt != nil {
		payload["last_login_at"] = user.LastLoginAt
	}
	return payload
}
