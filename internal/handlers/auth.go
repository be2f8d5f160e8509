package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/jmjalil96/claimsdesk/internal/auth"
	"github.com/jmjalil96/claimsdesk/internal/permissions"
	appErrors "github.com/jmjalil96/claimsdesk/pkg/errors"
	"github.com/jmjalil96/claimsdesk/pkg/response"
)

// AuthHandler manages the session flows: login, logout and identity.
type AuthHandler struct {
	login    *iauth.LoginService
	sessions *iauth.SessionService
	checker  *permissions.Checker
}

func NewAuthHandler(login *iauth.LoginService, sessions *iauth.SessionService, checker *permissions.Checker) *AuthHandler {
	return &AuthHandler{login: login, sessions: sessions, checker: checker}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.login.Login(requestContext(c), iauth.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		// Every credential rejection reads the same to the caller; store
		// failures stay distinguishable as server errors.
		if errors.Is(err, iauth.ErrInvalidLogin) {
			response.Error(c, appErrors.ErrInvalidCredentials)
			return
		}
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	setSessionCookie(c, result.Token, result.Session.ExpiresAt)

	perms, err := h.checker.UserPermissions(requestContext(c), result.User)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":        userPayload(result.User),
		"permissions": perms,
		"expires_at":  result.Session.ExpiresAt,
	})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	if err := h.sessions.Revoke(requestContext(c), principal.Session.ID); err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	clearSessionCookie(c)
	response.Success(c, http.StatusOK, gin.H{"message": "logged out"})
}

// POST /api/auth/logout_all
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	if err := h.sessions.RevokeAll(requestContext(c), principal.User.ID); err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	clearSessionCookie(c)
	response.Success(c, http.StatusOK, gin.H{"message": "all sessions revoked"})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	perms, err := h.checker.UserPermissions(requestContext(c), principal.User)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":        userPayload(principal.User),
		"permissions": perms,
		"session": gin.H{
			"id":         principal.Session.ID,
			"expires_at": principal.Session.ExpiresAt,
		},
	})
}
