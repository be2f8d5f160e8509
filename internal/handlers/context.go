package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/jmjalil96/claimsdesk/internal/auth"
	"github.com/jmjalil96/claimsdesk/internal/middleware"
	"github.com/jmjalil96/claimsdesk/internal/scope"
	"github.com/jmjalil96/claimsdesk/pkg/errors"
	"github.com/jmjalil96/claimsdesk/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// mustPrincipal fetches the authenticated principal or writes a 401.
func mustPrincipal(c *gin.Context) (*iauth.Principal, bool) {
	principal, ok := middleware.Principal(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return nil, false
	}
	return principal, true
}

// resolveScope resolves the caller's data scope or writes a 500.
func resolveScope(c *gin.Context, resolver *scope.Resolver) (scope.Scope, bool) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return scope.Scope{}, false
	}

	sc, err := resolver.Resolve(requestContext(c), principal.User)
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return scope.Scope{}, false
	}
	return sc, true
}

// setSessionCookie delivers the opaque session token to the browser. The
// cookie mirrors the session's expiry and is never readable from scripts.
func setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func paginationMeta(page, perPage int, total int64) *response.Meta {
	if perPage <= 0 {
		perPage = 50
	}
	pages := int(total) / perPage
	if int(total)%perPage != 0 {
		pages++
	}
	return &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      int(total),
		TotalPages: pages,
	}
}
