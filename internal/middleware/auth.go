package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/jmjalil96/claimsdesk/internal/auth"
	"github.com/jmjalil96/claimsdesk/pkg/errors"
	"github.com/jmjalil96/claimsdesk/pkg/response"
)

const (
	// SessionCookieName is the HTTP-only cookie carrying the opaque session token.
	SessionCookieName = "claimsdesk_session"

	CtxPrincipalKey = "authPrincipal"
	CtxUserIDKey    = "userID"
	CtxSessionIDKey = "sessionID"
)

// Auth authenticates the request from the session cookie, falling back to a
// Bearer token for non-browser clients. Every failure mode collapses to the
// same 401.
func Auth(sessions *iauth.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		principal, err := sessions.Validate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxPrincipalKey, principal)
		c.Set(CtxUserIDKey, principal.User.ID)
		c.Set(CtxSessionIDKey, principal.Session.ID)

		c.Next()
	}
}

// Principal retrieves the authenticated principal placed by Auth.
func Principal(c *gin.Context) (*iauth.Principal, bool) {
	v, ok := c.Get(CtxPrincipalKey)
	if !ok {
		return nil, false
	}
	principal, ok := v.(*iauth.Principal)
	return principal, ok && principal != nil
}

func sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		if token := strings.TrimSpace(cookie); token != "" {
			return token
		}
	}

	authz := c.GetHeader("Authorization")
	if len(authz) >= 8 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return ""
}
