package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jmjalil96/claimsdesk/internal/permissions"
	"github.com/jmjalil96/claimsdesk/pkg/errors"
	"github.com/jmjalil96/claimsdesk/pkg/response"
)

// RequirePermission checks that the authenticated user's role grants the
// named permission. Must run after Auth.
func RequirePermission(checker *permissions.Checker, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := Principal(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		allowed, err := checker.Check(c.Request.Context(), principal.User, permission)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   gin.H{"code": errors.ErrInternalServer.Code, "message": "permission check failed"},
			})
			return
		}
		if !allowed {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
