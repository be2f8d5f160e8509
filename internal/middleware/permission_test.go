package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/jmjalil96/claimsdesk/internal/auth"
	"github.com/jmjalil96/claimsdesk/internal/database/testutil"
	"github.com/jmjalil96/claimsdesk/internal/models"
	"github.com/jmjalil96/claimsdesk/internal/permissions"
	"github.com/jmjalil96/claimsdesk/pkg/crypto"
)

func TestRequirePermission(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	hash, err := crypto.HashPassword("PermissionPass123!")
	require.NoError(t, err)

	admin := &models.User{Email: "admin@example.com", Password: hash, RoleID: "admin", IsActive: true}
	require.NoError(t, db.Create(admin).Error)
	affiliate := &models.User{Email: "affiliate@example.com", Password: hash, RoleID: "affiliate", IsActive: true}
	require.NoError(t, db.Create(affiliate).Error)

	sessions, err := iauth.NewSessionService(db, iauth.SessionConfig{})
	require.NoError(t, err)
	checker, err := permissions.NewChecker(db)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/users", Auth(sessions), RequirePermission(checker, "users:read"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("granted", func(t *testing.T) {
		issued, err := sessions.Create(context.Background(), admin.ID, iauth.SessionMetadata{})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: issued.Token})
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("denied", func(t *testing.T) {
		issued, err := sessions.Create(context.Background(), affiliate.ID, iauth.SessionMetadata{})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: issued.Token})
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusForbidden, w.Code)
	})
}
