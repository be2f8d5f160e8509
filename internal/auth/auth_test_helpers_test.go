package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jmjalil96/claimsdesk/internal/database/testutil"
	"github.com/jmjalil96/claimsdesk/internal/models"
	"github.com/jmjalil96/claimsdesk/pkg/crypto"
	"github.com/jmjalil96/claimsdesk/pkg/mail"
)

// openAuthTestDB opens a seeded in-memory database. Connections are capped at
// one so concurrent test goroutines exercise the conditional-update logic
// without tripping SQLite write contention.
func openAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string) *models.User {
	t.Helper()

	hash, err := crypto.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		Email:    email,
		Password: hash,
		RoleID:   "admin",
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func reloadUser(t *testing.T, db *gorm.DB, id string) models.User {
	t.Helper()

	var user models.User
	require.NoError(t, db.Take(&user, "id = ?", id).Error)
	return user
}

// recordingMailer captures outbound messages for assertions.
type recordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}
