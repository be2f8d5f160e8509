package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jmjalil96/claimsdesk/internal/auth"
	"github.com/jmjalil96/claimsdesk/internal/database/testutil"
	"github.com/jmjalil96/claimsdesk/internal/models"
	"github.com/jmjalil96/claimsdesk/pkg/crypto"
	"github.com/jmjalil96/claimsdesk/pkg/mail"
)

// openServiceTestDB opens a seeded in-memory database capped at one
// connection so concurrent goroutines contend on the conditional updates,
// not on SQLite write locks.
func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	return db
}

func newSessionService(t *testing.T, db *gorm.DB) *auth.SessionService {
	t.Helper()

	sessions, err := auth.NewSessionService(db, auth.SessionConfig{})
	require.NoError(t, err)
	return sessions
}

func createServiceUser(t *testing.T, db *gorm.DB, email, roleID string) *models.User {
	t.Helper()

	hash, err := crypto.HashPassword("ServicePass123!")
	require.NoError(t, err)

	user := &models.User{
		Email:    email,
		Password: hash,
		RoleID:   roleID,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createEmployee(t *testing.T, db *gorm.DB, email string) *models.Employee {
	t.Helper()

	employee := &models.Employee{
		FirstName: "Jordan",
		LastName:  "Vega",
		Email:     email,
		IsActive:  true,
	}
	require.NoError(t, db.Create(employee).Error)
	return employee
}

func createAffiliateProfile(t *testing.T, db *gorm.DB, email string, clientID *string) *models.Affiliate {
	t.Helper()

	affiliate := &models.Affiliate{
		Name:     "Northside Clinic",
		Email:    email,
		IsActive: true,
		ClientID: clientID,
	}
	require.NoError(t, db.Create(affiliate).Error)
	return affiliate
}

func createClient(t *testing.T, db *gorm.DB, name, code string) *models.Client {
	t.Helper()

	client := &models.Client{Name: name, Code: code, IsActive: true}
	require.NoError(t, db.Create(client).Error)
	return client
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

func (m *recordingMailer) last() mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return mail.Message{}
	}
	return m.messages[len(m.messages)-1]
}
