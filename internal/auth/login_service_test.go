package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newLoginFixture(t *testing.T, db *gorm.DB, mailer *recordingMailer) *LoginService {
	t.Helper()

	sessions, err := NewSessionService(db, SessionConfig{})
	require.NoError(t, err)
	guard, err := NewLockoutGuard(db, LockoutConfig{})
	require.NoError(t, err)

	svc, err := NewLoginService(db, sessions, guard, mailer, LoginConfig{})
	require.NoError(t, err)
	return svc
}

func TestLoginSuccessIssuesSession(t *testing.T) {
	db := openAuthTestDB(t)
	user := createTestUser(t, db, "login@example.com", "SuperSecret123!")

	svc := newLoginFixture(t, db, &recordingMailer{})

	result, err := svc.Login(context.Background(), LoginInput{
		Email:     "Login@Example.com",
		Password:  "SuperSecret123!",
		IPAddress: "192.0.2.10",
		UserAgent: "test-agent",
	})
	require.NoError(t, err)
	require.Equal(t, user.ID, result.User.ID)
	require.NotEmpty(t, result.Token)
	require.True(t, result.Session.ExpiresAt.After(time.Now()))

	stored := reloadUser(t, db, user.ID)
	require.Zero(t, stored.FailedLoginAttempts)
	require.NotNil(t, stored.LastLoginAt)
	require.Equal(t, "192.0.2.10", stored.LastLoginIP)
}

func TestLoginSuccessResetsFailureCounter(t *testing.T) {
	db := openAuthTestDB(t)
	user := createTestUser(t, db, "counter@example.com", "SuperSecret123!")
	require.NoError(t, db.Model(user).Update("failed_login_attempts", 3).Error)

	svc := newLoginFixture(t, db, &recordingMailer{})

	_, err := svc.Login(context.Background(), LoginInput{Email: user.Email, Password: "SuperSecret123!"})
	require.NoError(t, err)

	stored := reloadUser(t, db, user.ID)
	require.Zero(t, stored.FailedLoginAttempts)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	db := openAuthTestDB(t)
	user := createTestUser(t, db, "uniform@example.com", "SuperSecret123!")

	svc := newLoginFixture(t, db, &recordingMailer{})
	ctx := context.Background()

	_, unknownErr := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "whatever"})
	require.ErrorIs(t, unknownErr, ErrInvalidLogin)

	_, wrongErr := svc.Login(ctx, LoginInput{Email: user.Email, Password: "wrong"})
	require.ErrorIs(t, wrongErr, ErrInvalidLogin)

	require.NoError(t, db.Model(user).Update("is_active", false).Error)
	_, inactiveErr := svc.Login(ctx, LoginInput{Email: user.Email, Password: "SuperSecret123!"})
	require.ErrorIs(t, inactiveErr, ErrInvalidLogin)
}

func TestLoginLocksAfterThresholdAndNotifiesOnce(t *testing.T) {
	db := openAuthTestDB(t)
	user := createTestUser(t, db, "threshold@example.com", "SuperSecret123!")

	mailer := &recordingMailer{}
	svc := newLoginFixture(t, db, mailer)
	ctx := context.Background()

	for i := 0; i < LockoutThreshold; i++ {
		_, err := svc.Login(ctx, LoginInput{Email: user.Email, Password: "wrong"})
		require.ErrorIs(t, err, ErrInvalidLogin)
	}

	stored := reloadUser(t, db, user.ID)
	require.NotNil(t, stored.LockedAt)
	require.Equal(t, LockoutThreshold, stored.FailedLoginAttempts)

	require.Eventually(t, func() bool {
		return mailer.count() == 1
	}, 2*time.Second, 20*time.Millisecond, "expected exactly one lock notification")

	// The correct password no longer works once locked.
	_, err := svc.Login(ctx, LoginInput{Email: user.Email, Password: "SuperSecret123!"})
	require.ErrorIs(t, err, ErrInvalidLogin)

	// And no further notification is sent for later failures.
	_, err = svc.Login(ctx, LoginInput{Email: user.Email, Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidLogin)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, mailer.count())
}

func TestLoginConcurrentFailuresLockOnceAtBoundary(t *testing.T) {
	db := openAuthTestDB(t)
	user := createTestUser(t, db, "boundary@example.com", "SuperSecret123!")
	require.NoError(t, db.Model(user).Update("failed_login_attempts", LockoutThreshold-1).Error)

	mailer := &recordingMailer{}
	svc := newLoginFixture(t, db, mailer)

	const workers = 5
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Login(context.Background(), LoginInput{Email: user.Email, Password: "wrong"})
		}()
	}
	wg.Wait()

	stored := reloadUser(t, db, user.ID)
	require.NotNil(t, stored.LockedAt)
	require.GreaterOrEqual(t, stored.FailedLoginAttempts, LockoutThreshold)

	require.Eventually(t, func() bool {
		return mailer.count() == 1
	}, 2*time.Second, 20*time.Millisecond, "lock notification must be dispatched exactly once")
}

func TestLoginConcurrentSuccessesCreateDistinctSessions(t *testing.T) {
	db := openAuthTestDB(t)
	user := createTestUser(t, db, "parallel@example.com", "SuperSecret123!")

	svc := newLoginFixture(t, db, &recordingMailer{})

	const workers = 4
	tokens := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			result, err := svc.Login(context.Background(), LoginInput{Email: user.Email, Password: "SuperSecret123!"})
			errs[idx] = err
			if err == nil {
				tokens[idx] = result.Token
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, workers)
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.NotEmpty(t, tokens[i])
		seen[tokens[i]] = struct{}{}
	}
	require.Len(t, seen, workers, "each login must issue a distinct token")
}
