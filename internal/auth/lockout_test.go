package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordFailureLocksAtThreshold(t *testing.T) {
	db := openAuthTestDB(t)
	user := createTestUser(t, db, "lockout@example.com", "OriginalPass123!")

	guard, err := NewLockoutGuard(db, LockoutConfig{})
	require.NoError(t, err)

	ctx := context.Background()
	for i := 1; i < LockoutThreshold; i++ {
		outcome, err := guard.RecordFailure(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, i, outcome.Attempts)
		require.False(t, outcome.JustLocked)
	}

	outcome, err := guard.RecordFailure(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, outcome.JustLocked)
	require.Equal(t, LockoutThreshold, outcome.Attempts)

	stored := reloadUser(t, db, user.ID)
	require.NotNil(t, stored.LockedAt)
	require.Equal(t, LockoutThreshold, stored.FailedLoginAttempts)

	// Further failures keep counting but never re-trigger the transition.
	outcome, err = guard.RecordFailure(ctx, user.ID)
	require.NoError(t, err)
	require.False(t, outcome.JustLocked)
	require.Equal(t, LockoutThreshold+1, outcome.Attempts)
}

func TestRecordFailureConcurrentSingleLock(t *testing.T) {
	db := openAuthTestDB(t)
	user := createTestUser(t, db, "race@example.com", "OriginalPass123!")

	require.NoError(t, db.Model(user).Update("failed_login_attempts", LockoutThreshold-1).Error)

	guard, err := NewLockoutGuard(db, LockoutConfig{})
	require.NoError(t, err)

	const workers = 5

	var wg sync.WaitGroup
	outcomes := make([]FailureOutcome, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			outcomes[idx], errs[idx] = guard.RecordFailure(context.Background(), user.ID)
		}(i)
	}
	wg.Wait()

	locked := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		if outcomes[i].JustLocked {
			locked++
		}
	}
	require.Equal(t, 1, locked, "exactly one attempt must observe the lock transition")

	stored := reloadUser(t, db, user.ID)
	require.NotNil(t, stored.LockedAt)
	require.Equal(t, LockoutThreshold-1+workers, stored.FailedLoginAttempts,
		"every concurrent increment must land")
}

func TestRecordFailureConcurrentBelowBoundary(t *testing.T) {
	db := openAuthTestDB(t)
	user := createTestUser(t, db, "boundary@example.com", "OriginalPass123!")

	require.NoError(t, db.Model(user).Update("failed_login_attempts", LockoutThreshold-2).Error)

	guard, err := NewLockoutGuard(db, LockoutConfig{})
	require.NoError(t, err)

	const workers = 2

	var wg sync.WaitGroup
	outcomes := make([]FailureOutcome, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			outcomes[idx], errs[idx] = guard.RecordFailure(context.Background(), user.ID)
		}(i)
	}
	wg.Wait()

	locked := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		if outcomes[i].JustLocked {
			locked++
		}
	}
	require.Equal(t, 1, locked,
		"crossing the threshold must lock exactly once even when the increments race")

	stored := reloadUser(t, db, user.ID)
	require.NotNil(t, stored.LockedAt, "counter at the threshold must never be left unlocked")
	require.Equal(t, LockoutThreshold, stored.FailedLoginAttempts)
}

func TestRecordFailureClosesCounterPastThreshold(t *testing.T) {
	db := openAuthTestDB(t)
	user := createTestUser(t, db, "stuck@example.com", "OriginalPass123!")

	// Counter already past the threshold with no lock recorded: the next
	// failure must still complete the transition.
	require.NoError(t, db.Model(user).Update("failed_login_attempts", LockoutThreshold).Error)

	guard, err := NewLockoutGuard(db, LockoutConfig{})
	require.NoError(t, err)

	outcome, err := guard.RecordFailure(context.Background(), user.ID)
	require.NoError(t, err)
	require.True(t, outcome.JustLocked)
	require.Equal(t, LockoutThreshold+1, outcome.Attempts)

	stored := reloadUser(t, db, user.ID)
	require.NotNil(t, stored.LockedAt)
}

func TestRecordSuccessResetsCounter(t *testing.T) {
	db := openAuthTestDB(t)
	user := createTestUser(t, db, "reset@example.com", "OriginalPass123!")

	guard, err := NewLockoutGuard(db, LockoutConfig{})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := guard.RecordFailure(context.Background(), user.ID)
		require.NoError(t, err)
	}

	require.NoError(t, guard.RecordSuccess(db, user.ID))

	stored := reloadUser(t, db, user.ID)
	require.Zero(t, stored.FailedLoginAttempts)
	require.Nil(t, stored.LockedAt)
}

func TestRecordFailureUnknownUser(t *testing.T) {
	db := openAuthTestDB(t)

	guard, err := NewLockoutGuard(db, LockoutConfig{Clock: func() time.Time { return time.Now() }})
	require.NoError(t, err)

	_, err = guard.RecordFailure(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrLockoutUserNotFound)
}
