package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/jmjalil96/claimsdesk/internal/models"
	"github.com/jmjalil96/claimsdesk/pkg/metrics"
)

// LockoutThreshold is the number of consecutive failed logins that locks an
// account. Fixed policy; unlocking is an administrative action outside this
// package.
const LockoutThreshold = 5

// ErrLockoutUserNotFound indicates the failure could not be recorded because
// the user row is gone.
var ErrLockoutUserNotFound = errors.New("lockout: user not found")

// FailureOutcome reports the result of recording one failed attempt.
type FailureOutcome struct {
	// Attempts is the counter value after this failure landed.
	Attempts int
	// JustLocked is true for exactly one of N concurrent failing attempts:
	// the one whose increment crossed the threshold. Callers key the
	// account-locked notification off this flag.
	JustLocked bool
}

// LockoutConfig tunes the guard; the zero value uses production defaults.
type LockoutConfig struct {
	Clock func() time.Time
}

// LockoutGuard tracks consecutive failed login attempts per user and performs
// the one-way Active -> Locked transition. All state lives in the users table;
// coordination happens through single-statement conditional updates so the
// guarantees hold across processes.
type LockoutGuard struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLockoutGuard constructs a guard backed by the provided database.
func NewLockoutGuard(db *gorm.DB, cfg LockoutConfig) (*LockoutGuard, error) {
	if db == nil {
		return nil, errors.New("lockout guard: db is required")
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &LockoutGuard{db: db, now: clock}, nil
}

// RecordFailure atomically increments the failed-attempt counter and, when the
// pre-increment value is at or past threshold-1 with the account still
// unlocked, sets locked_at in the same statement. The conditional predicate is
// evaluated by the database in the same round-trip as the write, and
// `locked_at IS NULL` keeps the transition one-way, so of N concurrent
// failures exactly one observes JustLocked.
func (g *LockoutGuard) RecordFailure(ctx context.Context, userID string) (FailureOutcome, error) {
	now := g.now()

	result := g.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND failed_login_attempts >= ? AND locked_at IS NULL", userID, LockoutThreshold-1).
		Updates(map[string]any{
			"failed_login_attempts": gorm.Expr("failed_login_attempts + 1"),
			"locked_at":             now,
		})
	if result.Error != nil {
		return FailureOutcome{}, fmt.Errorf("lockout guard: lock transition: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		metrics.AccountLockouts.Inc()
		attempts, err := g.readAttempts(ctx, userID)
		if err != nil {
			return FailureOutcome{}, err
		}
		return FailureOutcome{Attempts: attempts, JustLocked: true}, nil
	}

	// Below the boundary, or the account is already locked: the increment
	// still has to land.
	result = g.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("failed_login_attempts", gorm.Expr("failed_login_attempts + 1"))
	if result.Error != nil {
		return FailureOutcome{}, fmt.Errorf("lockout guard: record failure: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return FailureOutcome{}, ErrLockoutUserNotFound
	}

	attempts, err := g.readAttempts(ctx, userID)
	if err != nil {
		return FailureOutcome{}, err
	}

	// Increments racing just below the boundary can each miss the combined
	// update yet push the counter past the threshold. Whoever reads that
	// state closes the transition; `locked_at IS NULL` keeps it at-most-once.
	if attempts >= LockoutThreshold {
		result = g.db.WithContext(ctx).Model(&models.User{}).
			Where("id = ? AND failed_login_attempts >= ? AND locked_at IS NULL", userID, LockoutThreshold).
			Update("locked_at", now)
		if result.Error != nil {
			return FailureOutcome{}, fmt.Errorf("lockout guard: lock transition: %w", result.Error)
		}
		if result.RowsAffected == 1 {
			metrics.AccountLockouts.Inc()
			return FailureOutcome{Attempts: attempts, JustLocked: true}, nil
		}
	}

	return FailureOutcome{Attempts: attempts}, nil
}

func (g *LockoutGuard) readAttempts(ctx context.Context, userID string) (int, error) {
	var attempts int
	if err := g.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Pluck("failed_login_attempts", &attempts).Error; err != nil {
		return 0, fmt.Errorf("lockout guard: read counter: %w", err)
	}
	return attempts, nil
}

// RecordSuccess resets the counter inside the caller's transaction so the
// reset commits or rolls back together with session issuance.
func (g *LockoutGuard) RecordSuccess(tx *gorm.DB, userID string) error {
	if tx == nil {
		tx = g.db
	}
	if err := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update("failed_login_attempts", 0).Error; err != nil {
		return fmt.Errorf("lockout guard: reset counter: %w", err)
	}
	return nil
}
