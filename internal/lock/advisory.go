// Package lock provides SQL Server application locks for preventing
// concurrent crawl runs against the same server.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrLockTimeout is returned when lock acquisition times out because
// another instance is holding the lock.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Common timeout values for lock acquisition (in seconds).
const (
	// TimeoutImmediate returns immediately if the lock cannot be acquired.
	TimeoutImmediate = 0

	// TimeoutShort is suitable for fast-failing duplicate run detection.
	TimeoutShort = 1

	// TimeoutMedium provides a reasonable wait for transient conflicts.
	TimeoutMedium = 10

	// TimeoutLong allows queueing behind a running crawl.
	TimeoutLong = 60

	// TimeoutInfinite waits indefinitely until the lock is acquired.
	TimeoutInfinite = -1
)

// AdvisoryLock is a named SQL Server application lock acquired through
// sp_getapplock with session ownership. Session-owned locks vanish when
// their session ends, so the lock pins one connection out of the pool
// for as long as it is held.
type AdvisoryLock struct {
	db       *sql.DB
	conn     *sql.Conn
	lockName string
	held     bool
}

// NewAdvisoryLock creates a new advisory lock with the given name.
// The lock is not acquired until AcquireLock is called.
func NewAdvisoryLock(db *sql.DB, lockName string) *AdvisoryLock {
	return &AdvisoryLock{
		db:       db,
		lockName: lockName,
	}
}

// AcquireLock attempts to acquire the lock, waiting up to timeoutSeconds.
// Returns true if the lock was acquired, false if the timeout was reached.
//
// sp_getapplock return values:
//
//	 0: granted synchronously
//	 1: granted after waiting
//	-1: timeout
//	-2: canceled
//	-3: chosen as deadlock victim
//
// Anything else is a parameter or internal error.
func (a *AdvisoryLock) AcquireLock(ctx context.Context, timeoutSeconds int) (bool, error) {
	if a.held {
		return true, nil
	}

	if a.conn == nil {
		conn, err := a.db.Conn(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to reserve lock connection: %w", err)
		}
		a.conn = conn
	}

	timeoutMillis := timeoutSeconds * 1000
	if timeoutSeconds < 0 {
		timeoutMillis = -1
	}

	query := `DECLARE @result int;
EXEC @result = sp_getapplock @Resource = @p1, @LockMode = 'Exclusive', @LockOwner = 'Session', @LockTimeout = @p2;
SELECT @result;`

	var result sql.NullInt64
	err := a.conn.QueryRowContext(ctx, query, a.lockName, timeoutMillis).Scan(&result)
	if err != nil {
		a.dropConn()
		return false, fmt.Errorf("failed to execute sp_getapplock: %w", err)
	}
	if !result.Valid {
		a.dropConn()
		return false, fmt.Errorf("sp_getapplock returned NULL for lock %q", a.lockName)
	}

	switch result.Int64 {
	case 0, 1:
		a.held = true
		return true, nil
	case -1:
		// Timeout, another instance is holding the lock.
		a.dropConn()
		return false, nil
	case -2, -3:
		a.dropConn()
		return false, fmt.Errorf("sp_getapplock aborted for lock %q (status %d)", a.lockName, result.Int64)
	default:
		a.dropConn()
		return false, fmt.Errorf("unexpected sp_getapplock return value: %d", result.Int64)
	}
}

// ReleaseLock releases the lock and returns the reserved connection to
// the pool. Returns true if the lock was released, false if it was not
// held. The lock also releases automatically when the session closes,
// but explicit release is recommended.
func (a *AdvisoryLock) ReleaseLock(ctx context.Context) (bool, error) {
	if !a.held || a.conn == nil {
		a.dropConn()
		return false, nil
	}

	query := `DECLARE @result int;
EXEC @result = sp_releaseapplock @Resource = @p1, @LockOwner = 'Session';
SELECT @result;`

	var result sql.NullInt64
	err := a.conn.QueryRowContext(ctx, query, a.lockName).Scan(&result)
	a.held = false
	if err != nil {
		a.dropConn()
		return false, fmt.Errorf("failed to execute sp_releaseapplock: %w", err)
	}
	a.dropConn()

	if !result.Valid || result.Int64 < 0 {
		return false, fmt.Errorf("sp_releaseapplock failed for lock %q", a.lockName)
	}
	return true, nil
}

func (a *AdvisoryLock) dropConn() {
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
}

// IsHeld returns true if this lock is currently held by this instance.
func (a *AdvisoryLock) IsHeld() bool {
	return a.held
}

// LockName returns the name of the advisory lock.
func (a *AdvisoryLock) LockName() string {
	return a.lockName
}

// TryAcquire attempts to acquire the lock immediately without waiting.
// Returns true if acquired, false if another instance holds it.
func (a *AdvisoryLock) TryAcquire(ctx context.Context) (bool, error) {
	return a.AcquireLock(ctx, TimeoutImmediate)
}

// AcquireOrFail attempts to acquire the lock with a short timeout and
// returns ErrLockTimeout if another instance is holding it.
func (a *AdvisoryLock) AcquireOrFail(ctx context.Context) error {
	acquired, err := a.AcquireLock(ctx, TimeoutShort)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another instance", ErrLockTimeout, a.lockName)
	}
	return nil
}

// GenerateCrawlLockName creates a consistent lock name for a crawl run.
// Lock names follow the format "depcrawl:crawl:{name}" so they are easy
// to spot in sys.dm_tran_locks.
func GenerateCrawlLockName(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, name)

	return fmt.Sprintf("depcrawl:crawl:%s", sanitized)
}

// NewCrawlLock creates an advisory lock for a named crawl run. This is
// the recommended way to create locks so naming stays consistent across
// instances.
func NewCrawlLock(db *sql.DB, name string) *AdvisoryLock {
	return NewAdvisoryLock(db, GenerateCrawlLockName(name))
}

// IsCrawlRunning checks whether a crawl with the given name is currently
// running by probing its lock without waiting. The check is not atomic;
// the state can change right after it returns.
func IsCrawlRunning(ctx context.Context, db *sql.DB, name string) (bool, error) {
	lock := NewCrawlLock(db, name)

	acquired, err := lock.TryAcquire(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check if crawl %q is running: %w", name, err)
	}
	if acquired {
		// We were only probing, put it back.
		if _, releaseErr := lock.ReleaseLock(ctx); releaseErr != nil {
			return false, releaseErr
		}
		return false, nil
	}
	return true, nil
}

// WithLock executes fn while holding the lock, releasing it even if fn
// panics. Returns ErrLockTimeout if the lock cannot be acquired within
// the timeout.
func (a *AdvisoryLock) WithLock(ctx context.Context, timeoutSeconds int, fn func() error) error {
	acquired, err := a.AcquireLock(ctx, timeoutSeconds)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another instance", ErrLockTimeout, a.lockName)
	}

	defer func() {
		// Release on a fresh context so cancellation of the crawl does
		// not leak the reserved connection.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.ReleaseLock(releaseCtx)
	}()

	return fn()
}

// WithCrawlLock executes fn while holding the crawl's advisory lock,
// failing fast with ErrLockTimeout when another instance is already
// running the same crawl.
func WithCrawlLock(ctx context.Context, db *sql.DB, name string, fn func() error) error {
	lock := NewCrawlLock(db, name)
	return lock.WithLock(ctx, TimeoutShort, fn)
}
