// Package lock serializes reconciliation runs that write to the run log with
// a MySQL advisory lock per job.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrLockHeld is returned when another instance holds the job lock.
var ErrLockHeld = errors.New("job lock is held by another instance")

// Lock wait times in seconds. MySQL treats a negative timeout as infinite.
const (
	TimeoutImmediate = 0
	TimeoutShort     = 1
	TimeoutInfinite  = -1
)

const (
	lockPrefix     = "custrecon:"
	maxLockNameLen = 64 // MySQL limit for GET_LOCK names
)

// JobLock is a GET_LOCK advisory lock. The lock belongs to the MySQL session
// that took it, so the lock pins one connection from the pool until Release.
type JobLock struct {
	db   *sql.DB
	conn *sql.Conn
	name string
}

// LockName returns the advisory lock name for a job: "custrecon:<job>", with
// characters outside [A-Za-z0-9_-] replaced and the result cut to 64 bytes.
func LockName(job string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, job)

	name := lockPrefix + sanitized
	if len(name) > maxLockNameLen {
		name = name[:maxLockNameLen]
	}
	return name
}

// NewJobLock creates the lock for job. Nothing is acquired yet.
func NewJobLock(db *sql.DB, job string) *JobLock {
	return &JobLock{db: db, name: LockName(job)}
}

// Name returns the advisory lock name.
func (l *JobLock) Name() string {
	return l.name
}

// Held reports whether this instance holds the lock.
func (l *JobLock) Held() bool {
	return l.conn != nil
}

// Acquire takes the lock, waiting up to timeoutSeconds. It returns
// ErrLockHeld when the wait ends without the lock.
//
// GET_LOCK returns 1 when obtained, 0 on timeout and NULL on error.
func (l *JobLock) Acquire(ctx context.Context, timeoutSeconds int) error {
	if l.conn != nil {
		return nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to reserve connection for lock %q: %w", l.name, err)
	}

	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", l.name, timeoutSeconds).Scan(&result); err != nil {
		conn.Close()
		return fmt.Errorf("failed to execute GET_LOCK: %w", err)
	}
	if !result.Valid {
		conn.Close()
		return fmt.Errorf("GET_LOCK returned NULL for lock %q", l.name)
	}

	switch result.Int64 {
	case 1:
		l.conn = conn
		return nil
	case 0:
		conn.Close()
		return fmt.Errorf("%w: %s", ErrLockHeld, l.name)
	default:
		conn.Close()
		return fmt.Errorf("unexpected GET_LOCK return value: %d", result.Int64)
	}
}

// Release frees the lock and returns the pinned connection to the pool.
// Releasing a lock that is not held is a no-op.
func (l *JobLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	conn := l.conn
	l.conn = nil
	defer conn.Close()

	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", l.name).Scan(&result); err != nil {
		return fmt.Errorf("failed to execute RELEASE_LOCK: %w", err)
	}
	// RELEASE_LOCK: 1 released, 0 held by another session, NULL did not exist.
	if !result.Valid || result.Int64 != 1 {
		return fmt.Errorf("lock %q was not held by this session", l.name)
	}
	return nil
}

// WithJobLock runs fn while holding the job lock. The lock is released even
// if fn panics; release uses its own short deadline so a canceled run still
// frees the lock.
func WithJobLock(ctx context.Context, db *sql.DB, job string, timeoutSeconds int, fn func() error) (err error) {
	l := NewJobLock(db, job)
	if err := l.Acquire(ctx, timeoutSeconds); err != nil {
		return err
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if releaseErr := l.Release(releaseCtx); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()

	return fn()
}
