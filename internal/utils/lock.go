package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockFileSuffix = ".lock"
	lockRetryDelay = 250 * time.Millisecond
)

// DBLock serialises watchbuyer writers (watch add/rm/seed, evaluate --record)
// on one SQLite file through a sibling ".lock" file. Readers never take it.
type DBLock struct {
	flock *flock.Flock
	path  string
	owner string
}

// NewDBLock prepares the lock for the store at dbPath, creating the store's
// directory if needed. owner names the waiting command in log messages.
func NewDBLock(dbPath, owner string) (*DBLock, error) {
	absPath, err := GetAbsDBPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("resolving database path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	lockPath := absPath + lockFileSuffix
	return &DBLock{flock: flock.New(lockPath), path: lockPath, owner: owner}, nil
}

// Lock takes the writer lock. When another watchbuyer process holds it, Lock
// polls until the lock frees up or ctx is done.
func (l *DBLock) Lock(ctx context.Context) error {
	ok, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("locking %s: %w", l.path, err)
	}
	if ok {
		return nil
	}

	Log.Warnf("%s: another watchbuyer command is writing to the database, waiting for %s", l.owner, l.path)
	ok, err = l.flock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", l.path, err)
	}
	if !ok {
		return fmt.Errorf("waiting for %s: lock not acquired", l.path)
	}
	return nil
}

func (l *DBLock) Unlock() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("unlocking %s: %w", l.path, err)
	}
	return nil
}

// GetAbsDBPath resolves the database path, defaulting to
// ~/.config/watchbuyer/watchbuyer.sqlite.
func GetAbsDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "watchbuyer", "watchbuyer.sqlite"), nil
	}
	return filepath.Abs(dbPath)
}
