// Package lockfile implements cross-process mutual exclusion through a
// sentinel file whose existence is the lock token.
package lockfile

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

const (
	defaultRetryDelay  = 100 * time.Millisecond
	defaultMaxAttempts = 50
)

// Lock guards a named on-disk resource. Acquisition attempts exclusive
// file creation; after maxAttempts failed tries the existing lock is
// treated as stale and taken over, trading strict exclusion for liveness.
type Lock struct {
	path        string
	retryDelay  time.Duration
	maxAttempts int
	log         *slog.Logger
}

// New returns a lock over path with default retry settings.
func New(path string, log *slog.Logger) *Lock {
	if log == nil {
		log = slog.Default()
	}
	return &Lock{
		path:        path,
		retryDelay:  defaultRetryDelay,
		maxAttempts: defaultMaxAttempts,
		log:         log,
	}
}

// WithLock runs fn while holding the lock and releases it on every exit
// path, including a panic inside fn.
func (l *Lock) WithLock(fn func() error) error {
	if err := l.acquire(); err != nil {
		return err
	}
	defer func() {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			l.log.Warn("releasing lock", "path", l.path, "error", err)
		}
	}()

	return fn()
}

func (l *Lock) acquire() error {
	for attempt := 0; attempt < l.maxAttempts; attempt++ {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			return f.Close()
		}
		if !os.IsExist(err) {
			return fmt.Errorf("creating lock %s: %w", l.path, err)
		}
		time.Sleep(l.retryDelay)
	}

	// Holder is presumed dead; take the lock over rather than
	// deadlocking forever.
	l.log.Warn("forcing stale lock", "path", l.path, "attempts", l.maxAttempts)
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale lock %s: %w", l.path, err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("recreating lock %s: %w", l.path, err)
	}
	return f.Close()
}
