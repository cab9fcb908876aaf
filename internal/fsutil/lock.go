package fsutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// ErrLockTimeout is returned when another process keeps a lock past the
// allowed wait.
var ErrLockTimeout = errors.New("timed out waiting for lock")

const lockPollInterval = 200 * time.Millisecond

// Lock takes an exclusive advisory lock on path, polling until timeout
// expires or ctx is done. The returned function releases it.
func Lock(ctx context.Context, path string, timeout time.Duration) (func(), error) {
	l := flock.New(path)
	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return func() {}, fmt.Errorf("cannot lock %s: %w", path, err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return func() {}, fmt.Errorf("%w: %s", ErrLockTimeout, path)
		}
		select {
		case <-ctx.Done():
			return func() {}, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}
