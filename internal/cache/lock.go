package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kamusis/nlpm/internal/fsutil"
)

// acquireLock takes the per-cache-root lock so two processes never write the
// same cache directory at once.
func acquireLock(ctx context.Context, lockPath string, timeout time.Duration) (func(), error) {
	unlock, err := fsutil.Lock(ctx, lockPath, timeout)
	switch {
	case err == nil:
		return unlock, nil
	case errors.Is(err, fsutil.ErrLockTimeout):
		return unlock, fmt.Errorf("%w (lock: %s)", ErrLocked, lockPath)
	case ctx.Err() != nil:
		return unlock, err
	default:
		return unlock, wrapStorage(err)
	}
}
