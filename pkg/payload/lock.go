package payload

import (
	"context"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

const lockRetryDelay = 100 * time.Millisecond

// lock takes a shared lock on the loader's lock file. Producers rewriting the
// payload hold the exclusive lock on the same file.
func (l *Loader) lock(ctx context.Context) (func(), error) {
	fileLock := flock.New(l.lockPath)
	lockCtx, cancel := context.WithTimeout(ctx, l.lockTimeout)
	defer cancel()

	ok, err := fileLock.TryRLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return nil, errors.Wrapf(err, "acquire shared lock %q for payload", l.lockPath)
	}
	if !ok {
		return nil, errors.Errorf("shared lock %q for payload not acquired", l.lockPath)
	}

	return func() {
		if err := fileLock.Unlock(); err != nil {
			l.log.WithError(err).WithField("lock", l.lockPath).Warn("Failed to release payload lock")
		}
	}, nil
}
