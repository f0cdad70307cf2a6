package bm25

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/jmagar/pulse-sub007/internal/apperr"
)

// fileLock wraps an inter-process advisory lock sitting alongside the
// index file. Readers take a shared lock, writers an exclusive one;
// both retry under a deadline rather than blocking forever.
type fileLock struct {
	flock *flock.Flock
}

// lockDeadline is the default time budget for acquiring either lock
// flavor before the caller receives a LockTimeout error.
const lockDeadline = 30 * time.Second

// lockRetryInterval is how often acquisition is retried within the
// deadline.
const lockRetryInterval = 100 * time.Millisecond

func newFileLock(indexPath string) (*fileLock, error) {
	dir := filepath.Dir(indexPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create bm25 index directory", err)
	}
	lockPath := indexPath + ".lock"
	return &fileLock{flock: flock.New(lockPath)}, nil
}

// lockShared acquires a shared (read) lock within lockDeadline, returning
// a release function. On timeout it returns a LockTimeout error.
func (l *fileLock) lockShared(ctx context.Context) (release func(), err error) {
	ctx, cancel := context.WithTimeout(ctx, lockDeadline)
	defer cancel()
	ok, err := l.flock.TryRLockContext(ctx, lockRetryInterval)
	if err != nil || !ok {
		return nil, apperr.New(apperr.KindLockTimeout, "timed out acquiring bm25 shared lock")
	}
	return func() { _ = l.flock.Unlock() }, nil
}

// lockExclusive acquires an exclusive (write) lock within lockDeadline.
func (l *fileLock) lockExclusive(ctx context.Context) (release func(), err error) {
	ctx, cancel := context.WithTimeout(ctx, lockDeadline)
	defer cancel()
	ok, err := l.flock.TryLockContext(ctx, lockRetryInterval)
	if err != nil || !ok {
		return nil, apperr.New(apperr.KindLockTimeout, "timed out acquiring bm25 exclusive lock")
	}
	return func() { _ = l.flock.Unlock() }, nil
}
