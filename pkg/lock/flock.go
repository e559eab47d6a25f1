package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// FileLocker implements Locker with flock(2) on files under dir.
type FileLocker struct {
	dir string
}

func NewFileLocker(dir string) *FileLocker {
	return &FileLocker{dir: dir}
}

func (l *FileLocker) Acquire(ctx context.Context, key string) (Lock, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory %s: %w", l.dir, err)
	}

	path := filepath.Join(l.dir, key+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, fmt.Errorf("%s: %w", path, ErrLocked)
		}

		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	return &fileLock{f: f}, nil
}

type fileLock struct {
	f *os.File
}

// Release drops the lock. The lock file itself is left in place; removing it
// would race a concurrent Acquire on the same path.
func (l *fileLock) Release() error {
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		_ = l.f.Close()
		return fmt.Errorf("unlocking %s: %w", l.f.Name(), err)
	}

	return l.f.Close()
}
