package store

import (
	"sync"

	"github.com/gofrs/flock"
)

// fileLock is an exclusive advisory lock on the backing database file.
// It serializes whole sessions across processes; release runs at most once.
type fileLock struct {
	fl   *flock.Flock
	once sync.Once
	err  error
}

// acquireLock blocks until the exclusive lock on path is held.
func acquireLock(path string) (*fileLock, error) {
	fl := flock.New(path)
	if err := fl.Lock(); err != nil {
		return nil, &LockError{Path: path, Err: err}
	}
	return &fileLock{fl: fl}, nil
}

func (l *fileLock) release() error {
	l.once.Do(func() {
		if err := l.fl.Unlock(); err != nil {
			l.err = &LockError{Path: l.fl.Path(), Err: err}
		}
	})
	return l.err
}
