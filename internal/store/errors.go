package store

import (
	"errors"
	"fmt"
)

// Error classes reported by Classify.
const (
	ErrTypeLock      = "lock"
	ErrTypeIO        = "io"
	ErrTypeMigration = "migration"
	ErrTypeQuery     = "query"
	ErrTypeWrite     = "write"
	ErrTypeUnknown   = "unknown"
)

// LockError reports a failure to acquire or release the exclusive file lock.
type LockError struct {
	Path string
	Err  error
}

func (e *LockError) Error() string { return fmt.Sprintf("lock %s: %v", e.Path, e.Err) }
func (e *LockError) Unwrap() error { return e.Err }

// IOError reports a failure to create or open the backing file or its directory.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("open %s: %v", e.Path, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }

// MigrationError reports a failed schema migration. ID is -1 when the
// tracking table itself could not be read or created.
type MigrationError struct {
	ID   int64
	Name string
	Err  error
}

func (e *MigrationError) Error() string {
	if e.ID < 0 {
		return fmt.Sprintf("migration table: %v", e.Err)
	}
	return fmt.Sprintf("migration %d (%s): %v", e.ID, e.Name, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// QueryError reports a failed statement against freq_path. Write is true for
// save, update and delete.
type QueryError struct {
	Op    string
	Write bool
	Err   error
}

func (e *QueryError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *QueryError) Unwrap() error { return e.Err }

// Classify returns a short label for err, suitable for logs and metric labels.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var lockErr *LockError
	var ioErr *IOError
	var migErr *MigrationError
	var qErr *QueryError
	switch {
	case errors.As(err, &lockErr):
		return ErrTypeLock
	case errors.As(err, &ioErr):
		return ErrTypeIO
	case errors.As(err, &migErr):
		return ErrTypeMigration
	case errors.As(err, &qErr):
		if qErr.Write {
			return ErrTypeWrite
		}
		return ErrTypeQuery
	}
	return ErrTypeUnknown
}
