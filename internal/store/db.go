package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lazypower/freqdirs/internal/store/migrations"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// DBFileName is the name of the database file inside the state directory.
const DBFileName = "freqdirs.db"

// Session is an exclusive, migrated handle on one state directory's database.
// The file lock is held from Open until Close.
type Session struct {
	db   *sql.DB
	lock *fileLock
	path string
	now  Clock
	log  zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

type options struct {
	now      Clock
	log      zerolog.Logger
	registry []migrations.Migration
}

// Option configures Open.
type Option func(*options)

// WithClock overrides the wall clock used for timestamps.
func WithClock(c Clock) Option {
	return func(o *options) { o.now = c }
}

// WithLogger sets the logger used for migrations and session lifecycle.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMigrations replaces the embedded migration set.
func WithMigrations(m []migrations.Migration) Option {
	return func(o *options) { o.registry = m }
}

// DBPath returns the database file path for a state directory.
func DBPath(stateDir string) string {
	return filepath.Join(stateDir, DBFileName)
}

// Open creates the state directory and database file if needed, blocks until
// it holds the exclusive lock on the file, then opens and migrates the database.
// On any failure everything acquired so far is released before returning.
func Open(ctx context.Context, stateDir string, opts ...Option) (*Session, error) {
	o := options{
		now:      time.Now,
		log:      zerolog.Nop(),
		registry: migrations.All(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, &IOError{Path: stateDir, Err: err}
	}

	path := DBPath(stateDir)
	if err := createIfMissing(path); err != nil {
		return nil, &IOError{Path: path, Err: err}
	}

	lock, err := acquireLock(path)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		lock.release()
		return nil, &IOError{Path: path, Err: err}
	}
	// One handle per session; statements never run concurrently.
	sqlDB.SetMaxOpenConns(1)

	s := &Session{
		db:   sqlDB,
		lock: lock,
		path: path,
		now:  o.now,
		log:  o.log.With().Str("session", uuid.NewString()).Logger(),
	}

	if err := s.configurePragmas(ctx); err != nil {
		s.Close()
		return nil, err
	}

	prev, err := Apply(ctx, s.db, o.registry, s.now, s.log)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.log.Debug().Str("path", path).Int64("previous_version", prev).Msg("session opened")
	return s, nil
}

// createIfMissing creates an empty database file. An existing file is left
// untouched: closing a descriptor on it would drop the POSIX locks SQLite
// holds on it elsewhere in this process.
func createIfMissing(path string) error {
	_, err := os.Stat(path)
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	return f.Close()
}

func (s *Session) configurePragmas(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return &IOError{Path: s.path, Err: fmt.Errorf("pragma %q: %w", p, err)}
		}
	}
	return nil
}

// Path returns the database file path.
func (s *Session) Path() string { return s.path }

// Close closes the database handle and then releases the file lock.
// It is safe to call more than once; only the first call does any work.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if err := s.db.Close(); err != nil {
			errs = append(errs, &IOError{Path: s.path, Err: err})
		}
		if err := s.lock.release(); err != nil {
			errs = append(errs, err)
		}
		s.closeErr = errors.Join(errs...)
		s.log.Debug().Err(s.closeErr).Msg("session closed")
	})
	return s.closeErr
}
