package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lazypower/freqdirs/internal/store/migrations"
	"github.com/rs/zerolog"
)

const migrationTable = "migration"

// Apply brings db up to the newest migration in registry and returns the
// watermark found before any script ran (-1 for a fresh database).
//
// registry must be sorted by ascending id, as returned by migrations.All.
// Each pending script runs in its own transaction together with the insert
// that records it, so the watermark only ever reflects committed work.
func Apply(ctx context.Context, db *sql.DB, registry []migrations.Migration, now Clock, log zerolog.Logger) (int64, error) {
	applied, err := watermark(ctx, db)
	if err != nil {
		return -1, &MigrationError{ID: -1, Err: err}
	}

	if len(registry) == 0 || int64(registry[len(registry)-1].ID) <= applied {
		return applied, nil
	}

	for _, m := range registry {
		if int64(m.ID) <= applied {
			continue
		}
		log.Info().Uint32("id", m.ID).Str("script", m.Name).Msg("running migration")
		if err := applyOne(ctx, db, m, now); err != nil {
			return applied, &MigrationError{ID: int64(m.ID), Name: m.Name, Err: err}
		}
	}
	return applied, nil
}

// watermark returns max(id) from the tracking table, creating the table
// when it does not exist yet.
func watermark(ctx context.Context, db *sql.DB) (int64, error) {
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", migrationTable,
	).Scan(&n)
	if err != nil {
		return -1, fmt.Errorf("check %s table: %w", migrationTable, err)
	}

	if n == 0 {
		_, err := db.ExecContext(ctx, `
			CREATE TABLE migration (
				id          INTEGER PRIMARY KEY,
				script_name TEXT NOT NULL,
				timestamp   INTEGER NOT NULL
			)
		`)
		if err != nil {
			return -1, fmt.Errorf("create %s table: %w", migrationTable, err)
		}
		return -1, nil
	}

	var maxID sql.NullInt64
	if err := db.QueryRowContext(ctx, "SELECT MAX(id) FROM migration").Scan(&maxID); err != nil {
		return -1, fmt.Errorf("read watermark: %w", err)
	}
	if !maxID.Valid {
		return -1, nil
	}
	return maxID.Int64, nil
}

func applyOne(ctx context.Context, db *sql.DB, m migrations.Migration, now Clock) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		tx.Rollback()
		return fmt.Errorf("exec: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO migration (id, script_name, timestamp) VALUES (?, ?, ?)",
		m.ID, m.Name, epochMillis(now()),
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SchemaVersion returns the current migration watermark.
func (s *Session) SchemaVersion(ctx context.Context) (int64, error) {
	var v sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(id) FROM migration").Scan(&v); err != nil {
		return -1, &QueryError{Op: "schema version", Err: err}
	}
	if !v.Valid {
		return -1, nil
	}
	return v.Int64, nil
}
