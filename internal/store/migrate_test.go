package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/lazypower/freqdirs/internal/store/migrations"
	"github.com/rs/zerolog"
)

var orderedRegistry = []migrations.Migration{
	{ID: 1, Name: "1_create_log.sql", SQL: "CREATE TABLE order_log (id INTEGER); INSERT INTO order_log VALUES (1);"},
	{ID: 2, Name: "2_second.sql", SQL: "INSERT INTO order_log VALUES (2);"},
	{ID: 3, Name: "3_third.sql", SQL: "INSERT INTO order_log VALUES (3);"},
}

func openRawDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "raw.db"))
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func apply(t *testing.T, db *sql.DB, registry []migrations.Migration) int64 {
	t.Helper()
	prev, err := Apply(context.Background(), db, registry, newFakeClock().Now, zerolog.Nop())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return prev
}

func queryInts(t *testing.T, db *sql.DB, query string) []int64 {
	t.Helper()
	rows, err := db.Query(query)
	if err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			t.Fatalf("scan: %v", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	return out
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n)
	if err != nil {
		t.Fatalf("check table %s: %v", name, err)
	}
	return n > 0
}

func TestApplyFreshDatabase(t *testing.T) {
	db := openRawDB(t)

	if prev := apply(t, db, orderedRegistry); prev != -1 {
		t.Errorf("previous watermark = %d, want -1", prev)
	}

	if got := queryInts(t, db, "SELECT id FROM migration ORDER BY id"); !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Errorf("applied ids = %v, want [1 2 3]", got)
	}
	if got := queryInts(t, db, "SELECT id FROM order_log ORDER BY rowid"); !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Errorf("execution order = %v, want [1 2 3]", got)
	}
}

func TestApplyRecordsNameAndTimestamp(t *testing.T) {
	db := openRawDB(t)
	apply(t, db, orderedRegistry[:1])

	var name string
	var ts int64
	if err := db.QueryRow("SELECT script_name, timestamp FROM migration WHERE id = 1").Scan(&name, &ts); err != nil {
		t.Fatalf("read migration row: %v", err)
	}
	if name != "1_create_log.sql" {
		t.Errorf("script_name = %q, want 1_create_log.sql", name)
	}
	if want := newFakeClock().Now().UnixMilli(); ts != want {
		t.Errorf("timestamp = %d, want %d", ts, want)
	}
}

func TestApplyFromWatermark(t *testing.T) {
	db := openRawDB(t)

	apply(t, db, orderedRegistry[:1])

	if prev := apply(t, db, orderedRegistry); prev != 1 {
		t.Errorf("previous watermark = %d, want 1", prev)
	}
	if got := queryInts(t, db, "SELECT id FROM order_log ORDER BY rowid"); !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Errorf("execution order = %v, want [1 2 3]", got)
	}
	if got := queryInts(t, db, "SELECT id FROM migration ORDER BY id"); !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Errorf("applied ids = %v, want [1 2 3]", got)
	}
}

func TestApplyIdempotent(t *testing.T) {
	db := openRawDB(t)

	apply(t, db, orderedRegistry)
	if prev := apply(t, db, orderedRegistry); prev != 3 {
		t.Errorf("previous watermark = %d, want 3", prev)
	}

	if got := queryInts(t, db, "SELECT id FROM order_log ORDER BY rowid"); !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Errorf("order_log after second apply = %v, want [1 2 3]", got)
	}
	if got := queryInts(t, db, "SELECT COUNT(*) FROM migration"); got[0] != 3 {
		t.Errorf("migration rows = %d, want 3", got[0])
	}
}

func TestApplyEmptyTrackingTable(t *testing.T) {
	db := openRawDB(t)
	if _, err := db.Exec("CREATE TABLE migration (id INTEGER PRIMARY KEY, script_name TEXT NOT NULL, timestamp INTEGER NOT NULL)"); err != nil {
		t.Fatalf("create migration table: %v", err)
	}

	if prev := apply(t, db, orderedRegistry); prev != -1 {
		t.Errorf("previous watermark = %d, want -1", prev)
	}
	if got := queryInts(t, db, "SELECT id FROM migration ORDER BY id"); !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Errorf("applied ids = %v, want [1 2 3]", got)
	}
}

func TestApplyEmptyRegistry(t *testing.T) {
	db := openRawDB(t)

	if prev := apply(t, db, nil); prev != -1 {
		t.Errorf("previous watermark = %d, want -1", prev)
	}
	if !tableExists(t, db, "migration") {
		t.Error("migration table not created")
	}
}

func TestApplyFailureRollsBackThatMigration(t *testing.T) {
	db := openRawDB(t)

	registry := []migrations.Migration{
		orderedRegistry[0],
		{ID: 2, Name: "2_half_broken.sql", SQL: "CREATE TABLE partial (id INTEGER); INSERT INTO order_log VALUES (2); CREAT TABLE oops (id INTEGER);"},
		orderedRegistry[2],
	}

	_, err := Apply(context.Background(), db, registry, time.Now, zerolog.Nop())
	var migErr *MigrationError
	if !errors.As(err, &migErr) {
		t.Fatalf("Apply error = %v, want *MigrationError", err)
	}
	if migErr.ID != 2 || migErr.Name != "2_half_broken.sql" {
		t.Errorf("MigrationError = %d %q, want 2 2_half_broken.sql", migErr.ID, migErr.Name)
	}
	if Classify(err) != ErrTypeMigration {
		t.Errorf("Classify = %q, want %q", Classify(err), ErrTypeMigration)
	}

	if tableExists(t, db, "partial") {
		t.Error("table from failed migration was committed")
	}
	if got := queryInts(t, db, "SELECT id FROM order_log ORDER BY rowid"); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("order_log = %v, want [1]", got)
	}
	if got := queryInts(t, db, "SELECT id FROM migration ORDER BY id"); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("applied ids = %v, want [1]; migration 3 must not run after 2 fails", got)
	}

	// Fixing the script lets the sequence resume from the watermark.
	registry[1] = orderedRegistry[1]
	if prev := apply(t, db, registry); prev != 1 {
		t.Errorf("previous watermark = %d, want 1", prev)
	}
	if got := queryInts(t, db, "SELECT id FROM order_log ORDER BY rowid"); !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Errorf("order_log after fix = %v, want [1 2 3]", got)
	}
}

func TestApplyUnreadableTrackingTable(t *testing.T) {
	db := openRawDB(t)
	if _, err := db.Exec("CREATE TABLE migration (name TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	prev, err := Apply(context.Background(), db, orderedRegistry, time.Now, zerolog.Nop())
	var migErr *MigrationError
	if !errors.As(err, &migErr) {
		t.Fatalf("Apply error = %v, want *MigrationError", err)
	}
	if migErr.ID != -1 {
		t.Errorf("MigrationError.ID = %d, want -1", migErr.ID)
	}
	if prev != -1 {
		t.Errorf("previous watermark = %d, want -1", prev)
	}
	if Classify(err) != ErrTypeMigration {
		t.Errorf("Classify = %q, want %q", Classify(err), ErrTypeMigration)
	}
	if tableExists(t, db, "order_log") {
		t.Error("migrations ran despite an unreadable tracking table")
	}
}

func TestEmbeddedMigrationsApply(t *testing.T) {
	db := openRawDB(t)
	apply(t, db, migrations.All())

	if !tableExists(t, db, "freq_path") {
		t.Fatal("freq_path not created by embedded migrations")
	}
	got := queryInts(t, db, "SELECT id FROM migration ORDER BY id")
	if len(got) == 0 || got[len(got)-1] != migrations.Latest() {
		t.Errorf("applied ids = %v, want ending in %d", got, migrations.Latest())
	}
}
