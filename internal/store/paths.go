package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Scoring calibration. The write-side window and the read-side recency unit
// are separate constants; seen_count is only comparable across rows when both
// sides use these values.
const (
	// ForgetThreshold is how long a path may go unvisited before it drops out
	// of queries and its accumulator restarts at 1.
	ForgetThreshold = 7 * 24 * time.Hour

	// incrementWindow controls how quickly repeated visits earn a full +1:
	// a visit after gap g adds 1 - 1/(1 + g/incrementWindow).
	incrementWindow = 30 * time.Minute

	// recencyUnit scales the staleness penalty, measured from the freshest row.
	recencyUnit = 30 * time.Second
)

// bumpExpr is the seen_count update shared by Save and Update. %[1]s is the
// SQL expression for the visit time; the two placeholders bind the forget
// threshold and the increment window, both in milliseconds.
const bumpExpr = `CASE
    WHEN %[1]s - last_seen > ? THEN 1
    ELSE seen_count + 1.0 - (1.0 / (1.0 + max(%[1]s - last_seen, 0) / ?))
  END`

var (
	saveSQL = fmt.Sprintf(`
INSERT INTO freq_path (canonical_path, last_seen, seen_count)
VALUES (?, ?, 1)
ON CONFLICT (canonical_path) DO UPDATE SET
  last_seen = max(last_seen, excluded.last_seen),
  seen_count = %s`, fmt.Sprintf(bumpExpr, "excluded.last_seen"))

	updateSQL = fmt.Sprintf(`
UPDATE freq_path SET
  last_seen = max(last_seen, ?),
  seen_count = %s
WHERE canonical_path = ?`, fmt.Sprintf(bumpExpr, "?"))
)

// Save records a visit to path, creating its row if needed.
func (s *Session) Save(ctx context.Context, path string) error {
	now := epochMillis(s.now())
	_, err := s.db.ExecContext(ctx, saveSQL,
		path, now,
		ForgetThreshold.Milliseconds(), float64(incrementWindow.Milliseconds()),
	)
	if err != nil {
		return &QueryError{Op: "save path", Write: true, Err: err}
	}
	return nil
}

// Update records a visit to path only if it was previously saved.
// Unknown paths are ignored.
func (s *Session) Update(ctx context.Context, path string) error {
	now := epochMillis(s.now())
	_, err := s.db.ExecContext(ctx, updateSQL,
		now,
		now, ForgetThreshold.Milliseconds(),
		now, float64(incrementWindow.Milliseconds()),
		path,
	)
	if err != nil {
		return &QueryError{Op: "update path", Write: true, Err: err}
	}
	return nil
}

// Delete removes path from the store. Deleting an unknown path is not an error.
func (s *Session) Delete(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM freq_path WHERE canonical_path = ?", path); err != nil {
		return &QueryError{Op: "delete path", Write: true, Err: err}
	}
	return nil
}

// QueryOpts filters and biases a ranked query. Empty fields are unset.
type QueryOpts struct {
	// Root restricts results to paths starting with this literal string.
	Root string
	// WorkDir ranks paths starting with this string above all others.
	WorkDir string
}

// Ranked is a query result with the values it was ordered by.
type Ranked struct {
	Path      string
	LastSeen  int64
	SeenCount float64
	Score     float64
	InWorkDir bool
}

// Rank returns the live paths matching opts, best first.
//
// A path is live when it was seen less than ForgetThreshold ago. Paths under
// opts.WorkDir come first; within each group the order is by
// sqrt(seen_count) - sqrt((freshest last_seen - last_seen) / recencyUnit).
func (s *Session) Rank(ctx context.Context, opts QueryOpts) ([]Ranked, error) {
	now := epochMillis(s.now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT canonical_path, last_seen, seen_count,
		       (SELECT MAX(last_seen) FROM freq_path) AS most_recent
		FROM freq_path
		WHERE ? - last_seen < ?
		  AND substr(canonical_path, 1, length(?)) = ?
	`, now, ForgetThreshold.Milliseconds(), opts.Root, opts.Root)
	if err != nil {
		return nil, &QueryError{Op: "query paths", Err: err}
	}
	defer rows.Close()

	unit := float64(recencyUnit.Milliseconds())
	var out []Ranked
	for rows.Next() {
		var r Ranked
		var mostRecent int64
		if err := rows.Scan(&r.Path, &r.LastSeen, &r.SeenCount, &mostRecent); err != nil {
			return nil, &QueryError{Op: "scan path", Err: err}
		}
		r.Score = math.Sqrt(r.SeenCount) - math.Sqrt(float64(mostRecent-r.LastSeen)/unit)
		r.InWorkDir = opts.WorkDir != "" && strings.HasPrefix(r.Path, opts.WorkDir)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Op: "query paths", Err: err}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.InWorkDir != b.InWorkDir {
			return a.InWorkDir
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Path < b.Path
	})
	return out, nil
}

// Query returns the ranked paths matching opts, best first.
func (s *Session) Query(ctx context.Context, opts QueryOpts) ([]string, error) {
	ranked, err := s.Rank(ctx, opts)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(ranked))
	for i, r := range ranked {
		paths[i] = r.Path
	}
	return paths, nil
}

// List returns every live path, ranked, with workDir as the bonus prefix.
func (s *Session) List(ctx context.Context, workDir string) ([]string, error) {
	return s.Query(ctx, QueryOpts{WorkDir: workDir})
}

// Stats summarizes the store contents.
type Stats struct {
	Paths         int64
	LivePaths     int64
	LastSeen      int64
	SchemaVersion int64
}

// Stats returns row counts, the most recent visit time and the schema version.
func (s *Session) Stats(ctx context.Context) (Stats, error) {
	now := epochMillis(s.now())

	var st Stats
	var lastSeen sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN ? - last_seen < ? THEN 1 ELSE 0 END), 0),
		       MAX(last_seen)
		FROM freq_path
	`, now, ForgetThreshold.Milliseconds()).Scan(&st.Paths, &st.LivePaths, &lastSeen)
	if err != nil {
		return Stats{}, &QueryError{Op: "stats", Err: err}
	}
	st.LastSeen = lastSeen.Int64

	st.SchemaVersion, err = s.SchemaVersion(ctx)
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}
