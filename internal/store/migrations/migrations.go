// Package migrations holds the SQL scripts that build the freqdirs schema.
//
// Scripts are named <id>_<description>.sql and are embedded into the binary,
// so the applied schema never depends on files present at runtime.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Migration is a single versioned schema script.
type Migration struct {
	ID   uint32
	Name string
	SQL  string
}

var registry = mustLoad(files)

// All returns the embedded migrations in ascending id order.
// The returned slice is a copy; callers may modify it freely.
func All() []Migration {
	out := make([]Migration, len(registry))
	copy(out, registry)
	return out
}

// Latest returns the highest embedded migration id, or -1 if there are none.
func Latest() int64 {
	if len(registry) == 0 {
		return -1
	}
	return int64(registry[len(registry)-1].ID)
}

// Load reads every .sql file at the root of fsys and returns them sorted by id.
// A file whose name does not start with an unsigned integer followed by '_',
// or two files sharing an id, is an error.
func Load(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var out []Migration
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		id, err := ParseID(entry.Name())
		if err != nil {
			return nil, err
		}
		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		out = append(out, Migration{ID: id, Name: entry.Name(), SQL: string(content)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	for i := 1; i < len(out); i++ {
		if out[i].ID == out[i-1].ID {
			return nil, fmt.Errorf("duplicate migration id %d: %s and %s", out[i].ID, out[i-1].Name, out[i].Name)
		}
	}
	return out, nil
}

// ParseID extracts the numeric id from a script name such as "3_add_index.sql".
func ParseID(name string) (uint32, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("migration %q: name must be <id>_<description>.sql", name)
	}
	id, err := strconv.ParseUint(prefix, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("migration %q: invalid id %q: %w", name, prefix, err)
	}
	return uint32(id), nil
}

func mustLoad(fsys fs.FS) []Migration {
	m, err := Load(fsys)
	if err != nil {
		panic(err)
	}
	return m
}
