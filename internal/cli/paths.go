package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// canonicalPath resolves p to an absolute path with symlinks evaluated.
// When allowMissing is set, a path that does not exist is returned cleaned
// and absolute instead of failing, so stale entries can still be removed.
func canonicalPath(p string, allowMissing bool) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if allowMissing && errors.Is(err, fs.ErrNotExist) {
			return abs, nil
		}
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	return resolved, nil
}

// displayPath returns p relative to workDir when p lies under it, "." for
// workDir itself, and p unchanged otherwise.
func displayPath(workDir, p string) string {
	if workDir == "" {
		return p
	}
	if p == workDir {
		return "."
	}
	prefix := workDir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if rel, ok := strings.CutPrefix(p, prefix); ok {
		return rel
	}
	return p
}
