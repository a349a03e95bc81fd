// Package fsio provides the filesystem primitives the load-order core
// needs: enumerating plugin files, reading and setting modification times,
// and rewriting a load-order file without ever leaving it half-written.
package fsio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
)

// pluginGlobs restricts ListPlugins to the recognised plugin extensions,
// matched case-insensitively since Windows filesystems are case-preserving
// but case-insensitive and mod authors do not agree on a casing convention.
var pluginGlobs = []string{"*.esp", "*.esm", "*.esl"}

// ListPlugins returns the filenames (not full paths) of every plugin file
// directly inside dir, in no particular order. The caller is responsible
// for sorting or otherwise ordering the result.
func ListPlugins(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("fsio: read plugins directory: %w", err)
	}

	seen := make(map[string]bool, len(entries))
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		for _, pattern := range pluginGlobs {
			ok, err := doublestar.Match(pattern, strings.ToLower(name))
			if err != nil {
				return nil, fmt.Errorf("fsio: match pattern %q: %w", pattern, err)
			}
			if ok && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	return names, nil
}

// Stat reports a plugin file's modification time and size in one call,
// since the header cache and the timestamp strategy both key on the pair.
func Stat(path string) (modTime time.Time, size int64, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("fsio: stat %s: %w", path, err)
	}
	return info.ModTime(), info.Size(), nil
}

// SetModTime sets a plugin file's modification time, the primitive the
// timestamp strategy uses to encode load order on save.
func SetModTime(path string, t time.Time) error {
	if err := os.Chtimes(path, t, t); err != nil {
		return fmt.Errorf("fsio: set modification time of %s: %w", path, err)
	}
	return nil
}

// WriteFileAtomic writes data to path by writing to a uniquely-named
// temporary file in the same directory and renaming it into place, so a
// crash or concurrent reader never observes a truncated load-order file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("fsio: create directory for %s: %w", path, err)
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))

	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("fsio: write temporary file for %s: %w", path, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("fsio: rename temporary file into place for %s: %w", path, err)
	}

	return nil
}
