package header

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Cache provides SQLite-backed caching of parsed plugin headers, keyed by
// path, modification time and size so a reload after no on-disk change never
// re-parses the file (spec: "cheap in the common case (no change)").
type Cache struct {
	db *sql.DB
}

// NewCache opens (creating if necessary) a header cache at dbPath.
func NewCache(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create header cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open header cache database: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS plugin_headers (
			path       TEXT NOT NULL,
			mod_time   INTEGER NOT NULL,
			size       INTEGER NOT NULL,
			data       TEXT NOT NULL,
			PRIMARY KEY (path, mod_time, size)
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize header cache schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Get returns the cached header for path if its recorded mtime and size
// still match, reporting a cache hit via the second return value.
func (c *Cache) Get(ctx context.Context, path string, modTime time.Time, size int64) (*Header, bool) {
	var data string
	err := c.db.QueryRowContext(ctx, `
		SELECT data FROM plugin_headers WHERE path = ? AND mod_time = ? AND size = ?
	`, path, modTime.UnixNano(), size).Scan(&data)
	if err != nil {
		return nil, false
	}

	var h Header
	if err := json.Unmarshal([]byte(data), &h); err != nil {
		return nil, false
	}
	return &h, true
}

// Set stores the parsed header for path under its current mtime and size,
// evicting any stale entries recorded for that path.
func (c *Cache) Set(ctx context.Context, path string, modTime time.Time, size int64, h *Header) {
	data, err := json.Marshal(h)
	if err != nil {
		return
	}

	_, _ = c.db.ExecContext(ctx, `DELETE FROM plugin_headers WHERE path = ?`, path)
	_, _ = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO plugin_headers (path, mod_time, size, data)
		VALUES (?, ?, ?, ?)
	`, path, modTime.UnixNano(), size, string(data))
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
