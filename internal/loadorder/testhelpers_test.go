package loadorder

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mod-troubleshooter/loadorder/internal/header"
)

// fakeHeaderReader is the test double for HeaderReader: a canned header per
// filename (case-insensitive), defaulting to a plain non-master plugin for
// any name not explicitly configured.
type fakeHeaderReader struct {
	headers map[string]*header.Header
}

func newFakeHeaderReader() *fakeHeaderReader {
	return &fakeHeaderReader{headers: make(map[string]*header.Header)}
}

func (f *fakeHeaderReader) set(filename string, h *header.Header) {
	f.headers[strings.ToLower(filename)] = h
}

func (f *fakeHeaderReader) ParseFile(ctx context.Context, path string) (*header.Header, error) {
	name := filepath.Base(path)
	if h, ok := f.headers[strings.ToLower(name)]; ok {
		cp := *h
		cp.Filename = name
		return &cp, nil
	}
	return &header.Header{Filename: name}, nil
}

// touchFiles creates empty files named by names inside dir, so os.Stat
// succeeds for them.
func touchFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte{}, 0644); err != nil {
			t.Fatalf("touchFiles: write %s: %v", name, err)
		}
	}
}

// mustEntry constructs an Entry directly, bypassing insertion, for tests
// that want to seed lo.entries with a specific initial order.
func mustEntry(t *testing.T, reader HeaderReader, pluginsDir, filename string, supportsLightMasters, active bool) *Entry {
	t.Helper()
	e, err := newEntry(context.Background(), reader, pluginsDir, filename, supportsLightMasters, active)
	if err != nil {
		t.Fatalf("mustEntry(%s): %v", filename, err)
	}
	return e
}
