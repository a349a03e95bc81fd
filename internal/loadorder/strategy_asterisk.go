package loadorder

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/mod-troubleshooter/loadorder/internal/codec"
	"github.com/mod-troubleshooter/loadorder/internal/fsio"
)

// asteriskStrategy persists both order and active set in a single
// plugins.txt, a leading "*" marking a line as active. Implicitly-active
// plugins are never written to the file; they are always loaded first, in
// the hardcoded order settings gives them. Used by Skyrim SE/VR and
// Fallout 4/VR, which also support light masters.
type asteriskStrategy struct{}

func (s *asteriskStrategy) insertPosition(lo *LoadOrder, e *Entry) int {
	return insertPositionByMasters(lo, e)
}

func (s *asteriskStrategy) load(ctx context.Context, lo *LoadOrder) error {
	lo.entries = nil

	for _, name := range lo.settings.ImplicitlyActivePlugins() {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(lo.settings.PluginsDirectory(), name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		e, err := newEntry(ctx, lo.reader, lo.settings.PluginsDirectory(), name, lo.settings.SupportsLightMasters(), true)
		if err != nil {
			continue
		}
		lo.entries = append(lo.entries, e)
	}

	lines, err := readLinesWindows1252(lo.settings.ActivePluginsFile())
	if err != nil {
		return err
	}

	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return err
		}

		active := strings.HasPrefix(line, "*")
		name := strings.TrimPrefix(line, "*")
		if name == "" {
			continue
		}
		// Implicit activeness is always true regardless of file content,
		// per the asterisk strategy's sole source of truth for implicits
		// being settings, not this file.
		if lo.settings.IsImplicitlyActive(name) {
			continue
		}
		if _, ok := lo.IndexOf(name); ok {
			continue
		}

		e, err := newEntry(ctx, lo.reader, lo.settings.PluginsDirectory(), name, lo.settings.SupportsLightMasters(), active)
		if err != nil {
			continue
		}
		lo.entries = append(lo.entries, e)
	}

	if err := lo.addMissingPlugins(ctx); err != nil {
		return err
	}
	if err := lo.addImplicitlyActivePlugins(ctx); err != nil {
		return err
	}

	lo.deactivateExcessPlugins()
	return nil
}

func (s *asteriskStrategy) save(ctx context.Context, lo *LoadOrder) error {
	var buf bytes.Buffer
	for _, e := range lo.entries {
		if lo.settings.IsImplicitlyActive(e.filename) {
			continue
		}

		line := e.filename
		if e.active {
			line = "*" + line
		}

		encoded, err := codec.EncodeWindows1252(line)
		if err != nil {
			return &Error{Kind: KindEncodeError, Name: e.filename, Err: err}
		}
		buf.Write(encoded)
		buf.WriteByte('\n')
	}

	if err := fsio.WriteFileAtomic(lo.settings.ActivePluginsFile(), buf.Bytes(), 0644); err != nil {
		return &Error{Kind: KindIOError, Err: err}
	}
	return nil
}

func (s *asteriskStrategy) isSelfConsistent(ctx context.Context, lo *LoadOrder) (bool, error) {
	return true, nil
}
