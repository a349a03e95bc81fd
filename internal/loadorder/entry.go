package loadorder

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/mod-troubleshooter/loadorder/internal/header"
)

// HeaderReader is the header-parsing collaborator a LoadOrder consults when
// constructing a plugin entry. It reports only the facts the CORE needs:
// the master and light-master flags and the declared master list.
// internal/header.Parser satisfies this interface; tests may substitute a
// fake.
type HeaderReader interface {
	ParseFile(ctx context.Context, path string) (*header.Header, error)
}

// Entry is a value object wrapping one plugin file: its canonical filename,
// cached header facts, active flag, and the modification time and size
// observed the last time it was constructed or reloaded.
type Entry struct {
	filename      string
	isMaster      bool
	isLightMaster bool
	isMasterFile  bool
	masters       []string
	active        bool
	modTime       time.Time
	size          int64
}

// Filename returns the entry's canonical on-disk filename.
func (e *Entry) Filename() string { return e.filename }

// IsMaster reports the header's master flag.
func (e *Entry) IsMaster() bool { return e.isMaster }

// IsLightMaster reports the header's light-master override flag.
func (e *Entry) IsLightMaster() bool { return e.isLightMaster }

// Masters returns the plugin's declared master filenames, in header order.
func (e *Entry) Masters() []string {
	out := make([]string, len(e.masters))
	copy(out, e.masters)
	return out
}

// Active reports whether the entry is currently in the active set.
func (e *Entry) Active() bool { return e.active }

// newEntry constructs an Entry for filename by statting and parsing it
// through reader. supportsLightMasters determines whether the light-master
// flag and .esl extension contribute to the master/non-master partition
// per the OR-of-flags rule: is_master_flag OR (light_masters_supported AND
// (is_light_master_flag OR extension == ".esl")).
func newEntry(ctx context.Context, reader HeaderReader, pluginsDir, filename string, supportsLightMasters, active bool) (*Entry, error) {
	path := filepath.Join(pluginsDir, filename)

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	h, err := reader.ParseFile(ctx, path)
	if err != nil {
		return nil, err
	}

	e := &Entry{
		filename:      filename,
		isMaster:      h.IsMaster,
		isLightMaster: h.IsLightMaster,
		masters:       append([]string(nil), h.Masters...),
		active:        active,
		modTime:       info.ModTime(),
		size:          info.Size(),
	}
	e.isMasterFile = e.isMaster || (supportsLightMasters && (e.isLightMaster || header.HasESLExtension(filename)))

	return e, nil
}

// applyHeader refreshes an entry's cached header facts and stat info after
// reload_changed_plugins detects drift.
func (e *Entry) applyHeader(h *header.Header, supportsLightMasters bool, modTime time.Time, size int64) {
	e.isMaster = h.IsMaster
	e.isLightMaster = h.IsLightMaster
	e.masters = append([]string(nil), h.Masters...)
	e.isMasterFile = e.isMaster || (supportsLightMasters && (e.isLightMaster || header.HasESLExtension(e.filename)))
	e.modTime = modTime
	e.size = size
}
