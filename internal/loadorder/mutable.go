package loadorder

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/mod-troubleshooter/loadorder/internal/fsio"
	"github.com/mod-troubleshooter/loadorder/internal/header"
)

// insert splices e into lo.entries at its strategy-determined position and
// returns the final index.
func (lo *LoadOrder) insert(e *Entry) int {
	pos := lo.strategy.insertPosition(lo, e)
	if pos >= len(lo.entries) {
		lo.entries = append(lo.entries, e)
		return len(lo.entries) - 1
	}
	lo.entries = append(lo.entries, nil)
	copy(lo.entries[pos+1:], lo.entries[pos:])
	lo.entries[pos] = e
	return pos
}

// insertPositionByMasters computes the earliest index after every
// implicitly-active plugin already in the list and at or after all of e's
// declared masters that still keeps the list partitioned by master
// status, for the strategies (textfile, asterisk) whose insert position
// depends on declared masters rather than purely on the master/non-master
// split.
func insertPositionByMasters(lo *LoadOrder, e *Entry) int {
	min := 0
	for i, existing := range lo.entries {
		if lo.settings.IsImplicitlyActive(existing.filename) && i+1 > min {
			min = i + 1
		}
	}
	for _, master := range e.masters {
		if i, ok := lo.IndexOf(master); ok && i+1 > min {
			min = i + 1
		}
	}

	if e.isMasterFile {
		return min
	}

	nonMasterPos := firstNonMasterPosition(lo.entries)
	if min > nonMasterPos {
		return min
	}
	return nonMasterPos
}

// addMissingPlugins walks the plugins directory and inserts an entry for
// every recognised plugin file not already present and not implicitly
// active. Files that fail to parse are silently skipped, matching "valid
// as a plugin" in the mutation's precondition.
func (lo *LoadOrder) addMissingPlugins(ctx context.Context) error {
	names, err := fsio.ListPlugins(lo.settings.PluginsDirectory())
	if err != nil {
		return &Error{Kind: KindIOError, Err: err}
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := lo.IndexOf(name); ok {
			continue
		}
		if lo.settings.IsImplicitlyActive(name) {
			continue
		}
		e, err := newEntry(ctx, lo.reader, lo.settings.PluginsDirectory(), name, lo.settings.SupportsLightMasters(), false)
		if err != nil {
			continue
		}
		lo.insert(e)
	}

	return nil
}

// activateUnvalidated adds name if absent (failing if it is invalid) and
// sets it active. Used by the load paths, where capacity enforcement
// happens afterwards via deactivateExcessPlugins.
func (lo *LoadOrder) activateUnvalidated(ctx context.Context, name string) error {
	i, ok := lo.IndexOf(name)
	if !ok {
		e, err := newEntry(ctx, lo.reader, lo.settings.PluginsDirectory(), name, lo.settings.SupportsLightMasters(), false)
		if err != nil {
			return &Error{Kind: KindInvalidPlugin, Name: name, Err: err}
		}
		i = lo.insert(e)
	}
	lo.entries[i].active = true
	return nil
}

// addImplicitlyActivePlugins activates every implicitly-active plugin that
// exists on disk and is not already active.
func (lo *LoadOrder) addImplicitlyActivePlugins(ctx context.Context) error {
	for _, name := range lo.settings.ImplicitlyActivePlugins() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lo.IsActive(name) {
			continue
		}
		path := filepath.Join(lo.settings.PluginsDirectory(), name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := lo.activateUnvalidated(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// deactivateExcessPlugins walks entries back-to-front deactivating any
// active, non-implicit entry until both capacity limits are
// satisfied. Implicitly-active plugins are never deactivated, even if that
// means the limits remain exceeded.
func (lo *LoadOrder) deactivateExcessPlugins() {
	normal, light := lo.countActive()
	supportsLight := lo.settings.SupportsLightMasters()

	for i := len(lo.entries) - 1; i >= 0 && (normal > MaxActiveNormalPlugins || light > MaxActiveLightMasters); i-- {
		e := lo.entries[i]
		if !e.active || lo.settings.IsImplicitlyActive(e.filename) {
			continue
		}

		if supportsLight && e.isLightMaster {
			if light > MaxActiveLightMasters {
				e.active = false
				light--
			}
		} else {
			if normal > MaxActiveNormalPlugins {
				e.active = false
				normal--
			}
		}
	}
}

// moveOrInsertPluginIfValid repositions name via insertPosition if present,
// inserts it if absent and valid, or succeeds with no change if absent and
// invalid.
func (lo *LoadOrder) moveOrInsertPluginIfValid(ctx context.Context, name string) error {
	if i, ok := lo.IndexOf(name); ok {
		e := lo.entries[i]
		lo.entries = append(lo.entries[:i], lo.entries[i+1:]...)
		lo.insert(e)
		return nil
	}

	e, err := newEntry(ctx, lo.reader, lo.settings.PluginsDirectory(), name, lo.settings.SupportsLightMasters(), false)
	if err != nil {
		return nil
	}
	lo.insert(e)
	return nil
}

// moveOrInsertPluginWithIndex moves name to position (constructing it if
// absent), validating that position would not break the master/non-master
// partition. The move is transactional: on error the list is left exactly
// as it was.
func (lo *LoadOrder) moveOrInsertPluginWithIndex(ctx context.Context, name string, position int) error {
	i, existed := lo.IndexOf(name)
	if existed && i == position {
		return nil
	}

	var e *Entry
	if existed {
		e = lo.entries[i]
	} else {
		var err error
		e, err = newEntry(ctx, lo.reader, lo.settings.PluginsDirectory(), name, lo.settings.SupportsLightMasters(), false)
		if err != nil {
			return &Error{Kind: KindInvalidPlugin, Name: name, Err: err}
		}
	}

	remaining := lo.entries
	adjustedPosition := position
	if existed {
		remaining = make([]*Entry, 0, len(lo.entries)-1)
		remaining = append(remaining, lo.entries[:i]...)
		remaining = append(remaining, lo.entries[i+1:]...)
	}
	if adjustedPosition < 0 {
		adjustedPosition = 0
	}

	if err := validateIndex(remaining, adjustedPosition, e.isMasterFile); err != nil {
		return err
	}

	if adjustedPosition >= len(remaining) {
		lo.entries = append(remaining, e)
		return nil
	}

	lo.entries = append(remaining, nil)
	copy(lo.entries[adjustedPosition+1:], lo.entries[adjustedPosition:])
	lo.entries[adjustedPosition] = e
	return nil
}

// validatePluginNames rejects a caller-supplied name list that contains a
// case-insensitive duplicate or a name that cannot possibly be a plugin.
func validatePluginNames(names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		key := strings.ToLower(n)
		if _, ok := seen[key]; ok {
			return &Error{Kind: KindDuplicatePlugin, Name: n}
		}
		seen[key] = struct{}{}

		if !header.HasPluginExtension(n) {
			return &Error{Kind: KindInvalidPlugin, Name: n}
		}
	}
	return nil
}

// toPlugin resolves name to an Entry, reusing the active flag of an
// existing entry of the same name if one exists, else constructing a fresh
// inactive entry.
func (lo *LoadOrder) toPlugin(ctx context.Context, name string) (*Entry, error) {
	active := false
	if i, ok := lo.IndexOf(name); ok {
		active = lo.entries[i].active
	}

	e, err := newEntry(ctx, lo.reader, lo.settings.PluginsDirectory(), name, lo.settings.SupportsLightMasters(), active)
	if err != nil {
		return nil, &Error{Kind: KindInvalidPlugin, Name: name, Err: err}
	}
	return e, nil
}

// replacePlugins validates names, maps each to an entry (reusing existing
// active state), verifies the resulting order is master-partitioned, swaps
// it in, and restores the required implicitly-active plugins via
// addMissingPlugins and addImplicitlyActivePlugins.
func (lo *LoadOrder) replacePlugins(ctx context.Context, names []string) error {
	if err := validatePluginNames(names); err != nil {
		return err
	}

	newEntries := make([]*Entry, 0, len(names))
	for _, name := range names {
		e, err := lo.toPlugin(ctx, name)
		if err != nil {
			return err
		}
		newEntries = append(newEntries, e)
	}

	if !isPartitionedByMasterFlag(newEntries) {
		return &Error{Kind: KindNonMasterBeforeMaster}
	}

	lo.entries = newEntries

	if err := lo.addMissingPlugins(ctx); err != nil {
		return err
	}
	return lo.addImplicitlyActivePlugins(ctx)
}

// reloadChangedPlugins re-parses any entry whose on-disk mtime or size has
// drifted from its cached values, and drops entries whose file is gone or
// fails to parse.
func (lo *LoadOrder) reloadChangedPlugins(ctx context.Context) error {
	for i := len(lo.entries) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}

		e := lo.entries[i]
		path := filepath.Join(lo.settings.PluginsDirectory(), e.filename)

		info, err := os.Stat(path)
		if err != nil {
			lo.entries = append(lo.entries[:i], lo.entries[i+1:]...)
			continue
		}
		if info.ModTime().Equal(e.modTime) && info.Size() == e.size {
			continue
		}

		h, err := lo.reader.ParseFile(ctx, path)
		if err != nil {
			lo.entries = append(lo.entries[:i], lo.entries[i+1:]...)
			continue
		}
		e.applyHeader(h, lo.settings.SupportsLightMasters(), info.ModTime(), info.Size())
	}
	return nil
}

// deactivateAll clears the active flag on every entry.
func (lo *LoadOrder) deactivateAll() {
	for _, e := range lo.entries {
		e.active = false
	}
}
