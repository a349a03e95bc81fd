package loadorder

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// Load reads the persisted order and active set from disk via the
// configured strategy, replacing the in-memory state. Load is idempotent;
// calling it again discards any in-memory mutations made since the last
// Load.
func (lo *LoadOrder) Load(ctx context.Context) error {
	return lo.strategy.load(ctx, lo)
}

// Save writes the in-memory order and active set to disk via the
// configured strategy.
func (lo *LoadOrder) Save(ctx context.Context) error {
	return lo.strategy.save(ctx, lo)
}

// IsSelfConsistent reports whether the on-disk sources this strategy reads
// agree on the relative order of the plugins they both mention.
func (lo *LoadOrder) IsSelfConsistent(ctx context.Context) (bool, error) {
	return lo.strategy.isSelfConsistent(ctx, lo)
}

// SetLoadOrder replaces the entire order with names, validating for
// duplicates and the master/non-master partition, and restoring the
// required implicitly-active plugins, as replacePlugins does.
func (lo *LoadOrder) SetLoadOrder(ctx context.Context, names []string) error {
	return lo.replacePlugins(ctx, names)
}

// SetPluginIndex moves name to position, constructing it if necessary.
func (lo *LoadOrder) SetPluginIndex(ctx context.Context, name string, position int) error {
	return lo.moveOrInsertPluginWithIndex(ctx, name, position)
}

// ReloadChangedPlugins re-parses entries whose backing file has changed
// since it was last observed, dropping entries whose file is gone.
func (lo *LoadOrder) ReloadChangedPlugins(ctx context.Context) error {
	return lo.reloadChangedPlugins(ctx)
}

// Activate finds or adds name and marks it active, enforcing the active
// plugin capacity limits. Activating an already-active plugin succeeds with
// no change.
func (lo *LoadOrder) Activate(ctx context.Context, name string) error {
	i, ok := lo.IndexOf(name)
	var e *Entry
	if !ok {
		var err error
		e, err = newEntry(ctx, lo.reader, lo.settings.PluginsDirectory(), name, lo.settings.SupportsLightMasters(), false)
		if err != nil {
			return &Error{Kind: KindInvalidPlugin, Name: name, Err: err}
		}
		i = lo.insert(e)
		e = lo.entries[i]
	} else {
		e = lo.entries[i]
	}

	if e.active {
		return nil
	}

	normal, light := lo.countActive()
	if lo.settings.SupportsLightMasters() && e.isLightMaster {
		if light >= MaxActiveLightMasters {
			return &Error{Kind: KindTooManyActivePlugins, Name: name}
		}
	} else {
		if normal >= MaxActiveNormalPlugins {
			return &Error{Kind: KindTooManyActivePlugins, Name: name}
		}
	}

	e.active = true
	return nil
}

// Deactivate clears name's active flag. It fails if name is implicitly
// active or absent from the order.
func (lo *LoadOrder) Deactivate(name string) error {
	if lo.settings.IsImplicitlyActive(name) {
		return &Error{Kind: KindImplicitlyActivePlugin, Name: name}
	}
	i, ok := lo.IndexOf(name)
	if !ok {
		return &Error{Kind: KindPluginNotFound, Name: name}
	}
	lo.entries[i].active = false
	return nil
}

type lookupResult struct {
	existingIndex int
	entry         *Entry
	err           error
}

// SetActivePlugins replaces the active set with exactly names: existing
// entries matching names are reactivated, new ones are constructed and
// appended, and everything else is deactivated. Capacity and implicit
// presence are validated before anything is mutated, so a failure
// leaves the order unchanged.
//
// Per-name lookup and construction run concurrently since each is pure with
// respect to the current (unmodified) state; results are merged in input
// order before any mutation, so the outcome is deterministic regardless of
// goroutine scheduling.
func (lo *LoadOrder) SetActivePlugins(ctx context.Context, names []string) error {
	if err := validatePluginNames(names); err != nil {
		return err
	}

	results := make([]lookupResult, len(names))
	var wg sync.WaitGroup

	for i, name := range names {
		if idx, ok := lo.IndexOf(name); ok {
			results[i] = lookupResult{existingIndex: idx}
			continue
		}

		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			e, err := newEntry(ctx, lo.reader, lo.settings.PluginsDirectory(), name, lo.settings.SupportsLightMasters(), false)
			results[i] = lookupResult{existingIndex: -1, entry: e, err: err}
		}(i, name)
	}
	wg.Wait()

	for i, r := range results {
		if r.err != nil {
			return &Error{Kind: KindInvalidPlugin, Name: names[i], Err: r.err}
		}
	}

	var normal, light int
	supportsLight := lo.settings.SupportsLightMasters()
	for _, r := range results {
		var isLight bool
		if r.existingIndex >= 0 {
			isLight = lo.entries[r.existingIndex].isLightMaster
		} else {
			isLight = r.entry.isLightMaster
		}
		if supportsLight && isLight {
			light++
		} else {
			normal++
		}
	}
	if normal > MaxActiveNormalPlugins || light > MaxActiveLightMasters {
		return &Error{Kind: KindTooManyActivePlugins}
	}

	for _, implicit := range lo.settings.ImplicitlyActivePlugins() {
		path := filepath.Join(lo.settings.PluginsDirectory(), implicit)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		found := false
		for _, n := range names {
			if namesEqual(n, implicit) {
				found = true
				break
			}
		}
		if !found {
			return &Error{Kind: KindImplicitlyActivePlugin, Name: implicit}
		}
	}

	lo.deactivateAll()
	for _, r := range results {
		if r.existingIndex >= 0 {
			lo.entries[r.existingIndex].active = true
		} else {
			r.entry.active = true
			lo.entries = append(lo.entries, r.entry)
		}
	}

	return nil
}
