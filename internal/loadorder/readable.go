package loadorder

// PluginNames returns the filenames of every plugin in the order, in
// current load order.
func (lo *LoadOrder) PluginNames() []string {
	names := make([]string, len(lo.entries))
	for i, e := range lo.entries {
		names[i] = e.filename
	}
	return names
}

// ActivePluginNames returns the filenames of active plugins, in current
// load order.
func (lo *LoadOrder) ActivePluginNames() []string {
	var names []string
	for _, e := range lo.entries {
		if e.active {
			names = append(names, e.filename)
		}
	}
	return names
}

// IndexOf returns the position of name, compared case-insensitively over
// Unicode, and whether it was found.
func (lo *LoadOrder) IndexOf(name string) (int, bool) {
	for i, e := range lo.entries {
		if namesEqual(e.filename, name) {
			return i, true
		}
	}
	return 0, false
}

// IsActive reports whether name is both present and active.
func (lo *LoadOrder) IsActive(name string) bool {
	i, ok := lo.IndexOf(name)
	if !ok {
		return false
	}
	return lo.entries[i].active
}
