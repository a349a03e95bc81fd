// Package loadorder implements the load-order state machine shared by
// every supported game: the in-memory ordered list of plugin entries, the
// invariants it must always satisfy, and the three persistence strategies
// (timestamp, textfile, asterisk) by which it is loaded and saved.
package loadorder

import (
	"context"
	"fmt"

	"github.com/mod-troubleshooter/loadorder/internal/gamesettings"
)

// Capacity constants: the most plugins that may be simultaneously active.
const (
	MaxActiveNormalPlugins = 255
	MaxActiveLightMasters  = 4096
)

// strategy declares the small set of persistence-method-specific
// primitives. A shared struct (LoadOrder itself) holds the
// invariant-enforcing logic and delegates only these to the strategy,
// following a tagged-dispatch design since exactly three strategies exist
// and no fourth is anticipated.
type strategy interface {
	// insertPosition returns the index at which e should be spliced into
	// lo.entries; an index equal to len(lo.entries) means append.
	insertPosition(lo *LoadOrder, e *Entry) int
	load(ctx context.Context, lo *LoadOrder) error
	save(ctx context.Context, lo *LoadOrder) error
	isSelfConsistent(ctx context.Context, lo *LoadOrder) (bool, error)
}

// LoadOrder is the load-order state machine for a single game instance. It
// exclusively owns its plugin entries; game settings are borrowed and
// treated as immutable for the LoadOrder's lifetime.
type LoadOrder struct {
	settings *gamesettings.Settings
	reader   HeaderReader
	entries  []*Entry
	strategy strategy
}

// New constructs a LoadOrder for the given game settings. The in-memory
// list starts empty (the Unloaded state); call Load to populate it.
func New(settings *gamesettings.Settings, reader HeaderReader) (*LoadOrder, error) {
	lo := &LoadOrder{settings: settings, reader: reader}

	switch settings.Method() {
	case gamesettings.MethodTimestamp:
		lo.strategy = &timestampStrategy{}
	case gamesettings.MethodTextfile:
		lo.strategy = &textfileStrategy{}
	case gamesettings.MethodAsterisk:
		lo.strategy = &asteriskStrategy{}
	default:
		return nil, fmt.Errorf("loadorder: unrecognised load order method %v", settings.Method())
	}

	return lo, nil
}

// Settings returns the game settings this LoadOrder was constructed with.
func (lo *LoadOrder) Settings() *gamesettings.Settings { return lo.settings }

// Len returns the number of plugin entries currently in the order.
func (lo *LoadOrder) Len() int { return len(lo.entries) }

// Entry returns the entry at position i. It panics if i is out of range,
// matching slice semantics; callers should check against Len or use
// IndexOf first.
func (lo *LoadOrder) Entry(i int) *Entry { return lo.entries[i] }

func (lo *LoadOrder) countActive() (normal, light int) {
	supportsLight := lo.settings.SupportsLightMasters()
	for _, e := range lo.entries {
		if !e.active {
			continue
		}
		if supportsLight && e.isLightMaster {
			light++
		} else {
			normal++
		}
	}
	return normal, light
}
