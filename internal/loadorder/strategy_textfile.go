package loadorder

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/mod-troubleshooter/loadorder/internal/fsio"
)

// textfileStrategy persists an explicit order in loadorder.txt and the
// active set in a separate plugins.txt, both plain UTF-8 text. Used only
// by Skyrim.
type textfileStrategy struct{}

func (s *textfileStrategy) insertPosition(lo *LoadOrder, e *Entry) int {
	return insertPositionByMasters(lo, e)
}

func (s *textfileStrategy) load(ctx context.Context, lo *LoadOrder) error {
	lo.entries = nil

	orderNames, err := readLinesUTF8(lo.settings.LoadOrderFile())
	if err != nil {
		return err
	}
	activeNames, err := readLinesUTF8(lo.settings.ActivePluginsFile())
	if err != nil {
		return err
	}

	active := make(map[string]bool, len(activeNames))
	for _, n := range activeNames {
		active[strings.ToLower(n)] = true
	}

	for _, name := range orderNames {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := lo.IndexOf(name); ok {
			continue
		}
		e, err := newEntry(ctx, lo.reader, lo.settings.PluginsDirectory(), name, lo.settings.SupportsLightMasters(), active[strings.ToLower(name)])
		if err != nil {
			continue
		}
		lo.entries = append(lo.entries, e)
	}

	if err := lo.addMissingPlugins(ctx); err != nil {
		return err
	}

	lo.forceImplicitsToFront(ctx)

	if err := lo.addImplicitlyActivePlugins(ctx); err != nil {
		return err
	}

	lo.deactivateExcessPlugins()
	return nil
}

// forceImplicitsToFront moves the game master to index 0 and the
// remaining implicitly-active plugins immediately after it, in the
// hardcoded order settings gives them, ahead of every user-orderable
// plugin. Implicits missing on disk are skipped.
func (lo *LoadOrder) forceImplicitsToFront(ctx context.Context) {
	pos := 0
	for _, name := range lo.settings.ImplicitlyActivePlugins() {
		path := filepath.Join(lo.settings.PluginsDirectory(), name)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		i, ok := lo.IndexOf(name)
		if !ok {
			e, err := newEntry(ctx, lo.reader, lo.settings.PluginsDirectory(), name, lo.settings.SupportsLightMasters(), false)
			if err != nil {
				continue
			}
			lo.entries = append(lo.entries, nil)
			copy(lo.entries[pos+1:], lo.entries[pos:])
			lo.entries[pos] = e
			pos++
			continue
		}

		if i != pos {
			e := lo.entries[i]
			lo.entries = append(lo.entries[:i], lo.entries[i+1:]...)
			lo.entries = append(lo.entries, nil)
			copy(lo.entries[pos+1:], lo.entries[pos:])
			lo.entries[pos] = e
		}
		pos++
	}
}

func (s *textfileStrategy) save(ctx context.Context, lo *LoadOrder) error {
	var orderBuf strings.Builder
	for _, e := range lo.entries {
		orderBuf.WriteString(e.filename)
		orderBuf.WriteByte('\n')
	}
	if err := fsio.WriteFileAtomic(lo.settings.LoadOrderFile(), []byte(orderBuf.String()), 0644); err != nil {
		return &Error{Kind: KindIOError, Err: err}
	}

	var activeBuf strings.Builder
	for _, e := range lo.entries {
		if e.active {
			activeBuf.WriteString(e.filename)
			activeBuf.WriteByte('\n')
		}
	}
	if err := fsio.WriteFileAtomic(lo.settings.ActivePluginsFile(), []byte(activeBuf.String()), 0644); err != nil {
		return &Error{Kind: KindIOError, Err: err}
	}

	return nil
}

// isSelfConsistent restricts both on-disk lists to names appearing in
// both and reports whether their relative order agrees.
func (s *textfileStrategy) isSelfConsistent(ctx context.Context, lo *LoadOrder) (bool, error) {
	orderNames, err := readLinesUTF8(lo.settings.LoadOrderFile())
	if err != nil {
		return false, err
	}
	activeNames, err := readLinesUTF8(lo.settings.ActivePluginsFile())
	if err != nil {
		return false, err
	}

	orderPos := make(map[string]int, len(orderNames))
	for i, n := range orderNames {
		orderPos[strings.ToLower(n)] = i
	}

	var common []int
	for _, n := range activeNames {
		if pos, ok := orderPos[strings.ToLower(n)]; ok {
			common = append(common, pos)
		}
	}

	for i := 1; i < len(common); i++ {
		if common[i] < common[i-1] {
			return false, nil
		}
	}
	return true, nil
}
