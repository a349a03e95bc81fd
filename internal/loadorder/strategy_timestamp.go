package loadorder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/mod-troubleshooter/loadorder/internal/codec"
	"github.com/mod-troubleshooter/loadorder/internal/fsio"
	"github.com/mod-troubleshooter/loadorder/internal/gamesettings"
)

// morrowindGameFileLine matches a "GameFileN=name.esp" line from
// Morrowind.ini. Morrowind is the only timestamp game that wraps active
// plugin names this way instead of listing them bare, one per line.
var morrowindGameFileLine = regexp.MustCompile(`(?i)GameFile[0-9]{1,3}=(.+\.es(?:m|p))`)

const morrowindSectionHeader = "[Game Files]"
const morrowindDefaultPrelude = "isrealmorrowindini=false\n[Game Files]\n"

// timestampStrategy derives order from plugin file modification times and
// persists the active set in an INI-style (Morrowind) or plain (Oblivion,
// Fallout3, FalloutNV) file.
type timestampStrategy struct{}

func (s *timestampStrategy) insertPosition(lo *LoadOrder, e *Entry) int {
	if e.isMasterFile {
		return firstNonMasterPosition(lo.entries)
	}
	return len(lo.entries)
}

func (s *timestampStrategy) load(ctx context.Context, lo *LoadOrder) error {
	lo.entries = nil

	if err := lo.addMissingPlugins(ctx); err != nil {
		return err
	}

	names, err := readActivePluginNames(lo)
	if err != nil {
		return err
	}

	lo.deactivateAll()
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		// A name parsed out of the active file that no longer has a
		// backing entry (e.g. file removed) is skipped rather than
		// treated as an error: the active file only records intent.
		_ = lo.activateUnvalidated(ctx, name)
	}

	if err := lo.addImplicitlyActivePlugins(ctx); err != nil {
		return err
	}

	sort.SliceStable(lo.entries, func(i, j int) bool {
		a, b := lo.entries[i], lo.entries[j]
		if a.isMasterFile != b.isMasterFile {
			return a.isMasterFile
		}
		return a.modTime.Before(b.modTime)
	})

	lo.deactivateExcessPlugins()
	return nil
}

// readActivePluginNames reads the active-plugins file as raw bytes, and
// for Morrowind extracts the filename from each GameFileN= line via
// regex; other timestamp games list bare names, one per line. Every line
// is decoded as strict Windows-1252.
func readActivePluginNames(lo *LoadOrder) ([]string, error) {
	data, err := os.ReadFile(lo.settings.ActivePluginsFile())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &Error{Kind: KindIOError, Err: err}
	}

	isMorrowind := lo.settings.ID() == gamesettings.Morrowind

	var names []string
	for _, rawLine := range splitLines(data) {
		if len(rawLine) == 0 {
			continue
		}

		decoded, err := codec.DecodeWindows1252(rawLine)
		if err != nil {
			return nil, &Error{Kind: KindDecodeError, Err: err}
		}

		if isMorrowind {
			m := morrowindGameFileLine.FindStringSubmatch(decoded)
			if m == nil {
				continue
			}
			names = append(names, m[1])
		} else {
			names = append(names, decoded)
		}
	}
	return names, nil
}

func (s *timestampStrategy) save(ctx context.Context, lo *LoadOrder) error {
	times := make(map[int64]struct{}, len(lo.entries))
	var ordered []time.Time

	addTime := func(t time.Time) {
		key := t.Unix()
		if _, ok := times[key]; ok {
			return
		}
		times[key] = struct{}{}
		ordered = append(ordered, t)
	}

	for _, e := range lo.entries {
		addTime(e.modTime)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	for len(ordered) < len(lo.entries) {
		var next time.Time
		if len(ordered) == 0 {
			next = time.Unix(0, 0).UTC()
		} else {
			next = ordered[len(ordered)-1].Add(60 * time.Second)
		}
		addTime(next)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	for i, e := range lo.entries {
		t := ordered[i]
		path := filepath.Join(lo.settings.PluginsDirectory(), e.filename)
		if err := fsio.SetModTime(path, t); err != nil {
			return &Error{Kind: KindIOError, Name: e.filename, Err: err}
		}
		e.modTime = t
	}

	return lo.saveActivePlugins()
}

func (lo *LoadOrder) saveActivePlugins() error {
	isMorrowind := lo.settings.ID() == gamesettings.Morrowind

	var buf bytes.Buffer
	if isMorrowind {
		buf.Write(getFilePrelude(lo.settings.ActivePluginsFile()))
	}

	gameFileIndex := 0
	for _, e := range lo.entries {
		if !e.active {
			continue
		}

		var line string
		if isMorrowind {
			line = fmt.Sprintf("GameFile%d=%s", gameFileIndex, e.filename)
			gameFileIndex++
		} else {
			line = e.filename
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

// getFilePrelude preserves any existing Morrowind.ini content up to and
// including the first "[Game Files]" line, so save never clobbers
// unrelated INI sections a user or other tool added above the plugin list.
func getFilePrelude(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		return []byte(morrowindDefaultPrelude)
	}

	lines := splitLines(data)
	for i, line := range lines {
		if strings.HasPrefix(string(line), morrowindSectionHeader) {
			var buf bytes.Buffer
			for j := 0; j <= i; j++ {
				buf.Write(lines[j])
				buf.WriteByte('\n')
			}
			return buf.Bytes()
		}
	}
	return []byte(morrowindDefaultPrelude)
}

func (s *timestampStrategy) isSelfConsistent(ctx context.Context, lo *LoadOrder) (bool, error) {
	return true, nil
}
