package loadorder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mod-troubleshooter/loadorder/internal/codec"
	"github.com/mod-troubleshooter/loadorder/internal/gamesettings"
)

// Scenario 5: timestamp save. Initial mtimes are already distinct and equal
// in count to the plugin count, so save assigns the same ascending
// sequence back in current list order without needing to extend it.
func TestScenario_TimestampSave_DistinctAscendingTimes(t *testing.T) {
	dir := t.TempDir()
	localAppData := t.TempDir()
	touchFiles(t, dir, "A.esp", "B.esp", "C.esp")

	reader := newFakeHeaderReader()
	settings, err := gamesettings.New(gamesettings.Oblivion, dir, localAppData)
	if err != nil {
		t.Fatalf("gamesettings.New: %v", err)
	}
	lo, err := New(settings, reader)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	lo.entries = []*Entry{
		mustEntry(t, reader, dir, "A.esp", false, false),
		mustEntry(t, reader, dir, "B.esp", false, false),
		mustEntry(t, reader, dir, "C.esp", false, false),
	}
	base := time.Unix(0, 0).UTC()
	lo.entries[0].modTime = base
	lo.entries[1].modTime = base.Add(60 * time.Second)
	lo.entries[2].modTime = base.Add(120 * time.Second)

	if err := lo.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var prev time.Time
	for i, e := range lo.entries {
		info, err := os.Stat(filepath.Join(dir, e.filename))
		if err != nil {
			t.Fatalf("stat %s: %v", e.filename, err)
		}
		if i > 0 && !info.ModTime().After(prev) {
			t.Errorf("entry %d (%s) mtime %v not after previous %v", i, e.filename, info.ModTime(), prev)
		}
		prev = info.ModTime()
	}
}

// Timestamp save must extend the mtime set with +60s steps when there are
// fewer distinct mtimes than plugins, so every entry ends up separable.
func TestTimestampSave_ExtendsCollidingMtimes(t *testing.T) {
	dir := t.TempDir()
	touchFiles(t, dir, "A.esp", "B.esp", "C.esp")

	reader := newFakeHeaderReader()
	settings, err := gamesettings.New(gamesettings.Oblivion, dir, t.TempDir())
	if err != nil {
		t.Fatalf("gamesettings.New: %v", err)
	}
	lo, err := New(settings, reader)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	same := time.Unix(1000, 0).UTC()
	lo.entries = []*Entry{
		mustEntry(t, reader, dir, "A.esp", false, false),
		mustEntry(t, reader, dir, "B.esp", false, false),
		mustEntry(t, reader, dir, "C.esp", false, false),
	}
	for _, e := range lo.entries {
		e.modTime = same
	}

	if err := lo.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	seen := make(map[int64]bool)
	for _, e := range lo.entries {
		info, err := os.Stat(filepath.Join(dir, e.filename))
		if err != nil {
			t.Fatalf("stat %s: %v", e.filename, err)
		}
		if seen[info.ModTime().Unix()] {
			t.Fatalf("duplicate mtime %v after save", info.ModTime())
		}
		seen[info.ModTime().Unix()] = true
	}
}

// Scenario 6: Morrowind load. The active file lists Blank.esm and the
// non-ASCII Blàñk.esp via GameFileN= lines; after load, both are active
// in that order.
func TestScenario_MorrowindLoad(t *testing.T) {
	dir := t.TempDir()
	touchFiles(t, dir, "Blank.esm", "Blàñk.esp")
	sameTime := time.Unix(500, 0)
	if err := os.Chtimes(filepath.Join(dir, "Blank.esm"), sameTime, sameTime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Chtimes(filepath.Join(dir, "Blàñk.esp"), sameTime, sameTime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	reader := newFakeHeaderReader()
	settings, err := gamesettings.New(gamesettings.Morrowind, dir, "")
	if err != nil {
		t.Fatalf("gamesettings.New: %v", err)
	}
	lo, err := New(settings, reader)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	content := "isrealmorrowindini=false\n[Game Files]\nGameFile0=Blank.esm\nGameFile1=Blàñk.esp\n"
	encoded, err := codec.EncodeWindows1252(content)
	if err != nil {
		t.Fatalf("EncodeWindows1252: %v", err)
	}
	if err := os.WriteFile(settings.ActivePluginsFile(), encoded, 0644); err != nil {
		t.Fatalf("write ini: %v", err)
	}

	if err := lo.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	active := lo.ActivePluginNames()
	if len(active) != 2 || active[0] != "Blank.esm" || active[1] != "Blàñk.esp" {
		t.Fatalf("ActivePluginNames() = %v, expected [Blank.esm Blàñk.esp]", active)
	}
}

func TestMorrowindSave_PreservesPrelude(t *testing.T) {
	dir := t.TempDir()
	touchFiles(t, dir, "Blank.esm")

	reader := newFakeHeaderReader()
	settings, err := gamesettings.New(gamesettings.Morrowind, dir, "")
	if err != nil {
		t.Fatalf("gamesettings.New: %v", err)
	}
	lo, err := New(settings, reader)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	existing := "someOtherSetting=1\nisrealmorrowindini=false\n[Game Files]\nGameFile0=Stale.esm\n"
	encoded, err := codec.EncodeWindows1252(existing)
	if err != nil {
		t.Fatalf("EncodeWindows1252: %v", err)
	}
	if err := os.WriteFile(settings.ActivePluginsFile(), encoded, 0644); err != nil {
		t.Fatalf("write ini: %v", err)
	}

	lo.entries = []*Entry{mustEntry(t, reader, dir, "Blank.esm", false, true)}

	if err := lo.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(settings.ActivePluginsFile())
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	decoded, err := codec.DecodeWindows1252(data)
	if err != nil {
		t.Fatalf("DecodeWindows1252: %v", err)
	}

	want := "someOtherSetting=1\nisrealmorrowindini=false\n[Game Files]\nGameFile0=Blank.esm\n"
	if decoded != want {
		t.Fatalf("saved content = %q, expected %q", decoded, want)
	}
}
