package loadorder

import (
	"context"
	"fmt"
	"testing"

	"github.com/mod-troubleshooter/loadorder/internal/gamesettings"
	"github.com/mod-troubleshooter/loadorder/internal/header"
)

func newOblivionOrder(t *testing.T, reader *fakeHeaderReader, pluginsDir string) *LoadOrder {
	t.Helper()
	settings, err := gamesettings.New(gamesettings.Oblivion, pluginsDir, t.TempDir())
	if err != nil {
		t.Fatalf("gamesettings.New: %v", err)
	}
	lo, err := New(settings, reader)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return lo
}

// Scenario 1: Oblivion, insert master. Initial order
// [Blank.esm, Blank.esp, Blank - Different.esp]; insert_position(Oblivion.esm)
// must be 1, the first non-master position.
func TestScenario_OblivionInsertMaster(t *testing.T) {
	dir := t.TempDir()
	touchFiles(t, dir, "Blank.esm", "Blank.esp", "Blank - Different.esp", "Oblivion.esm")

	reader := newFakeHeaderReader()
	reader.set("Blank.esm", &header.Header{IsMaster: true})
	reader.set("Oblivion.esm", &header.Header{IsMaster: true})

	lo := newOblivionOrder(t, reader, dir)
	lo.entries = []*Entry{
		mustEntry(t, reader, dir, "Blank.esm", false, false),
		mustEntry(t, reader, dir, "Blank.esp", false, false),
		mustEntry(t, reader, dir, "Blank - Different.esp", false, false),
	}

	candidate := mustEntry(t, reader, dir, "Oblivion.esm", false, false)
	if pos := lo.strategy.insertPosition(lo, candidate); pos != 1 {
		t.Fatalf("insertPosition(Oblivion.esm) = %d, expected 1", pos)
	}
}

// Scenario 2: Oblivion, non-master append. Activating a previously-absent
// non-master plugin on the initial 3-entry order lands it at index 3,
// active.
func TestScenario_OblivionNonMasterAppend(t *testing.T) {
	dir := t.TempDir()
	touchFiles(t, dir, "Blank.esm", "Blank.esp", "Blank - Different.esp", "Blank - Master Dependent.esp")

	reader := newFakeHeaderReader()
	reader.set("Blank.esm", &header.Header{IsMaster: true})

	lo := newOblivionOrder(t, reader, dir)
	lo.entries = []*Entry{
		mustEntry(t, reader, dir, "Blank.esm", false, false),
		mustEntry(t, reader, dir, "Blank.esp", false, false),
		mustEntry(t, reader, dir, "Blank - Different.esp", false, false),
	}

	if err := lo.Activate(context.Background(), "Blank - Master Dependent.esp"); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	i, ok := lo.IndexOf("Blank - Master Dependent.esp")
	if !ok || i != 3 {
		t.Fatalf("IndexOf = (%d, %v), expected (3, true)", i, ok)
	}
	if !lo.IsActive("Blank - Master Dependent.esp") {
		t.Error("expected Blank - Master Dependent.esp to be active")
	}
}

// Scenario 3: Oblivion capacity. 254 extra copies of a plugin activated,
// plus the 255th, fills the normal cap; the 256th activation fails.
func TestScenario_OblivionCapacity(t *testing.T) {
	dir := t.TempDir()
	names := make([]string, 0, 255)
	for i := 0; i < 255; i++ {
		name := fmt.Sprintf("Blank%03d.esp", i)
		names = append(names, name)
	}
	touchFiles(t, dir, names...)
	touchFiles(t, dir, "Blank - Different.esp")

	reader := newFakeHeaderReader()
	lo := newOblivionOrder(t, reader, dir)

	ctx := context.Background()
	for _, name := range names {
		if err := lo.Activate(ctx, name); err != nil {
			t.Fatalf("Activate(%s) failed: %v", name, err)
		}
	}

	err := lo.Activate(ctx, "Blank - Different.esp")
	if !IsKind(err, KindTooManyActivePlugins) {
		t.Fatalf("Activate at capacity = %v, expected TooManyActivePlugins", err)
	}
}

// Scenario 7: set-load-order rejection. A non-master before a master is
// rejected and the prior order is left unchanged.
func TestScenario_SetLoadOrder_RejectsNonMasterBeforeMaster(t *testing.T) {
	dir := t.TempDir()
	touchFiles(t, dir, "Blank.esm", "Blank.esp")

	reader := newFakeHeaderReader()
	reader.set("Blank.esm", &header.Header{IsMaster: true})

	lo := newOblivionOrder(t, reader, dir)
	original := []*Entry{
		mustEntry(t, reader, dir, "Blank.esm", false, false),
		mustEntry(t, reader, dir, "Blank.esp", false, false),
	}
	lo.entries = original

	err := lo.SetLoadOrder(context.Background(), []string{"Blank.esp", "Blank.esm"})
	if !IsKind(err, KindNonMasterBeforeMaster) {
		t.Fatalf("SetLoadOrder = %v, expected NonMasterBeforeMaster", err)
	}

	if len(lo.entries) != 2 || lo.entries[0] != original[0] || lo.entries[1] != original[1] {
		t.Error("SetLoadOrder mutated the order despite failing")
	}
}

// Scenario 8: duplicate rejection. A case-insensitive duplicate in the
// input is rejected and the prior order is left unchanged.
func TestScenario_SetLoadOrder_RejectsDuplicate(t *testing.T) {
	dir := t.TempDir()
	touchFiles(t, dir, "Blank.esp")

	reader := newFakeHeaderReader()
	lo := newOblivionOrder(t, reader, dir)
	original := []*Entry{mustEntry(t, reader, dir, "Blank.esp", false, false)}
	lo.entries = original

	err := lo.SetLoadOrder(context.Background(), []string{"Blank.esp", "blank.esp"})
	if !IsKind(err, KindDuplicatePlugin) {
		t.Fatalf("SetLoadOrder = %v, expected DuplicatePlugin", err)
	}

	if len(lo.entries) != 1 || lo.entries[0] != original[0] {
		t.Error("SetLoadOrder mutated the order despite failing")
	}
}
