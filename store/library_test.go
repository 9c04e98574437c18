// ABOUTME: Tests for the SQLite-indexed snapshot library.
// ABOUTME: Covers save/list/load/delete, index rebuild from files, and name validation.
package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/2389-research/nodegraph/graph"
	"github.com/2389-research/nodegraph/store"
)

func openLibrary(t *testing.T) *store.Library {
	t.Helper()
	lib, err := store.OpenLibrary(t.TempDir())
	if err != nil {
		t.Fatalf("OpenLibrary: %v", err)
	}
	t.Cleanup(func() { lib.Close() })
	return lib
}

func TestLibrarySaveListLoad(t *testing.T) {
	lib := openLibrary(t)
	g := sampleGraph(t)

	if err := lib.Save("calc", g.Serialize()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := lib.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries: got %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Name != "calc" {
		t.Errorf("name: got %q, want calc", e.Name)
	}
	if e.SID != g.SID() {
		t.Errorf("sid: got %s, want %s", e.SID, g.SID())
	}
	if e.NodeCount != 2 || e.EdgeCount != 1 {
		t.Errorf("counts: got %d/%d, want 2/1", e.NodeCount, e.EdgeCount)
	}

	snap, err := lib.Load("calc")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.SID != g.SID() {
		t.Errorf("loaded sid: got %s, want %s", snap.SID, g.SID())
	}
}

func TestLibrarySaveUpsertsIndexRow(t *testing.T) {
	lib := openLibrary(t)
	g := sampleGraph(t)

	if err := lib.Save("calc", g.Serialize()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	graph.NewNode(g, "extra", nil, nil)
	if err := lib.Save("calc", g.Serialize()); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	entries, err := lib.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries after upsert: got %d, want 1", len(entries))
	}
	if entries[0].NodeCount != 3 {
		t.Errorf("node count after upsert: got %d, want 3", entries[0].NodeCount)
	}
}

func TestLibraryDelete(t *testing.T) {
	lib := openLibrary(t)
	if err := lib.Save("gone", sampleGraph(t).Serialize()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := lib.Delete("gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	entries, err := lib.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries after delete: got %d, want 0", len(entries))
	}
	if _, err := lib.Load("gone"); err == nil {
		t.Error("Load of a deleted snapshot should fail")
	}

	// Deleting a missing name is not an error.
	if err := lib.Delete("never-existed"); err != nil {
		t.Errorf("Delete of missing name: %v", err)
	}
}

func TestLibraryRebuildFromFiles(t *testing.T) {
	dir := t.TempDir()
	lib, err := store.OpenLibrary(dir)
	if err != nil {
		t.Fatalf("OpenLibrary: %v", err)
	}
	defer lib.Close()

	// A snapshot file dropped into the directory behind the index's back.
	if err := store.Save(filepath.Join(dir, "orphan.json"), sampleGraph(t).Serialize()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// And one unreadable file that must be skipped.
	if err := os.WriteFile(filepath.Join(dir, "junk.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := lib.Rebuild(); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	entries, err := lib.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries after rebuild: got %d, want 1", len(entries))
	}
	if entries[0].Name != "orphan" {
		t.Errorf("rebuilt name: got %q, want orphan", entries[0].Name)
	}
}

func TestLibraryRejectsUnsafeNames(t *testing.T) {
	lib := openLibrary(t)
	snap := sampleGraph(t).Serialize()
	for _, name := range []string{"", "a/b", `a\b`, ".", ".."} {
		if err := lib.Save(name, snap); err == nil {
			t.Errorf("Save(%q) accepted an unsafe name", name)
		}
	}
}
