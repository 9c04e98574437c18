// ABOUTME: Tests for session mutations, history wiring, and the session store.
// ABOUTME: Covers rejected connections leaving no trace, undo/redo, clipboard flow, and TTL eviction.
package editor_test

import (
	"errors"
	"testing"
	"time"

	"github.com/2389-research/nodegraph/editor"
	"github.com/2389-research/nodegraph/graph"
	"github.com/2389-research/nodegraph/nodes"
	"github.com/2389-research/nodegraph/store"
)

func newSession(t *testing.T) *editor.Session {
	t.Helper()
	store := editor.NewStore(nodes.DefaultRegistry(), 10, time.Hour, 0)
	sess, err := store.Create(nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return sess
}

func TestSessionAddConnectEvaluate(t *testing.T) {
	sess := newSession(t)

	two, err := sess.AddNode(nodes.OpNumber, "", 0, 0)
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := sess.SetNodeContent(two.SID(), map[string]any{"value": 2.0}); err != nil {
		t.Fatalf("SetNodeContent: %v", err)
	}
	three, _ := sess.AddNode(nodes.OpNumber, "", 0, 50)
	if err := sess.SetNodeContent(three.SID(), map[string]any{"value": 3.0}); err != nil {
		t.Fatalf("SetNodeContent: %v", err)
	}
	add, _ := sess.AddNode(nodes.OpAdd, "", 100, 25)

	if _, err := sess.Connect(two.Output(0).SID(), add.Input(0).SID()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := sess.Connect(three.Output(0).SID(), add.Input(1).SID()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	sess.EvaluateAll()

	if add.Invalid() {
		t.Fatal("add node invalid after evaluation")
	}
	if add.Value() != 5.0 {
		t.Errorf("value: got %v, want 5", add.Value())
	}
}

func TestEvaluateAllToleratesConnectionCycle(t *testing.T) {
	sess := newSession(t)

	a, _ := sess.AddNode(nodes.OpAdd, "", 0, 0)
	b, _ := sess.AddNode(nodes.OpAdd, "", 100, 0)
	// The default connection rules allow cycles; both connects succeed.
	if _, err := sess.Connect(a.Output(0).SID(), b.Input(0).SID()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := sess.Connect(b.Output(0).SID(), a.Input(0).SID()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	sess.EvaluateAll()

	if !a.Invalid() || !b.Invalid() {
		t.Error("cycle participants should be invalid after evaluation")
	}
}

func TestSessionUndoRedo(t *testing.T) {
	sess := newSession(t)

	n, err := sess.AddNode(0, "scratch", 1, 2)
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	if err := sess.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if len(sess.Graph.Nodes()) != 0 {
		t.Fatalf("after undo: %d nodes", len(sess.Graph.Nodes()))
	}

	if err := sess.Redo(); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if got := len(sess.Graph.Nodes()); got != 1 {
		t.Fatalf("after redo: %d nodes", got)
	}
	if sess.Graph.Nodes()[0].SID() != n.SID() {
		t.Error("redo changed node identity")
	}
}

func TestRejectedConnectionLeavesNoTrace(t *testing.T) {
	sess := newSession(t)

	a, _ := sess.AddNode(nodes.OpNumber, "", 0, 0)
	b, _ := sess.AddNode(nodes.OpNumber, "", 0, 0)

	stamps := sess.History.Len()
	_, err := sess.Connect(a.Output(0).SID(), b.Output(0).SID())
	if !errors.Is(err, graph.ErrConnectionRejected) {
		t.Fatalf("got %v, want ErrConnectionRejected", err)
	}

	if len(sess.Graph.Edges()) != 0 {
		t.Error("rejected connection created an edge")
	}
	if sess.History.Len() != stamps {
		t.Error("rejected connection pushed a history stamp")
	}
}

func TestUnknownOpCodeRejected(t *testing.T) {
	sess := newSession(t)
	if _, err := sess.AddNode(9999, "", 0, 0); err == nil {
		t.Fatal("unknown op code should be rejected")
	}
}

func TestSessionCopyPaste(t *testing.T) {
	sess := newSession(t)

	a, _ := sess.AddNode(nodes.OpNumber, "", 0, 0)
	b, _ := sess.AddNode(nodes.OpOutput, "", 100, 0)
	if _, err := sess.Connect(a.Output(0).SID(), b.Input(0).SID()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	sess.SetSelection([]string{a.SID(), b.SID()}, nil)
	if _, err := sess.Copy(); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	created, err := sess.Paste(40, 40)
	if err != nil {
		t.Fatalf("Paste: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created: got %d, want 2", len(created))
	}
	if len(sess.Graph.Nodes()) != 4 || len(sess.Graph.Edges()) != 2 {
		t.Errorf("after paste: %d nodes, %d edges", len(sess.Graph.Nodes()), len(sess.Graph.Edges()))
	}
	for _, n := range created {
		if n.SID() == a.SID() || n.SID() == b.SID() {
			t.Error("pasted node reused an original sid")
		}
	}
}

func TestSessionCutRemovesSelection(t *testing.T) {
	sess := newSession(t)
	a, _ := sess.AddNode(nodes.OpNumber, "", 0, 0)
	sess.SetSelection([]string{a.SID()}, nil)

	data, err := sess.Cut()
	if err != nil {
		t.Fatalf("Cut: %v", err)
	}
	if len(data.Nodes) != 1 {
		t.Errorf("clipboard nodes: got %d, want 1", len(data.Nodes))
	}
	if len(sess.Graph.Nodes()) != 0 {
		t.Error("cut left the node in the graph")
	}
}

func TestPasteWithEmptyClipboardFails(t *testing.T) {
	sess := newSession(t)
	if _, err := sess.Paste(0, 0); err == nil {
		t.Fatal("paste with empty clipboard should fail")
	}
}

func TestLoadSnapshotRestartsHistory(t *testing.T) {
	sess := newSession(t)
	sess.AddNode(0, "a", 0, 0)

	other := graph.New()
	graph.NewNode(other, "loaded", nil, nil)
	if err := sess.LoadSnapshot(other.Serialize()); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	if got := len(sess.Graph.Nodes()); got != 1 {
		t.Fatalf("after load: %d nodes", got)
	}
	if sess.Graph.Nodes()[0].Title() != "loaded" {
		t.Error("loaded graph content missing")
	}
	if sess.History.CanUndo() {
		t.Error("history should restart at the loaded state")
	}
	if sess.Graph.Modified() {
		t.Error("freshly loaded graph should not be modified")
	}
}

func TestSaveToClearsModifiedOnlyOnSuccess(t *testing.T) {
	sess := newSession(t)
	lib, err := store.OpenLibrary(t.TempDir())
	if err != nil {
		t.Fatalf("OpenLibrary: %v", err)
	}
	defer lib.Close()

	sess.AddNode(0, "a", 0, 0)
	if !sess.Graph.Modified() {
		t.Fatal("mutation should mark the graph modified")
	}

	if err := sess.SaveTo(lib, "../escape"); err == nil {
		t.Fatal("unsafe name should be rejected")
	}
	if !sess.Graph.Modified() {
		t.Error("failed save must not clear the modified flag")
	}

	if err := sess.SaveTo(lib, "kept"); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	if sess.Graph.Modified() {
		t.Error("successful save should clear the modified flag")
	}
}

func TestStoreEvictsOldestAtCapacity(t *testing.T) {
	store := editor.NewStore(nodes.DefaultRegistry(), 2, time.Hour, 0)

	first, err := store.Create(nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := store.Create(nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := store.Create(nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if store.Len() != 2 {
		t.Fatalf("sessions: got %d, want 2", store.Len())
	}
	if _, ok := store.Get(first.ID); ok {
		t.Error("oldest session should have been evicted")
	}
}

func TestStoreCleanupRemovesExpired(t *testing.T) {
	store := editor.NewStore(nodes.DefaultRegistry(), 10, time.Millisecond, 0)
	sess, err := store.Create(nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	store.Cleanup()

	if _, ok := store.Get(sess.ID); ok {
		t.Error("expired session survived cleanup")
	}
}
