// ABOUTME: Session struct owning one graph, its undo/redo history, and a clipboard slot.
// ABOUTME: Every mutation runs under the session mutex and records a history stamp on success.

package editor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/2389-research/nodegraph/graph"
	"github.com/2389-research/nodegraph/nodes"
	"github.com/2389-research/nodegraph/store"
)

// errNotFound marks a lookup of a session, node, edge, or socket that does
// not exist. Handlers map it to 404; wrap it with the entity's sid for
// context.
var errNotFound = errors.New("not found")

// Session is one editable graph document. The engine itself is
// single-threaded; the session mutex serializes HTTP callers onto it.
type Session struct {
	mu         sync.RWMutex
	ID         string
	Graph      *graph.Graph
	History    *graph.History
	Clipboard  *graph.ClipboardData
	registry   *nodes.Registry
	CreatedAt  time.Time
	LastAccess time.Time
}

// RLock acquires a read lock for safe concurrent reads of session data.
func (sess *Session) RLock() {
	sess.mu.RLock()
}

// RUnlock releases a read lock.
func (sess *Session) RUnlock() {
	sess.mu.RUnlock()
}

// Snapshot serializes the current graph under a read lock.
func (sess *Session) Snapshot() *graph.Snapshot {
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	return sess.Graph.Serialize()
}

// LoadSnapshot replaces the graph contents with the snapshot. A failed load
// leaves the current graph untouched; a successful one restarts history at
// the loaded state.
func (sess *Session) LoadSnapshot(snap *graph.Snapshot) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.Graph.Restore(snap); err != nil {
		return err
	}
	sess.History.Clear()
	sess.History.Push("Loaded snapshot")
	sess.Graph.SetModified(false)
	return nil
}

// AddNode creates a node of the registered kind at the given position.
// Op code zero creates a generic node with no sockets.
func (sess *Session) AddNode(opCode int, title string, x, y float64) (*graph.Node, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	var n *graph.Node
	if opCode == 0 {
		n = graph.NewNode(sess.Graph, title, nil, nil)
	} else {
		kind := sess.registry.Resolve(opCode)
		if kind == nil {
			return nil, fmt.Errorf("unknown op code %d", opCode)
		}
		n = graph.NewKindNode(sess.Graph, kind)
		if title != "" {
			n.SetTitle(title)
		}
	}
	n.SetPos(x, y)
	n.MarkDirty(true)

	sess.History.Push("Added node " + n.Title())
	return n, nil
}

// RemoveNode removes the node with the given sid, cascading edge removal.
func (sess *Session) RemoveNode(sid string) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	n := sess.Graph.NodeBySID(sid)
	if n == nil {
		return fmt.Errorf("node %s: %w", sid, errNotFound)
	}
	sess.Graph.RemoveNode(n)
	sess.History.Push("Removed node " + n.Title())
	return nil
}

// MoveNode stores a new position on a node.
func (sess *Session) MoveNode(sid string, x, y float64) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	n := sess.Graph.NodeBySID(sid)
	if n == nil {
		return fmt.Errorf("node %s: %w", sid, errNotFound)
	}
	n.SetPos(x, y)
	sess.History.Push("Moved node " + n.Title())
	return nil
}

// SetNodeContent replaces a node's content and marks it and its descendants
// dirty.
func (sess *Session) SetNodeContent(sid string, content map[string]any) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	n := sess.Graph.NodeBySID(sid)
	if n == nil {
		return fmt.Errorf("node %s: %w", sid, errNotFound)
	}
	n.SetContent(content)
	n.MarkDirty(true)
	n.PropagateDirty()
	sess.History.Push("Edited node " + n.Title())
	return nil
}

// Connect creates an edge between two sockets identified by sid. A validator
// or multiplicity rejection leaves the graph and history untouched.
func (sess *Session) Connect(startSID, endSID string) (*graph.Edge, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	start := sess.Graph.SocketBySID(startSID)
	if start == nil {
		return nil, fmt.Errorf("socket %s: %w", startSID, errNotFound)
	}
	end := sess.Graph.SocketBySID(endSID)
	if end == nil {
		return nil, fmt.Errorf("socket %s: %w", endSID, errNotFound)
	}

	e, err := sess.Graph.Connect(start, end, graph.EdgeKindDefault)
	if err != nil {
		return nil, err
	}
	sess.History.Push("Connected sockets")
	return e, nil
}

// Disconnect removes the edge with the given sid.
func (sess *Session) Disconnect(sid string) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	e := sess.Graph.EdgeBySID(sid)
	if e == nil {
		return fmt.Errorf("edge %s: %w", sid, errNotFound)
	}
	sess.Graph.RemoveEdge(e)
	sess.History.Push("Disconnected edge")
	return nil
}

// SetSelection replaces the selection with the given node and edge sids.
// Unknown sids are ignored rather than rejected so stale client state never
// blocks a select.
func (sess *Session) SetSelection(nodeSIDs, edgeSIDs []string) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.Graph.ClearSelection()
	for _, sid := range nodeSIDs {
		if n := sess.Graph.NodeBySID(sid); n != nil {
			n.SetSelected(true)
		}
	}
	for _, sid := range edgeSIDs {
		if e := sess.Graph.EdgeBySID(sid); e != nil {
			e.SetSelected(true)
		}
	}
	sess.History.Push("Selection changed")
}

// Undo restores the previous history stamp.
func (sess *Session) Undo() error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.History.Undo()
}

// Redo restores a previously undone stamp.
func (sess *Session) Redo() error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.History.Redo()
}

// Copy serializes the selected nodes and their internal edges into the
// session clipboard and returns the data. Copy does not touch history.
func (sess *Session) Copy() (*graph.ClipboardData, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	selected := sess.Graph.SelectedNodes()
	if len(selected) == 0 {
		return nil, fmt.Errorf("nothing selected")
	}
	sess.Clipboard = graph.Copy(selected)
	return sess.Clipboard, nil
}

// Cut copies the selection to the clipboard and then removes it.
func (sess *Session) Cut() (*graph.ClipboardData, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	selected := sess.Graph.SelectedNodes()
	if len(selected) == 0 {
		return nil, fmt.Errorf("nothing selected")
	}
	sess.Clipboard = graph.Copy(selected)
	for _, n := range selected {
		sess.Graph.RemoveNode(n)
	}
	sess.History.Push("Cut selection")
	return sess.Clipboard, nil
}

// Paste inserts the session clipboard into the graph with fresh identities
// at the given offset and returns the created nodes, which become the new
// selection.
func (sess *Session) Paste(offsetX, offsetY float64) ([]*graph.Node, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Clipboard == nil {
		return nil, fmt.Errorf("clipboard is empty")
	}
	created, err := graph.Paste(sess.Graph, sess.Clipboard, offsetX, offsetY)
	if err != nil {
		return nil, err
	}
	sess.History.Push("Pasted clipboard")
	return created, nil
}

// SaveTo persists the graph to the library under name and clears the
// modified flag. Serialize, save, and the flag update run under one lock so
// a mutation landing mid-save can never be marked clean.
func (sess *Session) SaveTo(lib *store.Library, name string) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := lib.Save(name, sess.Graph.Serialize()); err != nil {
		return err
	}
	sess.Graph.SetModified(false)
	return nil
}

// EvaluateAll evaluates every stale node in creation order. Per-node
// failures are absorbed into each node's invalid flag and never abort the
// pass.
func (sess *Session) EvaluateAll() {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	for _, n := range sess.Graph.Nodes() {
		if n.Dirty() || n.Invalid() {
			_, _ = n.Evaluate()
		}
	}
}
