// ABOUTME: Bounded undo/redo history of full-graph snapshots plus selection state.
// ABOUTME: Pushing truncates the redo tail and silently evicts the oldest entry past the limit.
package graph

import "fmt"

// DefaultHistoryLimit bounds the history stack when no limit is given.
const DefaultHistoryLimit = 32

// Stamp is one history entry: a full-graph snapshot plus the sids of the
// selection at capture time. Snapshots are full-graph rather than deltas;
// correctness over memory.
type Stamp struct {
	Description   string
	Snapshot      *Snapshot
	SelectedNodes []string
	SelectedEdges []string
}

// History manages undo/redo for one graph through a bounded stack of stamps
// and a current-step pointer.
type History struct {
	graph *Graph
	stack []Stamp
	step  int
	limit int
}

// NewHistory creates a history for the graph. A non-positive limit selects
// DefaultHistoryLimit.
func NewHistory(g *Graph, limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{graph: g, step: -1, limit: limit}
}

// Len returns the number of stored stamps.
func (h *History) Len() int { return len(h.stack) }

// Clear resets the history stack.
func (h *History) Clear() {
	h.stack = nil
	h.step = -1
}

// CanUndo reports whether an earlier stamp exists to restore.
func (h *History) CanUndo() bool { return h.step > 0 }

// CanRedo reports whether a later stamp exists to restore.
func (h *History) CanRedo() bool { return h.step+1 < len(h.stack) }

// Push captures the graph's current snapshot and selection as a new stamp.
// Any redo tail is discarded; when the stack is full the oldest stamp is
// evicted silently.
func (h *History) Push(description string) {
	if h.step+1 < len(h.stack) {
		h.stack = h.stack[:h.step+1]
	}
	if h.step+1 >= h.limit {
		h.stack = h.stack[1:]
		h.step--
	}

	stamp := Stamp{
		Description: description,
		Snapshot:    h.graph.Serialize(),
	}
	for _, n := range h.graph.SelectedNodes() {
		stamp.SelectedNodes = append(stamp.SelectedNodes, n.SID())
	}
	for _, e := range h.graph.SelectedEdges() {
		stamp.SelectedEdges = append(stamp.SelectedEdges, e.SID())
	}
	h.stack = append(h.stack, stamp)
	h.step++
}

// Undo restores the previous stamp.
func (h *History) Undo() error {
	if !h.CanUndo() {
		return fmt.Errorf("nothing to undo")
	}
	h.step--
	return h.restoreCurrent()
}

// Redo restores the next stamp.
func (h *History) Redo() error {
	if !h.CanRedo() {
		return fmt.Errorf("nothing to redo")
	}
	h.step++
	return h.restoreCurrent()
}

// restoreCurrent rebuilds the graph from the stamp at the current step and
// reapplies the captured selection by sid lookup. History restores keep
// persisted sids, so selections resolve against the recreated entities.
func (h *History) restoreCurrent() error {
	stamp := h.stack[h.step]
	if err := h.graph.Restore(stamp.Snapshot); err != nil {
		return fmt.Errorf("restore history %q: %w", stamp.Description, err)
	}

	h.graph.ClearSelection()
	for _, sid := range stamp.SelectedNodes {
		if n := h.graph.NodeBySID(sid); n != nil {
			n.SetSelected(true)
		}
	}
	for _, sid := range stamp.SelectedEdges {
		if e := h.graph.EdgeBySID(sid); e != nil {
			e.SetSelected(true)
		}
	}
	h.graph.SetModified(true)
	return nil
}
