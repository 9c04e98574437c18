// ABOUTME: Edge type linking exactly two sockets, plus the connection validator contract.
// ABOUTME: Edges are created only through Graph.Connect and removal propagates dirtiness downstream.
package graph

// EdgeKind is an opaque path-shape tag carried through serialization. The
// engine stores it but never interprets it.
type EdgeKind int

const (
	EdgeDirect EdgeKind = iota + 1
	EdgeBezier
	EdgeSquare
	EdgeImprovedSharp
	EdgeImprovedBezier
)

// EdgeKindDefault is used when callers do not care about the path shape.
const EdgeKindDefault = EdgeImprovedBezier

// Validator decides whether two sockets may be connected, in the order the
// caller passed them to Connect. Validators run in registration order;
// the first rejection wins.
type Validator func(start, end *Socket) bool

// DefaultValidators returns the default connection compatibility rules:
// no output-to-output or input-to-input pairs, no self-connections, and
// matching socket types. Installed by New; replace with SetValidators for
// different domain rules.
func DefaultValidators() []Validator {
	return []Validator{
		func(start, end *Socket) bool { return start.IsInput() != end.IsInput() },
		func(start, end *Socket) bool { return start.Node() != end.Node() },
		func(start, end *Socket) bool { return start.Type() == end.Type() },
	}
}

// Edge is a link between exactly two sockets. An edge never exists with
// fewer than two valid endpoints; removing either endpoint's node removes
// the edge.
type Edge struct {
	sid      string
	graph    *Graph
	kind     EdgeKind
	start    *Socket
	end      *Socket
	selected bool
}

// SID returns the edge's stable identity.
func (e *Edge) SID() string { return e.sid }

// Kind returns the edge's path-shape tag.
func (e *Edge) Kind() EdgeKind { return e.kind }

// Start returns the start socket.
func (e *Edge) Start() *Socket { return e.start }

// End returns the end socket.
func (e *Edge) End() *Socket { return e.end }

// Selected reports whether the edge is selected.
func (e *Edge) Selected() bool { return e.selected }

// SetSelected sets the edge's selection flag.
func (e *Edge) SetSelected(selected bool) { e.selected = selected }

// OtherSocket returns the endpoint opposite the known socket, or nil when
// the socket is not an endpoint of this edge.
func (e *Edge) OtherSocket(known *Socket) *Socket {
	switch known {
	case e.start:
		return e.end
	case e.end:
		return e.start
	default:
		return nil
	}
}

// Downstream returns the node on the receiving side of the connection: the
// one owning the input-role endpoint. When both endpoints share a role the
// end socket's node is reported.
func (e *Edge) Downstream() *Node {
	if e.end.IsInput() {
		return e.end.node
	}
	if e.start.IsInput() {
		return e.start.node
	}
	return e.end.node
}

// Remove detaches the edge from both sockets, removes it from the graph,
// and marks the downstream node dirty, propagating to its descendants.
func (e *Edge) Remove() {
	e.remove(true)
}

// remove detaches and unregisters the edge. When notify is false the
// downstream dirty propagation is suppressed; bulk teardown paths use this
// to avoid redundant work on nodes that are going away anyway.
func (e *Edge) remove(notify bool) {
	downstream := e.Downstream()
	e.start.detach(e)
	e.end.detach(e)
	e.graph.removeEdge(e)
	if notify && downstream != nil {
		downstream.MarkDirty(true)
		downstream.PropagateDirty()
	}
}

// Serialize returns the edge's snapshot form with sid endpoint references.
func (e *Edge) Serialize() EdgeSnapshot {
	return EdgeSnapshot{
		SID:      e.sid,
		Kind:     e.kind,
		StartSID: e.start.sid,
		EndSID:   e.end.sid,
	}
}
