// ABOUTME: Graph: the owning container for nodes and edges in one document.
// ABOUTME: Mediates creation, cascade removal, selection queries, validators, and the kind resolver.
package graph

import "fmt"

// Default canvas bounds, stored with snapshots but never interpreted.
const (
	defaultWidth  = 64000
	defaultHeight = 64000
)

// Graph owns all nodes and edges in one document. Node and edge lists keep
// insertion order, which fixes the serialization order. The graph is
// single-threaded: callers serialize access themselves.
type Graph struct {
	sid        string
	width      int
	height     int
	nodes      []*Node
	edges      []*Edge
	validators []Validator
	resolver   KindResolver
	bridge     HostBridge
	modified   bool
}

// New creates an empty graph with the default validator set and a no-op
// host bridge.
func New() *Graph {
	return &Graph{
		sid:        NewSID(),
		width:      defaultWidth,
		height:     defaultHeight,
		validators: DefaultValidators(),
		bridge:     NopBridge{},
	}
}

// SID returns the graph's stable identity.
func (g *Graph) SID() string { return g.sid }

// Bounds returns the stored canvas bounds.
func (g *Graph) Bounds() (width, height int) { return g.width, g.height }

// SetBounds stores new canvas bounds.
func (g *Graph) SetBounds(width, height int) {
	g.width = width
	g.height = height
}

// Nodes returns the graph's nodes in creation order. The slice is a copy.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns the graph's edges in creation order. The slice is a copy.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Modified reports whether the graph changed since the flag was last cleared.
func (g *Graph) Modified() bool { return g.modified }

// SetModified sets or clears the modified flag.
func (g *Graph) SetModified(modified bool) { g.modified = modified }

// SetKindResolver installs the resolver used to reconstruct concrete node
// kinds from snapshots. A nil resolver restores every node as generic.
func (g *Graph) SetKindResolver(resolver KindResolver) { g.resolver = resolver }

// KindResolver returns the installed resolver, possibly nil.
func (g *Graph) KindResolver() KindResolver { return g.resolver }

// RegisterValidator appends a connection validator. Validators are queried
// in registration order on every Connect; the first rejection wins.
func (g *Graph) RegisterValidator(v Validator) {
	g.validators = append(g.validators, v)
}

// SetValidators replaces the validator set. Passing nil removes all
// connection rules.
func (g *Graph) SetValidators(validators []Validator) {
	g.validators = validators
}

// SetBridge installs the host-integration bridge. Passing nil restores the
// no-op bridge.
func (g *Graph) SetBridge(bridge HostBridge) {
	if bridge == nil {
		bridge = NopBridge{}
	}
	g.bridge = bridge
}

// Bridge returns the host-integration bridge, never nil.
func (g *Graph) Bridge() HostBridge { return g.bridge }

// addNode registers a freshly constructed node. Called from NewNode.
func (g *Graph) addNode(n *Node) {
	g.nodes = append(g.nodes, n)
	g.modified = true
}

// RemoveNode removes a node, cascading removal of every edge attached to
// any of its sockets first. No edge ever survives with a dangling endpoint.
func (g *Graph) RemoveNode(n *Node) {
	for _, edge := range n.ConnectedEdges() {
		edge.Remove()
	}
	for i, existing := range g.nodes {
		if existing == n {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}
	g.modified = true
}

// Connect creates an edge between two sockets after consulting the
// validator registry and each socket's multi-edge policy. On rejection no
// edge is created and no socket is touched. The downstream node is marked
// dirty and the mark propagated.
func (g *Graph) Connect(start, end *Socket, kind EdgeKind) (*Edge, error) {
	if start == nil || end == nil {
		return nil, fmt.Errorf("both sockets required: %w", ErrConnectionRejected)
	}
	for i, validate := range g.validators {
		if !validate(start, end) {
			return nil, fmt.Errorf("validator %d rejected %s -> %s: %w", i, start.sid, end.sid, ErrConnectionRejected)
		}
	}

	e := &Edge{
		sid:   NewSID(),
		graph: g,
		kind:  kind,
		start: start,
		end:   end,
	}
	if err := start.attach(e); err != nil {
		return nil, err
	}
	if err := end.attach(e); err != nil {
		start.detach(e)
		return nil, err
	}
	g.edges = append(g.edges, e)
	g.modified = true

	if downstream := e.Downstream(); downstream != nil {
		downstream.MarkDirty(true)
		downstream.PropagateDirty()
	}
	return e, nil
}

// RemoveEdge removes an edge, detaching both sockets and propagating
// dirtiness downstream.
func (g *Graph) RemoveEdge(e *Edge) {
	e.Remove()
}

// removeEdge unregisters an edge from the edge list.
func (g *Graph) removeEdge(e *Edge) {
	for i, existing := range g.edges {
		if existing == e {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			break
		}
	}
	g.modified = true
}

// Clear removes all nodes and edges without per-edge dirty propagation.
func (g *Graph) Clear() {
	for _, e := range g.Edges() {
		e.remove(false)
	}
	g.nodes = nil
	g.edges = nil
	g.modified = true
}

// NodeBySID returns the node with the given identity, or nil.
func (g *Graph) NodeBySID(sid string) *Node {
	for _, n := range g.nodes {
		if n.sid == sid {
			return n
		}
	}
	return nil
}

// EdgeBySID returns the edge with the given identity, or nil.
func (g *Graph) EdgeBySID(sid string) *Edge {
	for _, e := range g.edges {
		if e.sid == sid {
			return e
		}
	}
	return nil
}

// SocketBySID returns the socket with the given identity, or nil.
func (g *Graph) SocketBySID(sid string) *Socket {
	for _, n := range g.nodes {
		for _, s := range n.inputs {
			if s.sid == sid {
				return s
			}
		}
		for _, s := range n.outputs {
			if s.sid == sid {
				return s
			}
		}
	}
	return nil
}

// SelectedNodes returns the currently selected nodes in creation order.
func (g *Graph) SelectedNodes() []*Node {
	var selected []*Node
	for _, n := range g.nodes {
		if n.selected {
			selected = append(selected, n)
		}
	}
	return selected
}

// SelectedEdges returns the currently selected edges in creation order.
func (g *Graph) SelectedEdges() []*Edge {
	var selected []*Edge
	for _, e := range g.edges {
		if e.selected {
			selected = append(selected, e)
		}
	}
	return selected
}

// ClearSelection deselects every node and edge.
func (g *Graph) ClearSelection() {
	for _, n := range g.nodes {
		n.selected = false
	}
	for _, e := range g.edges {
		e.selected = false
	}
}
