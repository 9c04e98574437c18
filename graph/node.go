// ABOUTME: Node entity with fixed socket arity, dirty/invalid evaluation state, and traversal helpers.
// ABOUTME: Dirty and invalid propagation use iterative BFS with a visited set, safe on diamonds and cycles.
package graph

import "fmt"

// Kind defines the behavior of a concrete node type: its stable op code,
// default title and socket arity, and its evaluation logic. Kinds are
// resolved from snapshots through the graph's KindResolver.
type Kind interface {
	// OpCode returns the stable integer identifying this node kind.
	OpCode() int
	// Title returns the default title for freshly created nodes.
	Title() string
	// Sockets returns the input and output socket type lists. The lengths
	// fix the node's arity for its whole life.
	Sockets() (inputs, outputs []int)
	// Evaluate computes the node's value. On error the node is marked
	// invalid and its value cleared; the error never crosses node
	// boundaries.
	Evaluate(n *Node) (any, error)
}

// ContentHook is an optional Kind extension invoked after a node's content
// has been restored from a snapshot, letting the kind validate or normalize
// kind-specific fields.
type ContentHook interface {
	RestoreContent(n *Node, content map[string]any) error
}

// KindResolver maps a serialized node entry to a Kind. Returning nil falls
// back to a generic node with no evaluation behavior.
type KindResolver func(snap NodeSnapshot) Kind

// Node is a processing unit in a graph. It owns its sockets; arity is fixed
// at construction. Nodes are created only through a Graph and removed only
// through Graph.RemoveNode, which cascades edge removal first.
type Node struct {
	sid      string
	graph    *Graph
	title    string
	posX     float64
	posY     float64
	opCode   int
	kind     Kind
	inputs   []*Socket
	outputs  []*Socket
	content  map[string]any
	dirty    bool
	invalid  bool
	value    any
	selected bool

	// evaluating guards against connection cycles during pull evaluation.
	evaluating bool
}

// NewNode creates a generic node with the given socket type lists and
// registers it in the graph. Input sockets are single-edge by default,
// output sockets multi-edge, matching the usual dataflow shape.
func NewNode(g *Graph, title string, inputs, outputs []int) *Node {
	n := &Node{
		sid:     NewSID(),
		graph:   g,
		title:   title,
		content: map[string]any{},
	}
	n.initSockets(inputs, outputs)
	g.addNode(n)
	return n
}

// NewKindNode creates a node of the given kind, taking title, op code, and
// socket arity from the kind.
func NewKindNode(g *Graph, k Kind) *Node {
	in, out := k.Sockets()
	n := NewNode(g, k.Title(), in, out)
	n.kind = k
	n.opCode = k.OpCode()
	return n
}

func (n *Node) initSockets(inputs, outputs []int) {
	n.inputs = make([]*Socket, 0, len(inputs))
	n.outputs = make([]*Socket, 0, len(outputs))
	for i, socketType := range inputs {
		n.inputs = append(n.inputs, newSocket(n, i, LeftBottom, socketType, false, true))
	}
	for i, socketType := range outputs {
		n.outputs = append(n.outputs, newSocket(n, i, RightTop, socketType, true, false))
	}
}

// SID returns the node's stable identity.
func (n *Node) SID() string { return n.sid }

// Graph returns the owning graph.
func (n *Node) Graph() *Graph { return n.graph }

// Title returns the node's title.
func (n *Node) Title() string { return n.title }

// SetTitle sets the node's title.
func (n *Node) SetTitle(title string) { n.title = title }

// OpCode returns the stable integer identifying the node's concrete kind.
// Zero means a generic node.
func (n *Node) OpCode() int { return n.opCode }

// Kind returns the node's kind, or nil for a generic node.
func (n *Node) Kind() Kind { return n.kind }

// Pos returns the node's stored 2D position. The engine stores coordinates
// but never interprets them.
func (n *Node) Pos() (x, y float64) { return n.posX, n.posY }

// SetPos stores the node's 2D position.
func (n *Node) SetPos(x, y float64) {
	n.posX = x
	n.posY = y
}

// Inputs returns the node's input sockets in declaration order.
func (n *Node) Inputs() []*Socket {
	out := make([]*Socket, len(n.inputs))
	copy(out, n.inputs)
	return out
}

// Outputs returns the node's output sockets in declaration order.
func (n *Node) Outputs() []*Socket {
	out := make([]*Socket, len(n.outputs))
	copy(out, n.outputs)
	return out
}

// Input returns the input socket at index, or nil when out of range.
func (n *Node) Input(index int) *Socket {
	if index < 0 || index >= len(n.inputs) {
		return nil
	}
	return n.inputs[index]
}

// Output returns the output socket at index, or nil when out of range.
func (n *Node) Output(index int) *Socket {
	if index < 0 || index >= len(n.outputs) {
		return nil
	}
	return n.outputs[index]
}

// Content returns the node's opaque key/value state. Mutations are visible
// to the node; callers mutate only through the owning session or their own
// single thread of control.
func (n *Node) Content() map[string]any { return n.content }

// SetContent replaces the node's content map. A nil map clears it.
func (n *Node) SetContent(content map[string]any) {
	if content == nil {
		content = map[string]any{}
	}
	n.content = content
}

// Selected reports whether the node is selected.
func (n *Node) Selected() bool { return n.selected }

// SetSelected sets the node's selection flag.
func (n *Node) SetSelected(selected bool) { n.selected = selected }

// Dirty reports whether the node's cached value is stale.
func (n *Node) Dirty() bool { return n.dirty }

// Invalid reports whether the node's last evaluation failed.
func (n *Node) Invalid() bool { return n.invalid }

// Value returns the node's cached evaluation result, nil when never
// evaluated or invalid.
func (n *Node) Value() any { return n.value }

// MarkDirty sets or clears the dirty flag on this node only.
func (n *Node) MarkDirty(dirty bool) { n.dirty = dirty }

// MarkInvalid sets or clears the invalid flag on this node only.
func (n *Node) MarkInvalid(invalid bool) {
	n.invalid = invalid
	if invalid {
		n.value = nil
	}
}

// PropagateDirty marks every node reachable through outgoing connections as
// dirty. Traversal is iterative breadth-first with a visited set: each
// descendant is visited at most once regardless of diamond fan-in, and
// cycles terminate instead of recursing forever.
func (n *Node) PropagateDirty() {
	n.walkDescendants(func(d *Node) { d.MarkDirty(true) })
}

// PropagateInvalid marks every descendant invalid, with the same traversal
// guarantees as PropagateDirty.
func (n *Node) PropagateInvalid() {
	n.walkDescendants(func(d *Node) { d.MarkInvalid(true) })
}

func (n *Node) walkDescendants(visit func(*Node)) {
	visited := map[*Node]bool{n: true}
	queue := n.ChildNodes()
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		visit(cur)
		queue = append(queue, cur.ChildNodes()...)
	}
}

// Evaluate computes the node's value through its kind. On success the value
// is cached and both dirty and invalid are cleared together; on failure the
// node is marked invalid, its value cleared, and the error returned to the
// immediate caller only. A generic node evaluates to nil successfully.
//
// Kinds pull stale upstream values by calling Evaluate on them, so a
// connection cycle would otherwise recurse forever. Re-entering a node whose
// evaluation is already in progress fails it instead, and the failure
// surfaces like any other: the node goes invalid and the caller gets the
// error.
func (n *Node) Evaluate() (any, error) {
	if n.kind == nil {
		n.dirty = false
		n.invalid = false
		return n.value, nil
	}
	if n.evaluating {
		n.invalid = true
		n.value = nil
		return nil, fmt.Errorf("evaluation cycle at node %s", n.sid)
	}
	n.evaluating = true
	defer func() { n.evaluating = false }()

	value, err := n.kind.Evaluate(n)
	if err != nil {
		n.invalid = true
		n.value = nil
		return nil, err
	}
	n.value = value
	n.dirty = false
	n.invalid = false
	return value, nil
}

// ChildNodes returns the nodes connected to this node's outputs, one entry
// per connection (a node connected twice appears twice).
func (n *Node) ChildNodes() []*Node {
	var children []*Node
	for _, socket := range n.outputs {
		for _, edge := range socket.edges {
			if other := edge.OtherSocket(socket); other != nil {
				children = append(children, other.node)
			}
		}
	}
	return children
}

// InputNode returns the first node connected to the input socket at index,
// or nil when unconnected or out of range.
func (n *Node) InputNode(index int) *Node {
	socket := n.Input(index)
	if socket == nil || len(socket.edges) == 0 {
		return nil
	}
	other := socket.edges[0].OtherSocket(socket)
	if other == nil {
		return nil
	}
	return other.node
}

// InputNodes returns all nodes connected to the input socket at index.
func (n *Node) InputNodes(index int) []*Node {
	socket := n.Input(index)
	if socket == nil {
		return nil
	}
	var nodes []*Node
	for _, edge := range socket.edges {
		if other := edge.OtherSocket(socket); other != nil {
			nodes = append(nodes, other.node)
		}
	}
	return nodes
}

// OutputNodes returns all nodes connected to the output socket at index.
func (n *Node) OutputNodes(index int) []*Node {
	socket := n.Output(index)
	if socket == nil {
		return nil
	}
	var nodes []*Node
	for _, edge := range socket.edges {
		if other := edge.OtherSocket(socket); other != nil {
			nodes = append(nodes, other.node)
		}
	}
	return nodes
}

// ConnectedEdges returns every edge attached to any of the node's sockets,
// deduplicated.
func (n *Node) ConnectedEdges() []*Edge {
	seen := map[*Edge]bool{}
	var edges []*Edge
	for _, socket := range append(n.Inputs(), n.outputs...) {
		for _, edge := range socket.edges {
			if !seen[edge] {
				seen[edge] = true
				edges = append(edges, edge)
			}
		}
	}
	return edges
}

// Serialize returns the node's snapshot form, including both socket lists
// and a copy of the content map.
func (n *Node) Serialize() NodeSnapshot {
	snap := NodeSnapshot{
		SID:     n.sid,
		Title:   n.title,
		OpCode:  n.opCode,
		PosX:    n.posX,
		PosY:    n.posY,
		Inputs:  make([]SocketSnapshot, 0, len(n.inputs)),
		Outputs: make([]SocketSnapshot, 0, len(n.outputs)),
	}
	for _, socket := range n.inputs {
		snap.Inputs = append(snap.Inputs, socket.Serialize())
	}
	for _, socket := range n.outputs {
		snap.Outputs = append(snap.Outputs, socket.Serialize())
	}
	if len(n.content) > 0 {
		snap.Content = make(map[string]any, len(n.content))
		for k, v := range n.content {
			snap.Content[k] = v
		}
	}
	return snap
}
