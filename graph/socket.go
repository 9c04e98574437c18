// ABOUTME: Socket type: a typed connection point owned by a node, tracking attached edges.
// ABOUTME: Enforces the single-edge policy and carries the position anchor and type tag.
package graph

import "fmt"

// Position is the anchor slot a socket occupies on its node. It is layout
// information carried through serialization, never interpreted by the engine.
type Position int

const (
	LeftTop Position = iota + 1
	LeftCenter
	LeftBottom
	RightTop
	RightCenter
	RightBottom
)

// rightSide reports whether the position sits on the node's output side.
// Legacy snapshots without an explicit multi_edges field used this to decide
// the multi-edge policy.
func (p Position) rightSide() bool {
	return p == RightTop || p == RightCenter || p == RightBottom
}

// Socket is a connection point on a node. Sockets are created by their node
// at construction time and never added or removed afterwards.
type Socket struct {
	sid        string
	node       *Node
	index      int
	position   Position
	socketType int
	multiEdges bool
	isInput    bool
	edges      []*Edge
}

func newSocket(n *Node, index int, pos Position, socketType int, multiEdges, isInput bool) *Socket {
	return &Socket{
		sid:        NewSID(),
		node:       n,
		index:      index,
		position:   pos,
		socketType: socketType,
		multiEdges: multiEdges,
		isInput:    isInput,
	}
}

// SID returns the socket's stable identity.
func (s *Socket) SID() string { return s.sid }

// Node returns the owning node.
func (s *Socket) Node() *Node { return s.node }

// Index returns the socket's position within its node's input or output list.
func (s *Socket) Index() int { return s.index }

// Position returns the socket's anchor slot.
func (s *Socket) Position() Position { return s.position }

// Type returns the socket type tag used for connection compatibility.
func (s *Socket) Type() int { return s.socketType }

// MultiEdges reports whether the socket may host more than one edge.
func (s *Socket) MultiEdges() bool { return s.multiEdges }

// IsInput reports whether this is an input-role socket.
func (s *Socket) IsInput() bool { return s.isInput }

// IsOutput reports whether this is an output-role socket.
func (s *Socket) IsOutput() bool { return !s.isInput }

// Edges returns the attached edges. The returned slice is a copy.
func (s *Socket) Edges() []*Edge {
	out := make([]*Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// HasEdges reports whether at least one edge is attached.
func (s *Socket) HasEdges() bool { return len(s.edges) > 0 }

// Connected reports whether the given edge is attached to this socket.
func (s *Socket) Connected(e *Edge) bool {
	for _, attached := range s.edges {
		if attached == e {
			return true
		}
	}
	return false
}

// attach records an edge on this socket. Fails deterministically when a
// single-edge socket already hosts a connection.
func (s *Socket) attach(e *Edge) error {
	if !s.multiEdges && len(s.edges) > 0 {
		return fmt.Errorf("socket %s already occupied: %w", s.sid, ErrConnectionRejected)
	}
	s.edges = append(s.edges, e)
	return nil
}

// detach removes an edge reference. No-op when the edge is not attached.
func (s *Socket) detach(e *Edge) {
	for i, attached := range s.edges {
		if attached == e {
			s.edges = append(s.edges[:i], s.edges[i+1:]...)
			return
		}
	}
}

// Serialize returns the socket's snapshot form.
func (s *Socket) Serialize() SocketSnapshot {
	multi := s.multiEdges
	return SocketSnapshot{
		SID:        s.sid,
		Index:      s.index,
		Position:   s.position,
		SocketType: s.socketType,
		MultiEdges: &multi,
	}
}
