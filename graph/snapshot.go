// ABOUTME: I/O-free snapshot serialization, validation, and restore with id-resolution mapping.
// ABOUTME: Accepts legacy integer-id snapshots by synthesizing fresh ULIDs through a migration path.
package graph

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SnapshotVersion is the schema version written by Serialize. Snapshots with
// a major version below 2 use integer identities and go through migration.
const SnapshotVersion = "2.0.0"

// Snapshot is the plain-data representation of a graph's full state.
// Producing one involves no file access; persistence is an external adapter.
type Snapshot struct {
	Version string         `json:"version"`
	SID     string         `json:"sid,omitempty"`
	Width   int            `json:"scene_width"`
	Height  int            `json:"scene_height"`
	Nodes   []NodeSnapshot `json:"nodes"`
	Edges   []EdgeSnapshot `json:"edges"`

	// LegacyID carries the integer identity of pre-2.0.0 files.
	LegacyID int64 `json:"id,omitempty"`
}

// NodeSnapshot is the snapshot form of one node.
type NodeSnapshot struct {
	SID      string           `json:"sid,omitempty"`
	LegacyID int64            `json:"id,omitempty"`
	Title    string           `json:"title"`
	OpCode   int              `json:"op_code"`
	PosX     float64          `json:"pos_x"`
	PosY     float64          `json:"pos_y"`
	Inputs   []SocketSnapshot `json:"inputs"`
	Outputs  []SocketSnapshot `json:"outputs"`
	Content  map[string]any   `json:"content,omitempty"`
}

// SocketSnapshot is the snapshot form of one socket. MultiEdges is a pointer
// because version 2 snapshots must carry it explicitly; only the legacy
// migration path may infer it from the socket position.
type SocketSnapshot struct {
	SID        string   `json:"sid,omitempty"`
	LegacyID   int64    `json:"id,omitempty"`
	Index      int      `json:"index"`
	Position   Position `json:"position"`
	SocketType int      `json:"socket_type"`
	MultiEdges *bool    `json:"multi_edges,omitempty"`
}

// EdgeSnapshot is the snapshot form of one edge. Endpoints are referenced by
// socket sid, or by legacy integer id in pre-2.0.0 files.
type EdgeSnapshot struct {
	SID         string   `json:"sid,omitempty"`
	LegacyID    int64    `json:"id,omitempty"`
	Kind        EdgeKind `json:"edge_kind"`
	StartSID    string   `json:"start_sid,omitempty"`
	EndSID      string   `json:"end_sid,omitempty"`
	LegacyStart int64    `json:"start,omitempty"`
	LegacyEnd   int64    `json:"end,omitempty"`
}

// Serialize returns the graph's full state as a plain nested structure.
// Nodes and edges appear in creation order, so equal graphs serialize
// identically.
func (g *Graph) Serialize() *Snapshot {
	snap := &Snapshot{
		Version: SnapshotVersion,
		SID:     g.sid,
		Width:   g.width,
		Height:  g.height,
		Nodes:   make([]NodeSnapshot, 0, len(g.nodes)),
		Edges:   make([]EdgeSnapshot, 0, len(g.edges)),
	}
	for _, n := range g.nodes {
		snap.Nodes = append(snap.Nodes, n.Serialize())
	}
	for _, e := range g.edges {
		snap.Edges = append(snap.Edges, e.Serialize())
	}
	return snap
}

// FromSnapshot builds a fresh graph from a snapshot, resolving concrete node
// kinds through the resolver (nil restores every node as generic). The graph
// is returned only on full success, so a failed load can never leave a
// half-built document in the caller's hands.
func FromSnapshot(snap *Snapshot, resolver KindResolver) (*Graph, error) {
	g := New()
	g.resolver = resolver
	if err := g.Restore(snap); err != nil {
		return nil, err
	}
	g.modified = false
	return g, nil
}

// Restore replaces the graph's contents with the snapshot's. The snapshot is
// validated in full and rebuilt into scratch storage before the graph is
// touched; on any error the graph is left exactly as it was.
//
// Version 2 snapshots restore persisted sids. Legacy snapshots synthesize
// fresh sids and resolve structural references through the legacy integer
// keys, which never survive as identities.
func (g *Graph) Restore(snap *Snapshot) error {
	legacy, err := checkSnapshot(snap)
	if err != nil {
		return err
	}

	scratch := New()
	scratch.resolver = g.resolver
	ids := make(idMap)
	for _, ns := range snap.Nodes {
		if _, err := buildNode(scratch, ns, !legacy, legacy, ids); err != nil {
			return err
		}
	}
	for _, es := range snap.Edges {
		if _, err := buildEdge(scratch, es, !legacy, legacy, ids); err != nil {
			return err
		}
	}

	if !legacy {
		g.sid = snap.SID
	}
	g.width = snap.Width
	g.height = snap.Height
	g.nodes = scratch.nodes
	g.edges = scratch.edges
	for _, n := range g.nodes {
		n.graph = g
	}
	for _, e := range g.edges {
		e.graph = g
	}
	g.modified = true
	return nil
}

// idMap is the transient id-resolution map built while deserializing
// sockets, keyed by persisted sid or by the decimal form of a legacy
// integer id. It exists only for the duration of one restore or paste.
type idMap map[string]*Socket

func socketKey(ss SocketSnapshot, legacy bool) string {
	if legacy {
		return strconv.FormatInt(ss.LegacyID, 10)
	}
	return ss.SID
}

func edgeEndpointKeys(es EdgeSnapshot, legacy bool) (start, end string) {
	if legacy {
		return strconv.FormatInt(es.LegacyStart, 10), strconv.FormatInt(es.LegacyEnd, 10)
	}
	return es.StartSID, es.EndSID
}

// checkSnapshot validates a snapshot before any state is built: version,
// required fields, identity uniqueness, and edge endpoint resolvability.
// Reports whether the snapshot is in the legacy (integer-id) schema.
func checkSnapshot(snap *Snapshot) (legacy bool, err error) {
	if snap == nil {
		return false, deserializeErrf("", "", "nil snapshot")
	}
	major, err := majorVersion(snap.Version)
	if err != nil {
		return false, err
	}
	legacy = major < 2

	if !legacy && snap.SID == "" {
		return false, deserializeErrf("sid", "", "required in version %s snapshots", snap.Version)
	}

	identities := map[string]bool{}
	claim := func(field, id string) error {
		if id == "" {
			return deserializeErrf(field, "", "required")
		}
		if identities[id] {
			return deserializeErrf(field, id, "duplicate identity")
		}
		identities[id] = true
		return nil
	}

	sockets := map[string]bool{}
	for _, ns := range snap.Nodes {
		if legacy {
			if ns.LegacyID == 0 {
				return legacy, deserializeErrf("id", "", "required on legacy node entries")
			}
		} else if err := claim("sid", ns.SID); err != nil {
			return legacy, err
		}
		for _, ss := range append(append([]SocketSnapshot{}, ns.Inputs...), ns.Outputs...) {
			if legacy {
				if ss.LegacyID == 0 {
					return legacy, deserializeErrf("id", "", "required on legacy socket entries")
				}
			} else {
				if err := claim("sid", ss.SID); err != nil {
					return legacy, err
				}
				if ss.MultiEdges == nil {
					return legacy, deserializeErrf("multi_edges", ss.SID, "required")
				}
			}
			key := socketKey(ss, legacy)
			if sockets[key] {
				return legacy, deserializeErrf("socket", key, "duplicate identity")
			}
			sockets[key] = true
		}
	}

	for _, es := range snap.Edges {
		if legacy {
			if es.LegacyID == 0 {
				return legacy, deserializeErrf("id", "", "required on legacy edge entries")
			}
		} else if err := claim("sid", es.SID); err != nil {
			return legacy, err
		}
		start, end := edgeEndpointKeys(es, legacy)
		startField, endField := "start_sid", "end_sid"
		if legacy {
			startField, endField = "start", "end"
		}
		if !sockets[start] {
			return legacy, deserializeErrf(startField, start, "does not resolve to a socket in this snapshot")
		}
		if !sockets[end] {
			return legacy, deserializeErrf(endField, end, "does not resolve to a socket in this snapshot")
		}
	}
	return legacy, nil
}

// majorVersion parses the leading integer of a version string.
func majorVersion(version string) (int, error) {
	head, _, _ := strings.Cut(version, ".")
	major, err := strconv.Atoi(head)
	if err != nil {
		return 0, deserializeErrf("version", version, "not a valid version")
	}
	return major, nil
}

// buildNode constructs one node from its snapshot entry and records its
// sockets in the id-resolution map. With restoreID false (clipboard paste,
// legacy migration) the node and its sockets receive brand-new identities
// while the map still keys by the persisted ones, so sibling edge entries
// resolve correctly.
func buildNode(g *Graph, ns NodeSnapshot, restoreID, legacy bool, ids idMap) (*Node, error) {
	n := &Node{
		graph:   g,
		title:   ns.Title,
		posX:    ns.PosX,
		posY:    ns.PosY,
		opCode:  ns.OpCode,
		content: map[string]any{},
	}
	if restoreID {
		n.sid = ns.SID
	} else {
		n.sid = NewSID()
	}
	if g.resolver != nil {
		if k := g.resolver(ns); k != nil {
			n.kind = k
		}
	}

	for _, ss := range sortedSockets(ns.Inputs) {
		s := buildSocket(n, ss, restoreID, legacy, true)
		n.inputs = append(n.inputs, s)
		ids[socketKey(ss, legacy)] = s
	}
	for _, ss := range sortedSockets(ns.Outputs) {
		s := buildSocket(n, ss, restoreID, legacy, false)
		n.outputs = append(n.outputs, s)
		ids[socketKey(ss, legacy)] = s
	}

	for k, v := range ns.Content {
		n.content[k] = v
	}
	g.addNode(n)

	if hook, ok := n.kind.(ContentHook); ok {
		if err := hook.RestoreContent(n, n.content); err != nil {
			return nil, fmt.Errorf("restore content for node %s: %w", n.sid, err)
		}
	}
	return n, nil
}

func buildSocket(n *Node, ss SocketSnapshot, restoreID, legacy, isInput bool) *Socket {
	multi := false
	switch {
	case ss.MultiEdges != nil:
		multi = *ss.MultiEdges
	case legacy:
		// Older files carried no multi_edges field; right-side sockets
		// were multi-edge by convention.
		multi = ss.Position.rightSide()
	}
	s := &Socket{
		node:       n,
		index:      ss.Index,
		position:   ss.Position,
		socketType: ss.SocketType,
		multiEdges: multi,
		isInput:    isInput,
	}
	if restoreID {
		s.sid = ss.SID
	} else {
		s.sid = NewSID()
	}
	return s
}

// buildEdge constructs one edge, resolving both endpoints through the
// id-resolution map. A missing key or a multiplicity violation is fatal.
func buildEdge(g *Graph, es EdgeSnapshot, restoreID, legacy bool, ids idMap) (*Edge, error) {
	startKey, endKey := edgeEndpointKeys(es, legacy)
	start, ok := ids[startKey]
	if !ok {
		return nil, deserializeErrf("start_sid", startKey, "does not resolve to a deserialized socket")
	}
	end, ok := ids[endKey]
	if !ok {
		return nil, deserializeErrf("end_sid", endKey, "does not resolve to a deserialized socket")
	}

	kind := es.Kind
	if kind == 0 {
		kind = EdgeKindDefault
	}
	e := &Edge{
		graph: g,
		kind:  kind,
		start: start,
		end:   end,
	}
	if restoreID {
		e.sid = es.SID
	} else {
		e.sid = NewSID()
	}
	if err := start.attach(e); err != nil {
		return nil, deserializeErrf("start_sid", startKey, "socket policy violated: %v", err)
	}
	if err := end.attach(e); err != nil {
		start.detach(e)
		return nil, deserializeErrf("end_sid", endKey, "socket policy violated: %v", err)
	}
	g.edges = append(g.edges, e)
	return e, nil
}

// sortedSockets orders socket entries the way the node lays them out, so
// hand-edited files with shuffled entries still restore deterministically.
func sortedSockets(entries []SocketSnapshot) []SocketSnapshot {
	out := make([]SocketSnapshot, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].Index < out[j].Index
	})
	return out
}
