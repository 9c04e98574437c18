// ABOUTME: Clipboard subgraph copy/paste with relocatable identities.
// ABOUTME: Copy keeps only edges fully inside the selection; paste mints fresh sids for everything.
package graph

// ClipboardData is a serialized subgraph suitable for pasting into any
// graph. Edge entries reference the socket sids recorded in Nodes; paste
// remaps them through its own id-resolution map.
type ClipboardData struct {
	Nodes []NodeSnapshot `json:"nodes"`
	Edges []EdgeSnapshot `json:"edges"`
}

// Copy serializes the given nodes and every edge whose both endpoints lie
// within the set. Edges with exactly one endpoint inside are dropped rather
// than copied dangling.
func Copy(nodes []*Node) *ClipboardData {
	data := &ClipboardData{}
	inside := map[string]bool{}
	for _, n := range nodes {
		data.Nodes = append(data.Nodes, n.Serialize())
		for _, s := range n.inputs {
			inside[s.sid] = true
		}
		for _, s := range n.outputs {
			inside[s.sid] = true
		}
	}

	seen := map[string]bool{}
	for _, n := range nodes {
		for _, e := range n.ConnectedEdges() {
			if seen[e.sid] {
				continue
			}
			if inside[e.start.sid] && inside[e.end.sid] {
				seen[e.sid] = true
				data.Edges = append(data.Edges, e.Serialize())
			}
		}
	}
	return data
}

// Paste deserializes clipboard data into the graph with brand-new
// identities, remapping intra-clipboard references and offsetting node
// positions so pasted nodes do not sit exactly on the originals. The pasted
// subgraph becomes the new selection and is returned. On any error the
// graph is left untouched.
func Paste(g *Graph, data *ClipboardData, offsetX, offsetY float64) ([]*Node, error) {
	if err := checkClipboard(data); err != nil {
		return nil, err
	}

	// Build into scratch storage first so a content hook failure cannot
	// leave a partial paste behind.
	scratch := New()
	scratch.resolver = g.resolver
	ids := make(idMap)
	created := make([]*Node, 0, len(data.Nodes))
	for _, ns := range data.Nodes {
		n, err := buildNode(scratch, ns, false, false, ids)
		if err != nil {
			return nil, err
		}
		n.SetPos(ns.PosX+offsetX, ns.PosY+offsetY)
		n.MarkDirty(true)
		n.SetSelected(true)
		created = append(created, n)
	}
	for _, es := range data.Edges {
		if _, err := buildEdge(scratch, es, false, false, ids); err != nil {
			return nil, err
		}
	}

	g.ClearSelection()
	for _, n := range scratch.nodes {
		n.graph = g
		g.nodes = append(g.nodes, n)
	}
	for _, e := range scratch.edges {
		e.graph = g
		g.edges = append(g.edges, e)
	}
	g.modified = true
	return created, nil
}

// checkClipboard validates clipboard data the way checkSnapshot validates a
// full snapshot: explicit multi-edge policy and resolvable edge endpoints.
func checkClipboard(data *ClipboardData) error {
	if data == nil {
		return deserializeErrf("", "", "nil clipboard data")
	}
	sockets := map[string]bool{}
	for _, ns := range data.Nodes {
		for _, ss := range append(append([]SocketSnapshot{}, ns.Inputs...), ns.Outputs...) {
			if ss.SID == "" {
				return deserializeErrf("sid", "", "required on clipboard socket entries")
			}
			if ss.MultiEdges == nil {
				return deserializeErrf("multi_edges", ss.SID, "required")
			}
			if sockets[ss.SID] {
				return deserializeErrf("socket", ss.SID, "duplicate identity")
			}
			sockets[ss.SID] = true
		}
	}
	for _, es := range data.Edges {
		if !sockets[es.StartSID] {
			return deserializeErrf("start_sid", es.StartSID, "does not resolve to a clipboard socket")
		}
		if !sockets[es.EndSID] {
			return deserializeErrf("end_sid", es.EndSID, "does not resolve to a clipboard socket")
		}
	}
	return nil
}
