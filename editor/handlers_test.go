// ABOUTME: HTTP-level tests for the editing API using httptest against the chi router.
// ABOUTME: Covers session lifecycle, mutations, status-code mapping, undo, and library endpoints.
package editor_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/2389-research/nodegraph/editor"
	"github.com/2389-research/nodegraph/graph"
	"github.com/2389-research/nodegraph/nodes"
	"github.com/2389-research/nodegraph/store"
)

// testServer builds a server with a library rooted in a temp dir.
func testServer(t *testing.T) *editor.Server {
	t.Helper()
	lib, err := store.OpenLibrary(t.TempDir())
	if err != nil {
		t.Fatalf("OpenLibrary: %v", err)
	}
	t.Cleanup(func() { lib.Close() })

	sessions := editor.NewStore(nodes.DefaultRegistry(), 10, time.Hour, 0)
	return editor.NewServer(sessions, editor.WithLibrary(lib))
}

// do sends a JSON request and decodes the JSON response into out (when non-nil).
func do(t *testing.T, srv *editor.Server, method, path string, body, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w
}

type stateResp struct {
	SessionID string          `json:"session_id"`
	CanUndo   bool            `json:"can_undo"`
	CanRedo   bool            `json:"can_redo"`
	Modified  bool            `json:"modified"`
	Snapshot  *graph.Snapshot `json:"snapshot"`
}

type nodeResp struct {
	SID    string `json:"sid"`
	OpCode int    `json:"op_code"`
}

func createSession(t *testing.T, srv *editor.Server) stateResp {
	t.Helper()
	var state stateResp
	w := do(t, srv, http.MethodPost, "/sessions", nil, &state)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: status %d, body %s", w.Code, w.Body.String())
	}
	return state
}

func addNode(t *testing.T, srv *editor.Server, sessionID string, opCode int) nodeResp {
	t.Helper()
	var n nodeResp
	w := do(t, srv, http.MethodPost, "/sessions/"+sessionID+"/nodes",
		map[string]any{"op_code": opCode}, &n)
	if w.Code != http.StatusCreated {
		t.Fatalf("add node: status %d, body %s", w.Code, w.Body.String())
	}
	return n
}

// socketSID digs a socket sid out of the session snapshot.
func socketSID(t *testing.T, srv *editor.Server, sessionID, nodeSID string, output bool, index int) string {
	t.Helper()
	var state stateResp
	w := do(t, srv, http.MethodGet, "/sessions/"+sessionID, nil, &state)
	if w.Code != http.StatusOK {
		t.Fatalf("get session: status %d", w.Code)
	}
	for _, ns := range state.Snapshot.Nodes {
		if ns.SID != nodeSID {
			continue
		}
		list := ns.Inputs
		if output {
			list = ns.Outputs
		}
		if index < len(list) {
			return list[index].SID
		}
	}
	t.Fatalf("socket not found for node %s", nodeSID)
	return ""
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	srv := testServer(t)

	state := createSession(t, srv)
	if state.SessionID == "" {
		t.Fatal("missing session id")
	}
	if state.CanUndo {
		t.Error("fresh session should not be undoable")
	}

	w := do(t, srv, http.MethodGet, "/sessions/"+state.SessionID, nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get: status %d", w.Code)
	}

	w = do(t, srv, http.MethodDelete, "/sessions/"+state.SessionID, nil, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete: status %d", w.Code)
	}

	w = do(t, srv, http.MethodGet, "/sessions/"+state.SessionID, nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete: status %d, want 404", w.Code)
	}
}

func TestAddConnectEvaluateOverHTTP(t *testing.T) {
	srv := testServer(t)
	sessionID := createSession(t, srv).SessionID

	two := addNode(t, srv, sessionID, nodes.OpNumber)
	three := addNode(t, srv, sessionID, nodes.OpNumber)
	add := addNode(t, srv, sessionID, nodes.OpAdd)

	for sid, v := range map[string]float64{two.SID: 2, three.SID: 3} {
		w := do(t, srv, http.MethodPost,
			fmt.Sprintf("/sessions/%s/nodes/%s/content", sessionID, sid),
			map[string]any{"content": map[string]any{"value": v}}, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("set content: status %d, body %s", w.Code, w.Body.String())
		}
	}

	pairs := [][2]string{
		{socketSID(t, srv, sessionID, two.SID, true, 0), socketSID(t, srv, sessionID, add.SID, false, 0)},
		{socketSID(t, srv, sessionID, three.SID, true, 0), socketSID(t, srv, sessionID, add.SID, false, 1)},
	}
	for _, p := range pairs {
		w := do(t, srv, http.MethodPost, "/sessions/"+sessionID+"/edges",
			map[string]any{"start_sid": p[0], "end_sid": p[1]}, nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("connect: status %d, body %s", w.Code, w.Body.String())
		}
	}

	var result struct {
		Nodes []struct {
			SID     string  `json:"sid"`
			Invalid bool    `json:"invalid"`
			Value   float64 `json:"value"`
		} `json:"nodes"`
	}
	w := do(t, srv, http.MethodPost, "/sessions/"+sessionID+"/evaluate", nil, &result)
	if w.Code != http.StatusOK {
		t.Fatalf("evaluate: status %d", w.Code)
	}
	found := false
	for _, n := range result.Nodes {
		if n.SID == add.SID {
			found = true
			if n.Invalid {
				t.Error("add node invalid")
			}
			if n.Value != 5 {
				t.Errorf("add value: got %v, want 5", n.Value)
			}
		}
	}
	if !found {
		t.Error("add node missing from evaluation report")
	}
}

func TestRejectedConnectionReturnsConflict(t *testing.T) {
	srv := testServer(t)
	sessionID := createSession(t, srv).SessionID

	a := addNode(t, srv, sessionID, nodes.OpNumber)
	b := addNode(t, srv, sessionID, nodes.OpNumber)

	w := do(t, srv, http.MethodPost, "/sessions/"+sessionID+"/edges", map[string]any{
		"start_sid": socketSID(t, srv, sessionID, a.SID, true, 0),
		"end_sid":   socketSID(t, srv, sessionID, b.SID, true, 0),
	}, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("output-to-output connect: status %d, want 409", w.Code)
	}
}

func TestUndoOverHTTP(t *testing.T) {
	srv := testServer(t)
	sessionID := createSession(t, srv).SessionID
	addNode(t, srv, sessionID, nodes.OpNumber)

	var state stateResp
	w := do(t, srv, http.MethodPost, "/sessions/"+sessionID+"/undo", nil, &state)
	if w.Code != http.StatusOK {
		t.Fatalf("undo: status %d, body %s", w.Code, w.Body.String())
	}
	if len(state.Snapshot.Nodes) != 0 {
		t.Errorf("after undo: %d nodes, want 0", len(state.Snapshot.Nodes))
	}
	if !state.CanRedo {
		t.Error("undo should enable redo")
	}

	// A second undo has nothing left to revert.
	w = do(t, srv, http.MethodPost, "/sessions/"+sessionID+"/undo", nil, nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("undo at bottom: status %d, want 422", w.Code)
	}
}

func TestLoadBrokenSnapshotReturns422(t *testing.T) {
	srv := testServer(t)
	sessionID := createSession(t, srv).SessionID

	snap := map[string]any{
		"version":      "2.0.0",
		"scene_width":  1,
		"scene_height": 1,
		"nodes":        []any{},
		"edges":        []any{},
		// sid missing
	}
	w := do(t, srv, http.MethodPost, "/sessions/"+sessionID+"/snapshot", snap, nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("broken snapshot: status %d, want 422", w.Code)
	}
}

func TestCopyPasteOverHTTP(t *testing.T) {
	srv := testServer(t)
	sessionID := createSession(t, srv).SessionID
	n := addNode(t, srv, sessionID, nodes.OpNumber)

	w := do(t, srv, http.MethodPost, "/sessions/"+sessionID+"/selection",
		map[string]any{"nodes": []string{n.SID}}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("selection: status %d", w.Code)
	}

	w = do(t, srv, http.MethodPost, "/sessions/"+sessionID+"/copy", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("copy: status %d, body %s", w.Code, w.Body.String())
	}

	var pasted struct {
		Created []string `json:"created"`
	}
	w = do(t, srv, http.MethodPost, "/sessions/"+sessionID+"/paste",
		map[string]any{"offset_x": 10, "offset_y": 10}, &pasted)
	if w.Code != http.StatusCreated {
		t.Fatalf("paste: status %d, body %s", w.Code, w.Body.String())
	}
	if len(pasted.Created) != 1 {
		t.Fatalf("created: got %d, want 1", len(pasted.Created))
	}
	if pasted.Created[0] == n.SID {
		t.Error("paste reused the original sid")
	}
}

func TestLibraryEndpoints(t *testing.T) {
	srv := testServer(t)
	sessionID := createSession(t, srv).SessionID
	addNode(t, srv, sessionID, nodes.OpNumber)

	w := do(t, srv, http.MethodPost, "/sessions/"+sessionID+"/save",
		map[string]any{"name": "scratch"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("save: status %d, body %s", w.Code, w.Body.String())
	}

	var list struct {
		Entries []struct {
			Name      string `json:"Name"`
			NodeCount int    `json:"NodeCount"`
		} `json:"entries"`
	}
	w = do(t, srv, http.MethodGet, "/library", nil, &list)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status %d", w.Code)
	}
	if len(list.Entries) != 1 || list.Entries[0].Name != "scratch" {
		t.Fatalf("entries: %+v", list.Entries)
	}

	var opened stateResp
	w = do(t, srv, http.MethodPost, "/library/scratch/open", nil, &opened)
	if w.Code != http.StatusCreated {
		t.Fatalf("open: status %d, body %s", w.Code, w.Body.String())
	}
	if opened.SessionID == sessionID {
		t.Error("open should create a new session")
	}
	if len(opened.Snapshot.Nodes) != 1 {
		t.Errorf("opened nodes: got %d, want 1", len(opened.Snapshot.Nodes))
	}

	w = do(t, srv, http.MethodDelete, "/library/scratch", nil, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete: status %d", w.Code)
	}
	w = do(t, srv, http.MethodPost, "/library/scratch/open", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("open after delete: status %d, want 404", w.Code)
	}
}

func TestUnknownEntityIs404(t *testing.T) {
	srv := testServer(t)
	sessionID := createSession(t, srv).SessionID

	w := do(t, srv, http.MethodDelete, "/sessions/"+sessionID+"/nodes/01ARZ3NDEKTSV4RRFFQ69G5FAV", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("delete unknown node: status %d, want 404", w.Code)
	}

	w = do(t, srv, http.MethodDelete, "/sessions/"+sessionID+"/edges/01ARZ3NDEKTSV4RRFFQ69G5FAV", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("delete unknown edge: status %d, want 404", w.Code)
	}

	w = do(t, srv, http.MethodPost, "/sessions/"+sessionID+"/edges",
		map[string]any{"start_sid": "missing", "end_sid": "missing"}, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("connect unknown sockets: status %d, want 404", w.Code)
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	srv := testServer(t)
	w := do(t, srv, http.MethodPost, "/sessions/nope/undo", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status %d, want 404", w.Code)
	}
}
