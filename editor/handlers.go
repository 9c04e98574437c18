// ABOUTME: HTTP handler methods for all server endpoints
// ABOUTME: Covers session CRUD, graph mutations, undo/redo, clipboard, evaluation, and the library

package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/2389-research/nodegraph/graph"
)

// maxBodySize caps request bodies so oversized snapshots are rejected early.
const maxBodySize = 10 << 20

// sessionState is the standard response body for session-level requests.
type sessionState struct {
	SessionID string          `json:"session_id"`
	CanUndo   bool            `json:"can_undo"`
	CanRedo   bool            `json:"can_redo"`
	Modified  bool            `json:"modified"`
	Snapshot  *graph.Snapshot `json:"snapshot"`
}

// nodeState reports one node's evaluation-relevant state.
type nodeState struct {
	SID     string  `json:"sid"`
	Title   string  `json:"title"`
	OpCode  int     `json:"op_code"`
	PosX    float64 `json:"pos_x"`
	PosY    float64 `json:"pos_y"`
	Dirty   bool    `json:"dirty"`
	Invalid bool    `json:"invalid"`
	Value   any     `json:"value"`
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// statusForErr maps engine errors onto HTTP statuses: connection policy
// rejections are conflicts, malformed snapshots are unprocessable, and
// missing entities are not found.
func statusForErr(err error) int {
	var dserr *graph.DeserializationError
	switch {
	case errors.Is(err, graph.ErrConnectionRejected):
		return http.StatusConflict
	case errors.As(err, &dserr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	default:
		return http.StatusUnprocessableEntity
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := chi.URLParam(r, "id")
	sess, ok := s.store.Get(id)
	if !ok {
		err := fmt.Errorf("session %s: %w", id, errNotFound)
		writeError(w, statusForErr(err), err)
		return nil, false
	}
	return sess, true
}

func stateOf(sess *Session) sessionState {
	sess.RLock()
	defer sess.RUnlock()
	return sessionState{
		SessionID: sess.ID,
		CanUndo:   sess.History.CanUndo(),
		CanRedo:   sess.History.CanRedo(),
		Modified:  sess.Graph.Modified(),
		Snapshot:  sess.Graph.Serialize(),
	}
}

// handleCreateSession creates a new session, optionally seeded from a
// snapshot in the request body.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Snapshot *graph.Snapshot `json:"snapshot"`
	}
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}

	sess, err := s.store.Create(req.Snapshot)
	if err != nil {
		writeError(w, statusForErr(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, stateOf(sess))
}

// handleGetSession reports session state including the full snapshot.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess))
}

// handleDeleteSession drops the session.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.store.Remove(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleGetSnapshot returns just the serialized graph.
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// handleLoadSnapshot replaces the session's graph with the posted snapshot.
func (s *Server) handleLoadSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var snap graph.Snapshot
	if !decodeBody(w, r, &snap) {
		return
	}
	if err := sess.LoadSnapshot(&snap); err != nil {
		writeError(w, statusForErr(err), err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess))
}

// handleAddNode creates a node from an op code at a position.
func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		OpCode int     `json:"op_code"`
		Title  string  `json:"title"`
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	n, err := sess.AddNode(req.OpCode, req.Title, req.X, req.Y)
	if err != nil {
		writeError(w, statusForErr(err), err)
		return
	}

	sess.RLock()
	x, y := n.Pos()
	resp := nodeState{
		SID:    n.SID(),
		Title:  n.Title(),
		OpCode: n.OpCode(),
		PosX:   x,
		PosY:   y,
		Dirty:  n.Dirty(),
	}
	sess.RUnlock()
	writeJSON(w, http.StatusCreated, resp)
}

// handleDeleteNode removes a node and its connected edges.
func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.RemoveNode(chi.URLParam(r, "sid")); err != nil {
		writeError(w, statusForErr(err), err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess))
}

// handleMoveNode updates a node's position.
func (s *Server) handleMoveNode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := sess.MoveNode(chi.URLParam(r, "sid"), req.X, req.Y); err != nil {
		writeError(w, statusForErr(err), err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess))
}

// handleNodeContent replaces a node's content map.
func (s *Server) handleNodeContent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Content map[string]any `json:"content"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := sess.SetNodeContent(chi.URLParam(r, "sid"), req.Content); err != nil {
		writeError(w, statusForErr(err), err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess))
}

// handleAddEdge connects two sockets. Policy rejections return 409 and
// leave the graph untouched.
func (s *Server) handleAddEdge(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		StartSID string `json:"start_sid"`
		EndSID   string `json:"end_sid"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	e, err := sess.Connect(req.StartSID, req.EndSID)
	if err != nil {
		writeError(w, statusForErr(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, e.Serialize())
}

// handleDeleteEdge removes an edge by its stable ID.
func (s *Server) handleDeleteEdge(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Disconnect(chi.URLParam(r, "sid")); err != nil {
		writeError(w, statusForErr(err), err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess))
}

// handleSelection replaces the selection set.
func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Nodes []string `json:"nodes"`
		Edges []string `json:"edges"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	sess.SetSelection(req.Nodes, req.Edges)
	writeJSON(w, http.StatusOK, stateOf(sess))
}

// handleUndo reverts the last mutation.
func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Undo(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess))
}

// handleRedo reapplies a previously undone mutation.
func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Redo(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess))
}

// handleCopy serializes the selection into the session clipboard.
func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	data, err := sess.Copy()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// handleCut copies the selection and removes it.
func (s *Server) handleCut(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	data, err := sess.Cut()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// handlePaste inserts the clipboard with fresh identities at an offset.
func (s *Server) handlePaste(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		OffsetX float64 `json:"offset_x"`
		OffsetY float64 `json:"offset_y"`
	}
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}

	created, err := sess.Paste(req.OffsetX, req.OffsetY)
	if err != nil {
		writeError(w, statusForErr(err), err)
		return
	}

	sess.RLock()
	sids := make([]string, len(created))
	for i, n := range created {
		sids[i] = n.SID()
	}
	sess.RUnlock()
	writeJSON(w, http.StatusCreated, map[string]any{"created": sids})
}

// handleEvaluate evaluates every stale node and reports per-node state.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.EvaluateAll()

	sess.RLock()
	defer sess.RUnlock()
	states := make([]nodeState, 0, len(sess.Graph.Nodes()))
	for _, n := range sess.Graph.Nodes() {
		x, y := n.Pos()
		states = append(states, nodeState{
			SID:     n.SID(),
			Title:   n.Title(),
			OpCode:  n.OpCode(),
			PosX:    x,
			PosY:    y,
			Dirty:   n.Dirty(),
			Invalid: n.Invalid(),
			Value:   n.Value(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": states})
}

// handleLibraryList returns all library entries.
func (s *Server) handleLibraryList(w http.ResponseWriter, r *http.Request) {
	if s.library == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "library not configured"})
		return
	}
	entries, err := s.library.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// handleLibrarySave persists the session's graph under a name.
func (s *Server) handleLibrarySave(w http.ResponseWriter, r *http.Request) {
	if s.library == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "library not configured"})
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := sess.SaveTo(s.library, req.Name); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess))
}

// handleLibraryOpen creates a new session from a stored snapshot.
func (s *Server) handleLibraryOpen(w http.ResponseWriter, r *http.Request) {
	if s.library == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "library not configured"})
		return
	}
	name := chi.URLParam(r, "name")
	snap, err := s.library.Load(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	sess, err := s.store.Create(snap)
	if err != nil {
		writeError(w, statusForErr(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, stateOf(sess))
}

// handleLibraryDelete removes a stored snapshot.
func (s *Server) handleLibraryDelete(w http.ResponseWriter, r *http.Request) {
	if s.library == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "library not configured"})
		return
	}
	if err := s.library.Delete(chi.URLParam(r, "name")); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
