// ABOUTME: HTTP server struct with chi router, session store, and optional snapshot library
// ABOUTME: Configures all JSON API routes and wires handler methods via functional options

package editor

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/2389-research/nodegraph/store"
)

// ServerOption configures optional Server behavior.
type ServerOption func(*Server)

// WithLibrary attaches a named-snapshot library so sessions can be saved to
// and opened from disk.
func WithLibrary(lib *store.Library) ServerOption {
	return func(s *Server) {
		s.library = lib
	}
}

// Server holds the chi router, session store, and optional library. All
// endpoints speak JSON; the server carries no rendering surface.
type Server struct {
	router  chi.Router
	store   *Store
	library *store.Library
}

// NewServer creates a Server with all routes configured. Optional
// ServerOption values configure additional behavior such as the library.
func NewServer(sessions *Store, opts ...ServerOption) *Server {
	s := &Server{
		store: sessions,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Build router
	r := chi.NewRouter()

	// Session lifecycle
	r.Post("/sessions", s.handleCreateSession)
	r.Get("/sessions/{id}", s.handleGetSession)
	r.Delete("/sessions/{id}", s.handleDeleteSession)
	r.Get("/sessions/{id}/snapshot", s.handleGetSnapshot)
	r.Post("/sessions/{id}/snapshot", s.handleLoadSnapshot)

	// Mutation handlers
	r.Post("/sessions/{id}/nodes", s.handleAddNode)
	r.Delete("/sessions/{id}/nodes/{sid}", s.handleDeleteNode)
	r.Post("/sessions/{id}/nodes/{sid}/position", s.handleMoveNode)
	r.Post("/sessions/{id}/nodes/{sid}/content", s.handleNodeContent)
	r.Post("/sessions/{id}/edges", s.handleAddEdge)
	r.Delete("/sessions/{id}/edges/{sid}", s.handleDeleteEdge)
	r.Post("/sessions/{id}/selection", s.handleSelection)
	r.Post("/sessions/{id}/undo", s.handleUndo)
	r.Post("/sessions/{id}/redo", s.handleRedo)
	r.Post("/sessions/{id}/copy", s.handleCopy)
	r.Post("/sessions/{id}/cut", s.handleCut)
	r.Post("/sessions/{id}/paste", s.handlePaste)
	r.Post("/sessions/{id}/evaluate", s.handleEvaluate)

	// Library
	r.Get("/library", s.handleLibraryList)
	r.Post("/sessions/{id}/save", s.handleLibrarySave)
	r.Post("/library/{name}/open", s.handleLibraryOpen)
	r.Delete("/library/{name}", s.handleLibraryDelete)

	s.router = r
	return s
}

// ServeHTTP implements the http.Handler interface, delegating to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
