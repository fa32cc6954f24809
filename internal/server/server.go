// Package server exposes path and title-search queries over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"wikipath/internal/search"
	"wikipath/internal/storage"
)

// Server serves read-only queries against a complete index.
type Server struct {
	finder *search.Finder
}

// New builds the HTTP handler around an open finder.
func New(finder *search.Finder) http.Handler {
	s := &Server{finder: finder}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/path", s.handlePath)
	r.Get("/search", s.handleSearch)
	r.Get("/healthz", s.handleHealth)
	return r
}

type pathResponse struct {
	Path   []string `json:"path"`
	Length int      `json:"length"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "from and to query parameters are required"})
		return
	}

	path, err := s.finder.Path(r.Context(), from, to, false)
	switch {
	case errors.Is(err, storage.ErrUnknownTitle):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, search.ErrNoPath):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case err != nil:
		log.Printf("path query failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	default:
		writeJSON(w, http.StatusOK, pathResponse{Path: path, Length: len(path) - 1})
	}
}

type searchMatch struct {
	ID       uint32 `json:"id"`
	Title    string `json:"title"`
	Redirect bool   `json:"redirect,omitempty"`
}

type searchResponse struct {
	Matches []searchMatch `json:"matches"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "q query parameter is required"})
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be between 1 and 1000"})
			return
		}
		limit = n
	}

	matches, err := s.finder.Store().SearchTitles(q, limit)
	if err != nil {
		log.Printf("title search failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	resp := searchResponse{Matches: make([]searchMatch, len(matches))}
	for i, m := range matches {
		resp.Matches[i] = searchMatch{
			ID:       uint32(m.ID),
			Title:    string(m.Title),
			Redirect: m.IsRedirect,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
