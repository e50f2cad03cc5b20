// Package devserver is an in-memory implementation of the remote authority
// API, used as a local development target and by integration tests. State
// lives in process memory and is lost on restart.
package devserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/larder-app/larder/internal/client/models"
)

// Server holds the in-memory catalog and serves the JSON API.
type Server struct {
	mu       sync.Mutex
	items    map[string]models.Item
	statuses map[string]models.Status
}

// New returns an empty Server.
func New() *Server {
	return &Server{
		items:    map[string]models.Item{},
		statuses: map[string]models.Status{},
	}
}

// Router returns the API handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", s.ping)

		r.Route("/items", func(r chi.Router) {
			r.Get("/", s.listItems)
			r.Post("/", s.createItem)
			r.Get("/{id}", s.getItem)
			r.Put("/{id}", s.updateItem)
			r.Delete("/{id}", s.deleteItem)
		})

		r.Route("/statuses", func(r chi.Router) {
			r.Get("/", s.listStatuses)
			r.Get("/{itemID}", s.getStatus)
			r.Put("/{itemID}", s.putStatus)
			r.Delete("/{itemID}", s.deleteStatus)
		})
	})

	return r
}

func (s *Server) ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) listItems(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]models.Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	it, ok := s.items[id]
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var it models.Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if it.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "item name is required")
		return
	}
	// An explicit id is honored so a lost-and-recreated entity keeps its
	// identity; otherwise the server assigns one.
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	it.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	s.items[it.ID] = it
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var it models.Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if it.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "item name is required")
		return
	}
	it.ID = id
	it.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	_, ok := s.items[id]
	if ok {
		s.items[id] = it
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	_, ok := s.items[id]
	if ok {
		delete(s.items, id)
		delete(s.statuses, id)
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listStatuses(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]models.Status, 0, len(s.statuses))
	for _, st := range s.statuses {
		out = append(out, st)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	s.mu.Lock()
	st, ok := s.statuses[itemID]
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "status not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// putStatus creates or updates a status under optimistic concurrency: the
// submitted version must equal the stored one (zero when absent) and the
// accepted record comes back incremented.
func (s *Server) putStatus(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	var st models.Status
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if st.Classification == "" {
		writeError(w, http.StatusUnprocessableEntity, "classification is required")
		return
	}
	st.ItemID = itemID

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[itemID]; !ok {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	cur, ok := s.statuses[itemID]
	if !ok {
		st.Version = 1
	} else {
		if st.Version != cur.Version {
			writeError(w, http.StatusConflict, "version mismatch")
			return
		}
		st.Version = cur.Version + 1
	}
	st.UpdatedAt = time.Now().UTC()
	s.statuses[itemID] = st

	writeJSON(w, http.StatusOK, st)
}

func (s *Server) deleteStatus(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	s.mu.Lock()
	_, ok := s.statuses[itemID]
	if ok {
		delete(s.statuses, itemID)
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "status not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
