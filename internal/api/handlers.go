package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/FocuswithJustin/BodhiCanon/core/errors"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// docAndChapter pulls the {id}/{chapter} route pair; chapter must be a
// positive integer.
func docAndChapter(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	id := chi.URLParam(r, "id")
	chapter, err := strconv.Atoi(chi.URLParam(r, "chapter"))
	if err != nil || chapter < 1 {
		respondError(w, http.StatusBadRequest, "INVALID_CHAPTER", "chapter must be a positive integer")
		return "", 0, false
	}
	return id, chapter, true
}

// storeError maps read-contract failures onto HTTP statuses.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errors.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, errors.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
	}
}

func (s *Server) handleListCatalog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListCatalog(r.Context(), r.URL.Query().Get("collection"))
	if err != nil {
		storeError(w, err)
		return
	}
	respond(w, http.StatusOK, entries)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	entry, err := s.store.GetCatalog(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	respond(w, http.StatusOK, entry)
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	id, chapter, ok := docAndChapter(w, r)
	if !ok {
		return
	}
	content, err := s.store.GetContent(r.Context(), id, chapter)
	if err != nil {
		storeError(w, err)
		return
	}
	respond(w, http.StatusOK, content)
}

func (s *Server) handleTOC(w http.ResponseWriter, r *http.Request) {
	toc, err := s.store.GetTOC(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	respond(w, http.StatusOK, toc)
}

func (s *Server) handleApparatus(w http.ResponseWriter, r *http.Request) {
	id, chapter, ok := docAndChapter(w, r)
	if !ok {
		return
	}
	apps, err := s.store.GetApparatus(r.Context(), id, chapter)
	if err != nil {
		storeError(w, err)
		return
	}
	respond(w, http.StatusOK, apps)
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	id, chapter, ok := docAndChapter(w, r)
	if !ok {
		return
	}
	notes, err := s.store.GetNotes(r.Context(), id, chapter)
	if err != nil {
		storeError(w, err)
		return
	}
	respond(w, http.StatusOK, notes)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}
	key := strconv.Itoa(limit) + "\x00" + q
	if hits, ok := s.searches.Get(key); ok {
		respond(w, http.StatusOK, hits)
		return
	}

	hits, err := s.store.Search(r.Context(), q, limit)
	if err != nil {
		storeError(w, err)
		return
	}
	s.searches.Set(key, hits)
	respond(w, http.StatusOK, hits)
}
