// Package api serves the store's read contract over HTTP and broadcasts
// ETL progress over WebSocket. The reading front-end consumes these
// endpoints; it is not part of this repository.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/FocuswithJustin/BodhiCanon/core/store"
	"github.com/FocuswithJustin/BodhiCanon/internal/cache"
	"github.com/FocuswithJustin/BodhiCanon/internal/config"
	"github.com/FocuswithJustin/BodhiCanon/internal/logging"
)

// searchCacheTTL bounds staleness between an external writer committing
// and the cache noticing; jobs run through this server clear it directly.
const searchCacheTTL = 30 * time.Second

// Server bundles the query handlers, the progress hub, and the job store.
type Server struct {
	store    *store.Store
	cfg      *config.Config
	hub      *Hub
	jobs     *JobStore
	searches *cache.TTLCache[string, []store.SearchHit]
}

// NewServer builds a server around an open store.
func NewServer(st *store.Store, cfg *config.Config) *Server {
	return &Server{
		store:    st,
		cfg:      cfg,
		hub:      NewHub(),
		jobs:     NewJobStore(),
		searches: cache.New[string, []store.SearchHit](searchCacheTTL),
	}
}

// Hub exposes the progress hub so pipelines started outside the API can
// broadcast into it.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(logging.CombinedMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog", s.handleListCatalog)
		r.Get("/catalog/{id}", s.handleCatalog)
		r.Get("/content/{id}/{chapter}", s.handleContent)
		r.Get("/toc/{id}", s.handleTOC)
		r.Get("/apparatus/{id}/{chapter}", s.handleApparatus)
		r.Get("/notes/{id}/{chapter}", s.handleNotes)
		r.Get("/search", s.handleSearch)

		r.Post("/etl", s.handleCreateJob)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Delete("/jobs/{id}", s.handleCancelJob)
	})

	return r
}

// ListenAndServe starts the hub loop and serves until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	go s.hub.Run()
	logging.ServerStartup("query-api", "http", portOf(addr))
	return http.ListenAndServe(addr, s.Router())
}

func portOf(addr string) int {
	port := 0
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			for _, c := range addr[i+1:] {
				if c < '0' || c > '9' {
					return 0
				}
				port = port*10 + int(c-'0')
			}
			return port
		}
	}
	return 0
}

// errorBody is the uniform error envelope.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			logging.Error("response encoding failed", "error", err)
		}
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respond(w, status, errorBody{Code: code, Message: message})
}
