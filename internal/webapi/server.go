// Package webapi exposes a read-only HTTP view of session state, for
// dashboards that would rather poll an endpoint than tail events.jsonl.
package webapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/hectormr206/orchestra/internal/session"
)

// NewRouter builds the chi router backing the status API, reading
// session state from store.
func NewRouter(store *session.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	r.Get("/sessions", func(w http.ResponseWriter, req *http.Request) {
		filter := session.ListFilter{Status: req.URL.Query().Get("status")}
		summaries, err := store.List(filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, summaries)
	})

	r.Get("/sessions/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		sess, err := store.Load(id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, sess)
	})

	return r
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"error": err.Error()})
}
