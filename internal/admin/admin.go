// Package admin exposes test-lifecycle endpoints for the filter service:
// wiping the scheme and filter registries between test runs, and reading
// back their sizes.
package admin

import (
	"encoding/json"
	"net/http"

	"github.com/filterlang/filterlang/internal/store"
)

// NewHandler returns an HTTP handler for the admin API.
//
//	POST /admin/reset  -> 204, registries emptied and filter IDs restarted
//	GET  /admin/state  -> {"schemes": n, "filters": n}
func NewHandler(s store.Store) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/reset", func(w http.ResponseWriter, r *http.Request) {
		s.Reset()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /admin/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.State())
	})
	return mux
}
