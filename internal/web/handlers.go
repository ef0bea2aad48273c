package web

import (
	"net/http"

	"github.com/a-h/templ"
)

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte("ok"))
}

// handleStatus serves the publishing statistics as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, s.status.Snapshot())
}

// handleStatusPage renders the statistics as HTML.
func (s *Server) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	templ.Handler(StatusPage(s.status.Snapshot()),
		templ.WithErrorHandler(renderFailed),
	).ServeHTTP(w, r)
}

func renderFailed(_ *http.Request, err error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, err, http.StatusInternalServerError)
	})
}
