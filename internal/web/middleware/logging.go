// Package middleware provides HTTP middleware for the status server.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/sensoragent/internal/logging"
)

// RequestLogger returns middleware that writes one structured line per
// request once the handler has finished.
//
// Requests to quiet paths (liveness probes, scrapers) are logged at debug.
// Server errors are logged at error and client errors at warn.
//
// Log fields:
//   - method, path: the request line
//   - route: the matched chi pattern, empty when nothing matched
//   - status, bytes: what was written back
//   - duration_ms: time spent in the handler chain
//   - remote: client address as rewritten by chi's RealIP
//   - user_agent
//
// Mount it after RequestID and RealIP so request_id and remote are filled in.
func RequestLogger(quiet ...string) func(http.Handler) http.Handler {
	quietPaths := make(map[string]struct{}, len(quiet))
	for _, p := range quiet {
		quietPaths[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				// Handler wrote nothing; net/http sends 200.
				status = http.StatusOK
			}

			var route string
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}

			logging.FromContext(r.Context()).Log(r.Context(), level(r.URL.Path, status, quietPaths), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		})
	}
}

func level(path string, status int, quiet map[string]struct{}) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	}
	if _, ok := quiet[path]; ok {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
