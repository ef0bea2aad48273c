package web

// errors.go provides unified error response handling for the web layer.
//
// Errors are logged server-side with the request id for correlation and
// returned to clients as JSON for /api routes and plain text otherwise.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/sensoragent/internal/logging"
)

var errNotFound = errors.New("not found")

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// respondError logs err and writes a response suited to the request.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	logger := logging.FromContext(r.Context())
	level := slog.LevelError
	if statusCode < http.StatusInternalServerError {
		level = slog.LevelDebug
	}
	logger.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
	)

	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(ErrorResponse{
			Error: http.StatusText(statusCode),
			Code:  statusCode,
		})
		return
	}
	http.Error(w, http.StatusText(statusCode), statusCode)
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}

	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
