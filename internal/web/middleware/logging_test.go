package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/sensoragent/internal/logging"
)

// captureLogs routes the default logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.New(&buf, "debug", "json"))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func testRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(RequestLogger("/healthz"))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})
	r.Get("/api/status/{part}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	return r
}

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantLevel string
		wantCode  int
		wantRoute string
		wantBytes int
	}{
		{"matched route", "/api/status/counters", "INFO", http.StatusOK, "/api/status/{part}", len(`{"ok":true}`)},
		{"quiet path", "/healthz", "DEBUG", http.StatusOK, "/healthz", 0},
		{"not found", "/missing", "WARN", http.StatusNotFound, "", len("404 page not found\n")},
		{"server error", "/broken", "ERROR", http.StatusInternalServerError, "/broken", len("boom\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("X-Real-IP", "10.1.2.3")
			req.Header.Set("User-Agent", "curl/8.5.0")
			rec := httptest.NewRecorder()
			testRouter().ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("decode log line %q: %v", buf.String(), err)
			}

			want := map[string]any{
				"level":      tt.wantLevel,
				"msg":        "request",
				"method":     http.MethodGet,
				"path":       tt.path,
				"route":      tt.wantRoute,
				"status":     float64(tt.wantCode),
				"bytes":      float64(tt.wantBytes),
				"remote":     "10.1.2.3",
				"user_agent": "curl/8.5.0",
			}
			for k, v := range want {
				if entry[k] != v {
					t.Errorf("%s = %v, want %v", k, entry[k], v)
				}
			}
			if id, _ := entry["request_id"].(string); id == "" {
				t.Error("request_id missing")
			}
			if _, ok := entry["duration_ms"]; !ok {
				t.Error("duration_ms missing")
			}
		})
	}
}

func TestLevel(t *testing.T) {
	quiet := map[string]struct{}{"/healthz": {}}
	tests := []struct {
		path   string
		status int
		want   slog.Level
	}{
		{"/", http.StatusOK, slog.LevelInfo},
		{"/healthz", http.StatusOK, slog.LevelDebug},
		{"/healthz", http.StatusServiceUnavailable, slog.LevelError},
		{"/api/status", http.StatusNotFound, slog.LevelWarn},
	}
	for _, tt := range tests {
		if got := level(tt.path, tt.status, quiet); got != tt.want {
			t.Errorf("level(%q, %d) = %v, want %v", tt.path, tt.status, got, tt.want)
		}
	}
}
