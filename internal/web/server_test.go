package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sensoragent/internal/config"
	"github.com/JonMunkholm/sensoragent/internal/domain"
	"github.com/JonMunkholm/sensoragent/internal/publisher"
)

type fixedStatus publisher.Snapshot

func (f fixedStatus) Snapshot() publisher.Snapshot { return publisher.Snapshot(f) }

func testSnapshot() publisher.Snapshot {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return publisher.Snapshot{
		Mode:            config.ReadAsync,
		Topic:           "agent",
		StartedAt:       at,
		Published:       42,
		Rewinds:         3,
		LastRecord:      &domain.AggregatedData{Gps: domain.Gps{Longitude: 30.5, Latitude: 50.4}, Time: at},
		LastPublishedAt: &at,
		LastError:       `decode gps line 3 field latitude: <bad>`,
		LastErrorCode:   "decode",
		LastErrorAt:     &at,
	}
}

func serve(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(fixedStatus(testSnapshot()))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(t, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestStatusJSON(t *testing.T) {
	rec := serve(t, "/api/status")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "async", body["mode"])
	assert.Equal(t, float64(42), body["published"])
	assert.Equal(t, float64(3), body["rewinds"])
	assert.Equal(t, "decode", body["last_error_code"])
	record := body["last_record"].(map[string]any)
	assert.Equal(t, map[string]any{"longitude": 30.5, "latitude": 50.4}, record["gps"])
}

func TestStatusPage(t *testing.T) {
	rec := serve(t, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	body := rec.Body.String()
	assert.Contains(t, body, "<th>Published</th><td>42</td>")
	assert.Contains(t, body, "(30.5, 50.4)")
	assert.Contains(t, body, "&lt;bad&gt;")
	assert.NotContains(t, body, "<bad>")
}

func TestStatusPage_NoActivity(t *testing.T) {
	srv := NewServer(fixedStatus(publisher.Snapshot{Mode: config.ReadBlocking}))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rec.Body.String()
	assert.Contains(t, body, "<th>Last published</th><td>never</td>")
	assert.NotContains(t, body, "Last error")
}

func TestStatusPage_Layout(t *testing.T) {
	var b strings.Builder
	snap := testSnapshot()
	require.NoError(t, StatusPage(snap).Render(context.Background(), &b))

	body := b.String()
	assert.True(t, strings.HasPrefix(body, "<!DOCTYPE html>"))
	assert.True(t, strings.HasSuffix(body, "</body></html>"))
	table := strings.Index(body, "<table>")
	panel := strings.Index(body, `<div class="error">`)
	require.NotEqual(t, -1, table)
	require.NotEqual(t, -1, panel)
	assert.Less(t, table, panel, "error panel follows the table")
	assert.Contains(t, body, "<title>sensoragent status</title>")
}

func TestRenderFailed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	renderFailed(req, errors.New("template broke")).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "template broke")
}

func TestNotFound(t *testing.T) {
	tests := []struct {
		path        string
		contentType string
	}{
		{"/api/missing", "application/json"},
		{"/missing", "text/plain; charset=utf-8"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := serve(t, tt.path)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
		})
	}
}

func TestStartAfterShutdown(t *testing.T) {
	srv := NewServer(fixedStatus(testSnapshot()))
	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, srv.Start("127.0.0.1:0"))
}

func TestStartAndShutdown(t *testing.T) {
	srv := NewServer(fixedStatus(testSnapshot()))
	done := make(chan error, 1)
	go func() { done <- srv.Start("127.0.0.1:0") }()

	// Shutdown may land before or after ListenAndServe; both end cleanly.
	require.Eventually(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return srv.server != nil
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, srv.Shutdown(context.Background()))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
