package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	settings := DefaultSettings()
	settings.OpenAIAPIKey = ""
	r, err := NewRouter(settings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.backend.Close() })
	return r
}

func TestRouterMountsCarsEndpoint(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cars", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "make")
}

func TestRouterChatDisabledWithoutAPIKey(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouterRejectsPlainGetOnDuplexPaths(t *testing.T) {
	r := newTestRouter(t)
	for _, path := range []string{"/api/ws/call", "/api/ws/calls/monitor", "/api/ws/collaboration/s1"} {
		rec := httptest.NewRecorder()
		r.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		// upgrade fails without websocket headers
		require.NotEqual(t, http.StatusOK, rec.Code, path)
	}
}

func TestSettingsAddr(t *testing.T) {
	s := Settings{Host: "localhost", Port: 3000}
	require.Equal(t, "localhost:3000", s.Addr())
}

func TestBuildHTTPServerUsesSettingsAddr(t *testing.T) {
	r := newTestRouter(t)
	srv := r.BuildHTTPServer()
	require.Equal(t, r.settings.Addr(), srv.Addr)
	require.NotNil(t, srv.Handler)
}
