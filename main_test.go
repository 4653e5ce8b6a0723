package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fitting-room-server/modules/common/config"
	"fitting-room-server/modules/common/diagnostics"
	"fitting-room-server/modules/session"
	"fitting-room-server/modules/tryon"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, *tryon.GenerateRequest) (*tryon.GenerateResponse, error) {
	return &tryon.GenerateResponse{}, nil
}

func newTestRouter(t *testing.T) (*httptest.Server, *session.Manager) {
	t.Helper()
	manager := session.NewManager(time.Hour, time.Hour)
	recorder := diagnostics.NewLogRecorder()
	handler := tryon.NewHandler(tryon.NewService(stubGenerator{}, recorder, manager), manager, recorder, 1<<20)

	srv := httptest.NewServer(newRouter(manager, handler))
	t.Cleanup(srv.Close)
	return srv, manager
}

func TestHealthCheck(t *testing.T) {
	srv, _ := newTestRouter(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestMetrics(t *testing.T) {
	srv, manager := newTestRouter(t)
	manager.GetOrCreate("a")
	manager.CountAttempt(true)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Server   map[string]interface{} `json:"server"`
		Sessions []session.SessionInfo  `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.EqualValues(t, 1, body.Server["activeSessions"])
	assert.EqualValues(t, 1, body.Server["generationSuccesses"])
	require.Len(t, body.Sessions, 1)
	assert.Equal(t, "a", body.Sessions[0].SessionID)
}

func TestForceCleanup(t *testing.T) {
	srv, _ := newTestRouter(t)

	resp, err := http.Post(srv.URL+"/admin/cleanup", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Cleanup completed", body["status"])
	assert.EqualValues(t, 0, body["inactive"])
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestRouter(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/upload/person", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Less(t, resp.StatusCode, 300)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestNewRecorder(t *testing.T) {
	t.Run("no redis configured", func(t *testing.T) {
		_, ok := newRecorder(&config.Config{}).(*diagnostics.LogRecorder)
		assert.True(t, ok)
	})

	t.Run("redis configured", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rec := newRecorder(&config.Config{
			RedisHost:      mr.Host(),
			RedisPort:      mr.Port(),
			DiagnosticsKey: "diag",
			DiagnosticsMax: 10,
		})
		_, ok := rec.(*diagnostics.RedisRecorder)
		require.True(t, ok)

		rec.Record(context.Background(), diagnostics.Event{Kind: diagnostics.KindGenerated, SessionID: "s"})
		events, err := rec.Recent(context.Background(), 5)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "s", events[0].SessionID)
	})

	t.Run("redis unreachable falls back to logging", func(t *testing.T) {
		mr := miniredis.RunT(t)
		host, port := mr.Host(), mr.Port()
		mr.Close()

		_, ok := newRecorder(&config.Config{RedisHost: host, RedisPort: port}).(*diagnostics.LogRecorder)
		assert.True(t, ok)
	})
}
