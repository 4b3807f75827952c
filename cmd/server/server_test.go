package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/perf-monitor/pkg/config"
	"github.com/perf-monitor/pkg/monitor"
)

type fakeSource struct {
	snap monitor.Snapshot
	err  error
}

func (f fakeSource) Capture(context.Context) (monitor.Snapshot, error) { return f.snap, f.err }

type fakeStatus struct{ st monitor.Status }

func (f fakeStatus) Status() monitor.Status { return f.st }

func newTestServer(t *testing.T, source fakeSource, status fakeStatus) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "agent_test_total", Help: "test"}))
	cfg := config.NewDefaultConfig().Server
	s := NewHTTPServer(cfg, zap.NewNop(), reg, source, status)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestSnapshotEndpoint(t *testing.T) {
	snap := monitor.Snapshot{
		Time:   time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC),
		System: monitor.SystemInfo{Name: "ubuntu", Hostname: "node-1"},
		CPU:    []float64{5, 7.5},
		Processes: []monitor.ProcessInfo{
			{PID: 1, Name: "init", Memory: 4096},
		},
	}
	ts := newTestServer(t, fakeSource{snap: snap}, fakeStatus{})

	resp, body := get(t, ts.URL+"/api/snapshot")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got monitor.Snapshot
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, snap, got)
}

func TestSnapshotEndpointCaptureFailure(t *testing.T) {
	ts := newTestServer(t, fakeSource{err: errors.New("cpu unavailable")}, fakeStatus{})

	resp, body := get(t, ts.URL+"/api/snapshot")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.JSONEq(t, `{"error":"cpu unavailable"}`, string(body))
}

func TestStatusEndpoint(t *testing.T) {
	last := monitor.Snapshot{Time: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), CPU: []float64{1}}
	ts := newTestServer(t, fakeSource{}, fakeStatus{st: monitor.Status{LastItem: &last, BufferSize: 4, TotalSent: 60}})

	resp, body := get(t, ts.URL+"/api/status")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.EqualValues(t, 4, raw["buffer_size"])
	assert.EqualValues(t, 60, raw["total_sent"])
	assert.NotNil(t, raw["last_item"])
}

func TestStatusEndpointEmptyBuffer(t *testing.T) {
	ts := newTestServer(t, fakeSource{}, fakeStatus{})

	_, body := get(t, ts.URL+"/api/status")
	assert.JSONEq(t, `{"last_item":null,"buffer_size":0,"total_sent":0}`, string(body))
}

func TestAPIRejectsNonGet(t *testing.T) {
	ts := newTestServer(t, fakeSource{}, fakeStatus{})

	resp, err := http.Post(ts.URL+"/api/status", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, http.MethodGet, resp.Header.Get("Allow"))
}

func TestHealthMetricsAndIndex(t *testing.T) {
	ts := newTestServer(t, fakeSource{}, fakeStatus{})

	resp, body := get(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, body = get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "agent_test_total")

	resp, body = get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "/api/status")

	resp, _ = get(t, ts.URL+"/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartAndShutdown(t *testing.T) {
	cfg := config.NewDefaultConfig().Server
	cfg.Addr = "127.0.0.1:0"
	s := NewHTTPServer(cfg, zap.NewNop(), prometheus.NewRegistry(), fakeSource{}, fakeStatus{})

	require.NoError(t, s.Start())
	assert.ElementsMatch(t, []string{"/", "/metrics", "/health", "/api/snapshot", "/api/status"}, s.mux.Routes())
	assert.NoError(t, s.Shutdown(context.Background()))
}
