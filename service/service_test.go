package service

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalab/kata-runner/metrics"
	"github.com/katalab/kata-runner/types"
)

func TestHealthzHandler(t *testing.T) {
	h := &HealthzServer{log: log.NewLogger(log.DiscardHandler())}
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsHandler(t *testing.T) {
	metrics.RecordTest("service-test", types.StatePassed, 0)

	srv := httptest.NewServer((&MetricsServer{}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "kata_tests_total")
}

func TestNewDefaults(t *testing.T) {
	s := New(Config{}, log.NewLogger(log.DiscardHandler()))
	healthz, metricsAddr := s.Addrs()
	assert.Equal(t, "0.0.0.0:8080", healthz)
	assert.Equal(t, "0.0.0.0:7300", metricsAddr)

	s = New(Config{HealthzAddr: "127.0.0.1:0"}, nil)
	healthz, _ = s.Addrs()
	assert.Equal(t, "127.0.0.1:0", healthz)

	// shutting down servers that never started is a no-op
	s.Shutdown()
}
