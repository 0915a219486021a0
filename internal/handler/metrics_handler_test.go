package handler

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"hzpresence/internal/app/metrics"
)

func TestHandleMetrics_Renders_Text_Format(t *testing.T) {
	req := require.New(t)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, metrics.Options{})
	m.ConnectionOpened()
	m.SetUsersOnline(1)

	rr := httptest.NewRecorder()
	HandleMetrics(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	req.Equal(http.StatusOK, rr.Code)
	req.Equal(ExpositionContentType, rr.Header().Get("Content-Type"))

	body := rr.Body.String()
	req.Contains(body, "# HELP websocket_connections_active Number of active WebSocket connections\n")
	req.Contains(body, "# TYPE websocket_connections_active gauge\n")
	req.Contains(body, "websocket_connections_active 1\n")
	req.Contains(body, "users_online 1\n")
}

func TestHandleMetrics_Empty_Registry_Succeeds(t *testing.T) {
	req := require.New(t)

	rr := httptest.NewRecorder()
	HandleMetrics(prometheus.NewRegistry()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	req.Equal(http.StatusOK, rr.Code)
	req.Equal(ExpositionContentType, rr.Header().Get("Content-Type"))
	req.Empty(rr.Body.String())
}

func TestHandleMetrics_Gather_Failure_Returns_500(t *testing.T) {
	req := require.New(t)
	failing := prometheus.GathererFunc(func() ([]*dto.MetricFamily, error) {
		return nil, errors.New("collector exploded")
	})

	rr := httptest.NewRecorder()
	HandleMetrics(failing).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	req.Equal(http.StatusInternalServerError, rr.Code)
	req.Contains(rr.Body.String(), "collector exploded")
}

func TestRouter_Metrics_Endpoint_Counts_Requests(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	res, err := http.Get(env.server.URL + "/health")
	req.NoError(err)
	res.Body.Close()

	res, err = http.Get(env.server.URL + "/metrics")
	req.NoError(err)
	defer res.Body.Close()

	req.Equal(http.StatusOK, res.StatusCode)
	raw, err := io.ReadAll(res.Body)
	req.NoError(err)

	body := string(raw)
	req.True(strings.Contains(body, `http_requests_total{method="GET",route="/health",status_code="200"} 1`), body)
	req.Contains(body, "# TYPE http_request_duration_seconds histogram")
}
