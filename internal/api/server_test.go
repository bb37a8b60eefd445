package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mjelva/netwarden/internal/device"
	"github.com/mjelva/netwarden/internal/engine"
	"github.com/mjelva/netwarden/internal/events"
	"github.com/mjelva/netwarden/internal/history"
	"github.com/mjelva/netwarden/internal/session"
)

// stubEngine returns a fixed result, optionally blocking until released.
type stubEngine struct {
	devices []device.Device
	err     error
	block   chan struct{}
}

func (e *stubEngine) Scan(ctx context.Context, _ engine.Request) ([]device.Device, error) {
	if e.block != nil {
		select {
		case <-e.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return e.devices, e.err
}

type stubHistory struct {
	records []history.Record
	err     error
	pingErr error
}

func (h *stubHistory) History(context.Context, int) ([]history.Record, error) {
	return h.records, h.err
}

func (h *stubHistory) Ping(context.Context) error {
	return h.pingErr
}

func newTestServer(t *testing.T, eng engine.Engine, opts ...Option) *Server {
	t.Helper()
	bus := events.NewBus()
	orch := session.NewOrchestrator(eng, session.NewState(), bus, nil)
	return New(DefaultConfig(), orch, nil, opts...)
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestStatusEndpointIdle(t *testing.T) {
	s := newTestServer(t, &stubEngine{})

	rec := doRequest(s, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status session.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.IsScanning)
	assert.Equal(t, 0, status.Progress)
}

func TestDevicesAndScoreAfterScan(t *testing.T) {
	eng := &stubEngine{devices: []device.Device{
		{ID: "a", IP: "192.168.1.10", SecurityLevel: device.SecuritySafe},
		{ID: "b", IP: "192.168.1.2", SecurityLevel: device.SecurityDanger},
	}}
	s := newTestServer(t, eng)
	require.NoError(t, s.orchestrator.StartScan(context.Background()))

	rec := doRequest(s, http.MethodGet, "/api/v1/devices", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var devs struct {
		Devices []device.Device `json:"devices"`
		Count   int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &devs))
	assert.Equal(t, 2, devs.Count)
	assert.Equal(t, "192.168.1.2", devs.Devices[0].IP, "device set is IP ordered")

	rec = doRequest(s, http.MethodGet, "/api/v1/score", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var score struct {
		HealthScore int `json:"health_score"`
		DeviceCount int `json:"device_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &score))
	assert.Equal(t, 60, score.HealthScore)
	assert.Equal(t, 2, score.DeviceCount)
}

func TestScanEndpointAccepted(t *testing.T) {
	s := newTestServer(t, &stubEngine{})

	rec := doRequest(s, http.MethodPost, "/api/v1/scan", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		return !s.orchestrator.IsScanning() && s.orchestrator.State().Status().Progress == 100
	}, time.Second, time.Millisecond)
}

func TestScanEndpointConflict(t *testing.T) {
	eng := &stubEngine{block: make(chan struct{})}
	s := newTestServer(t, eng)

	rec := doRequest(s, http.MethodPost, "/api/v1/scan", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Eventually(t, s.orchestrator.IsScanning, time.Second, time.Millisecond)

	rec = doRequest(s, http.MethodPost, "/api/v1/scan", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SCAN_IN_PROGRESS", resp.Code)

	close(eng.block)
}

func TestScanEndpointRejectsInvalidIntensity(t *testing.T) {
	s := newTestServer(t, &stubEngine{})

	rec := doRequest(s, http.MethodPost, "/api/v1/scan", `{"intensity":"turbo"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, s.orchestrator.IsScanning())
}

func TestScanEndpointRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t, &stubEngine{})

	rec := doRequest(s, http.MethodPost, "/api/v1/scan", `{"intensity":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryEndpointNotConfigured(t *testing.T) {
	s := newTestServer(t, &stubEngine{})

	rec := doRequest(s, http.MethodGet, "/api/v1/history", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	store := &stubHistory{records: []history.Record{
		{ID: "scan-1", DeviceCount: 3, AverageScore: 88},
	}}
	s := newTestServer(t, &stubEngine{}, WithHistory(store))

	rec := doRequest(s, http.MethodGet, "/api/v1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Scans []history.Record `json:"scans"`
		Count int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "scan-1", resp.Scans[0].ID)
}

func TestHistoryEndpointRejectsBadLimit(t *testing.T) {
	s := newTestServer(t, &stubEngine{}, WithHistory(&stubHistory{}))

	for _, limit := range []string{"abc", "0", "-5", "100000"} {
		rec := doRequest(s, http.MethodGet, "/api/v1/history?limit="+limit, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
	}
}

func TestHealthzWithoutDatabase(t *testing.T) {
	s := newTestServer(t, &stubEngine{})

	rec := doRequest(s, http.MethodGet, "/api/v1/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "not configured", resp.Checks["database"])
}

func TestHealthzReportsDatabaseFailure(t *testing.T) {
	store := &stubHistory{pingErr: errors.New("connection refused")}
	s := newTestServer(t, &stubEngine{}, WithHistory(store))

	rec := doRequest(s, http.MethodGet, "/api/v1/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWebsocketStreamsStatus(t *testing.T) {
	eng := &stubEngine{devices: []device.Device{{ID: "a", IP: "10.0.0.1"}}}
	s := newTestServer(t, eng)
	s.hub.start(s.orchestrator.State())

	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	// First frames carry the seeded state.
	var first wsMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "status", first.Type)

	require.NoError(t, s.orchestrator.StartScan(context.Background()))

	// A status push must arrive as the session runs.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var msg wsMessage
	for {
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "status" {
			data, marshalErr := json.Marshal(msg.Data)
			require.NoError(t, marshalErr)
			var status session.Status
			require.NoError(t, json.Unmarshal(data, &status))
			if status.Progress == 100 {
				return
			}
		}
	}
}
