package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/OldStager01/cloud-optimizer/internal/auth"
	"github.com/OldStager01/cloud-optimizer/internal/cleanup"
	"github.com/OldStager01/cloud-optimizer/internal/cost"
	"github.com/OldStager01/cloud-optimizer/internal/events"
	"github.com/OldStager01/cloud-optimizer/internal/provider"
	"github.com/OldStager01/cloud-optimizer/internal/runner"
	"github.com/OldStager01/cloud-optimizer/pkg/config"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server *Server
	ts     *httptest.Server
	sim    *provider.SimProvider
	bus    *events.Bus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hash, err := auth.HashPassword("open-sesame")
	require.NoError(t, err)

	sim := provider.NewSimProvider(models.ProviderAWS, "us-east-1")
	bus := events.NewBus(32)

	launcher := runner.NewLauncher(runner.Config{
		Provider: sim,
		Policy:   models.DefaultScalingPolicy(),
		Cleanup:  cleanup.Thresholds{AgeDays: 30, UtilizationPct: 10},
	})

	cfg := config.APIConfig{
		Port:        0,
		JWTSecret:   "unit-test-secret-0123456789abcdef",
		JWTDuration: time.Hour,
		Auth: config.AuthConfig{
			Username:     "admin",
			PasswordHash: hash,
		},
		RateLimit: config.RateLimitConfig{Requests: 1000, Window: time.Minute},
	}

	server := NewServer(cfg, Deps{
		Provider:     sim,
		Launcher:     launcher,
		CostReporter: cost.NewReporter(sim, "USD", 0),
		Bus:          bus,
	})

	ts := httptest.NewServer(server.Router())
	t.Cleanup(func() {
		ts.Close()
		bus.Close()
	})

	return &testEnv{server: server, ts: ts, sim: sim, bus: bus}
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()

	body := `{"username":"admin","password":"open-sesame"}`
	resp, err := http.Post(e.ts.URL+"/auth/login", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	require.NotEmpty(t, login.Token)
	return login.Token
}

func (e *testEnv) get(t *testing.T, token, path string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, e.ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) post(t *testing.T, token, path, body string) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}

	req, err := http.NewRequest(http.MethodPost, e.ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "", "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeBody(t, resp, &health)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Checks["provider"])
	assert.NotContains(t, health.Checks, "database")

	resp = env.get(t, "", "/health/live")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		body string
	}{
		{"wrong password", `{"username":"admin","password":"wrong"}`},
		{"wrong username", `{"username":"root","password":"open-sesame"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(env.ts.URL+"/auth/login", "application/json", strings.NewReader(tc.body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}

	resp, err := http.Post(env.ts.URL+"/auth/login", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "", "/fleet/groups")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.get(t, "not-a-token", "/fleet/groups")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := env.login(t)
	resp = env.get(t, token, "/fleet/groups")
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFleetEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	var inventory struct {
		Resources []models.Resource `json:"resources"`
		Count     int               `json:"count"`
	}
	decodeBody(t, env.get(t, token, "/fleet/resources?type=volume"), &inventory)
	assert.Equal(t, 2, inventory.Count)
	for _, r := range inventory.Resources {
		assert.Equal(t, models.ResourceTypeVolume, r.Type)
	}

	resp := env.get(t, token, "/fleet/resources?type=teapot")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var summary models.ResourceSummary
	decodeBody(t, env.get(t, token, "/fleet/summary"), &summary)
	assert.Equal(t, 7, summary.Total)

	var groups struct {
		Groups []models.ScalingGroup `json:"groups"`
		Count  int                   `json:"count"`
	}
	decodeBody(t, env.get(t, token, "/fleet/groups"), &groups)
	assert.Equal(t, 3, groups.Count)

	var metrics struct {
		GroupID string                   `json:"group_id"`
		Metrics models.UtilizationSample `json:"metrics"`
	}
	decodeBody(t, env.get(t, token, "/fleet/groups/asg-web/metrics"), &metrics)
	require.True(t, metrics.Metrics.Complete())
	assert.InDelta(t, 82.5, *metrics.Metrics.CPUPercent, 0.001)

	resp = env.get(t, token, "/fleet/groups/asg-ghost/metrics")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	env.sim.SetMetricsUnavailable("asg-api", true)
	resp = env.get(t, token, "/fleet/groups/asg-api/metrics")
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestTriggerScaleDefaultsToDryRun(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	var report models.RunReport
	decodeBody(t, env.post(t, token, "/runs/scale", ""), &report)

	assert.True(t, report.DryRun)
	assert.Equal(t, models.RunScale, report.Kind)
	assert.Equal(t, 2, report.Proposed)

	size, ok := env.sim.GroupSize("asg-web")
	require.True(t, ok)
	assert.Equal(t, 3, size)
}

func TestTriggerScaleApplies(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	var report models.RunReport
	decodeBody(t, env.post(t, token, "/runs/scale", `{"dry_run":false}`), &report)

	assert.False(t, report.DryRun)
	assert.Equal(t, 2, report.Applied)
	assert.Equal(t, models.RunCompleted, report.Status)

	size, ok := env.sim.GroupSize("asg-web")
	require.True(t, ok)
	assert.Equal(t, 4, size)

	size, ok = env.sim.GroupSize("asg-workers")
	require.True(t, ok)
	assert.Equal(t, 5, size)
}

func TestTriggerScaleNarrowedToTargets(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	var report models.RunReport
	decodeBody(t, env.post(t, token, "/runs/scale", `{"dry_run":false,"targets":["asg-web"]}`), &report)

	require.Len(t, report.Records, 1)
	assert.Equal(t, "asg-web", report.Records[0].TargetID)

	size, ok := env.sim.GroupSize("asg-web")
	require.True(t, ok)
	assert.Equal(t, 4, size)

	// asg-workers would scale down on its own metrics, but it was not
	// requested.
	size, ok = env.sim.GroupSize("asg-workers")
	require.True(t, ok)
	assert.Equal(t, 6, size)
}

func TestTriggerCleanupApplies(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	var report models.RunReport
	decodeBody(t, env.post(t, token, "/runs/cleanup", `{"dry_run":false}`), &report)

	assert.Equal(t, models.RunCleanup, report.Kind)
	assert.Equal(t, 5, report.Applied)
	assert.InDelta(t, 114.45, report.TotalSavings, 0.001)

	remaining, err := env.sim.FetchInventory(context.Background(), models.ResourceTypeAll)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestEventsEndpointsWithoutDatabase(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	for _, path := range []string{"/events/recent", "/events/run/run-1", "/events/target/asg-web"} {
		resp := env.get(t, token, path)
		resp.Body.Close()
		assert.Equalf(t, http.StatusServiceUnavailable, resp.StatusCode, "path %s", path)
	}
}

func TestCostReportEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	var report models.CostReport
	decodeBody(t, env.get(t, token, "/costs?start=2025-01-01&end=2025-01-31"), &report)

	assert.Equal(t, models.ProviderAWS, report.Provider)
	assert.Equal(t, "USD", report.Currency)
	assert.True(t, report.TotalCost.Equal(decimal.RequireFromString("199.12")),
		"total %s", report.TotalCost)

	resp := env.get(t, token, "/costs?start=2025-02-01&end=2025-01-01")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.get(t, token, "/costs?start=yesterday")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusWithoutDaemon(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	var status struct {
		DaemonRunning bool     `json:"daemon_running"`
		Targets       []string `json:"targets"`
	}
	decodeBody(t, env.get(t, token, "/status"), &status)
	assert.False(t, status.DaemonRunning)
	assert.Empty(t, status.Targets)
}

func TestTraceIDPropagation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "", "/health/live")
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/health/live", nil)
	require.NoError(t, err)
	req.Header.Set("X-Trace-ID", "trace-42")

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "trace-42", resp.Header.Get("X-Trace-ID"))
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "", "/health/live")
	resp.Body.Close()

	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t)

	body := `{"username":"admin","password":"wrong"}`
	var lastStatus int
	for i := 0; i < 6; i++ {
		resp, err := http.Post(env.ts.URL+"/auth/login", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		lastStatus = resp.StatusCode
	}

	assert.Equal(t, http.StatusTooManyRequests, lastStatus)
}

func TestWebSocketStreamsRunEvents(t *testing.T) {
	env := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.Eventually(t, func() bool {
		return env.server.WebSocketHub().ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	event := models.NewEvent(models.EventActionExecuted, models.ProviderAWS, "Applied: 3 -> 4 instances").
		WithRun("run-ws-1").
		WithTarget("asg-web")
	env.bus.Publish(event)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var received struct {
		Type    models.EventType `json:"type"`
		RunID   string           `json:"run_id"`
		Target  string           `json:"target"`
		Message string           `json:"message"`
	}
	require.NoError(t, json.Unmarshal(payload, &received))
	assert.Equal(t, models.EventActionExecuted, received.Type)
	assert.Equal(t, "run-ws-1", received.RunID)
	assert.Equal(t, "asg-web", received.Target)
}

func TestWebSocketRunSubscriptionFilters(t *testing.T) {
	env := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.Eventually(t, func() bool {
		return env.server.WebSocketHub().ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{
		"type":   "subscribe",
		"run_id": "run-wanted",
	}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, ack, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(ack), "subscribed")

	env.bus.Publish(models.NewEvent(models.EventActionProposed, models.ProviderAWS, "other run").
		WithRun("run-other"))
	env.bus.Publish(models.NewEvent(models.EventActionProposed, models.ProviderAWS, "wanted run").
		WithRun("run-wanted"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var received struct {
		RunID string `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal(payload, &received))
	assert.Equal(t, "run-wanted", received.RunID)
}

type blockingProvider struct {
	*provider.SimProvider
	entered chan struct{}
	release chan struct{}
}

func (p *blockingProvider) FetchGroups(ctx context.Context) ([]models.ScalingGroup, error) {
	select {
	case p.entered <- struct{}{}:
	default:
	}
	<-p.release
	return p.SimProvider.FetchGroups(ctx)
}

func TestConcurrentRunsRejected(t *testing.T) {
	hash, err := auth.HashPassword("open-sesame")
	require.NoError(t, err)

	blocking := &blockingProvider{
		SimProvider: provider.NewSimProvider(models.ProviderAWS, "us-east-1"),
		entered:     make(chan struct{}, 1),
		release:     make(chan struct{}),
	}

	launcher := runner.NewLauncher(runner.Config{
		Provider: blocking,
		Policy:   models.DefaultScalingPolicy(),
	})

	server := NewServer(config.APIConfig{
		JWTSecret:   "unit-test-secret-0123456789abcdef",
		JWTDuration: time.Hour,
		Auth:        config.AuthConfig{Username: "admin", PasswordHash: hash},
		RateLimit:   config.RateLimitConfig{Requests: 1000, Window: time.Minute},
	}, Deps{
		Provider: blocking,
		Launcher: launcher,
	})

	ts := httptest.NewServer(server.Router())
	defer ts.Close()
	env := &testEnv{server: server, ts: ts}
	token := env.login(t)

	firstDone := make(chan error, 1)
	go func() {
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/runs/scale", nil)
		if err != nil {
			firstDone <- err
			return
		}
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			firstDone <- err
			return
		}
		resp.Body.Close()
		firstDone <- nil
	}()

	// The slot is held once the first run reaches the provider.
	<-blocking.entered

	resp := env.post(t, token, "/runs/scale", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	close(blocking.release)
	require.NoError(t, <-firstDone)
}

func TestServerShutdown(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.server.Shutdown(context.Background()))
}
