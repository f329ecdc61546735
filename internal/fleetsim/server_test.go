package fleetsim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/cloud-optimizer/internal/provider"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	srv := NewServer(Config{Provider: models.ProviderAWS, Region: "us-east-1"})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func newWireProvider(ts *httptest.Server) *provider.HTTPProvider {
	return provider.NewHTTPProvider(models.ProviderAWS, ts.URL, 5*time.Second)
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthThroughProvider(t *testing.T) {
	_, ts := newTestServer(t)
	p := newWireProvider(ts)

	require.NoError(t, p.HealthCheck(context.Background()))
}

func TestInventoryThroughProvider(t *testing.T) {
	_, ts := newTestServer(t)
	p := newWireProvider(ts)
	ctx := context.Background()

	all, err := p.FetchInventory(ctx, models.ResourceTypeAll)
	require.NoError(t, err)
	assert.Len(t, all, 7)

	volumes, err := p.FetchInventory(ctx, models.ResourceTypeVolume)
	require.NoError(t, err)
	require.Len(t, volumes, 2)
	for _, r := range volumes {
		assert.Equal(t, models.ResourceTypeVolume, r.Type)
	}

	resp, err := http.Get(ts.URL + "/v1/inventory?type=teapot")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGroupMetricsThroughProvider(t *testing.T) {
	_, ts := newTestServer(t)
	p := newWireProvider(ts)
	ctx := context.Background()

	groups, err := p.FetchGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "asg-web", groups[0].ID)
	assert.Equal(t, 3, groups[0].Instances)

	sample, err := p.FetchMetrics(ctx, "asg-web")
	require.NoError(t, err)
	require.True(t, sample.Complete())
	assert.InDelta(t, 82.5, *sample.CPUPercent, 2.0)
	assert.InDelta(t, 61.0, *sample.MemoryPercent, 1.5)

	_, err = p.FetchMetrics(ctx, "asg-ghost")
	assert.ErrorIs(t, err, provider.ErrGroupNotFound)
}

func TestMetricsOutageThroughProvider(t *testing.T) {
	_, ts := newTestServer(t)
	p := newWireProvider(ts)
	ctx := context.Background()

	resp := postJSON(t, ts.URL+"/control/groups/asg-api/outage", OutageRequest{MetricsDown: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, err := p.FetchMetrics(ctx, "asg-api")
	assert.ErrorIs(t, err, models.ErrMetricsUnavailable)

	resp = postJSON(t, ts.URL+"/control/groups/asg-api/outage", OutageRequest{MetricsDown: false})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sample, err := p.FetchMetrics(ctx, "asg-api")
	require.NoError(t, err)
	assert.True(t, sample.Complete())
}

func TestScalingRoundTrip(t *testing.T) {
	_, ts := newTestServer(t)
	p := newWireProvider(ts)
	ctx := context.Background()

	err := p.ApplyScaling(ctx, &models.ScalingAction{GroupID: "asg-web", TargetInstances: 6})
	require.NoError(t, err)

	groups, err := p.FetchGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, 6, groups[0].Instances)

	// Doubling capacity halves the reported load.
	sample, err := p.FetchMetrics(ctx, "asg-web")
	require.NoError(t, err)
	require.True(t, sample.Complete())
	assert.InDelta(t, 41.25, *sample.CPUPercent, 2.0)

	err = p.ApplyScaling(ctx, &models.ScalingAction{GroupID: "asg-ghost", TargetInstances: 2})
	assert.ErrorIs(t, err, provider.ErrGroupNotFound)
}

func TestCapacityValidation(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/v1/groups/asg-web/capacity", provider.CapacityRequest{Instances: -1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/v1/groups/asg-ghost/capacity", provider.CapacityRequest{Instances: 2})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteResourceRoundTrip(t *testing.T) {
	_, ts := newTestServer(t)
	p := newWireProvider(ts)
	ctx := context.Background()

	require.NoError(t, p.DeleteResource(ctx, "vol-0aa11bb22cc33dd44"))

	all, err := p.FetchInventory(ctx, models.ResourceTypeAll)
	require.NoError(t, err)
	assert.Len(t, all, 6)
	for _, r := range all {
		assert.NotEqual(t, "vol-0aa11bb22cc33dd44", r.ID)
	}

	err = p.DeleteResource(ctx, "vol-0aa11bb22cc33dd44")
	assert.ErrorIs(t, err, provider.ErrApplyFailed)
}

func TestCostsReflectDeletions(t *testing.T) {
	_, ts := newTestServer(t)
	p := newWireProvider(ts)
	ctx := context.Background()

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)

	costs, err := p.FetchServiceCosts(ctx, start, end)
	require.NoError(t, err)

	total := decimal.Zero
	for _, c := range costs {
		total = total.Add(c.Amount)
	}
	assert.InDelta(t, 199.12, total.InexactFloat64(), 0.05)

	// Dropping the orphaned volume removes its share of the bill.
	require.NoError(t, p.DeleteResource(ctx, "vol-0aa11bb22cc33dd44"))

	costs, err = p.FetchServiceCosts(ctx, start, end)
	require.NoError(t, err)

	total = decimal.Zero
	for _, c := range costs {
		total = total.Add(c.Amount)
	}
	assert.InDelta(t, 186.32, total.InexactFloat64(), 0.05)
}

func TestSpikeControlRaisesLoad(t *testing.T) {
	_, ts := newTestServer(t)
	p := newWireProvider(ts)
	ctx := context.Background()

	resp := postJSON(t, ts.URL+"/control/groups/asg-workers/spike", SpikeRequest{
		CPUTarget: 95.0,
		Duration:  "10m",
		RampUp:    "0s",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sample, err := p.FetchMetrics(ctx, "asg-workers")
	require.NoError(t, err)
	require.True(t, sample.Complete())
	assert.Greater(t, *sample.CPUPercent, 90.0)
}

func TestPatternControl(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/control/groups/asg-web/pattern", PatternRequest{Pattern: "sine"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	statusResp, err := http.Get(ts.URL + "/control/groups/asg-web/status")
	require.NoError(t, err)
	defer statusResp.Body.Close()
	require.Equal(t, http.StatusOK, statusResp.StatusCode)

	var status map[string]any
	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&status))
	assert.Equal(t, "sine", status["pattern"])

	resp = postJSON(t, ts.URL+"/control/groups/asg-web/pattern", PatternRequest{Pattern: "square"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddResourceControl(t *testing.T) {
	_, ts := newTestServer(t)
	p := newWireProvider(ts)
	ctx := context.Background()

	resp := postJSON(t, ts.URL+"/control/resources", models.Resource{
		Name:        "extra-node",
		Type:        models.ResourceTypeInstance,
		MonthlyCost: 10.0,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Resource models.Resource `json:"resource"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.Resource.ID)
	assert.Equal(t, models.ProviderAWS, body.Resource.Provider)
	assert.Equal(t, models.StateRunning, body.Resource.State)

	all, err := p.FetchInventory(ctx, models.ResourceTypeAll)
	require.NoError(t, err)
	assert.Len(t, all, 8)
}

func TestCostsRejectsMalformedWindow(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(fmt.Sprintf("%s/v1/costs?start=%s", ts.URL, "yesterday"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
