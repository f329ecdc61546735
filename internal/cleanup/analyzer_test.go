package cleanup

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

var analyzerNow = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

func newTestAnalyzer(ageDays int, utilPct float64) *Analyzer {
	a := New(Thresholds{AgeDays: ageDays, UtilizationPct: utilPct})
	a.nowFn = func() time.Time { return analyzerNow }
	return a
}

func resourceAgedDays(id string, days int, utilization, cost float64) models.Resource {
	created := analyzerNow.AddDate(0, 0, -days)
	return models.Resource{
		ID:          id,
		Name:        "res-" + id,
		Type:        models.ResourceTypeInstance,
		Provider:    models.ProviderAWS,
		Region:      "us-east-1",
		State:       models.StateRunning,
		CreatedAt:   &created,
		Utilization: utilization,
		MonthlyCost: cost,
	}
}

func TestAnalyzeLowUtilization(t *testing.T) {
	a := newTestAnalyzer(30, 10.0)

	actions := a.Analyze([]models.Resource{resourceAgedDays("i-1", 5, 5.0, 42.50)})
	require.Len(t, actions, 1)

	assert.Equal(t, "Low utilization (5.0%)", actions[0].Reason)
	assert.InDelta(t, 42.50, actions[0].EstimatedSavings, 0.001)
	assert.Equal(t, "i-1", actions[0].Resource.ID)
}

func TestAnalyzeOldResource(t *testing.T) {
	a := newTestAnalyzer(30, 10.0)

	actions := a.Analyze([]models.Resource{resourceAgedDays("i-1", 45, 50.0, 17.0)})
	require.Len(t, actions, 1)

	assert.Equal(t, "Old resource (45 days)", actions[0].Reason)
	assert.InDelta(t, 17.0, actions[0].EstimatedSavings, 0.001)
}

func TestAnalyzeUtilizationRuleShadowsAgeRule(t *testing.T) {
	a := newTestAnalyzer(30, 10.0)

	// Eligible on both rules: the utilization reason must win.
	actions := a.Analyze([]models.Resource{resourceAgedDays("i-1", 90, 2.0, 10.0)})
	require.Len(t, actions, 1)
	assert.Contains(t, actions[0].Reason, "Low utilization")
}

func TestAnalyzeExclusions(t *testing.T) {
	a := newTestAnalyzer(30, 10.0)

	tests := []struct {
		name     string
		resource models.Resource
	}{
		{
			name:     "busy and young",
			resource: resourceAgedDays("i-1", 3, 80.0, 5.0),
		},
		{
			name:     "utilization exactly at threshold",
			resource: resourceAgedDays("i-2", 3, 10.0, 5.0),
		},
		{
			name:     "age exactly at threshold",
			resource: resourceAgedDays("i-3", 30, 50.0, 5.0),
		},
		{
			name: "no creation date never age-matches",
			resource: models.Resource{
				ID: "i-4", Utilization: 50.0, MonthlyCost: 5.0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, a.Analyze([]models.Resource{tt.resource}))
		})
	}
}

func TestAnalyzePreservesInputOrder(t *testing.T) {
	a := newTestAnalyzer(30, 10.0)

	var resources []models.Resource
	for i := 0; i < 50; i++ {
		// Every even-indexed resource is eligible on utilization
		util := 50.0
		if i%2 == 0 {
			util = 1.0
		}
		resources = append(resources, resourceAgedDays(fmt.Sprintf("i-%03d", i), 5, util, 1.0))
	}

	actions := a.Analyze(resources)
	require.Len(t, actions, 25)
	for i, action := range actions {
		assert.Equal(t, fmt.Sprintf("i-%03d", i*2), action.Resource.ID)
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	a := newTestAnalyzer(30, 10.0)

	resources := []models.Resource{
		resourceAgedDays("i-1", 45, 50.0, 10.0),
		resourceAgedDays("i-2", 5, 2.0, 20.0),
		resourceAgedDays("i-3", 5, 50.0, 30.0),
		resourceAgedDays("i-4", 100, 1.0, 40.0),
	}

	first := a.Analyze(resources)
	second := a.Analyze(resources)
	assert.Equal(t, first, second)

	require.Len(t, first, 3)
	assert.InDelta(t, 70.0, models.TotalSavings(first), 0.001)
}

func TestAnalyzeEmptyInventory(t *testing.T) {
	a := newTestAnalyzer(30, 10.0)
	assert.Empty(t, a.Analyze(nil))
	assert.Empty(t, a.Analyze([]models.Resource{}))
}
