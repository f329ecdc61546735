package cost

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/cloud-optimizer/internal/provider"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

func fixedWindow() (time.Time, time.Time) {
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	return start, start.Add(30 * 24 * time.Hour)
}

func TestGenerateAggregatesAndSorts(t *testing.T) {
	sim := provider.NewSimProvider(models.ProviderAWS, "us-east-1")
	r := NewReporter(sim, "USD", 0)

	start, end := fixedWindow()
	report, err := r.Generate(context.Background(), start, end)
	require.NoError(t, err)

	assert.Equal(t, models.ProviderAWS, report.Provider)
	assert.Equal(t, "USD", report.Currency)
	require.Len(t, report.Services, 4)

	// Sorted by spend descending, EC2 dominates the fixture fleet.
	assert.Equal(t, "Amazon EC2", report.Services[0].Service)
	for i := 1; i < len(report.Services); i++ {
		assert.True(t, report.Services[i-1].Amount.GreaterThanOrEqual(report.Services[i].Amount),
			"services must be sorted by amount descending")
	}

	total := decimal.Zero
	for _, s := range report.Services {
		total = total.Add(s.Amount)
	}
	assert.True(t, report.TotalCost.Equal(total))
	assert.Empty(t, report.Alerts, "no budget means no alerts")
}

func TestGenerateBudgetAlerts(t *testing.T) {
	// Fixture fleet totals 199.12 USD over a full month.
	tests := []struct {
		name     string
		budget   float64
		severity models.AlertSeverity
		none     bool
	}{
		{name: "spend under 80 percent", budget: 1000, none: true},
		{name: "spend over 80 percent warns", budget: 240, severity: models.AlertWarning},
		{name: "spend over budget is critical", budget: 150, severity: models.AlertCritical},
		{name: "spend exactly at budget is critical", budget: 199.12, severity: models.AlertCritical},
	}

	start, end := fixedWindow()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := provider.NewSimProvider(models.ProviderAWS, "us-east-1")
			r := NewReporter(sim, "USD", tt.budget)

			report, err := r.Generate(context.Background(), start, end)
			require.NoError(t, err)

			if tt.none {
				assert.Empty(t, report.Alerts)
				return
			}
			require.Len(t, report.Alerts, 1)
			alert := report.Alerts[0]
			assert.Equal(t, tt.severity, alert.Severity)
			assert.True(t, alert.Actual.Equal(report.TotalCost))
			assert.Contains(t, alert.Message, "budget")
		})
	}
}

func TestGeneratePropagatesRetrievalFailure(t *testing.T) {
	sim := provider.NewSimProvider(models.ProviderAWS, "us-east-1")
	sim.SetFailFetch(assert.AnError)
	r := NewReporter(sim, "USD", 100)

	start, end := fixedWindow()
	_, err := r.Generate(context.Background(), start, end)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrRetrievalFailed)
}
