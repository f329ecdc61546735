// Package cost builds spend reports from provider billing data. All
// arithmetic stays in decimals; converting to float happens only at the
// rendering edge, if at all.
package cost

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OldStager01/cloud-optimizer/internal/logger"
	"github.com/OldStager01/cloud-optimizer/internal/provider"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// Alert tiers relative to the configured budget.
var (
	warningRatio  = decimal.NewFromFloat(0.8)
	criticalRatio = decimal.NewFromInt(1)
)

type Reporter struct {
	provider provider.Provider
	currency string
	budget   decimal.Decimal
	nowFn    func() time.Time
}

// NewReporter builds a reporter. A budget of zero disables alerts.
func NewReporter(p provider.Provider, currency string, budget float64) *Reporter {
	if currency == "" {
		currency = "USD"
	}
	return &Reporter{
		provider: p,
		currency: currency,
		budget:   decimal.NewFromFloat(budget),
		nowFn:    time.Now,
	}
}

// Generate fetches per-service spend for the window and aggregates it
// into a report, services sorted by spend descending.
func (r *Reporter) Generate(ctx context.Context, start, end time.Time) (*models.CostReport, error) {
	services, err := r.provider.FetchServiceCosts(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch service costs: %w", err)
	}

	sort.SliceStable(services, func(i, j int) bool {
		return services[i].Amount.GreaterThan(services[j].Amount)
	})

	total := decimal.Zero
	for _, s := range services {
		total = total.Add(s.Amount)
	}

	report := &models.CostReport{
		Provider:    r.provider.Name(),
		StartDate:   start,
		EndDate:     end,
		TotalCost:   total,
		Currency:    r.currency,
		Services:    services,
		Alerts:      r.evaluateBudget(total),
		GeneratedAt: r.nowFn(),
	}

	logger.WithProvider(string(report.Provider)).
		WithField("total", total.StringFixed(2)).
		Debugf("Cost report generated for %s to %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))

	return report, nil
}

func (r *Reporter) evaluateBudget(total decimal.Decimal) []models.BudgetAlert {
	if !r.budget.IsPositive() {
		return nil
	}

	percent := total.Div(r.budget).Mul(decimal.NewFromInt(100))

	switch {
	case total.GreaterThanOrEqual(r.budget.Mul(criticalRatio)):
		return []models.BudgetAlert{{
			Severity: models.AlertCritical,
			Message: fmt.Sprintf("Spend %s %s is at %s%% of the %s %s budget",
				total.StringFixed(2), r.currency, percent.StringFixed(1), r.budget.StringFixed(2), r.currency),
			Budget: r.budget,
			Actual: total,
		}}
	case total.GreaterThanOrEqual(r.budget.Mul(warningRatio)):
		return []models.BudgetAlert{{
			Severity: models.AlertWarning,
			Message: fmt.Sprintf("Spend %s %s has reached %s%% of the %s %s budget",
				total.StringFixed(2), r.currency, percent.StringFixed(1), r.budget.StringFixed(2), r.currency),
			Budget: r.budget,
			Actual: total,
		}}
	}
	return nil
}
