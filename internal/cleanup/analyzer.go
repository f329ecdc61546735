package cleanup

import (
	"fmt"
	"sync"
	"time"

	"github.com/OldStager01/cloud-optimizer/internal/logger"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// Thresholds tune eligibility. Zero values are honored as-is: an age
// threshold of 0 days flags anything older than today, a utilization
// threshold of 0 flags nothing on the utilization rule.
type Thresholds struct {
	AgeDays        int
	UtilizationPct float64
}

// Analyzer decides which resources are safe to delete. It is a pure
// function of its inputs: no side effects, no deletion, identical input
// always yields the identical ordered action list.
type Analyzer struct {
	thresholds  Thresholds
	maxParallel int
	nowFn       func() time.Time
}

func New(thresholds Thresholds) *Analyzer {
	return &Analyzer{
		thresholds:  thresholds,
		maxParallel: 4,
		nowFn:       time.Now,
	}
}

// Analyze walks the inventory and emits one action per eligible
// resource, preserving input order. Resources fan out across a bounded
// worker pool; results are joined back by index before returning.
func (a *Analyzer) Analyze(resources []models.Resource) []models.CleanupAction {
	if len(resources) == 0 {
		return nil
	}

	now := a.nowFn()
	results := make([]*models.CleanupAction, len(resources))

	workers := a.maxParallel
	if workers > len(resources) {
		workers = len(resources)
	}

	var wg sync.WaitGroup
	jobs := make(chan int, len(resources))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = a.evaluate(&resources[i], now)
			}
		}()
	}
	for i := range resources {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	actions := make([]models.CleanupAction, 0, len(resources))
	for _, r := range results {
		if r != nil {
			actions = append(actions, *r)
		}
	}

	logger.WithField("eligible", len(actions)).Debugf(
		"Cleanup analysis: %d of %d resources eligible", len(actions), len(resources),
	)
	return actions
}

// evaluate applies the eligibility rules in order, first match wins.
func (a *Analyzer) evaluate(r *models.Resource, now time.Time) *models.CleanupAction {
	if r.Utilization < a.thresholds.UtilizationPct {
		return a.buildAction(r, now, fmt.Sprintf("Low utilization (%.1f%%)", r.Utilization))
	}

	if days, known := r.AgeDays(now); known && days > a.thresholds.AgeDays {
		return a.buildAction(r, now, fmt.Sprintf("Old resource (%d days)", days))
	}

	return nil
}

func (a *Analyzer) buildAction(r *models.Resource, now time.Time, reason string) *models.CleanupAction {
	return &models.CleanupAction{
		Resource:         *r,
		Reason:           reason,
		EstimatedSavings: r.MonthlyCost,
		ProposedAt:       now,
	}
}
