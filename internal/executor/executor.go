// Package executor applies proposed actions against a provider, one at a
// time, and records the outcome of each. A failed action never stops the
// remainder of the batch.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/OldStager01/cloud-optimizer/internal/logger"
	"github.com/OldStager01/cloud-optimizer/internal/provider"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

type Executor struct {
	provider provider.Provider
	dryRun   bool
	nowFn    func() time.Time
}

func New(p provider.Provider, dryRun bool) *Executor {
	return &Executor{
		provider: p,
		dryRun:   dryRun,
		nowFn:    time.Now,
	}
}

// ExecuteScaling applies scaling actions in order. In dry-run mode the
// provider is never called and every record carries OutcomeDryRun.
func (e *Executor) ExecuteScaling(ctx context.Context, actions []models.ScalingAction) []models.ExecutionRecord {
	records := make([]models.ExecutionRecord, 0, len(actions))
	for i := range actions {
		action := &actions[i]
		detail := fmt.Sprintf("%d -> %d instances: %s",
			action.CurrentInstances, action.TargetInstances, action.Reason)

		record := e.newRecord(models.RunScale, action.GroupID, detail)
		if e.dryRun {
			records = append(records, record)
			continue
		}

		start := e.nowFn()
		err := e.provider.ApplyScaling(ctx, action)
		record.Duration = e.nowFn().Sub(start)
		e.finish(&record, err)

		log := logger.WithGroup(action.GroupID).WithField("direction", string(action.Direction))
		if err != nil {
			log.WithError(err).Error("Scaling action failed")
		} else {
			log.Infof("Scaled %d -> %d", action.CurrentInstances, action.TargetInstances)
		}
		records = append(records, record)
	}
	return records
}

// ExecuteCleanup deletes eligible resources in order, isolating failures
// per resource.
func (e *Executor) ExecuteCleanup(ctx context.Context, actions []models.CleanupAction) []models.ExecutionRecord {
	records := make([]models.ExecutionRecord, 0, len(actions))
	for _, action := range actions {
		detail := fmt.Sprintf("%s, saves $%.2f/mo", action.Reason, action.EstimatedSavings)

		record := e.newRecord(models.RunCleanup, action.Resource.ID, detail)
		if e.dryRun {
			records = append(records, record)
			continue
		}

		start := e.nowFn()
		err := e.provider.DeleteResource(ctx, action.Resource.ID)
		record.Duration = e.nowFn().Sub(start)
		e.finish(&record, err)

		log := logger.WithResource(action.Resource.ID)
		if err != nil {
			log.WithError(err).Error("Cleanup action failed")
		} else {
			log.Infof("Deleted resource, estimated savings $%.2f/mo", action.EstimatedSavings)
		}
		records = append(records, record)
	}
	return records
}

func (e *Executor) newRecord(kind models.RunKind, targetID, detail string) models.ExecutionRecord {
	outcome := models.OutcomeApplied
	if e.dryRun {
		outcome = models.OutcomeDryRun
	}
	return models.ExecutionRecord{
		ActionID:   models.NewUUID(),
		Kind:       kind,
		TargetID:   targetID,
		Detail:     detail,
		Outcome:    outcome,
		ExecutedAt: e.nowFn(),
	}
}

func (e *Executor) finish(record *models.ExecutionRecord, err error) {
	if err != nil {
		record.Outcome = models.OutcomeFailed
		record.Error = err.Error()
	}
}
