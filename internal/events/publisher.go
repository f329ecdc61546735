package events

import (
	"fmt"
	"time"

	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// Publisher builds well-formed events for one provider and pushes them
// onto the bus. Clones carry run and trace identity so every event of a
// run correlates.
type Publisher struct {
	bus      *Bus
	provider models.CloudProvider
	runID    string
	traceID  string
}

func NewPublisher(bus *Bus, provider models.CloudProvider) *Publisher {
	return &Publisher{bus: bus, provider: provider}
}

func (p *Publisher) ForRun(runID string) *Publisher {
	clone := *p
	clone.runID = runID
	return &clone
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	clone := *p
	clone.traceID = traceID
	return &clone
}

func (p *Publisher) publish(event *models.Event) {
	if p.runID != "" {
		event.RunID = p.runID
	}
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) RunStarted(kind models.RunKind, dryRun bool) {
	msg := fmt.Sprintf("%s run started", kind)
	if dryRun {
		msg += " (dry run)"
	}
	p.publish(models.NewEvent(models.EventRunStarted, p.provider, msg))
}

func (p *Publisher) InventoryFetched(what string, count int) {
	msg := fmt.Sprintf("Fetched %d %s", count, what)
	p.publish(models.NewEvent(models.EventInventoryFetched, p.provider, msg).
		WithData(map[string]interface{}{"what": what, "count": count}))
}

func (p *Publisher) ActionProposed(target, detail string, data interface{}) {
	msg := "Proposed: " + detail
	p.publish(models.NewEvent(models.EventActionProposed, p.provider, msg).
		WithTarget(target).
		WithData(data))
}

func (p *Publisher) ActionExecuted(record models.ExecutionRecord) {
	msg := "Applied: " + record.Detail
	p.publish(models.NewEvent(models.EventActionExecuted, p.provider, msg).
		WithTarget(record.TargetID).
		WithData(record))
}

func (p *Publisher) ActionFailed(record models.ExecutionRecord) {
	msg := "Failed: " + record.Detail
	p.publish(models.NewEvent(models.EventActionFailed, p.provider, msg).
		WithSeverity(models.SeverityCritical).
		WithTarget(record.TargetID).
		WithData(record))
}

func (p *Publisher) ActionSuppressed(groupID string, direction models.ScalingDirection, remaining time.Duration) {
	msg := fmt.Sprintf("Suppressed %s for %s, cooldown ends in %s",
		direction, groupID, remaining.Round(time.Second))
	p.publish(models.NewEvent(models.EventActionSuppressed, p.provider, msg).
		WithTarget(groupID).
		WithData(map[string]interface{}{
			"direction":    string(direction),
			"remaining_ms": remaining.Milliseconds(),
		}))
}

func (p *Publisher) MetricsMissing(groupID string, err error) {
	msg := fmt.Sprintf("Metrics unavailable for %s: %v", groupID, err)
	p.publish(models.NewEvent(models.EventMetricsMissing, p.provider, msg).
		WithSeverity(models.SeverityWarning).
		WithTarget(groupID))
}

func (p *Publisher) RunCompleted(report *models.RunReport) {
	msg := fmt.Sprintf("%s run %s: %d applied, %d failed",
		report.Kind, report.Status, report.Applied, report.Failed)

	event := models.NewEvent(models.EventRunCompleted, p.provider, msg).WithData(report)
	switch report.Status {
	case models.RunFailed:
		event.WithSeverity(models.SeverityCritical)
	case models.RunPartial:
		event.WithSeverity(models.SeverityWarning)
	}
	p.publish(event)
}

func (p *Publisher) BudgetAlert(alert models.BudgetAlert) {
	event := models.NewEvent(models.EventBudgetAlert, p.provider, alert.Message).WithData(alert)
	if alert.Severity == models.AlertCritical {
		event.WithSeverity(models.SeverityCritical)
	} else {
		event.WithSeverity(models.SeverityWarning)
	}
	p.publish(event)
}
