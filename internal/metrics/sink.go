package metrics

import (
	"context"

	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// Sink feeds the registry from the event stream, so counters track
// exactly what was published without instrumenting the flows directly.
type Sink struct {
	registry *Metrics
	events   <-chan *models.Event
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewSink(registry *Metrics, events <-chan *models.Event) *Sink {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sink{
		registry: registry,
		events:   events,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

func (s *Sink) Start() {
	go s.run()
}

func (s *Sink) Stop() {
	s.cancel()
	<-s.done
}

func (s *Sink) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-s.events:
			if !ok {
				return
			}
			s.record(event)
		}
	}
}

func (s *Sink) record(event *models.Event) {
	switch event.Type {
	case models.EventActionExecuted, models.EventActionFailed:
		if record, ok := event.Data.(models.ExecutionRecord); ok {
			s.registry.IncAction(string(record.Kind), string(record.Outcome))
		}

	case models.EventActionSuppressed:
		s.registry.IncSuppression(event.Target)

	case models.EventMetricsMissing:
		s.registry.IncMetricsMissing(event.Target)

	case models.EventBudgetAlert:
		s.registry.IncBudgetAlert(string(event.Severity))

	case models.EventRunCompleted:
		report, ok := event.Data.(*models.RunReport)
		if !ok {
			return
		}
		s.registry.IncRun(string(report.Kind), string(report.Status))
		s.registry.ObserveRun(string(report.Kind), report.Elapsed(), report.FinishedAt)
	}
}
