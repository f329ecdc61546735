package events

import (
	"context"

	"github.com/OldStager01/cloud-optimizer/internal/logger"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// LoggerSink drains a subscription into the structured log, mapping
// event severity onto log level.
type LoggerSink struct {
	eventChan <-chan *models.Event
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewLoggerSink(eventChan <-chan *models.Event) *LoggerSink {
	ctx, cancel := context.WithCancel(context.Background())
	return &LoggerSink{
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *LoggerSink) Start() {
	go s.run()
}

func (s *LoggerSink) Stop() {
	s.cancel()
}

func (s *LoggerSink) run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-s.eventChan:
			if !ok {
				return
			}
			logEvent(event)
		}
	}
}

func logEvent(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"provider":   event.Provider,
		"run_id":     event.RunID,
		"target":     event.Target,
		"trace_id":   event.TraceID,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}
}

// AuditStore persists events. The Postgres implementation lives in
// pkg/database/queries.
type AuditStore interface {
	Insert(ctx context.Context, event *models.Event) error
}

// AuditSink writes executed, failed, and completed-run events to an
// audit store. Insert failures are logged and dropped; auditing never
// stalls a run.
type AuditSink struct {
	store     AuditStore
	eventChan <-chan *models.Event
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewAuditSink(store AuditStore, eventChan <-chan *models.Event) *AuditSink {
	ctx, cancel := context.WithCancel(context.Background())
	return &AuditSink{
		store:     store,
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *AuditSink) Start() {
	go s.run()
}

func (s *AuditSink) Stop() {
	s.cancel()
}

func (s *AuditSink) run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-s.eventChan:
			if !ok {
				return
			}
			if !auditable(event.Type) {
				continue
			}
			if err := s.store.Insert(s.ctx, event); err != nil {
				logger.Errorf("Failed to persist audit event %s: %v", event.Type, err)
			}
		}
	}
}

func auditable(t models.EventType) bool {
	switch t {
	case models.EventActionExecuted, models.EventActionFailed, models.EventRunCompleted, models.EventBudgetAlert:
		return true
	}
	return false
}
