package models

import "time"

type EventType string

const (
	EventRunStarted       EventType = "run_started"
	EventInventoryFetched EventType = "inventory_fetched"
	EventActionProposed   EventType = "action_proposed"
	EventActionExecuted   EventType = "action_executed"
	EventActionFailed     EventType = "action_failed"
	EventActionSuppressed EventType = "action_suppressed"
	EventMetricsMissing   EventType = "metrics_missing"
	EventRunCompleted     EventType = "run_completed"
	EventBudgetAlert      EventType = "budget_alert"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event is one observable fact about a run, published on the event bus
// and fanned out to sinks and websocket clients.
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Provider  CloudProvider `json:"provider,omitempty"`
	RunID     string        `json:"run_id,omitempty"`
	Target    string        `json:"target,omitempty"`
	Severity  EventSeverity `json:"severity"`
	Message   string        `json:"message"`
	Data      interface{}   `json:"data,omitempty"`
	TraceID   string        `json:"trace_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewEvent(eventType EventType, provider CloudProvider, message string) *Event {
	return &Event{
		ID:        NewUUID(),
		Type:      eventType,
		Provider:  provider,
		Severity:  SeverityInfo,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}

func (e *Event) WithRun(runID string) *Event {
	e.RunID = runID
	return e
}

func (e *Event) WithTarget(target string) *Event {
	e.Target = target
	return e
}
