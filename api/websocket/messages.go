package websocket

import (
	"time"

	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// Envelope is the message format pushed to connected clients. Event
// types are already wire-friendly strings, so they pass through as-is.
type Envelope struct {
	Type      models.EventType `json:"type"`
	RunID     string           `json:"run_id,omitempty"`
	Provider  string           `json:"provider,omitempty"`
	Target    string           `json:"target,omitempty"`
	Severity  string           `json:"severity"`
	Message   string           `json:"message"`
	Data      interface{}      `json:"data,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

func FromEvent(event *models.Event) *Envelope {
	return &Envelope{
		Type:      event.Type,
		RunID:     event.RunID,
		Provider:  string(event.Provider),
		Target:    event.Target,
		Severity:  string(event.Severity),
		Message:   event.Message,
		Data:      event.Data,
		Timestamp: event.Timestamp,
	}
}

// SubscriptionUpdate acknowledges a subscribe or unsubscribe request.
type SubscriptionUpdate struct {
	Type      string    `json:"type"`
	Action    string    `json:"action"`
	RunID     string    `json:"run_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
