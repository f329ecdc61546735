package websocket

import (
	"context"
	"encoding/json"

	"github.com/OldStager01/cloud-optimizer/internal/logger"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// EventBridge forwards run events from the event bus to connected
// WebSocket clients.
type EventBridge struct {
	hub    *Hub
	events <-chan *models.Event
	ctx    context.Context
	cancel context.CancelFunc
}

func NewEventBridge(hub *Hub, events <-chan *models.Event) *EventBridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBridge{
		hub:    hub,
		events: events,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (b *EventBridge) Start() {
	go b.run()
	logger.Info("WebSocket event bridge started")
}

func (b *EventBridge) Stop() {
	b.cancel()
	logger.Info("WebSocket event bridge stopped")
}

func (b *EventBridge) run() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.events:
			if !ok {
				logger.Info("Event channel closed, stopping bridge")
				return
			}
			b.forward(event)
		}
	}
}

func (b *EventBridge) forward(event *models.Event) {
	data, err := json.Marshal(FromEvent(event))
	if err != nil {
		logger.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	b.hub.BroadcastToRun(event.RunID, data)
}
