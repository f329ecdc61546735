package events

import (
	"sync"

	"github.com/OldStager01/cloud-optimizer/internal/logger"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// Bus fans events out to subscribers over buffered channels. Publishing
// never blocks: when a subscriber's buffer is full, its oldest queued
// event is evicted so the stream keeps the most recent ones.
type Bus struct {
	subscribers map[models.EventType][]chan *models.Event
	allChans    []chan *models.Event
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
}

func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Bus{
		subscribers: make(map[models.EventType][]chan *models.Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe returns a channel receiving only the given event type.
func (b *Bus) Subscribe(eventType models.EventType) <-chan *models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *models.Event, b.bufferSize)
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	return ch
}

// SubscribeAll returns a channel receiving every event type.
func (b *Bus) SubscribeAll() <-chan *models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *models.Event, b.bufferSize)
	for _, eventType := range allEventTypes() {
		b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	}
	b.allChans = append(b.allChans, ch)
	return ch
}

func (b *Bus) Publish(event *models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subscribers[event.Type] {
		select {
		case ch <- event:
			continue
		default:
		}

		// Full: make room by evicting the oldest queued event, then
		// retry once. The subscriber may have drained concurrently, so
		// both selects stay non-blocking.
		select {
		case <-ch:
			logger.Warnf("Event channel full, evicted oldest event for: %s", event.Type)
		default:
		}
		select {
		case ch <- event:
		default:
			logger.Warnf("Event channel full, dropping event: %s", event.Type)
		}
	}
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	closed := make(map[chan *models.Event]bool)
	for _, ch := range b.allChans {
		close(ch)
		closed[ch] = true
	}
	for _, subscribers := range b.subscribers {
		for _, ch := range subscribers {
			if !closed[ch] {
				close(ch)
				closed[ch] = true
			}
		}
	}

	b.subscribers = make(map[models.EventType][]chan *models.Event)
	b.allChans = nil
}

func allEventTypes() []models.EventType {
	return []models.EventType{
		models.EventRunStarted,
		models.EventInventoryFetched,
		models.EventActionProposed,
		models.EventActionExecuted,
		models.EventActionFailed,
		models.EventActionSuppressed,
		models.EventMetricsMissing,
		models.EventRunCompleted,
		models.EventBudgetAlert,
	}
}
