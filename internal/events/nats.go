package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/OldStager01/cloud-optimizer/internal/logger"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// NATSSink republishes bus events to NATS under
// <prefix>.<provider>.<type> so external consumers can follow runs
// without touching this process.
type NATSSink struct {
	conn      *nats.Conn
	prefix    string
	eventChan <-chan *models.Event
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewNATSSink(url, prefix string, eventChan <-chan *models.Event) (*NATSSink, error) {
	if prefix == "" {
		prefix = "fleet.events"
	}

	conn, err := nats.Connect(url,
		nats.Name("cloud-optimizer"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &NATSSink{
		conn:      conn,
		prefix:    prefix,
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

func (s *NATSSink) Start() {
	go s.run()
}

func (s *NATSSink) Stop() {
	s.cancel()
	if err := s.conn.Drain(); err != nil {
		logger.Warnf("NATS drain failed: %v", err)
	}
}

func (s *NATSSink) run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-s.eventChan:
			if !ok {
				return
			}
			s.publish(event)
		}
	}
}

func (s *NATSSink) publish(event *models.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("Failed to encode event %s: %v", event.Type, err)
		return
	}

	if err := s.conn.Publish(s.subject(event), data); err != nil {
		logger.Warnf("Failed to publish event %s to NATS: %v", event.Type, err)
	}
}

func (s *NATSSink) subject(event *models.Event) string {
	provider := string(event.Provider)
	if provider == "" {
		provider = "all"
	}
	return fmt.Sprintf("%s.%s.%s", s.prefix, provider, event.Type)
}
