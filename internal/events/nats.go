package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSPublisher forwards events to NATS core subjects named <prefix>.<type>.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("pos-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	msg, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(Subject(p.prefix, e.Type), msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", e.Type, err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

func Subject(prefix, eventType string) string {
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}
