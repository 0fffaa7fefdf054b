// Package events carries order, table and stock notifications out of the
// service layer. Publishing happens after commit and is best effort.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
	OrderItemsChanged  = "order.items_changed"
	OrderSettled       = "order.settled"
	StockLow           = "stock.low"
	TableStatusChanged = "table.status_changed"
)

type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
}

// New marshals payload into an Event stamped with the current time.
func New(eventType string, payload interface{}) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: b, At: time.Now().UTC()}, nil
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Bus fans an event out to every sink. One failing sink does not stop the others.
type Bus struct {
	sinks []Publisher
}

func NewBus(sinks ...Publisher) *Bus {
	b := &Bus{}
	for _, s := range sinks {
		if s != nil {
			b.sinks = append(b.sinks, s)
		}
	}
	return b
}

func (b *Bus) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range b.sinks {
		if err := s.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ── Payloads ──

type OrderPayload struct {
	OrderID     string `json:"order_id"`
	TableID     string `json:"table_id"`
	TableNo     int32  `json:"table_no,omitempty"`
	Status      string `json:"status"`
	PrevStatus  string `json:"prev_status,omitempty"`
	TotalAmount int64  `json:"total_amount"`
}

type SettledPayload struct {
	OrderID      string `json:"order_id"`
	TableID      string `json:"table_id"`
	PaymentID    string `json:"payment_id"`
	Method       string `json:"method"`
	Amount       int64  `json:"amount"`
	PointsEarned int32  `json:"points_earned"`
}

type StockLowPayload struct {
	IngredientID string `json:"ingredient_id"`
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	CurrentStock string `json:"current_stock"`
	MinStock     string `json:"min_stock"`
}

type TablePayload struct {
	TableID string `json:"table_id"`
	TableNo int32  `json:"table_no"`
	Status  string `json:"status"`
}
