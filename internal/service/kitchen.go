package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/thaicafe/pos-api/internal/database"
)

// kitchenNext is the forward-only path a ticket follows on the board.
var kitchenNext = map[database.OrderStatus]database.OrderStatus{
	database.OrderStatusPENDING:   database.OrderStatusPREPARING,
	database.OrderStatusPREPARING: database.OrderStatusREADY,
	database.OrderStatusREADY:     database.OrderStatusSERVED,
}

// Ticket is one order as the kitchen sees it.
type Ticket struct {
	OrderID   uuid.UUID            `json:"order_id"`
	TableID   uuid.UUID            `json:"table_id"`
	TableNo   int32                `json:"table_no"`
	Status    database.OrderStatus `json:"status"`
	Notes     string               `json:"notes,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	Items     []TicketItem         `json:"items"`
}

type TicketItem struct {
	MenuName string `json:"menu_name"`
	Qty      int32  `json:"qty"`
	Notes    string `json:"notes,omitempty"`
}

// KitchenService drives the kitchen board on top of the order lifecycle.
type KitchenService struct {
	orders *OrderService
}

func NewKitchenService(orders *OrderService) *KitchenService {
	return &KitchenService{orders: orders}
}

// ListTickets returns PENDING, PREPARING and READY orders oldest first.
func (k *KitchenService) ListTickets(ctx context.Context) ([]Ticket, error) {
	store := k.orders.store

	orders, err := store.ListKitchenOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list kitchen orders: %w", err)
	}
	if len(orders) == 0 {
		return []Ticket{}, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	details, err := store.ListOrderDetailsByOrders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list order details: %w", err)
	}
	tables, err := store.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	tableNo := make(map[uuid.UUID]int32, len(tables))
	for _, t := range tables {
		tableNo[t.ID] = t.TableNo
	}
	itemsByOrder := make(map[uuid.UUID][]TicketItem, len(orders))
	for _, d := range details {
		itemsByOrder[d.OrderID] = append(itemsByOrder[d.OrderID], TicketItem{
			MenuName: d.MenuName,
			Qty:      d.Qty,
			Notes:    d.Notes.String,
		})
	}

	tickets := make([]Ticket, 0, len(orders))
	for _, o := range orders {
		items := itemsByOrder[o.ID]
		if items == nil {
			items = []TicketItem{}
		}
		tickets = append(tickets, Ticket{
			OrderID:   o.ID,
			TableID:   o.TableID,
			TableNo:   tableNo[o.TableID],
			Status:    o.Status,
			Notes:     o.Notes.String,
			CreatedAt: o.CreatedAt,
			Items:     items,
		})
	}
	return tickets, nil
}

// AdvanceTicket moves a ticket one step: PENDING→PREPARING→READY→SERVED.
func (k *KitchenService) AdvanceTicket(ctx context.Context, orderID uuid.UUID) (*database.Order, error) {
	return k.orders.transition(ctx, orderID, func(current database.OrderStatus) (database.OrderStatus, error) {
		next, ok := kitchenNext[current]
		if !ok {
			return "", fmt.Errorf("%w: %s is not on the kitchen board", ErrInvalidTransition, current)
		}
		return next, nil
	})
}

// SetTicketStatus sets a ticket to the next forward status. The kitchen may not
// cancel or complete orders.
func (k *KitchenService) SetTicketStatus(ctx context.Context, orderID uuid.UUID, status string) (*database.Order, error) {
	target, err := parseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	switch target {
	case database.OrderStatusPREPARING, database.OrderStatusREADY, database.OrderStatusSERVED:
	default:
		return nil, fmt.Errorf("%w: kitchen cannot set %s", ErrInvalidStatus, target)
	}
	return k.orders.transition(ctx, orderID, func(current database.OrderStatus) (database.OrderStatus, error) {
		if kitchenNext[current] != target {
			return "", fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current, target)
		}
		return target, nil
	})
}
