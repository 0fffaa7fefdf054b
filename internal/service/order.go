package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/thaicafe/pos-api/internal/database"
	"github.com/thaicafe/pos-api/internal/events"
)

const (
	completedOrdersLimit = 50
	defaultListLimit     = 50
	maxListLimit         = 200
)

// OrderStore defines the DB methods needed by the order lifecycle and the kitchen board.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	GetTableForUpdate(ctx context.Context, id uuid.UUID) (database.Table, error)
	ListTables(ctx context.Context) ([]database.Table, error)
	UpdateTableStatus(ctx context.Context, id uuid.UUID, status database.TableStatus) (database.Table, error)
	GetMember(ctx context.Context, id uuid.UUID) (database.Member, error)
	GetMenusByIDs(ctx context.Context, ids []uuid.UUID) ([]database.Menu, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetActiveOrderByTable(ctx context.Context, tableID uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListKitchenOrders(ctx context.Context) ([]database.Order, error)
	ListCompletedOrders(ctx context.Context, limit int32) ([]database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	RecalculateOrderTotal(ctx context.Context, id uuid.UUID) (database.Order, error)
	CreateOrderDetail(ctx context.Context, arg database.CreateOrderDetailParams) (database.OrderDetail, error)
	GetOrderDetail(ctx context.Context, id uuid.UUID) (database.OrderDetail, error)
	ListOrderDetails(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderDetailsRow, error)
	ListOrderDetailsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]database.ListOrderDetailsRow, error)
	DeleteOrderDetail(ctx context.Context, id, orderID uuid.UUID) (int64, error)
	CountOrderDetails(ctx context.Context, orderID uuid.UUID) (int64, error)
	GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (database.Payment, error)
	CountStockOutLogsByOrder(ctx context.Context, orderID pgtype.UUID) (int64, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for opening an order on a table.
type CreateOrderRequest struct {
	TableID  uuid.UUID
	UserID   *uuid.UUID
	MemberID *uuid.UUID
	Notes    string
	Items    []OrderItemRequest
}

// OrderItemRequest is a single line of an order.
type OrderItemRequest struct {
	MenuID uuid.UUID
	Qty    int32
	Notes  string
}

// OrderResult is an order with its table number, lines and payment (if any).
type OrderResult struct {
	Order   database.Order
	TableNo int32
	Items   []database.ListOrderDetailsRow
	Payment *database.Payment
}

// ListOrdersFilter narrows ListOrders. Empty Statuses means all.
type ListOrdersFilter struct {
	Statuses []string
	TableID  *uuid.UUID
	Limit    int32
	Offset   int32
}

// OrderService handles the order lifecycle.
type OrderService struct {
	pool     TxBeginner
	store    OrderStore
	newStore NewOrderStore
	events   events.Publisher
}

// NewOrderService creates a new OrderService. store serves reads outside transactions.
func NewOrderService(pool TxBeginner, store OrderStore, newStore NewOrderStore, pub events.Publisher) *OrderService {
	return &OrderService{
		pool:     pool,
		store:    store,
		newStore: newStore,
		events:   publisherOrNop(pub),
	}
}

// allowedTransitions defines valid status transitions.
// Key is current status, value is the set of statuses it can transition to.
var allowedTransitions = map[database.OrderStatus][]database.OrderStatus{
	database.OrderStatusPENDING:   {database.OrderStatusPREPARING, database.OrderStatusCANCELLED},
	database.OrderStatusPREPARING: {database.OrderStatusREADY, database.OrderStatusCANCELLED},
	database.OrderStatusREADY:     {database.OrderStatusSERVED, database.OrderStatusCANCELLED},
	database.OrderStatusSERVED:    {database.OrderStatusCOMPLETED, database.OrderStatusCANCELLED},
}

// validateStatusTransition checks if the transition from current to next is allowed.
func validateStatusTransition(current, next database.OrderStatus) error {
	allowed, ok := allowedTransitions[current]
	if !ok {
		return fmt.Errorf("%w: %s is final", ErrInvalidTransition, current)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current, next)
}

func isEditable(s database.OrderStatus) bool {
	switch s {
	case database.OrderStatusPENDING, database.OrderStatusPREPARING, database.OrderStatusREADY:
		return true
	}
	return false
}

func isActive(s database.OrderStatus) bool {
	return isEditable(s) || s == database.OrderStatusSERVED
}

func parseOrderStatus(s string) (database.OrderStatus, error) {
	switch st := database.OrderStatus(s); st {
	case database.OrderStatusPENDING, database.OrderStatusPREPARING, database.OrderStatusREADY,
		database.OrderStatusSERVED, database.OrderStatusCOMPLETED, database.OrderStatusCANCELLED:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// CreateOrder prices every line from the current menu, opens the order and
// marks the table OCCUPIED in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for i, item := range req.Items {
		if item.Qty <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Lock table, enforce one active order ---
	table, err := store.GetTableForUpdate(ctx, req.TableID)
	if err != nil {
		return nil, notFound(err, ErrTableNotFound)
	}
	if _, err := store.GetActiveOrderByTable(ctx, table.ID); err == nil {
		return nil, ErrTableHasActiveOrder
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check active order: %w", err)
	}

	if req.MemberID != nil {
		if _, err := store.GetMember(ctx, *req.MemberID); err != nil {
			return nil, notFound(err, ErrMemberNotFound)
		}
	}

	// --- Price lines ---
	menus, err := loadMenus(ctx, store, req.Items)
	if err != nil {
		return nil, err
	}

	var total int64
	lines := make([]database.CreateOrderDetailParams, 0, len(req.Items))
	for i, item := range req.Items {
		menu, ok := menus[item.MenuID]
		if !ok {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuNotFound)
		}
		if !menu.IsAvailable {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuUnavailable)
		}
		subtotal := menu.Price * int64(item.Qty)
		total += subtotal
		lines = append(lines, database.CreateOrderDetailParams{
			MenuID:   item.MenuID,
			Qty:      item.Qty,
			Subtotal: subtotal,
			Notes:    optText(item.Notes),
		})
	}

	// --- Insert order + lines ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		TableID:     table.ID,
		UserID:      optUUID(req.UserID),
		MemberID:    optUUID(req.MemberID),
		TotalAmount: total,
		Notes:       optText(req.Notes),
	})
	if err != nil {
		if isUniqueViolation(err, "orders_one_active_per_table") {
			return nil, ErrTableHasActiveOrder
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.ListOrderDetailsRow, 0, len(lines))
	for _, line := range lines {
		line.OrderID = order.ID
		d, err := store.CreateOrderDetail(ctx, line)
		if err != nil {
			return nil, fmt.Errorf("create order detail: %w", err)
		}
		menu := menus[d.MenuID]
		items = append(items, database.ListOrderDetailsRow{
			ID:        d.ID,
			OrderID:   d.OrderID,
			MenuID:    d.MenuID,
			Qty:       d.Qty,
			Subtotal:  d.Subtotal,
			Notes:     d.Notes,
			CreatedAt: d.CreatedAt,
			MenuName:  menu.Name,
			MenuPrice: menu.Price,
		})
	}

	if _, err := store.UpdateTableStatus(ctx, table.ID, database.TableStatusOCCUPIED); err != nil {
		return nil, fmt.Errorf("occupy table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	publish(ctx, s.events, events.OrderCreated, orderPayload(order, table.TableNo, ""))
	if table.Status != database.TableStatusOCCUPIED {
		publish(ctx, s.events, events.TableStatusChanged, events.TablePayload{
			TableID: table.ID.String(), TableNo: table.TableNo, Status: string(database.TableStatusOCCUPIED),
		})
	}

	return &OrderResult{Order: order, TableNo: table.TableNo, Items: items}, nil
}

// UpdateOrderStatus moves an order along the state machine. COMPLETED requires
// a recorded payment; COMPLETED and CANCELLED release the table for cleaning.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) (*database.Order, error) {
	next, err := parseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	if next == database.OrderStatusPENDING {
		return nil, fmt.Errorf("%w: orders cannot return to PENDING", ErrInvalidStatus)
	}
	return s.transition(ctx, orderID, func(database.OrderStatus) (database.OrderStatus, error) {
		return next, nil
	})
}

// transition runs one status change. decide picks the target from the locked current status.
func (s *OrderService) transition(ctx context.Context, orderID uuid.UUID, decide func(current database.OrderStatus) (database.OrderStatus, error)) (*database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}

	next, err := decide(order.Status)
	if err != nil {
		return nil, err
	}
	if err := validateStatusTransition(order.Status, next); err != nil {
		return nil, err
	}

	if next == database.OrderStatusCOMPLETED {
		if _, err := store.GetPaymentByOrder(ctx, order.ID); err != nil {
			return nil, notFound(err, ErrOrderNotPaid)
		}
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:         order.ID,
		Status:     next,
		PrevStatus: order.Status,
	})
	if err != nil {
		return nil, notFound(err, ErrStatusChanged)
	}

	var released *database.Table
	if next == database.OrderStatusCOMPLETED || next == database.OrderStatusCANCELLED {
		t, err := store.UpdateTableStatus(ctx, order.TableID, database.TableStatusCLEANING)
		if err != nil {
			return nil, fmt.Errorf("release table: %w", err)
		}
		released = &t
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	var tableNo int32
	if released != nil {
		tableNo = released.TableNo
	}
	publish(ctx, s.events, events.OrderStatusChanged, orderPayload(updated, tableNo, string(order.Status)))
	if released != nil {
		publish(ctx, s.events, events.TableStatusChanged, events.TablePayload{
			TableID: released.ID.String(), TableNo: released.TableNo, Status: string(released.Status),
		})
	}

	return &updated, nil
}

// AddOrderItem appends a line to an editable order and recomputes the total.
func (s *OrderService) AddOrderItem(ctx context.Context, orderID uuid.UUID, item OrderItemRequest) (*OrderResult, error) {
	if item.Qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	return s.editOrder(ctx, orderID, func(store OrderStore, order database.Order) error {
		menus, err := loadMenus(ctx, store, []OrderItemRequest{item})
		if err != nil {
			return err
		}
		menu, ok := menus[item.MenuID]
		if !ok {
			return ErrMenuNotFound
		}
		if !menu.IsAvailable {
			return ErrMenuUnavailable
		}
		if _, err := store.CreateOrderDetail(ctx, database.CreateOrderDetailParams{
			OrderID:  order.ID,
			MenuID:   menu.ID,
			Qty:      item.Qty,
			Subtotal: menu.Price * int64(item.Qty),
			Notes:    optText(item.Notes),
		}); err != nil {
			return fmt.Errorf("create order detail: %w", err)
		}
		return nil
	})
}

// RemoveOrderItem deletes a line from an editable order and recomputes the total.
// The last line cannot be removed; cancel the order instead.
func (s *OrderService) RemoveOrderItem(ctx context.Context, orderID, detailID uuid.UUID) (*OrderResult, error) {
	return s.editOrder(ctx, orderID, func(store OrderStore, order database.Order) error {
		detail, err := store.GetOrderDetail(ctx, detailID)
		if err != nil {
			return notFound(err, ErrOrderItemNotFound)
		}
		if detail.OrderID != order.ID {
			return ErrOrderItemNotFound
		}
		count, err := store.CountOrderDetails(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("count order details: %w", err)
		}
		if count <= 1 {
			return ErrLastItem
		}
		n, err := store.DeleteOrderDetail(ctx, detailID, order.ID)
		if err != nil {
			return fmt.Errorf("delete order detail: %w", err)
		}
		if n == 0 {
			return ErrOrderItemNotFound
		}
		return nil
	})
}

// editOrder locks an editable order, applies mutate, then sets total = Σ subtotal.
// An order whose stock was already deducted is not editable.
func (s *OrderService) editOrder(ctx context.Context, orderID uuid.UUID, mutate func(store OrderStore, order database.Order) error) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	if !isEditable(order.Status) {
		return nil, fmt.Errorf("%w: order is %s", ErrOrderNotEditable, order.Status)
	}
	// Lines are frozen once stock has been taken for them.
	deducted, err := store.CountStockOutLogsByOrder(ctx, pgtype.UUID{Bytes: order.ID, Valid: true})
	if err != nil {
		return nil, fmt.Errorf("count stock logs: %w", err)
	}
	if deducted > 0 {
		return nil, fmt.Errorf("%w: stock already deducted", ErrOrderNotEditable)
	}

	if err := mutate(store, order); err != nil {
		return nil, err
	}

	updated, err := store.RecalculateOrderTotal(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("recalculate total: %w", err)
	}
	items, err := store.ListOrderDetails(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order details: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	publish(ctx, s.events, events.OrderItemsChanged, orderPayload(updated, 0, ""))

	return &OrderResult{Order: updated, Items: items}, nil
}

// GetOrder returns an order with its lines, table number and payment.
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderResult, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	items, err := s.store.ListOrderDetails(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order details: %w", err)
	}
	table, err := s.store.GetTable(ctx, order.TableID)
	if err != nil {
		return nil, fmt.Errorf("get table: %w", err)
	}

	res := &OrderResult{Order: order, TableNo: table.TableNo, Items: items}
	payment, err := s.store.GetPaymentByOrder(ctx, order.ID)
	switch {
	case err == nil:
		res.Payment = &payment
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return res, nil
}

// ListOrders returns orders newest first.
func (s *OrderService) ListOrders(ctx context.Context, f ListOrdersFilter) ([]database.Order, error) {
	for _, st := range f.Statuses {
		if _, err := parseOrderStatus(st); err != nil {
			return nil, err
		}
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	return s.store.ListOrders(ctx, database.ListOrdersParams{
		Statuses: f.Statuses,
		TableID:  optUUID(f.TableID),
		Limit:    limit,
		Offset:   offset,
	})
}

// ListCompletedOrders returns the most recent finished orders (COMPLETED, SERVED, CANCELLED).
func (s *OrderService) ListCompletedOrders(ctx context.Context) ([]database.Order, error) {
	return s.store.ListCompletedOrders(ctx, completedOrdersLimit)
}

// --- Helpers ---

func loadMenus(ctx context.Context, store interface {
	GetMenusByIDs(ctx context.Context, ids []uuid.UUID) ([]database.Menu, error)
}, items []OrderItemRequest) (map[uuid.UUID]database.Menu, error) {
	seen := make(map[uuid.UUID]bool, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		if !seen[it.MenuID] {
			seen[it.MenuID] = true
			ids = append(ids, it.MenuID)
		}
	}
	rows, err := store.GetMenusByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get menus: %w", err)
	}
	menus := make(map[uuid.UUID]database.Menu, len(rows))
	for _, m := range rows {
		menus[m.ID] = m
	}
	return menus, nil
}

func orderPayload(o database.Order, tableNo int32, prev string) events.OrderPayload {
	return events.OrderPayload{
		OrderID:     o.ID.String(),
		TableID:     o.TableID.String(),
		TableNo:     tableNo,
		Status:      string(o.Status),
		PrevStatus:  prev,
		TotalAmount: o.TotalAmount,
	}
}
