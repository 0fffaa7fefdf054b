package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, table_id, user_id, member_id, status, total_amount, notes, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.TableID,
		&i.UserID,
		&i.MemberID,
		&i.Status,
		&i.TotalAmount,
		&i.Notes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectOrders(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
}) ([]Order, error) {
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (table_id, user_id, member_id, status, total_amount, notes)
VALUES ($1, $2, $3, 'PENDING', $4, $5)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	TableID     uuid.UUID   `json:"table_id"`
	UserID      pgtype.UUID `json:"user_id"`
	MemberID    pgtype.UUID `json:"member_id"`
	TotalAmount int64       `json:"total_amount"`
	Notes       pgtype.Text `json:"notes"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.TableID,
		arg.UserID,
		arg.MemberID,
		arg.TotalAmount,
		arg.Notes,
	))
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE
`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE (cardinality($1::text[]) = 0 OR status = ANY($1::text[]))
  AND ($2::uuid IS NULL OR table_id = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`

type ListOrdersParams struct {
	Statuses []string    `json:"statuses"`
	TableID  pgtype.UUID `json:"table_id"`
	Limit    int32       `json:"limit"`
	Offset   int32       `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	statuses := arg.Statuses
	if statuses == nil {
		statuses = []string{}
	}
	rows, err := q.db.Query(ctx, listOrders, statuses, arg.TableID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

const listKitchenOrders = `-- name: ListKitchenOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE status IN ('PENDING', 'PREPARING', 'READY')
ORDER BY created_at ASC
`

func (q *Queries) ListKitchenOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, listKitchenOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

const listCompletedOrders = `-- name: ListCompletedOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE status IN ('COMPLETED', 'SERVED', 'CANCELLED')
ORDER BY updated_at DESC
LIMIT $1
`

func (q *Queries) ListCompletedOrders(ctx context.Context, limit int32) ([]Order, error) {
	rows, err := q.db.Query(ctx, listCompletedOrders, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

const getActiveOrderByTable = `-- name: GetActiveOrderByTable :one
SELECT ` + orderColumns + ` FROM orders
WHERE table_id = $1 AND status IN ('PENDING', 'PREPARING', 'READY', 'SERVED')
LIMIT 1
`

func (q *Queries) GetActiveOrderByTable(ctx context.Context, tableID uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getActiveOrderByTable, tableID))
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID         uuid.UUID   `json:"id"`
	Status     OrderStatus `json:"status"`
	PrevStatus OrderStatus `json:"prev_status"`
}

// UpdateOrderStatus is a compare-and-set on the previous status; a lost race yields pgx.ErrNoRows.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, string(arg.Status), string(arg.PrevStatus)))
}

const completeOrder = `-- name: CompleteOrder :one
UPDATE orders
SET status = 'COMPLETED', member_id = COALESCE($2, member_id), updated_at = now()
WHERE id = $1 AND status NOT IN ('COMPLETED', 'CANCELLED')
RETURNING ` + orderColumns

func (q *Queries) CompleteOrder(ctx context.Context, id uuid.UUID, memberID pgtype.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, completeOrder, id, memberID))
}

const recalculateOrderTotal = `-- name: RecalculateOrderTotal :one
UPDATE orders
SET total_amount = (SELECT COALESCE(SUM(subtotal), 0) FROM order_details WHERE order_id = $1)::bigint,
    updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) RecalculateOrderTotal(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, recalculateOrderTotal, id))
}

const countActiveOrders = `-- name: CountActiveOrders :one
SELECT count(*) FROM orders WHERE status IN ('PENDING', 'PREPARING', 'READY', 'SERVED')
`

func (q *Queries) CountActiveOrders(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countActiveOrders)
	var count int64
	err := row.Scan(&count)
	return count, err
}
