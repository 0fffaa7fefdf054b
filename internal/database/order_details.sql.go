package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createOrderDetail = `-- name: CreateOrderDetail :one
INSERT INTO order_details (order_id, menu_id, qty, subtotal, notes)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, menu_id, qty, subtotal, notes, created_at
`

type CreateOrderDetailParams struct {
	OrderID  uuid.UUID   `json:"order_id"`
	MenuID   uuid.UUID   `json:"menu_id"`
	Qty      int32       `json:"qty"`
	Subtotal int64       `json:"subtotal"`
	Notes    pgtype.Text `json:"notes"`
}

func (q *Queries) CreateOrderDetail(ctx context.Context, arg CreateOrderDetailParams) (OrderDetail, error) {
	row := q.db.QueryRow(ctx, createOrderDetail,
		arg.OrderID,
		arg.MenuID,
		arg.Qty,
		arg.Subtotal,
		arg.Notes,
	)
	var i OrderDetail
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.MenuID,
		&i.Qty,
		&i.Subtotal,
		&i.Notes,
		&i.CreatedAt,
	)
	return i, err
}

const getOrderDetail = `-- name: GetOrderDetail :one
SELECT id, order_id, menu_id, qty, subtotal, notes, created_at FROM order_details WHERE id = $1
`

func (q *Queries) GetOrderDetail(ctx context.Context, id uuid.UUID) (OrderDetail, error) {
	row := q.db.QueryRow(ctx, getOrderDetail, id)
	var i OrderDetail
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.MenuID,
		&i.Qty,
		&i.Subtotal,
		&i.Notes,
		&i.CreatedAt,
	)
	return i, err
}

const listOrderDetails = `-- name: ListOrderDetails :many
SELECT d.id, d.order_id, d.menu_id, d.qty, d.subtotal, d.notes, d.created_at,
       m.name AS menu_name, m.price AS menu_price
FROM order_details d
JOIN menus m ON m.id = d.menu_id
WHERE d.order_id = $1
ORDER BY d.created_at, d.id
`

type ListOrderDetailsRow struct {
	ID        uuid.UUID   `json:"id"`
	OrderID   uuid.UUID   `json:"order_id"`
	MenuID    uuid.UUID   `json:"menu_id"`
	Qty       int32       `json:"qty"`
	Subtotal  int64       `json:"subtotal"`
	Notes     pgtype.Text `json:"notes"`
	CreatedAt time.Time   `json:"created_at"`
	MenuName  string      `json:"menu_name"`
	MenuPrice int64       `json:"menu_price"`
}

func (q *Queries) ListOrderDetails(ctx context.Context, orderID uuid.UUID) ([]ListOrderDetailsRow, error) {
	rows, err := q.db.Query(ctx, listOrderDetails, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrderDetailRows(rows)
}

const listOrderDetailsByOrders = `-- name: ListOrderDetailsByOrders :many
SELECT d.id, d.order_id, d.menu_id, d.qty, d.subtotal, d.notes, d.created_at,
       m.name AS menu_name, m.price AS menu_price
FROM order_details d
JOIN menus m ON m.id = d.menu_id
WHERE d.order_id = ANY($1::uuid[])
ORDER BY d.order_id, d.created_at, d.id
`

func (q *Queries) ListOrderDetailsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]ListOrderDetailsRow, error) {
	rows, err := q.db.Query(ctx, listOrderDetailsByOrders, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrderDetailRows(rows)
}

func collectOrderDetailRows(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
}) ([]ListOrderDetailsRow, error) {
	items := []ListOrderDetailsRow{}
	for rows.Next() {
		var i ListOrderDetailsRow
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.MenuID,
			&i.Qty,
			&i.Subtotal,
			&i.Notes,
			&i.CreatedAt,
			&i.MenuName,
			&i.MenuPrice,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteOrderDetail = `-- name: DeleteOrderDetail :execrows
DELETE FROM order_details WHERE id = $1 AND order_id = $2
`

func (q *Queries) DeleteOrderDetail(ctx context.Context, id, orderID uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteOrderDetail, id, orderID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const countOrderDetails = `-- name: CountOrderDetails :one
SELECT count(*) FROM order_details WHERE order_id = $1
`

func (q *Queries) CountOrderDetails(ctx context.Context, orderID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countOrderDetails, orderID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
