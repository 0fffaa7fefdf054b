package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createStockLog = `-- name: CreateStockLog :one
INSERT INTO stock_logs (ingredient_id, type, qty, notes, order_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, ingredient_id, type, qty, notes, order_id, created_at
`

type CreateStockLogParams struct {
	IngredientID uuid.UUID      `json:"ingredient_id"`
	Type         StockLogType   `json:"type"`
	Qty          pgtype.Numeric `json:"qty"`
	Notes        pgtype.Text    `json:"notes"`
	OrderID      pgtype.UUID    `json:"order_id"`
}

func (q *Queries) CreateStockLog(ctx context.Context, arg CreateStockLogParams) (StockLog, error) {
	row := q.db.QueryRow(ctx, createStockLog,
		arg.IngredientID,
		string(arg.Type),
		arg.Qty,
		arg.Notes,
		arg.OrderID,
	)
	var i StockLog
	err := row.Scan(
		&i.ID,
		&i.IngredientID,
		&i.Type,
		&i.Qty,
		&i.Notes,
		&i.OrderID,
		&i.CreatedAt,
	)
	return i, err
}

const listStockLogs = `-- name: ListStockLogs :many
SELECT id, ingredient_id, type, qty, notes, order_id, created_at
FROM stock_logs
WHERE ($1::uuid IS NULL OR ingredient_id = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

type ListStockLogsParams struct {
	IngredientID pgtype.UUID `json:"ingredient_id"`
	Limit        int32       `json:"limit"`
	Offset       int32       `json:"offset"`
}

func (q *Queries) ListStockLogs(ctx context.Context, arg ListStockLogsParams) ([]StockLog, error) {
	rows, err := q.db.Query(ctx, listStockLogs, arg.IngredientID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []StockLog{}
	for rows.Next() {
		var i StockLog
		if err := rows.Scan(
			&i.ID,
			&i.IngredientID,
			&i.Type,
			&i.Qty,
			&i.Notes,
			&i.OrderID,
			&i.CreatedAt,
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

const countStockOutLogsByOrder = `-- name: CountStockOutLogsByOrder :one
SELECT count(*) FROM stock_logs WHERE order_id = $1 AND type = 'OUT'
`

func (q *Queries) CountStockOutLogsByOrder(ctx context.Context, orderID pgtype.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countStockOutLogsByOrder, orderID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
