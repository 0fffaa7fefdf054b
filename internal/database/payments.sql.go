package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `id, order_id, amount, method, amount_received, change_amount, reference_number, points_earned, processed_by, created_at`

func scanPayment(row interface{ Scan(...interface{}) error }) (Payment, error) {
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.Amount,
		&i.Method,
		&i.AmountReceived,
		&i.ChangeAmount,
		&i.ReferenceNumber,
		&i.PointsEarned,
		&i.ProcessedBy,
		&i.CreatedAt,
	)
	return i, err
}

const createPayment = `-- name: CreatePayment :one
INSERT INTO payments (order_id, amount, method, amount_received, change_amount, reference_number, points_earned, processed_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + paymentColumns

type CreatePaymentParams struct {
	OrderID         uuid.UUID     `json:"order_id"`
	Amount          int64         `json:"amount"`
	Method          PaymentMethod `json:"method"`
	AmountReceived  pgtype.Int8   `json:"amount_received"`
	ChangeAmount    pgtype.Int8   `json:"change_amount"`
	ReferenceNumber pgtype.Text   `json:"reference_number"`
	PointsEarned    int32         `json:"points_earned"`
	ProcessedBy     pgtype.UUID   `json:"processed_by"`
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, createPayment,
		arg.OrderID,
		arg.Amount,
		string(arg.Method),
		arg.AmountReceived,
		arg.ChangeAmount,
		arg.ReferenceNumber,
		arg.PointsEarned,
		arg.ProcessedBy,
	))
}

const getPaymentByOrder = `-- name: GetPaymentByOrder :one
SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1
`

func (q *Queries) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPaymentByOrder, orderID))
}

const getPaymentSummary = `-- name: GetPaymentSummary :many
SELECT method, count(*)::bigint AS transactions, COALESCE(SUM(amount), 0)::bigint AS total
FROM payments
WHERE created_at >= $1 AND created_at < $2
GROUP BY method
ORDER BY method
`

type GetPaymentSummaryRow struct {
	Method       PaymentMethod `json:"method"`
	Transactions int64         `json:"transactions"`
	Total        int64         `json:"total"`
}

// GetPaymentSummary covers the half-open range [start, end).
func (q *Queries) GetPaymentSummary(ctx context.Context, start, end time.Time) ([]GetPaymentSummaryRow, error) {
	rows, err := q.db.Query(ctx, getPaymentSummary, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetPaymentSummaryRow{}
	for rows.Next() {
		var i GetPaymentSummaryRow
		if err := rows.Scan(&i.Method, &i.Transactions, &i.Total); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listPaymentsByRange = `-- name: ListPaymentsByRange :many
SELECT p.id, p.order_id, p.amount, p.method, p.amount_received, p.change_amount, p.reference_number, p.points_earned, p.processed_by, p.created_at,
       t.table_no, o.member_id
FROM payments p
JOIN orders o ON o.id = p.order_id
JOIN tables t ON t.id = o.table_id
WHERE p.created_at >= $1 AND p.created_at < $2
ORDER BY p.created_at DESC
`

type ListPaymentsByRangeRow struct {
	Payment  Payment     `json:"payment"`
	TableNo  int32       `json:"table_no"`
	MemberID pgtype.UUID `json:"member_id"`
}

// ListPaymentsByRange covers the half-open range [start, end), newest first.
func (q *Queries) ListPaymentsByRange(ctx context.Context, start, end time.Time) ([]ListPaymentsByRangeRow, error) {
	rows, err := q.db.Query(ctx, listPaymentsByRange, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListPaymentsByRangeRow{}
	for rows.Next() {
		var i ListPaymentsByRangeRow
		if err := rows.Scan(
			&i.Payment.ID,
			&i.Payment.OrderID,
			&i.Payment.Amount,
			&i.Payment.Method,
			&i.Payment.AmountReceived,
			&i.Payment.ChangeAmount,
			&i.Payment.ReferenceNumber,
			&i.Payment.PointsEarned,
			&i.Payment.ProcessedBy,
			&i.Payment.CreatedAt,
			&i.TableNo,
			&i.MemberID,
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
