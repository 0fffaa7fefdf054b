package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const getSalesByPeriod = `-- name: GetSalesByPeriod :many
SELECT date_trunc($3::text, p.created_at)::timestamptz AS period,
       count(*)::bigint AS order_count,
       COALESCE(SUM(p.amount), 0)::bigint AS revenue
FROM payments p
WHERE p.created_at >= $1 AND p.created_at < $2
GROUP BY 1
ORDER BY 1
`

type GetSalesByPeriodParams struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Granularity string    `json:"granularity"`
}

type GetSalesByPeriodRow struct {
	Period     time.Time `json:"period"`
	OrderCount int64     `json:"order_count"`
	Revenue    int64     `json:"revenue"`
}

func (q *Queries) GetSalesByPeriod(ctx context.Context, arg GetSalesByPeriodParams) ([]GetSalesByPeriodRow, error) {
	rows, err := q.db.Query(ctx, getSalesByPeriod, arg.Start, arg.End, arg.Granularity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetSalesByPeriodRow{}
	for rows.Next() {
		var i GetSalesByPeriodRow
		if err := rows.Scan(&i.Period, &i.OrderCount, &i.Revenue); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTopSellingMenus = `-- name: GetTopSellingMenus :many
SELECT d.menu_id, m.name AS menu_name,
       SUM(d.qty)::bigint AS qty_sold,
       SUM(d.subtotal)::bigint AS revenue
FROM order_details d
JOIN orders o ON o.id = d.order_id
JOIN menus m ON m.id = d.menu_id
WHERE o.status = 'COMPLETED'
  AND o.updated_at >= $1 AND o.updated_at < $2
GROUP BY d.menu_id, m.name
ORDER BY qty_sold DESC, revenue DESC
LIMIT $3
`

type GetTopSellingMenusParams struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Limit int32     `json:"limit"`
}

type GetTopSellingMenusRow struct {
	MenuID   uuid.UUID `json:"menu_id"`
	MenuName string    `json:"menu_name"`
	QtySold  int64     `json:"qty_sold"`
	Revenue  int64     `json:"revenue"`
}

func (q *Queries) GetTopSellingMenus(ctx context.Context, arg GetTopSellingMenusParams) ([]GetTopSellingMenusRow, error) {
	rows, err := q.db.Query(ctx, getTopSellingMenus, arg.Start, arg.End, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetTopSellingMenusRow{}
	for rows.Next() {
		var i GetTopSellingMenusRow
		if err := rows.Scan(&i.MenuID, &i.MenuName, &i.QtySold, &i.Revenue); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
