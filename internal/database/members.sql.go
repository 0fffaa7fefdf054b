package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const memberColumns = `id, name, phone, points, created_at, updated_at`

func scanMember(row interface{ Scan(...interface{}) error }) (Member, error) {
	var i Member
	err := row.Scan(&i.ID, &i.Name, &i.Phone, &i.Points, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const createMember = `-- name: CreateMember :one
INSERT INTO members (name, phone) VALUES ($1, $2)
RETURNING ` + memberColumns

func (q *Queries) CreateMember(ctx context.Context, name, phone string) (Member, error) {
	return scanMember(q.db.QueryRow(ctx, createMember, name, phone))
}

const getMember = `-- name: GetMember :one
SELECT ` + memberColumns + ` FROM members WHERE id = $1
`

func (q *Queries) GetMember(ctx context.Context, id uuid.UUID) (Member, error) {
	return scanMember(q.db.QueryRow(ctx, getMember, id))
}

const getMemberByPhone = `-- name: GetMemberByPhone :one
SELECT ` + memberColumns + ` FROM members WHERE phone = $1
`

func (q *Queries) GetMemberByPhone(ctx context.Context, phone string) (Member, error) {
	return scanMember(q.db.QueryRow(ctx, getMemberByPhone, phone))
}

const listMembers = `-- name: ListMembers :many
SELECT ` + memberColumns + ` FROM members
WHERE ($1::text IS NULL OR name ILIKE '%' || $1 || '%' OR phone LIKE '%' || $1 || '%')
ORDER BY name
LIMIT $2 OFFSET $3
`

type ListMembersParams struct {
	Search pgtype.Text `json:"search"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

func (q *Queries) ListMembers(ctx context.Context, arg ListMembersParams) ([]Member, error) {
	rows, err := q.db.Query(ctx, listMembers, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Member{}
	for rows.Next() {
		i, err := scanMember(rows)
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

const updateMember = `-- name: UpdateMember :one
UPDATE members SET name = $2, phone = $3, updated_at = now()
WHERE id = $1
RETURNING ` + memberColumns

func (q *Queries) UpdateMember(ctx context.Context, id uuid.UUID, name, phone string) (Member, error) {
	return scanMember(q.db.QueryRow(ctx, updateMember, id, name, phone))
}

const deleteMember = `-- name: DeleteMember :execrows
DELETE FROM members WHERE id = $1
`

func (q *Queries) DeleteMember(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteMember, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const addMemberPoints = `-- name: AddMemberPoints :one
UPDATE members SET points = points + $2, updated_at = now()
WHERE id = $1
RETURNING ` + memberColumns

func (q *Queries) AddMemberPoints(ctx context.Context, id uuid.UUID, points int32) (Member, error) {
	return scanMember(q.db.QueryRow(ctx, addMemberPoints, id, points))
}

const deductMemberPoints = `-- name: DeductMemberPoints :one
UPDATE members SET points = points - $2, updated_at = now()
WHERE id = $1 AND points >= $2
RETURNING ` + memberColumns

// DeductMemberPoints returns pgx.ErrNoRows when the member is missing or the balance is short.
func (q *Queries) DeductMemberPoints(ctx context.Context, id uuid.UUID, points int32) (Member, error) {
	return scanMember(q.db.QueryRow(ctx, deductMemberPoints, id, points))
}

const createMemberPointLog = `-- name: CreateMemberPointLog :one
INSERT INTO member_point_logs (member_id, order_id, delta, reason)
VALUES ($1, $2, $3, $4)
RETURNING id, member_id, order_id, delta, reason, created_at
`

type CreateMemberPointLogParams struct {
	MemberID uuid.UUID   `json:"member_id"`
	OrderID  pgtype.UUID `json:"order_id"`
	Delta    int32       `json:"delta"`
	Reason   string      `json:"reason"`
}

func (q *Queries) CreateMemberPointLog(ctx context.Context, arg CreateMemberPointLogParams) (MemberPointLog, error) {
	row := q.db.QueryRow(ctx, createMemberPointLog, arg.MemberID, arg.OrderID, arg.Delta, arg.Reason)
	var i MemberPointLog
	err := row.Scan(&i.ID, &i.MemberID, &i.OrderID, &i.Delta, &i.Reason, &i.CreatedAt)
	return i, err
}

const listMemberPointLogs = `-- name: ListMemberPointLogs :many
SELECT id, member_id, order_id, delta, reason, created_at
FROM member_point_logs
WHERE member_id = $1
ORDER BY created_at DESC
LIMIT $2
`

func (q *Queries) ListMemberPointLogs(ctx context.Context, memberID uuid.UUID, limit int32) ([]MemberPointLog, error) {
	rows, err := q.db.Query(ctx, listMemberPointLogs, memberID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MemberPointLog{}
	for rows.Next() {
		var i MemberPointLog
		if err := rows.Scan(&i.ID, &i.MemberID, &i.OrderID, &i.Delta, &i.Reason, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getMemberStats = `-- name: GetMemberStats :one
SELECT count(*)::bigint AS total_orders, COALESCE(SUM(total_amount), 0)::bigint AS total_spent
FROM orders
WHERE member_id = $1 AND status = 'COMPLETED'
`

type GetMemberStatsRow struct {
	TotalOrders int64 `json:"total_orders"`
	TotalSpent  int64 `json:"total_spent"`
}

func (q *Queries) GetMemberStats(ctx context.Context, memberID uuid.UUID) (GetMemberStatsRow, error) {
	row := q.db.QueryRow(ctx, getMemberStats, memberID)
	var i GetMemberStatsRow
	err := row.Scan(&i.TotalOrders, &i.TotalSpent)
	return i, err
}
