package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const tableColumns = `id, table_no, capacity, zone, status, created_at, updated_at`

func scanTable(row interface{ Scan(...interface{}) error }) (Table, error) {
	var i Table
	err := row.Scan(
		&i.ID,
		&i.TableNo,
		&i.Capacity,
		&i.Zone,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createTable = `-- name: CreateTable :one
INSERT INTO dining_tables (table_no, capacity, zone)
VALUES ($1, $2, $3)
RETURNING ` + tableColumns

type CreateTableParams struct {
	TableNo  int32       `json:"table_no"`
	Capacity int32       `json:"capacity"`
	Zone     pgtype.Text `json:"zone"`
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, createTable, arg.TableNo, arg.Capacity, arg.Zone))
}

const getTable = `-- name: GetTable :one
SELECT ` + tableColumns + ` FROM dining_tables WHERE id = $1
`

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, getTable, id))
}

const getTableForUpdate = `-- name: GetTableForUpdate :one
SELECT ` + tableColumns + ` FROM dining_tables WHERE id = $1 FOR UPDATE
`

func (q *Queries) GetTableForUpdate(ctx context.Context, id uuid.UUID) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, getTableForUpdate, id))
}

const listTables = `-- name: ListTables :many
SELECT ` + tableColumns + ` FROM dining_tables ORDER BY table_no
`

func (q *Queries) ListTables(ctx context.Context) ([]Table, error) {
	rows, err := q.db.Query(ctx, listTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Table{}
	for rows.Next() {
		i, err := scanTable(rows)
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

const updateTable = `-- name: UpdateTable :one
UPDATE dining_tables SET table_no = $2, capacity = $3, zone = $4, updated_at = now()
WHERE id = $1
RETURNING ` + tableColumns

type UpdateTableParams struct {
	ID       uuid.UUID   `json:"id"`
	TableNo  int32       `json:"table_no"`
	Capacity int32       `json:"capacity"`
	Zone     pgtype.Text `json:"zone"`
}

func (q *Queries) UpdateTable(ctx context.Context, arg UpdateTableParams) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, updateTable, arg.ID, arg.TableNo, arg.Capacity, arg.Zone))
}

const updateTableStatus = `-- name: UpdateTableStatus :one
UPDATE dining_tables SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + tableColumns

func (q *Queries) UpdateTableStatus(ctx context.Context, id uuid.UUID, status TableStatus) (Table, error) {
	return scanTable(q.db.QueryRow(ctx, updateTableStatus, id, string(status)))
}

const deleteTable = `-- name: DeleteTable :execrows
DELETE FROM dining_tables WHERE id = $1
`

func (q *Queries) DeleteTable(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteTable, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const countTablesByStatus = `-- name: CountTablesByStatus :many
SELECT status, count(*) AS count FROM dining_tables GROUP BY status ORDER BY status
`

type CountTablesByStatusRow struct {
	Status TableStatus `json:"status"`
	Count  int64       `json:"count"`
}

func (q *Queries) CountTablesByStatus(ctx context.Context) ([]CountTablesByStatusRow, error) {
	rows, err := q.db.Query(ctx, countTablesByStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CountTablesByStatusRow{}
	for rows.Next() {
		var i CountTablesByStatusRow
		if err := rows.Scan(&i.Status, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
