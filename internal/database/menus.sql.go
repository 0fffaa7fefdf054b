package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuColumns = `id, category_id, name, description, price, image, is_available, created_at, updated_at`

func scanMenu(row interface{ Scan(...interface{}) error }) (Menu, error) {
	var i Menu
	err := row.Scan(
		&i.ID,
		&i.CategoryID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.Image,
		&i.IsAvailable,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createMenu = `-- name: CreateMenu :one
INSERT INTO menus (category_id, name, description, price, image, is_available)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + menuColumns

type CreateMenuParams struct {
	CategoryID  uuid.UUID   `json:"category_id"`
	Name        string      `json:"name"`
	Description pgtype.Text `json:"description"`
	Price       int64       `json:"price"`
	Image       pgtype.Text `json:"image"`
	IsAvailable bool        `json:"is_available"`
}

func (q *Queries) CreateMenu(ctx context.Context, arg CreateMenuParams) (Menu, error) {
	return scanMenu(q.db.QueryRow(ctx, createMenu,
		arg.CategoryID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.Image,
		arg.IsAvailable,
	))
}

const getMenu = `-- name: GetMenu :one
SELECT ` + menuColumns + ` FROM menus WHERE id = $1
`

func (q *Queries) GetMenu(ctx context.Context, id uuid.UUID) (Menu, error) {
	return scanMenu(q.db.QueryRow(ctx, getMenu, id))
}

const getMenusByIDs = `-- name: GetMenusByIDs :many
SELECT ` + menuColumns + ` FROM menus WHERE id = ANY($1::uuid[])
`

func (q *Queries) GetMenusByIDs(ctx context.Context, ids []uuid.UUID) ([]Menu, error) {
	rows, err := q.db.Query(ctx, getMenusByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Menu{}
	for rows.Next() {
		i, err := scanMenu(rows)
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

const listMenus = `-- name: ListMenus :many
SELECT ` + menuColumns + ` FROM menus
WHERE ($1::uuid IS NULL OR category_id = $1)
  AND ($2::bool IS NULL OR is_available = $2)
ORDER BY name
`

type ListMenusParams struct {
	CategoryID  pgtype.UUID `json:"category_id"`
	IsAvailable pgtype.Bool `json:"is_available"`
}

func (q *Queries) ListMenus(ctx context.Context, arg ListMenusParams) ([]Menu, error) {
	rows, err := q.db.Query(ctx, listMenus, arg.CategoryID, arg.IsAvailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Menu{}
	for rows.Next() {
		i, err := scanMenu(rows)
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

const updateMenu = `-- name: UpdateMenu :one
UPDATE menus
SET category_id = $2, name = $3, description = $4, price = $5, image = $6, is_available = $7, updated_at = now()
WHERE id = $1
RETURNING ` + menuColumns

type UpdateMenuParams struct {
	ID          uuid.UUID   `json:"id"`
	CategoryID  uuid.UUID   `json:"category_id"`
	Name        string      `json:"name"`
	Description pgtype.Text `json:"description"`
	Price       int64       `json:"price"`
	Image       pgtype.Text `json:"image"`
	IsAvailable bool        `json:"is_available"`
}

func (q *Queries) UpdateMenu(ctx context.Context, arg UpdateMenuParams) (Menu, error) {
	return scanMenu(q.db.QueryRow(ctx, updateMenu,
		arg.ID,
		arg.CategoryID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.Image,
		arg.IsAvailable,
	))
}

const toggleMenuAvailability = `-- name: ToggleMenuAvailability :one
UPDATE menus SET is_available = NOT is_available, updated_at = now()
WHERE id = $1
RETURNING ` + menuColumns

func (q *Queries) ToggleMenuAvailability(ctx context.Context, id uuid.UUID) (Menu, error) {
	return scanMenu(q.db.QueryRow(ctx, toggleMenuAvailability, id))
}

const deleteMenu = `-- name: DeleteMenu :execrows
DELETE FROM menus WHERE id = $1
`

func (q *Queries) DeleteMenu(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteMenu, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
