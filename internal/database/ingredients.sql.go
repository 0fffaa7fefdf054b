package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const ingredientColumns = `id, name, unit, current_stock, min_stock, cost_per_unit, created_at, updated_at`

func scanIngredient(row interface{ Scan(...interface{}) error }) (Ingredient, error) {
	var i Ingredient
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Unit,
		&i.CurrentStock,
		&i.MinStock,
		&i.CostPerUnit,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectIngredients(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
}) ([]Ingredient, error) {
	items := []Ingredient{}
	for rows.Next() {
		i, err := scanIngredient(rows)
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

const createIngredient = `-- name: CreateIngredient :one
INSERT INTO ingredients (name, unit, current_stock, min_stock, cost_per_unit)
VALUES ($1, $2, 0, $3, $4)
RETURNING ` + ingredientColumns

type CreateIngredientParams struct {
	Name        string         `json:"name"`
	Unit        string         `json:"unit"`
	MinStock    pgtype.Numeric `json:"min_stock"`
	CostPerUnit int64          `json:"cost_per_unit"`
}

// CreateIngredient always starts at zero stock; opening stock is booked as an IN log.
func (q *Queries) CreateIngredient(ctx context.Context, arg CreateIngredientParams) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, createIngredient, arg.Name, arg.Unit, arg.MinStock, arg.CostPerUnit))
}

const getIngredient = `-- name: GetIngredient :one
SELECT ` + ingredientColumns + ` FROM ingredients WHERE id = $1
`

func (q *Queries) GetIngredient(ctx context.Context, id uuid.UUID) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, getIngredient, id))
}

const listIngredients = `-- name: ListIngredients :many
SELECT ` + ingredientColumns + ` FROM ingredients ORDER BY name
`

func (q *Queries) ListIngredients(ctx context.Context) ([]Ingredient, error) {
	rows, err := q.db.Query(ctx, listIngredients)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIngredients(rows)
}

const listLowStockIngredients = `-- name: ListLowStockIngredients :many
SELECT ` + ingredientColumns + ` FROM ingredients
WHERE current_stock <= min_stock
ORDER BY current_stock ASC, name
`

func (q *Queries) ListLowStockIngredients(ctx context.Context) ([]Ingredient, error) {
	rows, err := q.db.Query(ctx, listLowStockIngredients)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIngredients(rows)
}

const countLowStockIngredients = `-- name: CountLowStockIngredients :one
SELECT count(*) FROM ingredients WHERE current_stock <= min_stock
`

func (q *Queries) CountLowStockIngredients(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countLowStockIngredients)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const updateIngredient = `-- name: UpdateIngredient :one
UPDATE ingredients
SET name = $2, unit = $3, min_stock = $4, cost_per_unit = $5, updated_at = now()
WHERE id = $1
RETURNING ` + ingredientColumns

type UpdateIngredientParams struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Unit        string         `json:"unit"`
	MinStock    pgtype.Numeric `json:"min_stock"`
	CostPerUnit int64          `json:"cost_per_unit"`
}

func (q *Queries) UpdateIngredient(ctx context.Context, arg UpdateIngredientParams) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, updateIngredient,
		arg.ID,
		arg.Name,
		arg.Unit,
		arg.MinStock,
		arg.CostPerUnit,
	))
}

const adjustIngredientStock = `-- name: AdjustIngredientStock :one
UPDATE ingredients
SET current_stock = current_stock + $2, updated_at = now()
WHERE id = $1
RETURNING ` + ingredientColumns

// AdjustIngredientStock applies a signed delta atomically.
func (q *Queries) AdjustIngredientStock(ctx context.Context, id uuid.UUID, delta pgtype.Numeric) (Ingredient, error) {
	return scanIngredient(q.db.QueryRow(ctx, adjustIngredientStock, id, delta))
}

const deleteIngredient = `-- name: DeleteIngredient :execrows
DELETE FROM ingredients WHERE id = $1
`

func (q *Queries) DeleteIngredient(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteIngredient, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
