package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createRecipe = `-- name: CreateRecipe :one
INSERT INTO recipes (menu_id, ingredient_id, qty_needed, unit)
VALUES ($1, $2, $3, $4)
RETURNING menu_id, ingredient_id, qty_needed, unit
`

type CreateRecipeParams struct {
	MenuID       uuid.UUID      `json:"menu_id"`
	IngredientID uuid.UUID      `json:"ingredient_id"`
	QtyNeeded    pgtype.Numeric `json:"qty_needed"`
	Unit         string         `json:"unit"`
}

func (q *Queries) CreateRecipe(ctx context.Context, arg CreateRecipeParams) (Recipe, error) {
	row := q.db.QueryRow(ctx, createRecipe, arg.MenuID, arg.IngredientID, arg.QtyNeeded, arg.Unit)
	var i Recipe
	err := row.Scan(&i.MenuID, &i.IngredientID, &i.QtyNeeded, &i.Unit)
	return i, err
}

const updateRecipe = `-- name: UpdateRecipe :one
UPDATE recipes SET qty_needed = $3, unit = $4
WHERE menu_id = $1 AND ingredient_id = $2
RETURNING menu_id, ingredient_id, qty_needed, unit
`

type UpdateRecipeParams struct {
	MenuID       uuid.UUID      `json:"menu_id"`
	IngredientID uuid.UUID      `json:"ingredient_id"`
	QtyNeeded    pgtype.Numeric `json:"qty_needed"`
	Unit         string         `json:"unit"`
}

func (q *Queries) UpdateRecipe(ctx context.Context, arg UpdateRecipeParams) (Recipe, error) {
	row := q.db.QueryRow(ctx, updateRecipe, arg.MenuID, arg.IngredientID, arg.QtyNeeded, arg.Unit)
	var i Recipe
	err := row.Scan(&i.MenuID, &i.IngredientID, &i.QtyNeeded, &i.Unit)
	return i, err
}

const deleteRecipe = `-- name: DeleteRecipe :execrows
DELETE FROM recipes WHERE menu_id = $1 AND ingredient_id = $2
`

func (q *Queries) DeleteRecipe(ctx context.Context, menuID, ingredientID uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteRecipe, menuID, ingredientID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listRecipesByMenu = `-- name: ListRecipesByMenu :many
SELECT r.menu_id, r.ingredient_id, r.qty_needed, r.unit, i.name AS ingredient_name
FROM recipes r
JOIN ingredients i ON i.id = r.ingredient_id
WHERE r.menu_id = $1
ORDER BY i.name
`

type ListRecipesByMenuRow struct {
	MenuID         uuid.UUID      `json:"menu_id"`
	IngredientID   uuid.UUID      `json:"ingredient_id"`
	QtyNeeded      pgtype.Numeric `json:"qty_needed"`
	Unit           string         `json:"unit"`
	IngredientName string         `json:"ingredient_name"`
}

func (q *Queries) ListRecipesByMenu(ctx context.Context, menuID uuid.UUID) ([]ListRecipesByMenuRow, error) {
	rows, err := q.db.Query(ctx, listRecipesByMenu, menuID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListRecipesByMenuRow{}
	for rows.Next() {
		var i ListRecipesByMenuRow
		if err := rows.Scan(&i.MenuID, &i.IngredientID, &i.QtyNeeded, &i.Unit, &i.IngredientName); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRecipesForMenus = `-- name: ListRecipesForMenus :many
SELECT menu_id, ingredient_id, qty_needed, unit
FROM recipes
WHERE menu_id = ANY($1::uuid[])
ORDER BY menu_id, ingredient_id
`

func (q *Queries) ListRecipesForMenus(ctx context.Context, menuIDs []uuid.UUID) ([]Recipe, error) {
	rows, err := q.db.Query(ctx, listRecipesForMenus, menuIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Recipe{}
	for rows.Next() {
		var i Recipe
		if err := rows.Scan(&i.MenuID, &i.IngredientID, &i.QtyNeeded, &i.Unit); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
