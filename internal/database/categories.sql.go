package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const createCategory = `-- name: CreateCategory :one
INSERT INTO categories (name) VALUES ($1)
RETURNING id, name, is_available, created_at
`

func (q *Queries) CreateCategory(ctx context.Context, name string) (Category, error) {
	row := q.db.QueryRow(ctx, createCategory, name)
	var i Category
	err := row.Scan(&i.ID, &i.Name, &i.IsAvailable, &i.CreatedAt)
	return i, err
}

const getCategory = `-- name: GetCategory :one
SELECT id, name, is_available, created_at FROM categories WHERE id = $1
`

func (q *Queries) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	row := q.db.QueryRow(ctx, getCategory, id)
	var i Category
	err := row.Scan(&i.ID, &i.Name, &i.IsAvailable, &i.CreatedAt)
	return i, err
}

const listCategories = `-- name: ListCategories :many
SELECT c.id, c.name, c.is_available, c.created_at, count(m.id)::bigint AS menu_count
FROM categories c
LEFT JOIN menus m ON m.category_id = c.id
GROUP BY c.id
ORDER BY c.name
`

type ListCategoriesRow struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	MenuCount   int64     `json:"menu_count"`
}

func (q *Queries) ListCategories(ctx context.Context) ([]ListCategoriesRow, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListCategoriesRow{}
	for rows.Next() {
		var i ListCategoriesRow
		if err := rows.Scan(&i.ID, &i.Name, &i.IsAvailable, &i.CreatedAt, &i.MenuCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateCategory = `-- name: UpdateCategory :one
UPDATE categories SET name = $2, is_available = $3 WHERE id = $1
RETURNING id, name, is_available, created_at
`

type UpdateCategoryParams struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	IsAvailable bool      `json:"is_available"`
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, updateCategory, arg.ID, arg.Name, arg.IsAvailable)
	var i Category
	err := row.Scan(&i.ID, &i.Name, &i.IsAvailable, &i.CreatedAt)
	return i, err
}

const deleteCategory = `-- name: DeleteCategory :execrows
DELETE FROM categories WHERE id = $1
`

func (q *Queries) DeleteCategory(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteCategory, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
