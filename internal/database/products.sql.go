// source: products.sql

package database

import (
	"context"

	"github.com/google/uuid"
)

const listProducts = `-- name: ListProducts :many
SELECT id, company_id, name, category, price, active, created_at, updated_at FROM products
WHERE company_id = $1 AND active = true
ORDER BY category, name
`

func (q *Queries) ListProducts(ctx context.Context, companyID uuid.UUID) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Product{}
	for rows.Next() {
		var i Product
		if err := rows.Scan(
			&i.ID,
			&i.CompanyID,
			&i.Name,
			&i.Category,
			&i.Price,
			&i.Active,
			&i.CreatedAt,
			&i.UpdatedAt,
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
