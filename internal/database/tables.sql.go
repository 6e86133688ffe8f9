// source: tables.sql

package database

import (
	"context"

	"github.com/google/uuid"
)

const tableColumns = `id, company_id, number, capacity, status, created_at, updated_at`

func scanDiningTable(row interface{ Scan(...interface{}) error }) (DiningTable, error) {
	var i DiningTable
	err := row.Scan(
		&i.ID,
		&i.CompanyID,
		&i.Number,
		&i.Capacity,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const countTables = `-- name: CountTables :one
SELECT count(*) FROM dining_tables WHERE company_id = $1
`

func (q *Queries) CountTables(ctx context.Context, companyID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countTables, companyID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createTable = `-- name: CreateTable :one
INSERT INTO dining_tables (company_id, number, capacity)
VALUES ($1, $2, $3)
RETURNING ` + tableColumns

type CreateTableParams struct {
	CompanyID uuid.UUID `json:"company_id"`
	Number    int32     `json:"number"`
	Capacity  int32     `json:"capacity"`
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (DiningTable, error) {
	row := q.db.QueryRow(ctx, createTable, arg.CompanyID, arg.Number, arg.Capacity)
	return scanDiningTable(row)
}

const getTable = `-- name: GetTable :one
SELECT ` + tableColumns + ` FROM dining_tables
WHERE id = $1 AND company_id = $2
`

type GetTableParams struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
}

func (q *Queries) GetTable(ctx context.Context, arg GetTableParams) (DiningTable, error) {
	row := q.db.QueryRow(ctx, getTable, arg.ID, arg.CompanyID)
	return scanDiningTable(row)
}

const getTableForUpdate = `-- name: GetTableForUpdate :one
SELECT ` + tableColumns + ` FROM dining_tables
WHERE id = $1 AND company_id = $2
FOR NO KEY UPDATE
`

type GetTableForUpdateParams struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
}

func (q *Queries) GetTableForUpdate(ctx context.Context, arg GetTableForUpdateParams) (DiningTable, error) {
	row := q.db.QueryRow(ctx, getTableForUpdate, arg.ID, arg.CompanyID)
	return scanDiningTable(row)
}

const listTables = `-- name: ListTables :many
SELECT ` + tableColumns + ` FROM dining_tables
WHERE company_id = $1
ORDER BY number
`

func (q *Queries) ListTables(ctx context.Context, companyID uuid.UUID) ([]DiningTable, error) {
	rows, err := q.db.Query(ctx, listTables, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []DiningTable{}
	for rows.Next() {
		i, err := scanDiningTable(rows)
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

const updateTableStatus = `-- name: UpdateTableStatus :one
UPDATE dining_tables SET status = $3, updated_at = now()
WHERE id = $1 AND company_id = $2
RETURNING ` + tableColumns

type UpdateTableStatusParams struct {
	ID        uuid.UUID   `json:"id"`
	CompanyID uuid.UUID   `json:"company_id"`
	Status    TableStatus `json:"status"`
}

func (q *Queries) UpdateTableStatus(ctx context.Context, arg UpdateTableStatusParams) (DiningTable, error) {
	row := q.db.QueryRow(ctx, updateTableStatus, arg.ID, arg.CompanyID, arg.Status)
	return scanDiningTable(row)
}
