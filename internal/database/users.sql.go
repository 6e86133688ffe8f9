// source: users.sql

package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createCompany = `-- name: CreateCompany :one
INSERT INTO companies (name, segment, plan, max_tables, max_users, max_products)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, name, segment, plan, max_tables, max_users, max_products, created_at, updated_at
`

type CreateCompanyParams struct {
	Name        string `json:"name"`
	Segment     string `json:"segment"`
	Plan        string `json:"plan"`
	MaxTables   int32  `json:"max_tables"`
	MaxUsers    int32  `json:"max_users"`
	MaxProducts int32  `json:"max_products"`
}

func (q *Queries) CreateCompany(ctx context.Context, arg CreateCompanyParams) (Company, error) {
	row := q.db.QueryRow(ctx, createCompany,
		arg.Name,
		arg.Segment,
		arg.Plan,
		arg.MaxTables,
		arg.MaxUsers,
		arg.MaxProducts,
	)
	var i Company
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Segment,
		&i.Plan,
		&i.MaxTables,
		&i.MaxUsers,
		&i.MaxProducts,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createProduct = `-- name: CreateProduct :one
INSERT INTO products (company_id, name, category, price)
VALUES ($1, $2, $3, $4)
RETURNING id, company_id, name, category, price, active, created_at, updated_at
`

type CreateProductParams struct {
	CompanyID uuid.UUID      `json:"company_id"`
	Name      string         `json:"name"`
	Category  string         `json:"category"`
	Price     pgtype.Numeric `json:"price"`
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct, arg.CompanyID, arg.Name, arg.Category, arg.Price)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.CompanyID,
		&i.Name,
		&i.Category,
		&i.Price,
		&i.Active,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const userColumns = `id, company_id, name, email, hashed_password, role, is_saas_admin, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.CompanyID,
		&i.Name,
		&i.Email,
		&i.HashedPassword,
		&i.Role,
		&i.IsSaasAdmin,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (company_id, name, email, hashed_password, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns

type CreateUserParams struct {
	CompanyID      pgtype.UUID `json:"company_id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	HashedPassword string      `json:"hashed_password"`
	Role           string      `json:"role"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.CompanyID,
		arg.Name,
		arg.Email,
		arg.HashedPassword,
		arg.Role,
	)
	return scanUser(row)
}

const getCompanyForUpdate = `-- name: GetCompanyForUpdate :one
SELECT id, name, segment, plan, max_tables, max_users, max_products, created_at, updated_at
FROM companies WHERE id = $1
FOR NO KEY UPDATE
`

func (q *Queries) GetCompanyForUpdate(ctx context.Context, id uuid.UUID) (Company, error) {
	row := q.db.QueryRow(ctx, getCompanyForUpdate, id)
	var i Company
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Segment,
		&i.Plan,
		&i.MaxTables,
		&i.MaxUsers,
		&i.MaxProducts,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users
WHERE email = $1
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	return scanUser(row)
}

const getUserContext = `-- name: GetUserContext :one
SELECT u.id, u.name, u.email, u.role, u.is_saas_admin, u.company_id,
       c.name AS company_name, c.segment, c.plan, c.max_tables, c.max_users, c.max_products
FROM users u
LEFT JOIN companies c ON c.id = u.company_id
WHERE u.id = $1
`

type GetUserContextRow struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Role        string      `json:"role"`
	IsSaasAdmin bool        `json:"is_saas_admin"`
	CompanyID   pgtype.UUID `json:"company_id"`
	CompanyName pgtype.Text `json:"company_name"`
	Segment     pgtype.Text `json:"segment"`
	Plan        pgtype.Text `json:"plan"`
	MaxTables   pgtype.Int4 `json:"max_tables"`
	MaxUsers    pgtype.Int4 `json:"max_users"`
	MaxProducts pgtype.Int4 `json:"max_products"`
}

func (q *Queries) GetUserContext(ctx context.Context, id uuid.UUID) (GetUserContextRow, error) {
	row := q.db.QueryRow(ctx, getUserContext, id)
	var i GetUserContextRow
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.Role,
		&i.IsSaasAdmin,
		&i.CompanyID,
		&i.CompanyName,
		&i.Segment,
		&i.Plan,
		&i.MaxTables,
		&i.MaxUsers,
		&i.MaxProducts,
	)
	return i, err
}

const countUsers = `-- name: CountUsers :one
SELECT count(*) FROM users WHERE company_id = $1
`

func (q *Queries) CountUsers(ctx context.Context, companyID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countUsers, companyID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listUsersByCompany = `-- name: ListUsersByCompany :many
SELECT ` + userColumns + ` FROM users
WHERE company_id = $1
ORDER BY name, email
`

func (q *Queries) ListUsersByCompany(ctx context.Context, companyID uuid.UUID) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsersByCompany, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []User{}
	for rows.Next() {
		i, err := scanUser(rows)
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
