// source: comandas.sql

package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const countClosedComandas = `-- name: CountClosedComandas :one
SELECT count(*) FROM closed_comandas cc
WHERE cc.company_id = $1
  AND ($2::timestamptz IS NULL OR cc.data_fechamento >= $2)
  AND ($3::timestamptz IS NULL OR cc.data_fechamento <= $3)
  AND ($4::uuid IS NULL OR cc.responsavel_id = $4)
`

type CountClosedComandasParams struct {
	CompanyID     uuid.UUID          `json:"company_id"`
	StartDate     pgtype.Timestamptz `json:"start_date"`
	EndDate       pgtype.Timestamptz `json:"end_date"`
	ResponsavelID pgtype.UUID        `json:"responsavel_id"`
}

func (q *Queries) CountClosedComandas(ctx context.Context, arg CountClosedComandasParams) (int64, error) {
	row := q.db.QueryRow(ctx, countClosedComandas,
		arg.CompanyID,
		arg.StartDate,
		arg.EndDate,
		arg.ResponsavelID,
	)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createClosedComanda = `-- name: CreateClosedComanda :one
INSERT INTO closed_comandas (order_id, valor_total, responsavel_id, company_id, mesa_id, observacoes, data_fechamento)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, order_id, valor_total, responsavel_id, company_id, mesa_id, observacoes, data_fechamento, created_at, updated_at
`

type CreateClosedComandaParams struct {
	OrderID        uuid.UUID      `json:"order_id"`
	ValorTotal     pgtype.Numeric `json:"valor_total"`
	ResponsavelID  uuid.UUID      `json:"responsavel_id"`
	CompanyID      uuid.UUID      `json:"company_id"`
	MesaID         pgtype.UUID    `json:"mesa_id"`
	Observacoes    pgtype.Text    `json:"observacoes"`
	DataFechamento time.Time      `json:"data_fechamento"`
}

func (q *Queries) CreateClosedComanda(ctx context.Context, arg CreateClosedComandaParams) (ClosedComanda, error) {
	row := q.db.QueryRow(ctx, createClosedComanda,
		arg.OrderID,
		arg.ValorTotal,
		arg.ResponsavelID,
		arg.CompanyID,
		arg.MesaID,
		arg.Observacoes,
		arg.DataFechamento,
	)
	var i ClosedComanda
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.ValorTotal,
		&i.ResponsavelID,
		&i.CompanyID,
		&i.MesaID,
		&i.Observacoes,
		&i.DataFechamento,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createComandaPayment = `-- name: CreateComandaPayment :one
INSERT INTO comanda_payments (closed_comanda_id, forma_pagamento, valor)
VALUES ($1, $2, $3)
RETURNING id, closed_comanda_id, forma_pagamento, valor, created_at
`

type CreateComandaPaymentParams struct {
	ClosedComandaID uuid.UUID      `json:"closed_comanda_id"`
	FormaPagamento  PaymentMethod  `json:"forma_pagamento"`
	Valor           pgtype.Numeric `json:"valor"`
}

func (q *Queries) CreateComandaPayment(ctx context.Context, arg CreateComandaPaymentParams) (ComandaPayment, error) {
	row := q.db.QueryRow(ctx, createComandaPayment, arg.ClosedComandaID, arg.FormaPagamento, arg.Valor)
	var i ComandaPayment
	err := row.Scan(
		&i.ID,
		&i.ClosedComandaID,
		&i.FormaPagamento,
		&i.Valor,
		&i.CreatedAt,
	)
	return i, err
}

// ClosedComandaRow is a closure joined with its table, order and responsible user.
type ClosedComandaRow struct {
	ID              uuid.UUID      `json:"id"`
	OrderID         uuid.UUID      `json:"order_id"`
	ValorTotal      pgtype.Numeric `json:"valor_total"`
	ResponsavelID   uuid.UUID      `json:"responsavel_id"`
	CompanyID       uuid.UUID      `json:"company_id"`
	MesaID          pgtype.UUID    `json:"mesa_id"`
	Observacoes     pgtype.Text    `json:"observacoes"`
	DataFechamento  time.Time      `json:"data_fechamento"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	MesaNumber      pgtype.Int4    `json:"mesa_number"`
	CustomerName    pgtype.Text    `json:"customer_name"`
	ResponsavelName pgtype.Text    `json:"responsavel_name"`
}

const closedComandaRowColumns = `cc.id, cc.order_id, cc.valor_total, cc.responsavel_id, cc.company_id, cc.mesa_id,
       cc.observacoes, cc.data_fechamento, cc.created_at, cc.updated_at,
       t.number AS mesa_number, o.customer_name, u.name AS responsavel_name
FROM closed_comandas cc
JOIN orders o ON o.id = cc.order_id
LEFT JOIN dining_tables t ON t.id = cc.mesa_id
LEFT JOIN users u ON u.id = cc.responsavel_id`

func scanClosedComandaRows(rows pgx.Rows) ([]ClosedComandaRow, error) {
	defer rows.Close()
	items := []ClosedComandaRow{}
	for rows.Next() {
		var i ClosedComandaRow
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.ValorTotal,
			&i.ResponsavelID,
			&i.CompanyID,
			&i.MesaID,
			&i.Observacoes,
			&i.DataFechamento,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.MesaNumber,
			&i.CustomerName,
			&i.ResponsavelName,
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

const listClosedComandas = `-- name: ListClosedComandas :many
SELECT ` + closedComandaRowColumns + `
WHERE cc.company_id = $1
  AND ($2::timestamptz IS NULL OR cc.data_fechamento >= $2)
  AND ($3::timestamptz IS NULL OR cc.data_fechamento <= $3)
  AND ($4::uuid IS NULL OR cc.responsavel_id = $4)
ORDER BY cc.data_fechamento DESC, cc.id
LIMIT $5 OFFSET $6
`

type ListClosedComandasParams struct {
	CompanyID     uuid.UUID          `json:"company_id"`
	StartDate     pgtype.Timestamptz `json:"start_date"`
	EndDate       pgtype.Timestamptz `json:"end_date"`
	ResponsavelID pgtype.UUID        `json:"responsavel_id"`
	Limit         int32              `json:"limit"`
	Offset        int32              `json:"offset"`
}

func (q *Queries) ListClosedComandas(ctx context.Context, arg ListClosedComandasParams) ([]ClosedComandaRow, error) {
	rows, err := q.db.Query(ctx, listClosedComandas,
		arg.CompanyID,
		arg.StartDate,
		arg.EndDate,
		arg.ResponsavelID,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	return scanClosedComandaRows(rows)
}

const listClosedComandasBetween = `-- name: ListClosedComandasBetween :many
SELECT ` + closedComandaRowColumns + `
WHERE cc.company_id = $1
  AND cc.data_fechamento >= $2
  AND cc.data_fechamento < $3
ORDER BY cc.data_fechamento DESC, cc.id
`

type ListClosedComandasBetweenParams struct {
	CompanyID uuid.UUID `json:"company_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// ListClosedComandasBetween returns closures in [StartTime, EndTime), newest first.
func (q *Queries) ListClosedComandasBetween(ctx context.Context, arg ListClosedComandasBetweenParams) ([]ClosedComandaRow, error) {
	rows, err := q.db.Query(ctx, listClosedComandasBetween, arg.CompanyID, arg.StartTime, arg.EndTime)
	if err != nil {
		return nil, err
	}
	return scanClosedComandaRows(rows)
}

const listPaymentsByComandas = `-- name: ListPaymentsByComandas :many
SELECT id, closed_comanda_id, forma_pagamento, valor, created_at FROM comanda_payments
WHERE closed_comanda_id = ANY($1::uuid[])
ORDER BY closed_comanda_id, created_at, id
`

func (q *Queries) ListPaymentsByComandas(ctx context.Context, ids []uuid.UUID) ([]ComandaPayment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByComandas, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ComandaPayment{}
	for rows.Next() {
		var i ComandaPayment
		if err := rows.Scan(
			&i.ID,
			&i.ClosedComandaID,
			&i.FormaPagamento,
			&i.Valor,
			&i.CreatedAt,
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
