// source: orders.sql

package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, company_id, table_id, customer_name, status, total, created_by, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.CompanyID,
		&i.TableID,
		&i.CustomerName,
		&i.Status,
		&i.Total,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const closeOpenOrdersByTable = `-- name: CloseOpenOrdersByTable :execrows
UPDATE orders SET status = 'closed', updated_at = now()
WHERE table_id = $1 AND company_id = $2 AND status <> 'closed'
`

type CloseOpenOrdersByTableParams struct {
	TableID   pgtype.UUID `json:"table_id"`
	CompanyID uuid.UUID   `json:"company_id"`
}

func (q *Queries) CloseOpenOrdersByTable(ctx context.Context, arg CloseOpenOrdersByTableParams) (int64, error) {
	result, err := q.db.Exec(ctx, closeOpenOrdersByTable, arg.TableID, arg.CompanyID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const closeOrder = `-- name: CloseOrder :one
UPDATE orders SET status = 'closed', updated_at = now()
WHERE id = $1 AND company_id = $2 AND status <> 'closed'
RETURNING ` + orderColumns

type CloseOrderParams struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
}

// CloseOrder returns pgx.ErrNoRows when the order is already closed.
func (q *Queries) CloseOrder(ctx context.Context, arg CloseOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, closeOrder, arg.ID, arg.CompanyID)
	return scanOrder(row)
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (company_id, table_id, customer_name, total, created_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	CompanyID    uuid.UUID      `json:"company_id"`
	TableID      pgtype.UUID    `json:"table_id"`
	CustomerName pgtype.Text    `json:"customer_name"`
	Total        pgtype.Numeric `json:"total"`
	CreatedBy    pgtype.UUID    `json:"created_by"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.CompanyID,
		arg.TableID,
		arg.CustomerName,
		arg.Total,
		arg.CreatedBy,
	)
	return scanOrder(row)
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, product_id, quantity, price, notes)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, product_id, quantity, price, notes, status, created_at, updated_at
`

type CreateOrderItemParams struct {
	OrderID   uuid.UUID      `json:"order_id"`
	ProductID uuid.UUID      `json:"product_id"`
	Quantity  int32          `json:"quantity"`
	Price     pgtype.Numeric `json:"price"`
	Notes     string         `json:"notes"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.ProductID,
		arg.Quantity,
		arg.Price,
		arg.Notes,
	)
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.ProductID,
		&i.Quantity,
		&i.Price,
		&i.Notes,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1 AND company_id = $2
`

type GetOrderParams struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, arg.ID, arg.CompanyID)
	return scanOrder(row)
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + ` FROM orders
WHERE id = $1 AND company_id = $2
FOR NO KEY UPDATE
`

type GetOrderForUpdateParams struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
}

func (q *Queries) GetOrderForUpdate(ctx context.Context, arg GetOrderForUpdateParams) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderForUpdate, arg.ID, arg.CompanyID)
	return scanOrder(row)
}

const getOrderItemForUpdate = `-- name: GetOrderItemForUpdate :one
SELECT oi.id, oi.order_id, oi.product_id, oi.status, o.status AS order_status, p.name AS product_name, p.category
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
JOIN products p ON p.id = oi.product_id
WHERE oi.id = $1 AND o.company_id = $2
FOR NO KEY UPDATE OF oi
`

type GetOrderItemForUpdateParams struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
}

type GetOrderItemForUpdateRow struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Status      OrderItemStatus `json:"status"`
	OrderStatus OrderStatus     `json:"order_status"`
	ProductName string          `json:"product_name"`
	Category    string          `json:"category"`
}

func (q *Queries) GetOrderItemForUpdate(ctx context.Context, arg GetOrderItemForUpdateParams) (GetOrderItemForUpdateRow, error) {
	row := q.db.QueryRow(ctx, getOrderItemForUpdate, arg.ID, arg.CompanyID)
	var i GetOrderItemForUpdateRow
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.ProductID,
		&i.Status,
		&i.OrderStatus,
		&i.ProductName,
		&i.Category,
	)
	return i, err
}

const getProductForOrder = `-- name: GetProductForOrder :one
SELECT id, company_id, name, category FROM products
WHERE id = $1 AND company_id = $2 AND active = true
`

type GetProductForOrderParams struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
}

type GetProductForOrderRow struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
}

func (q *Queries) GetProductForOrder(ctx context.Context, arg GetProductForOrderParams) (GetProductForOrderRow, error) {
	row := q.db.QueryRow(ctx, getProductForOrder, arg.ID, arg.CompanyID)
	var i GetProductForOrderRow
	err := row.Scan(
		&i.ID,
		&i.CompanyID,
		&i.Name,
		&i.Category,
	)
	return i, err
}

const listOrderItemsByOrder = `-- name: ListOrderItemsByOrder :many
SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price, oi.notes, oi.status, oi.created_at, oi.updated_at,
       p.name AS product_name, p.category
FROM order_items oi
JOIN products p ON p.id = oi.product_id
WHERE oi.order_id = $1
ORDER BY oi.created_at, oi.id
`

type ListOrderItemsByOrderRow struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Quantity    int32           `json:"quantity"`
	Price       pgtype.Numeric  `json:"price"`
	Notes       string          `json:"notes"`
	Status      OrderItemStatus `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	ProductName string          `json:"product_name"`
	Category    string          `json:"category"`
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]ListOrderItemsByOrderRow, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListOrderItemsByOrderRow{}
	for rows.Next() {
		var i ListOrderItemsByOrderRow
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.ProductID,
			&i.Quantity,
			&i.Price,
			&i.Notes,
			&i.Status,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.ProductName,
			&i.Category,
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

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE company_id = $1
  AND ($2::text IS NULL OR status = $2)
  AND ($3::uuid IS NULL OR table_id = $3)
ORDER BY created_at DESC
LIMIT $4 OFFSET $5
`

type ListOrdersParams struct {
	CompanyID uuid.UUID       `json:"company_id"`
	Status    NullOrderStatus `json:"status"`
	TableID   pgtype.UUID     `json:"table_id"`
	Limit     int32           `json:"limit"`
	Offset    int32           `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.CompanyID,
		arg.Status,
		arg.TableID,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
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

const updateOrderItemStatus = `-- name: UpdateOrderItemStatus :one
UPDATE order_items SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING id, order_id, product_id, quantity, price, notes, status, created_at, updated_at
`

type UpdateOrderItemStatusParams struct {
	ID       uuid.UUID       `json:"id"`
	Status   OrderItemStatus `json:"status"`
	Status_2 OrderItemStatus `json:"status_2"`
}

func (q *Queries) UpdateOrderItemStatus(ctx context.Context, arg UpdateOrderItemStatusParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, updateOrderItemStatus, arg.ID, arg.Status, arg.Status_2)
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.ProductID,
		&i.Quantity,
		&i.Price,
		&i.Notes,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders SET status = $3, updated_at = now()
WHERE id = $1 AND company_id = $2 AND status = $4
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID        uuid.UUID   `json:"id"`
	CompanyID uuid.UUID   `json:"company_id"`
	Status    OrderStatus `json:"status"`
	Status_2  OrderStatus `json:"status_2"`
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus,
		arg.ID,
		arg.CompanyID,
		arg.Status,
		arg.Status_2,
	)
	return scanOrder(row)
}
