package database

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusClosed    OrderStatus = "closed"
)

func (e *OrderStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = OrderStatus(s)
	case string:
		*e = OrderStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for OrderStatus: %T", src)
	}
	return nil
}

type NullOrderStatus struct {
	OrderStatus OrderStatus
	Valid       bool // Valid is true if OrderStatus is not NULL
}

// Scan implements the Scanner interface.
func (ns *NullOrderStatus) Scan(value interface{}) error {
	if value == nil {
		ns.OrderStatus, ns.Valid = "", false
		return nil
	}
	ns.Valid = true
	return ns.OrderStatus.Scan(value)
}

// Value implements the driver Valuer interface.
func (ns NullOrderStatus) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.OrderStatus), nil
}

type OrderItemStatus string

const (
	OrderItemStatusOpen      OrderItemStatus = "open"
	OrderItemStatusPreparing OrderItemStatus = "preparing"
	OrderItemStatusReady     OrderItemStatus = "ready"
)

func (e *OrderItemStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = OrderItemStatus(s)
	case string:
		*e = OrderItemStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for OrderItemStatus: %T", src)
	}
	return nil
}

type TableStatus string

const (
	TableStatusAvailable TableStatus = "available"
	TableStatusOccupied  TableStatus = "occupied"
	TableStatusReserved  TableStatus = "reserved"
	TableStatusCleaning  TableStatus = "cleaning"
)

func (e *TableStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = TableStatus(s)
	case string:
		*e = TableStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for TableStatus: %T", src)
	}
	return nil
}

type PaymentMethod string

const (
	PaymentMethodDinheiro PaymentMethod = "dinheiro"
	PaymentMethodCartao   PaymentMethod = "cartao"
	PaymentMethodPix      PaymentMethod = "pix"
	PaymentMethodVale     PaymentMethod = "vale"
	PaymentMethodCredito  PaymentMethod = "credito"
	PaymentMethodDebito   PaymentMethod = "debito"
)

func (e *PaymentMethod) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = PaymentMethod(s)
	case string:
		*e = PaymentMethod(s)
	default:
		return fmt.Errorf("unsupported scan type for PaymentMethod: %T", src)
	}
	return nil
}

// AllPaymentMethods lists the accepted payment methods in display order.
func AllPaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		PaymentMethodDinheiro,
		PaymentMethodCartao,
		PaymentMethodPix,
		PaymentMethodVale,
		PaymentMethodCredito,
		PaymentMethodDebito,
	}
}

func (e PaymentMethod) Valid() bool {
	switch e {
	case PaymentMethodDinheiro,
		PaymentMethodCartao,
		PaymentMethodPix,
		PaymentMethodVale,
		PaymentMethodCredito,
		PaymentMethodDebito:
		return true
	}
	return false
}

type ClosedComanda struct {
	ID             uuid.UUID      `json:"id"`
	OrderID        uuid.UUID      `json:"order_id"`
	ValorTotal     pgtype.Numeric `json:"valor_total"`
	ResponsavelID  uuid.UUID      `json:"responsavel_id"`
	CompanyID      uuid.UUID      `json:"company_id"`
	MesaID         pgtype.UUID    `json:"mesa_id"`
	Observacoes    pgtype.Text    `json:"observacoes"`
	DataFechamento time.Time      `json:"data_fechamento"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type ComandaPayment struct {
	ID              uuid.UUID      `json:"id"`
	ClosedComandaID uuid.UUID      `json:"closed_comanda_id"`
	FormaPagamento  PaymentMethod  `json:"forma_pagamento"`
	Valor           pgtype.Numeric `json:"valor"`
	CreatedAt       time.Time      `json:"created_at"`
}

type Company struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Segment     string    `json:"segment"`
	Plan        string    `json:"plan"`
	MaxTables   int32     `json:"max_tables"`
	MaxUsers    int32     `json:"max_users"`
	MaxProducts int32     `json:"max_products"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type DiningTable struct {
	ID        uuid.UUID   `json:"id"`
	CompanyID uuid.UUID   `json:"company_id"`
	Number    int32       `json:"number"`
	Capacity  int32       `json:"capacity"`
	Status    TableStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Order struct {
	ID           uuid.UUID      `json:"id"`
	CompanyID    uuid.UUID      `json:"company_id"`
	TableID      pgtype.UUID    `json:"table_id"`
	CustomerName pgtype.Text    `json:"customer_name"`
	Status       OrderStatus    `json:"status"`
	Total        pgtype.Numeric `json:"total"`
	CreatedBy    pgtype.UUID    `json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type OrderItem struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   uuid.UUID       `json:"order_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int32           `json:"quantity"`
	Price     pgtype.Numeric  `json:"price"`
	Notes     string          `json:"notes"`
	Status    OrderItemStatus `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Product struct {
	ID        uuid.UUID      `json:"id"`
	CompanyID uuid.UUID      `json:"company_id"`
	Name      string         `json:"name"`
	Category  string         `json:"category"`
	Price     pgtype.Numeric `json:"price"`
	Active    bool           `json:"active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type SubmissionFingerprint struct {
	Fingerprint string    `json:"fingerprint"`
	AcceptedAt  time.Time `json:"accepted_at"`
}

type User struct {
	ID             uuid.UUID   `json:"id"`
	CompanyID      pgtype.UUID `json:"company_id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	HashedPassword string      `json:"hashed_password"`
	Role           string      `json:"role"`
	IsSaasAdmin    bool        `json:"is_saas_admin"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
