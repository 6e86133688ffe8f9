package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apex-pos/api/internal/authz"
	"github.com/apex-pos/api/internal/database"
	"github.com/apex-pos/api/internal/enum"
	"github.com/apex-pos/api/internal/events"
	"github.com/apex-pos/api/internal/metrics"
	"github.com/apex-pos/api/internal/money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const closedComandasOrderKey = "closed_comandas_order_id_key"

// ComandaStore defines the DB methods needed to close a comanda.
// Satisfied by *database.Queries (and its WithTx variant).
type ComandaStore interface {
	GetOrderForUpdate(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error)
	GetTable(ctx context.Context, arg database.GetTableParams) (database.DiningTable, error)
	CreateClosedComanda(ctx context.Context, arg database.CreateClosedComandaParams) (database.ClosedComanda, error)
	CreateComandaPayment(ctx context.Context, arg database.CreateComandaPaymentParams) (database.ComandaPayment, error)
	CloseOrder(ctx context.Context, arg database.CloseOrderParams) (database.Order, error)
}

// NewComandaStore creates a ComandaStore from a DBTX (pool or tx).
type NewComandaStore func(db database.DBTX) ComandaStore

type PaymentInput struct {
	Method string
	Amount decimal.Decimal
}

// CloseComandaRequest closes OrderID on behalf of Actor.
type CloseComandaRequest struct {
	Actor       *authz.Context
	OrderID     string
	Payments    []PaymentInput
	Observacoes string
}

// ClosedComandaResult is the persisted closure with what callers display.
type ClosedComandaResult struct {
	Comanda         database.ClosedComanda
	Payments        []database.ComandaPayment
	TableNumber     int32 // 0 for counter orders
	ResponsavelName string
}

type comandaEvent struct {
	ID         uuid.UUID `json:"id"`
	OrderID    uuid.UUID `json:"orderId"`
	ValorTotal float64   `json:"valorTotal"`
	Mesa       int32     `json:"mesa"`
}

// ComandaService closes comandas.
type ComandaService struct {
	pool     TxBeginner
	newStore NewComandaStore
	events   events.Publisher
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewComandaService(pool TxBeginner, newStore NewComandaStore, pub events.Publisher, m *metrics.Metrics) *ComandaService {
	return &ComandaService{pool: pool, newStore: newStore, events: pub, metrics: m, now: time.Now}
}

func isPaymentMethod(m string) bool {
	return database.PaymentMethod(m).Valid()
}

// Close validates the payments against the order total and atomically
// records the closure, its payments and the order's closed status.
//
// Validation order: order exists and is open, totals agree within one cent,
// then each payment has an allowed method and a positive amount.
func (s *ComandaService) Close(ctx context.Context, req CloseComandaRequest) (*ClosedComandaResult, error) {
	if req.OrderID == "" {
		return nil, validationf("orderId is required")
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, validationf("invalid orderId")
	}
	if len(req.Payments) == 0 {
		return nil, validationf("at least one payment is required")
	}

	companyID := req.Actor.CompanyID()

	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// 1. Lock the order; concurrent closures of the same order queue here.
	order, err := store.GetOrderForUpdate(ctx, database.GetOrderForUpdateParams{ID: orderID, CompanyID: companyID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, newError(ErrNotFound, "order not found")
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status == database.OrderStatusClosed {
		s.metrics.ComandaClosed("already_closed")
		return nil, ErrAlreadyClosed
	}

	// 2. Order total from the current items.
	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	orderTotal := decimal.Zero
	for _, item := range items {
		orderTotal = orderTotal.Add(money.FromNumeric(item.Price).Mul(decimal.NewFromInt32(item.Quantity)))
	}

	// 3. Payments total, on the cent amounts that will be stored.
	amounts := make([]decimal.Decimal, len(req.Payments))
	paymentsTotal := decimal.Zero
	for i, p := range req.Payments {
		amounts[i] = money.Cents(p.Amount)
		paymentsTotal = paymentsTotal.Add(amounts[i])
	}

	// 4. One-cent tolerance.
	if !money.Within(paymentsTotal, orderTotal) {
		s.metrics.ComandaClosed("amount_mismatch")
		return nil, &AmountMismatchError{PaymentsTotal: paymentsTotal, OrderTotal: orderTotal}
	}

	// 5. Methods and amounts.
	for i, p := range req.Payments {
		if !isPaymentMethod(p.Method) || !amounts[i].IsPositive() {
			s.metrics.ComandaClosed("invalid_payment")
			return nil, &InvalidPaymentError{Index: i, Method: p.Method, Amount: amounts[i]}
		}
	}

	// --- Persist closure ---
	obs := pgtype.Text{}
	if v := strings.TrimSpace(req.Observacoes); v != "" {
		obs = pgtype.Text{String: v, Valid: true}
	}
	comanda, err := store.CreateClosedComanda(ctx, database.CreateClosedComandaParams{
		OrderID:        order.ID,
		ValorTotal:     money.ToNumeric(orderTotal),
		ResponsavelID:  req.Actor.UserID,
		CompanyID:      companyID,
		MesaID:         order.TableID,
		Observacoes:    obs,
		DataFechamento: s.now().UTC(),
	})
	if err != nil {
		if isUniqueViolation(err, closedComandasOrderKey) {
			s.metrics.ComandaClosed("already_closed")
			return nil, ErrAlreadyClosed
		}
		return nil, fmt.Errorf("create closed comanda: %w", err)
	}

	payments := make([]database.ComandaPayment, 0, len(req.Payments))
	for i, p := range req.Payments {
		cp, err := store.CreateComandaPayment(ctx, database.CreateComandaPaymentParams{
			ClosedComandaID: comanda.ID,
			FormaPagamento:  database.PaymentMethod(p.Method),
			Valor:           money.ToNumeric(amounts[i]),
		})
		if err != nil {
			return nil, fmt.Errorf("payment[%d]: create payment: %w", i, err)
		}
		payments = append(payments, cp)
	}

	// Compare-and-set: zero rows means another closure won.
	if _, err := store.CloseOrder(ctx, database.CloseOrderParams{ID: order.ID, CompanyID: companyID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.metrics.ComandaClosed("already_closed")
			return nil, ErrAlreadyClosed
		}
		return nil, fmt.Errorf("close order: %w", err)
	}

	var tableNumber int32
	if order.TableID.Valid {
		table, err := store.GetTable(ctx, database.GetTableParams{ID: uuid.UUID(order.TableID.Bytes), CompanyID: companyID})
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get table: %w", err)
		}
		tableNumber = table.Number
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.metrics.ComandaClosed("success")
	for _, p := range payments {
		s.metrics.PaymentRecorded(string(p.FormaPagamento), money.Float(money.FromNumeric(p.Valor)))
	}

	name := req.Actor.Name
	if name == "" {
		name = enum.UnknownStaffName
	}
	result := &ClosedComandaResult{
		Comanda:         comanda,
		Payments:        payments,
		TableNumber:     tableNumber,
		ResponsavelName: name,
	}

	notify(ctx, s.events, s.metrics, events.New(events.ComandaClosed, companyID, comandaEvent{
		ID:         comanda.ID,
		OrderID:    comanda.OrderID,
		ValorTotal: money.Float(orderTotal),
		Mesa:       tableNumber,
	}))
	return result, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	return false
}
