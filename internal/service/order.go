package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/apex-pos/api/internal/authz"
	"github.com/apex-pos/api/internal/database"
	"github.com/apex-pos/api/internal/enum"
	"github.com/apex-pos/api/internal/events"
	"github.com/apex-pos/api/internal/guard"
	"github.com/apex-pos/api/internal/metrics"
	"github.com/apex-pos/api/internal/money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by order operations.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetTable(ctx context.Context, arg database.GetTableParams) (database.DiningTable, error)
	GetProductForOrder(ctx context.Context, arg database.GetProductForOrderParams) (database.GetProductForOrderRow, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderForUpdate(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	GetOrderItemForUpdate(ctx context.Context, arg database.GetOrderItemForUpdateParams) (database.GetOrderItemForUpdateRow, error)
	UpdateOrderItemStatus(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the input for creating an order. An empty TableID
// requires Counter.
type CreateOrderRequest struct {
	CompanyID    uuid.UUID
	CreatedBy    uuid.UUID
	TableID      string
	Counter      bool
	CustomerName string
	Items        []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line. Price is the client's unit price.
type CreateOrderItemRequest struct {
	ProductID string
	Quantity  int32
	Price     decimal.Decimal
	Notes     string
}

type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

type UpdateStatusRequest struct {
	Actor   *authz.Context
	OrderID string
	Status  string
}

type UpdateItemStatusRequest struct {
	Actor       *authz.Context
	OrderItemID string
	NewStatus   string
}

type orderEvent struct {
	OrderID uuid.UUID  `json:"orderId"`
	TableID *uuid.UUID `json:"tableId,omitempty"`
	Status  string     `json:"status"`
	Total   float64    `json:"total"`
}

type itemEvent struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderItemID uuid.UUID `json:"orderItemId"`
	Status      string    `json:"status"`
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	guard    guard.Guard
	events   events.Publisher
	metrics  *metrics.Metrics
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, g guard.Guard, pub events.Publisher, m *metrics.Metrics) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, guard: g, events: pub, metrics: m}
}

type parsedItem struct {
	productID uuid.UUID
	quantity  int32
	price     decimal.Decimal
	notes     string
}

// CreateOrder validates the submission, checks the duplicate guard and
// inserts the order with its items in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	// --- Validate shape ---
	if len(req.Items) == 0 {
		return nil, validationf("items are required")
	}

	tableID := pgtype.UUID{}
	tableRef := ""
	switch {
	case req.TableID != "" && req.Counter:
		return nil, validationf("an order is either for a table or for the counter, not both")
	case req.TableID != "":
		tid, err := uuid.Parse(req.TableID)
		if err != nil {
			return nil, validationf("invalid tableId")
		}
		tableID = pgtype.UUID{Bytes: tid, Valid: true}
		tableRef = tid.String()
	case !req.Counter:
		return nil, validationf("tableId is required unless counter is true")
	}

	total := decimal.Zero
	items := make([]parsedItem, 0, len(req.Items))
	guardItems := make([]guard.Item, 0, len(req.Items))
	for i, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, validationf("items[%d]: invalid productId", i)
		}
		if item.Quantity <= 0 {
			return nil, validationf("items[%d]: quantity must be greater than zero", i)
		}
		if item.Price.IsNegative() {
			return nil, validationf("items[%d]: price must not be negative", i)
		}
		total = total.Add(item.Price.Mul(decimal.NewFromInt32(item.Quantity)))
		items = append(items, parsedItem{
			productID: productID,
			quantity:  item.Quantity,
			price:     item.Price,
			notes:     strings.TrimSpace(item.Notes),
		})
		guardItems = append(guardItems, guard.Item{
			ProductID: productID.String(),
			Quantity:  item.Quantity,
			Price:     item.Price.StringFixed(2),
			Notes:     strings.TrimSpace(item.Notes),
		})
	}
	customerName := strings.TrimSpace(req.CustomerName)

	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Tenant ownership ---
	if tableID.Valid {
		if _, err := store.GetTable(ctx, database.GetTableParams{
			ID:        uuid.UUID(tableID.Bytes),
			CompanyID: req.CompanyID,
		}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, newError(ErrNotFound, "table not found")
			}
			return nil, fmt.Errorf("get table: %w", err)
		}
	}
	for i, item := range items {
		if _, err := store.GetProductForOrder(ctx, database.GetProductForOrderParams{
			ID:        item.productID,
			CompanyID: req.CompanyID,
		}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, validationf("items[%d]: product not found", i)
			}
			return nil, fmt.Errorf("item[%d]: get product: %w", i, err)
		}
	}

	// --- Duplicate guard (no writes before this point) ---
	fp := guard.Fingerprint(req.CompanyID, tableRef, guardItems, customerName)
	decision, err := s.guard.Check(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("duplicate guard: %w", err)
	}
	if decision == guard.Rejected {
		s.metrics.DuplicateRejected()
		return nil, ErrDuplicateSubmission
	}

	// --- Insert order and items ---
	name := pgtype.Text{}
	if customerName != "" {
		name = pgtype.Text{String: customerName, Valid: true}
	}
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		CompanyID:    req.CompanyID,
		TableID:      tableID,
		CustomerName: name,
		Total:        money.ToNumeric(total),
		CreatedBy:    pgtype.UUID{Bytes: req.CreatedBy, Valid: req.CreatedBy != uuid.Nil},
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	created := make([]database.OrderItem, 0, len(items))
	for _, item := range items {
		oi, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:   order.ID,
			ProductID: item.productID,
			Quantity:  item.quantity,
			Price:     money.ToNumeric(item.price),
			Notes:     item.notes,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		created = append(created, oi)
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.metrics.OrderCreated()
	notify(ctx, s.events, s.metrics, events.New(events.OrderCreated, order.CompanyID, newOrderEvent(order)))

	return &CreateOrderResult{Order: order, Items: created}, nil
}

var orderTransitions = map[database.OrderStatus][]database.OrderStatus{
	database.OrderStatusOpen:      {database.OrderStatusPreparing, database.OrderStatusClosed},
	database.OrderStatusPreparing: {database.OrderStatusReady, database.OrderStatusClosed},
	database.OrderStatusReady:     {database.OrderStatusClosed},
}

func validateTransition(current, next database.OrderStatus) error {
	if current == database.OrderStatusClosed {
		return newError(ErrInvalidTransition, "order is closed and cannot change status")
	}
	for _, allowed := range orderTransitions[current] {
		if allowed == next {
			return nil
		}
	}
	return newError(ErrInvalidTransition, "cannot change order status from %s to %s", current, next)
}

func isOrderStatus(s database.OrderStatus) bool {
	switch s {
	case database.OrderStatusOpen,
		database.OrderStatusPreparing,
		database.OrderStatusReady,
		database.OrderStatusClosed:
		return true
	}
	return false
}

// UpdateStatus moves an order along open -> preparing -> ready -> closed.
// Closing requires the order.close permission, checked before any lookup.
func (s *OrderService) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (database.Order, error) {
	next := database.OrderStatus(req.Status)
	if !isOrderStatus(next) {
		return database.Order{}, validationf("status must be one of open, preparing, ready, closed")
	}
	if next == database.OrderStatusClosed && !req.Actor.Can(authz.ActionOrderClose) {
		return database.Order{}, newError(ErrForbidden, "%s", authz.DenialMessage(req.Actor.Role, authz.ActionOrderClose))
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return database.Order{}, validationf("invalid orderId")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	companyID := req.Actor.CompanyID()

	current, err := store.GetOrderForUpdate(ctx, database.GetOrderForUpdateParams{ID: orderID, CompanyID: companyID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, newError(ErrNotFound, "order not found")
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	if err := validateTransition(current.Status, next); err != nil {
		return database.Order{}, err
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:        orderID,
		CompanyID: companyID,
		Status:    next,
		Status_2:  current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, newError(ErrInvalidTransition, "order status changed, please retry")
		}
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	notify(ctx, s.events, s.metrics, events.New(events.OrderStatus, companyID, newOrderEvent(updated)))
	return updated, nil
}

func isItemStatus(s database.OrderItemStatus) bool {
	switch s {
	case database.OrderItemStatusOpen,
		database.OrderItemStatusPreparing,
		database.OrderItemStatusReady:
		return true
	}
	return false
}

// UpdateItemStatus changes a kitchen item's status. Only kitchen-prepared
// categories may enter "preparing".
func (s *OrderService) UpdateItemStatus(ctx context.Context, req UpdateItemStatusRequest) (database.OrderItem, error) {
	next := database.OrderItemStatus(req.NewStatus)
	if !isItemStatus(next) {
		return database.OrderItem{}, validationf("newStatus must be one of open, preparing, ready")
	}
	itemID, err := uuid.Parse(req.OrderItemID)
	if err != nil {
		return database.OrderItem{}, validationf("invalid orderItemId")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.OrderItem{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	companyID := req.Actor.CompanyID()

	current, err := store.GetOrderItemForUpdate(ctx, database.GetOrderItemForUpdateParams{ID: itemID, CompanyID: companyID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderItem{}, newError(ErrNotFound, "order item not found")
		}
		return database.OrderItem{}, fmt.Errorf("get order item: %w", err)
	}

	if current.OrderStatus == database.OrderStatusClosed {
		return database.OrderItem{}, newError(ErrInvalidTransition, "items of a closed order cannot change status")
	}
	if next == database.OrderItemStatusPreparing && !enum.IsKitchenPrepared(current.Category) {
		return database.OrderItem{}, newError(ErrForbidden,
			"items in category %q do not go through kitchen preparation", current.Category)
	}

	updated, err := store.UpdateOrderItemStatus(ctx, database.UpdateOrderItemStatusParams{
		ID:       itemID,
		Status:   next,
		Status_2: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderItem{}, newError(ErrInvalidTransition, "item status changed, please retry")
		}
		return database.OrderItem{}, fmt.Errorf("update item status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.OrderItem{}, fmt.Errorf("commit tx: %w", err)
	}

	notify(ctx, s.events, s.metrics, events.New(events.OrderItemStatus, companyID, itemEvent{
		OrderID:     updated.OrderID,
		OrderItemID: updated.ID,
		Status:      string(updated.Status),
	}))
	return updated, nil
}

func newOrderEvent(o database.Order) orderEvent {
	e := orderEvent{
		OrderID: o.ID,
		Status:  string(o.Status),
		Total:   money.Float(money.FromNumeric(o.Total)),
	}
	if o.TableID.Valid {
		tid := uuid.UUID(o.TableID.Bytes)
		e.TableID = &tid
	}
	return e
}
