package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex-pos/api/internal/authz"
	"github.com/apex-pos/api/internal/database"
	"github.com/apex-pos/api/internal/enum"
	"github.com/apex-pos/api/internal/events"
	"github.com/apex-pos/api/internal/metrics"
	"github.com/apex-pos/api/internal/money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const (
	defaultTableCapacity = 4
	tableNumberKey       = "dining_tables_company_id_number_key"
)

// TableStore defines the DB methods needed by table operations.
type TableStore interface {
	GetCompanyForUpdate(ctx context.Context, id uuid.UUID) (database.Company, error)
	CountTables(ctx context.Context, companyID uuid.UUID) (int64, error)
	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.DiningTable, error)
	GetTableForUpdate(ctx context.Context, arg database.GetTableForUpdateParams) (database.DiningTable, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.DiningTable, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CloseOpenOrdersByTable(ctx context.Context, arg database.CloseOpenOrdersByTableParams) (int64, error)
}

// NewTableStore creates a TableStore from a DBTX (pool or tx).
type NewTableStore func(db database.DBTX) TableStore

type CreateTableRequest struct {
	CompanyID uuid.UUID
	Number    int32
	Capacity  int32
}

type TableActionRequest struct {
	Actor   *authz.Context
	TableID string
	Action  string
}

// TableActionResult carries the updated table and any order side effects.
type TableActionResult struct {
	Table        database.DiningTable
	OpenedOrder  *database.Order
	ClosedOrders int64
}

type tableEvent struct {
	TableID uuid.UUID `json:"tableId"`
	Number  int32     `json:"number"`
	Status  string    `json:"status"`
	Action  string    `json:"action,omitempty"`
}

var actionStatus = map[string]database.TableStatus{
	enum.TableActionOccupy:    database.TableStatusOccupied,
	enum.TableActionFree:      database.TableStatusAvailable,
	enum.TableActionCleaning:  database.TableStatusCleaning,
	enum.TableActionAvailable: database.TableStatusAvailable,
	enum.TableActionReserve:   database.TableStatusReserved,
}

// TableService handles table lifecycle and its order side effects.
type TableService struct {
	pool     TxBeginner
	newStore NewTableStore
	events   events.Publisher
	metrics  *metrics.Metrics
}

func NewTableService(pool TxBeginner, newStore NewTableStore, pub events.Publisher, m *metrics.Metrics) *TableService {
	return &TableService{pool: pool, newStore: newStore, events: pub, metrics: m}
}

// CreateTable adds a table, enforcing the company's max_tables plan limit.
func (s *TableService) CreateTable(ctx context.Context, req CreateTableRequest) (database.DiningTable, error) {
	if req.Number <= 0 {
		return database.DiningTable{}, validationf("number must be greater than zero")
	}
	if req.Capacity < 0 {
		return database.DiningTable{}, validationf("capacity must be greater than zero")
	}
	if req.Capacity == 0 {
		req.Capacity = defaultTableCapacity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.DiningTable{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Lock the company row so concurrent creates see each other's count.
	company, err := store.GetCompanyForUpdate(ctx, req.CompanyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.DiningTable{}, newError(ErrNotFound, "company not found")
		}
		return database.DiningTable{}, fmt.Errorf("get company: %w", err)
	}
	count, err := store.CountTables(ctx, req.CompanyID)
	if err != nil {
		return database.DiningTable{}, fmt.Errorf("count tables: %w", err)
	}
	if count >= int64(company.MaxTables) {
		return database.DiningTable{}, newError(ErrPlanLimit,
			"plan %q allows at most %d tables", company.Plan, company.MaxTables)
	}

	table, err := store.CreateTable(ctx, database.CreateTableParams{
		CompanyID: req.CompanyID,
		Number:    req.Number,
		Capacity:  req.Capacity,
	})
	if err != nil {
		if isUniqueViolation(err, tableNumberKey) {
			return database.DiningTable{}, newError(ErrConflict, "table %d already exists", req.Number)
		}
		return database.DiningTable{}, fmt.Errorf("create table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.DiningTable{}, fmt.Errorf("commit tx: %w", err)
	}
	return table, nil
}

// ApplyAction changes a table's status. "occupy" also opens an empty order
// and "free" closes every non-closed order of the table.
func (s *TableService) ApplyAction(ctx context.Context, req TableActionRequest) (*TableActionResult, error) {
	status, ok := actionStatus[req.Action]
	if !ok {
		return nil, validationf("action must be one of occupy, free, cleaning, available, reserve")
	}
	tableID, err := uuid.Parse(req.TableID)
	if err != nil {
		return nil, validationf("invalid tableId")
	}
	companyID := req.Actor.CompanyID()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetTableForUpdate(ctx, database.GetTableForUpdateParams{ID: tableID, CompanyID: companyID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, newError(ErrNotFound, "table not found")
		}
		return nil, fmt.Errorf("get table: %w", err)
	}

	result := &TableActionResult{}
	tableRef := pgtype.UUID{Bytes: tableID, Valid: true}

	switch req.Action {
	case enum.TableActionOccupy:
		if current.Status == database.TableStatusOccupied {
			return nil, newError(ErrConflict, "table %d is already occupied", current.Number)
		}
		order, err := store.CreateOrder(ctx, database.CreateOrderParams{
			CompanyID: companyID,
			TableID:   tableRef,
			Total:     money.ToNumeric(decimal.Zero),
			CreatedBy: pgtype.UUID{Bytes: req.Actor.UserID, Valid: true},
		})
		if err != nil {
			return nil, fmt.Errorf("open order: %w", err)
		}
		result.OpenedOrder = &order
	case enum.TableActionFree:
		n, err := store.CloseOpenOrdersByTable(ctx, database.CloseOpenOrdersByTableParams{
			TableID:   tableRef,
			CompanyID: companyID,
		})
		if err != nil {
			return nil, fmt.Errorf("close table orders: %w", err)
		}
		result.ClosedOrders = n
	}

	table, err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{
		ID:        tableID,
		CompanyID: companyID,
		Status:    status,
	})
	if err != nil {
		return nil, fmt.Errorf("update table status: %w", err)
	}
	result.Table = table

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	notify(ctx, s.events, s.metrics, events.New(events.TableStatus, companyID, tableEvent{
		TableID: table.ID,
		Number:  table.Number,
		Status:  string(table.Status),
		Action:  req.Action,
	}))
	if result.OpenedOrder != nil {
		notify(ctx, s.events, s.metrics, events.New(events.OrderCreated, companyID, newOrderEvent(*result.OpenedOrder)))
	}
	return result, nil
}
