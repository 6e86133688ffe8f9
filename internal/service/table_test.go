package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/apex-pos/api/internal/database"
	"github.com/apex-pos/api/internal/events"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// mockTableStore implements TableStore with configurable behavior.
type mockTableStore struct {
	getCompanyForUpdateFn    func(ctx context.Context, id uuid.UUID) (database.Company, error)
	countTablesFn            func(ctx context.Context, companyID uuid.UUID) (int64, error)
	createTableFn            func(ctx context.Context, arg database.CreateTableParams) (database.DiningTable, error)
	getTableForUpdateFn      func(ctx context.Context, arg database.GetTableForUpdateParams) (database.DiningTable, error)
	updateTableStatusFn      func(ctx context.Context, arg database.UpdateTableStatusParams) (database.DiningTable, error)
	createOrderFn            func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	closeOpenOrdersByTableFn func(ctx context.Context, arg database.CloseOpenOrdersByTableParams) (int64, error)
}

func (m *mockTableStore) GetCompanyForUpdate(ctx context.Context, id uuid.UUID) (database.Company, error) {
	return m.getCompanyForUpdateFn(ctx, id)
}
func (m *mockTableStore) CountTables(ctx context.Context, companyID uuid.UUID) (int64, error) {
	return m.countTablesFn(ctx, companyID)
}
func (m *mockTableStore) CreateTable(ctx context.Context, arg database.CreateTableParams) (database.DiningTable, error) {
	return m.createTableFn(ctx, arg)
}
func (m *mockTableStore) GetTableForUpdate(ctx context.Context, arg database.GetTableForUpdateParams) (database.DiningTable, error) {
	return m.getTableForUpdateFn(ctx, arg)
}
func (m *mockTableStore) UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.DiningTable, error) {
	return m.updateTableStatusFn(ctx, arg)
}
func (m *mockTableStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockTableStore) CloseOpenOrdersByTable(ctx context.Context, arg database.CloseOpenOrdersByTableParams) (int64, error) {
	return m.closeOpenOrdersByTableFn(ctx, arg)
}

func newTableService(store *mockTableStore) (*TableService, *mockTx, *recordingPublisher) {
	tx := &mockTx{}
	pub := &recordingPublisher{}
	newStore := func(db database.DBTX) TableStore { return store }
	return NewTableService(&mockTxBeginner{tx: tx}, newStore, pub, nil), tx, pub
}

// =====================
// Create
// =====================

func planStore(maxTables int32, existing int64) *mockTableStore {
	return &mockTableStore{
		getCompanyForUpdateFn: func(ctx context.Context, id uuid.UUID) (database.Company, error) {
			return database.Company{ID: id, Plan: "basic", MaxTables: maxTables}, nil
		},
		countTablesFn: func(ctx context.Context, companyID uuid.UUID) (int64, error) {
			return existing, nil
		},
		createTableFn: func(ctx context.Context, arg database.CreateTableParams) (database.DiningTable, error) {
			return database.DiningTable{
				ID:        uuid.New(),
				CompanyID: arg.CompanyID,
				Number:    arg.Number,
				Capacity:  arg.Capacity,
				Status:    database.TableStatusAvailable,
			}, nil
		},
	}
}

func TestCreateTable_Success(t *testing.T) {
	svc, tx, _ := newTableService(planStore(10, 3))

	table, err := svc.CreateTable(context.Background(), CreateTableRequest{CompanyID: uuid.New(), Number: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Capacity != defaultTableCapacity {
		t.Errorf("capacity: got %d, want default %d", table.Capacity, defaultTableCapacity)
	}
	if !tx.committed {
		t.Error("expected commit")
	}
}

func TestCreateTable_PlanLimit(t *testing.T) {
	store := planStore(5, 5)
	store.createTableFn = func(ctx context.Context, arg database.CreateTableParams) (database.DiningTable, error) {
		t.Fatal("no table should be created past the plan limit")
		return database.DiningTable{}, nil
	}
	svc, _, _ := newTableService(store)

	_, err := svc.CreateTable(context.Background(), CreateTableRequest{CompanyID: uuid.New(), Number: 6, Capacity: 2})
	if !errors.Is(err, ErrPlanLimit) {
		t.Fatalf("expected ErrPlanLimit, got %v", err)
	}
	if !strings.Contains(err.Error(), `plan "basic" allows at most 5 tables`) {
		t.Errorf("message: %q", err.Error())
	}
}

func TestCreateTable_DuplicateNumber(t *testing.T) {
	store := planStore(10, 1)
	store.createTableFn = func(ctx context.Context, arg database.CreateTableParams) (database.DiningTable, error) {
		return database.DiningTable{}, &pgconn.PgError{Code: "23505", ConstraintName: tableNumberKey}
	}
	svc, _, _ := newTableService(store)

	_, err := svc.CreateTable(context.Background(), CreateTableRequest{CompanyID: uuid.New(), Number: 1})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCreateTable_Validation(t *testing.T) {
	svc, _, _ := newTableService(planStore(10, 0))
	for _, req := range []CreateTableRequest{
		{CompanyID: uuid.New(), Number: 0},
		{CompanyID: uuid.New(), Number: 3, Capacity: -1},
	} {
		if _, err := svc.CreateTable(context.Background(), req); !errors.Is(err, ErrValidation) {
			t.Errorf("%+v: expected ErrValidation, got %v", req, err)
		}
	}
}

// =====================
// Actions
// =====================

type tableActionFixture struct {
	store        *mockTableStore
	openedOrders int
	closeCalls   int
	statusSet    database.TableStatus
}

func newTableActionFixture(current database.TableStatus) *tableActionFixture {
	f := &tableActionFixture{}
	f.store = &mockTableStore{
		getTableForUpdateFn: func(ctx context.Context, arg database.GetTableForUpdateParams) (database.DiningTable, error) {
			return database.DiningTable{ID: arg.ID, CompanyID: arg.CompanyID, Number: 3, Status: current}, nil
		},
		updateTableStatusFn: func(ctx context.Context, arg database.UpdateTableStatusParams) (database.DiningTable, error) {
			f.statusSet = arg.Status
			return database.DiningTable{ID: arg.ID, CompanyID: arg.CompanyID, Number: 3, Status: arg.Status}, nil
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			f.openedOrders++
			return database.Order{ID: uuid.New(), CompanyID: arg.CompanyID, TableID: arg.TableID, Status: database.OrderStatusOpen, Total: arg.Total}, nil
		},
		closeOpenOrdersByTableFn: func(ctx context.Context, arg database.CloseOpenOrdersByTableParams) (int64, error) {
			f.closeCalls++
			return 2, nil
		},
	}
	return f
}

func TestApplyAction_Occupy(t *testing.T) {
	f := newTableActionFixture(database.TableStatusAvailable)
	svc, tx, pub := newTableService(f.store)

	result, err := svc.ApplyAction(context.Background(), TableActionRequest{
		Actor: actor("garcom"), TableID: uuid.NewString(), Action: "occupy",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.statusSet != database.TableStatusOccupied {
		t.Errorf("status: got %s, want occupied", f.statusSet)
	}
	if result.OpenedOrder == nil || f.openedOrders != 1 {
		t.Fatal("occupy should open exactly one order")
	}
	if !tx.committed {
		t.Error("expected commit")
	}
	got := pub.types()
	if len(got) != 2 || got[0] != events.TableStatus || got[1] != events.OrderCreated {
		t.Errorf("events: got %v", got)
	}
}

func TestApplyAction_OccupyOccupiedTable(t *testing.T) {
	f := newTableActionFixture(database.TableStatusOccupied)
	svc, tx, _ := newTableService(f.store)

	_, err := svc.ApplyAction(context.Background(), TableActionRequest{
		Actor: actor("garcom"), TableID: uuid.NewString(), Action: "occupy",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if f.openedOrders != 0 || tx.committed {
		t.Error("nothing should be written")
	}
}

func TestApplyAction_FreeClosesOrders(t *testing.T) {
	f := newTableActionFixture(database.TableStatusOccupied)
	svc, _, _ := newTableService(f.store)

	result, err := svc.ApplyAction(context.Background(), TableActionRequest{
		Actor: actor("caixa"), TableID: uuid.NewString(), Action: "free",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.closeCalls != 1 || result.ClosedOrders != 2 {
		t.Errorf("free should close open orders: calls=%d closed=%d", f.closeCalls, result.ClosedOrders)
	}
	if f.statusSet != database.TableStatusAvailable {
		t.Errorf("status: got %s, want available", f.statusSet)
	}
}

func TestApplyAction_StatusOnlyActions(t *testing.T) {
	cases := map[string]database.TableStatus{
		"cleaning":  database.TableStatusCleaning,
		"available": database.TableStatusAvailable,
		"reserve":   database.TableStatusReserved,
	}
	for action, want := range cases {
		f := newTableActionFixture(database.TableStatusOccupied)
		svc, _, _ := newTableService(f.store)

		if _, err := svc.ApplyAction(context.Background(), TableActionRequest{
			Actor: actor("gerente"), TableID: uuid.NewString(), Action: action,
		}); err != nil {
			t.Fatalf("%s: unexpected error: %v", action, err)
		}
		if f.statusSet != want {
			t.Errorf("%s: status got %s, want %s", action, f.statusSet, want)
		}
		if f.openedOrders != 0 || f.closeCalls != 0 {
			t.Errorf("%s: should not touch orders", action)
		}
	}
}

func TestApplyAction_Errors(t *testing.T) {
	f := newTableActionFixture(database.TableStatusAvailable)
	svc, _, _ := newTableService(f.store)

	if _, err := svc.ApplyAction(context.Background(), TableActionRequest{
		Actor: actor("caixa"), TableID: uuid.NewString(), Action: "explode",
	}); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown action: expected ErrValidation, got %v", err)
	}

	f.store.getTableForUpdateFn = func(ctx context.Context, arg database.GetTableForUpdateParams) (database.DiningTable, error) {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	if _, err := svc.ApplyAction(context.Background(), TableActionRequest{
		Actor: actor("caixa"), TableID: uuid.NewString(), Action: "free",
	}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing table: expected ErrNotFound, got %v", err)
	}
}
