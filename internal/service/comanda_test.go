package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/apex-pos/api/internal/authz"
	"github.com/apex-pos/api/internal/database"
	"github.com/apex-pos/api/internal/enum"
	"github.com/apex-pos/api/internal/events"
	"github.com/apex-pos/api/internal/money"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// mockComandaStore implements ComandaStore with configurable behavior.
type mockComandaStore struct {
	getOrderForUpdateFn     func(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error)
	listOrderItemsByOrderFn func(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error)
	getTableFn              func(ctx context.Context, arg database.GetTableParams) (database.DiningTable, error)
	createClosedComandaFn   func(ctx context.Context, arg database.CreateClosedComandaParams) (database.ClosedComanda, error)
	createComandaPaymentFn  func(ctx context.Context, arg database.CreateComandaPaymentParams) (database.ComandaPayment, error)
	closeOrderFn            func(ctx context.Context, arg database.CloseOrderParams) (database.Order, error)
}

func (m *mockComandaStore) GetOrderForUpdate(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error) {
	return m.getOrderForUpdateFn(ctx, arg)
}
func (m *mockComandaStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error) {
	return m.listOrderItemsByOrderFn(ctx, orderID)
}
func (m *mockComandaStore) GetTable(ctx context.Context, arg database.GetTableParams) (database.DiningTable, error) {
	return m.getTableFn(ctx, arg)
}
func (m *mockComandaStore) CreateClosedComanda(ctx context.Context, arg database.CreateClosedComandaParams) (database.ClosedComanda, error) {
	return m.createClosedComandaFn(ctx, arg)
}
func (m *mockComandaStore) CreateComandaPayment(ctx context.Context, arg database.CreateComandaPaymentParams) (database.ComandaPayment, error) {
	return m.createComandaPaymentFn(ctx, arg)
}
func (m *mockComandaStore) CloseOrder(ctx context.Context, arg database.CloseOrderParams) (database.Order, error) {
	return m.closeOrderFn(ctx, arg)
}

type comandaFixture struct {
	svc      *ComandaService
	tx       *mockTx
	pool     *mockTxBeginner
	store    *mockComandaStore
	events   *recordingPublisher
	actor    *authz.Context
	orderID  uuid.UUID
	closures []database.CreateClosedComandaParams
	payments []database.CreateComandaPaymentParams
	closed   bool
}

var fixedNow = time.Date(2024, 3, 15, 19, 30, 0, 0, time.UTC)

// newComandaFixture builds an open order on table 7 whose items are
// 2 x 25.00 and 1 x 12.00, a total of 62.00.
func newComandaFixture() *comandaFixture {
	f := &comandaFixture{
		tx:      &mockTx{},
		events:  &recordingPublisher{},
		actor:   actor("caixa"),
		orderID: uuid.New(),
	}
	f.pool = &mockTxBeginner{tx: f.tx}
	tableID := uuid.New()

	f.store = &mockComandaStore{
		getOrderForUpdateFn: func(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error) {
			if arg.ID != f.orderID || arg.CompanyID != f.actor.CompanyID() {
				return database.Order{}, pgx.ErrNoRows
			}
			return database.Order{
				ID:        f.orderID,
				CompanyID: arg.CompanyID,
				TableID:   pgtype.UUID{Bytes: tableID, Valid: true},
				Status:    database.OrderStatusReady,
			}, nil
		},
		listOrderItemsByOrderFn: func(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error) {
			return []database.ListOrderItemsByOrderRow{
				{ID: uuid.New(), OrderID: orderID, Quantity: 2, Price: makeNumeric("25.00")},
				{ID: uuid.New(), OrderID: orderID, Quantity: 1, Price: makeNumeric("12.00")},
			}, nil
		},
		getTableFn: func(ctx context.Context, arg database.GetTableParams) (database.DiningTable, error) {
			return database.DiningTable{ID: arg.ID, CompanyID: arg.CompanyID, Number: 7}, nil
		},
		createClosedComandaFn: func(ctx context.Context, arg database.CreateClosedComandaParams) (database.ClosedComanda, error) {
			f.closures = append(f.closures, arg)
			return database.ClosedComanda{
				ID:             uuid.New(),
				OrderID:        arg.OrderID,
				ValorTotal:     arg.ValorTotal,
				ResponsavelID:  arg.ResponsavelID,
				CompanyID:      arg.CompanyID,
				MesaID:         arg.MesaID,
				Observacoes:    arg.Observacoes,
				DataFechamento: arg.DataFechamento,
			}, nil
		},
		createComandaPaymentFn: func(ctx context.Context, arg database.CreateComandaPaymentParams) (database.ComandaPayment, error) {
			f.payments = append(f.payments, arg)
			return database.ComandaPayment{
				ID:              uuid.New(),
				ClosedComandaID: arg.ClosedComandaID,
				FormaPagamento:  arg.FormaPagamento,
				Valor:           arg.Valor,
			}, nil
		},
		closeOrderFn: func(ctx context.Context, arg database.CloseOrderParams) (database.Order, error) {
			f.closed = true
			return database.Order{ID: arg.ID, CompanyID: arg.CompanyID, Status: database.OrderStatusClosed}, nil
		},
	}

	newStore := func(db database.DBTX) ComandaStore { return f.store }
	f.svc = NewComandaService(f.pool, newStore, f.events, nil)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *comandaFixture) close(payments ...PaymentInput) (*ClosedComandaResult, error) {
	return f.svc.Close(context.Background(), CloseComandaRequest{
		Actor:    f.actor,
		OrderID:  f.orderID.String(),
		Payments: payments,
	})
}

func pay(method, amount string) PaymentInput {
	return PaymentInput{Method: method, Amount: decimal.RequireFromString(amount)}
}

func (f *comandaFixture) assertNothingWritten(t *testing.T) {
	t.Helper()
	if len(f.closures) != 0 || len(f.payments) != 0 || f.closed {
		t.Errorf("expected no writes, got closures=%d payments=%d closed=%v", len(f.closures), len(f.payments), f.closed)
	}
	if f.tx.committed {
		t.Error("expected no commit")
	}
}

func TestClose_Success(t *testing.T) {
	f := newComandaFixture()
	f.actor.Name = "Maria"

	result, err := f.close(pay("dinheiro", "30.00"), pay("pix", "32.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !money.FromNumeric(result.Comanda.ValorTotal).Equal(decimal.RequireFromString("62.00")) {
		t.Errorf("valor total: got %s, want 62.00", money.FromNumeric(result.Comanda.ValorTotal))
	}
	if result.Comanda.ResponsavelID != f.actor.UserID {
		t.Error("responsavel should be the acting user")
	}
	if !result.Comanda.DataFechamento.Equal(fixedNow) {
		t.Errorf("data fechamento: got %v", result.Comanda.DataFechamento)
	}
	if result.TableNumber != 7 {
		t.Errorf("table number: got %d, want 7", result.TableNumber)
	}
	if result.ResponsavelName != "Maria" {
		t.Errorf("responsavel name: got %q", result.ResponsavelName)
	}
	if len(result.Payments) != 2 {
		t.Fatalf("payments: got %d, want 2", len(result.Payments))
	}
	if result.Payments[0].FormaPagamento != database.PaymentMethodDinheiro ||
		result.Payments[1].FormaPagamento != database.PaymentMethodPix {
		t.Errorf("payment methods out of order: %v, %v", result.Payments[0].FormaPagamento, result.Payments[1].FormaPagamento)
	}
	for _, p := range result.Payments {
		if p.ClosedComandaID != result.Comanda.ID {
			t.Error("payments must reference the closure")
		}
	}
	if !f.closed {
		t.Error("order should be closed")
	}
	if !f.tx.committed {
		t.Error("expected commit")
	}
	if got := f.events.types(); len(got) != 1 || got[0] != events.ComandaClosed {
		t.Errorf("events: got %v", got)
	}
}

func TestClose_ToleranceOfOneCent(t *testing.T) {
	f := newComandaFixture()
	result, err := f.close(pay("cartao", "61.99"))
	if err != nil {
		t.Fatalf("61.99 against 62.00 should pass: %v", err)
	}
	// The closure records the order total, not the payments total.
	if !money.FromNumeric(result.Comanda.ValorTotal).Equal(decimal.RequireFromString("62.00")) {
		t.Errorf("valor total: got %s", money.FromNumeric(result.Comanda.ValorTotal))
	}

	f = newComandaFixture()
	if _, err := f.close(pay("cartao", "61.98")); !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("61.98 against 62.00: expected ErrAmountMismatch, got %v", err)
	}
}

func TestClose_AmountMismatch(t *testing.T) {
	f := newComandaFixture()
	_, err := f.close(pay("dinheiro", "30.00"), pay("pix", "30.00"))

	var mismatch *AmountMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *AmountMismatchError, got %v", err)
	}
	if !errors.Is(err, ErrAmountMismatch) {
		t.Error("should match ErrAmountMismatch")
	}
	if !mismatch.PaymentsTotal.Equal(decimal.NewFromInt(60)) || !mismatch.OrderTotal.Equal(decimal.NewFromInt(62)) {
		t.Errorf("totals: got %s / %s", mismatch.PaymentsTotal, mismatch.OrderTotal)
	}
	if !strings.Contains(err.Error(), "60.00") || !strings.Contains(err.Error(), "62.00") {
		t.Errorf("message should carry both totals: %q", err.Error())
	}
	f.assertNothingWritten(t)
}

func TestClose_InvalidPayments(t *testing.T) {
	cases := []struct {
		name     string
		payments []PaymentInput
		index    int
		msg      string
	}{
		{"unknown method", []PaymentInput{pay("cheque", "62.00")}, 0, `payment method "cheque" is not valid`},
		{"zero amount", []PaymentInput{pay("pix", "62.00"), pay("dinheiro", "0")}, 1, "must be greater than zero"},
		{"negative amount", []PaymentInput{pay("pix", "70.00"), pay("cartao", "-8.00")}, 1, "must be greater than zero"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newComandaFixture()
			_, err := f.close(tc.payments...)

			var invalid *InvalidPaymentError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected *InvalidPaymentError, got %v", err)
			}
			if !errors.Is(err, ErrInvalidPayment) {
				t.Error("should match ErrInvalidPayment")
			}
			if invalid.Index != tc.index {
				t.Errorf("index: got %d, want %d", invalid.Index, tc.index)
			}
			if !strings.Contains(err.Error(), tc.msg) {
				t.Errorf("message %q should contain %q", err.Error(), tc.msg)
			}
			f.assertNothingWritten(t)
		})
	}
}

func TestClose_SubCentAmountsAreCheckedAsStored(t *testing.T) {
	// Each 31.005 is stored as 31.01, so the stored sum is 62.02.
	f := newComandaFixture()
	_, err := f.close(pay("dinheiro", "31.005"), pay("pix", "31.005"))
	var mismatch *AmountMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *AmountMismatchError, got %v", err)
	}
	if !mismatch.PaymentsTotal.Equal(decimal.RequireFromString("62.02")) {
		t.Errorf("payments total: got %s, want 62.02", mismatch.PaymentsTotal)
	}
	f.assertNothingWritten(t)

	// 0.004 is stored as 0.00 and must be refused as a payment, not by the store.
	f = newComandaFixture()
	_, err = f.close(pay("dinheiro", "62.00"), pay("pix", "0.004"))
	var invalid *InvalidPaymentError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *InvalidPaymentError, got %v", err)
	}
	if invalid.Index != 1 || !strings.Contains(err.Error(), "0.00 must be greater than zero") {
		t.Errorf("got index %d, message %q", invalid.Index, err.Error())
	}
	f.assertNothingWritten(t)

	// Rounded amounts that agree are stored as cents and sum to the order total.
	f = newComandaFixture()
	if _, err := f.close(pay("dinheiro", "31.004"), pay("pix", "30.996")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored := decimal.Zero
	for _, p := range f.payments {
		stored = stored.Add(money.FromNumeric(p.Valor))
	}
	if !stored.Equal(decimal.RequireFromString("62.00")) {
		t.Errorf("stored payments sum: got %s, want 62.00", stored)
	}
}

func TestClose_MismatchCheckedBeforeMethods(t *testing.T) {
	f := newComandaFixture()
	_, err := f.close(pay("cheque", "10.00"))
	if !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("expected ErrAmountMismatch first, got %v", err)
	}
}

func TestClose_AllPaymentMethods(t *testing.T) {
	for _, m := range database.AllPaymentMethods() {
		f := newComandaFixture()
		if _, err := f.close(PaymentInput{Method: string(m), Amount: decimal.NewFromInt(62)}); err != nil {
			t.Errorf("%s: unexpected error: %v", m, err)
		}
	}
}

func TestClose_AlreadyClosed(t *testing.T) {
	f := newComandaFixture()
	f.store.getOrderForUpdateFn = func(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error) {
		return database.Order{ID: arg.ID, CompanyID: arg.CompanyID, Status: database.OrderStatusClosed}, nil
	}

	_, err := f.close(pay("pix", "62.00"))
	if !errors.Is(err, ErrAlreadyClosed) {
		t.Fatalf("expected ErrAlreadyClosed, got %v", err)
	}
	f.assertNothingWritten(t)
}

func TestClose_ConcurrentClosureLosesOnUniqueOrder(t *testing.T) {
	f := newComandaFixture()
	f.store.createClosedComandaFn = func(ctx context.Context, arg database.CreateClosedComandaParams) (database.ClosedComanda, error) {
		return database.ClosedComanda{}, &pgconn.PgError{Code: "23505", ConstraintName: closedComandasOrderKey}
	}

	_, err := f.close(pay("pix", "62.00"))
	if !errors.Is(err, ErrAlreadyClosed) {
		t.Fatalf("expected ErrAlreadyClosed, got %v", err)
	}
	if f.tx.committed {
		t.Error("expected no commit")
	}
}

func TestClose_ConcurrentClosureLosesOnStatusCAS(t *testing.T) {
	f := newComandaFixture()
	f.store.closeOrderFn = func(ctx context.Context, arg database.CloseOrderParams) (database.Order, error) {
		return database.Order{}, pgx.ErrNoRows
	}

	_, err := f.close(pay("pix", "62.00"))
	if !errors.Is(err, ErrAlreadyClosed) {
		t.Fatalf("expected ErrAlreadyClosed, got %v", err)
	}
	if f.tx.committed {
		t.Error("the closure and its payments must roll back")
	}
	if len(f.events.types()) != 0 {
		t.Error("no event should be published")
	}
}

func TestClose_OrderNotFound(t *testing.T) {
	f := newComandaFixture()
	_, err := f.svc.Close(context.Background(), CloseComandaRequest{
		Actor:    f.actor,
		OrderID:  uuid.NewString(),
		Payments: []PaymentInput{pay("pix", "62.00")},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClose_OtherTenantOrderIsNotFound(t *testing.T) {
	f := newComandaFixture()
	f.actor = actor("caixa")

	_, err := f.close(pay("pix", "62.00"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClose_Validation(t *testing.T) {
	f := newComandaFixture()

	cases := []struct {
		name string
		req  CloseComandaRequest
		msg  string
	}{
		{"missing order", CloseComandaRequest{Actor: f.actor, Payments: []PaymentInput{pay("pix", "1")}}, "orderId is required"},
		{"bad order id", CloseComandaRequest{Actor: f.actor, OrderID: "abc", Payments: []PaymentInput{pay("pix", "1")}}, "invalid orderId"},
		{"no payments", CloseComandaRequest{Actor: f.actor, OrderID: f.orderID.String()}, "at least one payment"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Close(context.Background(), tc.req)
			if !errors.Is(err, ErrValidation) || !strings.Contains(err.Error(), tc.msg) {
				t.Fatalf("expected validation %q, got %v", tc.msg, err)
			}
		})
	}
	if f.pool.calls != 0 {
		t.Error("validation failures must not open a transaction")
	}
}

func TestClose_CounterOrderAndUnknownName(t *testing.T) {
	f := newComandaFixture()
	f.actor.Name = ""
	f.store.getOrderForUpdateFn = func(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error) {
		return database.Order{ID: arg.ID, CompanyID: arg.CompanyID, Status: database.OrderStatusOpen}, nil
	}
	f.store.getTableFn = func(ctx context.Context, arg database.GetTableParams) (database.DiningTable, error) {
		t.Fatal("counter orders have no table to look up")
		return database.DiningTable{}, nil
	}

	result, err := f.close(pay("vale", "62.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TableNumber != 0 {
		t.Errorf("table number: got %d, want 0", result.TableNumber)
	}
	if result.Comanda.MesaID.Valid {
		t.Error("mesa should be null for counter orders")
	}
	if result.ResponsavelName != enum.UnknownStaffName {
		t.Errorf("responsavel name: got %q", result.ResponsavelName)
	}
}

func TestClose_PublishFailureDoesNotFailClosure(t *testing.T) {
	f := newComandaFixture()
	f.events.err = errors.New("broker down")

	if _, err := f.close(pay("pix", "62.00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.tx.committed {
		t.Error("expected commit")
	}
}
