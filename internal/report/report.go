package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/apex-pos/api/internal/database"
	"github.com/apex-pos/api/internal/enum"
	"github.com/apex-pos/api/internal/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store defines the read queries behind reports and the closed comanda list.
// Satisfied by *database.Queries.
type Store interface {
	ListClosedComandasBetween(ctx context.Context, arg database.ListClosedComandasBetweenParams) ([]database.ClosedComandaRow, error)
	ListClosedComandas(ctx context.Context, arg database.ListClosedComandasParams) ([]database.ClosedComandaRow, error)
	CountClosedComandas(ctx context.Context, arg database.CountClosedComandasParams) (int64, error)
	ListPaymentsByComandas(ctx context.Context, ids []uuid.UUID) ([]database.ComandaPayment, error)
}

// DateLayout is the calendar day format accepted by Daily callers.
const DateLayout = "2006-01-02"

type Payment struct {
	ID     uuid.UUID
	Method string
	Amount decimal.Decimal
}

// Comanda is a closed comanda with its payments and display names.
type Comanda struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	ValorTotal      decimal.Decimal
	DataFechamento  time.Time
	Mesa            int32 // 0 for counter orders
	CustomerName    string
	ResponsavelID   uuid.UUID
	ResponsavelName string
	Observacoes     string
	Payments        []Payment
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type MethodTotal struct {
	Method     string
	Total      decimal.Decimal
	Percentage float64
}

type StaffTotal struct {
	ResponsavelID uuid.UUID
	Name          string
	Total         decimal.Decimal
	Count         int
	AverageTicket decimal.Decimal
}

type HourTotal struct {
	Hour  string // "HH:00"
	Total decimal.Decimal
	Count int
}

// Daily is the end-of-day reconciliation for one tenant.
type Daily struct {
	Date           string
	TotalGeral     decimal.Decimal
	TotalComandas  int
	TicketMedio    decimal.Decimal
	PorPagamento   []MethodTotal
	PorResponsavel []StaffTotal
	PorHora        []HourTotal
	Comandas       []Comanda
}

// Reporter builds reports from closed comandas.
type Reporter struct {
	store Store
	loc   *time.Location
}

// New creates a Reporter. Hour buckets are computed in loc; nil means UTC.
func New(store Store, loc *time.Location) *Reporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Reporter{store: store, loc: loc}
}

// DayWindow returns [date 00:00 UTC, next day 00:00 UTC).
func DayWindow(date time.Time) (time.Time, time.Time) {
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// Daily aggregates the closures of date for companyID. Any store failure
// fails the whole report.
func (r *Reporter) Daily(ctx context.Context, companyID uuid.UUID, date time.Time) (*Daily, error) {
	start, end := DayWindow(date)

	rows, err := r.store.ListClosedComandasBetween(ctx, database.ListClosedComandasBetweenParams{
		CompanyID: companyID,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("list closed comandas: %w", err)
	}
	comandas, err := r.withPayments(ctx, rows)
	if err != nil {
		return nil, err
	}

	return r.summarize(start.Format(DateLayout), comandas), nil
}

func (r *Reporter) summarize(date string, comandas []Comanda) *Daily {
	d := &Daily{
		Date:           date,
		TotalGeral:     decimal.Zero,
		TicketMedio:    decimal.Zero,
		PorPagamento:   []MethodTotal{},
		PorResponsavel: []StaffTotal{},
		PorHora:        []HourTotal{},
		Comandas:       comandas,
	}

	methods := map[string]decimal.Decimal{}
	staff := map[uuid.UUID]*StaffTotal{}
	hours := map[string]*HourTotal{}

	for _, c := range comandas {
		d.TotalGeral = d.TotalGeral.Add(c.ValorTotal)

		for _, p := range c.Payments {
			methods[p.Method] = methods[p.Method].Add(p.Amount)
		}

		s, ok := staff[c.ResponsavelID]
		if !ok {
			s = &StaffTotal{ResponsavelID: c.ResponsavelID, Name: c.ResponsavelName, Total: decimal.Zero}
			staff[c.ResponsavelID] = s
		}
		s.Total = s.Total.Add(c.ValorTotal)
		s.Count++

		label := fmt.Sprintf("%02d:00", c.DataFechamento.In(r.loc).Hour())
		h, ok := hours[label]
		if !ok {
			h = &HourTotal{Hour: label, Total: decimal.Zero}
			hours[label] = h
		}
		h.Total = h.Total.Add(c.ValorTotal)
		h.Count++
	}

	d.TotalComandas = len(comandas)
	if d.TotalComandas > 0 {
		d.TicketMedio = d.TotalGeral.Div(decimal.NewFromInt(int64(d.TotalComandas))).Round(2)
	}

	for method, total := range methods {
		d.PorPagamento = append(d.PorPagamento, MethodTotal{
			Method:     method,
			Total:      total,
			Percentage: percentage(total, d.TotalGeral),
		})
	}
	sort.Slice(d.PorPagamento, func(i, j int) bool {
		a, b := d.PorPagamento[i], d.PorPagamento[j]
		if !a.Total.Equal(b.Total) {
			return a.Total.GreaterThan(b.Total)
		}
		return a.Method < b.Method
	})

	for _, s := range staff {
		s.AverageTicket = s.Total.Div(decimal.NewFromInt(int64(s.Count))).Round(2)
		d.PorResponsavel = append(d.PorResponsavel, *s)
	}
	sort.Slice(d.PorResponsavel, func(i, j int) bool {
		a, b := d.PorResponsavel[i], d.PorResponsavel[j]
		if !a.Total.Equal(b.Total) {
			return a.Total.GreaterThan(b.Total)
		}
		return a.Name < b.Name
	})

	for _, h := range hours {
		d.PorHora = append(d.PorHora, *h)
	}
	sort.Slice(d.PorHora, func(i, j int) bool { return d.PorHora[i].Hour < d.PorHora[j].Hour })

	return d
}

// percentage returns part/total*100 with two decimals, or 0 for a zero total.
func percentage(part, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	return part.Div(total).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}

// withPayments attaches payments to rows, preserving row order.
func (r *Reporter) withPayments(ctx context.Context, rows []database.ClosedComandaRow) ([]Comanda, error) {
	comandas := make([]Comanda, len(rows))
	if len(rows) == 0 {
		return comandas, nil
	}

	ids := make([]uuid.UUID, len(rows))
	index := make(map[uuid.UUID]int, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
		index[row.ID] = i
		comandas[i] = fromRow(row)
	}

	payments, err := r.store.ListPaymentsByComandas(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	for _, p := range payments {
		i, ok := index[p.ClosedComandaID]
		if !ok {
			continue
		}
		comandas[i].Payments = append(comandas[i].Payments, Payment{
			ID:     p.ID,
			Method: string(p.FormaPagamento),
			Amount: money.FromNumeric(p.Valor),
		})
	}
	return comandas, nil
}

func fromRow(row database.ClosedComandaRow) Comanda {
	name := enum.UnknownStaffName
	if row.ResponsavelName.Valid && row.ResponsavelName.String != "" {
		name = row.ResponsavelName.String
	}
	c := Comanda{
		ID:              row.ID,
		OrderID:         row.OrderID,
		ValorTotal:      money.FromNumeric(row.ValorTotal),
		DataFechamento:  row.DataFechamento,
		CustomerName:    row.CustomerName.String,
		ResponsavelID:   row.ResponsavelID,
		ResponsavelName: name,
		Observacoes:     row.Observacoes.String,
		Payments:        []Payment{},
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	if row.MesaNumber.Valid {
		c.Mesa = row.MesaNumber.Int32
	}
	return c
}
