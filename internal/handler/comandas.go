package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/apex-pos/api/internal/authz"
	"github.com/apex-pos/api/internal/logger"
	"github.com/apex-pos/api/internal/middleware"
	"github.com/apex-pos/api/internal/money"
	"github.com/apex-pos/api/internal/report"
	"github.com/apex-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ComandaCloser is satisfied by *service.ComandaService.
type ComandaCloser interface {
	Close(ctx context.Context, req service.CloseComandaRequest) (*service.ClosedComandaResult, error)
}

// ComandaReporter is satisfied by *report.Reporter.
type ComandaReporter interface {
	Daily(ctx context.Context, companyID uuid.UUID, date time.Time) (*report.Daily, error)
	ListClosed(ctx context.Context, p report.ListParams) (*report.Page, error)
}

// ComandaHandler handles comanda closure and reporting endpoints.
type ComandaHandler struct {
	closer   ComandaCloser
	reporter ComandaReporter
	now      func() time.Time
}

func NewComandaHandler(closer ComandaCloser, reporter ComandaReporter) *ComandaHandler {
	return &ComandaHandler{closer: closer, reporter: reporter, now: time.Now}
}

// RegisterRoutes registers comanda endpoints on the given Chi router.
// Expected to be mounted behind Authenticate and Resolve.
func (h *ComandaHandler) RegisterRoutes(r chi.Router) {
	r.Route("/comandas", func(r chi.Router) {
		r.With(middleware.RequirePermission(authz.ActionComandaClose)).Post("/fechar", h.Close)
		r.With(middleware.RequirePermission(authz.ActionComandaList)).Get("/fechadas", h.ListClosed)
		r.With(middleware.RequirePermission(authz.ActionReportDaily)).Get("/resumo-diario", h.Daily)
		r.With(middleware.RequirePermission(authz.ActionReportDaily)).Get("/resumo-diario/csv", h.DailyCSV)
	})
}

// --- Request / Response types ---

type closeComandaRequest struct {
	OrderID     string           `json:"orderId"`
	Pagamentos  []paymentRequest `json:"pagamentos"`
	Observacoes string           `json:"observacoes"`
}

type paymentRequest struct {
	FormaPagamento string          `json:"formaPagamento"`
	Valor          decimal.Decimal `json:"valor"`
}

type responsavelResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type paymentResponse struct {
	ID             uuid.UUID `json:"id"`
	FormaPagamento string    `json:"formaPagamento"`
	Valor          float64   `json:"valor"`
}

type closedComandaResponse struct {
	ID             uuid.UUID           `json:"id"`
	OrderID        uuid.UUID           `json:"orderId"`
	ValorTotal     float64             `json:"valorTotal"`
	DataFechamento string              `json:"dataFechamento"`
	Mesa           int32               `json:"mesa"`
	Responsavel    responsavelResponse `json:"responsavel"`
	Pagamentos     []paymentResponse   `json:"pagamentos"`
	Observacoes    *string             `json:"observacoes"`
}

type closeComandaResponse struct {
	Message string                `json:"message"`
	Data    closedComandaResponse `json:"data"`
}

type comandaListItem struct {
	ID             uuid.UUID           `json:"id"`
	OrderID        uuid.UUID           `json:"orderId"`
	ValorTotal     float64             `json:"valorTotal"`
	DataFechamento string              `json:"dataFechamento"`
	Mesa           int32               `json:"mesa"`
	CustomerName   string              `json:"customerName,omitempty"`
	Responsavel    responsavelResponse `json:"responsavel"`
	Pagamentos     []paymentResponse   `json:"pagamentos"`
	Observacoes    string              `json:"observacoes,omitempty"`
	CreatedAt      string              `json:"createdAt"`
	UpdatedAt      string              `json:"updatedAt"`
}

type paginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

type comandaListResponse struct {
	Comandas   []comandaListItem  `json:"comandas"`
	Pagination paginationResponse `json:"pagination"`
}

type dailySummary struct {
	TotalGeral    float64 `json:"totalGeral"`
	TotalComandas int     `json:"totalComandas"`
	TicketMedio   float64 `json:"ticketMedio"`
}

type methodSummary struct {
	FormaPagamento string  `json:"formaPagamento"`
	Valor          float64 `json:"valor"`
	Percentual     float64 `json:"percentual"`
}

type staffSummary struct {
	ResponsavelID uuid.UUID `json:"responsavelId"`
	Nome          string    `json:"nome"`
	Total         float64   `json:"total"`
	Comandas      int       `json:"comandas"`
	TicketMedio   float64   `json:"ticketMedio"`
}

type hourSummary struct {
	Hora     string  `json:"hora"`
	Valor    float64 `json:"valor"`
	Comandas int     `json:"comandas"`
}

type dailyComanda struct {
	ID             uuid.UUID         `json:"id"`
	ValorTotal     float64           `json:"valorTotal"`
	DataFechamento string            `json:"dataFechamento"`
	Mesa           int32             `json:"mesa"`
	Responsavel    string            `json:"responsavel"`
	Pagamentos     []paymentResponse `json:"pagamentos"`
}

type dailyResponse struct {
	Data                    string          `json:"data"`
	ResumoGeral             dailySummary    `json:"resumoGeral"`
	ResumoPorFormaPagamento []methodSummary `json:"resumoPorFormaPagamento"`
	ResumoPorResponsavel    []staffSummary  `json:"resumoPorResponsavel"`
	ResumoPorHora           []hourSummary   `json:"resumoPorHora"`
	Comandas                []dailyComanda  `json:"comandas"`
}

// --- Handlers ---

// Close handles POST /comandas/fechar.
func (h *ComandaHandler) Close(w http.ResponseWriter, r *http.Request) {
	actx, ok := actor(w, r)
	if !ok {
		return
	}

	var req closeComandaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payments := make([]service.PaymentInput, len(req.Pagamentos))
	for i, p := range req.Pagamentos {
		payments[i] = service.PaymentInput{Method: p.FormaPagamento, Amount: p.Valor}
	}

	result, err := h.closer.Close(r.Context(), service.CloseComandaRequest{
		Actor:       actx,
		OrderID:     req.OrderID,
		Payments:    payments,
		Observacoes: req.Observacoes,
	})
	if err != nil {
		writeServiceError(w, r, "close comanda", err)
		return
	}

	c := result.Comanda
	data := closedComandaResponse{
		ID:             c.ID,
		OrderID:        c.OrderID,
		ValorTotal:     numericFloat(c.ValorTotal),
		DataFechamento: isoTime(c.DataFechamento),
		Mesa:           result.TableNumber,
		Responsavel:    responsavelResponse{ID: c.ResponsavelID, Name: result.ResponsavelName},
		Pagamentos:     make([]paymentResponse, len(result.Payments)),
		Observacoes:    textPtr(c.Observacoes),
	}
	for i, p := range result.Payments {
		data.Pagamentos[i] = paymentResponse{
			ID:             p.ID,
			FormaPagamento: string(p.FormaPagamento),
			Valor:          numericFloat(p.Valor),
		}
	}

	writeJSON(w, http.StatusOK, closeComandaResponse{Message: "Comanda fechada com sucesso", Data: data})
}

// ListClosed handles GET /comandas/fechadas.
func (h *ComandaHandler) ListClosed(w http.ResponseWriter, r *http.Request) {
	actx, ok := actor(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	params := report.ListParams{CompanyID: actx.CompanyID()}

	if s := q.Get("page"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		params.Page = v
	}
	if s := q.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		params.Limit = v
	}
	if s := q.Get("dataInicio"); s != "" {
		start, err := parseDateOrTime(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dataInicio")
			return
		}
		params.Start = &start
	}
	if s := q.Get("dataFim"); s != "" {
		end, err := parseDateOrTime(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dataFim")
			return
		}
		// A bare date covers the whole day and nothing of the next.
		if len(s) == len(dateLayout) {
			end = report.EndOfDay(end)
		}
		params.End = &end
	}
	if s := q.Get("responsavelId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid responsavelId")
			return
		}
		params.ResponsavelID = &id
	}

	page, err := h.reporter.ListClosed(r.Context(), params)
	if err != nil {
		writeInternalError(w, r, "list closed comandas", err)
		return
	}

	resp := comandaListResponse{
		Comandas: make([]comandaListItem, len(page.Comandas)),
		Pagination: paginationResponse{
			Page:       page.Pagination.Page,
			Limit:      page.Pagination.Limit,
			Total:      page.Pagination.Total,
			TotalPages: page.Pagination.TotalPages,
			HasNext:    page.Pagination.HasNext,
			HasPrev:    page.Pagination.HasPrev,
		},
	}
	for i, c := range page.Comandas {
		resp.Comandas[i] = comandaListItem{
			ID:             c.ID,
			OrderID:        c.OrderID,
			ValorTotal:     money.Float(c.ValorTotal),
			DataFechamento: isoTime(c.DataFechamento),
			Mesa:           c.Mesa,
			CustomerName:   c.CustomerName,
			Responsavel:    responsavelResponse{ID: c.ResponsavelID, Name: c.ResponsavelName},
			Pagamentos:     reportPayments(c.Payments),
			Observacoes:    c.Observacoes,
			CreatedAt:      isoTime(c.CreatedAt),
			UpdatedAt:      isoTime(c.UpdatedAt),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Daily handles GET /comandas/resumo-diario.
func (h *ComandaHandler) Daily(w http.ResponseWriter, r *http.Request) {
	d, ok := h.daily(w, r)
	if !ok {
		return
	}

	resp := dailyResponse{
		Data: d.Date,
		ResumoGeral: dailySummary{
			TotalGeral:    money.Float(d.TotalGeral),
			TotalComandas: d.TotalComandas,
			TicketMedio:   money.Float(d.TicketMedio),
		},
		ResumoPorFormaPagamento: make([]methodSummary, len(d.PorPagamento)),
		ResumoPorResponsavel:    make([]staffSummary, len(d.PorResponsavel)),
		ResumoPorHora:           make([]hourSummary, len(d.PorHora)),
		Comandas:                make([]dailyComanda, len(d.Comandas)),
	}
	for i, m := range d.PorPagamento {
		resp.ResumoPorFormaPagamento[i] = methodSummary{
			FormaPagamento: m.Method,
			Valor:          money.Float(m.Total),
			Percentual:     m.Percentage,
		}
	}
	for i, s := range d.PorResponsavel {
		resp.ResumoPorResponsavel[i] = staffSummary{
			ResponsavelID: s.ResponsavelID,
			Nome:          s.Name,
			Total:         money.Float(s.Total),
			Comandas:      s.Count,
			TicketMedio:   money.Float(s.AverageTicket),
		}
	}
	for i, hr := range d.PorHora {
		resp.ResumoPorHora[i] = hourSummary{Hora: hr.Hour, Valor: money.Float(hr.Total), Comandas: hr.Count}
	}
	for i, c := range d.Comandas {
		resp.Comandas[i] = dailyComanda{
			ID:             c.ID,
			ValorTotal:     money.Float(c.ValorTotal),
			DataFechamento: isoTime(c.DataFechamento),
			Mesa:           c.Mesa,
			Responsavel:    c.ResponsavelName,
			Pagamentos:     reportPayments(c.Payments),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// DailyCSV handles GET /comandas/resumo-diario/csv.
func (h *ComandaHandler) DailyCSV(w http.ResponseWriter, r *http.Request) {
	d, ok := h.daily(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="resumo-`+d.Date+`.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := report.WriteCSV(w, d); err != nil {
		// Headers are already sent.
		logger.FromContext(r.Context()).Error("write daily csv", zap.Error(err))
	}
}

// daily parses ?data= and loads the report, writing the error response
// itself when it returns false.
func (h *ComandaHandler) daily(w http.ResponseWriter, r *http.Request) (*report.Daily, bool) {
	actx, ok := actor(w, r)
	if !ok {
		return nil, false
	}

	date := h.now().UTC()
	if s := r.URL.Query().Get("data"); s != "" {
		parsed, err := time.Parse(dateLayout, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "data must be formatted as YYYY-MM-DD")
			return nil, false
		}
		date = parsed
	}

	d, err := h.reporter.Daily(r.Context(), actx.CompanyID(), date)
	if err != nil {
		writeInternalError(w, r, "daily report", err)
		return nil, false
	}
	return d, true
}

// --- Helpers ---

func reportPayments(payments []report.Payment) []paymentResponse {
	out := make([]paymentResponse, len(payments))
	for i, p := range payments {
		out[i] = paymentResponse{ID: p.ID, FormaPagamento: p.Method, Valor: money.Float(p.Amount)}
	}
	return out
}

// parseDateOrTime accepts YYYY-MM-DD (UTC midnight) or RFC 3339.
func parseDateOrTime(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
