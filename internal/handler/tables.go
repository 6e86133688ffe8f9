package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/apex-pos/api/internal/authz"
	"github.com/apex-pos/api/internal/database"
	"github.com/apex-pos/api/internal/middleware"
	"github.com/apex-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TableServicer is satisfied by *service.TableService.
type TableServicer interface {
	CreateTable(ctx context.Context, req service.CreateTableRequest) (database.DiningTable, error)
	ApplyAction(ctx context.Context, req service.TableActionRequest) (*service.TableActionResult, error)
}

// TableStore defines the database methods needed by table read handlers.
type TableStore interface {
	ListTables(ctx context.Context, companyID uuid.UUID) ([]database.DiningTable, error)
	GetTable(ctx context.Context, arg database.GetTableParams) (database.DiningTable, error)
}

// TableHandler handles dining table endpoints.
type TableHandler struct {
	svc   TableServicer
	store TableStore
}

func NewTableHandler(svc TableServicer, store TableStore) *TableHandler {
	return &TableHandler{svc: svc, store: store}
}

// RegisterRoutes registers table endpoints on the given Chi router.
// Expected to be mounted behind Authenticate and Resolve.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(authz.ActionTableRead)).Get("/tables", h.List)
	r.With(middleware.RequirePermission(authz.ActionTableRead)).Get("/tables/{id}", h.Get)
	r.With(middleware.RequirePermission(authz.ActionTableManage)).Post("/tables", h.Create)
	r.With(middleware.RequirePermission(authz.ActionTableManage)).Patch("/tables", h.ApplyAction)
}

// --- Request / Response types ---

type createTableRequest struct {
	Number   int32 `json:"number"`
	Capacity int32 `json:"capacity"`
}

type tableActionRequest struct {
	TableID string `json:"tableId"`
	Action  string `json:"action"`
}

type tableResponse struct {
	ID        uuid.UUID `json:"id"`
	Number    int32     `json:"number"`
	Capacity  int32     `json:"capacity"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type tableActionResponse struct {
	Table        tableResponse  `json:"table"`
	Order        *orderResponse `json:"order,omitempty"`
	ClosedOrders int64          `json:"closedOrders"`
}

// --- Handlers ---

// List handles GET /tables.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	actx, ok := actor(w, r)
	if !ok {
		return
	}

	tables, err := h.store.ListTables(r.Context(), actx.CompanyID())
	if err != nil {
		writeInternalError(w, r, "list tables", err)
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = dbTableToResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /tables/{id}. Tables of other companies are not found.
func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	actx, ok := actor(w, r)
	if !ok {
		return
	}

	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	table, err := h.store.GetTable(r.Context(), database.GetTableParams{ID: tableID, CompanyID: actx.CompanyID()})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		writeInternalError(w, r, "get table", err)
		return
	}
	writeJSON(w, http.StatusOK, dbTableToResponse(table))
}

// Create handles POST /tables.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	actx, ok := actor(w, r)
	if !ok {
		return
	}

	var req createTableRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	table, err := h.svc.CreateTable(r.Context(), service.CreateTableRequest{
		CompanyID: actx.CompanyID(),
		Number:    req.Number,
		Capacity:  req.Capacity,
	})
	if err != nil {
		writeServiceError(w, r, "create table", err)
		return
	}
	writeJSON(w, http.StatusCreated, dbTableToResponse(table))
}

// ApplyAction handles PATCH /tables.
func (h *TableHandler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	actx, ok := actor(w, r)
	if !ok {
		return
	}

	var req tableActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.ApplyAction(r.Context(), service.TableActionRequest{
		Actor:   actx,
		TableID: req.TableID,
		Action:  req.Action,
	})
	if err != nil {
		writeServiceError(w, r, "table action", err)
		return
	}

	resp := tableActionResponse{
		Table:        dbTableToResponse(result.Table),
		ClosedOrders: result.ClosedOrders,
	}
	if result.OpenedOrder != nil {
		o := dbOrderToResponse(*result.OpenedOrder)
		resp.Order = &o
	}
	writeJSON(w, http.StatusOK, resp)
}

func dbTableToResponse(t database.DiningTable) tableResponse {
	return tableResponse{
		ID:        t.ID,
		Number:    t.Number,
		Capacity:  t.Capacity,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
