package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/apex-pos/api/internal/authz"
	"github.com/apex-pos/api/internal/database"
	"github.com/apex-pos/api/internal/middleware"
	"github.com/apex-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	UpdateStatus(ctx context.Context, req service.UpdateStatusRequest) (database.Order, error)
	UpdateItemStatus(ctx context.Context, req service.UpdateItemStatusRequest) (database.OrderItem, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted behind Authenticate and Resolve.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(authz.ActionOrderCreate)).Post("/orders", h.Create)
	r.With(middleware.RequirePermission(authz.ActionOrderStatus)).Patch("/orders", h.UpdateStatus)
	r.With(middleware.RequirePermission(authz.ActionOrderItemStatus)).Patch("/orders/item-status", h.UpdateItemStatus)
	r.With(middleware.RequirePermission(authz.ActionOrderRead)).Get("/orders", h.List)
	r.With(middleware.RequirePermission(authz.ActionOrderRead)).Get("/orders/{id}", h.Get)
}

// --- Request / Response types ---

type createOrderRequest struct {
	TableID      string                   `json:"tableId"`
	Counter      bool                     `json:"counter"`
	CustomerName string                   `json:"customerName"`
	Items        []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID string          `json:"productId"`
	Quantity  int32           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Notes     string          `json:"notes"`
}

type updateStatusRequest struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

type updateItemStatusRequest struct {
	OrderItemID string `json:"orderItemId"`
	NewStatus   string `json:"newStatus"`
}

type orderResponse struct {
	ID           uuid.UUID           `json:"id"`
	TableID      *uuid.UUID          `json:"tableId"`
	CustomerName *string             `json:"customerName"`
	Status       string              `json:"status"`
	Total        float64             `json:"total"`
	CreatedBy    *uuid.UUID          `json:"createdBy"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
	Items        []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"orderId"`
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName,omitempty"`
	Category    string    `json:"category,omitempty"`
	Quantity    int32     `json:"quantity"`
	Price       float64   `json:"price"`
	Notes       string    `json:"notes"`
	Status      string    `json:"status"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	actx, ok := actor(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.CreateOrderItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Notes:     item.Notes,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		CompanyID:    actx.CompanyID(),
		CreatedBy:    actx.UserID,
		TableID:      req.TableID,
		Counter:      req.Counter,
		CustomerName: req.CustomerName,
		Items:        items,
	})
	if err != nil {
		writeServiceError(w, r, "create order", err)
		return
	}

	resp := dbOrderToResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, item := range result.Items {
		resp.Items[i] = dbOrderItemToResponse(item)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// UpdateStatus handles PATCH /orders.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actx, ok := actor(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.UpdateStatus(r.Context(), service.UpdateStatusRequest{
		Actor:   actx,
		OrderID: req.OrderID,
		Status:  req.Status,
	})
	if err != nil {
		writeServiceError(w, r, "update order status", err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// UpdateItemStatus handles PATCH /orders/item-status.
func (h *OrderHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	actx, ok := actor(w, r)
	if !ok {
		return
	}

	var req updateItemStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.UpdateItemStatus(r.Context(), service.UpdateItemStatusRequest{
		Actor:       actx,
		OrderItemID: req.OrderItemID,
		NewStatus:   req.NewStatus,
	})
	if err != nil {
		writeServiceError(w, r, "update item status", err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderItemToResponse(item))
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	actx, ok := actor(w, r)
	if !ok {
		return
	}

	// Parse pagination
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		CompanyID: actx.CompanyID(),
		Limit:     int32(limit),
		Offset:    int32(offset),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := database.OrderStatus(s)
		switch status {
		case database.OrderStatusOpen, database.OrderStatusPreparing, database.OrderStatusReady, database.OrderStatusClosed:
		default:
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		params.Status = database.NullOrderStatus{OrderStatus: status, Valid: true}
	}
	if s := r.URL.Query().Get("tableId"); s != "" {
		tid, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid tableId")
			return
		}
		params.TableID = pgtype.UUID{Bytes: tid, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		writeInternalError(w, r, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	actx, ok := actor(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: orderID, CompanyID: actx.CompanyID()})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeInternalError(w, r, "get order", err)
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), order.ID)
	if err != nil {
		writeInternalError(w, r, "list order items", err)
		return
	}

	resp := dbOrderToResponse(order)
	resp.Items = make([]orderItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = orderItemResponse{
			ID:          item.ID,
			OrderID:     item.OrderID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Category:    item.Category,
			Quantity:    item.Quantity,
			Price:       numericFloat(item.Price),
			Notes:       item.Notes,
			Status:      string(item.Status),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:           o.ID,
		CustomerName: textPtr(o.CustomerName),
		Status:       string(o.Status),
		Total:        numericFloat(o.Total),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	if o.TableID.Valid {
		tid := uuid.UUID(o.TableID.Bytes)
		resp.TableID = &tid
	}
	if o.CreatedBy.Valid {
		uid := uuid.UUID(o.CreatedBy.Bytes)
		resp.CreatedBy = &uid
	}
	return resp
}

func dbOrderItemToResponse(item database.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:        item.ID,
		OrderID:   item.OrderID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Price:     numericFloat(item.Price),
		Notes:     item.Notes,
		Status:    string(item.Status),
	}
}
