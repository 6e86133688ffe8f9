package handler

import (
	"context"
	"net/http"

	"github.com/apex-pos/api/internal/authz"
	"github.com/apex-pos/api/internal/database"
	"github.com/apex-pos/api/internal/enum"
	"github.com/apex-pos/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ProductStore defines the database methods needed by product handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	ListProducts(ctx context.Context, companyID uuid.UUID) ([]database.Product, error)
}

// ProductHandler serves the menu used when taking orders.
type ProductHandler struct {
	store ProductStore
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(store ProductStore) *ProductHandler {
	return &ProductHandler{store: store}
}

// RegisterRoutes registers product endpoints on the given Chi router.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(authz.ActionOrderRead)).Get("/products", h.List)
}

type productResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Category        string    `json:"category"`
	Price           float64   `json:"price"`
	KitchenPrepared bool      `json:"kitchenPrepared"`
}

// List handles GET /products. Only active products of the caller's company
// are returned, grouped by category.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	actx, ok := actor(w, r)
	if !ok {
		return
	}

	products, err := h.store.ListProducts(r.Context(), actx.CompanyID())
	if err != nil {
		writeInternalError(w, r, "list products", err)
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = productResponse{
			ID:              p.ID,
			Name:            p.Name,
			Category:        p.Category,
			Price:           numericFloat(p.Price),
			KitchenPrepared: enum.IsKitchenPrepared(p.Category),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
