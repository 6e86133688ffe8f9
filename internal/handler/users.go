package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/apex-pos/api/internal/authz"
	"github.com/apex-pos/api/internal/database"
	"github.com/apex-pos/api/internal/middleware"
	"github.com/apex-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// UserCreator is the service method needed to add staff.
type UserCreator interface {
	CreateUser(ctx context.Context, req service.CreateUserRequest) (database.User, error)
}

// UserStore defines the database methods needed by user handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	ListUsersByCompany(ctx context.Context, companyID uuid.UUID) ([]database.User, error)
}

// UserHandler handles the staff accounts of the caller's company.
type UserHandler struct {
	svc   UserCreator
	store UserStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc UserCreator, store UserStore) *UserHandler {
	return &UserHandler{svc: svc, store: store}
}

// RegisterRoutes registers user endpoints. Both require user.manage.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(authz.ActionUserManage)).Get("/users", h.List)
	r.With(middleware.RequirePermission(authz.ActionUserManage)).Post("/users", h.Create)
}

// --- Request / Response types ---

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type userDetailResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toUserDetailResponse(u database.User) userDetailResponse {
	return userDetailResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// --- Handlers ---

// List returns every user of the caller's company.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	actx, ok := actor(w, r)
	if !ok {
		return
	}

	users, err := h.store.ListUsersByCompany(r.Context(), actx.CompanyID())
	if err != nil {
		writeInternalError(w, r, "list users", err)
		return
	}

	resp := make([]userDetailResponse, len(users))
	for i, u := range users {
		resp[i] = toUserDetailResponse(u)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a user to the caller's company.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	actx, ok := actor(w, r)
	if !ok {
		return
	}

	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.svc.CreateUser(r.Context(), service.CreateUserRequest{
		CompanyID: actx.CompanyID(),
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
	})
	if err != nil {
		writeServiceError(w, r, "create user", err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserDetailResponse(user))
}
