package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/apex-pos/api/internal/auth"
	"github.com/apex-pos/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetUserByEmail(ctx context.Context, email string) (database.User, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store     AuthStore
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, jwtSecret string) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret}
}

// RegisterRoutes registers public auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
}

// RegisterProtectedRoutes registers endpoints that need a resolved context.
func (h *AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/user-context", h.UserContext)
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string       `json:"accessToken"`
	User        userResponse `json:"user"`
}

type userResponse struct {
	ID        uuid.UUID  `json:"id"`
	CompanyID *uuid.UUID `json:"companyId"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
}

// --- Handlers ---

// Login handles email + password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeInternalError(w, r, "get user by email", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	var companyID uuid.UUID
	resp := tokenResponse{
		User: userResponse{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  user.Role,
		},
	}
	if user.CompanyID.Valid {
		companyID = uuid.UUID(user.CompanyID.Bytes)
		resp.User.CompanyID = &companyID
	}

	token, err := auth.GenerateToken(h.jwtSecret, user.ID, companyID, user.Role)
	if err != nil {
		writeInternalError(w, r, "generate token", err)
		return
	}
	resp.AccessToken = token

	writeJSON(w, http.StatusOK, resp)
}

// UserContext handles GET /user-context.
func (h *AuthHandler) UserContext(w http.ResponseWriter, r *http.Request) {
	actx, ok := actor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, actx)
}
