package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/apex-pos/api/internal/auth"
	"github.com/apex-pos/api/internal/authz"
	"github.com/apex-pos/api/internal/logger"
	"go.uber.org/zap"
)

type contextKey string

const (
	claimsKey      contextKey = "claims"
	authContextKey contextKey = "auth_context"
)

// ContextResolver turns validated claims into an authorization context.
// Satisfied by *authz.Resolver.
type ContextResolver interface {
	Resolve(ctx context.Context, claims *auth.Claims) (*authz.Context, error)
}

func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, parts[1])
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Resolve loads the caller's authorization context once per request. It must
// run after Authenticate. The request logger gains user and company fields.
func Resolve(resolver ContextResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
				return
			}

			actx, err := resolver.Resolve(r.Context(), claims)
			if err != nil {
				switch {
				case errors.Is(err, authz.ErrUnknownUser),
					errors.Is(err, authz.ErrNoCompany),
					errors.Is(err, authz.ErrCompanyMismatch):
					writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
				default:
					logger.FromContext(r.Context()).Error("resolve auth context",
						zap.String("user_id", claims.UserID.String()), zap.Error(err))
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				}
				return
			}

			log := logger.FromContext(r.Context()).With(
				zap.String("user_id", actx.UserID.String()),
				zap.String("company_id", actx.CompanyID().String()),
				zap.String("role", actx.Role),
			)
			ctx := context.WithValue(r.Context(), authContextKey, actx)
			ctx = logger.WithContext(ctx, log)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission rejects callers whose role does not grant action.
func RequirePermission(action authz.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actx := AuthContextFromContext(r.Context())
			if actx == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
				return
			}
			if !actx.Can(action) {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": authz.DenialMessage(actx.Role, action)})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

func AuthContextFromContext(ctx context.Context) *authz.Context {
	actx, _ := ctx.Value(authContextKey).(*authz.Context)
	return actx
}

// WithAuthContext stores actx in ctx; used by tests and tooling.
func WithAuthContext(ctx context.Context, actx *authz.Context) context.Context {
	return context.WithValue(ctx, authContextKey, actx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
