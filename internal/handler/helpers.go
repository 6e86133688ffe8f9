package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/apex-pos/api/internal/authz"
	"github.com/apex-pos/api/internal/logger"
	"github.com/apex-pos/api/internal/middleware"
	"github.com/apex-pos/api/internal/money"
	"github.com/apex-pos/api/internal/service"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode JSON response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeServiceError maps service errors to HTTP status codes. Anything
// unrecognised is logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrAlreadyClosed),
		errors.Is(err, service.ErrAmountMismatch),
		errors.Is(err, service.ErrInvalidPayment):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrPlanLimit):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrDuplicateSubmission):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		writeInternalError(w, r, op, err)
	}
}

func writeInternalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger.FromContext(r.Context()).Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// actor returns the caller's authorization context, answering 401 when the
// request did not pass through middleware.Resolve.
func actor(w http.ResponseWriter, r *http.Request) (*authz.Context, bool) {
	actx := middleware.AuthContextFromContext(r.Context())
	if actx == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return nil, false
	}
	return actx, true
}

func numericFloat(n pgtype.Numeric) float64 {
	return money.Float(money.FromNumeric(n))
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func isoTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
