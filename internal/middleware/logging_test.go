package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/apex-pos/api/internal/logger"
	"github.com/apex-pos/api/internal/middleware"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("inside")
		w.WriteHeader(http.StatusTeapot)
	})
	handler := chimw.RequestID(middleware.RequestLogger(base)(inner))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/orders", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	for _, e := range entries {
		if id, _ := e.ContextMap()["request_id"].(string); id == "" {
			t.Errorf("%q: missing request_id", e.Message)
		}
	}
	last := entries[1]
	if last.Level != zapcore.WarnLevel {
		t.Errorf("4xx should log at warn, got %v", last.Level)
	}
	if last.ContextMap()["status"] != int64(http.StatusTeapot) {
		t.Errorf("status field: got %v", last.ContextMap()["status"])
	}
}
