package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/apex-pos/api/internal/auth"
	"github.com/apex-pos/api/internal/authz"
	"github.com/apex-pos/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const testJWTSecret = "test-secret-for-handlers"

// claimsResolver trusts the token role, standing in for the DB lookup.
type claimsResolver struct{}

func (claimsResolver) Resolve(_ context.Context, claims *auth.Claims) (*authz.Context, error) {
	return authz.NewContext(authz.DefaultPermissions(), claims.UserID, claims.CompanyID, "Maria", claims.Role), nil
}

type caller struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
	Role      string
}

func newCaller(role string) caller {
	return caller{UserID: uuid.New(), CompanyID: uuid.New(), Role: role}
}

// newAuthedRouter mounts register behind the same auth chain as the server.
func newAuthedRouter(register func(chi.Router)) *chi.Mux {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		r.Use(middleware.Resolve(claimsResolver{}))
		register(r)
	})
	return r
}

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, c caller) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateToken(testJWTSecret, c.UserID, c.CompanyID, c.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = httptest.NewRequest(method, path, nil)
	case string:
		req = httptest.NewRequest(method, path, bytes.NewBufferString(b))
		req.Header.Set("Content-Type", "application/json")
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}

func assertError(t *testing.T, rr *httptest.ResponseRecorder, want string) {
	t.Helper()
	resp := decodeMap(t, rr)
	if resp["error"] != want {
		t.Errorf("error: got %v, want %q", resp["error"], want)
	}
}
