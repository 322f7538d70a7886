package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opslog-io/opslog-backend/pkg/logger"
)

func newMiddlewareTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func requestWithRouteParam(key, value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestTenantContextResolvesTenant(t *testing.T) {
	tenantID := uuid.New()
	var resolved uuid.UUID
	handler := TenantContext(newMiddlewareTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved = TenantIDFromContext(r.Context())
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, requestWithRouteParam("tenantID", tenantID.String()))

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if resolved != tenantID {
		t.Fatalf("expected tenant %s, got %s", tenantID, resolved)
	}
}

func TestTenantContextRejectsInvalidID(t *testing.T) {
	called := false
	handler := TenantContext(newMiddlewareTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, requestWithRouteParam("tenantID", "not-a-uuid"))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if called {
		t.Fatal("handler should not run on invalid tenant id")
	}
}

func TestTenantIDFromContextDefaultsToNil(t *testing.T) {
	if got := TenantIDFromContext(context.Background()); got != uuid.Nil {
		t.Fatalf("expected uuid.Nil, got %s", got)
	}
}
