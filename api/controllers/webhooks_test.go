package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opslog-io/opslog-backend/api/middleware"
	"github.com/opslog-io/opslog-backend/internal/webhooks"
	pkgerrors "github.com/opslog-io/opslog-backend/pkg/errors"
	"github.com/opslog-io/opslog-backend/pkg/logger"
)

type testWebhooksService struct {
	createFn       func(ctx context.Context, params webhooks.CreateEndpointParams) (*webhooks.CreatedEndpoint, error)
	updateFn       func(ctx context.Context, params webhooks.UpdateEndpointParams) (*webhooks.EndpointView, error)
	setActiveFn    func(ctx context.Context, tenantID, endpointID uuid.UUID, active bool) error
	deleteFn       func(ctx context.Context, tenantID, endpointID uuid.UUID) error
	getFn          func(ctx context.Context, tenantID, endpointID uuid.UUID) (*webhooks.EndpointView, error)
	listFn         func(ctx context.Context, tenantID uuid.UUID) ([]webhooks.EndpointView, error)
	testDeliveryFn func(ctx context.Context, tenantID, endpointID uuid.UUID) (*webhooks.DeliveryView, error)
	historyFn      func(ctx context.Context, params webhooks.HistoryParams) (*webhooks.HistoryResult, error)
	statsFn        func(ctx context.Context, tenantID, endpointID uuid.UUID) (*webhooks.Stats, error)
}

func (s *testWebhooksService) CreateEndpoint(ctx context.Context, params webhooks.CreateEndpointParams) (*webhooks.CreatedEndpoint, error) {
	if s.createFn != nil {
		return s.createFn(ctx, params)
	}
	return &webhooks.CreatedEndpoint{}, nil
}

func (s *testWebhooksService) UpdateEndpoint(ctx context.Context, params webhooks.UpdateEndpointParams) (*webhooks.EndpointView, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, params)
	}
	return &webhooks.EndpointView{}, nil
}

func (s *testWebhooksService) SetActive(ctx context.Context, tenantID, endpointID uuid.UUID, active bool) error {
	if s.setActiveFn != nil {
		return s.setActiveFn(ctx, tenantID, endpointID, active)
	}
	return nil
}

func (s *testWebhooksService) DeleteEndpoint(ctx context.Context, tenantID, endpointID uuid.UUID) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, tenantID, endpointID)
	}
	return nil
}

func (s *testWebhooksService) GetEndpoint(ctx context.Context, tenantID, endpointID uuid.UUID) (*webhooks.EndpointView, error) {
	if s.getFn != nil {
		return s.getFn(ctx, tenantID, endpointID)
	}
	return &webhooks.EndpointView{}, nil
}

func (s *testWebhooksService) ListEndpoints(ctx context.Context, tenantID uuid.UUID) ([]webhooks.EndpointView, error) {
	if s.listFn != nil {
		return s.listFn(ctx, tenantID)
	}
	return nil, nil
}

func (s *testWebhooksService) TestDelivery(ctx context.Context, tenantID, endpointID uuid.UUID) (*webhooks.DeliveryView, error) {
	if s.testDeliveryFn != nil {
		return s.testDeliveryFn(ctx, tenantID, endpointID)
	}
	return &webhooks.DeliveryView{}, nil
}

func (s *testWebhooksService) DeliveryHistory(ctx context.Context, params webhooks.HistoryParams) (*webhooks.HistoryResult, error) {
	if s.historyFn != nil {
		return s.historyFn(ctx, params)
	}
	return &webhooks.HistoryResult{}, nil
}

func (s *testWebhooksService) DeliveryStats(ctx context.Context, tenantID, endpointID uuid.UUID) (*webhooks.Stats, error) {
	if s.statsFn != nil {
		return s.statsFn(ctx, tenantID, endpointID)
	}
	return &webhooks.Stats{}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func requestWithTenant(method, target string, body string, tenantID uuid.UUID, endpointID *uuid.UUID) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req = req.WithContext(middleware.WithTenantID(req.Context(), tenantID))
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("tenantID", tenantID.String())
	if endpointID != nil {
		routeCtx.URLParams.Add("endpointID", endpointID.String())
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCreateWebhookSuccess(t *testing.T) {
	tenantID := uuid.New()
	var gotParams webhooks.CreateEndpointParams
	svc := &testWebhooksService{
		createFn: func(ctx context.Context, params webhooks.CreateEndpointParams) (*webhooks.CreatedEndpoint, error) {
			gotParams = params
			return &webhooks.CreatedEndpoint{
				EndpointView: webhooks.EndpointView{ID: uuid.New(), TenantID: params.TenantID, Name: params.Name, HasSecret: true},
				Secret:       "whsec_abc",
			}, nil
		},
	}

	body := `{"name":"ops","url":"https://example.com/hook","generateSecret":true,"subscribedEvents":["INCIDENT_CREATED"]}`
	req := requestWithTenant(http.MethodPost, "/api/v1/tenants/"+tenantID.String()+"/webhooks", body, tenantID, nil)

	resp := httptest.NewRecorder()
	CreateWebhook(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if gotParams.TenantID != tenantID {
		t.Fatalf("unexpected tenant %s", gotParams.TenantID)
	}
	if !gotParams.GenerateSecret {
		t.Fatal("expected generateSecret forwarded")
	}
	var envelope struct {
		Data webhooks.CreatedEndpoint `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Secret != "whsec_abc" {
		t.Fatal("expected secret returned on create")
	}
}

func TestCreateWebhookRejectsInvalidBody(t *testing.T) {
	tenantID := uuid.New()
	svc := &testWebhooksService{}

	body := `{"url":"https://example.com/hook","subscribedEvents":["INCIDENT_CREATED"]}`
	req := requestWithTenant(http.MethodPost, "/api/v1/tenants/"+tenantID.String()+"/webhooks", body, tenantID, nil)

	resp := httptest.NewRecorder()
	CreateWebhook(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
}

func TestGetWebhookNotFound(t *testing.T) {
	tenantID := uuid.New()
	endpointID := uuid.New()
	svc := &testWebhooksService{
		getFn: func(ctx context.Context, tid, eid uuid.UUID) (*webhooks.EndpointView, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "endpoint not found")
		},
	}

	req := requestWithTenant(http.MethodGet, "/api/v1/tenants/"+tenantID.String()+"/webhooks/"+endpointID.String(), "", tenantID, &endpointID)

	resp := httptest.NewRecorder()
	GetWebhook(svc, testLogger())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
}

func TestGetWebhookRejectsBadEndpointID(t *testing.T) {
	tenantID := uuid.New()
	svc := &testWebhooksService{}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants/"+tenantID.String()+"/webhooks/not-a-uuid", nil)
	req = req.WithContext(middleware.WithTenantID(req.Context(), tenantID))
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("endpointID", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	resp := httptest.NewRecorder()
	GetWebhook(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestSetWebhookActive(t *testing.T) {
	tenantID := uuid.New()
	endpointID := uuid.New()
	var gotActive *bool
	svc := &testWebhooksService{
		setActiveFn: func(ctx context.Context, tid, eid uuid.UUID, active bool) error {
			gotActive = &active
			return nil
		},
	}

	req := requestWithTenant(http.MethodPut, "/api/v1/tenants/"+tenantID.String()+"/webhooks/"+endpointID.String()+"/active", `{"active":false}`, tenantID, &endpointID)

	resp := httptest.NewRecorder()
	SetWebhookActive(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if gotActive == nil || *gotActive {
		t.Fatal("expected deactivation forwarded")
	}
}

func TestSetWebhookActiveRequiresFlag(t *testing.T) {
	tenantID := uuid.New()
	endpointID := uuid.New()
	svc := &testWebhooksService{}

	req := requestWithTenant(http.MethodPut, "/api/v1/tenants/"+tenantID.String()+"/webhooks/"+endpointID.String()+"/active", `{}`, tenantID, &endpointID)

	resp := httptest.NewRecorder()
	SetWebhookActive(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestListWebhookDeliveriesParsesQuery(t *testing.T) {
	tenantID := uuid.New()
	endpointID := uuid.New()
	var gotParams webhooks.HistoryParams
	svc := &testWebhooksService{
		historyFn: func(ctx context.Context, params webhooks.HistoryParams) (*webhooks.HistoryResult, error) {
			gotParams = params
			return &webhooks.HistoryResult{}, nil
		},
	}

	target := "/api/v1/tenants/" + tenantID.String() + "/webhooks/" + endpointID.String() + "/deliveries?limit=10&cursor=abc"
	req := requestWithTenant(http.MethodGet, target, "", tenantID, &endpointID)

	resp := httptest.NewRecorder()
	ListWebhookDeliveries(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if gotParams.Limit != 10 || gotParams.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", gotParams)
	}
	if gotParams.EndpointID != endpointID {
		t.Fatalf("unexpected endpoint %s", gotParams.EndpointID)
	}
}

func TestListWebhookDeliveriesRejectsBadLimit(t *testing.T) {
	tenantID := uuid.New()
	endpointID := uuid.New()
	svc := &testWebhooksService{}

	target := "/api/v1/tenants/" + tenantID.String() + "/webhooks/" + endpointID.String() + "/deliveries?limit=zero"
	req := requestWithTenant(http.MethodGet, target, "", tenantID, &endpointID)

	resp := httptest.NewRecorder()
	ListWebhookDeliveries(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestWebhookStats(t *testing.T) {
	tenantID := uuid.New()
	endpointID := uuid.New()
	svc := &testWebhooksService{
		statsFn: func(ctx context.Context, tid, eid uuid.UUID) (*webhooks.Stats, error) {
			return &webhooks.Stats{Successes: 7, Failures: 3, Total: 10}, nil
		},
	}

	req := requestWithTenant(http.MethodGet, "/api/v1/tenants/"+tenantID.String()+"/webhooks/"+endpointID.String()+"/stats", "", tenantID, &endpointID)

	resp := httptest.NewRecorder()
	WebhookStats(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data webhooks.Stats `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Total != 10 {
		t.Fatalf("unexpected stats %+v", envelope.Data)
	}
}
