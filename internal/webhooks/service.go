package webhooks

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/opslog-io/opslog-backend/pkg/db"
	"github.com/opslog-io/opslog-backend/pkg/db/models"
	"github.com/opslog-io/opslog-backend/pkg/enums"
	pkgerrors "github.com/opslog-io/opslog-backend/pkg/errors"
	"github.com/opslog-io/opslog-backend/pkg/pagination"
)

// Service defines webhook endpoint configuration and delivery inspection
// operations.
type Service interface {
	CreateEndpoint(ctx context.Context, params CreateEndpointParams) (*CreatedEndpoint, error)
	UpdateEndpoint(ctx context.Context, params UpdateEndpointParams) (*EndpointView, error)
	SetActive(ctx context.Context, tenantID, endpointID uuid.UUID, active bool) error
	DeleteEndpoint(ctx context.Context, tenantID, endpointID uuid.UUID) error
	GetEndpoint(ctx context.Context, tenantID, endpointID uuid.UUID) (*EndpointView, error)
	ListEndpoints(ctx context.Context, tenantID uuid.UUID) ([]EndpointView, error)
	TestDelivery(ctx context.Context, tenantID, endpointID uuid.UUID) (*DeliveryView, error)
	DeliveryHistory(ctx context.Context, params HistoryParams) (*HistoryResult, error)
	DeliveryStats(ctx context.Context, tenantID, endpointID uuid.UUID) (*Stats, error)
}

type service struct {
	repo Repository
	exec deliveryExecutor
	now  func() time.Time
}

// NewService wires webhook configuration dependencies. The deliverer backs
// the synchronous test-delivery path.
func NewService(repo Repository, exec deliveryExecutor) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "webhooks repository required")
	}
	if exec == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "deliverer required")
	}
	return &service{repo: repo, exec: exec, now: time.Now}, nil
}

func (s *service) CreateEndpoint(ctx context.Context, params CreateEndpointParams) (*CreatedEndpoint, error) {
	if params.TenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "endpoint name required")
	}
	if err := validateEndpointURL(params.URL); err != nil {
		return nil, err
	}
	events, err := normalizeEvents(params.SubscribedEvents)
	if err != nil {
		return nil, err
	}

	secret := params.Secret
	if secret == "" && params.GenerateSecret {
		secret, err = GenerateSecret()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate secret")
		}
	}

	endpoint := &models.WebhookEndpoint{
		TenantID:         params.TenantID,
		Name:             name,
		URL:              params.URL,
		Secret:           secret,
		SubscribedEvents: pq.StringArray(events),
		IsActive:         true,
	}
	if err := s.repo.CreateEndpoint(ctx, endpoint); err != nil {
		if db.IsUniqueViolation(err, "uq_webhook_endpoints_tenant_name") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "an endpoint with this name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create endpoint")
	}

	created := &CreatedEndpoint{EndpointView: newEndpointView(endpoint)}
	if params.GenerateSecret {
		created.Secret = secret
	}
	return created, nil
}

func (s *service) UpdateEndpoint(ctx context.Context, params UpdateEndpointParams) (*EndpointView, error) {
	if params.TenantID == uuid.Nil || params.EndpointID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and endpoint id required")
	}

	endpoint, err := s.loadEndpoint(ctx, params.TenantID, params.EndpointID)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "endpoint name required")
		}
		endpoint.Name = name
	}
	if params.URL != nil {
		if err := validateEndpointURL(*params.URL); err != nil {
			return nil, err
		}
		endpoint.URL = *params.URL
	}
	if params.Secret != nil {
		endpoint.Secret = *params.Secret
	}
	if params.SubscribedEvents != nil {
		events, err := normalizeEvents(params.SubscribedEvents)
		if err != nil {
			return nil, err
		}
		endpoint.SubscribedEvents = pq.StringArray(events)
	}
	endpoint.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateEndpoint(ctx, endpoint); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update endpoint")
	}
	view := newEndpointView(endpoint)
	return &view, nil
}

// SetActive flips the active flag. Reactivating a disabled endpoint resets
// its failure counter so it does not immediately trip the threshold again.
func (s *service) SetActive(ctx context.Context, tenantID, endpointID uuid.UUID, active bool) error {
	if tenantID == uuid.Nil || endpointID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id and endpoint id required")
	}
	found, err := s.repo.SetActive(ctx, tenantID, endpointID, active, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set endpoint active")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "endpoint not found")
	}
	return nil
}

func (s *service) DeleteEndpoint(ctx context.Context, tenantID, endpointID uuid.UUID) error {
	if tenantID == uuid.Nil || endpointID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id and endpoint id required")
	}
	found, err := s.repo.DeleteEndpoint(ctx, tenantID, endpointID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete endpoint")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "endpoint not found")
	}
	return nil
}

func (s *service) GetEndpoint(ctx context.Context, tenantID, endpointID uuid.UUID) (*EndpointView, error) {
	if tenantID == uuid.Nil || endpointID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and endpoint id required")
	}
	endpoint, err := s.loadEndpoint(ctx, tenantID, endpointID)
	if err != nil {
		return nil, err
	}
	view := newEndpointView(endpoint)
	return &view, nil
}

func (s *service) ListEndpoints(ctx context.Context, tenantID uuid.UUID) ([]EndpointView, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	endpoints, err := s.repo.ListEndpoints(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list endpoints")
	}
	views := make([]EndpointView, 0, len(endpoints))
	for i := range endpoints {
		views = append(views, newEndpointView(&endpoints[i]))
	}
	return views, nil
}

// TestDelivery sends a canned payload through the regular delivery path,
// synchronously, regardless of the endpoint's active flag or subscriptions.
func (s *service) TestDelivery(ctx context.Context, tenantID, endpointID uuid.UUID) (*DeliveryView, error) {
	if tenantID == uuid.Nil || endpointID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and endpoint id required")
	}
	endpoint, err := s.loadEndpoint(ctx, tenantID, endpointID)
	if err != nil {
		return nil, err
	}

	eventData := map[string]any{
		"test":        true,
		"id":          endpoint.ID.String(),
		"title":       "Test Incident",
		"severity":    string(enums.SeverityLow),
		"status":      "OPEN",
		"description": "Connectivity test delivery.",
	}
	delivery := s.exec.Deliver(ctx, endpoint, enums.WebhookEventIncidentCreated, eventData)
	view := newDeliveryView(delivery)
	return &view, nil
}

func (s *service) DeliveryHistory(ctx context.Context, params HistoryParams) (*HistoryResult, error) {
	if params.TenantID == uuid.Nil || params.EndpointID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and endpoint id required")
	}
	if _, err := s.loadEndpoint(ctx, params.TenantID, params.EndpointID); err != nil {
		return nil, err
	}

	query := listDeliveriesParams{
		EndpointID: params.EndpointID,
		Limit:      params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	deliveries, next, err := s.repo.ListDeliveries(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deliveries")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &HistoryResult{
		Items:  newDeliveryViews(deliveries),
		Cursor: cursor,
	}, nil
}

func (s *service) DeliveryStats(ctx context.Context, tenantID, endpointID uuid.UUID) (*Stats, error) {
	if tenantID == uuid.Nil || endpointID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and endpoint id required")
	}
	if _, err := s.loadEndpoint(ctx, tenantID, endpointID); err != nil {
		return nil, err
	}
	stats, err := s.repo.DeliveryStats(ctx, endpointID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delivery stats")
	}
	return &Stats{
		Successes: stats.Successes,
		Failures:  stats.Failures,
		Total:     stats.Total(),
	}, nil
}

func (s *service) loadEndpoint(ctx context.Context, tenantID, endpointID uuid.UUID) (*models.WebhookEndpoint, error) {
	endpoint, err := s.repo.GetEndpoint(ctx, tenantID, endpointID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "endpoint not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load endpoint")
	}
	return endpoint, nil
}

func validateEndpointURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid endpoint url")
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "endpoint url must be http or https")
	}
	return nil
}

func normalizeEvents(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one subscribed event required")
	}
	seen := make(map[string]struct{}, len(raw))
	events := make([]string, 0, len(raw))
	for _, value := range raw {
		eventType, err := enums.ParseWebhookEventType(value)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid subscribed event")
		}
		if _, ok := seen[string(eventType)]; ok {
			continue
		}
		seen[string(eventType)] = struct{}{}
		events = append(events, string(eventType))
	}
	return events, nil
}
