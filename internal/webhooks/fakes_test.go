package webhooks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opslog-io/opslog-backend/pkg/db/models"
	"github.com/opslog-io/opslog-backend/pkg/enums"
	"github.com/opslog-io/opslog-backend/pkg/pagination"
)

// fakeRepository is an in-memory Repository used by service, deliverer and
// dispatcher tests. Endpoint health updates follow the same rules as the SQL
// implementation.
type fakeRepository struct {
	mu         sync.Mutex
	endpoints  map[uuid.UUID]*models.WebhookEndpoint
	deliveries []models.WebhookDelivery

	createEndpointErr error
	createDeliveryErr error
	listErr           error
	statsErr          error

	deliveryOrder []string
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{endpoints: make(map[uuid.UUID]*models.WebhookEndpoint)}
}

func (f *fakeRepository) seed(endpoint models.WebhookEndpoint) *models.WebhookEndpoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	if endpoint.ID == uuid.Nil {
		endpoint.ID = uuid.New()
	}
	stored := endpoint
	f.endpoints[stored.ID] = &stored
	return &stored
}

func (f *fakeRepository) endpointByID(id uuid.UUID) models.WebhookEndpoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.endpoints[id]
}

func (f *fakeRepository) deliveryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deliveries)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) CreateEndpoint(ctx context.Context, endpoint *models.WebhookEndpoint) error {
	if f.createEndpointErr != nil {
		return f.createEndpointErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if endpoint.ID == uuid.Nil {
		endpoint.ID = uuid.New()
	}
	now := time.Now().UTC()
	endpoint.CreatedAt = now
	endpoint.UpdatedAt = now
	stored := *endpoint
	f.endpoints[endpoint.ID] = &stored
	return nil
}

// UpdateEndpoint copies configuration columns only, like the SQL
// implementation; health fields on the stored endpoint are left alone.
func (f *fakeRepository) UpdateEndpoint(ctx context.Context, endpoint *models.WebhookEndpoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.endpoints[endpoint.ID]
	if !ok {
		return nil
	}
	stored.Name = endpoint.Name
	stored.URL = endpoint.URL
	stored.Secret = endpoint.Secret
	stored.SubscribedEvents = endpoint.SubscribedEvents
	stored.UpdatedAt = endpoint.UpdatedAt
	return nil
}

func (f *fakeRepository) GetEndpoint(ctx context.Context, tenantID, endpointID uuid.UUID) (*models.WebhookEndpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	endpoint, ok := f.endpoints[endpointID]
	if !ok || endpoint.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *endpoint
	return &copied, nil
}

func (f *fakeRepository) ListEndpoints(ctx context.Context, tenantID uuid.UUID) ([]models.WebhookEndpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WebhookEndpoint
	for _, endpoint := range f.endpoints {
		if endpoint.TenantID == tenantID {
			out = append(out, *endpoint)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRepository) ListSubscribed(ctx context.Context, tenantID uuid.UUID, eventType enums.WebhookEventType) ([]models.WebhookEndpoint, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WebhookEndpoint
	for _, endpoint := range f.endpoints {
		if endpoint.TenantID == tenantID && endpoint.IsActive && subscribesTo(endpoint.SubscribedEvents, eventType) {
			out = append(out, *endpoint)
		}
	}
	return out, nil
}

func (f *fakeRepository) SetActive(ctx context.Context, tenantID, endpointID uuid.UUID, active bool, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	endpoint, ok := f.endpoints[endpointID]
	if !ok || endpoint.TenantID != tenantID {
		return false, nil
	}
	endpoint.IsActive = active
	if active {
		endpoint.FailureCount = 0
	}
	endpoint.UpdatedAt = now
	return true, nil
}

func (f *fakeRepository) DeleteEndpoint(ctx context.Context, tenantID, endpointID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	endpoint, ok := f.endpoints[endpointID]
	if !ok || endpoint.TenantID != tenantID {
		return false, nil
	}
	delete(f.endpoints, endpointID)
	return true, nil
}

func (f *fakeRepository) RecordSuccess(ctx context.Context, endpointID uuid.UUID, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveryOrder = append(f.deliveryOrder, "health")
	endpoint, ok := f.endpoints[endpointID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	endpoint.FailureCount = 0
	triggered := now
	endpoint.LastTriggeredAt = &triggered
	endpoint.UpdatedAt = now
	return nil
}

func (f *fakeRepository) RecordFailure(ctx context.Context, endpointID uuid.UUID, threshold int, now time.Time) (failureResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveryOrder = append(f.deliveryOrder, "health")
	endpoint, ok := f.endpoints[endpointID]
	if !ok {
		return failureResult{}, gorm.ErrRecordNotFound
	}
	endpoint.FailureCount++
	disabled := false
	if endpoint.FailureCount >= threshold && endpoint.IsActive {
		endpoint.IsActive = false
		disabled = endpoint.FailureCount == threshold
	}
	endpoint.UpdatedAt = now
	return failureResult{
		FailureCount: endpoint.FailureCount,
		Active:       endpoint.IsActive,
		Disabled:     disabled,
	}, nil
}

func (f *fakeRepository) CreateDelivery(ctx context.Context, delivery *models.WebhookDelivery) error {
	if f.createDeliveryErr != nil {
		return f.createDeliveryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveryOrder = append(f.deliveryOrder, "record")
	if delivery.ID == uuid.Nil {
		delivery.ID = uuid.New()
	}
	f.deliveries = append(f.deliveries, *delivery)
	return nil
}

func (f *fakeRepository) ListDeliveries(ctx context.Context, params listDeliveriesParams) ([]models.WebhookDelivery, *pagination.Cursor, error) {
	rows, err := f.RecentDeliveries(ctx, params.EndpointID, 0)
	if err != nil {
		return nil, nil, err
	}
	normalized := pagination.NormalizeLimit(params.Limit)
	if len(rows) > normalized {
		next := rows[normalized]
		return rows[:normalized], &pagination.Cursor{CreatedAt: next.DeliveredAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}

func (f *fakeRepository) RecentDeliveries(ctx context.Context, endpointID uuid.UUID, limit int) ([]models.WebhookDelivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WebhookDelivery
	for _, delivery := range f.deliveries {
		if delivery.EndpointID == endpointID {
			out = append(out, delivery)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeliveredAt.After(out[j].DeliveredAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepository) DeliveryStats(ctx context.Context, endpointID uuid.UUID) (deliveryStats, error) {
	if f.statsErr != nil {
		return deliveryStats{}, f.statsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var stats deliveryStats
	for _, delivery := range f.deliveries {
		if delivery.EndpointID != endpointID {
			continue
		}
		if delivery.Success {
			stats.Successes++
		} else {
			stats.Failures++
		}
	}
	return stats, nil
}

func (f *fakeRepository) DeleteDeliveriesOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.WebhookDelivery
	var deleted int64
	for _, delivery := range f.deliveries {
		if delivery.DeliveredAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, delivery)
	}
	f.deliveries = kept
	return deleted, nil
}
