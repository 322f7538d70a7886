package webhooks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opslog-io/opslog-backend/pkg/db/models"
	"github.com/opslog-io/opslog-backend/pkg/enums"
	"github.com/opslog-io/opslog-backend/pkg/pagination"
)

// Repository exposes persistence helpers for webhook endpoints and their
// delivery records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateEndpoint(ctx context.Context, endpoint *models.WebhookEndpoint) error
	UpdateEndpoint(ctx context.Context, endpoint *models.WebhookEndpoint) error
	GetEndpoint(ctx context.Context, tenantID, endpointID uuid.UUID) (*models.WebhookEndpoint, error)
	ListEndpoints(ctx context.Context, tenantID uuid.UUID) ([]models.WebhookEndpoint, error)
	ListSubscribed(ctx context.Context, tenantID uuid.UUID, eventType enums.WebhookEventType) ([]models.WebhookEndpoint, error)
	SetActive(ctx context.Context, tenantID, endpointID uuid.UUID, active bool, now time.Time) (bool, error)
	DeleteEndpoint(ctx context.Context, tenantID, endpointID uuid.UUID) (bool, error)

	RecordSuccess(ctx context.Context, endpointID uuid.UUID, now time.Time) error
	RecordFailure(ctx context.Context, endpointID uuid.UUID, threshold int, now time.Time) (failureResult, error)

	CreateDelivery(ctx context.Context, delivery *models.WebhookDelivery) error
	ListDeliveries(ctx context.Context, params listDeliveriesParams) ([]models.WebhookDelivery, *pagination.Cursor, error)
	RecentDeliveries(ctx context.Context, endpointID uuid.UUID, limit int) ([]models.WebhookDelivery, error)
	DeliveryStats(ctx context.Context, endpointID uuid.UUID) (deliveryStats, error)
	DeleteDeliveriesOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a webhooks repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listDeliveriesParams struct {
	EndpointID uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
}

// failureResult reports the endpoint health after one failed attempt.
// Disabled is true only on the attempt that crossed the threshold.
type failureResult struct {
	FailureCount int
	Active       bool
	Disabled     bool
}

type deliveryStats struct {
	Successes int64
	Failures  int64
}

func (s deliveryStats) Total() int64 { return s.Successes + s.Failures }

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateEndpoint(ctx context.Context, endpoint *models.WebhookEndpoint) error {
	return r.db.WithContext(ctx).Create(endpoint).Error
}

// UpdateEndpoint writes configuration columns only. Health columns belong to
// RecordSuccess and RecordFailure, so a configuration update carrying a stale
// read can never clobber a concurrent delivery's counter update.
func (r *repositoryImpl) UpdateEndpoint(ctx context.Context, endpoint *models.WebhookEndpoint) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookEndpoint{}).
		Where("id = ?", endpoint.ID).
		Select("name", "url", "secret", "subscribed_events", "updated_at").
		Updates(endpoint).Error
}

func (r *repositoryImpl) GetEndpoint(ctx context.Context, tenantID, endpointID uuid.UUID) (*models.WebhookEndpoint, error) {
	var endpoint models.WebhookEndpoint
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", endpointID, tenantID).
		First(&endpoint).Error
	if err != nil {
		return nil, err
	}
	return &endpoint, nil
}

func (r *repositoryImpl) ListEndpoints(ctx context.Context, tenantID uuid.UUID) ([]models.WebhookEndpoint, error) {
	var endpoints []models.WebhookEndpoint
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC, id ASC").
		Find(&endpoints).Error
	return endpoints, err
}

// ListSubscribed loads the active endpoints for a tenant and filters the
// subscription list in memory. Tenants hold a handful of endpoints, so a
// text[] containment index buys nothing here.
func (r *repositoryImpl) ListSubscribed(ctx context.Context, tenantID uuid.UUID, eventType enums.WebhookEventType) ([]models.WebhookEndpoint, error) {
	var endpoints []models.WebhookEndpoint
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Find(&endpoints).Error
	if err != nil {
		return nil, err
	}
	matched := endpoints[:0]
	for _, endpoint := range endpoints {
		if subscribesTo(endpoint.SubscribedEvents, eventType) {
			matched = append(matched, endpoint)
		}
	}
	return matched, nil
}

func subscribesTo(events []string, eventType enums.WebhookEventType) bool {
	for _, event := range events {
		if event == string(eventType) {
			return true
		}
	}
	return false
}

func (r *repositoryImpl) SetActive(ctx context.Context, tenantID, endpointID uuid.UUID, active bool, now time.Time) (bool, error) {
	updates := map[string]any{
		"is_active":  active,
		"updated_at": now,
	}
	if active {
		updates["failure_count"] = 0
	}
	result := r.db.WithContext(ctx).
		Model(&models.WebhookEndpoint{}).
		Where("id = ? AND tenant_id = ?", endpointID, tenantID).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) DeleteEndpoint(ctx context.Context, tenantID, endpointID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", endpointID, tenantID).
		Delete(&models.WebhookEndpoint{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RecordSuccess resets the failure counter and stamps the last trigger time.
func (r *repositoryImpl) RecordSuccess(ctx context.Context, endpointID uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookEndpoint{}).
		Where("id = ?", endpointID).
		Updates(map[string]any{
			"failure_count":     0,
			"last_triggered_at": now,
			"updated_at":        now,
		}).Error
}

// RecordFailure increments the failure counter in a single UPDATE so that
// concurrent attempts against the same endpoint never lose increments. The
// RETURNING clause reads this statement's own post-increment state rather
// than whatever later attempts may have written by the time a re-read runs.
// The disable flip is a separate guarded UPDATE whose affected-row count
// identifies the one attempt that crossed the threshold, so the auto-disable
// signal fires exactly once and never for an endpoint that was already
// switched off by hand.
func (r *repositoryImpl) RecordFailure(ctx context.Context, endpointID uuid.UUID, threshold int, now time.Time) (failureResult, error) {
	var state struct {
		FailureCount int
		IsActive     bool
	}
	err := r.db.WithContext(ctx).Raw(
		`UPDATE webhook_endpoints
		 SET failure_count = failure_count + 1,
		     updated_at = ?
		 WHERE id = ?
		 RETURNING failure_count, is_active`,
		now, endpointID,
	).Scan(&state).Error
	if err != nil {
		return failureResult{}, err
	}

	disabled := false
	if state.IsActive && state.FailureCount >= threshold {
		flip := r.db.WithContext(ctx).Exec(
			`UPDATE webhook_endpoints
			 SET is_active = ?, updated_at = ?
			 WHERE id = ? AND is_active = ? AND failure_count >= ?`,
			false, now, endpointID, true, threshold,
		)
		if flip.Error != nil {
			return failureResult{}, flip.Error
		}
		disabled = flip.RowsAffected == 1
	}

	return failureResult{
		FailureCount: state.FailureCount,
		Active:       state.IsActive && !disabled,
		Disabled:     disabled,
	}, nil
}

func (r *repositoryImpl) CreateDelivery(ctx context.Context, delivery *models.WebhookDelivery) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

func (r *repositoryImpl) ListDeliveries(ctx context.Context, params listDeliveriesParams) ([]models.WebhookDelivery, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.WebhookDelivery{}).
		Where("endpoint_id = ?", params.EndpointID)
	if params.Cursor != nil {
		query = query.Where("(delivered_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var deliveries []models.WebhookDelivery
	if err := query.Order("delivered_at DESC, id DESC").Limit(limit).Find(&deliveries).Error; err != nil {
		return nil, nil, err
	}

	if len(deliveries) > normalized {
		next := deliveries[normalized]
		deliveries = deliveries[:normalized]
		return deliveries, &pagination.Cursor{CreatedAt: next.DeliveredAt, ID: next.ID}, nil
	}
	return deliveries, nil, nil
}

func (r *repositoryImpl) RecentDeliveries(ctx context.Context, endpointID uuid.UUID, limit int) ([]models.WebhookDelivery, error) {
	var deliveries []models.WebhookDelivery
	err := r.db.WithContext(ctx).
		Where("endpoint_id = ?", endpointID).
		Order("delivered_at DESC, id DESC").
		Limit(limit).
		Find(&deliveries).Error
	return deliveries, err
}

func (r *repositoryImpl) DeliveryStats(ctx context.Context, endpointID uuid.UUID) (deliveryStats, error) {
	var stats deliveryStats
	err := r.db.WithContext(ctx).
		Model(&models.WebhookDelivery{}).
		Select(
			"COUNT(*) FILTER (WHERE success) AS successes, COUNT(*) FILTER (WHERE NOT success) AS failures",
		).
		Where("endpoint_id = ?", endpointID).
		Scan(&stats).Error
	return stats, err
}

func (r *repositoryImpl) DeleteDeliveriesOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	result := db.WithContext(ctx).
		Where("delivered_at < ?", cutoff).
		Delete(&models.WebhookDelivery{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
