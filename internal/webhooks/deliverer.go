package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opslog-io/opslog-backend/pkg/db/models"
	"github.com/opslog-io/opslog-backend/pkg/enums"
	pkgerrors "github.com/opslog-io/opslog-backend/pkg/errors"
	"github.com/opslog-io/opslog-backend/pkg/logger"
	"github.com/opslog-io/opslog-backend/pkg/metrics"
)

const (
	headerContentType = "Content-Type"
	headerEvent       = "X-Webhook-Event"
	headerSignature   = "X-Webhook-Signature"

	contentTypeJSON = "application/json"

	// maxResponseBodyBytes caps what we persist from endpoint responses.
	maxResponseBodyBytes = 64 * 1024

	defaultDeliveryTimeout  = 10 * time.Second
	defaultFailureThreshold = 5
)

// DelivererParams configure the delivery executor.
type DelivererParams struct {
	Repository Repository
	Logger     *logger.Logger
	Metrics    *metrics.WebhookMetrics
	HTTPClient *http.Client
	Timeout    time.Duration
	Threshold  int
}

// Deliverer makes one webhook delivery attempt at a time: build, sign, POST,
// record, update endpoint health. It never returns an error to the caller;
// failures are captured on the delivery record.
type Deliverer struct {
	repo      Repository
	logg      *logger.Logger
	metrics   *metrics.WebhookMetrics
	client    *http.Client
	timeout   time.Duration
	threshold int
	now       func() time.Time
}

// NewDeliverer wires the delivery executor.
func NewDeliverer(params DelivererParams) (*Deliverer, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "webhooks repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	threshold := params.Threshold
	if threshold <= 0 {
		threshold = defaultFailureThreshold
	}
	client := params.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Deliverer{
		repo:      params.Repository,
		logg:      params.Logger,
		metrics:   params.Metrics,
		client:    client,
		timeout:   timeout,
		threshold: threshold,
		now:       time.Now,
	}, nil
}

// Deliver runs one attempt against the endpoint and returns the persisted
// record. The record write always happens before the endpoint health update.
func (d *Deliverer) Deliver(ctx context.Context, endpoint *models.WebhookEndpoint, eventType enums.WebhookEventType, eventData map[string]any) *models.WebhookDelivery {
	start := d.now()
	logCtx := d.logg.WithEndpointID(ctx, endpoint.ID.String())
	logCtx = d.logg.WithEventType(logCtx, string(eventType))

	delivery := d.attempt(ctx, endpoint, eventType, eventData)

	if d.metrics != nil {
		d.metrics.ObserveDelivery(string(eventType), delivery.Success, d.now().Sub(start))
	}

	if err := d.repo.CreateDelivery(ctx, delivery); err != nil {
		d.logg.Error(logCtx, "failed to persist delivery record", err)
	}
	d.updateHealth(logCtx, endpoint, delivery)
	return delivery
}

// attempt performs the network call and classifies the outcome without
// touching storage.
func (d *Deliverer) attempt(ctx context.Context, endpoint *models.WebhookEndpoint, eventType enums.WebhookEventType, eventData map[string]any) *models.WebhookDelivery {
	now := d.now().UTC()
	payload := BuildPayload(eventType, eventData, endpoint.URL, now)

	delivery := &models.WebhookDelivery{
		EndpointID:  endpoint.ID,
		EventType:   eventType,
		DeliveredAt: now,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		delivery.Payload = json.RawMessage(`{}`)
		delivery.ErrorMessage = stringPtr(fmt.Sprintf("encode payload: %v", err))
		return delivery
	}
	delivery.Payload = body

	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint.URL, bytes.NewReader(body))
	if err != nil {
		delivery.ErrorMessage = stringPtr(err.Error())
		return delivery
	}
	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set(headerEvent, string(eventType))
	if signature := Sign(body, endpoint.Secret); signature != "" {
		req.Header.Set(headerSignature, signature)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		delivery.ErrorMessage = stringPtr(err.Error())
		return delivery
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if readErr == nil {
		delivery.ResponseBody = stringPtr(string(respBody))
	}
	delivery.ResponseStatus = intPtr(resp.StatusCode)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		delivery.Success = true
		return delivery
	}
	delivery.ErrorMessage = stringPtr(fmt.Sprintf("HTTP %d", resp.StatusCode))
	return delivery
}

func (d *Deliverer) updateHealth(ctx context.Context, endpoint *models.WebhookEndpoint, delivery *models.WebhookDelivery) {
	now := d.now().UTC()
	if delivery.Success {
		if err := d.repo.RecordSuccess(ctx, endpoint.ID, now); err != nil {
			d.logg.Error(ctx, "failed to record delivery success", err)
		}
		return
	}

	result, err := d.repo.RecordFailure(ctx, endpoint.ID, d.threshold, now)
	if err != nil {
		d.logg.Error(ctx, "failed to record delivery failure", err)
		return
	}
	if result.Disabled {
		if d.metrics != nil {
			d.metrics.IncAutoDisabled()
		}
		logCtx := d.logg.WithField(ctx, "failure_count", result.FailureCount)
		d.logg.Warn(logCtx, "endpoint auto-disabled after consecutive delivery failures")
	}
}

func stringPtr(value string) *string { return &value }

func intPtr(value int) *int { return &value }
