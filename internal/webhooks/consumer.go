package webhooks

import (
	"context"
	"encoding/json"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/opslog-io/opslog-backend/pkg/enums"
	pkgerrors "github.com/opslog-io/opslog-backend/pkg/errors"
	"github.com/opslog-io/opslog-backend/pkg/logger"
)

const (
	incidentEventConsumer = "incident-webhooks"
	idempotencyTTL        = 24 * time.Hour
)

// incidentEnvelope is the message body published by the incident services.
type incidentEnvelope struct {
	EventID    string          `json:"eventId"`
	TenantID   uuid.UUID       `json:"tenantId"`
	EventType  string          `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

type idempotencyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
}

type eventDispatcher interface {
	Dispatch(ctx context.Context, tenantID uuid.UUID, eventType enums.WebhookEventType, eventData map[string]any)
}

// Consumer watches the incident event subscription and feeds matching events
// into the dispatcher.
type Consumer struct {
	dispatcher   eventDispatcher
	subscription *pubsub.Subscriber
	store        idempotencyStore
	logg         *logger.Logger
}

// NewConsumer builds the incident event consumer.
func NewConsumer(dispatcher eventDispatcher, subscription *pubsub.Subscriber, store idempotencyStore, logg *logger.Logger) (*Consumer, error) {
	if dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dispatcher required")
	}
	if subscription == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "incident subscription required")
	}
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "idempotency store required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Consumer{
		dispatcher:   dispatcher,
		subscription: subscription,
		store:        store,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.ID, msg.Attributes, msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, messageID string, attributes map[string]string, data []byte) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": attributes["event_type"],
	})

	eventType, err := enums.ParseWebhookEventType(attributes["event_type"])
	if err != nil {
		c.logg.Info(logCtx, "skipping event outside the webhook set")
		return processResult{ack: true}
	}

	var envelope incidentEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	if envelope.TenantID == uuid.Nil {
		c.logg.Warn(logCtx, "envelope missing tenant id")
		return processResult{ack: true}
	}
	if _, err := uuid.Parse(envelope.EventID); err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	key := c.store.IdempotencyKey(incidentEventConsumer, envelope.EventID)
	fresh, err := c.store.SetNX(ctx, key, messageID, idempotencyTTL)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if !fresh {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var eventData map[string]any
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &eventData); err != nil {
			// Decode failures are permanent; redelivery would loop forever.
			c.logg.Error(logCtx, "failed to parse event data", err)
			return processResult{ack: true}
		}
	}

	logCtx = c.logg.WithTenantID(logCtx, envelope.TenantID.String())
	c.dispatcher.Dispatch(logCtx, envelope.TenantID, eventType, eventData)
	return processResult{ack: true}
}
