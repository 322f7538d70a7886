package webhooks

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/opslog-io/opslog-backend/pkg/db/models"
	"github.com/opslog-io/opslog-backend/pkg/enums"
)

// CreateEndpointParams carry a new endpoint registration. When Secret is
// empty and GenerateSecret is set, the service mints a signing secret and
// returns it once on the create response.
type CreateEndpointParams struct {
	TenantID         uuid.UUID
	Name             string
	URL              string
	Secret           string
	GenerateSecret   bool
	SubscribedEvents []string
}

// UpdateEndpointParams mutate endpoint configuration. Nil fields are left
// unchanged; an empty-string Secret clears signing.
type UpdateEndpointParams struct {
	TenantID         uuid.UUID
	EndpointID       uuid.UUID
	Name             *string
	URL              *string
	Secret           *string
	SubscribedEvents []string
}

// HistoryParams page through an endpoint's delivery records, newest first.
type HistoryParams struct {
	TenantID   uuid.UUID
	EndpointID uuid.UUID
	Limit      int
	Cursor     string
}

// EndpointView is the API shape of an endpoint. The signing secret is never
// echoed back; HasSecret tells the caller whether deliveries are signed.
type EndpointView struct {
	ID               uuid.UUID  `json:"id"`
	TenantID         uuid.UUID  `json:"tenantId"`
	Name             string     `json:"name"`
	URL              string     `json:"url"`
	HasSecret        bool       `json:"hasSecret"`
	SubscribedEvents []string   `json:"subscribedEvents"`
	IsActive         bool       `json:"isActive"`
	FailureCount     int        `json:"failureCount"`
	LastTriggeredAt  *time.Time `json:"lastTriggeredAt"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// CreatedEndpoint is the create response: the endpoint view plus the signing
// secret, returned exactly once.
type CreatedEndpoint struct {
	EndpointView
	Secret string `json:"secret,omitempty"`
}

// DeliveryView is the API shape of one delivery record.
type DeliveryView struct {
	ID             uuid.UUID              `json:"id"`
	EndpointID     uuid.UUID              `json:"endpointId"`
	EventType      enums.WebhookEventType `json:"eventType"`
	Payload        json.RawMessage        `json:"payload"`
	ResponseStatus *int                   `json:"responseStatus"`
	ResponseBody   *string                `json:"responseBody"`
	Success        bool                   `json:"success"`
	ErrorMessage   *string                `json:"errorMessage"`
	DeliveredAt    time.Time              `json:"deliveredAt"`
}

// HistoryResult wraps one page of deliveries and the cursor for the next.
type HistoryResult struct {
	Items  []DeliveryView `json:"items"`
	Cursor string         `json:"cursor"`
}

// Stats aggregates all historical delivery outcomes for one endpoint.
type Stats struct {
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
	Total     int64 `json:"total"`
}

func newEndpointView(endpoint *models.WebhookEndpoint) EndpointView {
	return EndpointView{
		ID:               endpoint.ID,
		TenantID:         endpoint.TenantID,
		Name:             endpoint.Name,
		URL:              endpoint.URL,
		HasSecret:        endpoint.Secret != "",
		SubscribedEvents: []string(endpoint.SubscribedEvents),
		IsActive:         endpoint.IsActive,
		FailureCount:     endpoint.FailureCount,
		LastTriggeredAt:  endpoint.LastTriggeredAt,
		CreatedAt:        endpoint.CreatedAt,
		UpdatedAt:        endpoint.UpdatedAt,
	}
}

func newDeliveryView(delivery *models.WebhookDelivery) DeliveryView {
	return DeliveryView{
		ID:             delivery.ID,
		EndpointID:     delivery.EndpointID,
		EventType:      delivery.EventType,
		Payload:        delivery.Payload,
		ResponseStatus: delivery.ResponseStatus,
		ResponseBody:   delivery.ResponseBody,
		Success:        delivery.Success,
		ErrorMessage:   delivery.ErrorMessage,
		DeliveredAt:    delivery.DeliveredAt,
	}
}

func newDeliveryViews(deliveries []models.WebhookDelivery) []DeliveryView {
	views := make([]DeliveryView, 0, len(deliveries))
	for i := range deliveries {
		views = append(views, newDeliveryView(&deliveries[i]))
	}
	return views
}
