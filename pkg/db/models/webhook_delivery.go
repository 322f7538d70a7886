package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/opslog-io/opslog-backend/pkg/enums"
)

// WebhookDelivery is the append-only audit row for one delivery attempt.
// Payload holds the exact bytes POSTed to the endpoint; ResponseStatus is nil
// when the attempt failed before an HTTP response arrived.
type WebhookDelivery struct {
	ID             uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EndpointID     uuid.UUID              `gorm:"type:uuid;not null;index:idx_webhook_deliveries_endpoint_time,priority:1" json:"endpointId"`
	EventType      enums.WebhookEventType `gorm:"type:text;not null" json:"eventType"`
	Payload        json.RawMessage        `gorm:"type:jsonb;not null" json:"payload"`
	ResponseStatus *int                   `gorm:"column:response_status" json:"responseStatus"`
	ResponseBody   *string                `gorm:"type:text" json:"responseBody"`
	Success        bool                   `gorm:"not null" json:"success"`
	ErrorMessage   *string                `gorm:"type:text" json:"errorMessage"`
	DeliveredAt    time.Time              `gorm:"type:timestamptz;default:now();index:idx_webhook_deliveries_endpoint_time,priority:2,sort:desc" json:"deliveredAt"`
}
