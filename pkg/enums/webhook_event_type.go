package enums

import "fmt"

// WebhookEventType enumerates the domain events tenants can subscribe
// endpoints to. The set is closed; payload formatting switches exhaustively
// over it.
type WebhookEventType string

const (
	WebhookEventIncidentCreated    WebhookEventType = "INCIDENT_CREATED"
	WebhookEventIncidentUpdated    WebhookEventType = "INCIDENT_UPDATED"
	WebhookEventIncidentResolved   WebhookEventType = "INCIDENT_RESOLVED"
	WebhookEventIncidentClosed     WebhookEventType = "INCIDENT_CLOSED"
	WebhookEventIncidentAssigned   WebhookEventType = "INCIDENT_ASSIGNED"
	WebhookEventIncidentUnassigned WebhookEventType = "INCIDENT_UNASSIGNED"
	WebhookEventIncidentEscalated  WebhookEventType = "INCIDENT_ESCALATED"
	WebhookEventCommentAdded       WebhookEventType = "COMMENT_ADDED"
)

var validWebhookEventTypes = []WebhookEventType{
	WebhookEventIncidentCreated,
	WebhookEventIncidentUpdated,
	WebhookEventIncidentResolved,
	WebhookEventIncidentClosed,
	WebhookEventIncidentAssigned,
	WebhookEventIncidentUnassigned,
	WebhookEventIncidentEscalated,
	WebhookEventCommentAdded,
}

// WebhookEventTypes returns the closed set in declaration order.
func WebhookEventTypes() []WebhookEventType {
	out := make([]WebhookEventType, len(validWebhookEventTypes))
	copy(out, validWebhookEventTypes)
	return out
}

// IsValid checks whether the given type matches the canonical enum.
func (w WebhookEventType) IsValid() bool {
	for _, candidate := range validWebhookEventTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWebhookEventType converts raw strings into WebhookEventType.
func ParseWebhookEventType(value string) (WebhookEventType, error) {
	for _, candidate := range validWebhookEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid webhook event type %q", value)
}
