package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// WebhookEndpoint is a tenant's registered outbound webhook target. Health
// fields (FailureCount, IsActive, LastTriggeredAt) are mutated by every
// delivery attempt; the rest only changes through configuration calls.
type WebhookEndpoint struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenantId"`
	Name             string         `gorm:"type:text;not null" json:"name"`
	URL              string         `gorm:"type:text;not null" json:"url"`
	Secret           string         `gorm:"type:text" json:"-"`
	SubscribedEvents pq.StringArray `gorm:"type:text[];not null" json:"subscribedEvents"`
	IsActive         bool           `gorm:"not null;default:true" json:"isActive"`
	FailureCount     int            `gorm:"not null;default:0" json:"failureCount"`
	LastTriggeredAt  *time.Time     `gorm:"type:timestamptz" json:"lastTriggeredAt"`
	CreatedAt        time.Time      `gorm:"type:timestamptz;default:now()" json:"createdAt"`
	UpdatedAt        time.Time      `gorm:"type:timestamptz;default:now()" json:"updatedAt"`
}
