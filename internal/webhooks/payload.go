package webhooks

import (
	"fmt"
	"strings"
	"time"

	"github.com/opslog-io/opslog-backend/pkg/enums"
)

const slackWebhookHost = "hooks.slack.com"

// eventDisplay pairs the emoji and human label shown in Slack messages.
// The table is total over enums.WebhookEventTypes; buildSlackPayload has no
// fallback branch.
type eventDisplay struct {
	emoji string
	label string
}

var eventDisplayTable = map[enums.WebhookEventType]eventDisplay{
	enums.WebhookEventIncidentCreated:    {emoji: "\U0001F6A8", label: "Incident Created"},
	enums.WebhookEventIncidentUpdated:    {emoji: "\U0001F504", label: "Incident Updated"},
	enums.WebhookEventIncidentResolved:   {emoji: "✅", label: "Incident Resolved"},
	enums.WebhookEventIncidentClosed:     {emoji: "\U0001F512", label: "Incident Closed"},
	enums.WebhookEventIncidentAssigned:   {emoji: "\U0001F464", label: "Incident Assigned"},
	enums.WebhookEventIncidentUnassigned: {emoji: "\U0001F464", label: "Incident Unassigned"},
	enums.WebhookEventIncidentEscalated:  {emoji: "⚠️", label: "Escalation Triggered"},
	enums.WebhookEventCommentAdded:       {emoji: "\U0001F4AC", label: "Comment Added"},
}

var severityEmoji = map[enums.IncidentSeverity]string{
	enums.SeverityCritical: "\U0001F534",
	enums.SeverityHigh:     "\U0001F7E0",
	enums.SeverityMedium:   "\U0001F7E1",
	enums.SeverityLow:      "\U0001F7E2",
}

const severityEmojiUnknown = "⚪"

const (
	fallbackTitle    = "Unknown Incident"
	fallbackSeverity = "UNKNOWN"
	fallbackStatus   = "UNKNOWN"
)

// BuildPayload renders the JSON object POSTed to destinationURL. Slack
// incoming-webhook URLs get a text-only message; everything else gets the
// generic event envelope.
func BuildPayload(eventType enums.WebhookEventType, eventData map[string]any, destinationURL string, now time.Time) map[string]any {
	if strings.Contains(destinationURL, slackWebhookHost) {
		return buildSlackPayload(eventType, eventData, now)
	}
	return map[string]any{
		"event":     string(eventType),
		"timestamp": now.UTC().Format(time.RFC3339),
		"data":      eventData,
	}
}

func buildSlackPayload(eventType enums.WebhookEventType, eventData map[string]any, now time.Time) map[string]any {
	display := eventDisplayTable[eventType]

	title := stringField(eventData, "title", fallbackTitle)
	severity := stringField(eventData, "severity", fallbackSeverity)
	status := stringField(eventData, "status", fallbackStatus)

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n\n", display.emoji, display.label)
	fmt.Fprintf(&b, "*Title:* %s\n", title)
	fmt.Fprintf(&b, "*Severity:* %s %s\n", emojiForSeverity(severity), severity)
	fmt.Fprintf(&b, "*Status:* %s\n", status)
	if description := stringField(eventData, "description", ""); description != "" {
		fmt.Fprintf(&b, "*Description:* %s\n", description)
	}
	if id := stringField(eventData, "id", ""); id != "" {
		fmt.Fprintf(&b, "*ID:* %s\n", id)
	}
	fmt.Fprintf(&b, "\n_%s_", now.UTC().Format(time.RFC3339))

	return map[string]any{"text": b.String()}
}

func emojiForSeverity(severity string) string {
	if emoji, ok := severityEmoji[enums.IncidentSeverity(severity)]; ok {
		return emoji
	}
	return severityEmojiUnknown
}

func stringField(data map[string]any, key, fallback string) string {
	raw, ok := data[key]
	if !ok {
		return fallback
	}
	value, ok := raw.(string)
	if !ok || value == "" {
		return fallback
	}
	return value
}
