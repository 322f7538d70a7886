package webhooks

import (
	"strings"
	"testing"
	"time"

	"github.com/opslog-io/opslog-backend/pkg/enums"
)

var payloadNow = time.Date(2026, 2, 3, 10, 30, 0, 0, time.UTC)

func TestBuildPayloadGenericEnvelope(t *testing.T) {
	data := map[string]any{"title": "DB down", "severity": "HIGH"}
	payload := BuildPayload(enums.WebhookEventIncidentUpdated, data, "https://example.com/hooks/incidents", payloadNow)

	if payload["event"] != "INCIDENT_UPDATED" {
		t.Fatalf("expected event INCIDENT_UPDATED, got %v", payload["event"])
	}
	if payload["timestamp"] != "2026-02-03T10:30:00Z" {
		t.Fatalf("unexpected timestamp %v", payload["timestamp"])
	}
	nested, ok := payload["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data map, got %T", payload["data"])
	}
	if nested["title"] != "DB down" {
		t.Fatalf("expected event data passed through, got %v", nested)
	}
	if _, hasText := payload["text"]; hasText {
		t.Fatal("generic envelope must not carry a text field")
	}
}

func TestBuildPayloadSlackCriticalIncident(t *testing.T) {
	data := map[string]any{"title": "DB down", "severity": "CRITICAL", "status": "OPEN"}
	payload := BuildPayload(enums.WebhookEventIncidentCreated, data, "https://hooks.slack.com/services/T0/B0/xyz", payloadNow)

	text, ok := payload["text"].(string)
	if !ok {
		t.Fatalf("expected text field, got %v", payload)
	}
	for _, fragment := range []string{"\U0001F6A8", "*Incident Created*", "DB down", "\U0001F534", "CRITICAL", "OPEN"} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("expected text to contain %q:\n%s", fragment, text)
		}
	}
	if len(payload) != 1 {
		t.Fatalf("slack payload must be text-only, got %v", payload)
	}
}

func TestBuildPayloadSlackFallbacks(t *testing.T) {
	payload := BuildPayload(enums.WebhookEventIncidentResolved, map[string]any{}, "https://hooks.slack.com/services/T0/B0/xyz", payloadNow)

	text := payload["text"].(string)
	if !strings.Contains(text, "Unknown Incident") {
		t.Fatalf("expected title fallback:\n%s", text)
	}
	if !strings.Contains(text, "UNKNOWN") {
		t.Fatalf("expected severity fallback:\n%s", text)
	}
	if !strings.Contains(text, "\u26AA") {
		t.Fatalf("expected white circle for unknown severity:\n%s", text)
	}
	if strings.Contains(text, "*Description:*") {
		t.Fatalf("blank description must be omitted:\n%s", text)
	}
	if strings.Contains(text, "*ID:*") {
		t.Fatalf("blank id must be omitted:\n%s", text)
	}
}

func TestBuildPayloadSlackOptionalFields(t *testing.T) {
	data := map[string]any{
		"title":       "Checkout latency",
		"severity":    "LOW",
		"status":      "RESOLVED",
		"description": "p99 back under 400ms",
		"id":          "inc-42",
	}
	payload := BuildPayload(enums.WebhookEventIncidentResolved, data, "https://hooks.slack.com/services/T0/B0/xyz", payloadNow)

	text := payload["text"].(string)
	for _, fragment := range []string{"*Description:* p99 back under 400ms", "*ID:* inc-42", "\U0001F7E2", "_2026-02-03T10:30:00Z_"} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("expected text to contain %q:\n%s", fragment, text)
		}
	}
}

func TestEventDisplayTableIsTotal(t *testing.T) {
	for _, eventType := range enums.WebhookEventTypes() {
		display, ok := eventDisplayTable[eventType]
		if !ok {
			t.Fatalf("missing display entry for %s", eventType)
		}
		if display.emoji == "" || display.label == "" {
			t.Fatalf("incomplete display entry for %s", eventType)
		}
	}
	if len(eventDisplayTable) != len(enums.WebhookEventTypes()) {
		t.Fatalf("display table has %d entries, want %d", len(eventDisplayTable), len(enums.WebhookEventTypes()))
	}
}

func TestSeverityEmojiMapping(t *testing.T) {
	cases := map[string]string{
		"CRITICAL": "\U0001F534",
		"HIGH":     "\U0001F7E0",
		"MEDIUM":   "\U0001F7E1",
		"LOW":      "\U0001F7E2",
		"bogus":    "\u26AA",
	}
	for severity, want := range cases {
		if got := emojiForSeverity(severity); got != want {
			t.Fatalf("severity %s: expected %s, got %s", severity, want, got)
		}
	}
}
