package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func capture(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logg := New(Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: buf})
	return logg, buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	if err := json.Unmarshal(lines[len(lines)-1], &entry); err != nil {
		t.Fatalf("invalid log line %q: %v", lines[len(lines)-1], err)
	}
	return entry
}

func TestContextFieldsPropagate(t *testing.T) {
	logg, buf := capture(t)

	ctx := logg.WithTenantID(context.Background(), "tenant-1")
	ctx = logg.WithEndpointID(ctx, "endpoint-9")
	logg.Info(ctx, "delivery scheduled")

	entry := lastLine(t, buf)
	if entry["tenant_id"] != "tenant-1" {
		t.Fatalf("missing tenant_id: %v", entry)
	}
	if entry["endpoint_id"] != "endpoint-9" {
		t.Fatalf("missing endpoint_id: %v", entry)
	}
	if entry["service"] != "test" {
		t.Fatalf("missing service name: %v", entry)
	}
}

func TestErrorIncludesErrField(t *testing.T) {
	logg, buf := capture(t)
	logg.Error(context.Background(), "delivery failed", errors.New("HTTP 500"))

	entry := lastLine(t, buf)
	if entry["error"] != "HTTP 500" {
		t.Fatalf("expected error field, got %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != zerolog.DebugLevel {
		t.Fatal("debug level not parsed")
	}
	if ParseLevel("") != zerolog.InfoLevel {
		t.Fatal("empty level should default to info")
	}
	if ParseLevel("bogus") != zerolog.InfoLevel {
		t.Fatal("invalid level should default to info")
	}
}
