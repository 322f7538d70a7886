package webhooks

import (
	"strings"
	"testing"
)

func TestSignMatchesKnownVector(t *testing.T) {
	got := Sign([]byte("payload"), "secret")
	want := "sha256=b82fcb791acec57859b989b430a826488ce2e479fdf92326bd0a2e8375a42ba4"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestSignIsDeterministic(t *testing.T) {
	payload := []byte(`{"hello":"world"}`)
	first := Sign(payload, "whsec_test")
	second := Sign(payload, "whsec_test")
	if first != second {
		t.Fatalf("expected identical signatures, got %s and %s", first, second)
	}
	if first != "sha256=07ea4d7892d3dc4bae220d9930afa38c458a997b2f716a0a6159e17798be1d28" {
		t.Fatalf("unexpected signature %s", first)
	}
}

func TestSignEmptySecretSkipsSigning(t *testing.T) {
	if got := Sign([]byte("payload"), ""); got != "" {
		t.Fatalf("expected empty signature, got %q", got)
	}
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"event":"INCIDENT_CREATED"}`)
	header := Sign(payload, "whsec_test")

	if !VerifySignature(payload, "whsec_test", header) {
		t.Fatal("expected signature to verify")
	}
	if VerifySignature(payload, "whsec_other", header) {
		t.Fatal("expected mismatch with different secret")
	}
	if VerifySignature([]byte("tampered"), "whsec_test", header) {
		t.Fatal("expected mismatch with tampered payload")
	}
	if VerifySignature(payload, "", header) {
		t.Fatal("expected verification to fail without a secret")
	}
}

func TestGenerateSecret(t *testing.T) {
	first, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	second, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	if !strings.HasPrefix(first, "whsec_") {
		t.Fatalf("expected whsec_ prefix, got %s", first)
	}
	if len(first) != len("whsec_")+2*secretBytes {
		t.Fatalf("unexpected secret length %d", len(first))
	}
	if first == second {
		t.Fatal("expected distinct secrets")
	}
}
