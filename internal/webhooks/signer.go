package webhooks

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	signaturePrefix = "sha256="
	secretPrefix    = "whsec_"
	secretBytes     = 32
)

// Sign computes the signature header value for the exact bytes that go on
// the wire. Callers must pass the serialized payload they transmit, not a
// re-marshaled copy. Returns "" when secret is empty.
func Sign(payload []byte, secret string) string {
	if secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature header against the payload
// bytes using a constant-time comparison.
func VerifySignature(payload []byte, secret, header string) bool {
	expected := Sign(payload, secret)
	if expected == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(header))
}

// GenerateSecret produces a new endpoint signing secret.
func GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate webhook secret: %w", err)
	}
	return secretPrefix + hex.EncodeToString(buf), nil
}
