// services/signature.go
package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// payloadDelimiter never appears in ids, nonces or decimal integers.
const payloadDelimiter = "|"

var ErrInvalidPayloadField = errors.New("payload field is empty or contains the delimiter")

// Signer issues and verifies HMAC-SHA256 signatures over canonical session payloads.
// A signature proves the tuple was vetted by the sign step; it says nothing about the caller.
type Signer struct {
	key []byte
}

func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("signing secret is required")
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &Signer{key: key}, nil
}

// BuildPayload returns the canonical "sessionId|score|durationMs|nonce" string.
func BuildPayload(sessionID string, score, durationMs int64, nonce string) (string, error) {
	for _, field := range []string{sessionID, nonce} {
		if field == "" || strings.Contains(field, payloadDelimiter) {
			return "", ErrInvalidPayloadField
		}
	}
	return strings.Join([]string{
		sessionID,
		strconv.FormatInt(score, 10),
		strconv.FormatInt(durationMs, 10),
		nonce,
	}, payloadDelimiter), nil
}

// Sign returns the hex HMAC of payload.
func (s *Signer) Sign(payload string) string {
	mac := hmac.New(sha256.New, s.key)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the HMAC of payload and compares it in constant time.
func (s *Signer) Verify(signature, payload string) bool {
	expected := s.Sign(payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
