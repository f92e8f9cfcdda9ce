// handlers/requests.go
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"game-session-service/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	maxSlugLen      = 64
	maxVersionLen   = 32
	maxNonceLen     = 128
	maxSignatureLen = 128
)

type validatable interface {
	Validate() error
}

// decodeStrict parses the body into req, rejecting unknown fields, wrong types and trailing
// data, then runs the request's own validation.
func decodeStrict(c *fiber.Ctx, req validatable) error {
	dec := json.NewDecoder(bytes.NewReader(c.Body()))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		return services.ErrMalformedRequest("invalid request body: " + err.Error())
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return services.ErrMalformedRequest("invalid request body: trailing data")
	}
	if err := req.Validate(); err != nil {
		return services.ErrMalformedRequest(err.Error())
	}
	return nil
}

type StartRequest struct {
	GameSlug      string `json:"gameSlug"`
	ClientVersion string `json:"clientVersion,omitempty"`
}

func (r *StartRequest) Validate() error {
	if r.GameSlug == "" || len(r.GameSlug) > maxSlugLen {
		return fmt.Errorf("gameSlug is required (max %d chars)", maxSlugLen)
	}
	if len(r.ClientVersion) > maxVersionLen {
		return fmt.Errorf("clientVersion too long")
	}
	return nil
}

type SignRequest struct {
	SessionID     string `json:"sessionId"`
	Score         *int64 `json:"score"`
	DurationMs    *int64 `json:"durationMs"`
	Nonce         string `json:"nonce"`
	ClientVersion string `json:"clientVersion,omitempty"`
}

func (r *SignRequest) Validate() error {
	if err := validateTuple(r.SessionID, r.Score, r.DurationMs, r.Nonce); err != nil {
		return err
	}
	if len(r.ClientVersion) > maxVersionLen {
		return fmt.Errorf("clientVersion too long")
	}
	return nil
}

type CompleteRequest struct {
	SessionID  string `json:"sessionId"`
	Score      *int64 `json:"score"`
	DurationMs *int64 `json:"durationMs"`
	Nonce      string `json:"nonce"`
	Signature  string `json:"signature"`
}

func (r *CompleteRequest) Validate() error {
	if err := validateTuple(r.SessionID, r.Score, r.DurationMs, r.Nonce); err != nil {
		return err
	}
	if r.Signature == "" || len(r.Signature) > maxSignatureLen {
		return fmt.Errorf("signature is required")
	}
	return nil
}

func validateTuple(sessionID string, score, durationMs *int64, nonce string) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return fmt.Errorf("sessionId must be a UUID")
	}
	if score == nil {
		return fmt.Errorf("score is required")
	}
	if durationMs == nil {
		return fmt.Errorf("durationMs is required")
	}
	if nonce == "" || len(nonce) > maxNonceLen {
		return fmt.Errorf("nonce is required")
	}
	return nil
}
