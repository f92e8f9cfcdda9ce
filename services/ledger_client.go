// services/ledger_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"game-session-service/utils"
)

// LedgerCredit is one idempotent credit request to the wallet/ledger service.
type LedgerCredit struct {
	UserID         string `json:"user_id"`
	Source         string `json:"source"`
	IdempotencyKey string `json:"idempotency_key"`
	Amount         int64  `json:"amount"`
	XP             int64  `json:"xp"`
}

// Ledger credits rewards to the external wallet. Repeating a credit with the same
// idempotency key must be a no-op on the ledger side.
type Ledger interface {
	Credit(ctx context.Context, credit LedgerCredit) error
}

type LedgerClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewLedgerClient(baseURL, token string) *LedgerClient {
	return &LedgerClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  utils.HTTPClient,
	}
}

// Credit calls POST /ledger/credits on the wallet service
func (c *LedgerClient) Credit(ctx context.Context, credit LedgerCredit) error {
	url := fmt.Sprintf("%s/ledger/credits", c.BaseURL)

	jsonData, err := json.Marshal(credit)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Idempotency-Key", credit.IdempotencyKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("ledger request failed: %w", err)
	}
	defer resp.Body.Close()

	// 409 means the ledger already holds this idempotency key
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusConflict {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	log.Printf("Ledger /ledger/credits returned %d: %s", resp.StatusCode, string(body))
	return fmt.Errorf("ledger credit failed: %d", resp.StatusCode)
}
