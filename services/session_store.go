// services/session_store.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"game-session-service/models"
)

var (
	ErrSessionNotFound         = errors.New("session not found")
	ErrSessionAlreadyCompleted = errors.New("session already completed")
)

// StoreErrorClass is the typed classification the lifecycle branches on.
type StoreErrorClass int

const (
	// StoreTransient covers every failure that is not a provisioning gap. Fatal for the request.
	StoreTransient StoreErrorClass = iota
	// StoreNotProvisioned means the durable schema is missing; the fallback store may serve.
	StoreNotProvisioned
)

func (c StoreErrorClass) String() string {
	if c == StoreNotProvisioned {
		return "not_provisioned"
	}
	return "transient"
}

// StoreError wraps a backend failure with its classification.
type StoreError struct {
	Class StoreErrorClass
	Op    string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("session store %s (%s): %v", e.Op, e.Class, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsNotProvisioned reports whether err carries the NotProvisioned classification.
func IsNotProvisioned(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Class == StoreNotProvisioned
}

// Completion is the terminal write applied to a started session.
type Completion struct {
	SessionID   string
	Score       int64
	DurationMs  int64
	CompleteIP  string
	CompletedAt time.Time
}

// SessionStore persists sessions and their rewards.
//
// CompleteSession must flip started→completed and insert the reward as one indivisible
// operation conditioned on the row still being started; it returns ErrSessionAlreadyCompleted
// to every caller but the first.
type SessionStore interface {
	CreateSession(ctx context.Context, s *models.GameSession) error
	GetSession(ctx context.Context, sessionID string) (*models.GameSession, error)
	CompleteSession(ctx context.Context, c Completion, reward *models.SessionReward) error
	// SaveReward inserts reward unless one exists for its session; reports whether it inserted.
	SaveReward(ctx context.Context, reward *models.SessionReward) (bool, error)
}
