// services/session_manager.go
package services

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"game-session-service/models"

	"github.com/google/uuid"
)

const (
	nonceBytes        = 32
	backgroundTimeout = 30 * time.Second
)

type StartInput struct {
	UserID        string
	GameSlug      string
	ClientVersion string
	IP            string
	DeviceID      string
}

type StartResult struct {
	SessionID string `json:"sessionId"`
	Nonce     string `json:"nonce"`
}

type SignInput struct {
	UserID        string
	SessionID     string
	Score         int64
	DurationMs    int64
	Nonce         string
	ClientVersion string
}

type SignResult struct {
	Signature string `json:"signature"`
	Payload   string `json:"payload"`
}

type CompleteInput struct {
	UserID     string
	SessionID  string
	Score      int64
	DurationMs int64
	Nonce      string
	Signature  string
	IP         string
}

// Crediter delivers persisted rewards downstream.
type Crediter interface {
	CreditDurable(ctx context.Context, r *models.SessionReward) error
	CreditFallback(ctx context.Context, r *models.SessionReward) error
}

// SessionManagerDeps wires the manager. Fallback, Events, Detector and Crediter are optional.
type SessionManagerDeps struct {
	Caps     *CapsResolver
	Signer   *Signer
	Durable  SessionStore
	Fallback SessionStore
	Events   AnomalyStore
	Detector *AnomalyDetector
	Crediter Crediter
}

// SessionManager orchestrates start → sign → complete.
type SessionManager struct {
	caps     *CapsResolver
	signer   *Signer
	durable  SessionStore
	fallback SessionStore
	events   AnomalyStore
	detector *AnomalyDetector
	crediter Crediter

	now        func() time.Time
	background sync.WaitGroup
}

func NewSessionManager(deps SessionManagerDeps) *SessionManager {
	return &SessionManager{
		caps:     deps.Caps,
		signer:   deps.Signer,
		durable:  deps.Durable,
		fallback: deps.Fallback,
		events:   deps.Events,
		detector: deps.Detector,
		crediter: deps.Crediter,
		now:      time.Now,
	}
}

// withStore runs fn against the durable store, and once more against the fallback store when
// the durable store reports NotProvisioned. Every other error is returned unchanged.
func (m *SessionManager) withStore(op string, fn func(SessionStore) error) (bool, error) {
	err := fn(m.durable)
	if err == nil || m.fallback == nil || !IsNotProvisioned(err) {
		return false, err
	}
	log.Printf("⚠️  [SESSION] durable store not provisioned during %s, serving from fallback: %v", op, err)
	return true, fn(m.fallback)
}

// resolveSession looks sessionID up in the durable store, or in the fallback store when the
// durable lookup reports NotProvisioned. The returned store serves the rest of the call.
func (m *SessionManager) resolveSession(ctx context.Context, op, sessionID string) (SessionStore, *models.GameSession, bool, error) {
	var (
		store   SessionStore
		session *models.GameSession
	)
	usedFallback, err := m.withStore(op, func(st SessionStore) error {
		var err error
		store = st
		session, err = st.GetSession(ctx, sessionID)
		return err
	})
	return store, session, usedFallback, err
}

func generateNonce() (string, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func nonceMatches(stored, given string) bool {
	return hmac.Equal([]byte(stored), []byte(given))
}

// Start opens a new session for an active game.
func (m *SessionManager) Start(ctx context.Context, in StartInput) (*StartResult, error) {
	if in.UserID == "" {
		return nil, ErrAuthenticationRequired()
	}

	game, err := m.caps.GameBySlug(ctx, in.GameSlug)
	if errors.Is(err, ErrGameNotFound) || (err == nil && !game.Active) {
		return nil, errNotFound(CodeGameNotFound, "game not found")
	}
	if err != nil {
		return nil, errServer("failed to load game", err)
	}

	nonce, err := generateNonce()
	if err != nil {
		return nil, errServer("failed to generate nonce", err)
	}

	session := &models.GameSession{
		ID:            uuid.NewString(),
		UserID:        in.UserID,
		GameID:        game.ID,
		Nonce:         nonce,
		Status:        models.SessionStatusStarted,
		ClientVersion: in.ClientVersion,
		StartedAt:     m.now().UTC(),
		StartIP:       in.IP,
		DeviceID:      in.DeviceID,
	}
	if _, err := m.withStore("start", func(st SessionStore) error {
		return st.CreateSession(ctx, session)
	}); err != nil {
		return nil, errServer("failed to create session", err)
	}

	m.recordEvent(ctx, session, models.SessionEventStart, in.IP)
	log.Printf("🎮 [SESSION] started session=%s user=%s game=%s", session.ID, session.UserID, game.Slug)

	return &StartResult{SessionID: session.ID, Nonce: nonce}, nil
}

// Sign validates a candidate result against the game's caps and returns a signature over it.
// Nothing is persisted.
func (m *SessionManager) Sign(ctx context.Context, in SignInput) (*SignResult, error) {
	if in.UserID == "" {
		return nil, ErrAuthenticationRequired()
	}

	_, session, _, err := m.resolveSession(ctx, "sign", in.SessionID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if session.UserID != in.UserID {
		return nil, errForbidden("session belongs to another user")
	}
	if session.Status != models.SessionStatusStarted {
		return nil, errConflict("session already completed")
	}
	if !nonceMatches(session.Nonce, in.Nonce) {
		return nil, errBadRequest(CodeBadRequest, "nonce mismatch")
	}

	game, err := m.caps.GameByID(ctx, session.GameID)
	if errors.Is(err, ErrGameNotFound) {
		return nil, errNotFound(CodeGameNotFound, "game not found")
	}
	if err != nil {
		return nil, errServer("failed to load game", err)
	}
	caps, err := m.caps.CapsForGame(ctx, game)
	if err != nil {
		return nil, errServer("failed to load game config", err)
	}

	clientVersion := in.ClientVersion
	if clientVersion == "" {
		clientVersion = session.ClientVersion
	}
	if verr := validateResult(caps, in.Score, in.DurationMs, clientVersion); verr != nil {
		return nil, verr
	}

	payload, err := BuildPayload(session.ID, in.Score, in.DurationMs, in.Nonce)
	if err != nil {
		return nil, errBadRequest(CodeBadRequest, err.Error())
	}
	return &SignResult{Signature: m.signer.Sign(payload), Payload: payload}, nil
}

// validateResult applies the caps in their fixed order.
func validateResult(caps *Caps, score, durationMs int64, clientVersion string) *ServiceError {
	if durationMs <= 0 || durationMs < caps.MinDurationMs || durationMs > caps.MaxDurationMs {
		return errBadRequest(CodeInvalidDuration,
			fmt.Sprintf("duration must be within [%d, %d] ms", caps.MinDurationMs, caps.MaxDurationMs))
	}
	if score < 0 || score > caps.MaxScore {
		return errBadRequest(CodeInvalidScore, fmt.Sprintf("score must be within [0, %d]", caps.MaxScore))
	}
	if ScorePerMinute(score, durationMs) > float64(caps.MaxScorePerMin) {
		return errBadRequest(CodeInvalidScoreRate,
			fmt.Sprintf("score rate exceeds %d per minute", caps.MaxScorePerMin))
	}
	if !CompareVersions(clientVersion, caps.MinClientVersion) {
		return errBadRequest(CodeClientOutdated,
			fmt.Sprintf("client version %q is below %s", clientVersion, caps.MinClientVersion))
	}
	return nil
}

type completion struct {
	session models.GameSession
	caps    Caps
	reward  *models.SessionReward
}

// Complete verifies the signed result and terminally completes the session exactly once.
func (m *SessionManager) Complete(ctx context.Context, in CompleteInput) (*Reward, error) {
	if in.UserID == "" {
		return nil, ErrAuthenticationRequired()
	}

	// Signature first: no store access, so the outcome does not depend on the session existing.
	payload, err := BuildPayload(in.SessionID, in.Score, in.DurationMs, in.Nonce)
	if err != nil || !m.signer.Verify(in.Signature, payload) {
		log.Printf("🚨 [SESSION] signature rejected session=%s user=%s ip=%s", in.SessionID, in.UserID, in.IP)
		return nil, errForbidden("invalid signature")
	}

	// The lookup picks the store; a NotProvisioned error after that point is fatal.
	st, session, usedFallback, err := m.resolveSession(ctx, "complete", in.SessionID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	done, err := m.completeWith(ctx, st, session, in)
	if err != nil {
		return nil, mapStoreError(err)
	}

	log.Printf("✅ [SESSION] completed session=%s user=%s score=%d xp=%d currency=%d fallback=%t",
		done.session.ID, done.session.UserID, done.session.Score, done.reward.XPDelta, done.reward.CurrencyDelta, usedFallback)

	m.afterCompletion(*done, usedFallback, in.IP)

	return &Reward{XPDelta: done.reward.XPDelta, CurrencyDelta: done.reward.CurrencyDelta}, nil
}

func (m *SessionManager) completeWith(ctx context.Context, st SessionStore, session *models.GameSession, in CompleteInput) (*completion, error) {
	if session.UserID != in.UserID {
		return nil, errForbidden("session belongs to another user")
	}
	if !nonceMatches(session.Nonce, in.Nonce) {
		return nil, errBadRequest(CodeBadRequest, "nonce mismatch")
	}
	if session.Status != models.SessionStatusStarted {
		return nil, errConflict("session already completed")
	}

	// Caps may have changed since sign; re-resolve the ceiling now.
	game, err := m.caps.GameByID(ctx, session.GameID)
	if errors.Is(err, ErrGameNotFound) {
		return nil, errNotFound(CodeNotFound, "game not found")
	}
	if err != nil {
		return nil, errServer("failed to load game", err)
	}
	if in.Score < 0 || in.Score > game.MaxScore {
		return nil, errBadRequest(CodeInvalidScore, fmt.Sprintf("score must be within [0, %d]", game.MaxScore))
	}
	caps, err := m.caps.CapsForGame(ctx, game)
	if err != nil {
		return nil, errServer("failed to load game config", err)
	}

	now := m.now().UTC()
	calc := CalculateReward(in.Score)
	reward := &models.SessionReward{
		ID:            uuid.NewString(),
		SessionID:     session.ID,
		UserID:        session.UserID,
		XPDelta:       calc.XPDelta,
		CurrencyDelta: calc.CurrencyDelta,
		InsertedAt:    now,
	}
	if err := st.CompleteSession(ctx, Completion{
		SessionID:   session.ID,
		Score:       in.Score,
		DurationMs:  in.DurationMs,
		CompleteIP:  in.IP,
		CompletedAt: now,
	}, reward); err != nil {
		return nil, err
	}

	session.Status = models.SessionStatusCompleted
	session.CompletedAt = &now
	session.Score = in.Score
	session.DurationMs = in.DurationMs
	session.CompleteIP = in.IP
	return &completion{session: *session, caps: *caps, reward: reward}, nil
}

// afterCompletion runs the best-effort follow-ups off the request path.
func (m *SessionManager) afterCompletion(done completion, usedFallback bool, ip string) {
	m.background.Add(1)
	go func() {
		defer m.background.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("❌ [SESSION] post-completion panic for session %s: %v", done.session.ID, r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		m.recordEvent(ctx, &done.session, models.SessionEventComplete, ip)
		if m.detector != nil {
			m.detector.Run(ctx, Inspection{Session: done.session, Caps: done.caps})
		}
		if m.crediter != nil {
			credit := m.crediter.CreditDurable
			if usedFallback {
				credit = m.crediter.CreditFallback
			}
			if err := credit(ctx, done.reward); err != nil {
				log.Printf("⚠️  [CREDIT] session %s not credited yet: %v", done.session.ID, err)
			}
		}
	}()
}

func (m *SessionManager) recordEvent(ctx context.Context, s *models.GameSession, kind models.SessionEventKind, ip string) {
	if m.events == nil {
		return
	}
	err := m.events.RecordEvent(ctx, &models.SessionEvent{
		SessionID: s.ID,
		UserID:    s.UserID,
		Kind:      kind,
		IP:        ip,
		DeviceID:  s.DeviceID,
	})
	if err != nil {
		log.Printf("⚠️  [SESSION] failed to record %s event for session %s: %v", kind, s.ID, err)
	}
}

// Session returns the caller's own session.
func (m *SessionManager) Session(ctx context.Context, userID, sessionID string) (*models.GameSession, error) {
	if userID == "" {
		return nil, ErrAuthenticationRequired()
	}
	_, session, _, err := m.resolveSession(ctx, "get", sessionID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if session.UserID != userID {
		return nil, errForbidden("session belongs to another user")
	}
	return session, nil
}

// Drain blocks until every post-completion task has finished.
func (m *SessionManager) Drain() {
	m.background.Wait()
}

// mapStoreError turns store sentinels into protocol errors; ServiceErrors pass through.
func mapStoreError(err error) error {
	var se *ServiceError
	switch {
	case errors.As(err, &se):
		return se
	case errors.Is(err, ErrSessionNotFound):
		return errNotFound(CodeNotFound, "session not found")
	case errors.Is(err, ErrSessionAlreadyCompleted):
		return errConflict("session already completed")
	default:
		return errServer("session store failure", err)
	}
}
