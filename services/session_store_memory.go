// services/session_store_memory.go
package services

import (
	"context"
	"sync"
	"time"

	"game-session-service/models"
)

type fallbackRecord struct {
	session models.GameSession
	reward  *models.SessionReward
}

// MemorySessionStore is the degrade-mode store used only while the durable schema is not
// provisioned. Its state is process-local and does not survive a restart.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*fallbackRecord
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*fallbackRecord)}
}

func (m *MemorySessionStore) CreateSession(_ context.Context, s *models.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = &fallbackRecord{session: *s}
	return nil
}

func (m *MemorySessionStore) GetSession(_ context.Context, sessionID string) (*models.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s := rec.session
	return &s, nil
}

func (m *MemorySessionStore) CompleteSession(_ context.Context, c Completion, reward *models.SessionReward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[c.SessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if rec.session.Status != models.SessionStatusStarted {
		return ErrSessionAlreadyCompleted
	}
	completedAt := c.CompletedAt
	rec.session.Status = models.SessionStatusCompleted
	rec.session.CompletedAt = &completedAt
	rec.session.Score = c.Score
	rec.session.DurationMs = c.DurationMs
	rec.session.CompleteIP = c.CompleteIP
	if reward != nil && rec.reward == nil {
		r := *reward
		rec.reward = &r
	}
	return nil
}

func (m *MemorySessionStore) SaveReward(_ context.Context, reward *models.SessionReward) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[reward.SessionID]
	if !ok {
		return false, ErrSessionNotFound
	}
	if rec.reward != nil {
		return false, nil
	}
	r := *reward
	rec.reward = &r
	return true, nil
}

// Reward returns the reward held for sessionID, if any.
func (m *MemorySessionStore) Reward(sessionID string) (*models.SessionReward, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok || rec.reward == nil {
		return nil, false
	}
	r := *rec.reward
	return &r, true
}

// MarkCredited records that the reward for sessionID reached the ledger.
func (m *MemorySessionStore) MarkCredited(sessionID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.sessions[sessionID]; ok && rec.reward != nil && rec.reward.CreditedAt == nil {
		rec.reward.CreditedAt = &at
	}
}

// Prune drops sessions started before now-ttl and returns how many were removed.
func (m *MemorySessionStore) Prune(now time.Time, ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := now.Add(-ttl)
	removed := 0
	for id, rec := range m.sessions {
		if rec.session.StartedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of sessions currently held.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
