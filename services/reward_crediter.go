// services/reward_crediter.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"game-session-service/models"

	"gorm.io/gorm"
)

const rewardSource = "game_session"

// RewardIdempotencyKey is the ledger key for a session's reward.
func RewardIdempotencyKey(sessionID string) string {
	return rewardSource + ":" + sessionID
}

// RewardCrediter pushes persisted rewards to the ledger and applies their XP.
type RewardCrediter struct {
	DB          *gorm.DB
	ledger      Ledger
	progression *ProgressionService
	fallback    *MemorySessionStore
}

// NewRewardCrediter builds a crediter. ledger may be nil, in which case only XP is applied.
func NewRewardCrediter(db *gorm.DB, ledger Ledger, progression *ProgressionService, fallback *MemorySessionStore) *RewardCrediter {
	return &RewardCrediter{DB: db, ledger: ledger, progression: progression, fallback: fallback}
}

func (c *RewardCrediter) sendToLedger(ctx context.Context, r *models.SessionReward) error {
	if c.ledger == nil {
		return nil
	}
	return c.ledger.Credit(ctx, LedgerCredit{
		UserID:         r.UserID,
		Source:         rewardSource,
		IdempotencyKey: RewardIdempotencyKey(r.SessionID),
		Amount:         r.CurrencyDelta,
		XP:             r.XPDelta,
	})
}

// CreditDurable credits a reward held in the relational store. The ledger call comes first;
// claiming credited_at and applying XP then happen in one transaction, so a retry after any
// failure repeats only idempotent work.
func (c *RewardCrediter) CreditDurable(ctx context.Context, r *models.SessionReward) error {
	if err := c.sendToLedger(ctx, r); err != nil {
		return err
	}
	return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.SessionReward{}).
			Where("session_id = ? AND credited_at IS NULL", r.SessionID).
			Update("credited_at", time.Now().UTC())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // already credited
		}
		if _, err := c.progression.ApplySessionReward(tx, r.UserID, r.XPDelta); err != nil {
			return fmt.Errorf("apply xp: %w", err)
		}
		return nil
	})
}

// CreditFallback credits a reward held only in the fallback store. XP is not applied
// because the relational store is unavailable in this mode.
func (c *RewardCrediter) CreditFallback(ctx context.Context, r *models.SessionReward) error {
	if err := c.sendToLedger(ctx, r); err != nil {
		return err
	}
	if c.fallback != nil {
		c.fallback.MarkCredited(r.SessionID, time.Now().UTC())
	}
	return nil
}

// CreditPending retries durable rewards that were inserted before cutoff and never credited.
func (c *RewardCrediter) CreditPending(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	var pending []models.SessionReward
	if err := c.DB.WithContext(ctx).
		Where("credited_at IS NULL AND inserted_at < ?", cutoff).
		Order("inserted_at ASC").
		Limit(limit).
		Find(&pending).Error; err != nil {
		return 0, err
	}

	credited := 0
	for i := range pending {
		if err := c.CreditDurable(ctx, &pending[i]); err != nil {
			log.Printf("❌ [CREDIT] retry failed for session %s: %v", pending[i].SessionID, err)
			continue
		}
		credited++
	}
	return credited, nil
}
