package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"game-session-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LevelConfig: XP needed for *next* level (e.g., level 1 → 2 needs BaseXPPerLevel * 1^1.2)
const BaseXPPerLevel = 100

// xpForNextLevel returns XP required to reach level+1 from current level
func xpForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	// L_n = floor(BaseXPPerLevel * n^1.2)
	return int64(float64(BaseXPPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

// RankThresholds: levels required before rank-up
var RankThresholds = map[int]int{ // rank → min level
	1: 1,   // Bronze (start)
	2: 10,  // Silver
	3: 25,  // Gold
	4: 50,  // Platinum
	5: 100, // Diamond
}

func determineRank(level int) int {
	for rank := 5; rank >= 1; rank-- {
		if level >= RankThresholds[rank] {
			return rank
		}
	}
	return 1
}

// ProgressionService accumulates credited session XP per user.
type ProgressionService struct {
	DB *gorm.DB
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	return &ProgressionService{DB: db}
}

// GetProgress returns the user's progress, or a fresh level-1 record if none exists yet.
func (s *ProgressionService) GetProgress(ctx context.Context, userID string) (*models.UserProgress, error) {
	var prog models.UserProgress
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UserProgress{UserID: userID, Level: 1, Rank: 1}, nil
	}
	if err != nil {
		return nil, err
	}
	return &prog, nil
}

// ApplySessionReward adds xp inside tx and advances level/rank. The caller owns the
// transaction and guarantees this runs once per reward.
func (s *ProgressionService) ApplySessionReward(tx *gorm.DB, userID string, xp int64) (*models.UserProgress, error) {
	// First credit for a user: concurrent inserts collapse onto one row
	seed := models.UserProgress{
		ID:     uuid.NewString(),
		UserID: userID,
		Level:  1,
		Rank:   1,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("create progress for %s: %w", userID, err)
	}

	// 🔒 Row lock so concurrent credits for the same user apply one after another
	var prog models.UserProgress
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&prog).Error; err != nil {
		return nil, fmt.Errorf("lock progress for %s: %w", userID, err)
	}

	oldRank := prog.Rank
	prog.TotalXP += xp
	prog.SessionsCompleted++

	// Level-up logic: accumulate until enough for next level
	for prog.TotalXP >= int64(BaseXPPerLevel)*int64(prog.Level)+xpForNextLevel(prog.Level) {
		prog.Level++
		now := time.Now()
		prog.LastLevelUpAt = &now
	}

	if newRank := determineRank(prog.Level); newRank > oldRank {
		now := time.Now()
		prog.Rank = newRank
		prog.LastRankUpAt = &now
	}

	if err := tx.Save(&prog).Error; err != nil {
		return nil, err
	}
	return &prog, nil
}
