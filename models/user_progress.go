package models

import (
	"time"
)

// UserProgress accumulates XP credited from session rewards (denormalized for reads)
type UserProgress struct {
	ID     string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID string `gorm:"type:varchar(64);uniqueIndex;not null" json:"user_id"`

	TotalXP int64 `json:"total_xp" gorm:"default:0"`
	Level   int   `json:"level" gorm:"default:1"`
	Rank    int   `json:"rank" gorm:"default:1"` // Bronze(1)→Silver(2)→Gold(3)→Platinum(4)→Diamond(5)

	SessionsCompleted int64 `json:"sessions_completed" gorm:"default:0"`

	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`
	LastRankUpAt  *time.Time `json:"last_rank_up_at,omitempty"`

	Timestamps
}

func (UserProgress) TableName() string { return "user_progress" }

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// All lists every table this service owns, in migration order.
func All() []any {
	return []any{
		&GameTitle{},
		&GameConfig{},
		&GameSession{},
		&SessionEvent{},
		&SessionReward{},
		&Anomaly{},
		&UserProgress{},
	}
}
