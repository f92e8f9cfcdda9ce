// models/game.go
package models

import (
	"time"
)

// GameTitle is the identity of a playable game. MaxScore is the hard score cap.
type GameTitle struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Slug      string    `json:"slug" gorm:"uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"not null"`
	MaxScore  int64     `json:"max_score" gorm:"not null"`
	Active    bool      `json:"active" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (GameTitle) TableName() string { return "game_titles" }

// GameConfig overrides the default caps for one game.
type GameConfig struct {
	ID               string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	GameID           string    `json:"game_id" gorm:"uniqueIndex;not null"`
	MaxDurationMs    int64     `json:"max_duration_ms" gorm:"not null"`
	MinDurationMs    int64     `json:"min_duration_ms" gorm:"not null"`
	MaxScorePerMin   int64     `json:"max_score_per_min" gorm:"not null"`
	MinClientVersion string    `json:"min_client_version" gorm:"type:varchar(32)"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (GameConfig) TableName() string { return "game_configs" }
