package models

import (
	"time"
)

// SessionReward is the xp/currency delta granted for one completed session.
// SessionID is unique: a session is rewarded at most once.
type SessionReward struct {
	ID            string     `json:"id" gorm:"primaryKey;type:varchar(64)"`
	SessionID     string     `json:"session_id" gorm:"type:varchar(64);uniqueIndex;not null"`
	UserID        string     `json:"user_id" gorm:"type:varchar(64);index;not null"`
	XPDelta       int64      `json:"xp_delta" gorm:"not null"`
	CurrencyDelta int64      `json:"currency_delta" gorm:"not null"`
	InsertedAt    time.Time  `json:"inserted_at" gorm:"not null"`
	CreditedAt    *time.Time `json:"credited_at,omitempty" gorm:"index"`
}

func (SessionReward) TableName() string { return "session_rewards" }
