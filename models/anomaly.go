package models

import "time"

type AnomalyType string

const (
	AnomalyImpossibleScoreRate AnomalyType = "impossible_score_rate"
	AnomalyDurationMismatch    AnomalyType = "duration_mismatch"
	AnomalyDuplicateCompletion AnomalyType = "duplicate_completion"
	AnomalyIPMismatch          AnomalyType = "ip_mismatch"
	AnomalyRepeatedDevice      AnomalyType = "repeated_device"
)

// Anomaly is a heuristic flag for moderation review, one row per (session, type).
type Anomaly struct {
	ID         string      `json:"id" gorm:"primaryKey;type:varchar(64)"`
	SessionID  string      `json:"session_id" gorm:"type:varchar(64);not null;uniqueIndex:idx_anomalies_session_type,priority:1"`
	UserID     string      `json:"user_id" gorm:"type:varchar(64);index"`
	Type       AnomalyType `json:"type" gorm:"type:varchar(32);not null;uniqueIndex:idx_anomalies_session_type,priority:2"`
	Severity   int         `json:"severity" gorm:"not null;check:severity >= 1 AND severity <= 5"`
	Details    string      `json:"details" gorm:"type:text"`
	InsertedAt time.Time   `json:"inserted_at" gorm:"not null"`
	UpdatedAt  time.Time   `json:"updated_at"`
	ExportedAt *time.Time  `json:"exported_at,omitempty" gorm:"index"`
}

func (Anomaly) TableName() string { return "anomalies" }
