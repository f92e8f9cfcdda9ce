// models/session.go
package models

import "time"

type SessionStatus string

const (
	SessionStatusStarted   SessionStatus = "started"
	SessionStatusCompleted SessionStatus = "completed"
)

// GameSession is one gameplay attempt, bound to one user and one nonce.
type GameSession struct {
	ID            string        `json:"id" gorm:"primaryKey;type:varchar(64)"`
	UserID        string        `json:"user_id" gorm:"type:varchar(64);index;not null"`
	GameID        string        `json:"game_id" gorm:"type:varchar(64);index;not null"`
	Nonce         string        `json:"-" gorm:"type:varchar(128);not null"`
	Status        SessionStatus `json:"status" gorm:"type:varchar(16);not null;default:'started'"`
	ClientVersion string        `json:"client_version,omitempty" gorm:"type:varchar(32)"`

	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Score       int64      `json:"score" gorm:"default:0"`
	DurationMs  int64      `json:"duration_ms" gorm:"default:0"`

	// Request metadata for anomaly rules
	StartIP    string `json:"-" gorm:"type:varchar(64)"`
	CompleteIP string `json:"-" gorm:"type:varchar(64)"`
	DeviceID   string `json:"-" gorm:"type:varchar(128);index"`
}

func (GameSession) TableName() string { return "game_sessions" }

// SessionEventKind marks which protocol step produced a SessionEvent.
type SessionEventKind string

const (
	SessionEventStart    SessionEventKind = "start"
	SessionEventComplete SessionEventKind = "complete"
)

// SessionEvent is append-only history read by the anomaly detector.
type SessionEvent struct {
	ID         string           `json:"id" gorm:"primaryKey;type:varchar(64)"`
	SessionID  string           `json:"session_id" gorm:"type:varchar(64);index;not null"`
	UserID     string           `json:"user_id" gorm:"type:varchar(64);not null"`
	Kind       SessionEventKind `json:"kind" gorm:"type:varchar(16);not null"`
	IP         string           `json:"ip" gorm:"type:varchar(64)"`
	DeviceID   string           `json:"device_id" gorm:"type:varchar(128);index:idx_session_events_device,priority:1"`
	InsertedAt time.Time        `json:"inserted_at" gorm:"not null;index:idx_session_events_device,priority:2"`
}

func (SessionEvent) TableName() string { return "session_events" }
