// services/anomaly_store.go
package services

import (
	"context"
	"time"

	"game-session-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnomalyStore is the moderation datastore the detector reads events from and writes flags to.
type AnomalyStore interface {
	RecordEvent(ctx context.Context, e *models.SessionEvent) error
	CountEvents(ctx context.Context, sessionID string, kind models.SessionEventKind) (int64, error)
	DistinctDeviceUsers(ctx context.Context, deviceID string, since time.Time) (int64, error)
	UpsertAnomaly(ctx context.Context, a *models.Anomaly) error
}

type GormAnomalyStore struct {
	DB *gorm.DB
}

func NewGormAnomalyStore(db *gorm.DB) *GormAnomalyStore {
	return &GormAnomalyStore{DB: db}
}

func (s *GormAnomalyStore) RecordEvent(ctx context.Context, e *models.SessionEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.InsertedAt.IsZero() {
		e.InsertedAt = time.Now().UTC()
	}
	return s.DB.WithContext(ctx).Create(e).Error
}

func (s *GormAnomalyStore) CountEvents(ctx context.Context, sessionID string, kind models.SessionEventKind) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.SessionEvent{}).
		Where("session_id = ? AND kind = ?", sessionID, kind).
		Count(&n).Error
	return n, err
}

func (s *GormAnomalyStore) DistinctDeviceUsers(ctx context.Context, deviceID string, since time.Time) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.SessionEvent{}).
		Where("device_id = ? AND inserted_at >= ?", deviceID, since).
		Distinct("user_id").
		Count(&n).Error
	return n, err
}

// UpsertAnomaly inserts or refreshes the single row for (session, type). A refresh clears
// exported_at so the new details are exported again.
func (s *GormAnomalyStore) UpsertAnomaly(ctx context.Context, a *models.Anomaly) error {
	now := time.Now().UTC()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.InsertedAt.IsZero() {
		a.InsertedAt = now
	}
	a.UpdatedAt = now
	updates := append(clause.AssignmentColumns([]string{"severity", "details", "updated_at"}),
		clause.Assignment{Column: clause.Column{Name: "exported_at"}, Value: gorm.Expr("NULL")})
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "type"}},
		DoUpdates: updates,
	}).Create(a).Error
}

// PruneEvents deletes session events older than cutoff.
func (s *GormAnomalyStore) PruneEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).Where("inserted_at < ?", cutoff).Delete(&models.SessionEvent{})
	return res.RowsAffected, res.Error
}
