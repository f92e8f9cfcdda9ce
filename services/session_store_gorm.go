// services/session_store_gorm.go
package services

import (
	"context"
	"errors"

	"game-session-service/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLSTATEs that mean the schema this store needs has not been provisioned.
var notProvisionedCodes = map[string]bool{
	"42P01": true, // undefined_table
	"3F000": true, // invalid_schema_name
	"42703": true, // undefined_column
}

// GormSessionStore is the durable relational session store.
type GormSessionStore struct {
	DB *gorm.DB
}

func NewGormSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{DB: db}
}

// classifyStoreError wraps driver errors in a StoreError; sentinels pass through.
func classifyStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionAlreadyCompleted) {
		return err
	}
	class := StoreTransient
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && notProvisionedCodes[pgErr.Code] {
		class = StoreNotProvisioned
	}
	return &StoreError{Class: class, Op: op, Err: err}
}

func (s *GormSessionStore) CreateSession(ctx context.Context, session *models.GameSession) error {
	return classifyStoreError("create", s.DB.WithContext(ctx).Create(session).Error)
}

func (s *GormSessionStore) GetSession(ctx context.Context, sessionID string) (*models.GameSession, error) {
	var session models.GameSession
	err := s.DB.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, classifyStoreError("get", err)
	}
	return &session, nil
}

// CompleteSession runs the conditional transition and the reward insert in one transaction.
// The UPDATE's WHERE status = 'started' is what serializes concurrent completions.
func (s *GormSessionStore) CompleteSession(ctx context.Context, c Completion, reward *models.SessionReward) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.GameSession{}).
			Where("id = ? AND status = ?", c.SessionID, models.SessionStatusStarted).
			Updates(map[string]any{
				"status":       models.SessionStatusCompleted,
				"completed_at": c.CompletedAt,
				"score":        c.Score,
				"duration_ms":  c.DurationMs,
				"complete_ip":  c.CompleteIP,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSessionAlreadyCompleted
		}
		if reward != nil {
			if _, err := insertReward(tx, reward); err != nil {
				return err
			}
		}
		return nil
	})
	return classifyStoreError("complete", err)
}

func (s *GormSessionStore) SaveReward(ctx context.Context, reward *models.SessionReward) (bool, error) {
	inserted, err := insertReward(s.DB.WithContext(ctx), reward)
	return inserted, classifyStoreError("save reward", err)
}

func insertReward(db *gorm.DB, reward *models.SessionReward) (bool, error) {
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoNothing: true,
	}).Create(reward)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
