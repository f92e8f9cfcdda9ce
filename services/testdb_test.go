package services

import (
	"testing"

	"game-session-service/config"
	"game-session-service/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testCapsDefaults = config.CapsDefaults{
	MaxDurationMs:    600000,
	MinDurationMs:    10000,
	MaxScorePerMin:   8000,
	MinClientVersion: "1.0.0",
}

// newTestDB opens a private in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedGame(t *testing.T, db *gorm.DB, slugValue string, maxScore int64, cfg *models.GameConfig) *models.GameTitle {
	t.Helper()
	game := &models.GameTitle{
		ID:       uuid.NewString(),
		Slug:     slugValue,
		Name:     slugValue,
		MaxScore: maxScore,
		Active:   true,
	}
	if err := db.Create(game).Error; err != nil {
		t.Fatalf("seed game: %v", err)
	}
	if cfg != nil {
		cfg.ID = uuid.NewString()
		cfg.GameID = game.ID
		if err := db.Create(cfg).Error; err != nil {
			t.Fatalf("seed game config: %v", err)
		}
	}
	return game
}
