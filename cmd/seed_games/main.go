// cmd/seed_games upserts game titles and their caps overrides from a JSON file.
//
//	go run ./cmd/seed_games -file games.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"game-session-service/models"
	"game-session-service/services"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type seedConfig struct {
	MaxDurationMs    int64  `json:"maxDurationMs"`
	MinDurationMs    int64  `json:"minDurationMs"`
	MaxScorePerMin   int64  `json:"maxScorePerMin"`
	MinClientVersion string `json:"minClientVersion"`
}

type seedGame struct {
	Name     string      `json:"name"`
	Slug     string      `json:"slug"`
	MaxScore int64       `json:"maxScore"`
	Active   *bool       `json:"active"`
	Config   *seedConfig `json:"config"`
}

func main() {
	file := flag.String("file", "games.json", "path to the games JSON file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("failed to read %s: %v", *file, err)
	}
	var games []seedGame
	if err := json.Unmarshal(raw, &games); err != nil {
		log.Fatalf("failed to parse %s: %v", *file, err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	if err := db.AutoMigrate(&models.GameTitle{}, &models.GameConfig{}); err != nil {
		log.Fatal("failed to migrate game tables:", err)
	}

	for _, g := range games {
		if err := seed(db, g); err != nil {
			log.Fatalf("❌ failed to seed %q: %v", g.Name, err)
		}
	}
	log.Printf("✅ Seeded %d game(s)", len(games))
}

func seed(db *gorm.DB, g seedGame) error {
	slugValue := g.Slug
	if slugValue == "" {
		slugValue = g.Name
	}
	slugValue = services.NormalizeSlug(slugValue)
	if slugValue == "" || g.MaxScore <= 0 {
		return fmt.Errorf("name/slug and a positive maxScore are required")
	}
	active := true
	if g.Active != nil {
		active = *g.Active
	}

	return db.Transaction(func(tx *gorm.DB) error {
		title := models.GameTitle{
			ID:       uuid.NewString(),
			Slug:     slugValue,
			Name:     g.Name,
			MaxScore: g.MaxScore,
			Active:   active,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "max_score", "active", "updated_at"}),
		}).Create(&title).Error; err != nil {
			return err
		}
		// On conflict the stored id wins; read it back
		if err := tx.Where("slug = ?", slugValue).First(&title).Error; err != nil {
			return err
		}

		if g.Config == nil {
			return nil
		}
		cfg := models.GameConfig{
			ID:               uuid.NewString(),
			GameID:           title.ID,
			MaxDurationMs:    g.Config.MaxDurationMs,
			MinDurationMs:    g.Config.MinDurationMs,
			MaxScorePerMin:   g.Config.MaxScorePerMin,
			MinClientVersion: g.Config.MinClientVersion,
		}
		if cfg.MinDurationMs <= 0 || cfg.MaxDurationMs < cfg.MinDurationMs || cfg.MaxScorePerMin <= 0 {
			return fmt.Errorf("inconsistent caps for %s", slugValue)
		}
		log.Printf("🎮 %s (%s) max_score=%d", title.Name, title.Slug, title.MaxScore)
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "game_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"max_duration_ms", "min_duration_ms", "max_score_per_min", "min_client_version", "updated_at",
			}),
		}).Create(&cfg).Error
	})
}
