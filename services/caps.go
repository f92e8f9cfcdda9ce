// services/caps.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"game-session-service/config"
	"game-session-service/models"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

var ErrGameNotFound = errors.New("game not found")

// Caps are the effective bounds for one game.
type Caps struct {
	GameID           string
	MaxScore         int64
	MaxDurationMs    int64
	MinDurationMs    int64
	MaxScorePerMin   int64
	MinClientVersion string
}

// CapsResolver loads game identity and tunable bounds from the game tables.
type CapsResolver struct {
	DB       *gorm.DB
	defaults config.CapsDefaults
}

func NewCapsResolver(db *gorm.DB, defaults config.CapsDefaults) *CapsResolver {
	return &CapsResolver{DB: db, defaults: defaults}
}

// NormalizeSlug maps user-supplied game identifiers onto stored slugs.
func NormalizeSlug(raw string) string {
	return slug.Make(strings.TrimSpace(raw))
}

func (r *CapsResolver) GameBySlug(ctx context.Context, gameSlug string) (*models.GameTitle, error) {
	return r.findGame(ctx, "slug = ?", NormalizeSlug(gameSlug))
}

func (r *CapsResolver) GameByID(ctx context.Context, gameID string) (*models.GameTitle, error) {
	return r.findGame(ctx, "id = ?", gameID)
}

func (r *CapsResolver) findGame(ctx context.Context, query string, arg string) (*models.GameTitle, error) {
	var game models.GameTitle
	if err := r.DB.WithContext(ctx).Where(query, arg).First(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("load game: %w", err)
	}
	return &game, nil
}

// ConfigForGame returns the override row for gameID, or the process defaults.
func (r *CapsResolver) ConfigForGame(ctx context.Context, gameID string) (*models.GameConfig, error) {
	var cfg models.GameConfig
	err := r.DB.WithContext(ctx).Where("game_id = ?", gameID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.GameConfig{
			GameID:           gameID,
			MaxDurationMs:    r.defaults.MaxDurationMs,
			MinDurationMs:    r.defaults.MinDurationMs,
			MaxScorePerMin:   r.defaults.MaxScorePerMin,
			MinClientVersion: r.defaults.MinClientVersion,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load game config: %w", err)
	}
	return &cfg, nil
}

// CapsForGame combines the game's max score with its duration/rate/version bounds.
func (r *CapsResolver) CapsForGame(ctx context.Context, game *models.GameTitle) (*Caps, error) {
	cfg, err := r.ConfigForGame(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	return &Caps{
		GameID:           game.ID,
		MaxScore:         game.MaxScore,
		MaxDurationMs:    cfg.MaxDurationMs,
		MinDurationMs:    cfg.MinDurationMs,
		MaxScorePerMin:   cfg.MaxScorePerMin,
		MinClientVersion: cfg.MinClientVersion,
	}, nil
}

// CompareVersions reports whether current >= required using numeric dotted segments.
// Missing trailing segments count as 0. An empty requirement always passes; a missing or
// unparsable current version fails any non-empty requirement.
func CompareVersions(current, required string) bool {
	required = strings.TrimSpace(required)
	if required == "" {
		return true
	}
	req, ok := parseVersion(required)
	if !ok {
		// misconfigured requirement: nothing can satisfy it
		return false
	}
	cur, ok := parseVersion(strings.TrimSpace(current))
	if !ok {
		return false
	}

	n := max(len(cur), len(req))
	for i := 0; i < n; i++ {
		var c, q int64
		if i < len(cur) {
			c = cur[i]
		}
		if i < len(req) {
			q = req[i]
		}
		if c != q {
			return c > q
		}
	}
	return true
}

func parseVersion(v string) ([]int64, bool) {
	if v == "" {
		return nil, false
	}
	parts := strings.Split(v, ".")
	out := make([]int64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}
