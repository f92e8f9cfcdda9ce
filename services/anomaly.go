// services/anomaly.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"game-session-service/models"
)

const (
	scoreRateSlack         = 1.25
	durationSlack          = 0.9
	ipMismatchWindow       = 30 * time.Second
	deviceWindow           = 24 * time.Hour
	deviceDistinctUserMin  = 3
	severityScoreRate      = 4
	severityDuration       = 3
	severityDuplicate      = 5
	severityIPMismatch     = 2
	severityRepeatedDevice = 3
)

// Inspection is everything the detector needs about one accepted completion.
type Inspection struct {
	Session models.GameSession
	Caps    Caps
}

// AnomalyDetector applies deterministic post-hoc rules to completed sessions.
type AnomalyDetector struct {
	store AnomalyStore
	now   func() time.Time
}

func NewAnomalyDetector(store AnomalyStore) *AnomalyDetector {
	return &AnomalyDetector{store: store, now: time.Now}
}

// Run inspects a completion and swallows every failure, panics included.
func (d *AnomalyDetector) Run(ctx context.Context, in Inspection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [ANOMALY] detector panic for session %s: %v", in.Session.ID, r)
		}
	}()
	flagged, err := d.Inspect(ctx, in)
	if err != nil {
		log.Printf("⚠️  [ANOMALY] inspection of session %s incomplete: %v", in.Session.ID, err)
	}
	for _, a := range flagged {
		log.Printf("🚩 [ANOMALY] %s severity=%d session=%s user=%s", a.Type, a.Severity, a.SessionID, a.UserID)
	}
}

// Inspect evaluates every rule and upserts one row per flagged type. Rules that fail to read
// their inputs are skipped; the joined error reports them.
func (d *AnomalyDetector) Inspect(ctx context.Context, in Inspection) ([]models.Anomaly, error) {
	var (
		flagged []models.Anomaly
		errs    []error
	)
	s := in.Session

	flag := func(t models.AnomalyType, severity int, details map[string]any) {
		raw, _ := json.Marshal(details)
		a := models.Anomaly{
			SessionID: s.ID,
			UserID:    s.UserID,
			Type:      t,
			Severity:  severity,
			Details:   string(raw),
		}
		if err := d.store.UpsertAnomaly(ctx, &a); err != nil {
			errs = append(errs, fmt.Errorf("upsert %s: %w", t, err))
			return
		}
		flagged = append(flagged, a)
	}

	if s.DurationMs > 0 && in.Caps.MaxScorePerMin > 0 {
		rate := ScorePerMinute(s.Score, s.DurationMs)
		limit := float64(in.Caps.MaxScorePerMin) * scoreRateSlack
		if rate > limit {
			flag(models.AnomalyImpossibleScoreRate, severityScoreRate, map[string]any{
				"score_per_min": rate, "limit": limit, "score": s.Score, "duration_ms": s.DurationMs,
			})
		}
	}

	if s.DurationMs > 0 && float64(s.DurationMs) < float64(in.Caps.MinDurationMs)*durationSlack {
		flag(models.AnomalyDurationMismatch, severityDuration, map[string]any{
			"duration_ms": s.DurationMs, "min_duration_ms": in.Caps.MinDurationMs,
		})
	}

	completions, err := d.store.CountEvents(ctx, s.ID, models.SessionEventComplete)
	if err != nil {
		errs = append(errs, fmt.Errorf("count completions: %w", err))
	} else if completions > 1 {
		flag(models.AnomalyDuplicateCompletion, severityDuplicate, map[string]any{
			"completion_events": completions,
		})
	}

	if s.StartIP != "" && s.CompleteIP != "" && s.StartIP != s.CompleteIP && s.CompletedAt != nil {
		gap := s.CompletedAt.Sub(s.StartedAt)
		if gap >= 0 && gap <= ipMismatchWindow {
			flag(models.AnomalyIPMismatch, severityIPMismatch, map[string]any{
				"start_ip": s.StartIP, "complete_ip": s.CompleteIP, "gap_ms": gap.Milliseconds(),
			})
		}
	}

	if s.DeviceID != "" {
		users, err := d.store.DistinctDeviceUsers(ctx, s.DeviceID, d.now().UTC().Add(-deviceWindow))
		if err != nil {
			errs = append(errs, fmt.Errorf("count device users: %w", err))
		} else if users >= deviceDistinctUserMin {
			flag(models.AnomalyRepeatedDevice, severityRepeatedDevice, map[string]any{
				"device_id": s.DeviceID, "distinct_users": users,
			})
		}
	}

	return flagged, errors.Join(errs...)
}

// ScorePerMinute is score / (durationMs / 60000). durationMs must be positive.
func ScorePerMinute(score, durationMs int64) float64 {
	return float64(score) * 60000 / float64(durationMs)
}
