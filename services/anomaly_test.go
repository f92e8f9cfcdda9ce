package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"game-session-service/models"
)

func completedSession(id string, score, durationMs int64) models.GameSession {
	started := time.Now().UTC().Add(-2 * time.Minute)
	completed := started.Add(time.Duration(durationMs) * time.Millisecond)
	return models.GameSession{
		ID:          id,
		UserID:      "user-1",
		GameID:      "game-1",
		Status:      models.SessionStatusCompleted,
		StartedAt:   started,
		CompletedAt: &completed,
		Score:       score,
		DurationMs:  durationMs,
		StartIP:     "10.0.0.1",
		CompleteIP:  "10.0.0.1",
	}
}

var anomalyCaps = Caps{MaxScore: 100000, MaxDurationMs: 600000, MinDurationMs: 10000, MaxScorePerMin: 600}

func flaggedTypes(flagged []models.Anomaly) map[models.AnomalyType]int {
	out := make(map[models.AnomalyType]int)
	for _, a := range flagged {
		out[a.Type] = a.Severity
	}
	return out
}

func TestAnomalyDetectorRules(t *testing.T) {
	ctx := context.Background()

	t.Run("clean session", func(t *testing.T) {
		store := NewGormAnomalyStore(newTestDB(t))
		flagged, err := NewAnomalyDetector(store).Inspect(ctx, Inspection{Session: completedSession("s-clean", 500, 60000), Caps: anomalyCaps})
		if err != nil {
			t.Fatalf("Inspect: %v", err)
		}
		if len(flagged) != 0 {
			t.Errorf("unexpected flags %v", flaggedTypes(flagged))
		}
	})

	t.Run("impossible score rate", func(t *testing.T) {
		store := NewGormAnomalyStore(newTestDB(t))
		// 800/min is above 600 * 1.25
		flagged, _ := NewAnomalyDetector(store).Inspect(ctx, Inspection{Session: completedSession("s-rate", 800, 60000), Caps: anomalyCaps})
		if sev, ok := flaggedTypes(flagged)[models.AnomalyImpossibleScoreRate]; !ok || sev != 4 {
			t.Errorf("flags = %v", flaggedTypes(flagged))
		}
	})

	t.Run("rate within slack", func(t *testing.T) {
		store := NewGormAnomalyStore(newTestDB(t))
		flagged, _ := NewAnomalyDetector(store).Inspect(ctx, Inspection{Session: completedSession("s-slack", 700, 60000), Caps: anomalyCaps})
		if _, ok := flaggedTypes(flagged)[models.AnomalyImpossibleScoreRate]; ok {
			t.Error("rate inside the slack was flagged")
		}
	})

	t.Run("duration mismatch", func(t *testing.T) {
		store := NewGormAnomalyStore(newTestDB(t))
		flagged, _ := NewAnomalyDetector(store).Inspect(ctx, Inspection{Session: completedSession("s-short", 10, 8000), Caps: anomalyCaps})
		if sev, ok := flaggedTypes(flagged)[models.AnomalyDurationMismatch]; !ok || sev != 3 {
			t.Errorf("flags = %v", flaggedTypes(flagged))
		}
	})

	t.Run("duplicate completion", func(t *testing.T) {
		store := NewGormAnomalyStore(newTestDB(t))
		for i := 0; i < 2; i++ {
			if err := store.RecordEvent(ctx, &models.SessionEvent{SessionID: "s-dup", UserID: "user-1", Kind: models.SessionEventComplete}); err != nil {
				t.Fatalf("RecordEvent: %v", err)
			}
		}
		flagged, _ := NewAnomalyDetector(store).Inspect(ctx, Inspection{Session: completedSession("s-dup", 500, 60000), Caps: anomalyCaps})
		if sev, ok := flaggedTypes(flagged)[models.AnomalyDuplicateCompletion]; !ok || sev != 5 {
			t.Errorf("flags = %v", flaggedTypes(flagged))
		}
	})

	t.Run("ip mismatch inside window", func(t *testing.T) {
		store := NewGormAnomalyStore(newTestDB(t))
		s := completedSession("s-ip", 100, 20000)
		s.CompleteIP = "192.168.1.9"
		flagged, _ := NewAnomalyDetector(store).Inspect(ctx, Inspection{Session: s, Caps: anomalyCaps})
		if sev, ok := flaggedTypes(flagged)[models.AnomalyIPMismatch]; !ok || sev != 2 {
			t.Errorf("flags = %v", flaggedTypes(flagged))
		}
	})

	t.Run("ip change after window", func(t *testing.T) {
		store := NewGormAnomalyStore(newTestDB(t))
		s := completedSession("s-ip-late", 100, 60000)
		s.CompleteIP = "192.168.1.9"
		flagged, _ := NewAnomalyDetector(store).Inspect(ctx, Inspection{Session: s, Caps: anomalyCaps})
		if _, ok := flaggedTypes(flagged)[models.AnomalyIPMismatch]; ok {
			t.Error("ip change after the window was flagged")
		}
	})

	t.Run("repeated device", func(t *testing.T) {
		store := NewGormAnomalyStore(newTestDB(t))
		for _, user := range []string{"a", "b", "c"} {
			if err := store.RecordEvent(ctx, &models.SessionEvent{SessionID: "s-" + user, UserID: user, Kind: models.SessionEventStart, DeviceID: "dev-1"}); err != nil {
				t.Fatalf("RecordEvent: %v", err)
			}
		}
		s := completedSession("s-dev", 100, 60000)
		s.DeviceID = "dev-1"
		flagged, _ := NewAnomalyDetector(store).Inspect(ctx, Inspection{Session: s, Caps: anomalyCaps})
		if sev, ok := flaggedTypes(flagged)[models.AnomalyRepeatedDevice]; !ok || sev != 3 {
			t.Errorf("flags = %v", flaggedTypes(flagged))
		}
	})
}

func TestAnomalyUpsertKeepsOneRowPerType(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	detector := NewAnomalyDetector(NewGormAnomalyStore(db))
	in := Inspection{Session: completedSession("s-rate", 800, 60000), Caps: anomalyCaps}

	for i := 0; i < 3; i++ {
		if _, err := detector.Inspect(ctx, in); err != nil {
			t.Fatalf("Inspect #%d: %v", i, err)
		}
	}
	var n int64
	db.Model(&models.Anomaly{}).Where("session_id = ? AND type = ?", "s-rate", models.AnomalyImpossibleScoreRate).Count(&n)
	if n != 1 {
		t.Errorf("anomaly rows = %d, want 1", n)
	}
}

type failingAnomalyStore struct{}

func (failingAnomalyStore) RecordEvent(context.Context, *models.SessionEvent) error { return errors.New("down") }
func (failingAnomalyStore) CountEvents(context.Context, string, models.SessionEventKind) (int64, error) {
	return 0, errors.New("down")
}
func (failingAnomalyStore) DistinctDeviceUsers(context.Context, string, time.Time) (int64, error) {
	return 0, errors.New("down")
}
func (failingAnomalyStore) UpsertAnomaly(context.Context, *models.Anomaly) error { return errors.New("down") }

type panickingAnomalyStore struct{ failingAnomalyStore }

func (panickingAnomalyStore) CountEvents(context.Context, string, models.SessionEventKind) (int64, error) {
	panic("boom")
}

func TestAnomalyDetectorNeverPropagates(t *testing.T) {
	s := completedSession("s-fail", 800, 60000)
	s.DeviceID = "dev-1"

	t.Run("errors are joined", func(t *testing.T) {
		_, err := NewAnomalyDetector(failingAnomalyStore{}).Inspect(context.Background(), Inspection{Session: s, Caps: anomalyCaps})
		if err == nil {
			t.Fatal("expected joined error")
		}
	})

	t.Run("run swallows panics", func(t *testing.T) {
		NewAnomalyDetector(panickingAnomalyStore{}).Run(context.Background(), Inspection{Session: s, Caps: anomalyCaps})
	})
}

func TestPruneEvents(t *testing.T) {
	ctx := context.Background()
	store := NewGormAnomalyStore(newTestDB(t))
	now := time.Now().UTC()
	_ = store.RecordEvent(ctx, &models.SessionEvent{SessionID: "old", UserID: "u", Kind: models.SessionEventStart, InsertedAt: now.Add(-8 * 24 * time.Hour)})
	_ = store.RecordEvent(ctx, &models.SessionEvent{SessionID: "new", UserID: "u", Kind: models.SessionEventStart, InsertedAt: now})

	n, err := store.PruneEvents(ctx, now.Add(-7*24*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("PruneEvents = %d, %v", n, err)
	}
}

func TestAnomalyRefreshRequeuesExport(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := NewGormAnomalyStore(db)

	first := models.Anomaly{SessionID: "s-1", UserID: "user-1", Type: models.AnomalyImpossibleScoreRate, Severity: 4, Details: `{"v":1}`}
	if err := store.UpsertAnomaly(ctx, &first); err != nil {
		t.Fatalf("UpsertAnomaly: %v", err)
	}
	if err := db.Model(&models.Anomaly{}).Where("session_id = ?", "s-1").Update("exported_at", time.Now().UTC()).Error; err != nil {
		t.Fatalf("mark exported: %v", err)
	}

	again := models.Anomaly{SessionID: "s-1", UserID: "user-1", Type: models.AnomalyImpossibleScoreRate, Severity: 5, Details: `{"v":2}`}
	if err := store.UpsertAnomaly(ctx, &again); err != nil {
		t.Fatalf("second UpsertAnomaly: %v", err)
	}

	var row models.Anomaly
	if err := db.Where("session_id = ? AND type = ?", "s-1", models.AnomalyImpossibleScoreRate).First(&row).Error; err != nil {
		t.Fatalf("load anomaly: %v", err)
	}
	if row.ExportedAt != nil {
		t.Error("refreshed anomaly still marked exported")
	}
	if row.Severity != 5 || row.Details != `{"v":2}` {
		t.Errorf("row = %+v", row)
	}
}
