package services

import (
	"context"
	"sync"
	"testing"

	"game-session-service/models"

	"gorm.io/gorm"
)

func TestDetermineRank(t *testing.T) {
	tests := map[int]int{1: 1, 9: 1, 10: 2, 24: 2, 25: 3, 50: 4, 99: 4, 100: 5, 250: 5}
	for level, want := range tests {
		if got := determineRank(level); got != want {
			t.Errorf("determineRank(%d) = %d, want %d", level, got, want)
		}
	}
}

func TestApplySessionReward(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db)
	ctx := context.Background()

	fresh, err := svc.GetProgress(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if fresh.Level != 1 || fresh.TotalXP != 0 {
		t.Errorf("fresh progress = %+v", fresh)
	}

	apply := func(xp int64) {
		t.Helper()
		if err := db.Transaction(func(tx *gorm.DB) error {
			_, err := svc.ApplySessionReward(tx, "user-1", xp)
			return err
		}); err != nil {
			t.Fatalf("ApplySessionReward: %v", err)
		}
	}
	apply(50)
	apply(5000)

	prog, err := svc.GetProgress(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if prog.TotalXP != 5050 || prog.SessionsCompleted != 2 {
		t.Errorf("progress = %+v", prog)
	}
	if prog.Level <= 1 || prog.LastLevelUpAt == nil {
		t.Errorf("expected a level-up, got level %d", prog.Level)
	}
}

func TestApplySessionRewardConcurrentCredits(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db)

	const credits = 10
	var wg sync.WaitGroup
	errs := make(chan error, credits)
	for i := 0; i < credits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- db.Transaction(func(tx *gorm.DB) error {
				_, err := svc.ApplySessionReward(tx, "user-1", 10)
				return err
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("ApplySessionReward: %v", err)
		}
	}

	var rows int64
	db.Model(&models.UserProgress{}).Where("user_id = ?", "user-1").Count(&rows)
	if rows != 1 {
		t.Fatalf("progress rows = %d, want 1", rows)
	}
	prog, err := svc.GetProgress(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if prog.TotalXP != credits*10 || prog.SessionsCompleted != credits {
		t.Errorf("progress = %+v", prog)
	}
}

func TestApplySessionRewardExistingRow(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db)
	existing := models.UserProgress{ID: "p-1", UserID: "user-1", TotalXP: 40, Level: 1, Rank: 1, SessionsCompleted: 3}
	if err := db.Create(&existing).Error; err != nil {
		t.Fatalf("seed progress: %v", err)
	}

	var got *models.UserProgress
	if err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		got, err = svc.ApplySessionReward(tx, "user-1", 20)
		return err
	}); err != nil {
		t.Fatalf("ApplySessionReward: %v", err)
	}
	if got.ID != "p-1" || got.TotalXP != 60 || got.SessionsCompleted != 4 {
		t.Errorf("progress = %+v", got)
	}
}
