package services

import "testing"

func TestCalculateReward(t *testing.T) {
	tests := []struct {
		score        int64
		wantXP       int64
		wantCurrency int64
	}{
		{score: 0, wantXP: 10, wantCurrency: 0},
		{score: 99, wantXP: 19, wantCurrency: 0},
		{score: 4200, wantXP: 430, wantCurrency: 42},
		{score: -5, wantXP: 10, wantCurrency: 0},
		{score: 1_000_000, wantXP: 5000, wantCurrency: 500},
	}
	for _, tt := range tests {
		got := CalculateReward(tt.score)
		if got.XPDelta != tt.wantXP || got.CurrencyDelta != tt.wantCurrency {
			t.Errorf("CalculateReward(%d) = %+v, want xp=%d currency=%d", tt.score, got, tt.wantXP, tt.wantCurrency)
		}
	}
}

func TestCalculateRewardMonotonic(t *testing.T) {
	prev := CalculateReward(0)
	for score := int64(1); score <= 100_000; score += 37 {
		cur := CalculateReward(score)
		if cur.XPDelta < prev.XPDelta || cur.CurrencyDelta < prev.CurrencyDelta {
			t.Fatalf("reward decreased at score %d: %+v < %+v", score, cur, prev)
		}
		prev = cur
	}
}
