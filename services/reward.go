// services/reward.go
package services

// Reward is the xp/currency delta for a completed session.
type Reward struct {
	XPDelta       int64 `json:"xpDelta"`
	CurrencyDelta int64 `json:"currencyDelta"`
}

const (
	baseSessionXP    = 10
	scorePerXP       = 10
	scorePerCurrency = 100
	maxSessionXP     = 5000
	maxSessionCoins  = 500
)

// CalculateReward maps a score to its reward. Pure and non-decreasing in score;
// double-awarding is prevented by the unique reward row, not here.
func CalculateReward(score int64) Reward {
	if score < 0 {
		score = 0
	}
	xp := min(int64(baseSessionXP)+score/scorePerXP, maxSessionXP)
	coins := min(score/scorePerCurrency, maxSessionCoins)
	return Reward{XPDelta: xp, CurrencyDelta: coins}
}
