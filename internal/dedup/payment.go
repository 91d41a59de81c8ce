package dedup

import (
	"math"

	"github.com/jackzampolin/brochure/internal/types"
)

// ScorePaymentPlan rates a plan by completeness: 10 per milestone, 50 when
// the percentages total 100 within 5 points, and 5 per dated milestone.
func ScorePaymentPlan(p types.PaymentPlan) int {
	score := 10 * len(p.Milestones)
	if len(p.Milestones) > 0 && math.Abs(p.TotalPercentage()-100) <= 5 {
		score += 50
	}
	score += 5 * p.MilestonesWithDates()
	return score
}

// SelectPaymentPlan keeps the single highest-scoring plan. Ties go to the
// plan from the earliest page. It returns nil for no plans.
func SelectPaymentPlan(plans []types.PaymentPlan) []types.PaymentPlan {
	best := -1
	bestScore := 0
	for i, p := range plans {
		s := ScorePaymentPlan(p)
		switch {
		case best < 0, s > bestScore:
			best, bestScore = i, s
		case s == bestScore && earlier(p, plans[best]):
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	chosen := plans[best]
	chosen.Milestones = append([]types.Milestone(nil), chosen.Milestones...)
	chosen.Score = bestScore
	return []types.PaymentPlan{chosen}
}

func earlier(a, b types.PaymentPlan) bool {
	pa, pb := a.SourcePage, b.SourcePage
	if pa == 0 || pb == 0 {
		return false
	}
	return pa < pb
}
