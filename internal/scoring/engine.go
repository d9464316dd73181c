package scoring

import (
	"time"

	"github.com/clinicore/scale-service/internal/models"
)

// ComputeResults scores a complete or partial response set against a scale
// definition. It is a pure function: deterministic, and it never mutates its
// inputs.
//
// Reverse scoring is applied here, exactly once, against the item's own
// option set. Items with no response (or an explicitly skipped one)
// contribute 0 without erroring, so abandoned administrations can still be
// scored for analytics; ValidResponses and CompletionPercentage reflect the
// gap and Partial tags the result.
//
// Interpretation stays nil when the total score matches zero or multiple
// bands. That is a content-authoring defect, surfaced to the caller instead
// of silently picking a band.
func ComputeResults(scale *models.ScaleDefinition, responses []models.ItemResponse) (*models.AssessmentResults, error) {
	results := &models.AssessmentResults{
		MaxScore: MaxPossibleScore(scale),
		ScoredAt: time.Now().UTC(),
	}

	subscaleScores := make(map[uint]models.SubscaleScore)

	for i := range responses {
		resp := &responses[i]

		item := scale.ItemByID(resp.ItemID)
		if item == nil {
			return nil, &ScoringError{ItemID: resp.ItemID}
		}
		if resp.WasSkipped {
			continue
		}

		contribution := ItemContribution(scale, item, resp.ScoreValue)
		results.TotalScore += contribution
		results.ValidResponses++

		if item.SubscaleID != nil {
			bucket := subscaleScores[*item.SubscaleID]
			if bucket.ItemCount == 0 {
				bucket.SubscaleID = *item.SubscaleID
				if sub := scale.SubscaleByID(*item.SubscaleID); sub != nil {
					bucket.Name = sub.Name
				}
			}
			bucket.Score += contribution
			bucket.ItemCount++
			subscaleScores[*item.SubscaleID] = bucket
		}
	}

	if len(subscaleScores) > 0 {
		results.SubscaleScores = subscaleScores
	}

	results.Interpretation = matchInterpretation(scale.InterpretationRules, results.TotalScore)
	results.Alerts = EvaluateAlerts(scale, responses)

	if scale.TotalItems > 0 {
		results.CompletionPercentage = float64(results.ValidResponses) / float64(scale.TotalItems) * 100
	}
	results.Partial = results.ValidResponses < scale.TotalItems

	return results, nil
}

// ItemContribution computes one item's contribution to the total score:
// reverse scoring against the item's own option bounds, then the scoring
// weight. A weight of 0 marks a non-scored item.
func ItemContribution(scale *models.ScaleDefinition, item *models.ScaleItem, selectedScore float64) float64 {
	score := selectedScore
	if item.ReverseScored {
		minScore, maxScore := OptionScoreBounds(scale.OptionsFor(item))
		score = (maxScore + minScore) - score
	}
	return score * item.ScoringWeight
}

// OptionScoreBounds returns the minimum and maximum score within an option
// set. Both are 0 for an empty set.
func OptionScoreBounds(options []models.ResponseOption) (float64, float64) {
	if len(options) == 0 {
		return 0, 0
	}
	minScore, maxScore := options[0].Score, options[0].Score
	for _, opt := range options[1:] {
		if opt.Score < minScore {
			minScore = opt.Score
		}
		if opt.Score > maxScore {
			maxScore = opt.Score
		}
	}
	return minScore, maxScore
}

// MaxPossibleScore derives the highest achievable total: the sum over items
// of the max option score, respecting weights.
func MaxPossibleScore(scale *models.ScaleDefinition) float64 {
	var total float64
	for i := range scale.Items {
		item := &scale.Items[i]
		_, maxScore := OptionScoreBounds(scale.OptionsFor(item))
		total += maxScore * item.ScoringWeight
	}
	return total
}

// SubscaleMaxScore derives the highest achievable score for one subscale.
func SubscaleMaxScore(scale *models.ScaleDefinition, subscaleID uint) float64 {
	var total float64
	for i := range scale.Items {
		item := &scale.Items[i]
		if item.SubscaleID == nil || *item.SubscaleID != subscaleID {
			continue
		}
		_, maxScore := OptionScoreBounds(scale.OptionsFor(item))
		total += maxScore * item.ScoringWeight
	}
	return total
}

// matchInterpretation returns the rendering of the single rule whose
// inclusive range contains the score, or nil on zero or multiple matches.
func matchInterpretation(rules []models.InterpretationRule, score float64) *models.Interpretation {
	var matched *models.InterpretationRule
	for i := range rules {
		rule := &rules[i]
		if score < rule.MinScore || score > rule.MaxScore {
			continue
		}
		if matched != nil {
			return nil // overlapping bands - ambiguous
		}
		matched = rule
	}
	if matched == nil {
		return nil
	}
	return &models.Interpretation{
		Severity:        matched.Severity,
		Label:           matched.Label,
		Description:     matched.Description,
		Recommendations: matched.Recommendations.Data(),
	}
}
