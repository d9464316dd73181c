package scoring

import (
	"github.com/clinicore/scale-service/internal/models"
)

// EvaluateAlerts inspects item responses against per-item trigger conditions
// and the scale's composite rules. It is safe to call incrementally after
// each response, not only at completion, so safety-critical findings surface
// to an administering clinician immediately.
//
// Per-item alerts are evaluated against the raw selected score, before
// reverse scoring or weighting, and independently of the total-score
// interpretation: an aggregate "minimal" severity never masks a single
// dangerous response. Responses referencing unknown items are ignored here;
// ComputeResults is where that becomes an error.
func EvaluateAlerts(scale *models.ScaleDefinition, responses []models.ItemResponse) []models.Alert {
	alerts := []models.Alert{}

	for i := range responses {
		resp := &responses[i]
		if resp.WasSkipped {
			continue
		}

		item := scale.ItemByID(resp.ItemID)
		if item == nil || !item.AlertTrigger {
			continue
		}
		cond := item.AlertCondition.Data()
		if cond == nil {
			continue
		}

		if conditionMatches(cond.Operator, resp.ScoreValue, cond.Threshold) {
			alerts = append(alerts, models.Alert{
				Type:       cond.Type,
				ItemID:     item.ID,
				ItemNumber: item.Number,
				Message:    cond.Message,
				Score:      resp.ScoreValue,
			})
		}
	}

	alerts = append(alerts, evaluateCompositeRules(scale, responses)...)

	return alerts
}

// evaluateCompositeRules applies scale-level predicates over the full
// response set, e.g. ">= 4 items scored >= 2" for symptom burden.
func evaluateCompositeRules(scale *models.ScaleDefinition, responses []models.ItemResponse) []models.Alert {
	rules := scale.CompositeAlertRules.Data()
	if len(rules) == 0 {
		return nil
	}

	var alerts []models.Alert
	for _, rule := range rules {
		count := 0
		for i := range responses {
			resp := &responses[i]
			if resp.WasSkipped {
				continue
			}
			if scale.ItemByID(resp.ItemID) == nil {
				continue
			}
			if resp.ScoreValue >= rule.MinItemScore {
				count++
			}
		}
		if count >= rule.MinItems {
			alerts = append(alerts, models.Alert{
				Type:    rule.Type,
				Message: rule.Message,
				Score:   float64(count),
			})
		}
	}
	return alerts
}

func conditionMatches(operator string, score, threshold float64) bool {
	switch operator {
	case "gte":
		return score >= threshold
	case "gt":
		return score > threshold
	case "eq":
		return score == threshold
	case "lte":
		return score <= threshold
	case "lt":
		return score < threshold
	default:
		return false
	}
}
