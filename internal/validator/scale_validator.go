package validator

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/clinicore/scale-service/internal/models"
	"github.com/clinicore/scale-service/internal/scoring"
)

// DefinitionError reports a malformed scale definition. It is fatal: an
// administration must not start against an invalid definition.
type DefinitionError struct {
	ScaleID  uint     `json:"scale_id"`
	Problems []string `json:"problems"`
}

func (e *DefinitionError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("invalid scale definition %d: %s", e.ScaleID, e.Problems[0])
	}
	return fmt.Sprintf("invalid scale definition %d: %d problems found", e.ScaleID, len(e.Problems))
}

// IsDefinitionError checks if err is a DefinitionError.
func IsDefinitionError(err error) bool {
	var de *DefinitionError
	return errors.As(err, &de)
}

// ScaleValidator audits a scale definition against its structural
// invariants at load time, before any administration starts.
type ScaleValidator struct{}

// NewScaleValidator creates a new scale validator
func NewScaleValidator() *ScaleValidator {
	return &ScaleValidator{}
}

// ValidateDefinition runs all invariant checks and returns a single
// DefinitionError collecting every problem found, or nil.
func (v *ScaleValidator) ValidateDefinition(scale *models.ScaleDefinition) error {
	var problems []string

	problems = append(problems, v.checkItems(scale)...)
	problems = append(problems, v.checkSubscales(scale)...)
	problems = append(problems, v.checkInterpretationRules(scale)...)

	if len(problems) > 0 {
		return &DefinitionError{ScaleID: scale.ID, Problems: problems}
	}
	return nil
}

func (v *ScaleValidator) checkItems(scale *models.ScaleDefinition) []string {
	var problems []string

	if scale.TotalItems != len(scale.Items) {
		problems = append(problems, fmt.Sprintf(
			"total_items is %d but definition has %d items", scale.TotalItems, len(scale.Items)))
	}

	seenNumbers := make(map[int]bool)
	for i := range scale.Items {
		item := &scale.Items[i]

		if item.Number < 1 || item.Number > len(scale.Items) {
			problems = append(problems, fmt.Sprintf(
				"item %d has number %d outside [1, %d]", item.ID, item.Number, len(scale.Items)))
		}
		if seenNumbers[item.Number] {
			problems = append(problems, fmt.Sprintf("duplicate item number %d", item.Number))
		}
		seenNumbers[item.Number] = true

		if item.ScoringWeight < 0 {
			problems = append(problems, fmt.Sprintf("item %d has negative scoring weight", item.Number))
		}

		options := scale.OptionsFor(item)
		switch item.ResponseType {
		case models.ResponseLikert, models.ResponseYesNo, models.ResponseMultipleChoice:
			if len(options) == 0 {
				problems = append(problems, fmt.Sprintf(
					"item %d is %s but has no response options", item.Number, item.ResponseType))
			}
		}

		seenValues := make(map[string]bool)
		for _, opt := range options {
			if seenValues[opt.Value] {
				problems = append(problems, fmt.Sprintf(
					"item %d has duplicate option value %q", item.Number, opt.Value))
			}
			seenValues[opt.Value] = true
		}

		// Reverse scoring inverts against the item's own option bounds, so
		// those bounds must exist.
		if item.ReverseScored && len(options) == 0 {
			problems = append(problems, fmt.Sprintf(
				"item %d is reverse-scored but has no options to reverse against", item.Number))
		}

		if item.AlertTrigger {
			cond := item.AlertCondition.Data()
			if cond == nil {
				problems = append(problems, fmt.Sprintf(
					"item %d is an alert trigger but has no alert condition", item.Number))
			} else if !validAlertOperator(cond.Operator) {
				problems = append(problems, fmt.Sprintf(
					"item %d has unknown alert operator %q", item.Number, cond.Operator))
			}
		}
	}

	return problems
}

func (v *ScaleValidator) checkSubscales(scale *models.ScaleDefinition) []string {
	var problems []string

	for i := range scale.Items {
		item := &scale.Items[i]
		if item.SubscaleID == nil {
			continue
		}
		if scale.SubscaleByID(*item.SubscaleID) == nil {
			problems = append(problems, fmt.Sprintf(
				"item %d references unknown subscale %d", item.Number, *item.SubscaleID))
		}
	}

	return problems
}

// checkInterpretationRules verifies that the bands are well-formed,
// non-overlapping, and cover every integer score in [0, maxScore] exactly
// once.
func (v *ScaleValidator) checkInterpretationRules(scale *models.ScaleDefinition) []string {
	var problems []string

	rules := scale.InterpretationRules
	if len(rules) == 0 {
		return []string{"definition has no interpretation rules"}
	}

	for i := range rules {
		if rules[i].MinScore > rules[i].MaxScore {
			problems = append(problems, fmt.Sprintf(
				"interpretation rule %q has min_score above max_score", rules[i].Label))
		}
	}

	sorted := make([]models.InterpretationRule, len(rules))
	copy(sorted, rules)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinScore < sorted[j].MinScore })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].MinScore <= sorted[i-1].MaxScore {
			problems = append(problems, fmt.Sprintf(
				"interpretation rules %q and %q overlap", sorted[i-1].Label, sorted[i].Label))
		}
	}

	maxScore := scoring.MaxPossibleScore(scale)
	for score := 0; score <= int(math.Floor(maxScore)); score++ {
		matches := 0
		for i := range rules {
			if float64(score) >= rules[i].MinScore && float64(score) <= rules[i].MaxScore {
				matches++
			}
		}
		if matches != 1 {
			problems = append(problems, fmt.Sprintf(
				"score %d matches %d interpretation rules, expected exactly 1", score, matches))
		}
	}

	return problems
}

func validAlertOperator(op string) bool {
	switch op {
	case "gte", "gt", "eq", "lte", "lt":
		return true
	}
	return false
}
