package scoring

import (
	"testing"

	"github.com/clinicore/scale-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func likertOptions() []models.ResponseOption {
	return []models.ResponseOption{
		{Value: "0", Label: "Not at all", Score: 0},
		{Value: "1", Label: "Several days", Score: 1},
		{Value: "2", Label: "More than half the days", Score: 2},
		{Value: "3", Label: "Nearly every day", Score: 3},
	}
}

// depressionScale builds a 10-item depression screener: nine scored likert
// items (item 9 is a critical trigger) plus one non-scored functional
// impairment item, two subscales, and four severity bands.
func depressionScale() *models.ScaleDefinition {
	cognitive := uint(1)
	somatic := uint(2)

	items := make([]models.ScaleItem, 0, 10)
	for i := 1; i <= 9; i++ {
		item := models.ScaleItem{
			ID:            uint(i),
			ScaleID:       1,
			Number:        i,
			QuestionText:  "symptom item",
			ResponseType:  models.ResponseLikert,
			Required:      true,
			ScoringWeight: 1,
		}
		switch i {
		case 1, 2:
			item.SubscaleID = &cognitive
		case 3, 4:
			item.SubscaleID = &somatic
		}
		if i == 9 {
			item.AlertTrigger = true
			item.AlertCondition = datatypes.NewJSONType(&models.AlertCondition{
				Operator:  "gte",
				Threshold: 1,
				Type:      models.AlertCritical,
				Message:   "Thoughts of self-harm reported",
			})
		}
		items = append(items, item)
	}
	items = append(items, models.ScaleItem{
		ID:            10,
		ScaleID:       1,
		Number:        10,
		QuestionText:  "functional impairment",
		ResponseType:  models.ResponseLikert,
		Required:      false,
		ScoringWeight: 0,
	})

	return &models.ScaleDefinition{
		ID:              1,
		Name:            "Depression Screener",
		Abbreviation:    "DS-10",
		TotalItems:      10,
		Mode:            models.ModeSelfAdministered,
		Method:          models.ScoringSum,
		IsActive:        true,
		ResponseOptions: datatypes.NewJSONType(likertOptions()),
		Items:           items,
		Subscales: []models.Subscale{
			{ID: cognitive, ScaleID: 1, Name: "Cognitive"},
			{ID: somatic, ScaleID: 1, Name: "Somatic"},
		},
		InterpretationRules: []models.InterpretationRule{
			{ID: 1, ScaleID: 1, MinScore: 0, MaxScore: 4, Severity: models.SeverityMinimal, Label: "Minimal"},
			{ID: 2, ScaleID: 1, MinScore: 5, MaxScore: 9, Severity: models.SeverityMild, Label: "Mild"},
			{ID: 3, ScaleID: 1, MinScore: 10, MaxScore: 14, Severity: models.SeverityModerate, Label: "Moderate"},
			{ID: 4, ScaleID: 1, MinScore: 15, MaxScore: 27, Severity: models.SeveritySevere, Label: "Severe"},
		},
	}
}

func respond(itemID uint, score float64) models.ItemResponse {
	labels := likertOptions()
	var value, label string
	for _, opt := range labels {
		if opt.Score == score {
			value, label = opt.Value, opt.Label
		}
	}
	return models.ItemResponse{
		AdministrationID: 1,
		ItemID:           itemID,
		ItemNumber:       int(itemID),
		ResponseValue:    value,
		ResponseLabel:    label,
		ScoreValue:       score,
	}
}

func fullResponseSet(scores ...float64) []models.ItemResponse {
	responses := make([]models.ItemResponse, 0, len(scores))
	for i, score := range scores {
		responses = append(responses, respond(uint(i+1), score))
	}
	return responses
}

func TestComputeResults_FullAdministration(t *testing.T) {
	scale := depressionScale()
	// Items 1-9 scored, item 10 answered but weighted 0.
	responses := fullResponseSet(2, 1, 3, 0, 2, 1, 1, 0, 1, 3)

	results, err := ComputeResults(scale, responses)
	require.NoError(t, err)

	assert.Equal(t, 11.0, results.TotalScore)
	assert.Equal(t, 27.0, results.MaxScore)
	assert.Equal(t, 10, results.ValidResponses)
	assert.Equal(t, 100.0, results.CompletionPercentage)
	assert.False(t, results.Partial)

	require.NotNil(t, results.Interpretation)
	assert.Equal(t, models.SeverityModerate, results.Interpretation.Severity)
	assert.Equal(t, "Moderate", results.Interpretation.Label)
}

func TestComputeResults_Deterministic(t *testing.T) {
	scale := depressionScale()
	responses := fullResponseSet(1, 2, 0, 3, 1, 0, 2, 1, 0, 0)

	first, err := ComputeResults(scale, responses)
	require.NoError(t, err)
	second, err := ComputeResults(scale, responses)
	require.NoError(t, err)

	assert.Equal(t, first.TotalScore, second.TotalScore)
	assert.Equal(t, first.SubscaleScores, second.SubscaleScores)
	assert.Equal(t, first.Interpretation, second.Interpretation)
}

func TestComputeResults_ZeroWeightItemDoesNotScore(t *testing.T) {
	scale := depressionScale()
	responses := []models.ItemResponse{respond(10, 3)}

	results, err := ComputeResults(scale, responses)
	require.NoError(t, err)

	assert.Equal(t, 0.0, results.TotalScore)
	assert.Equal(t, 1, results.ValidResponses)
}

func TestComputeResults_PartialNeverInflates(t *testing.T) {
	scale := depressionScale()
	// Only three of ten items answered; the rest contribute nothing.
	responses := []models.ItemResponse{
		respond(1, 3),
		respond(2, 3),
		respond(3, 2),
	}

	results, err := ComputeResults(scale, responses)
	require.NoError(t, err)

	assert.Equal(t, 8.0, results.TotalScore)
	assert.Equal(t, 3, results.ValidResponses)
	assert.InDelta(t, 30.0, results.CompletionPercentage, 0.001)
	assert.True(t, results.Partial)
}

func TestComputeResults_SkippedResponsesContributeZero(t *testing.T) {
	scale := depressionScale()
	skipped := respond(2, 0)
	skipped.WasSkipped = true
	responses := []models.ItemResponse{respond(1, 3), skipped}

	results, err := ComputeResults(scale, responses)
	require.NoError(t, err)

	assert.Equal(t, 3.0, results.TotalScore)
	assert.Equal(t, 1, results.ValidResponses)
	assert.True(t, results.Partial)
}

func TestComputeResults_SubscaleScores(t *testing.T) {
	scale := depressionScale()
	responses := fullResponseSet(2, 1, 3, 2, 0, 0, 0, 0, 0, 0)

	results, err := ComputeResults(scale, responses)
	require.NoError(t, err)

	require.Len(t, results.SubscaleScores, 2)

	cognitive := results.SubscaleScores[1]
	assert.Equal(t, "Cognitive", cognitive.Name)
	assert.Equal(t, 3.0, cognitive.Score)
	assert.Equal(t, 2, cognitive.ItemCount)

	somatic := results.SubscaleScores[2]
	assert.Equal(t, "Somatic", somatic.Name)
	assert.Equal(t, 5.0, somatic.Score)
	assert.Equal(t, 2, somatic.ItemCount)
}

func TestComputeResults_UnknownItemFails(t *testing.T) {
	scale := depressionScale()
	responses := []models.ItemResponse{respond(99, 1)}

	_, err := ComputeResults(scale, responses)
	require.Error(t, err)

	var scoringErr *ScoringError
	assert.ErrorAs(t, err, &scoringErr)
	assert.Equal(t, uint(99), scoringErr.ItemID)
}

func TestComputeResults_InterpretationGapYieldsNil(t *testing.T) {
	scale := depressionScale()
	// Remove the mild band so scores 5-9 match nothing.
	scale.InterpretationRules = []models.InterpretationRule{
		scale.InterpretationRules[0],
		scale.InterpretationRules[2],
		scale.InterpretationRules[3],
	}
	responses := fullResponseSet(1, 1, 1, 1, 1, 1, 0, 0, 0, 0)

	results, err := ComputeResults(scale, responses)
	require.NoError(t, err)
	assert.Equal(t, 6.0, results.TotalScore)
	assert.Nil(t, results.Interpretation)
}

func TestComputeResults_OverlappingBandsYieldNil(t *testing.T) {
	scale := depressionScale()
	scale.InterpretationRules = []models.InterpretationRule{
		{ID: 1, ScaleID: 1, MinScore: 0, MaxScore: 10, Severity: models.SeverityMinimal, Label: "Low"},
		{ID: 2, ScaleID: 1, MinScore: 5, MaxScore: 27, Severity: models.SeveritySevere, Label: "High"},
	}
	responses := fullResponseSet(2, 2, 2, 0, 0, 0, 0, 0, 0, 0)

	results, err := ComputeResults(scale, responses)
	require.NoError(t, err)
	assert.Equal(t, 6.0, results.TotalScore)
	assert.Nil(t, results.Interpretation)
}

func TestItemContribution_ReverseScoring(t *testing.T) {
	scale := depressionScale()
	item := scale.ItemByID(1)
	require.NotNil(t, item)
	item.ReverseScored = true

	tests := []struct {
		selected float64
		expected float64
	}{
		{0, 3},
		{1, 2},
		{2, 1},
		{3, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ItemContribution(scale, item, tt.selected),
			"selected %v", tt.selected)
	}
}

func TestItemContribution_ReverseScoringAppliedOnce(t *testing.T) {
	scale := depressionScale()
	item := scale.ItemByID(1)
	item.ReverseScored = true

	responses := []models.ItemResponse{respond(1, 0)}
	results, err := ComputeResults(scale, responses)
	require.NoError(t, err)

	// The stored raw score stays 0; only the computed total reflects the
	// inversion.
	assert.Equal(t, 3.0, results.TotalScore)
	assert.Equal(t, 0.0, responses[0].ScoreValue)
}

func TestItemContribution_WeightApplied(t *testing.T) {
	scale := depressionScale()
	item := scale.ItemByID(1)
	item.ScoringWeight = 2.5

	assert.Equal(t, 7.5, ItemContribution(scale, item, 3))
}

func TestMaxPossibleScore(t *testing.T) {
	scale := depressionScale()
	// Nine weighted items at max 3, one item weighted 0.
	assert.Equal(t, 27.0, MaxPossibleScore(scale))
}

func TestSubscaleMaxScore(t *testing.T) {
	scale := depressionScale()
	assert.Equal(t, 6.0, SubscaleMaxScore(scale, 1))
	assert.Equal(t, 6.0, SubscaleMaxScore(scale, 2))
	assert.Equal(t, 0.0, SubscaleMaxScore(scale, 99))
}

func TestOptionScoreBounds(t *testing.T) {
	minScore, maxScore := OptionScoreBounds(likertOptions())
	assert.Equal(t, 0.0, minScore)
	assert.Equal(t, 3.0, maxScore)

	minScore, maxScore = OptionScoreBounds(nil)
	assert.Equal(t, 0.0, minScore)
	assert.Equal(t, 0.0, maxScore)
}
