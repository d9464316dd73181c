package scoring

import (
	"testing"

	"github.com/clinicore/scale-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestEvaluateAlerts_CriticalItemIndependentOfTotal(t *testing.T) {
	scale := depressionScale()
	// Every item at 0 except the self-harm item at 1: total score lands in
	// the minimal band, the critical alert fires anyway.
	responses := fullResponseSet(0, 0, 0, 0, 0, 0, 0, 0, 1, 0)

	alerts := EvaluateAlerts(scale, responses)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertCritical, alerts[0].Type)
	assert.Equal(t, uint(9), alerts[0].ItemID)
	assert.Equal(t, 9, alerts[0].ItemNumber)
	assert.Equal(t, 1.0, alerts[0].Score)
	assert.Equal(t, "Thoughts of self-harm reported", alerts[0].Message)

	results, err := ComputeResults(scale, responses)
	require.NoError(t, err)
	require.NotNil(t, results.Interpretation)
	assert.Equal(t, models.SeverityMinimal, results.Interpretation.Severity)
	assert.True(t, results.HasCriticalAlert())
}

func TestEvaluateAlerts_BelowThresholdStaysSilent(t *testing.T) {
	scale := depressionScale()
	responses := fullResponseSet(3, 3, 3, 3, 3, 3, 3, 3, 0, 0)

	alerts := EvaluateAlerts(scale, responses)
	assert.Empty(t, alerts)
}

func TestEvaluateAlerts_SkippedTriggerItem(t *testing.T) {
	scale := depressionScale()
	skipped := respond(9, 3)
	skipped.WasSkipped = true

	alerts := EvaluateAlerts(scale, []models.ItemResponse{skipped})
	assert.Empty(t, alerts)
}

func TestEvaluateAlerts_UnknownItemIgnored(t *testing.T) {
	scale := depressionScale()
	alerts := EvaluateAlerts(scale, []models.ItemResponse{respond(99, 3)})
	assert.Empty(t, alerts)
}

func TestEvaluateAlerts_Operators(t *testing.T) {
	tests := []struct {
		operator  string
		threshold float64
		score     float64
		fires     bool
	}{
		{"gte", 2, 2, true},
		{"gte", 2, 1, false},
		{"gt", 2, 2, false},
		{"gt", 2, 3, true},
		{"eq", 2, 2, true},
		{"eq", 2, 3, false},
		{"lte", 1, 1, true},
		{"lte", 1, 2, false},
		{"lt", 1, 0, true},
		{"lt", 1, 1, false},
		{"bogus", 1, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.operator, func(t *testing.T) {
			scale := depressionScale()
			item := scale.ItemByID(1)
			item.AlertTrigger = true
			item.AlertCondition = datatypes.NewJSONType(&models.AlertCondition{
				Operator:  tt.operator,
				Threshold: tt.threshold,
				Type:      models.AlertWarning,
				Message:   "threshold reached",
			})

			alerts := EvaluateAlerts(scale, []models.ItemResponse{respond(1, tt.score)})
			if tt.fires {
				assert.Len(t, alerts, 1)
			} else {
				assert.Empty(t, alerts)
			}
		})
	}
}

func TestEvaluateAlerts_CompositeRule(t *testing.T) {
	scale := depressionScale()
	scale.CompositeAlertRules = datatypes.NewJSONType([]models.CompositeAlertRule{
		{
			MinItems:     4,
			MinItemScore: 2,
			Type:         models.AlertWarning,
			Message:      "High symptom burden",
		},
	})

	// Three items at 2: rule stays silent.
	alerts := EvaluateAlerts(scale, fullResponseSet(2, 2, 2, 0, 0, 0, 0, 0, 0, 0))
	assert.Empty(t, alerts)

	// Four items at or above 2: rule fires with the qualifying count.
	alerts = EvaluateAlerts(scale, fullResponseSet(2, 2, 2, 3, 0, 0, 0, 0, 0, 0))
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertWarning, alerts[0].Type)
	assert.Equal(t, "High symptom burden", alerts[0].Message)
	assert.Equal(t, 4.0, alerts[0].Score)
	assert.Zero(t, alerts[0].ItemID)
}

func TestEvaluateAlerts_CompositeAndItemAlertsStack(t *testing.T) {
	scale := depressionScale()
	scale.CompositeAlertRules = datatypes.NewJSONType([]models.CompositeAlertRule{
		{MinItems: 2, MinItemScore: 3, Type: models.AlertWarning, Message: "burden"},
	})

	alerts := EvaluateAlerts(scale, fullResponseSet(3, 3, 0, 0, 0, 0, 0, 0, 3, 0))
	require.Len(t, alerts, 2)
	assert.Equal(t, models.AlertCritical, alerts[0].Type)
	assert.Equal(t, models.AlertWarning, alerts[1].Type)
}

func TestEvaluateAlerts_IncrementalEvaluation(t *testing.T) {
	scale := depressionScale()

	// One response in, long before completion: the alert already fires.
	alerts := EvaluateAlerts(scale, []models.ItemResponse{respond(9, 2)})
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertCritical, alerts[0].Type)
}
