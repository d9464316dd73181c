package administration

import (
	"testing"

	"github.com/clinicore/scale-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func anxietyScale(mode models.AdministrationMode) *models.ScaleDefinition {
	options := []models.ResponseOption{
		{Value: "0", Label: "Not at all", Score: 0},
		{Value: "1", Label: "Several days", Score: 1},
		{Value: "2", Label: "More than half the days", Score: 2},
		{Value: "3", Label: "Nearly every day", Score: 3},
	}

	items := make([]models.ScaleItem, 0, 4)
	for i := 1; i <= 3; i++ {
		items = append(items, models.ScaleItem{
			ID:            uint(i),
			ScaleID:       7,
			Number:        i,
			QuestionText:  "anxiety item",
			ResponseType:  models.ResponseLikert,
			Required:      true,
			ScoringWeight: 1,
		})
	}
	items = append(items, models.ScaleItem{
		ID:            4,
		ScaleID:       7,
		Number:        4,
		QuestionText:  "optional note",
		ResponseType:  models.ResponseText,
		Required:      false,
		ScoringWeight: 0,
	})

	return &models.ScaleDefinition{
		ID:              7,
		Name:            "Anxiety Screener",
		Abbreviation:    "AS-4",
		TotalItems:      4,
		Mode:            mode,
		Method:          models.ScoringSum,
		IsActive:        true,
		ResponseOptions: datatypes.NewJSONType(options),
		Items:           items,
		InterpretationRules: []models.InterpretationRule{
			{ID: 1, ScaleID: 7, MinScore: 0, MaxScore: 4, Severity: models.SeverityMinimal, Label: "Minimal"},
			{ID: 2, ScaleID: 7, MinScore: 5, MaxScore: 9, Severity: models.SeverityModerate, Label: "Elevated"},
		},
	}
}

func startedMachine(t *testing.T, mode models.AdministrationMode) *StateMachine {
	t.Helper()
	scale := anxietyScale(mode)
	admin := &models.ScaleAdministration{ID: 11, SessionID: 5, ScaleID: scale.ID, Status: models.AdministrationNotStarted}

	m, err := New(scale, admin)
	require.NoError(t, err)
	require.NoError(t, m.Start())
	return m
}

func answer(itemID uint, value string, score float64) SaveResponseRequest {
	return SaveResponseRequest{ItemID: itemID, Value: value, Label: "label", Score: score}
}

func TestNew_ScaleMismatch(t *testing.T) {
	scale := anxietyScale(models.ModeClinicianAdministered)
	admin := &models.ScaleAdministration{ScaleID: scale.ID + 1}

	_, err := New(scale, admin)
	assert.ErrorIs(t, err, ErrScaleMismatch)
}

func TestStart_Transitions(t *testing.T) {
	scale := anxietyScale(models.ModeClinicianAdministered)
	admin := &models.ScaleAdministration{ScaleID: scale.ID, Status: models.AdministrationNotStarted}
	m, err := New(scale, admin)
	require.NoError(t, err)

	require.NoError(t, m.Start())
	assert.Equal(t, models.AdministrationInProgress, admin.Status)
	assert.NotNil(t, admin.StartedAt)
	assert.Equal(t, 0, admin.CurrentItemIndex)

	// Starting again is a resume, not an error.
	startedAt := admin.StartedAt
	require.NoError(t, m.Start())
	assert.Equal(t, startedAt, admin.StartedAt)

	admin.Status = models.AdministrationCompleted
	assert.ErrorIs(t, m.Start(), ErrAlreadyCompleted)
}

func TestSaveResponse_LastWriteWins(t *testing.T) {
	m := startedMachine(t, models.ModeClinicianAdministered)

	first, err := m.SaveResponse(answer(1, "1", 1))
	require.NoError(t, err)
	assert.Equal(t, 1.0, first.ScoreValue)

	// Same item answered again replaces the prior response.
	second, err := m.SaveResponse(answer(1, "3", 3))
	require.NoError(t, err)
	assert.Equal(t, 3.0, second.ScoreValue)

	admin := m.Administration()
	assert.Len(t, admin.Responses, 1)
	assert.Equal(t, "3", admin.ResponseFor(1).ResponseValue)
}

func TestSaveResponse_Validation(t *testing.T) {
	tests := []struct {
		name    string
		request SaveResponseRequest
		message string
	}{
		{
			name:    "unknown item",
			request: answer(99, "1", 1),
			message: "item does not belong to this scale",
		},
		{
			name:    "required item skipped",
			request: SaveResponseRequest{ItemID: 1, Skipped: true},
			message: "item is required and cannot be skipped",
		},
		{
			name:    "required item empty value",
			request: SaveResponseRequest{ItemID: 1, Value: "  "},
			message: "item is required and response value is empty",
		},
		{
			name:    "value not in option set",
			request: answer(1, "7", 7),
			message: "value is not one of the item's response options",
		},
		{
			name:    "score does not match option",
			request: answer(1, "2", 3),
			message: "score does not match the selected option",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := startedMachine(t, models.ModeClinicianAdministered)
			_, err := m.SaveResponse(tt.request)
			require.Error(t, err)

			var rve *ResponseValidationError
			require.ErrorAs(t, err, &rve)
			assert.Equal(t, tt.message, rve.Message)
			assert.Empty(t, m.Administration().Responses)
		})
	}
}

func TestSaveResponse_OptionalSkip(t *testing.T) {
	m := startedMachine(t, models.ModeClinicianAdministered)

	resp, err := m.SaveResponse(SaveResponseRequest{ItemID: 4, Skipped: true})
	require.NoError(t, err)
	assert.True(t, resp.WasSkipped)

	answered, percent := m.Progress()
	assert.Equal(t, 0, answered)
	assert.Equal(t, 0.0, percent)
}

func TestSaveResponse_FreeTextAcceptsAnyValue(t *testing.T) {
	m := startedMachine(t, models.ModeClinicianAdministered)

	resp, err := m.SaveResponse(SaveResponseRequest{ItemID: 4, Value: "patient reports poor sleep"})
	require.NoError(t, err)
	assert.Equal(t, "patient reports poor sleep", resp.ResponseValue)
}

func TestSaveResponse_AutoAdvance(t *testing.T) {
	m := startedMachine(t, models.ModeSelfAdministered)

	_, err := m.SaveResponse(answer(1, "2", 2))
	require.NoError(t, err)
	assert.Equal(t, 1, m.Administration().CurrentItemIndex)

	// Re-answering an earlier item must not move the index.
	_, err = m.SaveResponse(answer(1, "0", 0))
	require.NoError(t, err)
	assert.Equal(t, 1, m.Administration().CurrentItemIndex)
}

func TestSaveResponse_NoAutoAdvanceForClinicianMode(t *testing.T) {
	m := startedMachine(t, models.ModeClinicianAdministered)

	_, err := m.SaveResponse(answer(1, "2", 2))
	require.NoError(t, err)
	assert.Equal(t, 0, m.Administration().CurrentItemIndex)
}

func TestNext_RequiresResponseOnRequiredItem(t *testing.T) {
	m := startedMachine(t, models.ModeClinicianAdministered)

	_, err := m.Next()
	assert.ErrorIs(t, err, ErrCannotProceed)

	_, err = m.SaveResponse(answer(1, "1", 1))
	require.NoError(t, err)

	atEnd, err := m.Next()
	require.NoError(t, err)
	assert.False(t, atEnd)
	assert.Equal(t, 1, m.Administration().CurrentItemIndex)
}

func TestNext_AtEnd(t *testing.T) {
	m := startedMachine(t, models.ModeClinicianAdministered)

	for i := uint(1); i <= 3; i++ {
		_, err := m.SaveResponse(answer(i, "1", 1))
		require.NoError(t, err)
		_, err = m.Next()
		require.NoError(t, err)
	}

	// Index sits on the optional last item.
	assert.Equal(t, 3, m.Administration().CurrentItemIndex)

	atEnd, err := m.Next()
	require.NoError(t, err)
	assert.True(t, atEnd)
	assert.Equal(t, 3, m.Administration().CurrentItemIndex)
}

func TestPrevious_ModeGating(t *testing.T) {
	m := startedMachine(t, models.ModeSelfAdministered)
	assert.ErrorIs(t, m.Previous(), ErrNavigationDisabled)

	m = startedMachine(t, models.ModeClinicianAdministered)
	_, err := m.SaveResponse(answer(1, "1", 1))
	require.NoError(t, err)
	_, err = m.Next()
	require.NoError(t, err)

	require.NoError(t, m.Previous())
	assert.Equal(t, 0, m.Administration().CurrentItemIndex)

	// Already at the first item: stays put.
	require.NoError(t, m.Previous())
	assert.Equal(t, 0, m.Administration().CurrentItemIndex)
}

func TestGoTo(t *testing.T) {
	m := startedMachine(t, models.ModeClinicianAdministered)

	require.NoError(t, m.GoTo(2))
	assert.Equal(t, 2, m.Administration().CurrentItemIndex)
	assert.Equal(t, 3, m.CurrentItem().Number)

	assert.ErrorIs(t, m.GoTo(-1), ErrIndexOutOfRange)
	assert.ErrorIs(t, m.GoTo(4), ErrIndexOutOfRange)

	self := startedMachine(t, models.ModeSelfAdministered)
	assert.ErrorIs(t, self.GoTo(1), ErrNavigationDisabled)
}

func TestComplete_BlocksOnUnansweredRequired(t *testing.T) {
	m := startedMachine(t, models.ModeClinicianAdministered)

	_, err := m.SaveResponse(answer(1, "1", 1))
	require.NoError(t, err)

	_, err = m.Complete()
	assert.ErrorIs(t, err, ErrRequiredUnanswered)
	// Failed completion leaves the administration in progress.
	assert.Equal(t, models.AdministrationInProgress, m.Administration().Status)
}

func TestComplete_ScoresAndTransitions(t *testing.T) {
	m := startedMachine(t, models.ModeClinicianAdministered)

	for i := uint(1); i <= 3; i++ {
		_, err := m.SaveResponse(answer(i, "2", 2))
		require.NoError(t, err)
	}

	results, err := m.Complete()
	require.NoError(t, err)
	assert.Equal(t, 6.0, results.TotalScore)
	assert.False(t, results.Partial)
	require.NotNil(t, results.Interpretation)
	assert.Equal(t, models.SeverityModerate, results.Interpretation.Severity)

	admin := m.Administration()
	assert.Equal(t, models.AdministrationCompleted, admin.Status)
	assert.NotNil(t, admin.CompletedAt)
	require.NotNil(t, admin.Results.Data())
	assert.Equal(t, 6.0, admin.Results.Data().TotalScore)

	// No further mutations after completion.
	_, err = m.SaveResponse(answer(1, "0", 0))
	assert.ErrorIs(t, err, ErrNotActive)
	_, err = m.Complete()
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestAbandon_TagsPartialResults(t *testing.T) {
	m := startedMachine(t, models.ModeClinicianAdministered)

	_, err := m.SaveResponse(answer(1, "3", 3))
	require.NoError(t, err)

	results, err := m.Abandon()
	require.NoError(t, err)
	assert.True(t, results.Partial)
	assert.Equal(t, 3.0, results.TotalScore)
	assert.Equal(t, models.AdministrationAbandoned, m.Administration().Status)

	_, err = m.Abandon()
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestCurrentItem(t *testing.T) {
	m := startedMachine(t, models.ModeClinicianAdministered)

	item := m.CurrentItem()
	require.NotNil(t, item)
	assert.Equal(t, 1, item.Number)
}

func TestProgress(t *testing.T) {
	m := startedMachine(t, models.ModeClinicianAdministered)

	_, err := m.SaveResponse(answer(1, "1", 1))
	require.NoError(t, err)
	_, err = m.SaveResponse(answer(2, "1", 1))
	require.NoError(t, err)

	answered, percent := m.Progress()
	assert.Equal(t, 2, answered)
	assert.Equal(t, 50.0, percent)
}
