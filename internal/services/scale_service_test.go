package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/clinicore/scale-service/internal/cache"
	"github.com/clinicore/scale-service/internal/models"
	"github.com/clinicore/scale-service/internal/repositories"
	"github.com/clinicore/scale-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeCache is an in-memory CacheService for tests.
type fakeCache struct {
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = data
	return nil
}

func (f *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, ok := f.data[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func (f *fakeCache) DeletePattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range f.data {
		if strings.HasPrefix(key, prefix) {
			delete(f.data, key)
		}
	}
	return nil
}

func registerRequest() *RegisterScaleRequest {
	binary := []models.ResponseOption{
		{Value: "0", Label: "No", Score: 0},
		{Value: "1", Label: "Yes", Score: 1},
	}
	core := "Core"

	return &RegisterScaleRequest{
		Name:            "Sleep Check",
		Abbreviation:    "SC-2",
		Mode:            models.ModeClinicianAdministered,
		Method:          models.ScoringSum,
		ResponseOptions: binary,
		Items: []RegisterScaleItem{
			{Number: 1, QuestionText: "trouble falling asleep", ResponseType: models.ResponseYesNo, SubscaleName: &core},
			{Number: 2, QuestionText: "waking during the night", ResponseType: models.ResponseYesNo},
		},
		Subscales: []RegisterSubscale{{Name: core}},
		InterpretationRules: []RegisterInterpretationRule{
			{MinScore: 0, MaxScore: 1, Severity: models.SeverityMinimal, Label: "Minimal"},
			{MinScore: 2, MaxScore: 2, Severity: models.SeveritySevere, Label: "Elevated"},
		},
	}
}

func TestScaleService_Register(t *testing.T) {
	repo := NewMockRepository()

	repo.scale.On("GetByAbbreviation", mock.Anything, "SC-2").Return(nil, gorm.ErrRecordNotFound)
	repo.scale.On("Create", mock.Anything, mock.AnythingOfType("*models.ScaleDefinition")).
		Run(func(args mock.Arguments) {
			scale := args.Get(1).(*models.ScaleDefinition)
			scale.ID = 3
			scale.Subscales[0].ID = 31
		}).Return(nil)
	repo.scale.On("UpdateItem", mock.Anything, mock.MatchedBy(func(item *models.ScaleItem) bool {
		return item.Number == 1 && item.SubscaleID != nil && *item.SubscaleID == 31
	})).Return(nil)
	repo.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	svc := NewScaleService(repo, testLogger(), validator.New(), newFakeCache())

	scale, err := svc.Register(context.Background(), registerRequest(), "clinician-1")
	require.NoError(t, err)

	assert.Equal(t, uint(3), scale.ID)
	assert.Equal(t, 2, scale.TotalItems)
	assert.True(t, scale.IsActive)
	assert.Equal(t, 2.0, scale.MaxScore)
	// Item defaults apply when the request leaves them unset.
	assert.True(t, scale.Items[0].Required)
	assert.Equal(t, 1.0, scale.Items[0].ScoringWeight)

	repo.scale.AssertExpectations(t)
}

func TestScaleService_Register_DuplicateAbbreviation(t *testing.T) {
	repo := NewMockRepository()
	repo.scale.On("GetByAbbreviation", mock.Anything, "SC-2").
		Return(&models.ScaleDefinition{ID: 1, Abbreviation: "SC-2"}, nil)

	svc := NewScaleService(repo, testLogger(), validator.New(), newFakeCache())

	_, err := svc.Register(context.Background(), registerRequest(), "clinician-1")
	assert.ErrorIs(t, err, ErrScaleAlreadyExists)
}

func TestScaleService_Register_RejectsBadDefinition(t *testing.T) {
	repo := NewMockRepository()
	repo.scale.On("GetByAbbreviation", mock.Anything, "SC-2").Return(nil, gorm.ErrRecordNotFound)

	req := registerRequest()
	// Leave a gap: score 2 matches no band.
	req.InterpretationRules = req.InterpretationRules[:1]

	svc := NewScaleService(repo, testLogger(), validator.New(), newFakeCache())

	_, err := svc.Register(context.Background(), req, "clinician-1")
	require.Error(t, err)
	assert.True(t, validator.IsDefinitionError(err))
	repo.scale.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestScaleService_Register_UnknownSubscaleName(t *testing.T) {
	repo := NewMockRepository()
	repo.scale.On("GetByAbbreviation", mock.Anything, "SC-2").Return(nil, gorm.ErrRecordNotFound)

	req := registerRequest()
	ghost := "Ghost"
	req.Items[1].SubscaleName = &ghost

	svc := NewScaleService(repo, testLogger(), validator.New(), newFakeCache())

	_, err := svc.Register(context.Background(), req, "clinician-1")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestScaleService_GetByID_ReadThroughCache(t *testing.T) {
	repo := NewMockRepository()
	scale := screeningScale()
	repo.scale.On("GetByID", mock.Anything, uint(7)).Return(scale, nil).Once()

	svc := NewScaleService(repo, testLogger(), validator.New(), newFakeCache())

	first, err := svc.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 9.0, first.MaxScore)

	// Second read is served from cache; the repository was hit once.
	second, err := svc.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, first.Abbreviation, second.Abbreviation)
	assert.Equal(t, first.MaxScore, second.MaxScore)

	repo.scale.AssertExpectations(t)
}

func TestScaleService_GetByID_NotFound(t *testing.T) {
	repo := NewMockRepository()
	repo.scale.On("GetByID", mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)

	svc := NewScaleService(repo, testLogger(), validator.New(), newFakeCache())

	_, err := svc.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrScaleNotFound)
}

func TestScaleService_GetStats(t *testing.T) {
	repo := NewMockRepository()
	repo.scale.On("GetByID", mock.Anything, uint(7)).Return(screeningScale(), nil)
	repo.administration.On("GetScaleAdministrationStats", mock.Anything, uint(7)).Return(&repositories.AdministrationStats{
		TotalAdministrations: 4,
		StatusBreakdown: map[models.AdministrationStatus]int{
			models.AdministrationCompleted: 3,
			models.AdministrationAbandoned: 1,
		},
		AbandonRate:        0.25,
		AverageScore:       6.5,
		CriticalAlertCount: 1,
	}, nil)

	svc := NewScaleService(repo, testLogger(), validator.New(), newFakeCache())

	stats, err := svc.GetStats(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalAdministrations)
	assert.Equal(t, 0.25, stats.AbandonRate)
	assert.Equal(t, 1, stats.CriticalAlertCount)
}

func TestScaleService_GetStats_ScaleNotFound(t *testing.T) {
	repo := NewMockRepository()
	repo.scale.On("GetByID", mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)

	svc := NewScaleService(repo, testLogger(), validator.New(), newFakeCache())

	_, err := svc.GetStats(context.Background(), 99)
	assert.ErrorIs(t, err, ErrScaleNotFound)
	repo.administration.AssertNotCalled(t, "GetScaleAdministrationStats", mock.Anything, mock.Anything)
}

func TestScaleService_Deactivate_InvalidatesCache(t *testing.T) {
	repo := NewMockRepository()
	scale := screeningScale()
	repo.scale.On("GetByID", mock.Anything, uint(7)).Return(scale, nil)
	repo.scale.On("Deactivate", mock.Anything, uint(7)).Return(nil)
	repo.audit.On("Create", mock.Anything, mock.MatchedBy(func(entry *models.AuditEntry) bool {
		return entry.EventType == models.AuditScaleDeactivated
	})).Return(nil)

	fc := newFakeCache()
	svc := NewScaleService(repo, testLogger(), validator.New(), fc)

	_, err := svc.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Contains(t, fc.data, "scale:definition:7")

	require.NoError(t, svc.Deactivate(context.Background(), 7, "admin-1"))
	assert.NotContains(t, fc.data, "scale:definition:7")
}
