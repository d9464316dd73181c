package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/clinicore/scale-service/internal/models"
	"github.com/clinicore/scale-service/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubAdministrationService struct {
	AdministrationService
	view *AdministrationResponse
	err  error
}

func (s *stubAdministrationService) GetByID(ctx context.Context, id uint) (*AdministrationResponse, error) {
	return s.view, s.err
}

type stubSessionService struct {
	SessionService
	timeline []models.TimelineEntry
	err      error
}

func (s *stubSessionService) GetPatientTimeline(ctx context.Context, patientID string, scaleID *uint) ([]models.TimelineEntry, error) {
	return s.timeline, s.err
}

func scoredView() *AdministrationResponse {
	return &AdministrationResponse{
		Administration: &models.ScaleAdministration{ID: 11, Status: models.AdministrationCompleted},
		Scale:          &models.ScaleDefinition{ID: 7, Abbreviation: "BS-3"},
		Results: &models.AssessmentResults{
			TotalScore:           5,
			MaxScore:             9,
			CompletionPercentage: 100,
			ScoredAt:             time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			Interpretation:       &models.Interpretation{Severity: models.SeveritySevere, Label: "Severe"},
			Alerts: []models.Alert{
				{Type: models.AlertCritical, ItemNumber: 3, Message: "alert"},
			},
			SubscaleScores: map[uint]models.SubscaleScore{
				1: {SubscaleID: 1, Name: "Core", Score: 3, ItemCount: 2},
			},
		},
	}
}

func TestReportService_ExportAdministrationResults_CSV(t *testing.T) {
	repo := NewMockRepository()
	repo.audit.On("Create", mock.Anything, mock.MatchedBy(func(entry *models.AuditEntry) bool {
		return entry.EventType == models.AuditReportExported
	})).Return(nil)

	svc := NewReportService(repo, testLogger(), &stubAdministrationService{view: scoredView()}, &stubSessionService{})

	file, err := svc.ExportAdministrationResults(context.Background(), 11, ReportFormatCSV, "clinician-1")
	require.NoError(t, err)

	assert.Equal(t, "BS-3_administration_11.csv", file.FileName)
	assert.Equal(t, "text/csv", file.ContentType)

	content := string(file.Data)
	assert.Contains(t, content, "total_score,5")
	assert.Contains(t, content, "severity,severe")
	assert.Contains(t, content, "alert,critical,3,alert")
	repo.audit.AssertExpectations(t)
}

func TestReportService_ExportAdministrationResults_XLSX(t *testing.T) {
	repo := NewMockRepository()
	repo.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	svc := NewReportService(repo, testLogger(), &stubAdministrationService{view: scoredView()}, &stubSessionService{})

	file, err := svc.ExportAdministrationResults(context.Background(), 11, ReportFormatXLSX, "clinician-1")
	require.NoError(t, err)

	assert.Equal(t, "BS-3_administration_11.xlsx", file.FileName)
	assert.NotEmpty(t, file.Data)
	// XLSX files are zip archives.
	assert.True(t, strings.HasPrefix(string(file.Data), "PK"))
}

func TestReportService_ExportAdministrationResults_NoResults(t *testing.T) {
	repo := NewMockRepository()
	view := &AdministrationResponse{
		Administration: &models.ScaleAdministration{ID: 11, Status: models.AdministrationInProgress},
		Scale:          &models.ScaleDefinition{ID: 7, Abbreviation: "BS-3"},
	}

	svc := NewReportService(repo, testLogger(), &stubAdministrationService{view: view}, &stubSessionService{})

	_, err := svc.ExportAdministrationResults(context.Background(), 11, ReportFormatCSV, "clinician-1")
	assert.ErrorIs(t, err, ErrReportNoData)
}

func TestReportService_ExportAdministrationResults_UnknownFormat(t *testing.T) {
	repo := NewMockRepository()
	svc := NewReportService(repo, testLogger(), &stubAdministrationService{view: scoredView()}, &stubSessionService{})

	_, err := svc.ExportAdministrationResults(context.Background(), 11, ReportFormat("pdf"), "clinician-1")
	assert.ErrorIs(t, err, ErrReportFormatUnknown)
}

func TestReportService_ExportPatientTimeline_CSV(t *testing.T) {
	repo := NewMockRepository()
	repo.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

	change := -8.0
	severe := models.SeveritySevere
	timeline := []models.TimelineEntry{
		{SessionDate: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), ScaleAbbreviation: "BS-3", Score: 20, Severity: &severe},
		{SessionDate: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), ScaleAbbreviation: "BS-3", Score: 12, ScoreChange: &change},
	}

	svc := NewReportService(repo, testLogger(), &stubAdministrationService{}, &stubSessionService{timeline: timeline})

	file, err := svc.ExportPatientTimeline(context.Background(), "patient-1", nil, ReportFormatCSV, "clinician-1")
	require.NoError(t, err)

	content := string(file.Data)
	assert.Contains(t, content, "2026-01-10,BS-3,20,,severe,false")
	assert.Contains(t, content, "2026-02-10,BS-3,12,-8,,false")
}

func TestReportService_GetAuditTrail(t *testing.T) {
	repo := NewMockRepository()
	repo.audit.On("List", mock.Anything, mock.MatchedBy(func(filters repositories.AuditFilters) bool {
		return filters.Limit == 50
	})).Return([]*models.AuditEntry{
		{ID: 2, EventType: models.AuditReportExported, ActorID: "clinician-1"},
		{ID: 1, EventType: models.AuditAdministrationComplete, ActorID: "clinician-1"},
	}, int64(2), nil)

	svc := NewReportService(repo, testLogger(), &stubAdministrationService{}, &stubSessionService{})

	trail, err := svc.GetAuditTrail(context.Background(), repositories.AuditFilters{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(2), trail.Total)
	require.Len(t, trail.Entries, 2)
	assert.Equal(t, models.AuditReportExported, trail.Entries[0].EventType)
}

func TestReportService_ExportPatientTimeline_Empty(t *testing.T) {
	repo := NewMockRepository()
	svc := NewReportService(repo, testLogger(), &stubAdministrationService{}, &stubSessionService{})

	_, err := svc.ExportPatientTimeline(context.Background(), "patient-1", nil, ReportFormatCSV, "clinician-1")
	assert.ErrorIs(t, err, ErrReportNoData)
}
