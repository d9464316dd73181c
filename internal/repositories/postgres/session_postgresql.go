package postgres

import (
	"context"

	"github.com/clinicore/scale-service/internal/models"
	"github.com/clinicore/scale-service/internal/repositories"
	"gorm.io/gorm"
)

type SessionPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (s SessionPostgreSQL) Create(ctx context.Context, session *models.AssessmentSession) error {
	return s.db.WithContext(ctx).Create(session).Error
}

func (s SessionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.AssessmentSession, error) {
	var session models.AssessmentSession
	if err := s.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s SessionPostgreSQL) GetByIDWithDetails(ctx context.Context, id uint) (*models.AssessmentSession, error) {
	var session models.AssessmentSession
	if err := s.db.WithContext(ctx).
		Preload("Administrations").
		Preload("Administrations.Responses").
		First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s SessionPostgreSQL) Update(ctx context.Context, session *models.AssessmentSession) error {
	return s.db.WithContext(ctx).Save(session).Error
}

func (s SessionPostgreSQL) UpdateStatus(ctx context.Context, id uint, status models.SessionStatus) error {
	return s.db.WithContext(ctx).
		Model(&models.AssessmentSession{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (s SessionPostgreSQL) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.AssessmentSession{}, id).Error
}

func (s SessionPostgreSQL) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.AssessmentSession, int64, error) {
	var sessions []*models.AssessmentSession
	var total int64

	// apply filter first
	query := s.db.WithContext(ctx).Model(&models.AssessmentSession{})
	query = s.helpers.ApplySessionFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = s.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Preload("Administrations").Find(&sessions).Error; err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

func (s SessionPostgreSQL) GetByPatient(ctx context.Context, patientID string, filters repositories.SessionFilters) ([]*models.AssessmentSession, int64, error) {
	filters.PatientID = &patientID
	return s.List(ctx, filters)
}

func (s SessionPostgreSQL) GetCompletedAdministrations(ctx context.Context, patientID string, scaleID *uint) ([]*models.ScaleAdministration, error) {
	var administrations []*models.ScaleAdministration

	query := s.db.WithContext(ctx).
		Model(&models.ScaleAdministration{}).
		Joins("JOIN assessment_sessions ON assessment_sessions.id = scale_administrations.session_id").
		Where("assessment_sessions.patient_id = ?", patientID).
		Where("assessment_sessions.deleted_at IS NULL").
		Where("scale_administrations.status = ?", models.AdministrationCompleted)

	if scaleID != nil {
		query = query.Where("scale_administrations.scale_id = ?", *scaleID)
	}

	if err := query.
		Preload("Session").
		Preload("Scale").
		Order("assessment_sessions.session_date ASC, scale_administrations.completed_at ASC").
		Find(&administrations).Error; err != nil {
		return nil, err
	}

	return administrations, nil
}

func (s SessionPostgreSQL) GetSessionStats(ctx context.Context, patientID string) (*repositories.SessionStats, error) {
	var stats repositories.SessionStats

	var total, completed, cancelled, administrationCount int64

	if err := s.db.WithContext(ctx).Model(&models.AssessmentSession{}).
		Where("patient_id = ?", patientID).
		Count(&total).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.AssessmentSession{}).
		Where("patient_id = ? AND status = ?", patientID, models.SessionCompleted).
		Count(&completed).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.AssessmentSession{}).
		Where("patient_id = ? AND status = ?", patientID, models.SessionCancelled).
		Count(&cancelled).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.ScaleAdministration{}).
		Joins("JOIN assessment_sessions ON assessment_sessions.id = scale_administrations.session_id").
		Where("assessment_sessions.patient_id = ?", patientID).
		Count(&administrationCount).Error; err != nil {
		return nil, err
	}

	stats = repositories.SessionStats{
		TotalSessions:       int(total),
		CompletedSessions:   int(completed),
		CancelledSessions:   int(cancelled),
		AdministrationCount: int(administrationCount),
	}
	if total > 0 {
		stats.CompletionRate = float64(completed) / float64(total)
	}

	return &stats, nil
}
