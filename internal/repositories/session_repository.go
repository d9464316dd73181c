package repositories

import (
	"context"

	"github.com/clinicore/scale-service/internal/models"
)

// SessionRepository persists assessment sessions and answers the timeline
// query that longitudinal trend analysis is built on.
type SessionRepository interface {
	Create(ctx context.Context, session *models.AssessmentSession) error
	GetByID(ctx context.Context, id uint) (*models.AssessmentSession, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.AssessmentSession, error) // Include administrations + responses
	Update(ctx context.Context, session *models.AssessmentSession) error
	UpdateStatus(ctx context.Context, id uint, status models.SessionStatus) error
	Delete(ctx context.Context, id uint) error // Soft delete

	List(ctx context.Context, filters SessionFilters) ([]*models.AssessmentSession, int64, error)
	GetByPatient(ctx context.Context, patientID string, filters SessionFilters) ([]*models.AssessmentSession, int64, error)

	// GetCompletedAdministrations returns completed administrations for a
	// patient ordered by session date ascending, optionally filtered to one
	// scale. This is the timeline source.
	GetCompletedAdministrations(ctx context.Context, patientID string, scaleID *uint) ([]*models.ScaleAdministration, error)

	GetSessionStats(ctx context.Context, patientID string) (*SessionStats, error)
}
