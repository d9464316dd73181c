package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/clinicore/scale-service/internal/models"
	"gorm.io/gorm"
)

// Repository aggregates all persistence interfaces behind one entry point.
type Repository interface {
	Scale() ScaleRepository
	Session() SessionRepository
	Administration() AdministrationRepository
	Audit() AuditRepository

	// WithTransaction runs fn against a transactional view of the repository.
	WithTransaction(ctx context.Context, fn func(Repository) error) error
	Ping(ctx context.Context) error
	Close() error
}

// IsNotFoundError checks whether err represents a missing row.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// ===== SHARED FILTER STRUCTS =====

type ScaleFilters struct {
	Mode      *models.AdministrationMode `json:"mode"`
	IsActive  *bool                      `json:"is_active"`
	Search    string                     `json:"search"`
	Limit     int                        `json:"limit"`
	Offset    int                        `json:"offset"`
	SortBy    string                     `json:"sort_by"`    // "name", "abbreviation", "created_at"
	SortOrder string                     `json:"sort_order"` // "asc", "desc"
}

type SessionFilters struct {
	PatientID   *string               `json:"patient_id"`
	ClinicianID *string               `json:"clinician_id"`
	Status      *models.SessionStatus `json:"status"`
	DateFrom    *time.Time            `json:"date_from"`
	DateTo      *time.Time            `json:"date_to"`
	Limit       int                   `json:"limit"`
	Offset      int                   `json:"offset"`
	SortBy      string                `json:"sort_by"`    // "session_date", "created_at"
	SortOrder   string                `json:"sort_order"` // "asc", "desc"
}

type AdministrationFilters struct {
	SessionID *uint                        `json:"session_id"`
	ScaleID   *uint                        `json:"scale_id"`
	Status    *models.AdministrationStatus `json:"status"`
	DateFrom  *time.Time                   `json:"date_from"`
	DateTo    *time.Time                   `json:"date_to"`
	Limit     int                          `json:"limit"`
	Offset    int                          `json:"offset"`
	SortBy    string                       `json:"sort_by"`
	SortOrder string                       `json:"sort_order"`
}

type AuditFilters struct {
	EventType  *models.AuditEventType `json:"event_type"`
	TargetType *string                `json:"target_type"`
	TargetID   *uint                  `json:"target_id"`
	DateFrom   *time.Time             `json:"date_from"`
	DateTo     *time.Time             `json:"date_to"`
	Limit      int                    `json:"limit"`
	Offset     int                    `json:"offset"`
}

// ===== SHARED STATISTICS STRUCTS =====

type SessionStats struct {
	TotalSessions       int     `json:"total_sessions"`
	CompletedSessions   int     `json:"completed_sessions"`
	CancelledSessions   int     `json:"cancelled_sessions"`
	AdministrationCount int     `json:"administration_count"`
	CompletionRate      float64 `json:"completion_rate"`
}

type AdministrationStats struct {
	TotalAdministrations int                                  `json:"total_administrations"`
	StatusBreakdown      map[models.AdministrationStatus]int  `json:"status_breakdown"`
	AverageScore         float64                              `json:"average_score"`
	AverageCompletion    float64                              `json:"average_completion"`
	AbandonRate          float64                              `json:"abandon_rate"`
	CriticalAlertCount   int                                  `json:"critical_alert_count"`
}
