package services

import (
	"context"
	"time"

	"github.com/clinicore/scale-service/internal/administration"
	"github.com/clinicore/scale-service/internal/models"
	"github.com/clinicore/scale-service/internal/repositories"
)

// ===== SCALE SERVICE =====

// ScaleService manages the catalog of scale definitions. Definitions are
// validated structurally on registration and are immutable afterwards except
// for activation state.
type ScaleService interface {
	Register(ctx context.Context, req *RegisterScaleRequest, actorID string) (*models.ScaleDefinition, error)
	GetByID(ctx context.Context, id uint) (*models.ScaleDefinition, error)
	GetByAbbreviation(ctx context.Context, abbreviation string) (*models.ScaleDefinition, error)
	List(ctx context.Context, filters repositories.ScaleFilters) (*ScaleListResponse, error)
	Deactivate(ctx context.Context, id uint, actorID string) error

	// GetStats aggregates administration outcomes for one scale: status
	// breakdown, abandon rate, average score and critical alert count.
	GetStats(ctx context.Context, id uint) (*repositories.AdministrationStats, error)
}

type RegisterScaleRequest struct {
	Name                string                      `json:"name" validate:"required,min=1,max=200"`
	Abbreviation        string                      `json:"abbreviation" validate:"required,min=1,max=20"`
	Description         *string                     `json:"description" validate:"omitempty,max=2000"`
	Mode                models.AdministrationMode   `json:"administration_mode" validate:"required,administration_mode"`
	Method              models.ScoringMethod        `json:"scoring_method" validate:"required,scoring_method"`
	ResponseOptions     []models.ResponseOption     `json:"response_options" validate:"omitempty,dive"`
	CompositeAlertRules []models.CompositeAlertRule `json:"composite_alert_rules" validate:"omitempty,dive"`
	Items               []RegisterScaleItem         `json:"items" validate:"required,min=1,dive"`
	Subscales           []RegisterSubscale          `json:"subscales" validate:"omitempty,dive"`
	InterpretationRules []RegisterInterpretationRule `json:"interpretation_rules" validate:"omitempty,dive"`
}

type RegisterScaleItem struct {
	Number          int                     `json:"number" validate:"required,min=1"`
	QuestionText    string                  `json:"question_text" validate:"required"`
	ResponseType    models.ResponseType     `json:"response_type" validate:"required,response_type"`
	ResponseOptions []models.ResponseOption `json:"response_options" validate:"omitempty,dive"`
	Required        *bool                   `json:"required"`
	ReverseScored   bool                    `json:"reverse_scored"`
	ScoringWeight   *float64                `json:"scoring_weight" validate:"omitempty,min=0"`
	SubscaleName    *string                 `json:"subscale_name"`
	AlertTrigger    bool                    `json:"alert_trigger"`
	AlertCondition  *models.AlertCondition  `json:"alert_condition"`
}

type RegisterSubscale struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type RegisterInterpretationRule struct {
	MinScore        float64         `json:"min_score"`
	MaxScore        float64         `json:"max_score"`
	Severity        models.Severity `json:"severity" validate:"required,severity_level"`
	Label           string          `json:"label" validate:"required"`
	Description     string          `json:"description"`
	Recommendations []string        `json:"recommendations"`
}

type ScaleListResponse struct {
	Scales []*models.ScaleDefinition `json:"scales"`
	Total  int64                     `json:"total"`
	Limit  int                       `json:"limit"`
	Offset int                       `json:"offset"`
}

// ===== SESSION SERVICE =====

// SessionService coordinates sessions and the cross-session timeline.
type SessionService interface {
	Create(ctx context.Context, req *CreateSessionRequest, actorID string) (*models.AssessmentSession, error)
	GetByID(ctx context.Context, id uint) (*models.AssessmentSession, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.AssessmentSession, error)
	List(ctx context.Context, filters repositories.SessionFilters) (*SessionListResponse, error)

	Start(ctx context.Context, id uint, actorID string) (*models.AssessmentSession, error)
	Complete(ctx context.Context, id uint, actorID string) (*models.AssessmentSession, error)
	Cancel(ctx context.Context, id uint, reason string, actorID string) (*models.AssessmentSession, error)

	// GetPatientTimeline returns the chronological score history for a
	// patient, optionally restricted to one scale, with per-entry deltas.
	GetPatientTimeline(ctx context.Context, patientID string, scaleID *uint) ([]models.TimelineEntry, error)
	GetSessionStats(ctx context.Context, patientID string) (*repositories.SessionStats, error)

	// AbandonStale sweeps in-progress administrations with no activity since
	// the cutoff and abandons them with partial results.
	AbandonStale(ctx context.Context, inactiveFor time.Duration) (int, error)
}

type CreateSessionRequest struct {
	PatientID   string    `json:"patient_id" validate:"required,max=64"`
	ClinicianID *string   `json:"clinician_id" validate:"omitempty,max=64"`
	SessionType string    `json:"session_type" validate:"required,max=50"`
	SessionDate time.Time `json:"session_date" validate:"required"`
	ScaleIDs    []uint    `json:"scale_ids" validate:"omitempty,min=1"`
}

type SessionListResponse struct {
	Sessions []*models.AssessmentSession `json:"sessions"`
	Total    int64                       `json:"total"`
	Limit    int                         `json:"limit"`
	Offset   int                         `json:"offset"`
}

// ===== ADMINISTRATION SERVICE =====

// AdministrationService drives a single scale administration from start to
// completion, including response capture, navigation and alert evaluation.
type AdministrationService interface {
	Start(ctx context.Context, req *StartAdministrationRequest, actorID string) (*AdministrationResponse, error)
	GetByID(ctx context.Context, id uint) (*AdministrationResponse, error)

	SaveResponse(ctx context.Context, administrationID uint, req *administration.SaveResponseRequest, actorID string) (*SaveResponseResult, error)
	Next(ctx context.Context, administrationID uint, actorID string) (*NavigationResult, error)
	Previous(ctx context.Context, administrationID uint, actorID string) (*NavigationResult, error)
	GoTo(ctx context.Context, administrationID uint, index int, actorID string) (*NavigationResult, error)

	Complete(ctx context.Context, administrationID uint, actorID string) (*AdministrationResponse, error)
	Abandon(ctx context.Context, administrationID uint, reason string, actorID string) (*AdministrationResponse, error)

	GetResults(ctx context.Context, administrationID uint) (*models.AssessmentResults, error)
}

type StartAdministrationRequest struct {
	SessionID uint `json:"session_id" validate:"required"`
	ScaleID   uint `json:"scale_id" validate:"required"`
}

// AdministrationResponse is the API-facing view of an administration.
type AdministrationResponse struct {
	Administration *models.ScaleAdministration `json:"administration"`
	Scale          *models.ScaleDefinition     `json:"scale"`
	CurrentItem    *models.ScaleItem           `json:"current_item,omitempty"`
	Resumed        bool                        `json:"resumed,omitempty"`
	Results        *models.AssessmentResults   `json:"results,omitempty"`
}

type SaveResponseResult struct {
	Response         *models.ItemResponse `json:"response"`
	CurrentItemIndex int                  `json:"current_item_index"`
	Answered         int                  `json:"answered"`
	Percent          float64              `json:"percent"`
	Alerts           []models.Alert       `json:"alerts,omitempty"`
}

type NavigationResult struct {
	CurrentItemIndex int               `json:"current_item_index"`
	CurrentItem      *models.ScaleItem `json:"current_item,omitempty"`
	AtEnd            bool              `json:"at_end"`
}

// ===== REPORT SERVICE =====

// ReportFormat selects the export encoding.
type ReportFormat string

const (
	ReportFormatXLSX ReportFormat = "xlsx"
	ReportFormatCSV  ReportFormat = "csv"
)

// ReportService exports administration results and patient timelines, and
// serves the audit trail for compliance review.
type ReportService interface {
	ExportAdministrationResults(ctx context.Context, administrationID uint, format ReportFormat, actorID string) (*ReportFile, error)
	ExportPatientTimeline(ctx context.Context, patientID string, scaleID *uint, format ReportFormat, actorID string) (*ReportFile, error)
	GetAuditTrail(ctx context.Context, filters repositories.AuditFilters) (*AuditTrailResponse, error)
}

type AuditTrailResponse struct {
	Entries []*models.AuditEntry `json:"entries"`
	Total   int64                `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
}

type ReportFile struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}
