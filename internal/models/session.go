package models

import (
	"time"

	"gorm.io/gorm"
)

type SessionStatus string

const (
	SessionScheduled  SessionStatus = "scheduled"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionCancelled  SessionStatus = "cancelled"
	SessionIncomplete SessionStatus = "incomplete"
)

// AssessmentSession groups scale administrations for one patient encounter.
// Patient and clinician identifiers are opaque to this service.
type AssessmentSession struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	PatientID   string        `json:"patient_id" gorm:"not null;size:64;index" validate:"required,max=64"`
	ClinicianID *string       `json:"clinician_id" gorm:"size:64;index" validate:"omitempty,max=64"`
	SessionType string        `json:"session_type" gorm:"not null;size:50" validate:"required,max=50"`
	Status      SessionStatus `json:"status" gorm:"not null;default:scheduled;index" validate:"omitempty,session_status"`

	SessionDate time.Time  `json:"session_date" gorm:"not null;index"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Administrations []ScaleAdministration `json:"administrations" gorm:"foreignKey:SessionID"`

	// Computed fields (not stored)
	AdministrationCount int `json:"administration_count" gorm:"-"`
}

func (AssessmentSession) TableName() string {
	return "assessment_sessions"
}

// IsTerminal reports whether the session has reached a final status.
func (s *AssessmentSession) IsTerminal() bool {
	return s.Status == SessionCompleted || s.Status == SessionCancelled
}

// TimelineEntry is one point in a patient's longitudinal score history for a
// scale. ScoreChange is relative to the immediately preceding entry for the
// same scale and is nil on the first entry.
type TimelineEntry struct {
	SessionID         uint      `json:"session_id"`
	AdministrationID  uint      `json:"administration_id"`
	ScaleID           uint      `json:"scale_id"`
	ScaleAbbreviation string    `json:"scale_abbreviation"`
	SessionDate       time.Time `json:"session_date"`
	Score             float64   `json:"score"`
	Severity          *Severity `json:"severity"`
	Partial           bool      `json:"partial"`
	ScoreChange       *float64  `json:"score_change,omitempty"`
}
