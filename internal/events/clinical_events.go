package events

import (
	"time"

	"github.com/clinicore/scale-service/internal/models"
	"github.com/google/uuid"
)

// EventType identifies clinical workflow events on the wire.
type EventType string

const (
	// Administration events
	EventAdministrationStarted   EventType = "administration.started"
	EventAdministrationCompleted EventType = "administration.completed"
	EventAdministrationAbandoned EventType = "administration.abandoned"
	EventResponseSaved           EventType = "administration.response_saved"

	// Alert events
	EventCriticalAlertRaised EventType = "alert.critical_raised"

	// Session events
	EventSessionCompleted EventType = "session.completed"
	EventSessionCancelled EventType = "session.cancelled"
)

// ClinicalEvent is the envelope for every event the service publishes.
type ClinicalEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Administration event payloads

type AdministrationStartedEvent struct {
	AdministrationID  uint                      `json:"administration_id"`
	SessionID         uint                      `json:"session_id"`
	ScaleID           uint                      `json:"scale_id"`
	ScaleAbbreviation string                    `json:"scale_abbreviation"`
	PatientID         string                    `json:"patient_id"`
	Mode              models.AdministrationMode `json:"mode"`
	Resumed           bool                      `json:"resumed"`
	StartedAt         time.Time                 `json:"started_at"`
}

type AdministrationCompletedEvent struct {
	AdministrationID  uint             `json:"administration_id"`
	SessionID         uint             `json:"session_id"`
	ScaleID           uint             `json:"scale_id"`
	ScaleAbbreviation string           `json:"scale_abbreviation"`
	PatientID         string           `json:"patient_id"`
	TotalScore        float64          `json:"total_score"`
	MaxScore          float64          `json:"max_score"`
	Severity          *models.Severity `json:"severity,omitempty"`
	Partial           bool             `json:"partial"`
	AlertCount        int              `json:"alert_count"`
	CompletedAt       time.Time        `json:"completed_at"`
}

type AdministrationAbandonedEvent struct {
	AdministrationID uint      `json:"administration_id"`
	SessionID        uint      `json:"session_id"`
	ScaleID          uint      `json:"scale_id"`
	PatientID        string    `json:"patient_id"`
	AnsweredItems    int       `json:"answered_items"`
	TotalItems       int       `json:"total_items"`
	Reason           string    `json:"reason"`
	AbandonedAt      time.Time `json:"abandoned_at"`
}

type ResponseSavedEvent struct {
	AdministrationID uint      `json:"administration_id"`
	ItemID           uint      `json:"item_id"`
	ItemNumber       int       `json:"item_number"`
	WasSkipped       bool      `json:"was_skipped"`
	SavedAt          time.Time `json:"saved_at"`
}

// CriticalAlertRaisedEvent fires the moment a qualifying response is saved,
// before scoring and regardless of whether the administration ever completes.
type CriticalAlertRaisedEvent struct {
	AdministrationID  uint             `json:"administration_id"`
	SessionID         uint             `json:"session_id"`
	ScaleID           uint             `json:"scale_id"`
	ScaleAbbreviation string           `json:"scale_abbreviation"`
	PatientID         string           `json:"patient_id"`
	ClinicianID       *string          `json:"clinician_id,omitempty"`
	Alert             models.Alert     `json:"alert"`
	RaisedAt          time.Time        `json:"raised_at"`
}

// Session event payloads

type SessionCompletedEvent struct {
	SessionID            uint      `json:"session_id"`
	PatientID            string    `json:"patient_id"`
	CompletedScaleCount  int       `json:"completed_scale_count"`
	IncompleteScaleCount int       `json:"incomplete_scale_count"`
	HasCriticalAlert     bool      `json:"has_critical_alert"`
	CompletedAt          time.Time `json:"completed_at"`
}

type SessionCancelledEvent struct {
	SessionID   uint      `json:"session_id"`
	PatientID   string    `json:"patient_id"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// Event factory functions

func newEvent(eventType EventType, data interface{}) *ClinicalEvent {
	return &ClinicalEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    "scale-service",
		Version:   "1.0",
		Data:      data,
	}
}

func NewAdministrationStartedEvent(administration *models.ScaleAdministration, scale *models.ScaleDefinition, patientID string, resumed bool) *ClinicalEvent {
	startedAt := time.Now()
	if administration.StartedAt != nil {
		startedAt = *administration.StartedAt
	}
	return newEvent(EventAdministrationStarted, AdministrationStartedEvent{
		AdministrationID:  administration.ID,
		SessionID:         administration.SessionID,
		ScaleID:           scale.ID,
		ScaleAbbreviation: scale.Abbreviation,
		PatientID:         patientID,
		Mode:              scale.Mode,
		Resumed:           resumed,
		StartedAt:         startedAt,
	})
}

func NewAdministrationCompletedEvent(administration *models.ScaleAdministration, scale *models.ScaleDefinition, patientID string, results *models.AssessmentResults) *ClinicalEvent {
	completedAt := time.Now()
	if administration.CompletedAt != nil {
		completedAt = *administration.CompletedAt
	}
	var severity *models.Severity
	if results.Interpretation != nil {
		severity = &results.Interpretation.Severity
	}
	return newEvent(EventAdministrationCompleted, AdministrationCompletedEvent{
		AdministrationID:  administration.ID,
		SessionID:         administration.SessionID,
		ScaleID:           scale.ID,
		ScaleAbbreviation: scale.Abbreviation,
		PatientID:         patientID,
		TotalScore:        results.TotalScore,
		MaxScore:          results.MaxScore,
		Severity:          severity,
		Partial:           results.Partial,
		AlertCount:        len(results.Alerts),
		CompletedAt:       completedAt,
	})
}

func NewAdministrationAbandonedEvent(administration *models.ScaleAdministration, patientID, reason string, totalItems int) *ClinicalEvent {
	return newEvent(EventAdministrationAbandoned, AdministrationAbandonedEvent{
		AdministrationID: administration.ID,
		SessionID:        administration.SessionID,
		ScaleID:          administration.ScaleID,
		PatientID:        patientID,
		AnsweredItems:    administration.AnsweredCount(),
		TotalItems:       totalItems,
		Reason:           reason,
		AbandonedAt:      time.Now(),
	})
}

func NewResponseSavedEvent(response *models.ItemResponse) *ClinicalEvent {
	return newEvent(EventResponseSaved, ResponseSavedEvent{
		AdministrationID: response.AdministrationID,
		ItemID:           response.ItemID,
		ItemNumber:       response.ItemNumber,
		WasSkipped:       response.WasSkipped,
		SavedAt:          time.Now(),
	})
}

func NewCriticalAlertRaisedEvent(administration *models.ScaleAdministration, scale *models.ScaleDefinition, patientID string, clinicianID *string, alert models.Alert) *ClinicalEvent {
	return newEvent(EventCriticalAlertRaised, CriticalAlertRaisedEvent{
		AdministrationID:  administration.ID,
		SessionID:         administration.SessionID,
		ScaleID:           scale.ID,
		ScaleAbbreviation: scale.Abbreviation,
		PatientID:         patientID,
		ClinicianID:       clinicianID,
		Alert:             alert,
		RaisedAt:          time.Now(),
	})
}

func NewSessionCompletedEvent(session *models.AssessmentSession, completedCount, incompleteCount int, hasCriticalAlert bool) *ClinicalEvent {
	return newEvent(EventSessionCompleted, SessionCompletedEvent{
		SessionID:            session.ID,
		PatientID:            session.PatientID,
		CompletedScaleCount:  completedCount,
		IncompleteScaleCount: incompleteCount,
		HasCriticalAlert:     hasCriticalAlert,
		CompletedAt:          time.Now(),
	})
}

func NewSessionCancelledEvent(session *models.AssessmentSession, reason string) *ClinicalEvent {
	return newEvent(EventSessionCancelled, SessionCancelledEvent{
		SessionID:   session.ID,
		PatientID:   session.PatientID,
		Reason:      reason,
		CancelledAt: time.Now(),
	})
}
