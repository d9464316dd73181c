package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditEventType string

const (
	AuditScaleLoaded            AuditEventType = "scale_loaded"
	AuditScaleDeactivated       AuditEventType = "scale_deactivated"
	AuditSessionCreated         AuditEventType = "session_created"
	AuditSessionCompleted       AuditEventType = "session_completed"
	AuditSessionCancelled       AuditEventType = "session_cancelled"
	AuditAdministrationStarted  AuditEventType = "administration_started"
	AuditAdministrationResumed  AuditEventType = "administration_resumed"
	AuditResponseSaved          AuditEventType = "response_saved"
	AuditAdministrationComplete AuditEventType = "administration_completed"
	AuditAdministrationAbandon  AuditEventType = "administration_abandoned"
	AuditCriticalAlertRaised    AuditEventType = "critical_alert_raised"
	AuditReportExported         AuditEventType = "report_exported"
)

// AuditEntry records a lifecycle transition or response mutation for
// compliance review. Actor identifiers are opaque, matching the rest of the
// service.
type AuditEntry struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	EventType AuditEventType `json:"event_type" gorm:"not null;index"`

	// Actor information
	ActorID   string `json:"actor_id" gorm:"size:64;index"`
	ActorRole string `json:"actor_role" gorm:"size:20"` // patient, clinician, system

	// Target information
	TargetType string `json:"target_type" gorm:"size:50;index"` // scale, session, administration, response
	TargetID   *uint  `json:"target_id" gorm:"index"`

	Description string         `json:"description" gorm:"not null;type:text"`
	Metadata    datatypes.JSON `json:"metadata" gorm:"type:jsonb"`

	RequestID *string `json:"request_id" gorm:"size:36"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (AuditEntry) TableName() string {
	return "audit_entries"
}
