package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AdministrationStatus string

const (
	AdministrationNotStarted AdministrationStatus = "not_started"
	AdministrationInProgress AdministrationStatus = "in_progress"
	AdministrationCompleted  AdministrationStatus = "completed"
	AdministrationAbandoned  AdministrationStatus = "abandoned"
)

// ScaleAdministration is one instance of a patient taking one scale within a
// session. It is owned exclusively by its session and soft-deleted with it.
type ScaleAdministration struct {
	ID        uint                 `json:"id" gorm:"primaryKey"`
	SessionID uint                 `json:"session_id" gorm:"not null;index"`
	ScaleID   uint                 `json:"scale_id" gorm:"not null;index"`
	Status    AdministrationStatus `json:"status" gorm:"not null;default:not_started;index" validate:"omitempty,oneof=not_started in_progress completed abandoned"`

	// Zero-based position within the item order while in progress.
	CurrentItemIndex int `json:"current_item_index" gorm:"default:0"`

	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	// Touched on every saved response; stale-administration cleanup keys off it.
	LastActivityAt *time.Time `json:"last_activity_at" gorm:"index"`

	// Populated only by a successful Complete (or tagged partial on abandon).
	Results datatypes.JSONType[*AssessmentResults] `json:"results" gorm:"type:jsonb"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Session   AssessmentSession `json:"-" gorm:"foreignKey:SessionID"`
	Scale     ScaleDefinition   `json:"scale" gorm:"foreignKey:ScaleID"`
	Responses []ItemResponse    `json:"responses" gorm:"foreignKey:AdministrationID"`

	// Computed fields (not stored)
	CompletionPercentage float64 `json:"completion_percentage" gorm:"-"`
}

// ItemResponse is the current answer for one item within an administration.
// A new response for the same item replaces the prior one (last-write-wins).
type ItemResponse struct {
	ID               uint `json:"id" gorm:"primaryKey"`
	AdministrationID uint `json:"administration_id" gorm:"not null;uniqueIndex:idx_administration_item"`
	ItemID           uint `json:"item_id" gorm:"not null;uniqueIndex:idx_administration_item"`

	ItemNumber    int    `json:"item_number" gorm:"not null"`
	ResponseValue string `json:"response_value"`
	ResponseLabel string `json:"response_label"`

	// Raw selected option score; reverse scoring and weighting are applied at
	// scoring time, exactly once.
	ScoreValue float64 `json:"score_value"`

	ResponseTimeMs *int `json:"response_time_ms"`
	WasSkipped     bool `json:"was_skipped" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ScaleAdministration) TableName() string {
	return "scale_administrations"
}

func (ItemResponse) TableName() string {
	return "item_responses"
}

// ResponseFor returns the current response for an item, or nil.
func (a *ScaleAdministration) ResponseFor(itemID uint) *ItemResponse {
	for i := range a.Responses {
		if a.Responses[i].ItemID == itemID {
			return &a.Responses[i]
		}
	}
	return nil
}

// AnsweredCount counts non-skipped responses.
func (a *ScaleAdministration) AnsweredCount() int {
	count := 0
	for i := range a.Responses {
		if !a.Responses[i].WasSkipped {
			count++
		}
	}
	return count
}
