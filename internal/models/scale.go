package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AdministrationMode string

const (
	ModeSelfAdministered      AdministrationMode = "self_administered"
	ModeClinicianAdministered AdministrationMode = "clinician_administered"
	ModeHybrid                AdministrationMode = "hybrid"
)

type ScoringMethod string

const (
	ScoringSum               ScoringMethod = "sum"
	ScoringWeighted          ScoringMethod = "weighted"
	ScoringSubscaleAggregate ScoringMethod = "subscale_aggregate"
	ScoringAlgorithm         ScoringMethod = "algorithm"
)

type ResponseType string

const (
	ResponseLikert         ResponseType = "likert"
	ResponseYesNo          ResponseType = "yes_no"
	ResponseMultipleChoice ResponseType = "multiple_choice"
	ResponseNumeric        ResponseType = "numeric"
	ResponseText           ResponseType = "text"
	ResponseVisualAnalog   ResponseType = "visual_analog"
)

type Severity string

const (
	SeverityMinimal  Severity = "minimal"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Rank orders severities for comparisons; unknown values rank below minimal.
func (s Severity) Rank() int {
	switch s {
	case SeverityMinimal:
		return 1
	case SeverityMild:
		return 2
	case SeverityModerate:
		return 3
	case SeveritySevere:
		return 4
	default:
		return 0
	}
}

// ResponseOption is one selectable answer for an item. Values are unique
// within a single option set.
type ResponseOption struct {
	Value string  `json:"value" validate:"required"`
	Label string  `json:"label" validate:"required"`
	Score float64 `json:"score"`
}

// AlertCondition is a per-item trigger predicate evaluated against a single
// response, independent of the total score.
type AlertCondition struct {
	Operator  string    `json:"operator" validate:"required,oneof=gte gt eq lte lt"`
	Threshold float64   `json:"threshold"`
	Type      AlertType `json:"type" validate:"required,oneof=critical warning info"`
	Message   string    `json:"message" validate:"required"`
}

// CompositeAlertRule is a scale-level predicate over the full response set,
// e.g. ">= 4 items scored >= 2".
type CompositeAlertRule struct {
	MinItems     int       `json:"min_items" validate:"required,min=1"`
	MinItemScore float64   `json:"min_item_score"`
	Type         AlertType `json:"type" validate:"required,oneof=critical warning info"`
	Message      string    `json:"message" validate:"required"`
}

// ScaleDefinition is the immutable, data-driven definition of a psychometric
// instrument. It is authored externally, validated on load, and never mutated
// while an administration is in flight.
type ScaleDefinition struct {
	ID           uint               `json:"id" gorm:"primaryKey"`
	Name         string             `json:"name" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Abbreviation string             `json:"abbreviation" gorm:"not null;size:20;uniqueIndex" validate:"required,min=1,max=20"`
	Description  *string            `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	TotalItems   int                `json:"total_items" gorm:"not null" validate:"required,min=1"`
	Mode         AdministrationMode `json:"administration_mode" gorm:"not null;default:clinician_administered" validate:"required,administration_mode"`
	Method       ScoringMethod      `json:"scoring_method" gorm:"not null;default:sum" validate:"required,scoring_method"`

	// Scale-global response options; items may override with their own set.
	ResponseOptions datatypes.JSONType[[]ResponseOption] `json:"response_options" gorm:"type:jsonb"`

	// Optional scale-level alert predicates evaluated over the full response set.
	CompositeAlertRules datatypes.JSONType[[]CompositeAlertRule] `json:"composite_alert_rules" gorm:"type:jsonb"`

	IsActive bool `json:"is_active" gorm:"default:true"`
	Version  int  `json:"version" gorm:"default:1"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Items               []ScaleItem          `json:"items" gorm:"foreignKey:ScaleID"`
	Subscales           []Subscale           `json:"subscales" gorm:"foreignKey:ScaleID"`
	InterpretationRules []InterpretationRule `json:"interpretation_rules" gorm:"foreignKey:ScaleID"`

	// Computed fields (not stored)
	MaxScore float64 `json:"max_score" gorm:"-"`
}

// ScaleItem is one question within a scale. Number is 1-based and defines
// presentation order.
type ScaleItem struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	ScaleID      uint         `json:"scale_id" gorm:"not null;index"`
	Number       int          `json:"number" gorm:"not null" validate:"required,min=1"`
	QuestionText string       `json:"question_text" gorm:"not null;type:text" validate:"required"`
	ResponseType ResponseType `json:"response_type" gorm:"not null" validate:"required,response_type"`

	// Per-item option override; empty means the scale-global options apply.
	ResponseOptions datatypes.JSONType[[]ResponseOption] `json:"response_options" gorm:"type:jsonb"`

	Required      bool    `json:"required" gorm:"default:true"`
	ReverseScored bool    `json:"reverse_scored" gorm:"default:false"`
	ScoringWeight float64 `json:"scoring_weight" gorm:"default:1.0" validate:"min=0"`
	SubscaleID    *uint   `json:"subscale_id" gorm:"index"`

	// Safety-critical item marker, e.g. suicidal ideation on the PHQ-9.
	AlertTrigger   bool                                 `json:"alert_trigger" gorm:"default:false"`
	AlertCondition datatypes.JSONType[*AlertCondition]  `json:"alert_condition" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subscale is a named subset of items scored separately from the total.
// Each item belongs to at most one subscale.
type Subscale struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	ScaleID uint   `json:"scale_id" gorm:"not null;index"`
	Name    string `json:"name" gorm:"not null;size:100" validate:"required,min=1,max=100"`
}

// InterpretationRule maps an inclusive total-score range to a severity band.
// Rules of one scale must cover [0, maxScore] without overlap; this is
// enforced at definition load time.
type InterpretationRule struct {
	ID       uint     `json:"id" gorm:"primaryKey"`
	ScaleID  uint     `json:"scale_id" gorm:"not null;index"`
	MinScore float64  `json:"min_score"`
	MaxScore float64  `json:"max_score"`
	Severity Severity `json:"severity" gorm:"not null" validate:"required,severity_level"`
	Label    string   `json:"label" gorm:"not null;size:100" validate:"required"`

	Description     string                        `json:"description" gorm:"type:text"`
	Recommendations datatypes.JSONType[[]string]  `json:"recommendations" gorm:"type:jsonb"`
}

func (ScaleDefinition) TableName() string {
	return "scale_definitions"
}

func (ScaleItem) TableName() string {
	return "scale_items"
}

func (Subscale) TableName() string {
	return "subscales"
}

func (InterpretationRule) TableName() string {
	return "interpretation_rules"
}

// ItemByID returns the item with the given ID, or nil.
func (s *ScaleDefinition) ItemByID(itemID uint) *ScaleItem {
	for i := range s.Items {
		if s.Items[i].ID == itemID {
			return &s.Items[i]
		}
	}
	return nil
}

// ItemByNumber returns the item with the given 1-based number, or nil.
func (s *ScaleDefinition) ItemByNumber(number int) *ScaleItem {
	for i := range s.Items {
		if s.Items[i].Number == number {
			return &s.Items[i]
		}
	}
	return nil
}

// OptionsFor resolves the effective option set for an item: the item's own
// options when present, otherwise the scale-global options.
func (s *ScaleDefinition) OptionsFor(item *ScaleItem) []ResponseOption {
	if opts := item.ResponseOptions.Data(); len(opts) > 0 {
		return opts
	}
	return s.ResponseOptions.Data()
}

// SubscaleByID returns the subscale with the given ID, or nil.
func (s *ScaleDefinition) SubscaleByID(subscaleID uint) *Subscale {
	for i := range s.Subscales {
		if s.Subscales[i].ID == subscaleID {
			return &s.Subscales[i]
		}
	}
	return nil
}
