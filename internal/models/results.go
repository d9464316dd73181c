package models

import "time"

type AlertType string

const (
	AlertCritical AlertType = "critical"
	AlertWarning  AlertType = "warning"
	AlertInfo     AlertType = "info"
)

// Alert is a clinically urgent finding raised by a specific response or a
// scale-level composite rule. Alerts are domain data, not errors, and are
// independent of the total-score interpretation: a minimal total score never
// suppresses a critical single-item alert.
type Alert struct {
	Type       AlertType `json:"type"`
	ItemID     uint      `json:"item_id,omitempty"`
	ItemNumber int       `json:"item_number,omitempty"`
	Message    string    `json:"message"`
	Score      float64   `json:"score"`
}

// SubscaleScore is the aggregate for one subscale.
type SubscaleScore struct {
	SubscaleID uint    `json:"subscale_id"`
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	ItemCount  int     `json:"item_count"`
}

// Interpretation is the rendering of the single matched InterpretationRule.
type Interpretation struct {
	Severity        Severity `json:"severity"`
	Label           string   `json:"label"`
	Description     string   `json:"description"`
	Recommendations []string `json:"recommendations"`
}

// AssessmentResults is derived from a scale definition and a response set,
// never independently mutated. Interpretation is nil when the total score
// falls in no band, or in more than one - a content-authoring defect that is
// surfaced rather than silently resolved.
type AssessmentResults struct {
	TotalScore     float64                `json:"total_score"`
	MaxScore       float64                `json:"max_score"`
	SubscaleScores map[uint]SubscaleScore `json:"subscale_scores,omitempty"`
	Interpretation *Interpretation        `json:"interpretation"`
	Alerts         []Alert                `json:"alerts"`

	ValidResponses       int     `json:"valid_responses"`
	CompletionPercentage float64 `json:"completion_percentage"`

	// Partial marks results computed from an incomplete response set, e.g. on
	// abandonment. Partial results must never be presented as verified
	// complete results.
	Partial bool `json:"partial"`

	ScoredAt time.Time `json:"scored_at"`
}

// HasCriticalAlert reports whether any alert is critical.
func (r *AssessmentResults) HasCriticalAlert() bool {
	for _, alert := range r.Alerts {
		if alert.Type == AlertCritical {
			return true
		}
	}
	return false
}
