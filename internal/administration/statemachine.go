package administration

import (
	"strings"
	"time"

	"github.com/clinicore/scale-service/internal/models"
	"github.com/clinicore/scale-service/internal/scoring"
	"gorm.io/datatypes"
)

// SaveResponseRequest carries one answer for one item. Score is the raw
// selected option score; reverse scoring and weighting happen at scoring
// time.
type SaveResponseRequest struct {
	ItemID         uint    `json:"item_id" validate:"required"`
	Value          string  `json:"value"`
	Label          string  `json:"label"`
	Score          float64 `json:"score"`
	ResponseTimeMs *int    `json:"response_time_ms" validate:"omitempty,min=0"`
	Skipped        bool    `json:"skipped"`
}

// StateMachine drives a respondent through a scale item by item. It is the
// sole mutation surface for an administration's in-memory state: there is no
// generic dispatch escape hatch. One machine owns one in-flight
// administration, so no locking is needed; the immutable scale definition is
// safe for unlimited concurrent readers.
//
// Navigation policy follows the administration mode: clinician-administered
// scales allow free jumps and backward movement, self-administered ones
// auto-advance on response and keep the respondent moving forward.
type StateMachine struct {
	scale *models.ScaleDefinition
	admin *models.ScaleAdministration

	allowNavigation bool
	autoAdvance     bool
}

// New builds a state machine over an administration of the given scale.
func New(scale *models.ScaleDefinition, admin *models.ScaleAdministration) (*StateMachine, error) {
	if admin.ScaleID != scale.ID {
		return nil, ErrScaleMismatch
	}
	return &StateMachine{
		scale:           scale,
		admin:           admin,
		allowNavigation: scale.Mode != models.ModeSelfAdministered,
		autoAdvance:     scale.Mode == models.ModeSelfAdministered,
	}, nil
}

// Administration exposes the underlying state read-only by convention; all
// mutations go through the operations below.
func (m *StateMachine) Administration() *models.ScaleAdministration {
	return m.admin
}

func (m *StateMachine) Scale() *models.ScaleDefinition {
	return m.scale
}

// Start transitions not_started -> in_progress.
func (m *StateMachine) Start() error {
	switch m.admin.Status {
	case models.AdministrationNotStarted:
		now := time.Now().UTC()
		m.admin.Status = models.AdministrationInProgress
		m.admin.StartedAt = &now
		m.admin.CurrentItemIndex = 0
		return nil
	case models.AdministrationInProgress:
		return nil // resume
	default:
		return ErrAlreadyCompleted
	}
}

// CurrentItem returns the item at the current index. Item numbers are
// 1-based and contiguous, which definition validation guarantees.
func (m *StateMachine) CurrentItem() *models.ScaleItem {
	return m.scale.ItemByNumber(m.admin.CurrentItemIndex + 1)
}

// SaveResponse validates and records an answer for an item, replacing any
// prior response for it (last-write-wins). It does not itself advance the
// index unless the mode auto-advances. The in-memory state is authoritative
// immediately; external persistence is the caller's concern.
func (m *StateMachine) SaveResponse(req SaveResponseRequest) (*models.ItemResponse, error) {
	if m.admin.Status != models.AdministrationInProgress {
		return nil, ErrNotActive
	}

	item := m.scale.ItemByID(req.ItemID)
	if item == nil {
		return nil, &ResponseValidationError{ItemID: req.ItemID, Message: "item does not belong to this scale"}
	}
	if item.Required && req.Skipped {
		return nil, &ResponseValidationError{ItemID: req.ItemID, Message: "item is required and cannot be skipped"}
	}
	if item.Required && !req.Skipped && strings.TrimSpace(req.Value) == "" {
		return nil, &ResponseValidationError{ItemID: req.ItemID, Message: "item is required and response value is empty"}
	}
	if err := m.validateOptionValue(item, req); err != nil {
		return nil, err
	}

	response := models.ItemResponse{
		AdministrationID: m.admin.ID,
		ItemID:           item.ID,
		ItemNumber:       item.Number,
		ResponseValue:    req.Value,
		ResponseLabel:    req.Label,
		ScoreValue:       req.Score,
		ResponseTimeMs:   req.ResponseTimeMs,
		WasSkipped:       req.Skipped,
	}

	replaced := false
	for i := range m.admin.Responses {
		if m.admin.Responses[i].ItemID == item.ID {
			response.ID = m.admin.Responses[i].ID
			response.CreatedAt = m.admin.Responses[i].CreatedAt
			m.admin.Responses[i] = response
			replaced = true
			break
		}
	}
	if !replaced {
		m.admin.Responses = append(m.admin.Responses, response)
	}

	if m.autoAdvance && item.Number-1 == m.admin.CurrentItemIndex && m.admin.CurrentItemIndex < m.scale.TotalItems-1 {
		m.admin.CurrentItemIndex++
	}

	return m.admin.ResponseFor(item.ID), nil
}

// CanProceed reports whether forward navigation past the current item is
// allowed: the item has a non-skipped response, or it is skippable.
func (m *StateMachine) CanProceed() bool {
	item := m.CurrentItem()
	if item == nil {
		return false
	}
	if resp := m.admin.ResponseFor(item.ID); resp != nil && !resp.WasSkipped {
		return true
	}
	return !item.Required
}

// Next moves forward one item. Moving past the last item is not an error: it
// returns atEnd=true and leaves the index in place, which is the caller's
// trigger point for completion.
func (m *StateMachine) Next() (atEnd bool, err error) {
	if m.admin.Status != models.AdministrationInProgress {
		return false, ErrNotActive
	}
	if !m.CanProceed() {
		return false, ErrCannotProceed
	}
	if m.admin.CurrentItemIndex >= m.scale.TotalItems-1 {
		return true, nil
	}
	m.admin.CurrentItemIndex++
	return false, nil
}

// Previous moves back one item. Backward navigation is restricted for
// self-administered flows.
func (m *StateMachine) Previous() error {
	if m.admin.Status != models.AdministrationInProgress {
		return ErrNotActive
	}
	if !m.allowNavigation {
		return ErrNavigationDisabled
	}
	if m.admin.CurrentItemIndex > 0 {
		m.admin.CurrentItemIndex--
	}
	return nil
}

// GoTo jumps to an arbitrary item, permitted only when the mode allows free
// navigation.
func (m *StateMachine) GoTo(index int) error {
	if m.admin.Status != models.AdministrationInProgress {
		return ErrNotActive
	}
	if !m.allowNavigation {
		return ErrNavigationDisabled
	}
	if index < 0 || index >= m.scale.TotalItems {
		return ErrIndexOutOfRange
	}
	m.admin.CurrentItemIndex = index
	return nil
}

// Progress returns the answered count and completion percentage.
func (m *StateMachine) Progress() (answered int, percent float64) {
	answered = m.admin.AnsweredCount()
	if m.scale.TotalItems > 0 {
		percent = float64(answered) / float64(m.scale.TotalItems) * 100
	}
	return answered, percent
}

// Complete scores the full response set and, only on success, stores the
// results and transitions to completed. On any failure the administration
// remains in progress - completion is never granted speculatively.
func (m *StateMachine) Complete() (*models.AssessmentResults, error) {
	if m.admin.Status != models.AdministrationInProgress {
		return nil, ErrNotActive
	}
	if missing := m.unansweredRequired(); len(missing) > 0 {
		return nil, ErrRequiredUnanswered
	}

	results, err := scoring.ComputeResults(m.scale, m.admin.Responses)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m.admin.Results = datatypes.NewJSONType(results)
	m.admin.Status = models.AdministrationCompleted
	m.admin.CompletedAt = &now
	return results, nil
}

// Abandon transitions in_progress -> abandoned and computes partial results
// for analytics. Partial results are tagged so they are never mistaken for a
// verified complete score.
func (m *StateMachine) Abandon() (*models.AssessmentResults, error) {
	if m.admin.Status != models.AdministrationInProgress {
		return nil, ErrNotActive
	}

	results, err := scoring.ComputeResults(m.scale, m.admin.Responses)
	if err != nil {
		return nil, err
	}
	results.Partial = true

	m.admin.Results = datatypes.NewJSONType(results)
	m.admin.Status = models.AdministrationAbandoned
	return results, nil
}

// unansweredRequired lists required items with no non-skipped response.
func (m *StateMachine) unansweredRequired() []uint {
	var missing []uint
	for i := range m.scale.Items {
		item := &m.scale.Items[i]
		if !item.Required {
			continue
		}
		resp := m.admin.ResponseFor(item.ID)
		if resp == nil || resp.WasSkipped {
			missing = append(missing, item.ID)
		}
	}
	return missing
}

// validateOptionValue checks the value against the item's option set for
// option-based response types. Numeric, text and visual-analog items accept
// free values.
func (m *StateMachine) validateOptionValue(item *models.ScaleItem, req SaveResponseRequest) error {
	if req.Skipped {
		return nil
	}
	switch item.ResponseType {
	case models.ResponseLikert, models.ResponseYesNo, models.ResponseMultipleChoice:
	default:
		return nil
	}

	options := m.scale.OptionsFor(item)
	if len(options) == 0 {
		return nil
	}
	for _, opt := range options {
		if opt.Value == req.Value {
			if opt.Score != req.Score {
				return &ResponseValidationError{ItemID: item.ID, Message: "score does not match the selected option"}
			}
			return nil
		}
	}
	return &ResponseValidationError{ItemID: item.ID, Message: "value is not one of the item's response options"}
}
