package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/clinicore/scale-service/internal/administration"
	"github.com/clinicore/scale-service/internal/events"
	"github.com/clinicore/scale-service/internal/models"
	"github.com/clinicore/scale-service/internal/repositories"
	"github.com/clinicore/scale-service/internal/scoring"
	"github.com/clinicore/scale-service/internal/validator"
)

// progressFlushDelay debounces CurrentItemIndex writes: rapid answering in
// self-administered mode would otherwise issue one UPDATE per response.
const progressFlushDelay = 2 * time.Second

type administrationService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	ops       *ServiceLogger
	validator *validator.Validator
	scales    ScaleService
	publisher events.EventPublisher

	flushMu     sync.Mutex
	flushTimers map[uint]*time.Timer
}

func NewAdministrationService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator, scales ScaleService, publisher events.EventPublisher) AdministrationService {
	return &administrationService{
		repo:   repo,
		logger: logger,
		ops: NewServiceLogger(logger, LogConfig{
			Service:   "scale-service",
			Component: "administration",
		}),
		validator:   v,
		scales:      scales,
		publisher:   publisher,
		flushTimers: make(map[uint]*time.Timer),
	}
}

// ===== LIFECYCLE =====

// Start creates an administration within a session, or resumes the existing
// active one for the same scale instead of creating a duplicate.
func (s *administrationService) Start(ctx context.Context, req *StartAdministrationRequest, actorID string) (*AdministrationResponse, error) {
	s.logger.Info("Starting scale administration",
		"session_id", req.SessionID,
		"scale_id", req.ScaleID,
		"actor_id", actorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	session, err := s.repo.Session().GetByID(ctx, req.SessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.IsTerminal() {
		return nil, ErrSessionTerminal
	}

	scale, err := s.scales.GetByID(ctx, req.ScaleID)
	if err != nil {
		return nil, err
	}
	if !scale.IsActive {
		return nil, ErrScaleInactive
	}

	// Resume path: an active administration for this scale in this session
	// is picked up where it left off rather than restarted.
	existing, err := s.repo.Administration().GetActiveBySessionAndScale(ctx, req.SessionID, req.ScaleID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check active administration: %w", err)
	}
	if existing != nil {
		return s.resume(ctx, existing, scale, session, actorID)
	}

	admin := &models.ScaleAdministration{
		SessionID: req.SessionID,
		ScaleID:   req.ScaleID,
		Status:    models.AdministrationNotStarted,
	}

	machine, err := administration.New(scale, admin)
	if err != nil {
		return nil, err
	}
	if err := machine.Start(); err != nil {
		return nil, err
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Administration().Create(ctx, admin); err != nil {
			return fmt.Errorf("failed to create administration: %w", err)
		}
		if session.Status == models.SessionScheduled {
			if err := txRepo.Session().UpdateStatus(ctx, session.ID, models.SessionInProgress); err != nil {
				return fmt.Errorf("failed to update session status: %w", err)
			}
		}
		return txRepo.Audit().Create(ctx, &models.AuditEntry{
			EventType:   models.AuditAdministrationStarted,
			ActorID:     actorID,
			TargetType:  "administration",
			TargetID:    &admin.ID,
			Description: fmt.Sprintf("administration of %s started in session %d", scale.Abbreviation, session.ID),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.NewAdministrationStartedEvent(admin, scale, session.PatientID, false))

	s.logger.Info("Scale administration started",
		"administration_id", admin.ID,
		"scale", scale.Abbreviation)

	return &AdministrationResponse{
		Administration: admin,
		Scale:          scale,
		CurrentItem:    machine.CurrentItem(),
	}, nil
}

func (s *administrationService) resume(ctx context.Context, admin *models.ScaleAdministration, scale *models.ScaleDefinition, session *models.AssessmentSession, actorID string) (*AdministrationResponse, error) {
	machine, err := administration.New(scale, admin)
	if err != nil {
		return nil, err
	}
	if err := machine.Start(); err != nil {
		return nil, err
	}

	if admin.StartedAt != nil {
		if err := s.repo.Administration().Update(ctx, admin); err != nil {
			return nil, fmt.Errorf("failed to update administration: %w", err)
		}
	}

	if err := s.repo.Audit().Create(ctx, &models.AuditEntry{
		EventType:   models.AuditAdministrationResumed,
		ActorID:     actorID,
		TargetType:  "administration",
		TargetID:    &admin.ID,
		Description: fmt.Sprintf("administration of %s resumed at item %d", scale.Abbreviation, admin.CurrentItemIndex+1),
	}); err != nil {
		s.logger.Error("Failed to record resume audit entry", "administration_id", admin.ID, "error", err)
	}

	s.publishEvent(ctx, events.NewAdministrationStartedEvent(admin, scale, session.PatientID, true))

	s.logger.Info("Scale administration resumed",
		"administration_id", admin.ID,
		"current_item_index", admin.CurrentItemIndex)

	return &AdministrationResponse{
		Administration: admin,
		Scale:          scale,
		CurrentItem:    machine.CurrentItem(),
		Resumed:        true,
	}, nil
}

func (s *administrationService) GetByID(ctx context.Context, id uint) (*AdministrationResponse, error) {
	admin, scale, _, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if scale.TotalItems > 0 {
		admin.CompletionPercentage = float64(admin.AnsweredCount()) / float64(scale.TotalItems) * 100
	}

	resp := &AdministrationResponse{
		Administration: admin,
		Scale:          scale,
	}
	if admin.Status == models.AdministrationInProgress {
		resp.CurrentItem = scale.ItemByNumber(admin.CurrentItemIndex + 1)
	}
	if results := admin.Results.Data(); results != nil {
		resp.Results = results
	}
	return resp, nil
}

// ===== RESPONSE CAPTURE =====

// SaveResponse records one answer, evaluates item-level alerts on the spot
// and raises critical alerts immediately, without waiting for scoring.
func (s *administrationService) SaveResponse(ctx context.Context, administrationID uint, req *administration.SaveResponseRequest, actorID string) (*SaveResponseResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	admin, scale, machine, err := s.loadActive(ctx, administrationID)
	if err != nil {
		return nil, err
	}

	alertsBefore := scoring.EvaluateAlerts(scale, admin.Responses)

	response, err := machine.SaveResponse(*req)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	admin.LastActivityAt = &now

	if err := s.repo.Administration().SaveResponse(ctx, response); err != nil {
		return nil, fmt.Errorf("failed to persist response: %w", err)
	}
	s.scheduleProgressFlush(admin.ID, admin.CurrentItemIndex)

	if err := s.repo.Audit().Create(ctx, &models.AuditEntry{
		EventType:   models.AuditResponseSaved,
		ActorID:     actorID,
		TargetType:  "response",
		TargetID:    &response.ItemID,
		Description: fmt.Sprintf("response saved for item %d of administration %d", response.ItemNumber, admin.ID),
	}); err != nil {
		s.logger.Error("Failed to record response audit entry", "administration_id", admin.ID, "error", err)
	}

	// Alert evaluation runs on every save over the current response set;
	// only alerts absent before this save are raised.
	alerts := scoring.EvaluateAlerts(scale, admin.Responses)
	if newAlerts := diffAlerts(alertsBefore, alerts); len(newAlerts) > 0 {
		s.raiseNewAlerts(ctx, admin, scale, newAlerts, actorID)
	}

	s.publishEvent(ctx, events.NewResponseSavedEvent(response))

	answered, percent := machine.Progress()
	return &SaveResponseResult{
		Response:         response,
		CurrentItemIndex: admin.CurrentItemIndex,
		Answered:         answered,
		Percent:          percent,
		Alerts:           alerts,
	}, nil
}

// raiseNewAlerts publishes and audits alerts that first appeared with the
// latest response. Critical alerts notify the clinician immediately.
func (s *administrationService) raiseNewAlerts(ctx context.Context, admin *models.ScaleAdministration, scale *models.ScaleDefinition, newAlerts []models.Alert, actorID string) {
	session, err := s.repo.Session().GetByID(ctx, admin.SessionID)
	if err != nil {
		s.logger.Error("Failed to load session for alert notification",
			"administration_id", admin.ID, "error", err)
		return
	}

	for _, alert := range newAlerts {
		s.logger.Warn("Alert raised during administration",
			"administration_id", admin.ID,
			"scale", scale.Abbreviation,
			"alert_type", alert.Type,
			"item_number", alert.ItemNumber)

		if alert.Type != models.AlertCritical {
			continue
		}

		s.publishEvent(ctx, events.NewCriticalAlertRaisedEvent(admin, scale, session.PatientID, session.ClinicianID, alert))

		if err := s.repo.Audit().Create(ctx, &models.AuditEntry{
			EventType:   models.AuditCriticalAlertRaised,
			ActorID:     actorID,
			TargetType:  "administration",
			TargetID:    &admin.ID,
			Description: fmt.Sprintf("critical alert on item %d: %s", alert.ItemNumber, alert.Message),
		}); err != nil {
			s.logger.Error("Failed to record critical alert audit entry",
				"administration_id", admin.ID, "error", err)
		}
	}
}

// ===== NAVIGATION =====

func (s *administrationService) Next(ctx context.Context, administrationID uint, actorID string) (*NavigationResult, error) {
	admin, scale, machine, err := s.loadActive(ctx, administrationID)
	if err != nil {
		return nil, err
	}

	atEnd, err := machine.Next()
	if err != nil {
		return nil, err
	}
	if !atEnd {
		s.scheduleProgressFlush(admin.ID, admin.CurrentItemIndex)
	}

	return &NavigationResult{
		CurrentItemIndex: admin.CurrentItemIndex,
		CurrentItem:      scale.ItemByNumber(admin.CurrentItemIndex + 1),
		AtEnd:            atEnd,
	}, nil
}

func (s *administrationService) Previous(ctx context.Context, administrationID uint, actorID string) (*NavigationResult, error) {
	admin, scale, machine, err := s.loadActive(ctx, administrationID)
	if err != nil {
		return nil, err
	}

	if err := machine.Previous(); err != nil {
		return nil, err
	}
	s.scheduleProgressFlush(admin.ID, admin.CurrentItemIndex)

	return &NavigationResult{
		CurrentItemIndex: admin.CurrentItemIndex,
		CurrentItem:      scale.ItemByNumber(admin.CurrentItemIndex + 1),
	}, nil
}

func (s *administrationService) GoTo(ctx context.Context, administrationID uint, index int, actorID string) (*NavigationResult, error) {
	admin, scale, machine, err := s.loadActive(ctx, administrationID)
	if err != nil {
		return nil, err
	}

	if err := machine.GoTo(index); err != nil {
		return nil, err
	}
	s.scheduleProgressFlush(admin.ID, admin.CurrentItemIndex)

	return &NavigationResult{
		CurrentItemIndex: admin.CurrentItemIndex,
		CurrentItem:      scale.ItemByNumber(admin.CurrentItemIndex + 1),
	}, nil
}

// ===== COMPLETION =====

// Complete scores the administration and stores results transactionally. A
// scoring failure leaves the administration in progress, untouched.
func (s *administrationService) Complete(ctx context.Context, administrationID uint, actorID string) (resp *AdministrationResponse, err error) {
	op := s.ops.WithOperation(ctx, "complete_administration", actorID)
	defer func() { op.LogResult(administrationID, "administration", err) }()

	admin, scale, machine, err := s.loadActive(ctx, administrationID)
	if err != nil {
		return nil, err
	}

	results, err := machine.Complete()
	if err != nil {
		s.logger.Warn("Administration completion refused",
			"administration_id", admin.ID,
			"error", err)
		return nil, err
	}

	s.cancelProgressFlush(admin.ID)

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Administration().Update(ctx, admin); err != nil {
			return fmt.Errorf("failed to update administration: %w", err)
		}
		return txRepo.Audit().Create(ctx, &models.AuditEntry{
			EventType:   models.AuditAdministrationComplete,
			ActorID:     actorID,
			TargetType:  "administration",
			TargetID:    &admin.ID,
			Description: fmt.Sprintf("administration of %s completed, score %.1f/%.1f", scale.Abbreviation, results.TotalScore, results.MaxScore),
		})
	})
	if err != nil {
		return nil, err
	}

	if results.Interpretation == nil {
		s.logger.Warn("Total score fell outside every interpretation band",
			"administration_id", admin.ID,
			"scale", scale.Abbreviation,
			"total_score", results.TotalScore)
	}

	session, sessErr := s.repo.Session().GetByID(ctx, admin.SessionID)
	if sessErr == nil {
		s.publishEvent(ctx, events.NewAdministrationCompletedEvent(admin, scale, session.PatientID, results))
	} else {
		s.logger.Error("Failed to load session for completion event",
			"administration_id", admin.ID, "error", sessErr)
	}

	s.logger.Info("Scale administration completed",
		"administration_id", admin.ID,
		"scale", scale.Abbreviation,
		"total_score", results.TotalScore,
		"partial", results.Partial,
		"alerts", len(results.Alerts))

	return &AdministrationResponse{
		Administration: admin,
		Scale:          scale,
		Results:        results,
	}, nil
}

// Abandon finalizes an administration without the full response set. Partial
// results are computed for analytics and tagged so they are never mistaken
// for a complete score.
func (s *administrationService) Abandon(ctx context.Context, administrationID uint, reason string, actorID string) (resp *AdministrationResponse, err error) {
	op := s.ops.WithOperation(ctx, "abandon_administration", actorID)
	defer func() { op.LogResult(administrationID, "administration", err) }()

	admin, scale, machine, err := s.loadActive(ctx, administrationID)
	if err != nil {
		return nil, err
	}

	results, err := machine.Abandon()
	if err != nil {
		return nil, err
	}

	s.cancelProgressFlush(admin.ID)

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Administration().Update(ctx, admin); err != nil {
			return fmt.Errorf("failed to update administration: %w", err)
		}
		return txRepo.Audit().Create(ctx, &models.AuditEntry{
			EventType:   models.AuditAdministrationAbandon,
			ActorID:     actorID,
			TargetType:  "administration",
			TargetID:    &admin.ID,
			Description: fmt.Sprintf("administration of %s abandoned: %s", scale.Abbreviation, reason),
		})
	})
	if err != nil {
		return nil, err
	}

	session, sessErr := s.repo.Session().GetByID(ctx, admin.SessionID)
	if sessErr == nil {
		s.publishEvent(ctx, events.NewAdministrationAbandonedEvent(admin, session.PatientID, reason, scale.TotalItems))
	}

	s.logger.Info("Scale administration abandoned",
		"administration_id", admin.ID,
		"scale", scale.Abbreviation,
		"answered", admin.AnsweredCount(),
		"reason", reason)

	return &AdministrationResponse{
		Administration: admin,
		Scale:          scale,
		Results:        results,
	}, nil
}

func (s *administrationService) GetResults(ctx context.Context, administrationID uint) (*models.AssessmentResults, error) {
	admin, _, _, err := s.load(ctx, administrationID)
	if err != nil {
		return nil, err
	}

	results := admin.Results.Data()
	if results == nil {
		return nil, ErrAdministrationNotActive
	}
	return results, nil
}

// ===== INTERNAL =====

// load fetches an administration with its scale and responses and rebuilds
// the state machine over them.
func (s *administrationService) load(ctx context.Context, id uint) (*models.ScaleAdministration, *models.ScaleDefinition, *administration.StateMachine, error) {
	admin, err := s.repo.Administration().GetByIDWithDetails(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, nil, ErrAdministrationNotFound
		}
		return nil, nil, nil, fmt.Errorf("failed to get administration: %w", err)
	}

	scale, err := s.scales.GetByID(ctx, admin.ScaleID)
	if err != nil {
		return nil, nil, nil, err
	}

	machine, err := administration.New(scale, admin)
	if err != nil {
		return nil, nil, nil, err
	}
	return admin, scale, machine, nil
}

func (s *administrationService) loadActive(ctx context.Context, id uint) (*models.ScaleAdministration, *models.ScaleDefinition, *administration.StateMachine, error) {
	admin, scale, machine, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	switch admin.Status {
	case models.AdministrationInProgress:
		return admin, scale, machine, nil
	case models.AdministrationCompleted:
		return nil, nil, nil, ErrAdministrationAlreadyComplete
	default:
		return nil, nil, nil, ErrAdministrationNotActive
	}
}

// scheduleProgressFlush defers the CurrentItemIndex write; a burst of
// responses collapses into one UPDATE once the respondent pauses.
func (s *administrationService) scheduleProgressFlush(administrationID uint, index int) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	if timer, ok := s.flushTimers[administrationID]; ok {
		timer.Stop()
	}
	s.flushTimers[administrationID] = time.AfterFunc(progressFlushDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.repo.Administration().UpdateProgress(ctx, administrationID, index); err != nil {
			s.logger.Error("Failed to flush administration progress",
				"administration_id", administrationID,
				"error", err)
		}

		s.flushMu.Lock()
		delete(s.flushTimers, administrationID)
		s.flushMu.Unlock()
	})
}

func (s *administrationService) cancelProgressFlush(administrationID uint) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	if timer, ok := s.flushTimers[administrationID]; ok {
		timer.Stop()
		delete(s.flushTimers, administrationID)
	}
}

// diffAlerts returns alerts in after that were not present in before,
// matched by item and message so re-saving an unchanged answer stays silent.
func diffAlerts(before, after []models.Alert) []models.Alert {
	var added []models.Alert
	for _, a := range after {
		seen := false
		for _, b := range before {
			if a.ItemID == b.ItemID && a.Type == b.Type && a.Message == b.Message {
				seen = true
				break
			}
		}
		if !seen {
			added = append(added, a)
		}
	}
	return added
}

func (s *administrationService) publishEvent(ctx context.Context, event *events.ClinicalEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishClinicalEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish clinical event",
			"event_type", event.Type,
			"error", err)
	}
}
