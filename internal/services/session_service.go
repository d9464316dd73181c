package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clinicore/scale-service/internal/administration"
	"github.com/clinicore/scale-service/internal/events"
	"github.com/clinicore/scale-service/internal/models"
	"github.com/clinicore/scale-service/internal/repositories"
	"github.com/clinicore/scale-service/internal/validator"
)

type sessionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	scales    ScaleService
	publisher events.EventPublisher
}

func NewSessionService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator, scales ScaleService, publisher events.EventPublisher) SessionService {
	return &sessionService{
		repo:      repo,
		logger:    logger,
		validator: v,
		scales:    scales,
		publisher: publisher,
	}
}

// ===== LIFECYCLE =====

// Create registers a session and, when scale IDs are given, pre-creates a
// not_started administration for each planned scale.
func (s *sessionService) Create(ctx context.Context, req *CreateSessionRequest, actorID string) (*models.AssessmentSession, error) {
	s.logger.Info("Creating assessment session",
		"patient_id", req.PatientID,
		"session_type", req.SessionType,
		"planned_scales", len(req.ScaleIDs))

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Planned scales must exist and be active before the session is created.
	for _, scaleID := range req.ScaleIDs {
		scale, err := s.scales.GetByID(ctx, scaleID)
		if err != nil {
			return nil, err
		}
		if !scale.IsActive {
			return nil, ErrScaleInactive
		}
	}

	session := &models.AssessmentSession{
		PatientID:   req.PatientID,
		ClinicianID: req.ClinicianID,
		SessionType: req.SessionType,
		SessionDate: req.SessionDate,
		Status:      models.SessionScheduled,
	}

	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Session().Create(ctx, session); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		for _, scaleID := range req.ScaleIDs {
			admin := &models.ScaleAdministration{
				SessionID: session.ID,
				ScaleID:   scaleID,
				Status:    models.AdministrationNotStarted,
			}
			if err := txRepo.Administration().Create(ctx, admin); err != nil {
				return fmt.Errorf("failed to create planned administration: %w", err)
			}
		}
		return txRepo.Audit().Create(ctx, &models.AuditEntry{
			EventType:   models.AuditSessionCreated,
			ActorID:     actorID,
			TargetType:  "session",
			TargetID:    &session.ID,
			Description: fmt.Sprintf("session created for patient %s with %d planned scales", session.PatientID, len(req.ScaleIDs)),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Assessment session created",
		"session_id", session.ID,
		"patient_id", session.PatientID)

	return session, nil
}

func (s *sessionService) GetByID(ctx context.Context, id uint) (*models.AssessmentSession, error) {
	session, err := s.repo.Session().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (s *sessionService) GetByIDWithDetails(ctx context.Context, id uint) (*models.AssessmentSession, error) {
	session, err := s.repo.Session().GetByIDWithDetails(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	session.AdministrationCount = len(session.Administrations)
	return session, nil
}

func (s *sessionService) List(ctx context.Context, filters repositories.SessionFilters) (*SessionListResponse, error) {
	sessions, total, err := s.repo.Session().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	for _, session := range sessions {
		session.AdministrationCount = len(session.Administrations)
	}

	return &SessionListResponse{
		Sessions: sessions,
		Total:    total,
		Limit:    filters.Limit,
		Offset:   filters.Offset,
	}, nil
}

func (s *sessionService) Start(ctx context.Context, id uint, actorID string) (*models.AssessmentSession, error) {
	session, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.IsTerminal() {
		return nil, ErrSessionTerminal
	}
	if session.Status == models.SessionInProgress {
		return session, nil
	}

	now := time.Now()
	session.Status = models.SessionInProgress
	session.StartedAt = &now
	if err := s.repo.Session().Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	s.logger.Info("Assessment session started", "session_id", id)
	return session, nil
}

// Complete closes a session. In-flight administrations are abandoned with
// partial results first; the session lands on completed only when every
// planned administration finished, otherwise on incomplete.
func (s *sessionService) Complete(ctx context.Context, id uint, actorID string) (*models.AssessmentSession, error) {
	session, err := s.GetByIDWithDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.IsTerminal() {
		return nil, ErrSessionTerminal
	}

	completed, incomplete, hasCritical, err := s.settleAdministrations(ctx, session, "session completed", actorID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session.CompletedAt = &now
	if incomplete == 0 {
		session.Status = models.SessionCompleted
	} else {
		session.Status = models.SessionIncomplete
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Session().Update(ctx, session); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		return txRepo.Audit().Create(ctx, &models.AuditEntry{
			EventType:   models.AuditSessionCompleted,
			ActorID:     actorID,
			TargetType:  "session",
			TargetID:    &session.ID,
			Description: fmt.Sprintf("session closed with %d completed and %d incomplete administrations", completed, incomplete),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.NewSessionCompletedEvent(session, completed, incomplete, hasCritical))

	s.logger.Info("Assessment session completed",
		"session_id", id,
		"status", session.Status,
		"completed_administrations", completed,
		"incomplete_administrations", incomplete)

	return session, nil
}

func (s *sessionService) Cancel(ctx context.Context, id uint, reason string, actorID string) (*models.AssessmentSession, error) {
	session, err := s.GetByIDWithDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.IsTerminal() {
		return nil, ErrSessionTerminal
	}

	if _, _, _, err := s.settleAdministrations(ctx, session, "session cancelled: "+reason, actorID); err != nil {
		return nil, err
	}

	session.Status = models.SessionCancelled

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Session().Update(ctx, session); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		return txRepo.Audit().Create(ctx, &models.AuditEntry{
			EventType:   models.AuditSessionCancelled,
			ActorID:     actorID,
			TargetType:  "session",
			TargetID:    &session.ID,
			Description: fmt.Sprintf("session cancelled: %s", reason),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.NewSessionCancelledEvent(session, reason))

	s.logger.Info("Assessment session cancelled", "session_id", id, "reason", reason)
	return session, nil
}

// settleAdministrations abandons every in-progress administration of the
// session with partial results and tallies the outcome.
func (s *sessionService) settleAdministrations(ctx context.Context, session *models.AssessmentSession, reason, actorID string) (completed, incomplete int, hasCritical bool, err error) {
	for i := range session.Administrations {
		admin := &session.Administrations[i]

		switch admin.Status {
		case models.AdministrationCompleted:
			completed++
			if results := admin.Results.Data(); results != nil && results.HasCriticalAlert() {
				hasCritical = true
			}
			continue
		case models.AdministrationAbandoned:
			incomplete++
			continue
		case models.AdministrationNotStarted:
			incomplete++
			continue
		}

		scale, scaleErr := s.scales.GetByID(ctx, admin.ScaleID)
		if scaleErr != nil {
			return 0, 0, false, scaleErr
		}
		machine, mErr := administration.New(scale, admin)
		if mErr != nil {
			return 0, 0, false, mErr
		}
		results, aErr := machine.Abandon()
		if aErr != nil {
			return 0, 0, false, fmt.Errorf("failed to abandon administration %d: %w", admin.ID, aErr)
		}
		if err := s.repo.Administration().Update(ctx, admin); err != nil {
			return 0, 0, false, fmt.Errorf("failed to persist abandoned administration %d: %w", admin.ID, err)
		}
		if results.HasCriticalAlert() {
			hasCritical = true
		}
		incomplete++

		s.publishEvent(ctx, events.NewAdministrationAbandonedEvent(admin, session.PatientID, reason, scale.TotalItems))
	}
	return completed, incomplete, hasCritical, nil
}

// ===== TIMELINE =====

// GetPatientTimeline builds the chronological score history for a patient.
// ScoreChange on each entry is the delta against the previous administration
// of the same scale; the first entry per scale carries no delta.
func (s *sessionService) GetPatientTimeline(ctx context.Context, patientID string, scaleID *uint) ([]models.TimelineEntry, error) {
	administrations, err := s.repo.Session().GetCompletedAdministrations(ctx, patientID, scaleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed administrations: %w", err)
	}

	timeline := make([]models.TimelineEntry, 0, len(administrations))
	lastScoreByScale := make(map[uint]float64)

	for _, admin := range administrations {
		results := admin.Results.Data()
		if results == nil {
			continue
		}

		entry := models.TimelineEntry{
			SessionID:         admin.SessionID,
			AdministrationID:  admin.ID,
			ScaleID:           admin.ScaleID,
			ScaleAbbreviation: admin.Scale.Abbreviation,
			SessionDate:       admin.Session.SessionDate,
			Score:             results.TotalScore,
			Partial:           results.Partial,
		}
		if results.Interpretation != nil {
			entry.Severity = &results.Interpretation.Severity
		}
		if prev, ok := lastScoreByScale[admin.ScaleID]; ok {
			delta := results.TotalScore - prev
			entry.ScoreChange = &delta
		}
		lastScoreByScale[admin.ScaleID] = results.TotalScore

		timeline = append(timeline, entry)
	}

	return timeline, nil
}

func (s *sessionService) GetSessionStats(ctx context.Context, patientID string) (*repositories.SessionStats, error) {
	stats, err := s.repo.Session().GetSessionStats(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session stats: %w", err)
	}
	return stats, nil
}

// ===== MAINTENANCE =====

// AbandonStale sweeps administrations that went quiet. It runs from a
// periodic job; each stale administration is abandoned with partial results.
func (s *sessionService) AbandonStale(ctx context.Context, inactiveFor time.Duration) (int, error) {
	cutoff := time.Now().Add(-inactiveFor)

	stale, err := s.repo.Administration().GetStaleInProgress(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to find stale administrations: %w", err)
	}

	abandoned := 0
	for _, admin := range stale {
		scale, err := s.scales.GetByID(ctx, admin.ScaleID)
		if err != nil {
			s.logger.Error("Failed to load scale for stale administration",
				"administration_id", admin.ID, "error", err)
			continue
		}
		machine, err := administration.New(scale, admin)
		if err != nil {
			continue
		}
		if _, err := machine.Abandon(); err != nil {
			s.logger.Error("Failed to abandon stale administration",
				"administration_id", admin.ID, "error", err)
			continue
		}
		if err := s.repo.Administration().Update(ctx, admin); err != nil {
			s.logger.Error("Failed to persist stale administration",
				"administration_id", admin.ID, "error", err)
			continue
		}

		if err := s.repo.Audit().Create(ctx, &models.AuditEntry{
			EventType:   models.AuditAdministrationAbandon,
			ActorID:     "system",
			ActorRole:   "system",
			TargetType:  "administration",
			TargetID:    &admin.ID,
			Description: fmt.Sprintf("administration abandoned after %s of inactivity", inactiveFor),
		}); err != nil {
			s.logger.Error("Failed to record stale abandon audit entry",
				"administration_id", admin.ID, "error", err)
		}

		abandoned++
	}

	if abandoned > 0 {
		s.logger.Info("Abandoned stale administrations", "count", abandoned)
	}
	return abandoned, nil
}

func (s *sessionService) publishEvent(ctx context.Context, event *events.ClinicalEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishClinicalEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish clinical event",
			"event_type", event.Type,
			"error", err)
	}
}
