package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clinicore/scale-service/internal/cache"
	"github.com/clinicore/scale-service/internal/models"
	"github.com/clinicore/scale-service/internal/repositories"
	"github.com/clinicore/scale-service/internal/scoring"
	"github.com/clinicore/scale-service/internal/validator"
	"gorm.io/datatypes"
)

const (
	scaleCacheTTL       = 30 * time.Minute
	scaleCacheKeyPrefix = "scale:definition:"
)

type scaleService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	cache     cache.CacheService
}

func NewScaleService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator, cacheService cache.CacheService) ScaleService {
	return &scaleService{
		repo:      repo,
		logger:    logger,
		validator: v,
		cache:     cacheService,
	}
}

// Register validates a scale definition structurally and persists it.
// Registration is all-or-nothing: a definition that fails any invariant
// check is rejected and nothing is stored.
func (s *scaleService) Register(ctx context.Context, req *RegisterScaleRequest, actorID string) (*models.ScaleDefinition, error) {
	s.logger.Info("Registering scale definition",
		"abbreviation", req.Abbreviation,
		"items", len(req.Items),
		"actor_id", actorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if existing, err := s.repo.Scale().GetByAbbreviation(ctx, req.Abbreviation); err == nil && existing != nil {
		return nil, ErrScaleAlreadyExists
	} else if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check abbreviation: %w", err)
	}

	scale, subscaleIdxByItem, err := s.buildDefinition(req)
	if err != nil {
		return nil, err
	}

	// Structural invariants are checked before anything touches the
	// database; a bad definition must never become administrable.
	if err := s.validator.Scale().ValidateDefinition(scale); err != nil {
		s.logger.Warn("Scale definition rejected",
			"abbreviation", req.Abbreviation,
			"error", err)
		return nil, err
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Scale().Create(ctx, scale); err != nil {
			return fmt.Errorf("failed to create scale: %w", err)
		}

		// Subscale rows only have IDs after the insert, so item linkage by
		// name is resolved here inside the same transaction.
		for itemIdx, subIdx := range subscaleIdxByItem {
			scale.Items[itemIdx].SubscaleID = &scale.Subscales[subIdx].ID
			if err := txRepo.Scale().UpdateItem(ctx, &scale.Items[itemIdx]); err != nil {
				return fmt.Errorf("failed to link item %d to subscale: %w", scale.Items[itemIdx].Number, err)
			}
		}

		return txRepo.Audit().Create(ctx, &models.AuditEntry{
			EventType:   models.AuditScaleLoaded,
			ActorID:     actorID,
			ActorRole:   "clinician",
			TargetType:  "scale",
			TargetID:    &scale.ID,
			Description: fmt.Sprintf("scale %s registered with %d items", scale.Abbreviation, len(scale.Items)),
		})
	})
	if err != nil {
		return nil, err
	}

	scale.MaxScore = scoring.MaxPossibleScore(scale)

	s.logger.Info("Scale definition registered",
		"scale_id", scale.ID,
		"abbreviation", scale.Abbreviation,
		"max_score", scale.MaxScore)

	return scale, nil
}

// GetByID fetches a scale definition, read-through cached. Definitions are
// immutable so a long TTL is safe; deactivation invalidates explicitly.
func (s *scaleService) GetByID(ctx context.Context, id uint) (*models.ScaleDefinition, error) {
	cacheKey := fmt.Sprintf("%s%d", scaleCacheKeyPrefix, id)

	if s.cache != nil {
		var cached models.ScaleDefinition
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	scale, err := s.repo.Scale().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrScaleNotFound
		}
		return nil, fmt.Errorf("failed to get scale: %w", err)
	}
	scale.MaxScore = scoring.MaxPossibleScore(scale)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, scale, scaleCacheTTL); err != nil {
			s.logger.Warn("Failed to cache scale definition", "scale_id", id, "error", err)
		}
	}

	return scale, nil
}

func (s *scaleService) GetByAbbreviation(ctx context.Context, abbreviation string) (*models.ScaleDefinition, error) {
	scale, err := s.repo.Scale().GetByAbbreviation(ctx, abbreviation)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrScaleNotFound
		}
		return nil, fmt.Errorf("failed to get scale: %w", err)
	}
	scale.MaxScore = scoring.MaxPossibleScore(scale)
	return scale, nil
}

func (s *scaleService) List(ctx context.Context, filters repositories.ScaleFilters) (*ScaleListResponse, error) {
	scales, total, err := s.repo.Scale().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list scales: %w", err)
	}

	return &ScaleListResponse{
		Scales: scales,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}, nil
}

func (s *scaleService) Deactivate(ctx context.Context, id uint, actorID string) error {
	s.logger.Info("Deactivating scale", "scale_id", id, "actor_id", actorID)

	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Scale().Deactivate(ctx, id); err != nil {
		return fmt.Errorf("failed to deactivate scale: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, fmt.Sprintf("%s%d", scaleCacheKeyPrefix, id)); err != nil {
			s.logger.Warn("Failed to invalidate scale cache", "scale_id", id, "error", err)
		}
	}

	if err := s.repo.Audit().Create(ctx, &models.AuditEntry{
		EventType:   models.AuditScaleDeactivated,
		ActorID:     actorID,
		ActorRole:   "clinician",
		TargetType:  "scale",
		TargetID:    &id,
		Description: "scale deactivated",
	}); err != nil {
		s.logger.Error("Failed to record deactivation audit entry", "scale_id", id, "error", err)
	}

	return nil
}

func (s *scaleService) GetStats(ctx context.Context, id uint) (*repositories.AdministrationStats, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}

	stats, err := s.repo.Administration().GetScaleAdministrationStats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get administration stats: %w", err)
	}
	return stats, nil
}

// buildDefinition maps the registration request onto the persistence model.
// It returns the item-index to subscale-index linkage separately because
// subscale IDs do not exist until the definition is inserted.
func (s *scaleService) buildDefinition(req *RegisterScaleRequest) (*models.ScaleDefinition, map[int]int, error) {
	scale := &models.ScaleDefinition{
		Name:         req.Name,
		Abbreviation: req.Abbreviation,
		Description:  req.Description,
		TotalItems:   len(req.Items),
		Mode:         req.Mode,
		Method:       req.Method,
		IsActive:     true,
		Version:      1,
	}
	if len(req.ResponseOptions) > 0 {
		scale.ResponseOptions = datatypes.NewJSONType(req.ResponseOptions)
	}
	if len(req.CompositeAlertRules) > 0 {
		scale.CompositeAlertRules = datatypes.NewJSONType(req.CompositeAlertRules)
	}

	subscaleIdxByName := make(map[string]int, len(req.Subscales))
	for i, sub := range req.Subscales {
		scale.Subscales = append(scale.Subscales, models.Subscale{Name: sub.Name})
		subscaleIdxByName[sub.Name] = i
	}

	subscaleIdxByItem := make(map[int]int)
	for i, itemReq := range req.Items {
		item := models.ScaleItem{
			Number:        itemReq.Number,
			QuestionText:  itemReq.QuestionText,
			ResponseType:  itemReq.ResponseType,
			Required:      true,
			ReverseScored: itemReq.ReverseScored,
			ScoringWeight: 1.0,
			AlertTrigger:  itemReq.AlertTrigger,
		}
		if itemReq.Required != nil {
			item.Required = *itemReq.Required
		}
		if itemReq.ScoringWeight != nil {
			item.ScoringWeight = *itemReq.ScoringWeight
		}
		if len(itemReq.ResponseOptions) > 0 {
			item.ResponseOptions = datatypes.NewJSONType(itemReq.ResponseOptions)
		}
		if itemReq.AlertCondition != nil {
			item.AlertCondition = datatypes.NewJSONType(itemReq.AlertCondition)
		}
		if itemReq.SubscaleName != nil {
			idx, ok := subscaleIdxByName[*itemReq.SubscaleName]
			if !ok {
				return nil, nil, NewValidationError(
					fmt.Sprintf("items[%d].subscale_name", i),
					"subscale name is not declared on the scale",
					*itemReq.SubscaleName,
				)
			}
			subscaleIdxByItem[i] = idx
		}
		scale.Items = append(scale.Items, item)
	}

	for _, ruleReq := range req.InterpretationRules {
		rule := models.InterpretationRule{
			MinScore:    ruleReq.MinScore,
			MaxScore:    ruleReq.MaxScore,
			Severity:    ruleReq.Severity,
			Label:       ruleReq.Label,
			Description: ruleReq.Description,
		}
		if len(ruleReq.Recommendations) > 0 {
			rule.Recommendations = datatypes.NewJSONType(ruleReq.Recommendations)
		}
		scale.InterpretationRules = append(scale.InterpretationRules, rule)
	}

	return scale, subscaleIdxByItem, nil
}
