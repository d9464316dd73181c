package postgres

import (
	"context"
	"time"

	"github.com/clinicore/scale-service/internal/models"
	"github.com/clinicore/scale-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AdministrationPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAdministrationPostgreSQL(db *gorm.DB) repositories.AdministrationRepository {
	return &AdministrationPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (a AdministrationPostgreSQL) Create(ctx context.Context, administration *models.ScaleAdministration) error {
	return a.db.WithContext(ctx).Create(administration).Error
}

func (a AdministrationPostgreSQL) GetByID(ctx context.Context, id uint) (*models.ScaleAdministration, error) {
	var administration models.ScaleAdministration
	if err := a.db.WithContext(ctx).First(&administration, id).Error; err != nil {
		return nil, err
	}
	return &administration, nil
}

func (a AdministrationPostgreSQL) GetByIDWithDetails(ctx context.Context, id uint) (*models.ScaleAdministration, error) {
	var administration models.ScaleAdministration
	if err := a.db.WithContext(ctx).
		Preload("Responses").
		Preload("Scale").
		Preload("Scale.Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("scale_items.number ASC")
		}).
		Preload("Scale.Subscales").
		Preload("Scale.InterpretationRules").
		Preload("Session").
		First(&administration, id).Error; err != nil {
		return nil, err
	}
	return &administration, nil
}

func (a AdministrationPostgreSQL) Update(ctx context.Context, administration *models.ScaleAdministration) error {
	return a.db.WithContext(ctx).Save(administration).Error
}

func (a AdministrationPostgreSQL) UpdateStatus(ctx context.Context, id uint, status models.AdministrationStatus) error {
	return a.db.WithContext(ctx).
		Model(&models.ScaleAdministration{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (a AdministrationPostgreSQL) UpdateProgress(ctx context.Context, id uint, currentItemIndex int) error {
	return a.db.WithContext(ctx).
		Model(&models.ScaleAdministration{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_item_index": currentItemIndex,
			"last_activity_at":   time.Now(),
		}).Error
}

// SaveResponse upserts on (administration_id, item_id) so that changing an
// answer overwrites the previous row instead of appending.
func (a AdministrationPostgreSQL) SaveResponse(ctx context.Context, response *models.ItemResponse) error {
	return a.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "administration_id"}, {Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"response_value", "response_label", "score_value", "response_time_ms", "was_skipped", "updated_at",
		}),
	}).Create(response).Error
}

func (a AdministrationPostgreSQL) GetResponses(ctx context.Context, administrationID uint) ([]*models.ItemResponse, error) {
	var responses []*models.ItemResponse
	if err := a.db.WithContext(ctx).
		Where("administration_id = ?", administrationID).
		Order("item_id ASC").
		Find(&responses).Error; err != nil {
		return nil, err
	}
	return responses, nil
}

func (a AdministrationPostgreSQL) List(ctx context.Context, filters repositories.AdministrationFilters) ([]*models.ScaleAdministration, int64, error) {
	var administrations []*models.ScaleAdministration
	var total int64

	// apply filter first
	query := a.db.WithContext(ctx).Model(&models.ScaleAdministration{})
	query = a.helpers.ApplyAdministrationFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Preload("Scale").Find(&administrations).Error; err != nil {
		return nil, 0, err
	}

	return administrations, total, nil
}

func (a AdministrationPostgreSQL) GetBySession(ctx context.Context, sessionID uint) ([]*models.ScaleAdministration, error) {
	var administrations []*models.ScaleAdministration
	if err := a.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Preload("Scale").
		Preload("Responses").
		Order("created_at ASC").
		Find(&administrations).Error; err != nil {
		return nil, err
	}
	return administrations, nil
}

func (a AdministrationPostgreSQL) GetActiveBySessionAndScale(ctx context.Context, sessionID, scaleID uint) (*models.ScaleAdministration, error) {
	var administration models.ScaleAdministration
	if err := a.db.WithContext(ctx).
		Where("session_id = ? AND scale_id = ?", sessionID, scaleID).
		Where("status IN ?", []models.AdministrationStatus{
			models.AdministrationNotStarted,
			models.AdministrationInProgress,
		}).
		Preload("Responses").
		First(&administration).Error; err != nil {
		return nil, err
	}
	return &administration, nil
}

func (a AdministrationPostgreSQL) GetStaleInProgress(ctx context.Context, cutoff time.Time) ([]*models.ScaleAdministration, error) {
	var administrations []*models.ScaleAdministration
	if err := a.db.WithContext(ctx).
		Where("status = ?", models.AdministrationInProgress).
		Where("last_activity_at IS NOT NULL AND last_activity_at < ?", cutoff).
		Preload("Responses").
		Find(&administrations).Error; err != nil {
		return nil, err
	}
	return administrations, nil
}

func (a AdministrationPostgreSQL) GetScaleAdministrationStats(ctx context.Context, scaleID uint) (*repositories.AdministrationStats, error) {
	stats := &repositories.AdministrationStats{
		StatusBreakdown: make(map[models.AdministrationStatus]int),
	}

	type statusCount struct {
		Status models.AdministrationStatus
		Count  int64
	}
	var counts []statusCount
	if err := a.db.WithContext(ctx).
		Model(&models.ScaleAdministration{}).
		Select("status, COUNT(*) as count").
		Where("scale_id = ?", scaleID).
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, err
	}

	for _, c := range counts {
		stats.StatusBreakdown[c.Status] = int(c.Count)
		stats.TotalAdministrations += int(c.Count)
	}
	if stats.TotalAdministrations > 0 {
		stats.AbandonRate = float64(stats.StatusBreakdown[models.AdministrationAbandoned]) / float64(stats.TotalAdministrations)
	}

	// Aggregate scores from completed administrations. Results live in a
	// JSONB column, so these come out of the document rather than columns.
	type scoreAgg struct {
		AvgScore      float64
		AvgCompletion float64
		CriticalCount int64
	}
	var agg scoreAgg
	if err := a.db.WithContext(ctx).
		Model(&models.ScaleAdministration{}).
		Select(`
			COALESCE(AVG((results->>'total_score')::numeric), 0) as avg_score,
			COALESCE(AVG((results->>'completion_percentage')::numeric), 0) as avg_completion,
			COUNT(*) FILTER (WHERE results @> '{"alerts": [{"type": "critical"}]}') as critical_count`).
		Where("scale_id = ? AND status = ?", scaleID, models.AdministrationCompleted).
		Scan(&agg).Error; err != nil {
		return nil, err
	}

	stats.AverageScore = agg.AvgScore
	stats.AverageCompletion = agg.AvgCompletion
	stats.CriticalAlertCount = int(agg.CriticalCount)

	return stats, nil
}
