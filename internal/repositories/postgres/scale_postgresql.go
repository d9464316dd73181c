package postgres

import (
	"context"

	"github.com/clinicore/scale-service/internal/models"
	"github.com/clinicore/scale-service/internal/repositories"
	"gorm.io/gorm"
)

type ScalePostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewScalePostgreSQL(db *gorm.DB) repositories.ScaleRepository {
	return &ScalePostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (s ScalePostgreSQL) Create(ctx context.Context, scale *models.ScaleDefinition) error {
	return s.db.WithContext(ctx).Create(scale).Error
}

func (s ScalePostgreSQL) UpdateItem(ctx context.Context, item *models.ScaleItem) error {
	return s.db.WithContext(ctx).Save(item).Error
}

func (s ScalePostgreSQL) GetByID(ctx context.Context, id uint) (*models.ScaleDefinition, error) {
	var scale models.ScaleDefinition
	if err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("scale_items.number ASC")
		}).
		Preload("Subscales").
		Preload("InterpretationRules").
		First(&scale, id).Error; err != nil {
		return nil, err
	}
	return &scale, nil
}

func (s ScalePostgreSQL) GetByAbbreviation(ctx context.Context, abbreviation string) (*models.ScaleDefinition, error) {
	var scale models.ScaleDefinition
	if err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("scale_items.number ASC")
		}).
		Preload("Subscales").
		Preload("InterpretationRules").
		Where("abbreviation = ?", abbreviation).
		First(&scale).Error; err != nil {
		return nil, err
	}
	return &scale, nil
}

func (s ScalePostgreSQL) List(ctx context.Context, filters repositories.ScaleFilters) ([]*models.ScaleDefinition, int64, error) {
	var scales []*models.ScaleDefinition
	var total int64

	// apply filter first
	query := s.db.WithContext(ctx).Model(&models.ScaleDefinition{})
	query = s.helpers.ApplyScaleFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = s.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&scales).Error; err != nil {
		return nil, 0, err
	}

	return scales, total, nil
}

func (s ScalePostgreSQL) Deactivate(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).
		Model(&models.ScaleDefinition{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}
