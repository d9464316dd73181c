package postgres

import (
	"context"

	"github.com/clinicore/scale-service/internal/models"
	"github.com/clinicore/scale-service/internal/repositories"
	"gorm.io/gorm"
)

type AuditPostgreSQL struct {
	db *gorm.DB
}

func NewAuditPostgreSQL(db *gorm.DB) repositories.AuditRepository {
	return &AuditPostgreSQL{db: db}
}

func (a AuditPostgreSQL) Create(ctx context.Context, entry *models.AuditEntry) error {
	return a.db.WithContext(ctx).Create(entry).Error
}

func (a AuditPostgreSQL) List(ctx context.Context, filters repositories.AuditFilters) ([]*models.AuditEntry, int64, error) {
	var entries []*models.AuditEntry
	var total int64

	query := a.db.WithContext(ctx).Model(&models.AuditEntry{})
	if filters.EventType != nil {
		query = query.Where("event_type = ?", *filters.EventType)
	}
	if filters.TargetType != nil {
		query = query.Where("target_type = ?", *filters.TargetType)
	}
	if filters.TargetID != nil {
		query = query.Where("target_id = ?", *filters.TargetID)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
