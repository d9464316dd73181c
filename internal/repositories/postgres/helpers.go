package postgres

import (
	"fmt"
	"strings"

	"github.com/clinicore/scale-service/internal/repositories"
	"gorm.io/gorm"
)

type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// ApplyPaginationAndSort applies common pagination and sorting to a query.
// sortBy is restricted to known columns to avoid injection through filters.
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	if sortBy != "" && isSortableColumn(sortBy) {
		order := "asc"
		if strings.EqualFold(sortOrder, "desc") {
			order = "desc"
		}
		query = query.Order(fmt.Sprintf("%s %s", sortBy, order))
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}

func isSortableColumn(column string) bool {
	switch column {
	case "name", "abbreviation", "created_at", "updated_at", "session_date", "started_at", "completed_at", "status":
		return true
	}
	return false
}

// ApplySessionFilters applies session filters to a query.
func (h *SharedHelpers) ApplySessionFilters(query *gorm.DB, filters repositories.SessionFilters) *gorm.DB {
	if filters.PatientID != nil {
		query = query.Where("patient_id = ?", *filters.PatientID)
	}
	if filters.ClinicianID != nil {
		query = query.Where("clinician_id = ?", *filters.ClinicianID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		query = query.Where("session_date >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("session_date <= ?", *filters.DateTo)
	}
	return query
}

// ApplyAdministrationFilters applies administration filters to a query.
func (h *SharedHelpers) ApplyAdministrationFilters(query *gorm.DB, filters repositories.AdministrationFilters) *gorm.DB {
	if filters.SessionID != nil {
		query = query.Where("session_id = ?", *filters.SessionID)
	}
	if filters.ScaleID != nil {
		query = query.Where("scale_id = ?", *filters.ScaleID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}

// ApplyScaleFilters applies scale catalog filters to a query.
func (h *SharedHelpers) ApplyScaleFilters(query *gorm.DB, filters repositories.ScaleFilters) *gorm.DB {
	if filters.Mode != nil {
		query = query.Where("mode = ?", *filters.Mode)
	}
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}
	if filters.Search != "" {
		pattern := "%" + strings.ToLower(filters.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(abbreviation) LIKE ?", pattern, pattern)
	}
	return query
}
