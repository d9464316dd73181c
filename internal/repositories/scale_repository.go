package repositories

import (
	"context"

	"github.com/clinicore/scale-service/internal/models"
)

// ScaleRepository persists scale definitions. Definitions are created by an
// external content-authoring process and read-only afterwards; there is no
// update path, only deactivation and versioned re-creation.
type ScaleRepository interface {
	Create(ctx context.Context, scale *models.ScaleDefinition) error

	// UpdateItem persists item linkage fixups that can only happen after the
	// definition insert, inside the same registration transaction.
	UpdateItem(ctx context.Context, item *models.ScaleItem) error

	// GetByID loads the definition with items, subscales and interpretation
	// rules preloaded, items ordered by number.
	GetByID(ctx context.Context, id uint) (*models.ScaleDefinition, error)
	GetByAbbreviation(ctx context.Context, abbreviation string) (*models.ScaleDefinition, error)

	List(ctx context.Context, filters ScaleFilters) ([]*models.ScaleDefinition, int64, error)

	Deactivate(ctx context.Context, id uint) error
}
