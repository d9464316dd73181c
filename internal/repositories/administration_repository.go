package repositories

import (
	"context"
	"time"

	"github.com/clinicore/scale-service/internal/models"
)

// AdministrationRepository persists scale administrations and their item
// responses.
type AdministrationRepository interface {
	Create(ctx context.Context, administration *models.ScaleAdministration) error
	GetByID(ctx context.Context, id uint) (*models.ScaleAdministration, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.ScaleAdministration, error) // Include responses + scale
	Update(ctx context.Context, administration *models.ScaleAdministration) error
	UpdateStatus(ctx context.Context, id uint, status models.AdministrationStatus) error
	UpdateProgress(ctx context.Context, id uint, currentItemIndex int) error

	// SaveResponse upserts the response for (administration, item):
	// last-write-wins per item, never append-only.
	SaveResponse(ctx context.Context, response *models.ItemResponse) error
	GetResponses(ctx context.Context, administrationID uint) ([]*models.ItemResponse, error)

	List(ctx context.Context, filters AdministrationFilters) ([]*models.ScaleAdministration, int64, error)
	GetBySession(ctx context.Context, sessionID uint) ([]*models.ScaleAdministration, error)
	GetActiveBySessionAndScale(ctx context.Context, sessionID, scaleID uint) (*models.ScaleAdministration, error)

	// GetStaleInProgress returns in-progress administrations with no response
	// activity since the cutoff; the session coordinator abandons them.
	GetStaleInProgress(ctx context.Context, cutoff time.Time) ([]*models.ScaleAdministration, error)

	GetScaleAdministrationStats(ctx context.Context, scaleID uint) (*AdministrationStats, error)
}

// AuditRepository records compliance audit entries. Entries are append-only.
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditEntry) error
	List(ctx context.Context, filters AuditFilters) ([]*models.AuditEntry, int64, error)
}
