package postgres

import (
	"context"

	"github.com/clinicore/scale-service/internal/repositories"
	"gorm.io/gorm"
)

type gormRepository struct {
	db             *gorm.DB
	scale          repositories.ScaleRepository
	session        repositories.SessionRepository
	administration repositories.AdministrationRepository
	audit          repositories.AuditRepository
}

// NewRepository builds the postgres-backed repository aggregate.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &gormRepository{
		db:             db,
		scale:          NewScalePostgreSQL(db),
		session:        NewSessionPostgreSQL(db),
		administration: NewAdministrationPostgreSQL(db),
		audit:          NewAuditPostgreSQL(db),
	}
}

func (r *gormRepository) Scale() repositories.ScaleRepository {
	return r.scale
}

func (r *gormRepository) Session() repositories.SessionRepository {
	return r.session
}

func (r *gormRepository) Administration() repositories.AdministrationRepository {
	return r.administration
}

func (r *gormRepository) Audit() repositories.AuditRepository {
	return r.audit
}

// WithTransaction runs fn against a repository bound to a single
// transaction; fn returning an error rolls everything back.
func (r *gormRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

func (r *gormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *gormRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
