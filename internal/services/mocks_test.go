package services

import (
	"context"
	"time"

	"github.com/clinicore/scale-service/internal/models"
	"github.com/clinicore/scale-service/internal/repositories"
	"github.com/stretchr/testify/mock"
)

// MockScaleRepository is a mock implementation of ScaleRepository
type MockScaleRepository struct {
	mock.Mock
}

func (m *MockScaleRepository) Create(ctx context.Context, scale *models.ScaleDefinition) error {
	args := m.Called(ctx, scale)
	return args.Error(0)
}

func (m *MockScaleRepository) UpdateItem(ctx context.Context, item *models.ScaleItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockScaleRepository) GetByID(ctx context.Context, id uint) (*models.ScaleDefinition, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScaleDefinition), args.Error(1)
}

func (m *MockScaleRepository) GetByAbbreviation(ctx context.Context, abbreviation string) (*models.ScaleDefinition, error) {
	args := m.Called(ctx, abbreviation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScaleDefinition), args.Error(1)
}

func (m *MockScaleRepository) List(ctx context.Context, filters repositories.ScaleFilters) ([]*models.ScaleDefinition, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.ScaleDefinition), args.Get(1).(int64), args.Error(2)
}

func (m *MockScaleRepository) Deactivate(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.AssessmentSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id uint) (*models.AssessmentSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AssessmentSession), args.Error(1)
}

func (m *MockSessionRepository) GetByIDWithDetails(ctx context.Context, id uint) (*models.AssessmentSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AssessmentSession), args.Error(1)
}

func (m *MockSessionRepository) Update(ctx context.Context, session *models.AssessmentSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) UpdateStatus(ctx context.Context, id uint, status models.SessionStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSessionRepository) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.AssessmentSession, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.AssessmentSession), args.Get(1).(int64), args.Error(2)
}

func (m *MockSessionRepository) GetByPatient(ctx context.Context, patientID string, filters repositories.SessionFilters) ([]*models.AssessmentSession, int64, error) {
	args := m.Called(ctx, patientID, filters)
	return args.Get(0).([]*models.AssessmentSession), args.Get(1).(int64), args.Error(2)
}

func (m *MockSessionRepository) GetCompletedAdministrations(ctx context.Context, patientID string, scaleID *uint) ([]*models.ScaleAdministration, error) {
	args := m.Called(ctx, patientID, scaleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ScaleAdministration), args.Error(1)
}

func (m *MockSessionRepository) GetSessionStats(ctx context.Context, patientID string) (*repositories.SessionStats, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.SessionStats), args.Error(1)
}

// MockAdministrationRepository is a mock implementation of AdministrationRepository
type MockAdministrationRepository struct {
	mock.Mock
}

func (m *MockAdministrationRepository) Create(ctx context.Context, administration *models.ScaleAdministration) error {
	args := m.Called(ctx, administration)
	return args.Error(0)
}

func (m *MockAdministrationRepository) GetByID(ctx context.Context, id uint) (*models.ScaleAdministration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScaleAdministration), args.Error(1)
}

func (m *MockAdministrationRepository) GetByIDWithDetails(ctx context.Context, id uint) (*models.ScaleAdministration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScaleAdministration), args.Error(1)
}

func (m *MockAdministrationRepository) Update(ctx context.Context, administration *models.ScaleAdministration) error {
	args := m.Called(ctx, administration)
	return args.Error(0)
}

func (m *MockAdministrationRepository) UpdateStatus(ctx context.Context, id uint, status models.AdministrationStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockAdministrationRepository) UpdateProgress(ctx context.Context, id uint, currentItemIndex int) error {
	args := m.Called(ctx, id, currentItemIndex)
	return args.Error(0)
}

func (m *MockAdministrationRepository) SaveResponse(ctx context.Context, response *models.ItemResponse) error {
	args := m.Called(ctx, response)
	return args.Error(0)
}

func (m *MockAdministrationRepository) GetResponses(ctx context.Context, administrationID uint) ([]*models.ItemResponse, error) {
	args := m.Called(ctx, administrationID)
	return args.Get(0).([]*models.ItemResponse), args.Error(1)
}

func (m *MockAdministrationRepository) List(ctx context.Context, filters repositories.AdministrationFilters) ([]*models.ScaleAdministration, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.ScaleAdministration), args.Get(1).(int64), args.Error(2)
}

func (m *MockAdministrationRepository) GetBySession(ctx context.Context, sessionID uint) ([]*models.ScaleAdministration, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]*models.ScaleAdministration), args.Error(1)
}

func (m *MockAdministrationRepository) GetActiveBySessionAndScale(ctx context.Context, sessionID, scaleID uint) (*models.ScaleAdministration, error) {
	args := m.Called(ctx, sessionID, scaleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScaleAdministration), args.Error(1)
}

func (m *MockAdministrationRepository) GetStaleInProgress(ctx context.Context, cutoff time.Time) ([]*models.ScaleAdministration, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ScaleAdministration), args.Error(1)
}

func (m *MockAdministrationRepository) GetScaleAdministrationStats(ctx context.Context, scaleID uint) (*repositories.AdministrationStats, error) {
	args := m.Called(ctx, scaleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.AdministrationStats), args.Error(1)
}

// MockAuditRepository is a mock implementation of AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) List(ctx context.Context, filters repositories.AuditFilters) ([]*models.AuditEntry, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.AuditEntry), args.Get(1).(int64), args.Error(2)
}

// MockRepository bundles the per-entity mocks behind the Repository interface.
// WithTransaction runs the callback against the same mocks, so expectations
// set on them cover transactional calls too.
type MockRepository struct {
	scale          *MockScaleRepository
	session        *MockSessionRepository
	administration *MockAdministrationRepository
	audit          *MockAuditRepository
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		scale:          &MockScaleRepository{},
		session:        &MockSessionRepository{},
		administration: &MockAdministrationRepository{},
		audit:          &MockAuditRepository{},
	}
}

func (m *MockRepository) Scale() repositories.ScaleRepository                   { return m.scale }
func (m *MockRepository) Session() repositories.SessionRepository               { return m.session }
func (m *MockRepository) Administration() repositories.AdministrationRepository { return m.administration }
func (m *MockRepository) Audit() repositories.AuditRepository                   { return m.audit }

func (m *MockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func (m *MockRepository) Ping(ctx context.Context) error { return nil }
func (m *MockRepository) Close() error                   { return nil }

// stubScaleService serves fixture definitions by ID without touching the
// repository or cache. Only GetByID is implemented; the embedded interface
// covers the rest.
type stubScaleService struct {
	ScaleService
	scales map[uint]*models.ScaleDefinition
}

func newStubScaleService(scales ...*models.ScaleDefinition) *stubScaleService {
	byID := make(map[uint]*models.ScaleDefinition, len(scales))
	for _, scale := range scales {
		byID[scale.ID] = scale
	}
	return &stubScaleService{scales: byID}
}

func (s *stubScaleService) GetByID(ctx context.Context, id uint) (*models.ScaleDefinition, error) {
	scale, ok := s.scales[id]
	if !ok {
		return nil, ErrScaleNotFound
	}
	return scale, nil
}
