package units

import (
	"context"

	"github.com/Domenick1991/hotelops/internal/domain"
	"github.com/Domenick1991/hotelops/internal/repository"
)

type UnitUseCase interface {
	List(ctx context.Context) ([]domain.Unit, error)
	GetByID(ctx context.Context, id int64) (*domain.Unit, error)
}

type UnitCache interface {
	GetUnits(ctx context.Context) ([]domain.Unit, error)
	SetUnits(ctx context.Context, units []domain.Unit) error
}

type UnitService struct {
	repo  repository.UnitRepository
	cache UnitCache
}

func NewUnitService(repo repository.UnitRepository, cache UnitCache) *UnitService {
	return &UnitService{repo: repo, cache: cache}
}

func (s *UnitService) List(ctx context.Context) ([]domain.Unit, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetUnits(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	units, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetUnits(ctx, units)
	}
	return units, nil
}

func (s *UnitService) GetByID(ctx context.Context, id int64) (*domain.Unit, error) {
	return s.repo.GetByID(ctx, id)
}

var _ UnitUseCase = (*UnitService)(nil)
