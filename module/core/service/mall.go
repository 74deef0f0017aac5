package service

import (
	"context"
	"fmt"

	"github.com/nandanugg/mallfence/module/core/domain"
	"github.com/nandanugg/mallfence/module/core/internal/repository/database"
)

type cacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

type MallService struct {
	repo     database.MallRepository
	registry *GeofenceService
	radius   float64
}

func NewMallService(repo database.MallRepository, registry *GeofenceService, radiusMeters float64) *MallService {
	return &MallService{repo: repo, registry: registry, radius: radiusMeters}
}

// SyncGeofences loads every mall and registers a geofence for each one with
// coordinates. A zero radius falls back to the configured one; refresh drops
// any cached mall list first.
func (s *MallService) SyncGeofences(ctx context.Context, radiusMeters float64, refresh bool) (int, error) {
	if radiusMeters == 0 {
		radiusMeters = s.radius
	}
	if inv, ok := s.repo.(cacheInvalidator); ok && refresh {
		if err := inv.Invalidate(ctx); err != nil {
			return 0, fmt.Errorf("invalidate mall cache: %w", err)
		}
	}

	malls, err := s.repo.ListMalls(ctx)
	if err != nil {
		return 0, fmt.Errorf("list malls: %w", err)
	}
	return s.registry.CreateGeofencesFromMalls(malls, radiusMeters)
}

func (s *MallService) ListMalls(ctx context.Context) ([]domain.Mall, error) {
	return s.repo.ListMalls(ctx)
}
