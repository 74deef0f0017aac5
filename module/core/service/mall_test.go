package service

import (
	"context"
	"errors"
	"testing"

	"github.com/nandanugg/mallfence/module/core/domain"
)

type mockMallRepo struct {
	listMallsFn func(ctx context.Context) ([]domain.Mall, error)
}

func (m *mockMallRepo) ListMalls(ctx context.Context) ([]domain.Mall, error) {
	return m.listMallsFn(ctx)
}

func TestSyncGeofences_Success(t *testing.T) {
	repo := &mockMallRepo{
		listMallsFn: func(context.Context) ([]domain.Mall, error) {
			return []domain.Mall{
				{ID: "m1", Name: "Plaza", Latitude: ptr(-6.2088), Longitude: ptr(106.8456)},
				{ID: "m2", Name: "No coords"},
			}, nil
		},
	}
	registry := newRegistry(t)
	svc := NewMallService(repo, registry, 250)

	n, err := svc.SyncGeofences(context.Background(), 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 geofence, got %d", n)
	}
	g, err := registry.Geofence("m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Radius != 250 {
		t.Errorf("expected configured radius 250, got %f", g.Radius)
	}
}

func TestSyncGeofences_ExplicitRadius(t *testing.T) {
	repo := &mockMallRepo{
		listMallsFn: func(context.Context) ([]domain.Mall, error) {
			return []domain.Mall{{ID: "m1", Latitude: ptr(0), Longitude: ptr(0)}}, nil
		},
	}
	registry := newRegistry(t)
	svc := NewMallService(repo, registry, 250)

	if _, err := svc.SyncGeofences(context.Background(), 800, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g, _ := registry.Geofence("m1"); g.Radius != 800 {
		t.Errorf("expected radius 800, got %f", g.Radius)
	}
}

func TestSyncGeofences_RepoError(t *testing.T) {
	repo := &mockMallRepo{
		listMallsFn: func(context.Context) ([]domain.Mall, error) {
			return nil, errors.New("db error")
		},
	}
	svc := NewMallService(repo, newRegistry(t), 250)

	if _, err := svc.SyncGeofences(context.Background(), 0, false); err == nil {
		t.Fatal("expected error")
	}
}

type invalidatingRepo struct {
	mockMallRepo
	invalidated int
}

func (r *invalidatingRepo) Invalidate(context.Context) error {
	r.invalidated++
	return nil
}

func TestSyncGeofences_RefreshInvalidatesCache(t *testing.T) {
	repo := &invalidatingRepo{mockMallRepo: mockMallRepo{
		listMallsFn: func(context.Context) ([]domain.Mall, error) { return nil, nil },
	}}
	svc := NewMallService(repo, newRegistry(t), 250)

	if _, err := svc.SyncGeofences(context.Background(), 0, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.invalidated != 0 {
		t.Fatalf("expected no invalidation, got %d", repo.invalidated)
	}
	if _, err := svc.SyncGeofences(context.Background(), 0, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.invalidated != 1 {
		t.Fatalf("expected 1 invalidation, got %d", repo.invalidated)
	}
}
