package database

import (
	"context"

	"github.com/nandanugg/mallfence/module/core/domain"
)

type MallRepository interface {
	ListMalls(ctx context.Context) ([]domain.Mall, error)
}

type PermissionRepository interface {
	Get(ctx context.Context, deviceID string) (domain.Permission, error)
	Set(ctx context.Context, deviceID string, perm domain.Permission) error
}

type EventRepository interface {
	Insert(ctx context.Context, ev *domain.TransitionEvent) error
	GetHistory(ctx context.Context, query *domain.EventQuery) ([]domain.TransitionEvent, error)
}
