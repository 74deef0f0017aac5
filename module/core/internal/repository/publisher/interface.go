package publisher

import (
	"context"

	"github.com/nandanugg/mallfence/module/core/domain"
)

type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *domain.TransitionEvent) error
}
