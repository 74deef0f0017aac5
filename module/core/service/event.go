package service

import (
	"context"
	"log/slog"

	"github.com/nandanugg/mallfence/module/core/domain"
	"github.com/nandanugg/mallfence/module/core/internal/repository/database"
	"github.com/nandanugg/mallfence/module/core/internal/repository/publisher"
)

// EventService records transitions and forwards them to the event bus.
type EventService struct {
	repo      database.EventRepository
	publisher publisher.EventPublisher
	log       *slog.Logger
}

func NewEventService(repo database.EventRepository, pub publisher.EventPublisher, log *slog.Logger) *EventService {
	return &EventService{repo: repo, publisher: pub, log: log}
}

// HandleTransition persists ev and then publishes it. A failed insert skips
// the publish.
func (s *EventService) HandleTransition(ctx context.Context, ev domain.TransitionEvent) {
	if err := s.repo.Insert(ctx, &ev); err != nil {
		s.log.Error("save_event_error", "geofence", ev.GeofenceID, "err", err)
		return
	}
	if err := s.publisher.PublishEvent(ctx, &ev); err != nil {
		s.log.Error("publish_event_error", "geofence", ev.GeofenceID, "err", err)
	}
}

func (s *EventService) GetHistory(ctx context.Context, query *domain.EventQuery) ([]domain.TransitionEvent, error) {
	return s.repo.GetHistory(ctx, query)
}
