package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/mallfence/module/core/domain"
	"github.com/nandanugg/mallfence/module/core/internal/repository/publisher"
)

var _ publisher.EventPublisher = (*EventPublisher)(nil)

const (
	eventExchange = "mall.events"
	eventQueue    = "geofence_events"
)

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type EventPublisher struct {
	ch publishChannel
}

func NewEventPublisher(conn *amqp.Connection) (*EventPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := declareFanout(ch, eventExchange, eventQueue); err != nil {
		return nil, err
	}
	return &EventPublisher{ch: ch}, nil
}

type eventMessage struct {
	ID           string                   `json:"id"`
	DeviceID     string                   `json:"device_id"`
	GeofenceID   string                   `json:"geofence_id"`
	GeofenceName string                   `json:"geofence_name"`
	Source       domain.GeofenceSource    `json:"source"`
	Event        domain.GeofenceEventType `json:"event"`
	Location     eventLocation            `json:"location"`
	Distance     float64                  `json:"distance_meters"`
	Timestamp    int64                    `json:"timestamp"`
}

type eventLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p *EventPublisher) PublishEvent(ctx context.Context, ev *domain.TransitionEvent) error {
	msg := eventMessage{
		ID:           ev.ID,
		DeviceID:     ev.DeviceID,
		GeofenceID:   ev.GeofenceID,
		GeofenceName: ev.GeofenceName,
		Source:       ev.Source,
		Event:        ev.Event,
		Location: eventLocation{
			Latitude:  ev.Location.Lat,
			Longitude: ev.Location.Lon,
		},
		Distance:  ev.Distance,
		Timestamp: ev.Timestamp.Unix(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return p.ch.PublishWithContext(ctx, eventExchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   ev.ID,
		Body:        body,
	})
}

func declareFanout(ch *amqp.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(queue, "", exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}
