package postgres

import (
	"context"
	"database/sql"

	"github.com/nandanugg/mallfence/module/core/domain"
	"github.com/nandanugg/mallfence/module/core/internal/repository/database"
)

var _ database.EventRepository = (*EventRepo)(nil)

type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

func (r *EventRepo) Insert(ctx context.Context, ev *domain.TransitionEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO geofence_events (id, device_id, geofence_id, geofence_name, source, event, latitude, longitude, distance_meters, timestamp) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ev.ID, ev.DeviceID, ev.GeofenceID, ev.GeofenceName, string(ev.Source), string(ev.Event),
		ev.Location.Lat, ev.Location.Lon, ev.Distance, ev.Timestamp,
	)
	return err
}

func (r *EventRepo) GetHistory(ctx context.Context, query *domain.EventQuery) ([]domain.TransitionEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, geofence_id, geofence_name, source, event, latitude, longitude, distance_meters, timestamp FROM geofence_events WHERE device_id = $1 AND timestamp >= $2 AND timestamp <= $3 ORDER BY timestamp ASC`,
		query.DeviceID, query.Start, query.End,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.TransitionEvent
	for rows.Next() {
		var (
			ev            domain.TransitionEvent
			source, event string
		)
		if err := rows.Scan(&ev.ID, &ev.DeviceID, &ev.GeofenceID, &ev.GeofenceName, &source, &event,
			&ev.Location.Lat, &ev.Location.Lon, &ev.Distance, &ev.Timestamp); err != nil {
			return nil, err
		}
		ev.Source = domain.GeofenceSource(source)
		ev.Event = domain.GeofenceEventType(event)
		results = append(results, ev)
	}
	return results, rows.Err()
}
