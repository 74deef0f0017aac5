package service

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nandanugg/mallfence/module/core/domain"
	"github.com/nandanugg/mallfence/module/core/internal/metrics"
)

const earthRadiusMeters = 6371000

// TransitionHandler observes entry/exit events. Handlers run synchronously,
// in registration order, on the goroutine that evaluated the position.
type TransitionHandler func(ctx context.Context, ev domain.TransitionEvent)

// GeofenceService is the geofence registry and the transition detector.
type GeofenceService struct {
	mu        sync.RWMutex
	geofences map[string]*domain.Geofence
	handlers  []TransitionHandler

	deviceID string
	log      *slog.Logger
	now      func() time.Time
}

func NewGeofenceService(deviceID string, log *slog.Logger) *GeofenceService {
	return &GeofenceService{
		geofences: make(map[string]*domain.Geofence),
		deviceID:  deviceID,
		log:       log,
		now:       time.Now,
	}
}

func (s *GeofenceService) OnTransition(h TransitionHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
}

// AddGeofence inserts g or replaces the geofence with the same ID. The stored
// copy always starts outside.
func (s *GeofenceService) AddGeofence(g domain.Geofence) error {
	if !(g.Radius > 0) {
		return domain.ErrInvalidGeofence
	}
	if g.Source == "" {
		g.Source = domain.SourceManual
	}
	g.Inside = false

	s.mu.Lock()
	s.geofences[g.ID] = &g
	n := len(s.geofences)
	s.mu.Unlock()

	metrics.GeofencesGauge.Set(float64(n))
	return nil
}

func (s *GeofenceService) RemoveGeofence(id string) {
	s.mu.Lock()
	delete(s.geofences, id)
	n := len(s.geofences)
	s.mu.Unlock()

	metrics.GeofencesGauge.Set(float64(n))
}

func (s *GeofenceService) ClearGeofences() {
	s.mu.Lock()
	s.geofences = make(map[string]*domain.Geofence)
	s.mu.Unlock()

	metrics.GeofencesGauge.Set(0)
}

func (s *GeofenceService) Geofence(id string) (domain.Geofence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.geofences[id]
	if !ok {
		return domain.Geofence{}, domain.ErrGeofenceNotFound
	}
	return *g, nil
}

// Geofences returns a copy of the registry ordered by ID.
func (s *GeofenceService) Geofences() []domain.Geofence {
	s.mu.RLock()
	out := make([]domain.Geofence, 0, len(s.geofences))
	for _, g := range s.geofences {
		out = append(out, *g)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *GeofenceService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.geofences)
}

// CreateGeofencesFromMalls registers a mall geofence for every mall that has
// both coordinates. A zero radius selects DefaultRadiusMeters.
func (s *GeofenceService) CreateGeofencesFromMalls(malls []domain.Mall, radiusMeters float64) (int, error) {
	if radiusMeters == 0 {
		radiusMeters = domain.DefaultRadiusMeters
	}
	if !(radiusMeters > 0) {
		return 0, domain.ErrInvalidGeofence
	}

	created := 0
	for _, m := range malls {
		if !m.HasCoordinates() {
			continue
		}
		err := s.AddGeofence(domain.Geofence{
			ID:     m.ID,
			Name:   m.Name,
			Center: domain.Coordinate{Lat: *m.Latitude, Lon: *m.Longitude},
			Radius: radiusMeters,
			Source: domain.SourceMall,
		})
		if err != nil {
			return created, err
		}
		created++
	}

	s.log.Info("geofences_from_malls", "created", created, "malls", len(malls))
	return created, nil
}

// Evaluate classifies pos against every geofence and returns the transitions
// it caused. Containment state is updated before handlers are called.
func (s *GeofenceService) Evaluate(ctx context.Context, pos domain.Position) []domain.TransitionEvent {
	ts := pos.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	var events []domain.TransitionEvent

	s.mu.Lock()
	for _, gf := range s.geofences {
		dist := haversine(pos.Lat, pos.Lon, gf.Center.Lat, gf.Center.Lon)
		inside := dist <= gf.Radius
		if inside == gf.Inside {
			continue
		}
		gf.Inside = inside

		event := domain.GeofenceExit
		if inside {
			event = domain.GeofenceEntry
		}
		events = append(events, domain.TransitionEvent{
			ID:           uuid.NewString(),
			DeviceID:     s.deviceID,
			GeofenceID:   gf.ID,
			GeofenceName: gf.Name,
			Source:       gf.Source,
			Event:        event,
			Location:     pos.Coordinate,
			Distance:     dist,
			Timestamp:    ts,
		})
	}
	handlers := append([]TransitionHandler(nil), s.handlers...)
	s.mu.Unlock()

	metrics.PositionsTotal.Inc()
	for _, ev := range events {
		metrics.TransitionsTotal.WithLabelValues(string(ev.Event)).Inc()
		s.log.Debug("geofence_transition", "geofence", ev.GeofenceID, "event", ev.Event, "distance_m", ev.Distance)
		for _, h := range handlers {
			h(ctx, ev)
		}
	}
	return events
}

// haversine returns the great-circle distance in meters.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
