package domain

import "time"

// DefaultRadiusMeters is the radius given to geofences built from malls when
// the caller does not choose one.
const DefaultRadiusMeters = 500

type Coordinate struct {
	Lat float64 `json:"latitude" yaml:"latitude"`
	Lon float64 `json:"longitude" yaml:"longitude"`
}

type GeofenceSource string

const (
	SourceManual GeofenceSource = "manual"
	SourceMall   GeofenceSource = "mall"
)

// Geofence is a named circular region. Inside holds the last containment
// state seen by the transition detector and is reset on insertion.
type Geofence struct {
	ID     string         `json:"id" yaml:"id"`
	Name   string         `json:"name" yaml:"name"`
	Center Coordinate     `json:"center" yaml:"center"`
	Radius float64        `json:"radius_meters" yaml:"radius_meters"`
	Source GeofenceSource `json:"source" yaml:"source"`
	Inside bool           `json:"is_inside" yaml:"-"`
}

type GeofenceEventType string

const (
	GeofenceEntry GeofenceEventType = "geofence_entry"
	GeofenceExit  GeofenceEventType = "geofence_exit"
)

type TransitionEvent struct {
	ID           string            `json:"id"`
	DeviceID     string            `json:"device_id"`
	GeofenceID   string            `json:"geofence_id"`
	GeofenceName string            `json:"geofence_name"`
	Source       GeofenceSource    `json:"source"`
	Event        GeofenceEventType `json:"event"`
	Location     Coordinate        `json:"location"`
	Distance     float64           `json:"distance_meters"`
	Timestamp    time.Time         `json:"timestamp"`
}

type EventQuery struct {
	DeviceID string
	Start    time.Time
	End      time.Time
}
