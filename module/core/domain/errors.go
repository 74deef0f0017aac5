package domain

import "errors"

var (
	ErrInvalidGeofence      = errors.New("invalid geofence: radius must be positive")
	ErrGeofenceNotFound     = errors.New("geofence not found")
	ErrNoLocationCapability = errors.New("location capability unavailable")
	ErrPermissionDenied     = errors.New("location permission denied")
	ErrPositionUnavailable  = errors.New("position unavailable")
	ErrTimeout              = errors.New("location request timed out")
	ErrUnknownLocation      = errors.New("unknown location error")
)
