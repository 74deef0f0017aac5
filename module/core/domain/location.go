package domain

import "time"

type Position struct {
	Coordinate
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// PositionOptions mirrors what a platform location watch accepts.
type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

type PositionErrorCode int

const (
	ErrCodeUnknown PositionErrorCode = iota
	ErrCodePermissionDenied
	ErrCodePositionUnavailable
	ErrCodeTimeout
)

var positionErrorNames = map[PositionErrorCode]string{
	ErrCodeUnknown:             "unknown",
	ErrCodePermissionDenied:    "permission_denied",
	ErrCodePositionUnavailable: "position_unavailable",
	ErrCodeTimeout:             "timeout",
}

func (c PositionErrorCode) String() string {
	if s, ok := positionErrorNames[c]; ok {
		return s
	}
	return "unknown"
}

// Err maps the code onto the matching sentinel error.
func (c PositionErrorCode) Err() error {
	switch c {
	case ErrCodePermissionDenied:
		return ErrPermissionDenied
	case ErrCodePositionUnavailable:
		return ErrPositionUnavailable
	case ErrCodeTimeout:
		return ErrTimeout
	default:
		return ErrUnknownLocation
	}
}

// ParsePositionErrorCode accepts the wire names used by devices. Anything
// unrecognised is ErrCodeUnknown.
func ParsePositionErrorCode(s string) PositionErrorCode {
	for code, name := range positionErrorNames {
		if name == s {
			return code
		}
	}
	return ErrCodeUnknown
}
