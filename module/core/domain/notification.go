package domain

import "time"

type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionPrompt  Permission = "prompt"
)

func ParsePermission(s string) Permission {
	switch Permission(s) {
	case PermissionGranted, PermissionDenied:
		return Permission(s)
	default:
		return PermissionPrompt
	}
}

type ToastLevel string

const (
	ToastDefault ToastLevel = "default"
	ToastInfo    ToastLevel = "info"
	ToastSuccess ToastLevel = "success"
	ToastError   ToastLevel = "error"
)

type ToastOptions struct {
	Description string
	Duration    time.Duration
}

type Notification struct {
	DeviceID string    `json:"device_id"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sent_at"`
}
