package service

import (
	"context"
	"time"

	"github.com/nandanugg/mallfence/module/core/domain"
)

type WatchID int64

// PositionSource is a continuous position feed. Callbacks must never be
// invoked before Watch or CurrentPosition has returned, and are delivered
// one at a time in arrival order.
type PositionSource interface {
	Watch(onFix func(domain.Position), onErr func(domain.PositionErrorCode), opts domain.PositionOptions) (WatchID, error)
	ClearWatch(id WatchID)
	CurrentPosition(onFix func(domain.Position), onErr func(domain.PositionErrorCode), opts domain.PositionOptions) error
}

// SystemNotifier delivers native notifications to the user's device.
type SystemNotifier interface {
	PermissionState(ctx context.Context) (domain.Permission, error)
	RequestPermission(ctx context.Context) (domain.Permission, error)
	Show(ctx context.Context, title, body string) error
}

// ToastSink shows a transient in-app message.
type ToastSink interface {
	Toast(ctx context.Context, level domain.ToastLevel, text string, opts domain.ToastOptions) error
}

type Timer interface {
	Stop() bool
}

type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock schedules callbacks with time.AfterFunc.
var SystemClock Clock = realClock{}
