package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nandanugg/mallfence/module/core/domain"
	"github.com/nandanugg/mallfence/module/core/internal/metrics"
)

const notificationToastDuration = 5 * time.Second

type NotificationDispatcher struct {
	notifier SystemNotifier
	toasts   ToastSink
	log      *slog.Logger
}

// NewNotificationDispatcher builds a dispatcher. A nil notifier means the
// device has no native notification support; toasts are always delivered.
func NewNotificationDispatcher(notifier SystemNotifier, toasts ToastSink, log *slog.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{notifier: notifier, toasts: toasts, log: log}
}

// Notify sends a native notification when permission is granted and an
// in-app toast in every case.
func (d *NotificationDispatcher) Notify(ctx context.Context, title, body string) error {
	var errs []error

	if d.notifier != nil {
		perm, err := d.notifier.PermissionState(ctx)
		switch {
		case err != nil:
			d.log.Warn("notification_permission_error", "err", err)
		case perm == domain.PermissionGranted:
			if err := d.notifier.Show(ctx, title, body); err != nil {
				metrics.NotificationsTotal.WithLabelValues("system", "error").Inc()
				errs = append(errs, fmt.Errorf("system notification: %w", err))
			} else {
				metrics.NotificationsTotal.WithLabelValues("system", "ok").Inc()
			}
		}
	}

	err := d.toasts.Toast(ctx, domain.ToastDefault, title, domain.ToastOptions{
		Description: body,
		Duration:    notificationToastDuration,
	})
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("toast", "error").Inc()
		errs = append(errs, fmt.Errorf("toast: %w", err))
	} else {
		metrics.NotificationsTotal.WithLabelValues("toast", "ok").Inc()
	}

	return errors.Join(errs...)
}

// RequestPermission reports whether native notifications may be shown,
// prompting only while the user has not answered yet.
func (d *NotificationDispatcher) RequestPermission(ctx context.Context) (bool, error) {
	if d.notifier == nil {
		return false, nil
	}

	perm, err := d.notifier.PermissionState(ctx)
	if err != nil {
		return false, fmt.Errorf("permission state: %w", err)
	}
	switch perm {
	case domain.PermissionGranted:
		return true, nil
	case domain.PermissionDenied:
		return false, nil
	}

	perm, err = d.notifier.RequestPermission(ctx)
	if err != nil {
		return false, fmt.Errorf("request permission: %w", err)
	}
	return perm == domain.PermissionGranted, nil
}

// HandleTransition is the default hook for mall geofences: entering alerts
// the user, leaving is only logged.
func (d *NotificationDispatcher) HandleTransition(ctx context.Context, ev domain.TransitionEvent) {
	if ev.Source != domain.SourceMall {
		return
	}

	switch ev.Event {
	case domain.GeofenceEntry:
		title := fmt.Sprintf("You're near %s!", ev.GeofenceName)
		if err := d.Notify(ctx, title, "There are active promotions at this mall."); err != nil {
			d.log.Error("mall_notification_error", "geofence", ev.GeofenceID, "err", err)
		}
	case domain.GeofenceExit:
		d.log.Info("mall_geofence_left", "geofence", ev.GeofenceID, "name", ev.GeofenceName)
	}
}
