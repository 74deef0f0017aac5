package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nandanugg/mallfence/module/core/domain"
	"github.com/nandanugg/mallfence/module/core/internal/metrics"
)

type MonitorConfig struct {
	MaxRetries    int
	RetryDelay    time.Duration
	BaseTimeout   time.Duration
	ProbeTimeout  time.Duration
	RelaxedMaxAge time.Duration
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		MaxRetries:    3,
		RetryDelay:    2 * time.Second,
		BaseTimeout:   5 * time.Second,
		ProbeTimeout:  10 * time.Second,
		RelaxedMaxAge: time.Minute,
	}
}

type positionEvaluator interface {
	Evaluate(ctx context.Context, pos domain.Position) []domain.TransitionEvent
}

// LocationMonitor drives the Stopped -> Watching -> Retrying state machine.
// All state lives behind mu. Each watch, retry timer and probe is tagged with
// the generation current when it was registered; callbacks from an older
// generation are dropped.
type LocationMonitor struct {
	source   PositionSource
	detector positionEvaluator
	toasts   ToastSink
	clock    Clock
	cfg      MonitorConfig
	log      *slog.Logger

	mu         sync.Mutex
	state      domain.MonitorState
	gen        uint64
	watchID    WatchID
	hasWatch   bool
	retryTimer Timer
	retryCount int
	lastPos    *domain.Position
	lastErr    error
	confirmed  bool
}

// NewLocationMonitor builds a stopped monitor. A nil source means the device
// offers no location capability.
func NewLocationMonitor(source PositionSource, detector positionEvaluator, toasts ToastSink, clock Clock, cfg MonitorConfig, log *slog.Logger) *LocationMonitor {
	if clock == nil {
		clock = SystemClock
	}
	return &LocationMonitor{
		source:   source,
		detector: detector,
		toasts:   toasts,
		clock:    clock,
		cfg:      cfg,
		log:      log,
		state:    domain.MonitorStopped,
	}
}

// Start registers a continuous watch. It is a no-op while already active.
func (m *LocationMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != domain.MonitorStopped {
		return nil
	}
	if m.source == nil {
		m.lastErr = domain.ErrNoLocationCapability
		metrics.MonitorFailuresTotal.WithLabelValues("no_capability").Inc()
		m.toast(ctx, domain.ToastError, "Geolocation is not available on this device")
		return domain.ErrNoLocationCapability
	}

	m.retryCount = 0
	m.confirmed = false
	m.lastErr = nil
	if err := m.watchLocked(); err != nil {
		m.lastErr = err
		m.toast(ctx, domain.ToastError, "Could not start location monitoring")
		return err
	}

	m.log.Info("monitor_started")
	return nil
}

// Stop cancels the active watch and any pending retry. It is a no-op while
// stopped.
func (m *LocationMonitor) Stop(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == domain.MonitorStopped {
		return
	}
	m.resetLocked()
	m.log.Info("monitor_stopped")
	m.toast(ctx, domain.ToastInfo, "Location monitoring stopped")
}

func (m *LocationMonitor) Snapshot() domain.MonitorSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := domain.MonitorSnapshot{
		State:      m.state,
		Active:     m.state != domain.MonitorStopped,
		RetryCount: m.retryCount,
	}
	if m.lastPos != nil {
		p := *m.lastPos
		snap.LastPosition = &p
	}
	if m.lastErr != nil {
		snap.LastError = m.lastErr.Error()
	}
	return snap
}

func (m *LocationMonitor) watchLocked() error {
	m.gen++
	gen := m.gen
	id, err := m.source.Watch(
		func(p domain.Position) { m.handleFix(gen, p) },
		func(code domain.PositionErrorCode) { m.handleError(gen, code) },
		m.watchOptions(),
	)
	if err != nil {
		return fmt.Errorf("watch position: %w", err)
	}
	m.watchID = id
	m.hasWatch = true
	m.state = domain.MonitorWatching
	return nil
}

func (m *LocationMonitor) handleFix(gen uint64, pos domain.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.state != domain.MonitorWatching {
		m.log.Debug("stale_fix_dropped", "gen", gen)
		return
	}

	ctx := context.Background()
	m.retryCount = 0
	m.detector.Evaluate(ctx, pos)
	m.lastPos = &pos

	if !m.confirmed {
		m.confirmed = true
		m.toast(ctx, domain.ToastSuccess, "Location monitoring started")
	}
}

func (m *LocationMonitor) handleError(gen uint64, code domain.PositionErrorCode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.state != domain.MonitorWatching {
		return
	}
	m.log.Warn("location_error", "code", code.String(), "retry_count", m.retryCount)
	m.retryOrFailLocked(code)
}

func (m *LocationMonitor) retryOrFailLocked(code domain.PositionErrorCode) {
	if code == domain.ErrCodePermissionDenied {
		m.failLocked(code, "Location permission denied")
		return
	}
	if m.retryCount < m.cfg.MaxRetries {
		m.scheduleRetryLocked()
		return
	}
	m.failLocked(code, exhaustedMessage(code))
}

func (m *LocationMonitor) scheduleRetryLocked() {
	m.retryCount++
	metrics.MonitorRetriesTotal.Inc()

	m.cancelWatchLocked()
	m.stopTimerLocked()
	m.state = domain.MonitorRetrying
	m.gen++
	gen := m.gen

	m.toast(context.Background(), domain.ToastInfo,
		fmt.Sprintf("Retrying location (attempt %d of %d)...", m.retryCount, m.cfg.MaxRetries))
	m.retryTimer = m.clock.AfterFunc(m.cfg.RetryDelay, func() { m.probe(gen) })
}

// probe asks for a single low-accuracy fix before resuming the watch.
func (m *LocationMonitor) probe(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.state != domain.MonitorRetrying {
		return
	}
	m.retryTimer = nil
	m.gen++
	pg := m.gen

	err := m.source.CurrentPosition(
		func(domain.Position) { m.handleProbeFix(pg) },
		func(code domain.PositionErrorCode) { m.handleProbeError(pg, code) },
		m.probeOptions(),
	)
	if err != nil {
		m.log.Warn("location_probe_error", "err", err)
		m.retryOrFailLocked(domain.ErrCodeUnknown)
	}
}

func (m *LocationMonitor) handleProbeFix(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.state != domain.MonitorRetrying {
		return
	}
	if err := m.watchLocked(); err != nil {
		m.log.Warn("location_rewatch_error", "err", err)
		m.retryOrFailLocked(domain.ErrCodeUnknown)
	}
}

func (m *LocationMonitor) handleProbeError(gen uint64, code domain.PositionErrorCode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.state != domain.MonitorRetrying {
		return
	}
	m.log.Warn("location_probe_failed", "code", code.String(), "retry_count", m.retryCount)
	m.retryOrFailLocked(code)
}

func (m *LocationMonitor) failLocked(code domain.PositionErrorCode, msg string) {
	m.resetLocked()
	m.lastErr = code.Err()
	metrics.MonitorFailuresTotal.WithLabelValues(code.String()).Inc()
	m.log.Error("monitor_failed", "code", code.String())
	m.toast(context.Background(), domain.ToastError, msg)
}

func (m *LocationMonitor) resetLocked() {
	m.cancelWatchLocked()
	m.stopTimerLocked()
	m.gen++
	m.retryCount = 0
	m.state = domain.MonitorStopped
}

func (m *LocationMonitor) cancelWatchLocked() {
	if !m.hasWatch {
		return
	}
	m.source.ClearWatch(m.watchID)
	m.hasWatch = false
}

func (m *LocationMonitor) stopTimerLocked() {
	if m.retryTimer == nil {
		return
	}
	m.retryTimer.Stop()
	m.retryTimer = nil
}

// watchOptions trades accuracy for availability once a retry has happened.
func (m *LocationMonitor) watchOptions() domain.PositionOptions {
	opts := domain.PositionOptions{
		HighAccuracy: m.retryCount == 0,
		Timeout:      m.cfg.BaseTimeout * time.Duration(m.retryCount+1),
	}
	if m.retryCount > 0 {
		opts.MaximumAge = m.cfg.RelaxedMaxAge
	}
	return opts
}

func (m *LocationMonitor) probeOptions() domain.PositionOptions {
	opts := m.watchOptions()
	opts.HighAccuracy = false
	opts.Timeout = m.cfg.ProbeTimeout
	return opts
}

func (m *LocationMonitor) toast(ctx context.Context, level domain.ToastLevel, text string) {
	if err := m.toasts.Toast(ctx, level, text, domain.ToastOptions{}); err != nil {
		m.log.Warn("toast_error", "text", text, "err", err)
	}
}

func exhaustedMessage(code domain.PositionErrorCode) string {
	switch code {
	case domain.ErrCodePositionUnavailable:
		return "Location unavailable after several attempts"
	case domain.ErrCodeTimeout:
		return "Could not get your location after several attempts"
	default:
		return "Error getting your location"
	}
}
