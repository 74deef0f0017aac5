package subscriber

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nandanugg/mallfence/module/core/domain"
	"github.com/nandanugg/mallfence/module/core/internal/metrics"
	"github.com/nandanugg/mallfence/module/core/service"
)

var _ service.PositionSource = (*PositionSource)(nil)

const (
	positionTopicFormat = "/mall/device/%s/position"
	watchTopicFormat    = "/mall/device/%s/watch"

	controlTimeout = 2 * time.Second
	queueSize      = 16
)

// positionMessage is what the device app publishes. A non-empty Error reports
// a failed fix and carries no coordinates.
type positionMessage struct {
	DeviceID  string  `json:"device_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"timestamp"`
	Error     string  `json:"error,omitempty"`
}

// watchControl tells the device which accuracy and cadence the server wants.
type watchControl struct {
	WatchID      int64 `json:"watch_id"`
	Active       bool  `json:"active"`
	Once         bool  `json:"once,omitempty"`
	HighAccuracy bool  `json:"high_accuracy"`
	TimeoutMs    int64 `json:"timeout_ms"`
	MaximumAgeMs int64 `json:"maximum_age_ms"`
}

type delivery struct {
	pos  domain.Position
	code domain.PositionErrorCode
	err  bool
}

type watcher struct {
	id    service.WatchID
	onFix func(domain.Position)
	onErr func(domain.PositionErrorCode)
	opts  domain.PositionOptions
	once  bool
	queue chan delivery
	done  chan struct{}
	timer *time.Timer

	stopOnce sync.Once
}

func (w *watcher) stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

// run delivers callbacks one at a time, off the MQTT router goroutine.
func (w *watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case d := <-w.queue:
			select {
			case <-w.done:
				return
			default:
			}
			if d.err {
				w.onErr(d.code)
			} else {
				w.onFix(d.pos)
			}
			if w.once {
				return
			}
		}
	}
}

// PositionSource turns a device's MQTT position feed into watches. It
// subscribes once; each watch gets its own delivery goroutine so callbacks
// never run on the paho router.
type PositionSource struct {
	client        mqtt.Client
	deviceID      string
	positionTopic string
	watchTopic    string
	log           *slog.Logger
	now           func() time.Time

	mu       sync.Mutex
	nextID   service.WatchID
	watchers map[service.WatchID]*watcher
	last     *domain.Position
}

func NewPositionSource(client mqtt.Client, deviceID string, log *slog.Logger) *PositionSource {
	return &PositionSource{
		client:        client,
		deviceID:      deviceID,
		positionTopic: fmt.Sprintf(positionTopicFormat, deviceID),
		watchTopic:    fmt.Sprintf(watchTopicFormat, deviceID),
		log:           log,
		now:           time.Now,
		watchers:      make(map[service.WatchID]*watcher),
	}
}

func (s *PositionSource) Start() error {
	token := s.client.Subscribe(s.positionTopic, 1, s.handleMessage)
	token.Wait()
	return token.Error()
}

// Close unsubscribes and drops every watch without invoking callbacks.
func (s *PositionSource) Close() error {
	s.mu.Lock()
	for id, w := range s.watchers {
		s.removeLocked(id, w)
		w.stop()
	}
	s.mu.Unlock()

	token := s.client.Unsubscribe(s.positionTopic)
	token.Wait()
	return token.Error()
}

func (s *PositionSource) Watch(onFix func(domain.Position), onErr func(domain.PositionErrorCode), opts domain.PositionOptions) (service.WatchID, error) {
	w, err := s.register(onFix, onErr, opts, false)
	if err != nil {
		return 0, err
	}
	return w.id, nil
}

func (s *PositionSource) ClearWatch(id service.WatchID) {
	s.mu.Lock()
	w, ok := s.watchers[id]
	if ok {
		s.removeLocked(id, w)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	if err := s.publishControl(watchControl{WatchID: int64(id)}); err != nil {
		s.log.Warn("clear_watch_control_error", "watch_id", id, "err", err)
	}
}

func (s *PositionSource) CurrentPosition(onFix func(domain.Position), onErr func(domain.PositionErrorCode), opts domain.PositionOptions) error {
	_, err := s.register(onFix, onErr, opts, true)
	return err
}

// register makes the watcher live before the device is told about it, so a
// fix sent in reply to the control message is not missed. A failed control
// publish withdraws the watcher again.
func (s *PositionSource) register(onFix func(domain.Position), onErr func(domain.PositionErrorCode), opts domain.PositionOptions, once bool) (*watcher, error) {
	s.mu.Lock()
	s.nextID++
	w := &watcher{
		id:    s.nextID,
		onFix: onFix,
		onErr: onErr,
		opts:  opts,
		once:  once,
		queue: make(chan delivery, queueSize),
		done:  make(chan struct{}),
	}
	s.watchers[w.id] = w
	if opts.Timeout > 0 {
		w.timer = time.AfterFunc(opts.Timeout, func() { s.expire(w) })
	}
	go w.run()

	if s.last != nil && s.freshFor(w, *s.last, true) {
		s.deliverLocked(w, delivery{pos: *s.last})
	}
	s.mu.Unlock()

	err := s.publishControl(watchControl{
		WatchID:      int64(w.id),
		Active:       true,
		Once:         once,
		HighAccuracy: opts.HighAccuracy,
		TimeoutMs:    opts.Timeout.Milliseconds(),
		MaximumAgeMs: opts.MaximumAge.Milliseconds(),
	})
	if err != nil {
		s.mu.Lock()
		if _, ok := s.watchers[w.id]; ok {
			s.removeLocked(w.id, w)
		}
		s.mu.Unlock()
		w.stop()
		return nil, err
	}
	return w, nil
}

func (s *PositionSource) expire(w *watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.watchers[w.id]; !ok {
		return
	}
	s.deliverLocked(w, delivery{code: domain.ErrCodeTimeout, err: true})
	if !w.once {
		w.timer.Reset(w.opts.Timeout)
	}
}

func (s *PositionSource) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var raw positionMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		s.log.Warn("invalid_position_message", "err", err)
		return
	}

	if raw.Error != "" {
		code := domain.ParsePositionErrorCode(raw.Error)
		s.mu.Lock()
		for _, w := range s.watchers {
			s.deliverLocked(w, delivery{code: code, err: true})
		}
		s.mu.Unlock()
		return
	}

	if err := validatePositionMessage(&raw); err != nil {
		s.log.Warn("position_validation_error", "err", err)
		return
	}
	if raw.DeviceID != s.deviceID {
		s.log.Warn("position_device_mismatch", "device_id", raw.DeviceID)
		return
	}

	pos := domain.Position{
		Coordinate: domain.Coordinate{Lat: raw.Latitude, Lon: raw.Longitude},
		Accuracy:   raw.Accuracy,
		Timestamp:  time.Unix(raw.Timestamp, 0),
	}
	metrics.PositionsReceivedTotal.Inc()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil || !pos.Timestamp.Before(s.last.Timestamp) {
		s.last = &pos
	}
	for _, w := range s.watchers {
		if s.freshFor(w, pos, msg.Retained()) {
			s.deliverLocked(w, delivery{pos: pos})
		}
	}
}

// freshFor reports whether a cached fix satisfies the watch's MaximumAge.
// Live fixes always do.
func (s *PositionSource) freshFor(w *watcher, pos domain.Position, cached bool) bool {
	if !cached {
		return true
	}
	if w.opts.MaximumAge <= 0 {
		return false
	}
	return s.now().Sub(pos.Timestamp) <= w.opts.MaximumAge
}

func (s *PositionSource) deliverLocked(w *watcher, d delivery) {
	select {
	case w.queue <- d:
	default:
		s.log.Warn("position_delivery_dropped", "watch_id", w.id)
		return
	}

	if w.once {
		s.removeLocked(w.id, w)
		return
	}
	if !d.err && w.timer != nil {
		w.timer.Reset(w.opts.Timeout)
	}
}

// removeLocked forgets the watch. One-shot watchers keep their goroutine
// alive until the queued delivery has run.
func (s *PositionSource) removeLocked(id service.WatchID, w *watcher) {
	delete(s.watchers, id)
	if w.timer != nil {
		w.timer.Stop()
	}
	if !w.once {
		w.stop()
	}
}

func (s *PositionSource) publishControl(ctl watchControl) error {
	body, err := json.Marshal(ctl)
	if err != nil {
		return fmt.Errorf("marshal watch control: %w", err)
	}

	token := s.client.Publish(s.watchTopic, 1, false, body)
	if !token.WaitTimeout(controlTimeout) {
		return fmt.Errorf("publish watch control: timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish watch control: %w", err)
	}
	return nil
}

func validatePositionMessage(msg *positionMessage) error {
	if msg.DeviceID == "" {
		return fmt.Errorf("device_id: required")
	}
	if msg.Latitude < -90 || msg.Latitude > 90 {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if msg.Longitude < -180 || msg.Longitude > 180 {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	if msg.Accuracy < 0 {
		return fmt.Errorf("accuracy: must not be negative")
	}
	if msg.Timestamp <= 0 {
		return fmt.Errorf("timestamp: must be positive")
	}
	return nil
}
