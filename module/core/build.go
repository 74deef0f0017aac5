package core

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"

	"github.com/nandanugg/mallfence/module/core/domain"
	handler "github.com/nandanugg/mallfence/module/core/internal/handler/http"
	"github.com/nandanugg/mallfence/module/core/internal/handler/subscriber"
	"github.com/nandanugg/mallfence/module/core/internal/repository/cache/redis"
	"github.com/nandanugg/mallfence/module/core/internal/repository/database/postgres"
	mqttpub "github.com/nandanugg/mallfence/module/core/internal/repository/publisher/mqtt"
	"github.com/nandanugg/mallfence/module/core/internal/repository/publisher/rabbitmq"
	"github.com/nandanugg/mallfence/module/core/service"
)

type Options struct {
	DeviceID        string
	LocationEnabled bool
	RadiusMeters    float64
	MallCacheTTL    time.Duration
	PromptTimeout   time.Duration
	Monitor         service.MonitorConfig
	Geofences       []domain.Geofence
}

type Module struct {
	Registry   *service.GeofenceService
	Monitor    *service.LocationMonitor
	MallSvc    *service.MallService
	EventSvc   *service.EventService
	Dispatcher *service.NotificationDispatcher

	source   *subscriber.PositionSource
	handlers []interface{ Register(r *gin.RouterGroup) }
	log      *slog.Logger
}

func Build(db *sql.DB, amqpConn *amqp.Connection, mqttClient mqtt.Client, rdb *goredis.Client, opts Options, log *slog.Logger) (*Module, error) {
	mallRepo := redis.NewMallCache(rdb, postgres.NewMallRepo(db), opts.MallCacheTTL, log)
	permissionRepo := postgres.NewPermissionRepo(db)
	eventRepo := postgres.NewEventRepo(db)

	eventPub, err := rabbitmq.NewEventPublisher(amqpConn)
	if err != nil {
		return nil, fmt.Errorf("event publisher: %w", err)
	}

	pushNotifier, err := rabbitmq.NewPushNotifier(amqpConn, permissionRepo, opts.DeviceID, opts.PromptTimeout, log)
	if err != nil {
		return nil, fmt.Errorf("push notifier: %w", err)
	}

	toasts := mqttpub.NewToastPublisher(mqttClient, opts.DeviceID)

	registry := service.NewGeofenceService(opts.DeviceID, log)
	for _, g := range opts.Geofences {
		if err := registry.AddGeofence(g); err != nil {
			return nil, fmt.Errorf("seed geofence %s: %w", g.ID, err)
		}
	}

	dispatcher := service.NewNotificationDispatcher(pushNotifier, toasts, log)
	eventSvc := service.NewEventService(eventRepo, eventPub, log)
	registry.OnTransition(dispatcher.HandleTransition)
	registry.OnTransition(eventSvc.HandleTransition)

	var posSource service.PositionSource
	var sub *subscriber.PositionSource
	if opts.LocationEnabled {
		sub = subscriber.NewPositionSource(mqttClient, opts.DeviceID, log)
		posSource = sub
	}
	monitor := service.NewLocationMonitor(posSource, registry, toasts, service.SystemClock, opts.Monitor, log)

	mallSvc := service.NewMallService(mallRepo, registry, opts.RadiusMeters)

	return &Module{
		Registry:   registry,
		Monitor:    monitor,
		MallSvc:    mallSvc,
		EventSvc:   eventSvc,
		Dispatcher: dispatcher,
		source:     sub,
		handlers: []interface{ Register(r *gin.RouterGroup) }{
			handler.NewGeofenceHandler(registry, mallSvc),
			handler.NewMonitorHandler(monitor, dispatcher),
			handler.NewEventHandler(eventSvc, opts.DeviceID),
		},
		log: log,
	}, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	for _, h := range m.handlers {
		h.Register(r)
	}
}

func (m *Module) StartSubscribers() error {
	if m.source == nil {
		m.log.Info("location_disabled")
		return nil
	}
	return m.source.Start()
}

// Shutdown stops monitoring and releases the position feed.
func (m *Module) Shutdown(ctx context.Context) {
	m.Monitor.Stop(ctx)
	if m.source == nil {
		return
	}
	if err := m.source.Close(); err != nil {
		m.log.Warn("position_source_close_error", "err", err)
	}
}
