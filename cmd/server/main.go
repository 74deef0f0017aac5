package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nandanugg/mallfence/config"
	"github.com/nandanugg/mallfence/module/core"
	"github.com/nandanugg/mallfence/module/core/domain"
	"github.com/nandanugg/mallfence/module/core/service"
)

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg)
	slog.SetDefault(log)

	fatal := func(msg string, err error) {
		log.Error(msg, "err", err)
		os.Exit(1)
	}

	db, err := config.NewPostgres(cfg)
	if err != nil {
		fatal("postgres", err)
	}
	defer func() { _ = db.Close() }()

	amqpConn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		fatal("rabbitmq", err)
	}
	defer func() { _ = amqpConn.Close() }()

	mqttClient, err := config.NewMQTT(cfg)
	if err != nil {
		fatal("mqtt", err)
	}
	defer mqttClient.Disconnect(250)

	rdb, err := config.NewRedis(cfg)
	if err != nil {
		fatal("redis", err)
	}
	defer func() { _ = rdb.Close() }()

	var seed []domain.Geofence
	if cfg.GeofencesFile != "" {
		seed, err = config.LoadGeofences(cfg.GeofencesFile)
		if err != nil {
			fatal("geofences file", err)
		}
	}

	monitorCfg := service.DefaultMonitorConfig()
	monitorCfg.MaxRetries = cfg.MonitorMaxRetries
	monitorCfg.RetryDelay = cfg.MonitorRetryDelay

	coreModule, err := core.Build(db, amqpConn, mqttClient, rdb, core.Options{
		DeviceID:        cfg.DeviceID,
		LocationEnabled: cfg.LocationEnabled,
		RadiusMeters:    cfg.GeofenceRadiusMeters,
		MallCacheTTL:    cfg.MallCacheTTL,
		PromptTimeout:   cfg.PermissionPromptTimeout,
		Monitor:         monitorCfg,
		Geofences:       seed,
	}, log)
	if err != nil {
		fatal("core module", err)
	}

	if err := coreModule.StartSubscribers(); err != nil {
		fatal("start subscribers", err)
	}

	ctx := context.Background()
	if n, err := coreModule.MallSvc.SyncGeofences(ctx, 0, false); err != nil {
		log.Warn("initial_mall_sync_failed", "err", err)
	} else {
		log.Info("initial_mall_sync", "geofences", n)
	}

	r := gin.Default()

	health := config.NewHealthChecker(db, amqpConn, mqttClient, rdb)
	health.Register(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	coreModule.RegisterRoutes(&r.RouterGroup)

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: r}
	go func() {
		log.Info("listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	coreModule.Shutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server_shutdown_error", "err", err)
	}
}
