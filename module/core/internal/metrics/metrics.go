package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mallfence_transitions_total",
		Help: "Geofence transitions raised by the detector",
	}, []string{"event"})
	PositionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mallfence_positions_total",
		Help: "Position fixes evaluated against the registry",
	})
	PositionsReceivedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mallfence_positions_received_total",
		Help: "Valid position fixes received from the device feed",
	})
	MonitorRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mallfence_monitor_retries_total",
		Help: "Location retry attempts scheduled by the monitor",
	})
	MonitorFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mallfence_monitor_failures_total",
		Help: "Terminal location failures by kind",
	}, []string{"kind"})
	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mallfence_notifications_total",
		Help: "Notifications delivered by channel",
	}, []string{"channel", "status"})
	GeofencesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mallfence_geofences",
		Help: "Geofences currently registered",
	})
	MallCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mallfence_mall_cache_hits_total",
		Help: "Mall list cache hits",
	})
	MallCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mallfence_mall_cache_misses_total",
		Help: "Mall list cache misses",
	})
)

func init() {
	prometheus.MustRegister(
		TransitionsTotal,
		PositionsTotal,
		PositionsReceivedTotal,
		MonitorRetriesTotal,
		MonitorFailuresTotal,
		NotificationsTotal,
		GeofencesGauge,
		MallCacheHitsTotal,
		MallCacheMissesTotal,
	)
}
