// Package metrics holds the Prometheus instruments for the visitor core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	CheckIns          prometheus.Counter
	CheckOuts         prometheus.Counter
	BannedAttempts    prometheus.Counter
	OverstaysFlagged  prometheus.Counter
	EventsPublished   *prometheus.CounterVec
	EventsDropped     prometheus.Counter
	OccupancyDrift    prometheus.Counter
	CurrentOccupancy  *prometheus.GaugeVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CheckIns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_check_ins_total",
			Help: "Total number of successful visitor check-ins",
		}),
		CheckOuts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_check_outs_total",
			Help: "Total number of successful visitor check-outs",
		}),
		BannedAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_banned_attempts_total",
			Help: "Total number of check-in attempts refused by the banned-visitor screener",
		}),
		OverstaysFlagged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_overstays_flagged_total",
			Help: "Total number of visitors transitioned to overstayed",
		}),
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_broadcast_events_total",
			Help: "Total number of real-time events published, by event name",
		}, []string{"event"}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_broadcast_dropped_total",
			Help: "Total number of real-time events dropped on slow or failed connections",
		}),
		OccupancyDrift: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_occupancy_drift_corrections_total",
			Help: "Total number of access points whose occupancy the reconciler corrected",
		}),
		CurrentOccupancy: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gatehouse_access_point_occupancy",
			Help: "Live occupancy per access point",
		}, []string{"access_point"}),
	}
}
