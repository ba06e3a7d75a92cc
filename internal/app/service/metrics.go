package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var actionsCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modledger_actions_total",
	Help: "Moderation actions by kind and outcome",
}, []string{"action", "outcome"})

var sweepPasses = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modledger_sweep_passes_total",
	Help: "Expiry sweep passes per guild by outcome",
}, []string{"outcome"})

var sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "modledger_sweep_duration_seconds",
	Help:    "Duration of one expiry sweep pass over a guild",
	Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
})

var sweepUnmuted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modledger_sweep_unmuted_total",
	Help: "Users whose mute marker was removed by the expiry sweep",
})

var notifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modledger_notification_failures_total",
	Help: "Notification sends that failed, by target",
}, []string{"target"})

func countAction(action string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	actionsCount.WithLabelValues(action, outcome).Inc()
}
