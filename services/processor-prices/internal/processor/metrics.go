package processor

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	HeightsProcessed prometheus.Counter
	CurrentHeight    prometheus.Gauge
	ThresholdsFired  prometheus.Counter
	MessagesEnqueued prometheus.Counter
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HeightsProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "prices_heights_processed_total",
				Help: "Total chain heights evaluated.",
			},
		),
		CurrentHeight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "prices_current_height",
				Help: "Last chain height evaluated.",
			},
		),
		ThresholdsFired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "prices_thresholds_fired_total",
				Help: "Total threshold crossings that matched a subscription.",
			},
		),
		MessagesEnqueued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "prices_messages_enqueued_total",
				Help: "Total notification messages enqueued.",
			},
		),
	}
	if registry != nil {
		registry.MustRegister(m.HeightsProcessed, m.CurrentHeight, m.ThresholdsFired, m.MessagesEnqueued)
	}
	return m
}
