package processor

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	EntriesProcessed *prometheus.CounterVec
	EventsMatched    prometheus.Counter
	MessagesEnqueued prometheus.Counter
	ProcessDuration  prometheus.Histogram
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		EntriesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_entries_processed_total",
				Help: "Total order stream entries processed.",
			},
			[]string{"status"},
		),
		EventsMatched: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "orders_events_matched_total",
				Help: "Total order executions matching at least one subscription.",
			},
		),
		MessagesEnqueued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "orders_messages_enqueued_total",
				Help: "Total notification messages enqueued.",
			},
		),
		ProcessDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "orders_process_duration_seconds",
				Help:    "Time spent processing one fetched batch.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	if registry != nil {
		registry.MustRegister(m.EntriesProcessed, m.EventsMatched, m.MessagesEnqueued, m.ProcessDuration)
	}
	return m
}
