package sender

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	MessagesSent   prometheus.Counter
	SendFailures   *prometheus.CounterVec
	SendDuration   prometheus.Histogram
	QueueBatchSize prometheus.Histogram
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		MessagesSent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sender_messages_sent_total",
				Help: "Total notifications delivered.",
			},
		),
		SendFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sender_send_failures_total",
				Help: "Total delivery failures.",
			},
			[]string{"kind"},
		),
		SendDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sender_send_duration_seconds",
				Help:    "Gateway send duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		),
		QueueBatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sender_batch_size",
				Help:    "Messages dequeued per poll.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
		),
	}
	if registry != nil {
		registry.MustRegister(m.MessagesSent, m.SendFailures, m.SendDuration, m.QueueBatchSize)
	}
	return m
}
