// Package promsink implements contract/metrics.Sink on Prometheus collectors.
// Construct one per process, register it on the application's registry, and
// inject it into the bus, dispatcher, and transport constructors.
package promsink

import (
	"time"

	"github.com/next-trace/scg-event-stream/contract/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Sink exports the event stream metric family.
type Sink struct {
	PublishedTotal  *prometheus.CounterVec
	DroppedTotal    *prometheus.CounterVec
	Subscribers     prometheus.Gauge
	HandlerErrors   *prometheus.CounterVec
	PublishDuration *prometheus.HistogramVec
	PublishFailures *prometheus.CounterVec
}

var _ metrics.Sink = (*Sink)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Sink {
	s := &Sink{
		PublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventstream_events_published_total",
				Help: "Events admitted to the bus.",
			},
			[]string{"event_type"},
		),
		DroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventstream_events_dropped_total",
				Help: "Envelopes evicted from lagging subscriber buffers.",
			},
			[]string{"subscriber"},
		),
		Subscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "eventstream_subscribers",
				Help: "Live bus subscriptions.",
			},
		),
		HandlerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventstream_handler_errors_total",
				Help: "Handler failures by kind (error or panic).",
			},
			[]string{"handler", "kind"},
		),
		PublishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eventstream_transport_publish_duration_seconds",
				Help:    "Transport publish latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic"},
		),
		PublishFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventstream_transport_publish_failures_total",
				Help: "Failed transport publishes.",
			},
			[]string{"topic"},
		),
	}

	reg.MustRegister(
		s.PublishedTotal,
		s.DroppedTotal,
		s.Subscribers,
		s.HandlerErrors,
		s.PublishDuration,
		s.PublishFailures,
	)

	return s
}

func (s *Sink) EventPublished(eventType string) { s.PublishedTotal.WithLabelValues(eventType).Inc() }

func (s *Sink) EventDropped(subscriber string) { s.DroppedTotal.WithLabelValues(subscriber).Inc() }

func (s *Sink) SubscriberCount(n int) { s.Subscribers.Set(float64(n)) }

func (s *Sink) HandlerError(handler, kind string) {
	s.HandlerErrors.WithLabelValues(handler, kind).Inc()
}

func (s *Sink) TransportPublished(topic string, elapsed time.Duration, err error) {
	s.PublishDuration.WithLabelValues(topic).Observe(elapsed.Seconds())

	if err != nil {
		s.PublishFailures.WithLabelValues(topic).Inc()
	}
}
