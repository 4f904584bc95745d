package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters/histograms for the reservation flows.
type Metrics struct {
	operationsTotal    *prometheus.CounterVec
	calendarLatency    *prometheus.HistogramVec
	lockWait           *prometheus.HistogramVec
	sweepTotal         *prometheus.CounterVec
	sweepDuration      prometheus.Histogram
	eventsPublished    *prometheus.CounterVec
	eventPublishTiming prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studyrooms",
			Subsystem: "reservations",
			Name:      "operations_total",
			Help:      "Reservation operations by outcome",
		}, []string{"operation", "outcome"}),
		calendarLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "studyrooms",
			Subsystem: "calendar",
			Name:      "request_duration_seconds",
			Help:      "Latency of calendar store calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		lockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "studyrooms",
			Subsystem: "lock",
			Name:      "wait_seconds",
			Help:      "Time spent acquiring the per-room lock",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"outcome"}),
		sweepTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studyrooms",
			Subsystem: "reaper",
			Name:      "reservations_total",
			Help:      "Reservations handled by the no-show sweep",
		}, []string{"result"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "studyrooms",
			Subsystem: "reaper",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of a no-show sweep",
			Buckets:   prometheus.DefBuckets,
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studyrooms",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Lifecycle events handed to Kafka",
		}, []string{"event_type", "status"}),
		eventPublishTiming: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "studyrooms",
			Subsystem: "events",
			Name:      "publish_duration_seconds",
			Help:      "Latency of lifecycle event publishing",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.operationsTotal,
		m.calendarLatency,
		m.lockWait,
		m.sweepTotal,
		m.sweepDuration,
		m.eventsPublished,
		m.eventPublishTiming,
	)
	return m
}

func (m *Metrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveCalendarCall(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.calendarLatency.WithLabelValues(operation, status).Observe(seconds)
}

func (m *Metrics) ObserveLockWait(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(outcome).Observe(seconds)
}

func (m *Metrics) ObserveSweep(examined, cancelled, failed int, seconds float64) {
	if m == nil {
		return
	}
	m.sweepTotal.WithLabelValues("examined").Add(float64(examined))
	m.sweepTotal.WithLabelValues("cancelled").Add(float64(cancelled))
	m.sweepTotal.WithLabelValues("failed").Add(float64(failed))
	m.sweepDuration.Observe(seconds)
}

func (m *Metrics) ObserveEventPublish(eventType, status string, seconds float64) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType, status).Inc()
	m.eventPublishTiming.Observe(seconds)
}
