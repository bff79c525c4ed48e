// Package metrics exposes the contact metrics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/contact-sensor/internal/history"
)

const metricPrefix = "contact_sensor_"

// Source is read on every scrape.
type Source interface {
	Metrics() history.Summary
	State() history.Status
}

// Metrics holds the collectors fed by the run loop. The derived gauges are
// evaluated from Source at scrape time.
type Metrics struct {
	stateChanges  *prometheus.CounterVec
	publishErrors *prometheus.CounterVec
	readErrors    prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer, src Source) *Metrics {
	m := &Metrics{
		stateChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "state_changes_total",
				Help: "Recorded contact state changes by new state",
			},
			[]string{"state"},
		),
		publishErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "publish_errors_total",
				Help: "Failed MQTT publishes by message kind",
			},
			[]string{"kind"},
		),
		readErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "read_errors_total",
				Help: "Failed contact input reads",
			},
		),
	}

	reg.MustRegister(
		m.stateChanges,
		m.publishErrors,
		m.readErrors,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: metricPrefix + "times_opened",
			Help: "Number of times the contact opened, derived from history",
		}, func() float64 { return float64(src.Metrics().TimesOpened) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: metricPrefix + "open_duration_seconds",
			Help: "Cumulative seconds spent open",
		}, func() float64 { return float64(src.Metrics().OpenDuration) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: metricPrefix + "closed_duration_seconds",
			Help: "Cumulative seconds spent closed",
		}, func() float64 { return float64(src.Metrics().ClosedDuration) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: metricPrefix + "last_activation_seconds",
			Help: "Seconds from the first recorded event to the last state boundary",
		}, func() float64 { return float64(src.Metrics().LastActivation) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: metricPrefix + "open",
			Help: "1 while the contact is open, 0 otherwise",
		}, func() float64 {
			if src.State().Open() {
				return 1
			}
			return 0
		}),
	)
	return m
}

// ObserveStateChange counts a recorded state change.
func (m *Metrics) ObserveStateChange(s history.Status) {
	m.stateChanges.WithLabelValues(s.String()).Inc()
}

// ObservePublishError counts a failed publish of the given kind ("event" or "system").
func (m *Metrics) ObservePublishError(kind string) {
	m.publishErrors.WithLabelValues(kind).Inc()
}

// ObserveReadError counts a failed input read.
func (m *Metrics) ObserveReadError() {
	m.readErrors.Inc()
}
