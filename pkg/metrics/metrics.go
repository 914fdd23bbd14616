// Package metrics records pipeline activity. Prometheus backs the server and
// CLI; Noop is used when nothing scrapes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "moltblock"

// Run outcomes.
const (
	OutcomePassed = "passed"
	OutcomeFailed = "failed"
	OutcomeError  = "error"
)

// Recorder receives pipeline events.
type Recorder interface {
	RunCompleted(outcome string, d time.Duration)
	NodeCompleted(role string, d time.Duration, err error)
	MoltDecision(allowed bool)
}

// Noop discards every event.
type Noop struct{}

func (Noop) RunCompleted(string, time.Duration)         {}
func (Noop) NodeCompleted(string, time.Duration, error) {}
func (Noop) MoltDecision(bool)                          {}

// Prometheus records events as Prometheus collectors.
type Prometheus struct {
	runs        *prometheus.CounterVec
	runLatency  prometheus.Histogram
	nodeLatency *prometheus.HistogramVec
	nodeErrors  *prometheus.CounterVec
	molts       *prometheus.CounterVec
}

// NewPrometheus registers the collectors with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "total",
			Help:      "Completed pipeline runs by outcome",
		}, []string{"outcome"}),
		runLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "duration_seconds",
			Help:      "Pipeline run latency in seconds",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		}),
		nodeLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "nodes",
			Name:      "duration_seconds",
			Help:      "Agent node latency in seconds by role",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 60, 120},
		}, []string{"role"}),
		nodeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nodes",
			Name:      "errors_total",
			Help:      "Agent node failures by role",
		}, []string{"role"}),
		molts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "governance",
			Name:      "molt_decisions_total",
			Help:      "Molt requests by decision",
		}, []string{"decision"}),
	}
}

func (p *Prometheus) RunCompleted(outcome string, d time.Duration) {
	p.runs.WithLabelValues(outcome).Inc()
	p.runLatency.Observe(d.Seconds())
}

func (p *Prometheus) NodeCompleted(role string, d time.Duration, err error) {
	p.nodeLatency.WithLabelValues(role).Observe(d.Seconds())
	if err != nil {
		p.nodeErrors.WithLabelValues(role).Inc()
	}
}

func (p *Prometheus) MoltDecision(allowed bool) {
	decision := "allowed"
	if !allowed {
		decision = "denied"
	}
	p.molts.WithLabelValues(decision).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
