// Package metrics exposes Prometheus instruments for the budget and health
// engines and the HTTP server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"finhealth/internal/core"
)

const namespace = "finhealth"

type Metrics struct {
	registry *prometheus.Registry

	BudgetTransitions *prometheus.CounterVec
	BudgetRejections  *prometheus.CounterVec
	ActiveBudgets     prometheus.Gauge
	PendingSuggestion prometheus.Gauge
	BudgetsByStatus   *prometheus.GaugeVec
	TotalBudget       prometheus.Gauge
	TotalSpent        prometheus.Gauge

	HealthScore      prometheus.Gauge
	ScoreComponent   *prometheus.GaugeVec
	ScoreComputation *prometheus.CounterVec

	EventsPublished *prometheus.CounterVec
	SpendRefresh    *prometheus.HistogramVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New registers every instrument on a fresh registry together with the Go
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		BudgetTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "transitions_total",
			Help:      "Budget lifecycle transitions by action",
		}, []string{"action"}),
		BudgetRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "rejected_commands_total",
			Help:      "Budget commands rejected by validation or lookup",
		}, []string{"operation", "reason"}),
		ActiveBudgets: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "active",
			Help:      "Number of active budgets",
		}),
		PendingSuggestion: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "suggestions_pending",
			Help:      "Number of pending suggestions",
		}),
		BudgetsByStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "by_status",
			Help:      "Active budgets per status tier",
		}, []string{"status"}),
		TotalBudget: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "total_amount",
			Help:      "Sum of active budget limits",
		}),
		TotalSpent: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "total_spent",
			Help:      "Sum of spend against active budgets",
		}),

		HealthScore: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "score",
			Help:      "Latest overall health score",
		}),
		ScoreComponent: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "component_contribution",
			Help:      "Contribution of each factor to the latest score",
		}, []string{"factor"}),
		ScoreComputation: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "computations_total",
			Help:      "Health score computations by classification",
		}, []string{"classification"}),

		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "amqp",
			Name:      "events_published_total",
			Help:      "Budget events handed to the broker",
		}, []string{"result"}),
		SpendRefresh: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "spend",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of spend refreshes",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"result"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"method", "route"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveBudgets refreshes the budget gauges from the current sets.
func (m *Metrics) ObserveBudgets(active, suggestions []core.Budget) {
	m.ActiveBudgets.Set(float64(len(active)))
	m.PendingSuggestion.Set(float64(len(suggestions)))
	counts := make(map[core.Status]int, 4)
	for _, b := range active {
		counts[b.Status]++
	}
	for _, s := range core.Statuses() {
		m.BudgetsByStatus.WithLabelValues(s.String()).Set(float64(counts[s]))
	}
	sum := core.Summarize(active)
	m.TotalBudget.Set(sum.TotalBudget)
	m.TotalSpent.Set(sum.TotalSpent)
}

func (m *Metrics) ObserveScore(h core.HealthScore) {
	m.HealthScore.Set(float64(h.Overall))
	for _, c := range h.Components {
		m.ScoreComponent.WithLabelValues(c.Name).Set(c.Contribution)
	}
	m.ScoreComputation.WithLabelValues(h.Classification.String()).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveRefresh records a spend refresh duration labelled ok or error.
func (m *Metrics) ObserveRefresh(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SpendRefresh.WithLabelValues(result).Observe(d.Seconds())
}
