package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	// document store gateway
	StoreOpDuration  *prometheus.HistogramVec
	StoreErrorsTotal *prometheus.CounterVec

	// registration engine / moderation outcomes
	EngineResultsTotal *prometheus.CounterVec
	PartialWritesTotal *prometheus.CounterVec

	// reconciler
	ReconcilerRunsTotal    prometheus.Counter
	ReconcilerRepairsTotal *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gatherdesk",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gatherdesk",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gatherdesk",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		StoreOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gatherdesk",
				Subsystem: "store",
				Name:      "op_duration_seconds",
				Help:      "Document store operation latency (logical op).",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op"},
		),
		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gatherdesk",
				Subsystem: "store",
				Name:      "errors_total",
				Help:      "Document store operation failures.",
			},
			[]string{"op", "kind"},
		),
		EngineResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gatherdesk",
				Subsystem: "engine",
				Name:      "results_total",
				Help:      "Registration engine and moderation outcomes.",
			},
			[]string{"op", "result"},
		),
		PartialWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gatherdesk",
				Subsystem: "engine",
				Name:      "partial_writes_total",
				Help:      "Two-write sequences whose second write failed.",
			},
			[]string{"op"},
		),
		ReconcilerRunsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "gatherdesk",
				Subsystem: "reconciler",
				Name:      "runs_total",
				Help:      "Completed reconciliation sweeps.",
			},
		),
		ReconcilerRepairsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gatherdesk",
				Subsystem: "reconciler",
				Name:      "repairs_total",
				Help:      "Inconsistencies found during reconciliation sweeps.",
			},
			[]string{"kind"},
		),
	}

	reg.MustRegister(
		p.RequestsTotal,
		p.RequestsDuration,
		p.InFlight,
		p.StoreOpDuration,
		p.StoreErrorsTotal,
		p.EngineResultsTotal,
		p.PartialWritesTotal,
		p.ReconcilerRunsTotal,
		p.ReconcilerRepairsTotal,
	)

	return p
}

// ObserveStore times a logical store operation and counts its failure.
func (p *Prom) ObserveStore(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.StoreOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		p.StoreErrorsTotal.WithLabelValues(op, "error").Inc()
	}

	return err
}

// HTTPMiddleware records request counters and latency per route.
func (p *Prom) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		method := c.Request.Method

		p.InFlight.WithLabelValues(method, route).Inc()
		start := time.Now()

		c.Next()

		p.InFlight.WithLabelValues(method, route).Dec()

		status := strconv.Itoa(c.Writer.Status())
		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
	}
}
