// Package metrics provides the Prometheus collectors for badgegraph.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nao1215/badgegraph/internal/model"
	"github.com/nao1215/badgegraph/internal/pipeline"
)

// MetricsNamespace is the namespace for all badgegraph metrics.
const MetricsNamespace = "badgegraph"

// Ingestion outcome labels.
const (
	outcomeOK      = "ok"
	outcomeFailed  = "scrape_failed"
	outcomeInvalid = "invalid"
	outcomeError   = "error"
)

// Metrics holds all Prometheus metrics.
// It implements the frontier, work and graph observers.
type Metrics struct {
	reg prometheus.Registerer

	// Frontier metrics
	FrontierAdded   prometheus.Counter
	FrontierRemoved prometheus.Counter

	// Work metrics
	Dispatched     *prometheus.CounterVec
	Ingested       *prometheus.CounterVec
	LinksRecorded  prometheus.Counter
	LinksSkipped   prometheus.Counter
	LinksDeleted   prometheus.Counter
	PagesCreated   prometheus.Counter
	URLsOffered    prometheus.Counter
	ExportDuration prometheus.Histogram
	ExportsTotal   *prometheus.CounterVec
	GraphHosts     prometheus.Gauge
	GraphEdges     prometheus.Gauge

	// HTTP metrics
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics on reg.
// A nil reg registers on prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	m := &Metrics{reg: reg}

	m.initFrontierMetrics(factory)
	m.initWorkMetrics(factory)
	m.initGraphMetrics(factory)
	m.initHTTPMetrics(factory)

	return m
}

func (m *Metrics) initFrontierMetrics(factory promauto.Factory) {
	m.FrontierAdded = factory.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "frontier",
		Name:      "filled_total",
		Help:      "URLs added to the frontier by fill",
	})
	m.FrontierRemoved = factory.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "frontier",
		Name:      "pruned_total",
		Help:      "URLs removed from the frontier by prune",
	})
}

func (m *Metrics) initWorkMetrics(factory promauto.Factory) {
	m.Dispatched = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "work",
		Name:      "dispatched_total",
		Help:      "Work requests by whether a URL was handed out",
	}, []string{"found"})
	m.Ingested = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "work",
		Name:      "ingested_total",
		Help:      "Worker submissions by outcome",
	}, []string{"outcome"})
	m.LinksRecorded = factory.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "work",
		Name:      "links_recorded_total",
		Help:      "Links upserted from worker submissions",
	})
	m.LinksSkipped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "work",
		Name:      "links_skipped_total",
		Help:      "Reported links dropped for invalid targets",
	})
	m.LinksDeleted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "work",
		Name:      "links_deleted_total",
		Help:      "Links deleted by the hard failure policy",
	})
	m.PagesCreated = factory.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "work",
		Name:      "pages_created_total",
		Help:      "Pages first seen as link targets",
	})
	m.URLsOffered = factory.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "work",
		Name:      "offered_total",
		Help:      "Discovered URLs offered to the frontier",
	})
}

func (m *Metrics) initGraphMetrics(factory promauto.Factory) {
	m.ExportDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Subsystem: "graph",
		Name:      "export_duration_seconds",
		Help:      "Duration of graph exports in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
	})
	m.ExportsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "graph",
		Name:      "exports_total",
		Help:      "Graph exports by status",
	}, []string{"status"})
	m.GraphHosts = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Subsystem: "graph",
		Name:      "hosts",
		Help:      "Hosts in the last exported graph",
	})
	m.GraphEdges = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Subsystem: "graph",
		Name:      "edges",
		Help:      "Edges in the last exported graph",
	})
}

func (m *Metrics) initHTTPMetrics(factory promauto.Factory) {
	m.Requests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status",
	}, []string{"method", "route", "status"})
	m.RequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
}

// TrackFrontierSize registers a gauge that reads the frontier length on scrape.
func (m *Metrics) TrackFrontierSize(size func() int) {
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Subsystem: "frontier",
		Name:      "size",
		Help:      "URLs currently queued in the frontier",
	}, func() float64 { return float64(size()) })
}

// FrontierFilled implements frontier.Observer.
func (m *Metrics) FrontierFilled(added int) {
	m.FrontierAdded.Add(float64(added))
}

// FrontierPruned implements frontier.Observer.
func (m *Metrics) FrontierPruned(removed int) {
	m.FrontierRemoved.Add(float64(removed))
}

// WorkDispatched implements work.Observer.
func (m *Metrics) WorkDispatched(found bool) {
	m.Dispatched.WithLabelValues(strconv.FormatBool(found)).Inc()
}

// WorkIngested implements work.Observer.
func (m *Metrics) WorkIngested(in *pipeline.Ingestion, err error) {
	outcome := outcomeOK
	switch {
	case errors.Is(err, pipeline.ErrInvalidURL):
		outcome = outcomeInvalid
	case err != nil:
		outcome = outcomeError
	case in != nil && !in.Submission.Success:
		outcome = outcomeFailed
	}
	m.Ingested.WithLabelValues(outcome).Inc()

	if in == nil {
		return
	}
	m.LinksRecorded.Add(float64(in.LinksRecorded))
	m.LinksSkipped.Add(float64(in.LinksSkipped))
	m.LinksDeleted.Add(float64(in.LinksDeleted))
	m.PagesCreated.Add(float64(in.PagesCreated))
	m.URLsOffered.Add(float64(in.Offered))
}

// GraphExported implements graph.Observer.
func (m *Metrics) GraphExported(elapsed time.Duration, g *model.Graph, err error) {
	m.ExportDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.ExportsTotal.WithLabelValues("error").Inc()
		return
	}
	m.ExportsTotal.WithLabelValues("ok").Inc()
	m.GraphHosts.Set(float64(len(g.Hosts())))
	m.GraphEdges.Set(float64(g.EdgeCount()))
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
