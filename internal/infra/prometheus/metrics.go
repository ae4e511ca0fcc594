package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "linkledger"

// Metrics holds the application collectors. It satisfies service.Recorder.
type Metrics struct {
	linksAdded       *prometheus.CounterVec
	linkConflicts    prometheus.Counter
	reportsGenerated *prometheus.CounterVec
	reportRender     *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		linksAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_added_total",
			Help:      "Links stored, by platform.",
		}, []string{"platform"}),
		linkConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_conflicts_total",
			Help:      "Submissions rejected because the URL was already stored.",
		}),
		reportsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_generated_total",
			Help:      "Reports rendered, by format.",
		}, []string{"format"}),
		reportRender: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_render_seconds",
			Help:      "Time spent rendering a report.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"format"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(m.linksAdded, m.linkConflicts, m.reportsGenerated, m.reportRender, m.httpRequests)
	return m
}

func (m *Metrics) LinkAdded(platform string) {
	m.linksAdded.WithLabelValues(platform).Inc()
}

func (m *Metrics) LinkConflict() {
	m.linkConflicts.Inc()
}

func (m *Metrics) ReportGenerated(format string, _ int, took time.Duration) {
	m.reportsGenerated.WithLabelValues(format).Inc()
	m.reportRender.WithLabelValues(format).Observe(took.Seconds())
}

// HTTPRequest counts one served request. route is the registered path, not
// the raw URL.
func (m *Metrics) HTTPRequest(method, route string, status int) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
