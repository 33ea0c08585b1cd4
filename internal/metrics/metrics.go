package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one server instance. Each instance owns
// its registry so that tests can build as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Business metrics
	LeadsReceived     *prometheus.CounterVec
	DeliveriesTotal   *prometheus.CounterVec
	QuotesCalculated  prometheus.Counter
	RateLimitRejected prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		LeadsReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_received_total",
				Help: "Total number of lead submissions by source",
			},
			[]string{"source"},
		),
		DeliveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lead_deliveries_total",
				Help: "Lead delivery attempts by channel and outcome",
			},
			[]string{"channel", "outcome"}, // telegram, email / success, failure, skipped
		),
		QuotesCalculated: factory.NewCounter(prometheus.CounterOpts{
			Name: "quotes_calculated_total",
			Help: "Total number of price breakdowns computed",
		}),
		RateLimitRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "rate_limit_rejected_total",
			Help: "Requests rejected by the rate limiter",
		}),
	}
}

// Middleware records request count and latency per route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// ObserveDelivery implements notify.Observer.
func (m *Metrics) ObserveDelivery(channel, outcome string) {
	m.DeliveriesTotal.WithLabelValues(channel, outcome).Inc()
}

// Lead sources sent by the landing page widgets and the leadsend CLI.
// Anything else is counted as SourceOther.
var knownSources = map[string]bool{
	"Contact Form":        true,
	"Price Calculator":    true,
	"Floating Brief":      true,
	"Footer Consultation": true,
	"leadsend":            true,
}

const SourceOther = "other"

// RecordLead counts a lead. The source comes from the client, so it is
// folded into a fixed label set.
func (m *Metrics) RecordLead(source string) {
	if !knownSources[source] {
		source = SourceOther
	}
	m.LeadsReceived.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordQuote() {
	m.QuotesCalculated.Inc()
}

func (m *Metrics) RecordRateLimited() {
	m.RateLimitRejected.Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
