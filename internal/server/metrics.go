package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects HTTP and ask-pipeline metrics on a private registry so
// tests never trip duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	askTotal     *prometheus.CounterVec
	askSeconds   prometheus.Histogram
	askCostUSD   prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hrdesk_http_requests_total",
		Help: "HTTP requests by method, path and status.",
	}, []string{"method", "path", "status"})
	m.askTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hrdesk_ask_total",
		Help: "Ask requests by outcome (ok, cached, timeout).",
	}, []string{"outcome"})
	m.askSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hrdesk_ask_duration_seconds",
		Help:    "Wall time of orchestrator runs.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	})
	m.askCostUSD = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hrdesk_ask_cost_usd_total",
		Help: "Accumulated LLM spend attributed to ask requests.",
	})
	m.registry.MustRegister(m.httpRequests, m.askTotal, m.askSeconds, m.askCostUSD)
	return m
}

// Middleware counts every request by route pattern, not raw URL, to keep
// cardinality bounded.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			m.httpRequests.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			return err
		}
	}
}

// ObserveAsk records one ask outcome. Duration and cost are only meaningful
// for executed runs; cached hits pass zeros.
func (m *Metrics) ObserveAsk(outcome string, d time.Duration, cost float64) {
	m.askTotal.WithLabelValues(outcome).Inc()
	if d > 0 {
		m.askSeconds.Observe(d.Seconds())
	}
	if cost > 0 {
		m.askCostUSD.Add(cost)
	}
}

func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
