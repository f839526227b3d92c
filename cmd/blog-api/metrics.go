package main

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry  *prometheus.Registry
	decisions *prometheus.CounterVec
	activity  *prometheus.CounterVec
	requests  *prometheus.HistogramVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_auth_decisions_total",
			Help: "authentication outcomes of protected requests",
		}, []string{"outcome"}),
		activity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_activity_events_total",
			Help: "audit events recorded by the auth controller",
		}, []string{"verb"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blog_http_request_duration_seconds",
			Help:    "timing of requests served by the http server",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status_code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.decisions,
		m.activity,
		m.requests,
	)
	return m
}

// observeDecision is handed to the auth middleware
func (m *metrics) observeDecision(outcome string) {
	m.decisions.WithLabelValues(outcome).Inc()
}

func (m *metrics) observeActivity(verb string) {
	m.activity.WithLabelValues(verb).Inc()
}

func (m *metrics) middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		m.requests.
			WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}

func (m *metrics) handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
