// Package metrics exposes Prometheus metrics for the locker server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smart-locker-control/internal/activity"
	"smart-locker-control/internal/locker"
	"smart-locker-control/internal/storage"
)

type Collector struct {
	commands     *prometheus.CounterVec
	lockerStatus *prometheus.GaugeVec
	activity     *prometheus.CounterVec
	logins       *prometheus.CounterVec
	rateLimited  prometheus.Counter
	httpStatus   *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// NewCollector creates the collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "locker_commands_total",
			Help: "Accepted locker commands by action.",
		}, []string{"action"}),
		lockerStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "locker_status",
			Help: "1 for the current locker status, 0 otherwise.",
		}, []string{"status"}),
		activity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "locker_activity_entries_total",
			Help: "Activity entries recorded by log and type.",
		}, []string{"log", "type"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "locker_login_attempts_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "locker_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "locker_http_requests_total",
			Help: "HTTP responses by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "locker_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.commands,
		c.lockerStatus,
		c.activity,
		c.logins,
		c.rateLimited,
		c.httpStatus,
		c.httpLatency,
	)
	return c
}

func (c *Collector) RecordCommand(action locker.Action) {
	c.commands.WithLabelValues(string(action)).Inc()
}

// RecordLockerState sets the status gauge. Matches locker.Controller.Observe.
func (c *Collector) RecordLockerState(s locker.State) {
	for _, status := range locker.AllStatuses() {
		v := 0.0
		if status == s.Status {
			v = 1
		}
		c.lockerStatus.WithLabelValues(string(status)).Set(v)
	}
}

// RecordActivity counts an entry. Matches activity.Listener.
func (c *Collector) RecordActivity(log storage.LogName, e activity.Entry) {
	c.activity.WithLabelValues(string(log), e.Type).Inc()
}

func (c *Collector) RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(result).Inc()
}

func (c *Collector) RecordRateLimited() {
	c.rateLimited.Inc()
}

func (c *Collector) RecordHTTP(method, route string, statusCode int, duration time.Duration) {
	c.httpStatus.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
