package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for Transitions.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeAuto     = "auto"
)

var (
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intervention_transitions_total",
		Help: "Intervention status transitions by source, target and outcome.",
	}, []string{"from", "to", "outcome"})

	PhaseSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "phase_submissions_total",
		Help: "Phase record submissions by phase.",
	}, []string{"phase"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// RecordTransition counts one status change attempt using wire status values.
func RecordTransition(from, to, outcome string) {
	Transitions.WithLabelValues(from, to, outcome).Inc()
}

func RecordPhaseSubmission(phase string) {
	PhaseSubmissions.WithLabelValues(phase).Inc()
}

// Middleware observes request latency under the matched route pattern.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
