package telemetry

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "botm"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests by route and status code.",
	}, []string{"method", "route", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	rankingCalculations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ranking",
		Name:      "calculations_total",
		Help:      "Number of ranking calculations by result.",
	}, []string{"result"})

	rankingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ranking",
		Name:      "calculation_duration_seconds",
		Help:      "Time spent calculating and persisting the ranks of a competition.",
		Buckets:   prometheus.DefBuckets,
	})

	registrations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "competition",
		Name:      "registrations_total",
		Help:      "Number of competition registrations.",
	})
)

// HTTPMetrics records request count and latency per matched route.
func HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func ObserveRankingCalculation(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	rankingCalculations.WithLabelValues(result).Inc()
	rankingDuration.Observe(d.Seconds())
}

func CountRegistration() {
	registrations.Inc()
}
