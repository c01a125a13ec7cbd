package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 文档处理任务指标
	ProcessingJobCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "processing_jobs_total",
			Help: "Total number of document processing jobs by final status",
		},
		[]string{"status"},
	)

	ProcessingJobsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "processing_jobs_in_flight",
			Help: "Number of document processing jobs currently running",
		},
	)

	CreditsChargedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credits_charged_total",
			Help: "Total credits charged across successful processing jobs",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(ProcessingJobCounter)
	prometheus.MustRegister(ProcessingJobsInFlight)
	prometheus.MustRegister(CreditsChargedCounter)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
