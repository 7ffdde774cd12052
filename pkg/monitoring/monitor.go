package monitoring

import (
	"strconv"
	"sync"
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
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 游戏指标
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mystery_submissions_total",
			Help: "Answer submissions by question type and outcome",
		},
		[]string{"type", "outcome"},
	)

	ReviewTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mystery_review_transitions_total",
			Help: "Review status transitions",
		},
		[]string{"status"},
	)

	LevelsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mystery_levels_completed_total",
			Help: "Levels newly marked completed",
		},
	)

	LevelsUnlocked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mystery_levels_unlocked_total",
			Help: "Levels newly unlocked",
		},
	)

	PresentsCollected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mystery_presents_collected_total",
			Help: "Presents newly collected",
		},
	)

	ImageCacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mystery_image_cache_requests_total",
			Help: "Image proxy cache lookups by result",
		},
		[]string{"result"},
	)

	HintRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mystery_hint_requests_total",
			Help: "Hint requests by outcome",
		},
		[]string{"outcome"},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			SubmissionsTotal,
			ReviewTransitions,
			LevelsCompleted,
			LevelsUnlocked,
			PresentsCollected,
			HintRequests,
			ImageCacheRequests,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
