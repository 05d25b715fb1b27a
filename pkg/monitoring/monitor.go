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
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"method", "endpoint"},
	)

	TrainingsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "quest_trainings_total",
		Help: "Number of trainings in the store",
	})

	TrainingsCompleted = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "quest_trainings_completed",
		Help: "Number of completed trainings",
	})

	PointsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "quest_points_total",
		Help: "Sum of objective points across all trainings",
	})

	PointsEarned = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "quest_points_earned",
		Help: "Sum of points of completed objectives",
	})

	ObjectivesCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quest_objectives_completed_total",
		Help: "Number of objectives marked completed",
	})

	PersistFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quest_persist_failures_total",
			Help: "Write-through persistence failures",
		},
		[]string{"entity"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(TrainingsTotal)
		prometheus.MustRegister(TrainingsCompleted)
		prometheus.MustRegister(PointsTotal)
		prometheus.MustRegister(PointsEarned)
		prometheus.MustRegister(ObjectivesCompleted)
		prometheus.MustRegister(PersistFailures)
	})
}

// SetProgress 用最新的统计值刷新进度相关 gauge
func SetProgress(trainings, completed, totalPoints, earnedPoints int) {
	TrainingsTotal.Set(float64(trainings))
	TrainingsCompleted.Set(float64(completed))
	PointsTotal.Set(float64(totalPoints))
	PointsEarned.Set(float64(earnedPoints))
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
