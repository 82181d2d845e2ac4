package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owlynn_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "owlynn_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	chatTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owlynn_chat_turns_total",
			Help: "Chat turns by outcome (ok, fallback, error)",
		},
		[]string{"outcome"},
	)

	chatIntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owlynn_chat_intents_total",
			Help: "Classified intent labels",
		},
		[]string{"intent"},
	)

	chatTurnDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "owlynn_chat_turn_duration_seconds",
			Help:    "End to end chat turn duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owlynn_uploads_total",
			Help: "Uploads by category and outcome",
		},
		[]string{"category", "outcome"},
	)

	reindexTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owlynn_reindex_total",
			Help: "Background reindex attempts by outcome",
		},
		[]string{"outcome"},
	)

	conversationsPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "owlynn_conversations_purged_total",
			Help: "Durable conversation snapshots removed by cleanup",
		},
	)

	initOnce sync.Once
)

// InitMetrics registers the collectors with the default registry.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			chatTurnsTotal,
			chatIntentsTotal,
			chatTurnDuration,
			uploadsTotal,
			reindexTotal,
			conversationsPurged,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else if status < fiber.StatusBadRequest {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		httpRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

func RecordChatTurn(outcome string, duration time.Duration) {
	chatTurnsTotal.WithLabelValues(outcome).Inc()
	chatTurnDuration.Observe(duration.Seconds())
}

func RecordIntent(intent string) {
	chatIntentsTotal.WithLabelValues(intent).Inc()
}

func RecordUpload(category, outcome string) {
	uploadsTotal.WithLabelValues(category, outcome).Inc()
}

func RecordReindex(outcome string) {
	reindexTotal.WithLabelValues(outcome).Inc()
}

func RecordConversationsPurged(n int64) {
	conversationsPurged.Add(float64(n))
}
