package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"menew-api/pkg/config"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Order lifecycle counters
	OrderPlacedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "menew_orders_placed_total",
			Help: "Total number of successfully placed orders",
		},
	)

	OrderStatusCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menew_order_status_transitions_total",
			Help: "Total number of order status transitions by target status",
		},
		[]string{"status"},
	)

	// Stock availability toggle counter
	StockToggleCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "menew_stock_toggles_total",
			Help: "Total number of product availability toggles",
		},
	)

	// Login counter
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "menew_auth_login_total",
			Help: "Total number of login attempts",
		},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menew_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // type can be "invalid_token", "role_denied", "tenant_suspended" etc.
	)

	// Realtime gauges
	WSConnectionsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "menew_ws_connections",
			Help: "Number of live websocket connections",
		},
	)

	EventsPublishedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menew_events_published_total",
			Help: "Total number of realtime events published by type",
		},
		[]string{"type"},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menew_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"path", "method", "status"},
	)

	// HTTP request duration histogram
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "menew_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

// InitMetrics registers all metrics with the default registry
func InitMetrics(cfg *config.Config) {
	prometheus.MustRegister(
		OrderPlacedCounter,
		OrderStatusCounter,
		StockToggleCounter,
		LoginCounter,
		AuthErrorCounter,
		WSConnectionsGauge,
		EventsPublishedCounter,
		HTTPRequestCounter,
		HTTPRequestDuration,
	)
}

// RecordAuthError increments the auth error counter for the given type
func RecordAuthError(errType string) {
	AuthErrorCounter.WithLabelValues(errType).Inc()
}

// RecordEventPublished increments the published-events counter
func RecordEventPublished(eventType string) {
	EventsPublishedCounter.WithLabelValues(eventType).Inc()
}

// MetricsMiddleware returns an Echo middleware recording request counts and durations
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			path := c.Path() // route template, not the concrete URL
			if path == "" {
				path = c.Request().URL.Path
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)

			HTTPRequestCounter.WithLabelValues(path, method, status).Inc()
			HTTPRequestDuration.WithLabelValues(path, method).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// GetPrometheusHandler returns the handler serving the /metrics endpoint
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}
