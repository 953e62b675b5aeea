package handler

import (
	"net/http"

	"menew-api/prometheus"

	"github.com/labstack/echo/v4"
)

// HealthCheck is the liveness endpoint
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "menew api is running"})
}

// MetricsHandler serves the Prometheus metrics endpoint
func MetricsHandler(c echo.Context) error {
	handler := prometheus.GetPrometheusHandler()
	handler.ServeHTTP(c.Response(), c.Request())
	return nil
}
