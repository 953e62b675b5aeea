package logger

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// FromContext retrieves the request-scoped logger from the Echo context.
// Falls back to the global logger when the middleware has not run.
func FromContext(c echo.Context) *zap.Logger {
	logger, ok := c.Get("logger").(*zap.Logger)
	if !ok {
		return GetLogger()
	}
	return logger
}
