package middleware

import (
	"net/http"
	"strings"

	"menew-api/internal/authz"
	"menew-api/pkg/jwtutil"
	"menew-api/pkg/logger"
	"menew-api/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware validates the JWT access token from the Authorization header
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Warn("Missing Authorization header")
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Warn("Invalid Authorization header format")
			prometheus.RecordAuthError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid authorization format, expected Bearer token"})
		}

		// Validate the token
		claims, err := jwtutil.ValidateAccessToken(parts[1])
		if err != nil {
			log.Warn("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid or expired token"})
		}

		// Store the principal in the context for handlers and role gates
		c.Set("principal", authz.Principal{
			UserID:   claims.UserID,
			Role:     claims.Role,
			TenantID: claims.TenantID,
		})
		c.Set("claims", claims)

		return next(c)
	}
}

// RequireRoles gates a route group to the given roles. Must run after
// AuthMiddleware.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := c.Get("principal").(authz.Principal)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "authentication required"})
			}

			if !authz.HasRole(p, roles...) {
				logger.FromContext(c).Warn("Role not permitted",
					zap.String("role", p.Role),
					zap.Strings("required", roles))
				prometheus.RecordAuthError("role_denied")
				return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "you do not have access to perform this action"})
			}

			return next(c)
		}
	}
}

// GetPrincipal extracts the authenticated principal from the context.
func GetPrincipal(c echo.Context) (authz.Principal, bool) {
	p, ok := c.Get("principal").(authz.Principal)
	return p, ok
}
