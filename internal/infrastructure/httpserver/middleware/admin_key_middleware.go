package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// AdminKeyHeader carries the operator key for admin routes.
const AdminKeyHeader = "X-Admin-Key"

type AdminKeyMiddleware struct {
	key    string
	logger *logrus.Logger
}

func NewAdminKeyMiddleware(key string, logger *logrus.Logger) *AdminKeyMiddleware {
	return &AdminKeyMiddleware{key: key, logger: logger}
}

// RequireAdminKey rejects requests whose key does not match. With no key configured every admin
// request is refused.
func (m *AdminKeyMiddleware) RequireAdminKey() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.key == "" {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "admin API disabled")
			}
			got := strings.TrimSpace(c.Request().Header.Get(AdminKeyHeader))
			if subtle.ConstantTimeCompare([]byte(got), []byte(m.key)) != 1 {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path}).Warn("admin key rejected")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid admin key")
			}
			return next(c)
		}
	}
}
