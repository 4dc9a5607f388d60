package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LogMetricsInitialization logs that metrics have been initialized
func (s *Server) LogMetricsInitialization() {
	if s.logger != nil {
		s.logger.Info("Prometheus metrics initialized and registered")
		s.logger.WithFields(map[string]interface{}{
			"http_requests_total":               "Counter for HTTP requests by method, endpoint, status",
			"http_request_duration":             "Histogram for HTTP request duration by method, endpoint",
			"email_verification_requests_total": "Counter for validation API calls by outcome",
			"emails_sent_total":                 "Counter for scheduled email deliveries by result",
			"metrics_endpoint":                  "/metrics",
		}).Debug("Available Prometheus metrics")
	}
}

// metricsEndpoint serves the default registry.
func (s *Server) metricsEndpoint(c echo.Context) error {
	promhttp.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}
