package middleware

import (
	"time"

	"manuals-backend/internal/logger"
	"manuals-backend/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware provides OpenTelemetry tracing for Gin
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// EnrichTrace adds the request id and response details to the active span.
func EnrichTrace() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		span.SetAttributes(
			attribute.String("request.id", GetRequestID(c)),
			attribute.String("http.client_ip", c.ClientIP()),
		)

		c.Next()

		span.SetAttributes(
			attribute.Int("http.response.status_code", c.Writer.Status()),
			attribute.Int("http.response.size", c.Writer.Size()),
		)
	}
}

// MetricsMiddleware records request metrics and logs one line per request.
func MetricsMiddleware(metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		statusStr := "success"
		if status >= 400 {
			statusStr = "error"
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metrics.RecordRequest(c.Request.Method, path, statusStr, duration.Seconds())

		logger.Info("HTTP request",
			"request_id", GetRequestID(c),
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", duration.Milliseconds(),
		)
	}
}
