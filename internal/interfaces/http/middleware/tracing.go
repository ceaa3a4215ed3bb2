package middleware

import (
	"net/http"

	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength bounds request IDs copied from headers into spans
const MaxRequestIDLength = 128

// ErrorCodeKey is the gin context key under which handlers record the
// error code of a failed request
const ErrorCodeKey = "error_code"

// Tracing returns the otelgin server span middleware. Spans go to the
// global tracer provider, which is a no-op when telemetry is disabled.
func Tracing(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// TracingAttributeInjector adds the request and actor IDs to the server
// span. Place it after Tracing and the JWT middleware.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if requestID := GetRequestID(c); requestID != "" {
				if len(requestID) > MaxRequestIDLength {
					requestID = requestID[:MaxRequestIDLength]
				}
				span.SetAttributes(attribute.String("request_id", requestID))
			}
			if actorID := c.GetString(logger.GinActorIDKey); actorID != "" {
				span.SetAttributes(attribute.String("actor_id", actorID))
			}
			if role := GetRole(c); role != "" {
				span.SetAttributes(attribute.String("actor_role", string(role)))
			}
		}
		c.Next()
	}
}

// SpanErrorMarker marks the server span failed for 4xx and 5xx responses
// and records the ledger error code the handler reported. Place it after Tracing.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		statusCode := c.Writer.Status()
		if statusCode < http.StatusBadRequest {
			return
		}
		span.SetStatus(codes.Error, http.StatusText(statusCode))
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
		if code := c.GetString(ErrorCodeKey); code != "" {
			span.SetAttributes(attribute.String(telemetry.SpanAttrErrorCode, code))
		}
	}
}
