package logging

import (
	"context"
	"fmt"
	"regexp"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxIDLen = 128

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type requestCtxKey struct{}
type assessmentCtxKey struct{}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 5)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}

	if assessmentID := AssessmentIDFromContext(ctx); assessmentID != "" {
		fields = append(fields, zap.String("assessment.id", assessmentID))
	}

	return fields
}

func validateID(id, name string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxIDLen)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (must be alphanumeric, hyphen, underscore)", name)
	}
	return nil
}

// RequestIDFromContext extracts request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithRequestID adds request ID to context. Invalid IDs are dropped, since
// they arrive from clients via X-Request-ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if validateID(requestID, "requestID") != nil {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// AssessmentIDFromContext extracts the assessment ID from context.
func AssessmentIDFromContext(ctx context.Context) string {
	if a, ok := ctx.Value(assessmentCtxKey{}).(string); ok {
		return a
	}
	return ""
}

// WithAssessmentID adds the assessment ID to context. Invalid IDs are dropped.
func WithAssessmentID(ctx context.Context, assessmentID string) context.Context {
	if validateID(assessmentID, "assessmentID") != nil {
		return ctx
	}
	return context.WithValue(ctx, assessmentCtxKey{}, assessmentID)
}
