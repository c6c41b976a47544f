package database

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/guardkit/guardkit/pkg/database"

var (
	slowQueryMu        sync.RWMutex
	slowQueryThreshold time.Duration
	slowQueryLogger    *slog.Logger
)

// SetSlowQueryLogging configures slow query detection. Queries that take
// longer than threshold are logged as warnings with the operation name,
// SQL statement and duration. A zero threshold disables the logging.
func SetSlowQueryLogging(threshold time.Duration, logger *slog.Logger) {
	slowQueryMu.Lock()
	defer slowQueryMu.Unlock()
	slowQueryThreshold = threshold
	slowQueryLogger = logger
}

func getSlowQueryConfig() (time.Duration, *slog.Logger) {
	slowQueryMu.RLock()
	defer slowQueryMu.RUnlock()
	return slowQueryThreshold, slowQueryLogger
}

// TraceQuery starts a client span for a database operation and returns the
// span context plus an end function the caller must invoke when the query
// finishes, usually via defer:
//
//	ctx, end := database.TraceQuery(ctx, "GetUserByEmail", "SELECT id FROM users WHERE email = $1")
//	defer func() { end(err) }()
//
// Queries slower than the SetSlowQueryLogging threshold are logged.
func TraceQuery(ctx context.Context, operation, statement string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "db."+operation,
		trace.WithAttributes(queryAttrs(operation, statement)...),
		trace.WithSpanKind(trace.SpanKindClient))

	end := func(err error) {
		recordOutcome(span, err)
		logIfSlow(ctx, operation, statement, time.Since(start), err)
	}
	return ctx, end
}

// queryAttrs labels the span with enough to identify the statement in a
// trace viewer.
func queryAttrs(operation, statement string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", operation),
		attribute.String("db.statement", statement),
	}
}

// recordOutcome closes the span, marking it errored when the query failed.
func recordOutcome(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func logIfSlow(ctx context.Context, operation, statement string, elapsed time.Duration, err error) {
	threshold, logger := getSlowQueryConfig()
	if threshold <= 0 || logger == nil || elapsed < threshold {
		return
	}
	attrs := []any{
		slog.String("operation", operation),
		slog.String("statement", statement),
		slog.Duration("duration", elapsed),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logger.WarnContext(ctx, "slow query detected", attrs...)
}
