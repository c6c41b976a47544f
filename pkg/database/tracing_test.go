package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// installTestExporter swaps in a synchronous in-memory exporter for the
// duration of one test.
func installTestExporter(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter), sdktrace.WithSampler(sdktrace.AlwaysSample()))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func spanAttrs(span tracetest.SpanStub) map[string]string {
	attrs := make(map[string]string, len(span.Attributes))
	for _, kv := range span.Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	return attrs
}

// captureSlowLog points slow query logging at a buffer and resets it after
// the test.
func captureSlowLog(t *testing.T, threshold time.Duration) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetSlowQueryLogging(threshold, slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })
	return &buf
}

func TestTraceQuery_RecordsClientSpan(t *testing.T) {
	exporter := installTestExporter(t)

	ctx, end := TraceQuery(context.Background(), "GetUserByID", "SELECT id, email FROM users WHERE id = $1")
	require.NotNil(t, ctx)
	end(nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	span := spans[0]
	assert.Equal(t, "db.GetUserByID", span.Name)
	assert.Equal(t, codes.Unset, span.Status.Code)

	attrs := spanAttrs(span)
	assert.Equal(t, "postgresql", attrs["db.system"])
	assert.Equal(t, "GetUserByID", attrs["db.operation"])
	assert.Equal(t, "SELECT id, email FROM users WHERE id = $1", attrs["db.statement"])
}

func TestTraceQuery_ErrorSetsSpanStatus(t *testing.T) {
	exporter := installTestExporter(t)

	_, end := TraceQuery(context.Background(), "CreateUser", "INSERT INTO users (email) VALUES ($1)")
	end(errors.New("connection refused"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.NotEmpty(t, spans[0].Events, "the error is recorded as a span event")
}

func TestTraceQuery_ChildOfCallerSpan(t *testing.T) {
	exporter := installTestExporter(t)

	ctx, parent := otel.Tracer("test").Start(context.Background(), "handler")
	_, end := TraceQuery(ctx, "GetUserByEmail", "SELECT id FROM users WHERE email = $1")
	end(nil)
	parent.End()

	// The query span ends first, the handler span second.
	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].SpanContext.TraceID())
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

func TestSlowQueryLog_EmittedPastThreshold(t *testing.T) {
	installTestExporter(t)
	buf := captureSlowLog(t, time.Nanosecond)

	_, end := TraceQuery(context.Background(), "CountUsers", "SELECT count(*) FROM users")
	end(nil)

	out := buf.String()
	assert.Contains(t, out, "slow query detected")
	assert.Contains(t, out, "CountUsers")
	assert.Contains(t, out, "SELECT count(*) FROM users")
}

func TestSlowQueryLog_QuietUnderThreshold(t *testing.T) {
	installTestExporter(t)
	buf := captureSlowLog(t, time.Hour)

	_, end := TraceQuery(context.Background(), "GetUserByID", "SELECT 1")
	end(nil)

	assert.Empty(t, buf.String())
}

func TestSlowQueryLog_IncludesError(t *testing.T) {
	installTestExporter(t)
	buf := captureSlowLog(t, time.Nanosecond)

	_, end := TraceQuery(context.Background(), "CreateUser", "INSERT INTO users (email) VALUES ($1)")
	end(errors.New("unique constraint violation"))

	out := buf.String()
	assert.Contains(t, out, "slow query detected")
	assert.Contains(t, out, "unique constraint violation")
}

func TestSlowQueryLog_DisabledByZeroThreshold(t *testing.T) {
	installTestExporter(t)
	SetSlowQueryLogging(0, nil)

	_, end := TraceQuery(context.Background(), "GetUserByID", "SELECT 1")
	end(nil) // must not panic with a nil logger
}

func TestSetSlowQueryLogging_ConcurrentAccess(t *testing.T) {
	installTestExporter(t)
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 100 {
			SetSlowQueryLogging(time.Duration(i)*time.Millisecond, logger)
		}
	}()
	go func() {
		defer wg.Done()
		for range 100 {
			getSlowQueryConfig()
		}
	}()
	wg.Wait()
}
