package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := Tracer
	Tracer = tp.Tracer("test")
	t.Cleanup(func() {
		Tracer = prev
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func attrs(kv []attribute.KeyValue) map[string]string {
	out := make(map[string]string, len(kv))
	for _, a := range kv {
		out[string(a.Key)] = a.Value.Emit()
	}
	return out
}

func TestTraceLayer(t *testing.T) {
	rec := withRecorder(t)

	ctx, span := GetTraceLayer().TraceStoreOperation(context.Background(), "redis", "transact")
	RecordErrorInContext(ctx, errors.New("conflict"))
	span.End()

	_, span = GetTraceLayer().TraceServiceCall(context.Background(), "friend", "SendRequest")
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 2)

	assert.Equal(t, "store.transact", ended[0].Name())
	assert.Equal(t, "redis", attrs(ended[0].Attributes())["db.system"])
	assert.Equal(t, codes.Error, ended[0].Status().Code)

	assert.Equal(t, "friend.SendRequest", ended[1].Name())
	assert.Equal(t, "SendRequest", attrs(ended[1].Attributes())["rpc.method"])
	assert.Equal(t, codes.Unset, ended[1].Status().Code)
}

func TestInitTracingDisabled(t *testing.T) {
	prev := Tracer
	t.Cleanup(func() { Tracer = prev })

	shutdown, err := InitTracing(TracingConfig{ServiceName: "arcade-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestStoreMetricsTrack(t *testing.T) {
	m := NewStoreMetrics("metrics-test")
	before := testutil.ToFloat64(StoreErrors.WithLabelValues("metrics-test", "get"))

	m.Track("get")(nil)
	m.Track("get")(errors.New("boom"))

	assert.Equal(t, before+1, testutil.ToFloat64(StoreErrors.WithLabelValues("metrics-test", "get")))
	assert.Equal(t, "metrics-test", m.Backend())
}

func TestCorrelationID(t *testing.T) {
	assert.Empty(t, ExtractCorrelationID(context.Background()))

	id := GenerateCorrelationID()
	assert.Len(t, id, 36)
	assert.Equal(t, id, ExtractCorrelationID(WithCorrelationID(context.Background(), id)))
}

func TestRepoLoggerToggle(t *testing.T) {
	var buf bytes.Buffer
	prevLogger, prevToggle := GlobalLogger, RepoLogging
	t.Cleanup(func() { GlobalLogger, RepoLogging = prevLogger, prevToggle })
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	l := NewRepoLogger("profiles")
	ctx := WithCorrelationID(context.Background(), "corr-1")

	RepoLogging = true
	l.LogCreate(ctx, slog.Uint64("profile_id", 3))
	assert.Contains(t, buf.String(), "collection=profiles")
	assert.Contains(t, buf.String(), "correlation_id=corr-1")

	buf.Reset()
	RepoLogging = false
	l.LogUpdate(ctx)
	assert.Empty(t, buf.String())

	l.LogError(ctx, errors.New("boom"), "update")
	assert.Contains(t, buf.String(), "error=boom")
}
