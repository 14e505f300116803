package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestLogrusLoggerMapsKeyValues(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	logger := NewLogrusLogger(base.WithField("component", "core"))

	boom := errors.New("boom")
	logger.Warn("operation rejected", "operation", "create_product", "error", boom, "dangling")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, logrus.WarnLevel, entry.Level)
	require.Equal(t, "operation rejected", entry.Message)
	require.Equal(t, "core", entry.Data["component"])
	require.Equal(t, "create_product", entry.Data["operation"])
	require.Equal(t, boom, entry.Data[logrus.ErrorKey])
	require.Equal(t, "(missing)", entry.Data["dangling"])

	logger.Debug("plain")
	require.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	require.Len(t, hook.AllEntries(), 2)
}

func TestPrometheusRecorderReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewPrometheusMetricsRecorder(reg)
	second := NewPrometheusMetricsRecorder(reg)

	first.Observe(context.Background(), "post_invoice", true, 10*time.Millisecond)
	second.Observe(context.Background(), "post_invoice", true, 10*time.Millisecond)
	second.Observe(context.Background(), "", true, time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(first.operations.WithLabelValues("post_invoice", "success")))
}

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), "confirm_sale_order", true, 2*time.Millisecond)
	rec.Observe(context.Background(), "confirm_sale_order", false, 4*time.Millisecond)

	stats := rec.Stats()["confirm_sale_order"]
	require.Equal(t, int64(1), stats.Successes)
	require.Equal(t, int64(1), stats.Errors)
	require.InDelta(t, 6.0, stats.TotalMS, 0.001)

	published := expvar.Get(rec.Name())
	require.NotNil(t, published)
	var decoded map[string]OperationStats
	require.NoError(t, json.Unmarshal([]byte(published.String()), &decoded))
	require.Equal(t, stats, decoded["confirm_sale_order"])
}

func TestJSONTracerWritesLines(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	ticks := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, int(3*time.Millisecond), time.UTC),
	}
	tracer.now = func() time.Time {
		next := ticks[0]
		ticks = ticks[1:]
		return next
	}

	_, span := tracer.Start(context.Background(), "cancel_sale_order")
	span.End(errors.New("cannot cancel"))

	var entry JSONTraceEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "cancel_sale_order", entry.Operation)
	require.Equal(t, "error", entry.Status)
	require.Equal(t, "cannot cancel", entry.Error)
	require.InDelta(t, 3.0, entry.DurationMS, 0.001)
}
