package otel_test

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	petalotel "github.com/petal-labs/petalcalc/otel"
	"github.com/petal-labs/petalcalc/runtime"
)

// newTestMeter returns a meter backed by a manual reader for collecting metrics in tests.
func newTestMeter() (*metric.ManualReader, *metric.MeterProvider) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	return reader, mp
}

// collectMetrics reads all metrics from the reader.
func collectMetrics(t *testing.T, reader *metric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return &rm
}

// findMetric searches for a metric by name in the collected data.
func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}
	return nil
}

func sumByAttr(t *testing.T, m *metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64] data, got %T", m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestMetricsHandler_CountsOutcomes(t *testing.T) {
	reader, mp := newTestMeter()
	h, err := petalotel.NewMetricsHandler(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetricsHandler: %v", err)
	}

	h.Handle(runtime.Event{Kind: runtime.EventEvalFinished, Elapsed: time.Millisecond})
	h.Handle(runtime.Event{Kind: runtime.EventEvalFinished, Elapsed: 2 * time.Millisecond})
	h.Handle(runtime.Event{
		Kind:    runtime.EventEvalFailed,
		Elapsed: time.Millisecond,
		Payload: map[string]any{
			runtime.PayloadStage:     "eval",
			runtime.PayloadErrorKind: "division_by_zero",
		},
	})

	rm := collectMetrics(t, reader)

	evals := findMetric(rm, petalotel.MetricEvaluations)
	if evals == nil {
		t.Fatalf("%s metric not found", petalotel.MetricEvaluations)
	}
	if got := sumByAttr(t, evals, "outcome", "ok"); got != 2 {
		t.Errorf("ok evaluations = %d, want 2", got)
	}
	if got := sumByAttr(t, evals, "outcome", "error"); got != 1 {
		t.Errorf("failed evaluations = %d, want 1", got)
	}

	failures := findMetric(rm, petalotel.MetricFailures)
	if failures == nil {
		t.Fatalf("%s metric not found", petalotel.MetricFailures)
	}
	if got := sumByAttr(t, failures, "kind", "division_by_zero"); got != 1 {
		t.Errorf("division_by_zero failures = %d, want 1", got)
	}

	dur := findMetric(rm, petalotel.MetricEvalDuration)
	if dur == nil {
		t.Fatalf("%s metric not found", petalotel.MetricEvalDuration)
	}
	hist, ok := dur.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64] data, got %T", dur.Data)
	}
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	if count != 3 {
		t.Errorf("histogram count = %d, want 3", count)
	}
}

func TestMetricsHandler_IgnoresIrrelevantEvents(t *testing.T) {
	reader, mp := newTestMeter()
	h, err := petalotel.NewMetricsHandler(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetricsHandler: %v", err)
	}

	h.Handle(runtime.Event{Kind: runtime.EventSessionStarted})
	h.Handle(runtime.Event{Kind: runtime.EventEvalStarted})
	h.Handle(runtime.Event{Kind: runtime.EventSessionFinished})

	rm := collectMetrics(t, reader)
	if m := findMetric(rm, petalotel.MetricEvaluations); m != nil {
		if sum, ok := m.Data.(metricdata.Sum[int64]); ok && len(sum.DataPoints) > 0 {
			t.Errorf("expected no evaluation data points, got %d", len(sum.DataPoints))
		}
	}
}
