package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/petal-labs/petalcalc/runtime"
)

// Metric instrument names.
const (
	MetricEvaluations  = "petalcalc.evaluations"
	MetricFailures     = "petalcalc.failures"
	MetricEvalDuration = "petalcalc.eval.duration"
)

// MetricsHandler translates calculator events into OpenTelemetry metrics.
// It records counters for evaluations and failures and a duration histogram.
type MetricsHandler struct {
	evaluations  metric.Int64Counter
	failures     metric.Int64Counter
	evalDuration metric.Float64Histogram
}

// NewMetricsHandler creates a MetricsHandler that uses the given meter to create
// instruments for recording calculator metrics.
func NewMetricsHandler(meter metric.Meter) (*MetricsHandler, error) {
	evaluations, err := meter.Int64Counter(MetricEvaluations,
		metric.WithDescription("Number of completed evaluations"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(MetricFailures,
		metric.WithDescription("Number of failed evaluations"),
	)
	if err != nil {
		return nil, err
	}

	evalDur, err := meter.Float64Histogram(MetricEvalDuration,
		metric.WithDescription("Duration of parse plus evaluation in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsHandler{
		evaluations:  evaluations,
		failures:     failures,
		evalDuration: evalDur,
	}, nil
}

// Handle processes an event and records the appropriate metrics.
// It implements runtime.EventHandler semantics.
func (h *MetricsHandler) Handle(e runtime.Event) {
	switch e.Kind {
	case runtime.EventEvalFinished:
		h.handleEvalFinished(e)
	case runtime.EventEvalFailed:
		h.handleEvalFailed(e)
	}
}

func (h *MetricsHandler) handleEvalFinished(e runtime.Event) {
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("outcome", "ok"))
	h.evaluations.Add(ctx, 1, attrs)
	h.evalDuration.Record(ctx, e.Elapsed.Seconds(), attrs)
}

func (h *MetricsHandler) handleEvalFailed(e runtime.Event) {
	ctx := context.Background()
	outcome := metric.WithAttributes(attribute.String("outcome", "error"))
	h.evaluations.Add(ctx, 1, outcome)
	h.evalDuration.Record(ctx, e.Elapsed.Seconds(), outcome)
	h.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", e.PayloadString(runtime.PayloadStage)),
		attribute.String("kind", e.PayloadString(runtime.PayloadErrorKind)),
	))
}
