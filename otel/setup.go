package otel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/petal-labs/petalcalc/runtime"
)

const instrumentationName = "github.com/petal-labs/petalcalc"

// Config selects which telemetry outputs are active.
type Config struct {
	// ServiceName is reported as the service.name resource attribute.
	ServiceName string

	// OTLPEndpoint enables span export over OTLP/HTTP. Accepts "host:port"
	// or a full URL. Empty disables export.
	OTLPEndpoint string

	// Insecure disables TLS for the OTLP exporter.
	Insecure bool
}

// Telemetry bundles the SDK providers and the event handlers fed by them.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracing        *TracingHandler
	Metrics        *MetricsHandler

	reader *sdkmetric.ManualReader
}

// Setup builds tracer and meter providers. Metrics are collected in-process
// by a manual reader and read back through Summary.
func Setup(ctx context.Context, cfg Config) (*Telemetry, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "petalcalc"
	}
	res := resource.NewSchemaless(attribute.String("service.name", name))

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
		var opts []otlptracehttp.Option
		if strings.Contains(endpoint, "://") {
			opts = append(opts, otlptracehttp.WithEndpointURL(endpoint))
		} else {
			opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating otlp trace exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)

	metrics, err := NewMetricsHandler(mp.Meter(instrumentationName))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("creating metric instruments: %w", err), tp.Shutdown(ctx), mp.Shutdown(ctx))
	}

	return &Telemetry{
		TracerProvider: tp,
		MeterProvider:  mp,
		Tracing:        NewTracingHandler(tp.Tracer(instrumentationName)),
		Metrics:        metrics,
		reader:         reader,
	}, nil
}

// Handler returns an event handler feeding both tracing and metrics.
func (t *Telemetry) Handler() runtime.EventHandler {
	return runtime.MultiEventHandler(t.Tracing.Handle, t.Metrics.Handle)
}

// Decorator returns an emitter decorator that stamps trace IDs on events.
func (t *Telemetry) Decorator() runtime.EventEmitterDecorator {
	return Decorator(t.Tracing)
}

// Summary aggregates the counters recorded so far.
type Summary struct {
	Evaluations int64
	Failures    int64
}

// Summary collects the in-process metrics and totals the counters.
func (t *Telemetry) Summary(ctx context.Context) (Summary, error) {
	var rm metricdata.ResourceMetrics
	if err := t.reader.Collect(ctx, &rm); err != nil {
		return Summary{}, fmt.Errorf("collecting metrics: %w", err)
	}
	var s Summary
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			switch m.Name {
			case MetricEvaluations:
				s.Evaluations = total
			case MetricFailures:
				s.Failures = total
			}
		}
	}
	return s, nil
}

// Shutdown flushes and stops both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(t.TracerProvider.Shutdown(ctx), t.MeterProvider.Shutdown(ctx))
}
