package lifecycle

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry bundles the tracer and counters internal/runner instruments
// itself with (internal/executor is not instrumented). No exporter is wired
// here — otel.Tracer/otel.Meter resolve against the global no-op
// provider until main installs a real one, so a build with no collector
// configured pays only the (negligible) interface-call overhead.
type Telemetry struct {
	Tracer trace.Tracer

	TicksEvaluated metric.Int64Counter
	SignalsEmitted metric.Int64Counter
	SignalsDropped metric.Int64Counter
}

// NewTelemetry builds the tracer and counter instruments under
// serviceName, which namespaces the emitted spans and metric names.
func NewTelemetry(serviceName string) (*Telemetry, error) {
	meter := otel.Meter(serviceName)

	ticks, err := meter.Int64Counter(
		serviceName+".runner.ticks_evaluated",
		metric.WithDescription("coin ticks the runner evaluated"),
	)
	if err != nil {
		return nil, err
	}
	emitted, err := meter.Int64Counter(
		serviceName+".runner.signals_emitted",
		metric.WithDescription("detector signals pushed onto the runner's signal channel"),
	)
	if err != nil {
		return nil, err
	}
	dropped, err := meter.Int64Counter(
		serviceName+".runner.signals_dropped",
		metric.WithDescription("detector signals dropped because the signal channel was full"),
	)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Tracer:         otel.Tracer(serviceName),
		TicksEvaluated: ticks,
		SignalsEmitted: emitted,
		SignalsDropped: dropped,
	}, nil
}
