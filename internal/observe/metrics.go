// Package observe records voxremote metrics through the OpenTelemetry
// Metrics API. Nothing is exported off-process: the CLI installs the global
// provider only when metrics are enabled, and tests read instruments back
// with a ManualReader.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxremote metrics.
const meterName = "github.com/emmett/voxremote"

// Metrics holds the instruments. The zero value of *Metrics (nil) is valid
// and records nothing.
type Metrics struct {
	// Outcomes counts classified utterances. Attribute: kind.
	Outcomes metric.Int64Counter

	// Commands counts dispatched tokens. Attributes: action, known.
	Commands metric.Int64Counter

	// Activations counts Activate attempts. Attribute: result.
	Activations metric.Int64Counter

	// ActivationDuration tracks how long opening a session takes.
	ActivationDuration metric.Float64Histogram

	// ActiveSessions is 1 while listening.
	ActiveSessions metric.Int64UpDownCounter
}

var activationBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Outcomes, err = m.Int64Counter("voxremote.recognition.outcomes",
		metric.WithDescription("Classified utterances by kind."),
	); err != nil {
		return nil, err
	}
	if met.Commands, err = m.Int64Counter("voxremote.dispatch.commands",
		metric.WithDescription("Dispatched action tokens by action and whether a sink operation exists."),
	); err != nil {
		return nil, err
	}
	if met.Activations, err = m.Int64Counter("voxremote.session.activations",
		metric.WithDescription("Session activation attempts by result."),
	); err != nil {
		return nil, err
	}
	if met.ActivationDuration, err = m.Float64Histogram("voxremote.session.activation.duration",
		metric.WithDescription("Time to open sensor, stream and recognizer."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(activationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("voxremote.session.active",
		metric.WithDescription("Number of live listening sessions."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns metrics on otel.GetMeterProvider(), created once.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

func (m *Metrics) RecordOutcome(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.Outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) RecordCommand(ctx context.Context, action string, known bool) {
	if m == nil {
		return
	}
	m.Commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.Bool("known", known),
	))
}

// RecordActivation counts an activation attempt and its latency. A
// successful one also raises the active-session gauge.
func (m *Metrics) RecordActivation(ctx context.Context, result string, seconds float64, ok bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("result", result))
	m.Activations.Add(ctx, 1, attrs)
	m.ActivationDuration.Record(ctx, seconds, attrs)
	if ok {
		m.ActiveSessions.Add(ctx, 1)
	}
}

// RecordDeactivation lowers the active-session gauge.
func (m *Metrics) RecordDeactivation(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, -1)
}
