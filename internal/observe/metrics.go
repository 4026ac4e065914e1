// Package observe provides OpenTelemetry metric instruments for transcode
// runs. [InitProvider] installs an exporting SDK provider for the CLI; tests
// should use [NewMetrics] with a custom [metric.MeterProvider].
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all transcoder metrics.
const meterName = "github.com/drgolem/audiotranscode"

// Metrics holds the metric instruments recorded by the pipeline.
type Metrics struct {
	// Frames counts frames delivered to sinks.
	Frames metric.Int64Counter

	// Samples counts interleaved samples delivered to sinks.
	Samples metric.Int64Counter

	// Runs counts finished runs. Use with attribute:
	//   attribute.String("status", "completed"|"failed")
	Runs metric.Int64Counter

	// Duration tracks wall-clock time of a run.
	Duration metric.Float64Histogram
}

// durationBuckets (seconds) span short clips through long album transcodes.
var durationBuckets = []float64{
	0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300,
}

// NewMetrics creates a [Metrics] using the given [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Frames, err = m.Int64Counter("transcode.frames",
		metric.WithDescription("Frames delivered from source to sink."),
	); err != nil {
		return nil, err
	}
	if met.Samples, err = m.Int64Counter("transcode.samples",
		metric.WithDescription("Interleaved samples delivered from source to sink."),
	); err != nil {
		return nil, err
	}
	if met.Runs, err = m.Int64Counter("transcode.runs",
		metric.WithDescription("Finished transcode runs by status."),
	); err != nil {
		return nil, err
	}
	if met.Duration, err = m.Float64Histogram("transcode.duration",
		metric.WithDescription("Wall-clock duration of a transcode run."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordRun records the outcome of one finished run.
func (m *Metrics) RecordRun(ctx context.Context, status string, frames, samples uint64, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.Frames.Add(ctx, int64(frames), attrs)
	m.Samples.Add(ctx, int64(samples), attrs)
	m.Runs.Add(ctx, 1, attrs)
	m.Duration.Record(ctx, elapsed.Seconds(), attrs)
}
