// Package observe records capture and analysis metrics through the
// OpenTelemetry metrics API and serves the optional status endpoints.
//
// Metrics are exported to Prometheus through [InitProvider]; tests build a
// [Metrics] from their own [metric.MeterProvider]. A nil *Metrics is valid and
// records nothing.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/rbright/lectern"

// Metrics holds the application's metric instruments.
type Metrics struct {
	// BlocksProcessed counts capture blocks run through the gate.
	BlocksProcessed metric.Int64Counter

	// InputLevel records the normalized 0..100 input level per block.
	InputLevel metric.Float64Histogram

	// ChunksSent counts units handed to the Live stream. Attribute "kind":
	// speech, strong or heartbeat.
	ChunksSent metric.Int64Counter

	// ChunksDropped counts units that never reached the stream. Attribute
	// "reason": queue_full or send_error.
	ChunksDropped metric.Int64Counter

	// StreamErrors counts remote stream failures.
	StreamErrors metric.Int64Counter

	// AnalysisDuration tracks critique latency.
	AnalysisDuration metric.Float64Histogram

	// Sessions counts finished sessions by "result".
	Sessions metric.Int64Counter

	// ActiveSessions is 1 while a rehearsal is recording.
	ActiveSessions metric.Int64UpDownCounter
}

var levelBuckets = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

var analysisBuckets = []float64{1, 2.5, 5, 10, 20, 30, 60, 90, 120}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.BlocksProcessed, err = m.Int64Counter("lectern.audio.blocks",
		metric.WithDescription("Capture blocks evaluated by the noise gate."),
	); err != nil {
		return nil, err
	}
	if met.InputLevel, err = m.Float64Histogram("lectern.audio.level",
		metric.WithDescription("Normalized input level per capture block."),
		metric.WithUnit("%"),
		metric.WithExplicitBucketBoundaries(levelBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ChunksSent, err = m.Int64Counter("lectern.stream.chunks",
		metric.WithDescription("Audio units sent to the live stream by kind."),
	); err != nil {
		return nil, err
	}
	if met.ChunksDropped, err = m.Int64Counter("lectern.stream.dropped",
		metric.WithDescription("Audio units dropped before reaching the live stream by reason."),
	); err != nil {
		return nil, err
	}
	if met.StreamErrors, err = m.Int64Counter("lectern.stream.errors",
		metric.WithDescription("Live stream failures."),
	); err != nil {
		return nil, err
	}
	if met.AnalysisDuration, err = m.Float64Histogram("lectern.analysis.duration",
		metric.WithDescription("Latency of rehearsal critiques."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(analysisBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Sessions, err = m.Int64Counter("lectern.sessions",
		metric.WithDescription("Finished sessions by result."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("lectern.active_sessions",
		metric.WithDescription("Sessions currently recording."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordBlock records one gated block and its level.
func (m *Metrics) RecordBlock(ctx context.Context, level float64) {
	if m == nil {
		return
	}
	m.BlocksProcessed.Add(ctx, 1)
	m.InputLevel.Record(ctx, level)
}

// RecordChunkSent records a unit handed to the stream.
func (m *Metrics) RecordChunkSent(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.ChunksSent.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordChunkDropped records a unit that was not delivered.
func (m *Metrics) RecordChunkDropped(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.ChunksDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordStreamError records a remote stream failure.
func (m *Metrics) RecordStreamError(ctx context.Context) {
	if m == nil {
		return
	}
	m.StreamErrors.Add(ctx, 1)
}

// RecordAnalysis records critique latency with its outcome.
func (m *Metrics) RecordAnalysis(ctx context.Context, elapsed time.Duration, status string) {
	if m == nil {
		return
	}
	m.AnalysisDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("status", status)))
}

// SessionStarted increments the active session gauge.
func (m *Metrics) SessionStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, 1)
}

// SessionFinished decrements the active session gauge and counts the result.
func (m *Metrics) SessionFinished(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, -1)
	m.Sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
