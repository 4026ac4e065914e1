// Package pipeline connects a Source to a Sink through a Channel and runs
// both stages concurrently until the stream ends or a stage fails.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/drgolem/audiotranscode/internal/observe"
	"github.com/drgolem/audiotranscode/pkg/types"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadyRun is returned when Run is called more than once.
var ErrAlreadyRun = errors.New("pipeline: already run")

// Pipeline runs one transcode: a Source decoding into a Channel and a Sink
// encoding from it. A Pipeline runs at most once.
// Implements types.TranscodeMonitor interface.
type Pipeline struct {
	source   types.Source
	sink     types.Sink
	capacity int
	metrics  *observe.Metrics
	logger   *slog.Logger
	runID    string

	mu       sync.Mutex
	state    State
	err      error
	ch       *Channel
	started  time.Time
	finished time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCapacity bounds the channel between the stages; see NewChannel.
func WithCapacity(n int) Option {
	return func(p *Pipeline) { p.capacity = n }
}

// WithMetrics records run metrics into m.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates an idle pipeline from source to sink.
func New(source types.Source, sink types.Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		source: source,
		sink:   sink,
		runID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("run_id", p.runID)
	return p
}

// RunID returns the identifier attached to this pipeline's logs and status.
func (p *Pipeline) RunID() string {
	return p.runID
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the error the run failed with, or nil.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Run decodes the source into the sink and blocks until both stages have
// returned. It returns nil when the sink has written the whole stream, or
// the first root-cause failure otherwise. A failure in either stage, or
// cancellation of ctx, aborts the channel so the other stage unblocks with
// types.ErrChannelBroken; that secondary error is never reported in place of
// the cause.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		return ErrAlreadyRun
	}
	ch := NewChannel(p.capacity)
	p.ch = ch
	p.state = StateRunning
	p.started = time.Now()
	p.mu.Unlock()

	p.logger.Info("Transcode started", "capacity", p.capacity)

	var (
		causeMu sync.Mutex
		cause   error
	)
	fail := func(err error) {
		causeMu.Lock()
		if cause == nil {
			cause = err
		}
		causeMu.Unlock()
		ch.Abort(err)
	}

	stop := context.AfterFunc(ctx, func() {
		fail(context.Cause(ctx))
	})
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := p.source.Decode(gctx, ch)
		if err == nil && !ch.Ended() {
			err = fmt.Errorf("%w: source returned without end of stream", types.ErrChannelBroken)
		}
		if err != nil {
			err = fmt.Errorf("source: %w", err)
			fail(err)
			return err
		}
		p.logger.Debug("Source finished")
		return nil
	})

	g.Go(func() error {
		err := p.sink.Encode(gctx, ch)
		if err == nil && !ch.Drained() {
			err = fmt.Errorf("%w: sink returned before end of stream", types.ErrChannelBroken)
		}
		if err != nil {
			err = fmt.Errorf("sink: %w", err)
			fail(err)
			return err
		}
		p.logger.Debug("Sink finished")
		return nil
	})

	// Both stages succeeding means the sink consumed the terminal frame; a
	// cancellation racing with that is not a failure.
	var result error
	if werr := g.Wait(); werr != nil {
		causeMu.Lock()
		result = cause
		causeMu.Unlock()
		if result == nil {
			result = werr
		}
	}

	p.finish(ctx, result)
	return result
}

func (p *Pipeline) finish(ctx context.Context, err error) {
	p.mu.Lock()
	p.finished = time.Now()
	p.err = err
	if err != nil {
		p.state = StateFailed
	} else {
		p.state = StateCompleted
	}
	state := p.state
	elapsed := p.finished.Sub(p.started)
	stats := p.ch.Stats()
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.RecordRun(context.WithoutCancel(ctx), state.String(),
			stats.FramesReceived, stats.SamplesReceived, elapsed)
	}

	if err != nil {
		p.logger.Error("Transcode failed",
			"error", err,
			"frames", stats.FramesReceived,
			"elapsed", elapsed)
		return
	}
	p.logger.Info("Transcode completed",
		"format", stats.Format.String(),
		"frames", stats.FramesReceived,
		"samples", stats.SamplesReceived,
		"elapsed", elapsed)
}

// GetTranscodeStatus returns a snapshot of the run's progress.
func (p *Pipeline) GetTranscodeStatus() types.TranscodeStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := types.TranscodeStatus{
		RunID: p.runID,
		State: p.state.String(),
	}
	if p.ch == nil {
		return status
	}

	stats := p.ch.Stats()
	status.Format = stats.Format
	status.FramesSent = stats.FramesSent
	status.FramesReceived = stats.FramesReceived
	status.SamplesSent = stats.SamplesSent
	status.SamplesReceived = stats.SamplesReceived

	if p.state.Done() {
		status.ElapsedTime = p.finished.Sub(p.started)
	} else {
		status.ElapsedTime = time.Since(p.started)
	}
	return status
}
