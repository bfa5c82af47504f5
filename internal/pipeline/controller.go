// Package pipeline owns one capture session: microphone acquisition, the
// filter and gate chain, the Live transcription stream and the local
// recording.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rbright/lectern/internal/audio"
	"github.com/rbright/lectern/internal/coach"
	"github.com/rbright/lectern/internal/dsp"
	"github.com/rbright/lectern/internal/failure"
	"github.com/rbright/lectern/internal/fsm"
	"github.com/rbright/lectern/internal/gate"
	"github.com/rbright/lectern/internal/gemini"
	"github.com/rbright/lectern/internal/observe"
	"github.com/rbright/lectern/internal/transcript"
)

const (
	defaultSendQueue     = 16
	defaultMeterInterval = 200 * time.Millisecond
)

// Source is a running microphone capture.
type Source interface {
	Blocks() <-chan audio.Block
	SampleRate() int
	Device() audio.Device
	Stop() error
}

// LiveStream is the upstream transcription session.
type LiveStream interface {
	SendRealtimeInput(dsp.Unit) error
	Close() error
}

// Deps are the external collaborators. Zero fields use the real
// implementations.
type Deps struct {
	SelectDevice func(ctx context.Context, input string, fallback string) (audio.Selection, error)
	StartCapture func(ctx context.Context, device audio.Device, cfg audio.CaptureConfig) (Source, error)
	DialLive     func(ctx context.Context, cfg gemini.LiveConfig, handlers gemini.LiveHandlers) (LiveStream, error)
	Now          func() time.Time
	Random       func() float64
}

func (d Deps) withDefaults() Deps {
	if d.SelectDevice == nil {
		d.SelectDevice = audio.SelectDevice
	}
	if d.StartCapture == nil {
		d.StartCapture = func(ctx context.Context, device audio.Device, cfg audio.CaptureConfig) (Source, error) {
			return audio.StartCapture(ctx, device, cfg)
		}
	}
	if d.DialLive == nil {
		d.DialLive = func(ctx context.Context, cfg gemini.LiveConfig, handlers gemini.LiveHandlers) (LiveStream, error) {
			return gemini.DialLive(ctx, cfg, handlers)
		}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Config is the capture chain configuration.
type Config struct {
	Input    string
	Fallback string

	Capture     audio.CaptureConfig
	HighPassHz  float64
	Compressor  dsp.CompressorConfig
	Gate        gate.Config
	Accumulator gate.AccumulatorConfig
	Debounce    time.Duration
	Live        gemini.LiveConfig

	// RecordingDir receives the local WAV recording.
	RecordingDir  string
	SendQueue     int
	MeterInterval time.Duration
}

// Result summarizes one finished capture.
type Result struct {
	Device        string
	StartedAt     time.Time
	Duration      time.Duration
	Transcript    string
	Segments      []transcript.Segment
	Words         int
	WPM           int
	RecordingPath string
	Recording     audio.WAVInfo
	ChunksSent    int64
	ChunksDropped int64
}

// Snapshot is the live view served to status callers.
type Snapshot struct {
	State    fsm.State            `json:"state"`
	Device   string               `json:"device,omitempty"`
	Level    float64              `json:"level"`
	WPM      int                  `json:"wpm"`
	Elapsed  time.Duration        `json:"elapsed"`
	Segments []transcript.Segment `json:"segments,omitempty"`
}

// Controller drives the capture FSM idle -> acquiring -> active -> stopping -> idle.
type Controller struct {
	cfg     Config
	deps    Deps
	logger  *slog.Logger
	metrics *observe.Metrics
	hub     *observe.Hub

	interrupted chan error

	mu        sync.Mutex
	state     fsm.State
	startedAt time.Time
	selection audio.Selection
	source    Source
	live      LiveStream
	recording *audio.Recording
	segmenter *transcript.Segmenter
	gate      *gate.Gate
	sendCh    chan queuedUnit
	loopDone  chan struct{}
	sendDone  chan struct{}
	meterStop chan struct{}
	meterDone chan struct{}
	stopped   chan struct{}
	last      Result
	lastErr   error

	sent    int64
	dropped int64
}

type queuedUnit struct {
	unit dsp.Unit
	kind string
}

// Option customizes a Controller.
type Option func(*Controller)

// WithMetrics records pipeline activity.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithHub publishes level and segment events.
func WithHub(h *observe.Hub) Option {
	return func(c *Controller) { c.hub = h }
}

// NewController builds an idle controller.
func NewController(cfg Config, deps Deps, logger *slog.Logger, opts ...Option) *Controller {
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = defaultSendQueue
	}
	if cfg.MeterInterval <= 0 {
		cfg.MeterInterval = defaultMeterInterval
	}
	c := &Controller{
		cfg:         cfg,
		deps:        deps.withDefaults(),
		logger:      logger,
		state:       fsm.StateIdle,
		interrupted: make(chan error, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the capture FSM state.
func (c *Controller) State() fsm.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Interrupted delivers a StreamInterrupted error after the controller has
// stopped itself because the Live stream failed.
func (c *Controller) Interrupted() <-chan error {
	return c.interrupted
}

func (c *Controller) transitionLocked(event fsm.Event) error {
	next, err := fsm.Capture.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Start acquires the microphone, opens the recording and the Live stream,
// and begins processing blocks. Device failures are classified as
// DeviceAccessDenied or DeviceUnavailable; Live connection failures as
// StreamInterrupted.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if err := c.transitionLocked(fsm.EventStart); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	if err := c.acquire(ctx); err != nil {
		c.mu.Lock()
		_ = c.transitionLocked(fsm.EventAbort)
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *Controller) acquire(ctx context.Context) error {
	selection, err := c.deps.SelectDevice(ctx, c.cfg.Input, c.cfg.Fallback)
	if err != nil {
		return audio.Classify("select input", err)
	}
	if selection.Warning != "" {
		c.logWarn(selection.Warning)
	}

	source, err := c.deps.StartCapture(ctx, selection.Device, c.cfg.Capture)
	if err != nil {
		return audio.Classify("start capture", err)
	}
	rate := source.SampleRate()

	recording, err := audio.CreateRecording(c.recordingPath(), rate)
	if err != nil {
		_ = source.Stop()
		return fmt.Errorf("open local recording: %w", err)
	}

	segmenter := transcript.NewSegmenter(c.cfg.Debounce, transcript.WithOnUpdate(func(segments []transcript.Segment) {
		c.hub.Publish(observe.EventSegments, segments)
	}))

	live, err := c.deps.DialLive(ctx, c.cfg.Live, gemini.LiveHandlers{
		OnTranscript:  segmenter.Append,
		OnStreamError: c.handleStreamError,
	})
	if err != nil {
		_ = source.Stop()
		closeErr := recording.Close()
		_ = os.Remove(recording.Path())
		return errors.Join(failure.New(failure.StreamInterrupted, "connect live stream", err), closeErr)
	}

	accCfg := c.cfg.Accumulator
	if accCfg.BlockSize <= 0 {
		accCfg.BlockSize = c.cfg.Capture.BlockSize
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.selection = selection
	c.source = source
	c.live = live
	c.recording = recording
	c.segmenter = segmenter
	c.gate = gate.New(c.cfg.Gate, c.deps.Now)
	c.sendCh = make(chan queuedUnit, c.cfg.SendQueue)
	c.loopDone = make(chan struct{})
	c.sendDone = make(chan struct{})
	c.meterStop = make(chan struct{})
	c.meterDone = make(chan struct{})
	c.startedAt = c.deps.Now()
	c.sent, c.dropped = 0, 0
	c.drainInterrupted()

	chain := &chain{
		highPass:    dsp.NewHighPass(c.cfg.HighPassHz, rate),
		compressor:  dsp.NewCompressor(c.cfg.Compressor, rate),
		gate:        c.gate,
		accumulator: gate.NewAccumulator(accCfg, c.deps.Random),
		recording:   recording,
		rate:        rate,
	}

	go c.processLoop(source.Blocks(), chain, c.sendCh, c.loopDone)
	go c.sendLoop(live, c.sendCh, c.sendDone)
	go c.meterLoop(c.meterStop, c.meterDone)

	if err := c.transitionLocked(fsm.EventAcquired); err != nil {
		return err
	}
	c.hub.Publish(observe.EventState, fsm.StateActive)
	if c.logger != nil {
		c.logger.Info("capture started",
			"device", describeDevice(selection.Device),
			"sample_rate", rate,
			"recording", recording.Path(),
		)
	}
	return nil
}

// Stop tears the session down and returns its result. Timers are cancelled
// first; every release step is attempted and failures are joined. Calling
// Stop while idle returns the previous result. Calling it while another
// Stop is tearing down waits for that teardown and returns its outcome.
func (c *Controller) Stop(ctx context.Context) (Result, error) {
	return c.stop(ctx, nil)
}

// stop tears the session down. A non-nil cause marks the teardown as an
// interruption: the outcome error is StreamInterrupted wrapping cause.
func (c *Controller) stop(ctx context.Context, cause error) (Result, error) {
	c.mu.Lock()
	switch c.state {
	case fsm.StateIdle:
		last := c.last
		c.mu.Unlock()
		return last, nil
	case fsm.StateStopping:
		stopped := c.stopped
		c.mu.Unlock()
		return c.waitStopped(ctx, stopped)
	}
	if err := c.transitionLocked(fsm.EventStop); err != nil {
		c.mu.Unlock()
		return Result{}, err
	}
	stopped := make(chan struct{})
	c.stopped = stopped
	source, live, recording, segmenter := c.source, c.live, c.recording, c.segmenter
	loopDone, sendDone, meterStop, meterDone := c.loopDone, c.sendDone, c.meterStop, c.meterDone
	selection, startedAt := c.selection, c.startedAt
	c.mu.Unlock()
	defer close(stopped)

	close(meterStop)
	<-meterDone
	segmenter.Stop()
	segments := segmenter.Flush()

	var errs []error
	if err := source.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("release device: %w", err))
	}
	<-loopDone
	<-sendDone
	if err := live.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close live stream: %w", err))
	}
	if err := recording.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close recording: %w", err))
	}

	elapsed := c.deps.Now().Sub(startedAt)
	final := transcript.FinalTranscript(segments)
	words := transcript.WordCount(final)

	outcome := errors.Join(errs...)
	if cause != nil {
		outcome = failure.New(failure.StreamInterrupted, "live stream", errors.Join(cause, outcome))
	}

	c.mu.Lock()
	result := Result{
		Device:        describeDevice(selection.Device),
		StartedAt:     startedAt,
		Duration:      elapsed,
		Transcript:    final,
		Segments:      segments,
		Words:         words,
		WPM:           coach.WPM(words, elapsed),
		RecordingPath: recording.Path(),
		Recording:     recording.Info(),
		ChunksSent:    c.sent,
		ChunksDropped: c.dropped,
	}
	c.last, c.lastErr = result, outcome
	c.source, c.live, c.recording, c.gate = nil, nil, nil, nil
	_ = c.transitionLocked(fsm.EventStopped)
	c.mu.Unlock()

	c.hub.Publish(observe.EventState, fsm.StateIdle)
	return result, outcome
}

// waitStopped blocks until the in-flight teardown finishes and returns its
// result and outcome.
func (c *Controller) waitStopped(ctx context.Context, stopped <-chan struct{}) (Result, error) {
	select {
	case <-stopped:
	case <-ctx.Done():
		return Result{}, fmt.Errorf("wait for capture teardown: %w", ctx.Err())
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.lastErr
}

// WPM returns words per minute for the current capture.
func (c *Controller) WPM() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wpmLocked()
}

func (c *Controller) wpmLocked() int {
	if c.state != fsm.StateActive || c.segmenter == nil {
		return 0
	}
	words := transcript.WordCount(c.segmenter.Final())
	return coach.WPM(words, c.deps.Now().Sub(c.startedAt))
}

// Snapshot returns the current live view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{State: c.state}
	if c.state != fsm.StateActive {
		return snap
	}
	snap.Device = describeDevice(c.selection.Device)
	snap.WPM = c.wpmLocked()
	snap.Elapsed = c.deps.Now().Sub(c.startedAt)
	if c.gate != nil {
		snap.Level = c.gate.Level()
	}
	if c.segmenter != nil {
		snap.Segments = c.segmenter.Segments()
	}
	return snap
}

// Correct records a user correction on a live segment.
func (c *Controller) Correct(id string, text string) error {
	c.mu.Lock()
	segmenter := c.segmenter
	c.mu.Unlock()
	if segmenter == nil {
		return errors.New("no active capture")
	}
	return segmenter.Correct(id, text)
}

// handleStreamError runs on the Live receive goroutine after it exits.
func (c *Controller) handleStreamError(err error) {
	if c.State() != fsm.StateActive {
		return
	}
	c.metrics.RecordStreamError(context.Background())
	c.hub.Publish(observe.EventError, err.Error())
	if c.logger != nil {
		c.logger.Warn("live stream failed; stopping capture", "error", err.Error())
	}

	_, interrupted := c.stop(context.Background(), err)
	if !failure.IsKind(interrupted, failure.StreamInterrupted) {
		// A user Stop won the race and owns the outcome.
		return
	}
	select {
	case c.interrupted <- interrupted:
	default:
	}
}

func (c *Controller) drainInterrupted() {
	select {
	case <-c.interrupted:
	default:
	}
}

func (c *Controller) processLoop(blocks <-chan audio.Block, ch *chain, sendCh chan<- queuedUnit, done chan<- struct{}) {
	defer close(done)
	defer close(sendCh)

	ctx := context.Background()
	for block := range blocks {
		flush, ok, err := ch.process(block.Samples)
		if err != nil {
			c.logWarn(fmt.Sprintf("block %d: %v", block.Seq, err))
		}
		c.metrics.RecordBlock(ctx, c.gateLevel())
		if !ok {
			continue
		}

		unit := dsp.EncodePCM16(dsp.Resample(flush.Samples, ch.rate, dsp.TargetRate))
		select {
		case sendCh <- queuedUnit{unit: unit, kind: flushKind(flush)}:
		default:
			c.countDrop(ctx, "queue_full")
		}
	}
}

func (c *Controller) sendLoop(live LiveStream, sendCh <-chan queuedUnit, done chan<- struct{}) {
	defer close(done)

	ctx := context.Background()
	for q := range sendCh {
		if err := live.SendRealtimeInput(q.unit); err != nil {
			c.countDrop(ctx, "send_error")
			continue
		}
		c.mu.Lock()
		c.sent++
		c.mu.Unlock()
		c.metrics.RecordChunkSent(ctx, q.kind)
	}
}

func (c *Controller) meterLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	if c.hub == nil {
		<-stop
		return
	}

	ticker := time.NewTicker(c.cfg.MeterInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			snap := c.Snapshot()
			c.hub.Publish(observe.EventLevel, map[string]any{"level": snap.Level, "wpm": snap.WPM})
		}
	}
}

func (c *Controller) countDrop(ctx context.Context, reason string) {
	c.mu.Lock()
	c.dropped++
	c.mu.Unlock()
	c.metrics.RecordChunkDropped(ctx, reason)
}

func (c *Controller) gateLevel() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gate == nil {
		return 0
	}
	return c.gate.Level()
}

func flushKind(f gate.Flush) string {
	switch {
	case f.Heartbeat:
		return "heartbeat"
	case f.Strong:
		return "strong"
	default:
		return "speech"
	}
}

func (c *Controller) recordingPath() string {
	dir := c.cfg.RecordingDir
	if strings.TrimSpace(dir) == "" {
		stateDir, err := resolveStateDir()
		if err != nil {
			stateDir = os.TempDir()
		}
		dir = filepath.Join(stateDir, "lectern", "recordings")
	}
	name := fmt.Sprintf("rehearsal-%s.wav", c.deps.Now().Format("20060102-150405.000"))
	return filepath.Join(dir, name)
}

// describeDevice formats device metadata for logs and results.
func describeDevice(device audio.Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}

// resolveStateDir returns XDG_STATE_HOME or its ~/.local/state fallback.
func resolveStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}

func (c *Controller) logWarn(message string) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(message)
}
