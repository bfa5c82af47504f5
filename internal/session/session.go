// Package session coordinates the rehearsal lifecycle: capture, completion
// analysis, history and the IPC surface of the owning process.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rbright/lectern/internal/coach"
	"github.com/rbright/lectern/internal/failure"
	"github.com/rbright/lectern/internal/fsm"
	"github.com/rbright/lectern/internal/history"
	"github.com/rbright/lectern/internal/ipc"
	"github.com/rbright/lectern/internal/observe"
	"github.com/rbright/lectern/internal/pipeline"
	"github.com/rbright/lectern/internal/transcript"
)

type action int

const (
	actionStop action = iota + 1
	actionCancel
)

const stopTimeout = 5 * time.Second

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	State     fsm.State
	Cancelled bool
	Err       error

	Scenario coach.Scenario
	Style    coach.LeadershipStyle
	Capture  pipeline.Result
	Analysis *coach.SpeechAnalysis
	// HistoryID is empty when the session was not saved.
	HistoryID string
	// RecordingPath is set while the recording is still on disk.
	RecordingPath   string
	AnalysisLatency time.Duration

	StartedAt  time.Time
	FinishedAt time.Time

	captured bool
}

// Options tune a Controller.
type Options struct {
	Scenario      coach.Scenario
	Style         coach.LeadershipStyle
	KeepRecording bool
	Metrics       *observe.Metrics
	Hub           *observe.Hub
	Now           func() time.Time
}

// Controller orchestrates session state transitions and side effects.
type Controller struct {
	logger    *slog.Logger
	recorder  Recorder
	analyzer  Analyzer
	store     Store
	indicator Indicator
	opts      Options

	mu    sync.RWMutex
	state fsm.State

	actions chan action
}

// NewController constructs a session controller. A nil store skips history
// and a nil indicator is silent.
func NewController(
	logger *slog.Logger,
	recorder Recorder,
	analyzer Analyzer,
	store Store,
	indicator Indicator,
	opts Options,
) *Controller {
	if indicator == nil {
		indicator = noopIndicator{}
	}
	if opts.Scenario.Key == "" {
		opts.Scenario = coach.DefaultScenario
	}
	if opts.Style.Key == "" {
		opts.Style = coach.DefaultStyle
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Controller{
		logger:    logger,
		recorder:  recorder,
		analyzer:  analyzer,
		store:     store,
		indicator: indicator,
		opts:      opts,
		state:     fsm.StateIdle,
		actions:   make(chan action, 1),
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// transition applies one FSM event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Session.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Run executes one owner lifecycle from start to stop/cancel/failure completion.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{
		StartedAt: c.opts.Now(),
		Scenario:  c.opts.Scenario,
		Style:     c.opts.Style,
	}

	if err := c.transition(fsm.EventStart); err != nil {
		return c.finish(result, err)
	}

	c.indicator.ShowRecording(ctx)
	if err := c.recorder.Start(ctx); err != nil {
		c.indicator.ShowError(context.Background(), failure.Message(err))
		c.toErrorAndReset()
		return c.finish(result, err)
	}
	result.captured = true
	c.opts.Metrics.SessionStarted(context.Background())
	c.publishState()

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
		defer cancel()
		c.indicator.Hide(cleanupCtx)
	}()

	select {
	case <-ctx.Done():
		capture, stopErr := c.stopRecorder()
		result.Capture = capture
		c.discardRecording(capture.RecordingPath)
		c.indicator.CueCancel(context.Background())
		c.indicator.ShowError(context.Background(), "Cancelled")
		c.toErrorAndReset()
		return c.finish(result, errors.Join(ctx.Err(), stopErr))
	case err := <-c.recorder.Interrupted():
		capture, _ := c.stopRecorder()
		result.Capture = capture
		result.RecordingPath = existing(capture.RecordingPath)
		c.indicator.ShowError(context.Background(), failure.Message(err))
		c.toErrorAndReset()
		return c.finish(result, err)
	case a := <-c.actions:
		switch a {
		case actionCancel:
			capture, stopErr := c.stopRecorder()
			result.Capture = capture
			c.discardRecording(capture.RecordingPath)
			c.indicator.CueCancel(context.Background())
			_ = c.transition(fsm.EventCancel)
			result.Cancelled = true
			if stopErr != nil {
				c.logWarn("capture teardown after cancel", stopErr)
			}
			return c.finish(result, nil)
		case actionStop:
			return c.complete(ctx, result)
		default:
			c.toErrorAndReset()
			return c.finish(result, fmt.Errorf("unknown action %d", a))
		}
	}
}

// complete stops the capture, analyzes the recording and saves it to history.
func (c *Controller) complete(ctx context.Context, result Result) Result {
	if err := c.transition(fsm.EventStop); err != nil {
		c.toErrorAndReset()
		return c.finish(result, err)
	}
	c.indicator.ShowAnalyzing(ctx)
	c.publishState()

	capture, stopErr := c.stopRecorder()
	c.indicator.CueStop(context.Background())
	result.Capture = capture
	result.RecordingPath = existing(capture.RecordingPath)
	if stopErr != nil {
		if capture.RecordingPath == "" || failure.IsKind(stopErr, failure.StreamInterrupted) {
			c.indicator.ShowError(context.Background(), failure.Message(stopErr))
			c.toErrorAndReset()
			return c.finish(result, stopErr)
		}
		c.logWarn("capture teardown", stopErr)
	}

	started := c.opts.Now()
	analysis, err := c.analyze(ctx, capture)
	result.AnalysisLatency = c.opts.Now().Sub(started)
	if err != nil {
		if failure.IsKind(err, failure.EmptyCapture) {
			c.discardRecording(capture.RecordingPath)
			result.RecordingPath = existing(capture.RecordingPath)
		}
		c.indicator.ShowError(context.Background(), failure.Message(err))
		c.toErrorAndReset()
		return c.finish(result, err)
	}
	result.Analysis = &analysis

	if c.store != nil {
		record, saveErr := c.store.Save(history.Record{
			Scenario:        c.opts.Scenario.Label,
			LeadershipStyle: c.opts.Style.Label,
			Analysis:        analysis,
			WPM:             capture.WPM,
			Duration:        int(capture.Duration.Round(time.Second) / time.Second),
			Transcript:      capture.Transcript,
			RecordingPath:   c.keptPath(capture.RecordingPath),
		})
		if saveErr != nil {
			c.logWarn("save session history", saveErr)
		} else {
			result.HistoryID = record.ID
		}
	}

	if !c.opts.KeepRecording {
		c.discardRecording(capture.RecordingPath)
		result.RecordingPath = ""
	}
	c.indicator.CueComplete(context.Background())

	if err := c.transition(fsm.EventAnalyzed); err != nil {
		return c.finish(result, err)
	}
	return c.finish(result, nil)
}

// analyze submits a non-empty recording for critique.
func (c *Controller) analyze(ctx context.Context, capture pipeline.Result) (coach.SpeechAnalysis, error) {
	if capture.Recording.DataBytes <= 0 {
		return coach.SpeechAnalysis{}, failure.New(failure.EmptyCapture, "analyze", nil)
	}
	if c.analyzer == nil {
		return coach.SpeechAnalysis{}, failure.New(failure.AnalysisFailure, "analyze", errors.New("analyzer not configured"))
	}

	wav, err := os.ReadFile(capture.RecordingPath)
	if err != nil {
		return coach.SpeechAnalysis{}, failure.New(failure.AnalysisFailure, "read recording", err)
	}

	started := c.opts.Now()
	analysis, err := c.analyzer.Analyze(ctx, wav, c.opts.Scenario, c.opts.Style)
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.opts.Metrics.RecordAnalysis(context.Background(), c.opts.Now().Sub(started), status)
	return analysis, err
}

// Handle serves IPC commands for the active owner session.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return c.Status()
	case ipc.CommandToggle:
		return c.requestStop("toggle")
	case ipc.CommandStop:
		return c.requestStop("stop")
	case ipc.CommandCancel:
		return c.requestCancel()
	case ipc.CommandCorrect:
		return c.correct(req)
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// Status reports the session state and, while recording, the live meter,
// WPM and transcript.
func (c *Controller) Status() ipc.Response {
	state := c.State()
	resp := ipc.Response{OK: true, State: string(state), Message: "status"}
	if state != fsm.StateRecording {
		return resp
	}

	snap := c.recorder.Snapshot()
	resp.Device = snap.Device
	resp.Level = snap.Level
	resp.WPM = snap.WPM
	resp.ElapsedMS = snap.Elapsed.Milliseconds()
	resp.Transcript = transcript.FinalTranscript(snap.Segments)
	for _, segment := range snap.Segments {
		resp.Segments = append(resp.Segments, ipc.Segment{
			ID:         segment.ID,
			Text:       segment.Text,
			Correction: segment.Correction,
		})
	}
	return resp
}

// requestStop enqueues a stop action when state permits it.
func (c *Controller) requestStop(source string) ipc.Response {
	state := c.State()
	if state == fsm.StateAnalyzing {
		return ipc.Response{OK: false, State: string(state), Error: "already analyzing"}
	}
	if state != fsm.StateRecording {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot %s from state %s", source, state)}
	}

	select {
	case c.actions <- actionStop:
		return ipc.Response{OK: true, State: string(state), Message: "stop requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "stop already requested"}
	}
}

// requestCancel enqueues a cancel action when state permits it.
func (c *Controller) requestCancel() ipc.Response {
	state := c.State()
	if state == fsm.StateAnalyzing {
		return ipc.Response{OK: false, State: string(state), Error: "cannot cancel while analyzing"}
	}
	if state != fsm.StateRecording {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot cancel from state %s", state)}
	}

	select {
	case c.actions <- actionCancel:
		return ipc.Response{OK: true, State: string(state), Message: "cancel requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "cancel already requested"}
	}
}

func (c *Controller) correct(req ipc.Request) ipc.Response {
	state := c.State()
	if state != fsm.StateRecording {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot correct from state %s", state)}
	}
	if strings.TrimSpace(req.ID) == "" {
		return ipc.Response{OK: false, State: string(state), Error: "correct requires a segment id"}
	}
	if err := c.recorder.Correct(req.ID, req.Text); err != nil {
		return ipc.Response{OK: false, State: string(state), Error: err.Error()}
	}
	return ipc.Response{OK: true, State: string(state), Message: "correction recorded"}
}

func (c *Controller) stopRecorder() (pipeline.Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return c.recorder.Stop(ctx)
}

// toErrorAndReset transitions to error and back to idle best-effort.
func (c *Controller) toErrorAndReset() {
	_ = c.transition(fsm.EventFail)
	_ = c.transition(fsm.EventReset)
}

func (c *Controller) finish(result Result, err error) Result {
	result.State = c.State()
	result.Err = err
	result.FinishedAt = c.opts.Now()

	outcome := "completed"
	switch {
	case result.Cancelled:
		outcome = "cancelled"
	case err != nil:
		outcome = "failed"
	}
	if result.captured {
		c.opts.Metrics.SessionFinished(context.Background(), outcome)
	}
	c.publishState()
	return result
}

func (c *Controller) publishState() {
	c.opts.Hub.Publish(observe.EventState, c.State())
}

func (c *Controller) discardRecording(path string) {
	if path == "" || c.opts.KeepRecording {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.logWarn("remove recording", err)
	}
}

func (c *Controller) keptPath(path string) string {
	if c.opts.KeepRecording {
		return path
	}
	return ""
}

func (c *Controller) logWarn(message string, err error) {
	if c.logger == nil || err == nil {
		return
	}
	c.logger.Warn(message, "error", err.Error())
}

func existing(path string) string {
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
