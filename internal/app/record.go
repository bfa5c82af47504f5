package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/lectern/internal/audio"
	"github.com/rbright/lectern/internal/cli"
	"github.com/rbright/lectern/internal/coach"
	"github.com/rbright/lectern/internal/config"
	"github.com/rbright/lectern/internal/dsp"
	"github.com/rbright/lectern/internal/failure"
	"github.com/rbright/lectern/internal/gate"
	"github.com/rbright/lectern/internal/gemini"
	"github.com/rbright/lectern/internal/history"
	"github.com/rbright/lectern/internal/indicator"
	"github.com/rbright/lectern/internal/ipc"
	"github.com/rbright/lectern/internal/observe"
	"github.com/rbright/lectern/internal/pipeline"
	"github.com/rbright/lectern/internal/session"
	"github.com/rbright/lectern/internal/version"
)

// commandRecord forwards a toggle to a running owner, or becomes the owner
// and runs one rehearsal until stop, cancel, or interruption.
func (r Runner) commandRecord(ctx context.Context, cfg config.Config, parsed cli.Parsed, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandToggle})
	if handled {
		return r.printForwarded(resp, err)
	}

	scenario, style, err := resolveCoaching(cfg.Coach, parsed)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 2
	}
	if cfg.Gemini.APIKey == "" {
		fmt.Fprintf(r.Stderr, "error: %s is not set; run `lectern doctor`\n", cfg.Gemini.APIKeyEnv)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{ProbeTimeout: 180 * time.Millisecond, Retries: 8})
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			resp, _, forwardErr := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandToggle})
			return r.printForwarded(resp, forwardErr)
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	var (
		hub            *observe.Hub
		metrics        *observe.Metrics
		metricsHandler http.Handler
	)
	if cfg.Status.Enable {
		provider, err := observe.InitProvider(ctx, observe.ProviderConfig{
			ServiceName:    "lectern",
			ServiceVersion: version.Version,
		})
		if err != nil {
			logger.Warn("metrics disabled", "error", err.Error())
		} else {
			metrics = provider.Metrics
			defer func() { _ = provider.Shutdown(context.Background()) }()
			hub = observe.NewHub(logger)
			defer hub.Close()
			metricsHandler = provider.Handler
		}
	}

	recorder := pipeline.NewController(pipelineConfig(cfg), pipeline.Deps{}, logger,
		pipeline.WithMetrics(metrics),
		pipeline.WithHub(hub),
	)
	controller := session.NewController(
		logger,
		recorder,
		newAnalyzer(ctx, cfg.Gemini, logger),
		newHistoryStore(cfg.History),
		indicator.New(cfg.Indicator, logger),
		session.Options{
			Scenario:      scenario,
			Style:         style,
			KeepRecording: cfg.Debug.KeepRecording,
			Metrics:       metrics,
			Hub:           hub,
		},
	)

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	group, groupCtx := errgroup.WithContext(serverCtx)
	group.Go(func() error {
		return ipc.Serve(groupCtx, listener, controller)
	})
	if cfg.Status.Enable && hub != nil {
		server := observe.NewServer(cfg.Status.Addr, func() any { return controller.Status() }, metricsHandler, hub, logger)
		group.Go(func() error {
			if err := server.Run(groupCtx, nil); err != nil {
				logger.Warn("status server stopped", "error", err.Error())
			}
			return nil
		})
	}

	result := controller.Run(ctx)
	serverCancel()
	if serverErr := group.Wait(); serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logSessionResult(logger, result)
	return r.printSessionResult(result)
}

func (r Runner) printForwarded(resp ipc.Response, err error) int {
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) printSessionResult(result session.Result) int {
	if result.Cancelled {
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	}
	if result.Err != nil {
		fmt.Fprintf(r.Stderr, "error: %s\n", failure.Message(result.Err))
		if result.RecordingPath != "" {
			fmt.Fprintf(r.Stderr, "recording kept at %s; retry with `lectern analyze --file %s`\n", result.RecordingPath, result.RecordingPath)
		}
		return 1
	}
	if result.Analysis != nil {
		writeAnalysis(r.Stdout, *result.Analysis, result.Capture.WPM, result.Capture.Duration)
	}
	if result.HistoryID != "" {
		fmt.Fprintf(r.Stdout, "saved as %s\n", shortID(result.HistoryID))
	}
	if result.RecordingPath != "" {
		fmt.Fprintf(r.Stdout, "recording: %s\n", result.RecordingPath)
	}
	return 0
}

// resolveCoaching applies --scenario/--style over the configured defaults.
func resolveCoaching(cfg config.CoachConfig, parsed cli.Parsed) (coach.Scenario, coach.LeadershipStyle, error) {
	scenarioName := cfg.Scenario
	if strings.TrimSpace(parsed.Scenario) != "" {
		scenarioName = parsed.Scenario
	}
	styleName := cfg.LeadershipStyle
	if strings.TrimSpace(parsed.Style) != "" {
		styleName = parsed.Style
	}

	scenario, err := coach.LookupScenario(scenarioName)
	if err != nil {
		return coach.Scenario{}, coach.LeadershipStyle{}, fmt.Errorf("%w (see `lectern scenarios`)", err)
	}
	style, err := coach.LookupLeadershipStyle(styleName)
	if err != nil {
		return coach.Scenario{}, coach.LeadershipStyle{}, fmt.Errorf("%w (see `lectern scenarios`)", err)
	}
	return scenario, style, nil
}

// pipelineConfig maps file configuration onto the capture chain.
func pipelineConfig(cfg config.Config) pipeline.Config {
	return pipeline.Config{
		Input:    cfg.Audio.Input,
		Fallback: cfg.Audio.Fallback,
		Capture: audio.CaptureConfig{
			SampleRate: cfg.Audio.NativeRate,
			BlockSize:  cfg.Audio.BlockSize,
		},
		HighPassHz: cfg.Filter.HighPassHz,
		Compressor: dsp.CompressorConfig{
			ThresholdDb: cfg.Filter.Compressor.ThresholdDb,
			KneeDb:      cfg.Filter.Compressor.KneeDb,
			Ratio:       cfg.Filter.Compressor.Ratio,
			Attack:      cfg.Filter.Compressor.Attack,
			Release:     cfg.Filter.Compressor.Release,
		},
		Gate: gate.Config{
			Sensitivity:    cfg.Gate.Sensitivity,
			BaseFloorDb:    cfg.Gate.BaseFloorDb,
			ScaleDb:        cfg.Gate.ScaleDb,
			Hold:           time.Duration(cfg.Gate.HoldMS) * time.Millisecond,
			StrongMarginDb: cfg.Gate.StrongMarginDb,
		},
		Accumulator: gate.AccumulatorConfig{
			BlockSize:            cfg.Audio.BlockSize,
			FlushBlocks:          cfg.Chunk.FlushBlocks,
			HeartbeatProbability: cfg.Chunk.HeartbeatProbability,
		},
		Debounce: time.Duration(cfg.Transcript.DebounceMS) * time.Millisecond,
		Live: gemini.LiveConfig{
			APIKey:            cfg.Gemini.APIKey,
			Model:             cfg.Gemini.LiveModel,
			BaseURL:           cfg.Gemini.LiveURL,
			SystemInstruction: cfg.Gemini.SystemInstruction,
		},
	}
}

// newAnalyzer returns nil when the client cannot be built; the session then
// fails the analysis step and keeps the recording.
func newAnalyzer(ctx context.Context, cfg config.GeminiConfig, logger *slog.Logger) session.Analyzer {
	analyzer, err := gemini.NewAnalyzer(ctx, analyzerConfig(cfg))
	if err != nil {
		logger.Warn("analysis unavailable", "error", err.Error())
		return nil
	}
	return analyzer
}

func analyzerConfig(cfg config.GeminiConfig) gemini.AnalyzerConfig {
	return gemini.AnalyzerConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.AnalysisModel,
		BaseURL: cfg.APIBaseURL,
		Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
	}
}

// historyStore opens the database per call so `lectern history` can read
// while an owner session is recording.
type historyStore struct {
	dir   string
	limit int
}

func newHistoryStore(cfg config.HistoryConfig) historyStore {
	return historyStore{dir: historyDir(cfg), limit: cfg.Limit}
}

func (s historyStore) Save(record history.Record) (history.Record, error) {
	var saved history.Record
	err := s.with(func(store *history.Store) error {
		var err error
		saved, err = store.Save(record)
		return err
	})
	return saved, err
}

func (s historyStore) with(fn func(*history.Store) error) error {
	store, err := history.Open(s.dir, history.Options{Limit: s.limit})
	if err != nil {
		return err
	}
	return errors.Join(fn(store), store.Close())
}

func historyDir(cfg config.HistoryConfig) string {
	if dir := strings.TrimSpace(cfg.Path); dir != "" {
		return dir
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "lectern", "history")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "lectern", "history")
	}
	return filepath.Join(home, ".local", "state", "lectern", "history")
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"state", result.State,
		"cancelled", result.Cancelled,
		"scenario", result.Scenario.Key,
		"leadership_style", result.Style.Key,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"audio_device", result.Capture.Device,
		"recording_bytes", result.Capture.Recording.DataBytes,
		"chunks_sent", result.Capture.ChunksSent,
		"chunks_dropped", result.Capture.ChunksDropped,
		"words", result.Capture.Words,
		"wpm", result.Capture.WPM,
		"analysis_latency_ms", result.AnalysisLatency.Milliseconds(),
		"history_id", result.HistoryID,
	}
	if result.Analysis != nil {
		fields = append(fields, "overall_score", result.Analysis.OverallScore)
	}

	if result.Err != nil {
		kind, _ := failure.KindOf(result.Err)
		logger.Error("session_result", append(fields, "error_kind", string(kind), "error", result.Err.Error())...)
		return
	}
	logger.Info("session_result", fields...)
}
