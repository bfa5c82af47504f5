package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/lectern/internal/audio"
	"github.com/rbright/lectern/internal/cli"
	"github.com/rbright/lectern/internal/coach"
	"github.com/rbright/lectern/internal/config"
	"github.com/rbright/lectern/internal/failure"
	"github.com/rbright/lectern/internal/gemini"
	"github.com/rbright/lectern/internal/history"
)

func (r Runner) commandScenarios() int {
	fmt.Fprintln(r.Stdout, "Scenarios:")
	for _, s := range coach.Scenarios() {
		fmt.Fprintf(r.Stdout, "  %-20s %s\n", s.Key, s.Label)
	}
	fmt.Fprintln(r.Stdout, "Leadership styles:")
	for _, s := range coach.LeadershipStyles() {
		fmt.Fprintf(r.Stdout, "  %-20s %s\n", s.Key, s.Label)
	}
	return 0
}

func (r Runner) commandHistory(cfg config.Config, parsed cli.Parsed) int {
	store := newHistoryStore(cfg.History)
	err := store.with(func(s *history.Store) error {
		if parsed.HistoryID != "" {
			record, err := s.Get(parsed.HistoryID)
			if err != nil {
				return err
			}
			writeRecord(r.Stdout, record)
			return nil
		}

		records, err := s.List(parsed.Limit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintln(r.Stdout, "no sessions recorded yet")
			return nil
		}
		for _, record := range records {
			fmt.Fprintf(r.Stdout, "%s  %s  %5.1f  %3d wpm  %-8s  %s\n",
				shortID(record.ID),
				record.Date.Local().Format("2006-01-02 15:04"),
				record.Analysis.OverallScore,
				record.WPM,
				(time.Duration(record.Duration) * time.Second).String(),
				record.Scenario,
			)
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// commandAnalyze scores an existing recording, typically one kept after a
// failed analysis, and saves it to history.
func (r Runner) commandAnalyze(ctx context.Context, cfg config.Config, parsed cli.Parsed, logger *slog.Logger) int {
	scenario, style, err := resolveCoaching(cfg.Coach, parsed)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 2
	}

	wav, err := os.ReadFile(parsed.File)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: read recording: %v\n", err)
		return 1
	}
	info, err := audio.ParseWAV(bytes.NewReader(wav))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %s: %v\n", parsed.File, err)
		return 1
	}
	if info.DataBytes <= 0 {
		fmt.Fprintf(r.Stderr, "error: %s\n", failure.Message(failure.New(failure.EmptyCapture, "analyze", nil)))
		return 1
	}
	if cfg.Gemini.APIKey == "" {
		fmt.Fprintf(r.Stderr, "error: %s is not set; run `lectern doctor`\n", cfg.Gemini.APIKeyEnv)
		return 1
	}

	analyzer, err := gemini.NewAnalyzer(ctx, analyzerConfig(cfg.Gemini))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	started := time.Now()
	analysis, err := analyzer.Analyze(ctx, wav, scenario, style)
	if err != nil {
		if _, ok := failure.KindOf(err); !ok {
			err = failure.New(failure.AnalysisFailure, "analyze", err)
		}
		logger.Error("analyze file failed", "file", parsed.File, "error", err.Error())
		fmt.Fprintf(r.Stderr, "error: %s\n", failure.Message(err))
		return 1
	}
	logger.Info("analyze file complete",
		"file", parsed.File,
		"latency_ms", time.Since(started).Milliseconds(),
		"overall_score", analysis.OverallScore,
	)

	duration := info.Duration()
	wpm := coach.WPM(len(strings.Fields(analysis.Transcript)), duration)
	writeAnalysis(r.Stdout, analysis, wpm, duration)

	path, absErr := filepath.Abs(parsed.File)
	if absErr != nil {
		path = parsed.File
	}
	record, err := newHistoryStore(cfg.History).Save(history.Record{
		Scenario:        scenario.Label,
		LeadershipStyle: style.Label,
		Analysis:        analysis,
		WPM:             wpm,
		Duration:        int(duration.Round(time.Second) / time.Second),
		RecordingPath:   path,
	})
	if err != nil {
		logger.Warn("save session history", "error", err.Error())
		fmt.Fprintf(r.Stderr, "warning: session not saved: %v\n", err)
		return 0
	}
	fmt.Fprintf(r.Stdout, "saved as %s\n", shortID(record.ID))
	return 0
}

func writeAnalysis(w io.Writer, analysis coach.SpeechAnalysis, wpm int, duration time.Duration) {
	fmt.Fprintf(w, "Overall score: %.0f/100\n", analysis.OverallScore)
	fmt.Fprintf(w, "Pace: %d wpm over %s\n", wpm, duration.Round(time.Second))
	for _, metric := range analysis.Metrics {
		fmt.Fprintf(w, "  %-8s %5.1f  %s\n", metric.Label, metric.Score, metric.Feedback)
	}
	fmt.Fprintf(w, "Leadership alignment: %s\n", analysis.LeadershipAlignment)
	fmt.Fprintf(w, "Tone: %s\n", analysis.ToneAnalysis)
	writeList(w, "Strengths", analysis.Strengths)
	writeList(w, "Improvements", analysis.Improvements)
	writeList(w, "Suggested points", analysis.SuggestedPoints)
	if strings.TrimSpace(analysis.Transcript) != "" {
		fmt.Fprintf(w, "Transcript:\n  %s\n", strings.TrimSpace(analysis.Transcript))
	}
}

func writeRecord(w io.Writer, record history.Record) {
	fmt.Fprintf(w, "Session %s\n", record.ID)
	fmt.Fprintf(w, "Date: %s\n", record.Date.Local().Format(time.RFC1123))
	fmt.Fprintf(w, "Scenario: %s\n", record.Scenario)
	fmt.Fprintf(w, "Leadership style: %s\n", record.LeadershipStyle)
	if record.RecordingPath != "" {
		fmt.Fprintf(w, "Recording: %s\n", record.RecordingPath)
	}
	writeAnalysis(w, record.Analysis, record.WPM, time.Duration(record.Duration)*time.Second)
	if record.Transcript != "" && record.Transcript != record.Analysis.Transcript {
		fmt.Fprintf(w, "Live transcript:\n  %s\n", record.Transcript)
	}
}

func writeList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}

