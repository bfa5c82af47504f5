package session

import (
	"context"

	"github.com/rbright/lectern/internal/coach"
	"github.com/rbright/lectern/internal/history"
	"github.com/rbright/lectern/internal/pipeline"
)

// Recorder is the capture pipeline as seen by the session.
type Recorder interface {
	Start(context.Context) error
	Stop(context.Context) (pipeline.Result, error)
	Interrupted() <-chan error
	Snapshot() pipeline.Snapshot
	Correct(id string, text string) error
}

// Analyzer scores a finished recording.
type Analyzer interface {
	Analyze(ctx context.Context, wav []byte, scenario coach.Scenario, style coach.LeadershipStyle) (coach.SpeechAnalysis, error)
}

// Store persists analyzed sessions.
type Store interface {
	Save(history.Record) (history.Record, error)
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowRecording(context.Context)
	ShowAnalyzing(context.Context)
	ShowError(context.Context, string)
	CueStop(context.Context)
	CueComplete(context.Context)
	CueCancel(context.Context)
	Hide(context.Context)
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowRecording(context.Context)     {}
func (noopIndicator) ShowAnalyzing(context.Context)     {}
func (noopIndicator) ShowError(context.Context, string) {}
func (noopIndicator) CueStop(context.Context)           {}
func (noopIndicator) CueComplete(context.Context)       {}
func (noopIndicator) CueCancel(context.Context)         {}
func (noopIndicator) Hide(context.Context)              {}
