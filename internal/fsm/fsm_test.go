package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionHappyPath(t *testing.T) {
	s := StateIdle

	next, err := Transition(s, EventStart)
	require.NoError(t, err)
	require.Equal(t, StateRecording, next)

	next, err = Transition(next, EventStop)
	require.NoError(t, err)
	require.Equal(t, StateAnalyzing, next)

	next, err = Transition(next, EventAnalyzed)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestSessionFailFromAnyStateGoesError(t *testing.T) {
	states := []State{StateIdle, StateRecording, StateAnalyzing, StateError}
	for _, state := range states {
		next, err := Transition(state, EventFail)
		require.NoError(t, err)
		require.Equal(t, StateError, next)
	}
}

func TestCaptureLifecycle(t *testing.T) {
	steps := []struct {
		event Event
		want  State
	}{
		{event: EventStart, want: StateAcquiring},
		{event: EventAcquired, want: StateActive},
		{event: EventStop, want: StateStopping},
		{event: EventStopped, want: StateIdle},
		{event: EventStart, want: StateAcquiring},
		{event: EventAbort, want: StateIdle},
	}

	state := StateIdle
	for _, step := range steps {
		next, err := Capture.Transition(state, step.event)
		require.NoError(t, err, "%s --(%s)-->", state, step.event)
		require.Equal(t, step.want, next)
		state = next
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		machine Machine
		state   State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "session idle stop invalid", machine: Session, state: StateIdle, event: EventStop, want: StateIdle, wantErr: true},
		{name: "session idle cancel invalid", machine: Session, state: StateIdle, event: EventCancel, want: StateIdle, wantErr: true},
		{name: "session recording start invalid", machine: Session, state: StateRecording, event: EventStart, want: StateRecording, wantErr: true},
		{name: "session analyzing cancel invalid", machine: Session, state: StateAnalyzing, event: EventCancel, want: StateAnalyzing, wantErr: true},
		{name: "session error start invalid", machine: Session, state: StateError, event: EventStart, want: StateError, wantErr: true},
		{name: "session error reset valid", machine: Session, state: StateError, event: EventReset, want: StateIdle},
		{name: "capture stop while acquiring invalid", machine: Capture, state: StateAcquiring, event: EventStop, want: StateAcquiring, wantErr: true},
		{name: "capture start while active invalid", machine: Capture, state: StateActive, event: EventStart, want: StateActive, wantErr: true},
		{name: "capture stop while idle invalid", machine: Capture, state: StateIdle, event: EventStop, want: StateIdle, wantErr: true},
		{name: "capture fail is not a capture event", machine: Capture, state: StateActive, event: EventFail, want: StateActive, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := tc.machine.Transition(tc.state, tc.event)
			require.Equal(t, tc.want, next)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "invalid transition")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)

	_, err = Capture.Transition(StateAnalyzing, EventStart)
	require.ErrorContains(t, err, "capture: unknown state")
}
