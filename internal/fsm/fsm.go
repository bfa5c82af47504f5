// Package fsm defines the lifecycle state machines for capture and coaching
// sessions.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle      State = "idle"
	StateAcquiring State = "acquiring"
	StateActive    State = "active"
	StateStopping  State = "stopping"
	StateRecording State = "recording"
	StateAnalyzing State = "analyzing"
	StateError     State = "error"
)

const (
	EventStart    Event = "start"
	EventAcquired Event = "acquired"
	EventAbort    Event = "abort"
	EventStop     Event = "stop"
	EventStopped  Event = "stopped"
	EventCancel   Event = "cancel"
	EventAnalyzed Event = "analyzed"
	EventFail     Event = "fail"
	EventReset    Event = "reset"
)

// Machine is a fixed transition table.
type Machine struct {
	name  string
	table map[State]map[Event]State
	// failTo is the target of EventFail from any known state; empty disables it.
	failTo State
}

// Capture drives one device capture: idle -> acquiring -> active -> stopping -> idle.
var Capture = Machine{
	name: "capture",
	table: map[State]map[Event]State{
		StateIdle:      {EventStart: StateAcquiring},
		StateAcquiring: {EventAcquired: StateActive, EventAbort: StateIdle},
		StateActive:    {EventStop: StateStopping},
		StateStopping:  {EventStopped: StateIdle},
	},
}

// Session drives a coaching session around a capture and its analysis.
var Session = Machine{
	name: "session",
	table: map[State]map[Event]State{
		StateIdle:      {EventStart: StateRecording},
		StateRecording: {EventStop: StateAnalyzing, EventCancel: StateIdle},
		StateAnalyzing: {EventAnalyzed: StateIdle},
		StateError:     {EventReset: StateIdle},
	},
	failTo: StateError,
}

// Transition applies event to current. Invalid transitions leave the state
// unchanged and return an error.
func (m Machine) Transition(current State, event Event) (State, error) {
	events, ok := m.table[current]
	if !ok {
		return current, fmt.Errorf("%s: unknown state %q", m.name, current)
	}
	if event == EventFail && m.failTo != "" {
		return m.failTo, nil
	}
	next, ok := events[event]
	if !ok {
		return current, invalidTransition(m.name, current, event)
	}
	return next, nil
}

// Transition applies event to the session machine.
func Transition(current State, event Event) (State, error) {
	return Session.Transition(current, event)
}

func invalidTransition(machine string, state State, event Event) error {
	return fmt.Errorf("%s: invalid transition: %s --(%s)--> ?", machine, state, event)
}
