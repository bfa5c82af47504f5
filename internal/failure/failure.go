// Package failure classifies the errors a coaching session can surface to
// the user.
package failure

import (
	"errors"
	"fmt"
)

// Kind is a user-facing failure category.
type Kind string

const (
	DeviceAccessDenied Kind = "device_access_denied"
	DeviceUnavailable  Kind = "device_unavailable"
	StreamInterrupted  Kind = "stream_interrupted"
	EmptyCapture       Kind = "empty_capture"
	AnalysisFailure    Kind = "analysis_failure"
)

var messages = map[Kind]string{
	DeviceAccessDenied: "Microphone access denied. Run `lectern doctor` for recovery steps, then retry.",
	DeviceUnavailable:  "Microphone unavailable or busy. Check the input device and retry.",
	StreamInterrupted:  "Stream interrupted. Ensure a stable network connection and retry.",
	EmptyCapture:       "Nothing was recorded. Check the microphone level and record again.",
	AnalysisFailure:    "Analysis failed. The recording was kept; retry with `lectern analyze --file`.",
}

// Error is a classified failure wrapping its cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New builds a classified error for op.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind so errors.Is(err, failure.New(kind, "", nil))
// works as a category check.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) (Kind, bool) {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind Kind) bool {
	got, ok := KindOf(err)
	return ok && got == kind
}

// Message returns the user-facing message for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if kind, ok := KindOf(err); ok {
		return messages[kind]
	}
	return err.Error()
}

// Retryable reports whether the user can retry the operation directly.
func Retryable(kind Kind) bool {
	switch kind {
	case StreamInterrupted, AnalysisFailure, DeviceUnavailable, EmptyCapture:
		return true
	default:
		return false
	}
}

// NeedsDiagnostics reports whether the failure should point the user at
// `lectern doctor` before retrying.
func NeedsDiagnostics(kind Kind) bool {
	return kind == DeviceAccessDenied || kind == DeviceUnavailable
}
