package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorWrapsCauseAndClassifies(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("session: %w", New(StreamInterrupted, "live receive", cause))

	require.ErrorIs(t, err, cause)
	require.ErrorIs(t, err, New(StreamInterrupted, "", nil))
	require.NotErrorIs(t, err, New(AnalysisFailure, "", nil))
	require.True(t, IsKind(err, StreamInterrupted))
	require.Equal(t, "session: live receive: stream_interrupted: connection reset", err.Error())

	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, StreamInterrupted, kind)
}

func TestErrorStringVariants(t *testing.T) {
	require.Equal(t, "empty_capture", New(EmptyCapture, "", nil).Error())
	require.Equal(t, "submit: empty_capture", New(EmptyCapture, "submit", nil).Error())
	require.Equal(t, "empty_capture: boom", New(EmptyCapture, "", errors.New("boom")).Error())
}

func TestMessage(t *testing.T) {
	require.Empty(t, Message(nil))
	require.Contains(t, Message(New(DeviceAccessDenied, "acquire", nil)), "lectern doctor")
	require.Contains(t, Message(New(StreamInterrupted, "", nil)), "Stream interrupted")
	require.Equal(t, "plain", Message(errors.New("plain")))

	_, ok := KindOf(errors.New("plain"))
	require.False(t, ok)
}

func TestRetryAndDiagnosticsPolicy(t *testing.T) {
	require.False(t, Retryable(DeviceAccessDenied))
	require.True(t, NeedsDiagnostics(DeviceAccessDenied))
	require.True(t, NeedsDiagnostics(DeviceUnavailable))
	require.True(t, Retryable(StreamInterrupted))
	require.False(t, NeedsDiagnostics(StreamInterrupted))
	require.True(t, Retryable(AnalysisFailure))
	require.True(t, Retryable(EmptyCapture))
}
