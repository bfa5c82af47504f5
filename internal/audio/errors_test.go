package audio

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/lectern/internal/failure"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want failure.Kind
	}{
		{name: "os permission", err: fmt.Errorf("open socket: %w", os.ErrPermission), want: failure.DeviceAccessDenied},
		{name: "server access denied", err: errors.New("pulse: Access denied"), want: failure.DeviceAccessDenied},
		{name: "missing server", err: errors.New("dial unix /run/user/1000/pulse/native: connect: no such file or directory"), want: failure.DeviceUnavailable},
		{name: "busy", err: errors.New("device or resource busy"), want: failure.DeviceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Classify("acquire", tc.err)
			require.True(t, failure.IsKind(err, tc.want), "got %v", err)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestClassifyKeepsExistingKindAndNil(t *testing.T) {
	require.NoError(t, Classify("acquire", nil))

	denied := failure.New(failure.DeviceAccessDenied, "inner", nil)
	require.Same(t, denied, Classify("outer", denied))
}
