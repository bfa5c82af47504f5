//go:build integration

package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Run with a live Pulse/PipeWire server: go test -tags integration ./internal/audio

func TestListDevicesIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	devices, err := ListDevices(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, devices)
}

func TestCaptureDeliversBlocksIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	selection, err := SelectDevice(ctx, "default", "default")
	require.NoError(t, err)

	capture, err := StartCapture(ctx, selection.Device, CaptureConfig{SampleRate: DefaultSampleRate, BlockSize: 1024})
	require.NoError(t, err)
	defer func() { require.NoError(t, capture.Stop()) }()

	select {
	case block := <-capture.Blocks():
		require.Len(t, block.Samples, 1024)
		require.Equal(t, DefaultSampleRate, block.Rate)
	case <-ctx.Done():
		t.Fatal("no audio block within deadline")
	}
}
