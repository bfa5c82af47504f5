package audio

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func pcmBytes(values ...int16) []byte {
	out := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func TestCaptureOnPCMEmitsBlocksAndStopFlushesResidual(t *testing.T) {
	capture := newCapture(Device{ID: "mic"}, CaptureConfig{SampleRate: 16000, BlockSize: 4})

	n, err := capture.onPCM(pcmBytes(16384, -16384, 0, 32767, 8192, 8192))
	require.NoError(t, err)
	require.Equal(t, 12, n)
	require.Equal(t, int64(6), capture.SamplesCaptured())

	first := <-capture.Blocks()
	require.Equal(t, 16000, first.Rate)
	require.Equal(t, uint64(0), first.Seq)
	require.Equal(t, []float32{0.5, -0.5, 0, 32767.0 / 32768}, first.Samples)

	require.NoError(t, capture.Stop())

	residual, ok := <-capture.Blocks()
	require.True(t, ok)
	require.Equal(t, uint64(1), residual.Seq)
	require.Equal(t, []float32{0.25, 0.25, 0, 0}, residual.Samples)

	_, ok = <-capture.Blocks()
	require.False(t, ok)
}

func TestCaptureOnPCMReturnsEOFWhenStopped(t *testing.T) {
	capture := newCapture(Device{}, CaptureConfig{})
	require.NoError(t, capture.Stop())

	n, err := capture.onPCM([]byte{1, 2, 3})
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, int64(0), capture.SamplesCaptured())
}

func TestCaptureStopIsIdempotent(t *testing.T) {
	capture := newCapture(Device{ID: "mic-1", Description: "Mic"}, CaptureConfig{})
	require.Equal(t, "mic-1", capture.Device().ID)
	require.Equal(t, DefaultSampleRate, capture.SampleRate())

	capture.Close()
	require.NoError(t, capture.Stop())
	_, ok := <-capture.Blocks()
	require.False(t, ok)
}

func TestWriterFuncDelegatesWrite(t *testing.T) {
	called := false
	writer := writerFunc(func(b []byte) (int, error) {
		called = true
		require.Equal(t, []byte{1, 2, 3}, b)
		return len(b), nil
	})

	n, err := writer.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.True(t, called)
}

func TestFramerHandlesSplitSamples(t *testing.T) {
	f := NewFramer(2)
	raw := pcmBytes(16384, -16384, 8192)

	require.Empty(t, f.Push(raw[:3]))
	blocks := f.Push(raw[3:])
	require.Len(t, blocks, 1)
	require.Equal(t, []float32{0.5, -0.5}, blocks[0])
	require.Equal(t, 1, f.Pending())

	require.Equal(t, []float32{0.25, 0}, f.Flush())
	require.Nil(t, f.Flush())
	require.Equal(t, DefaultBlockSize, NewFramer(0).blockSize)
}
