package dsp

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResampleIdentityReturnsInput(t *testing.T) {
	in := []float32{0.1, -0.2, 0.3}
	out := Resample(in, 48000, 48000)
	require.Equal(t, in, out)
	require.Same(t, &in[0], &out[0])
}

func TestResampleLengthFormula(t *testing.T) {
	tests := []struct {
		name     string
		length   int
		from, to int
	}{
		{name: "48k to 16k", length: 4096, from: 48000, to: 16000},
		{name: "44.1k to 16k", length: 4096, from: 44100, to: 16000},
		{name: "22.05k to 16k", length: 1000, from: 22050, to: 16000},
		{name: "8k to 16k upsample", length: 333, from: 8000, to: 16000},
		{name: "odd sizes", length: 7, from: 3, to: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := make([]float32, tc.length)
			out := Resample(in, tc.from, tc.to)
			want := int(math.Floor(float64(tc.length) * float64(tc.to) / float64(tc.from)))
			require.Len(t, out, want)
		})
	}
}

func TestResampleNearestNeighbour(t *testing.T) {
	in := []float32{0, 1, 2, 3, 4, 5, 6, 7, 8}
	require.Equal(t, []float32{0, 3, 6}, Resample(in, 48000, 16000))
	require.Equal(t, []float32{0, 0, 1, 1}, Resample([]float32{0, 1}, 8000, 16000))
}

func TestResampleEmptyInput(t *testing.T) {
	require.Empty(t, Resample(nil, 44100, 16000))
	require.Empty(t, Resample([]float32{}, 48000, 16000))
}

func TestEncodePCM16KnownValues(t *testing.T) {
	in := []float32{0.5, -0.5, 1.0, -1.0}
	unit := EncodePCM16(Resample(in, 16000, 16000))
	require.Equal(t, "audio/pcm;rate=16000", unit.Format)

	raw, err := base64.StdEncoding.DecodeString(unit.Payload)
	require.NoError(t, err)
	require.Len(t, raw, 8)

	got := make([]int16, 4)
	for i := range got {
		got[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	require.Equal(t, []int16{16384, -16384, 32767, -32768}, got)
	require.Equal(t, 4, unit.Samples())
}

func TestEncodePCM16Clamps(t *testing.T) {
	require.Equal(t, int16(32767), ToInt16(1.7))
	require.Equal(t, int16(-32768), ToInt16(-3))
	require.Equal(t, int16(0), ToInt16(0))
}

func TestPCMRoundTripWithinOneStep(t *testing.T) {
	in := make([]float32, 0, 2001)
	for i := -1000; i <= 1000; i++ {
		in = append(in, float32(i)/1000)
	}

	out, err := DecodePCM16(EncodePCM16(in))
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		require.InDelta(t, in[i], out[i], 1.0/32767, "sample %d", i)
	}
}

func TestDecodePCM16RejectsBadPayload(t *testing.T) {
	_, err := DecodePCM16(Unit{Payload: "***"})
	require.Error(t, err)

	_, err = DecodePCM16(Unit{Payload: base64.StdEncoding.EncodeToString([]byte{1, 2, 3})})
	require.ErrorContains(t, err, "odd byte length")
}

func TestHighPassRemovesDC(t *testing.T) {
	f := NewHighPass(100, 48000)
	block := make([]float32, 48000)
	for i := range block {
		block[i] = 0.5
	}
	f.Process(block)
	require.InDelta(t, 0, block[len(block)-1], 1e-3)
}

func TestHighPassKeepsSpeechBand(t *testing.T) {
	const rate = 48000
	f := NewHighPass(100, rate)
	block := make([]float32, rate)
	for i := range block {
		block[i] = float32(0.5 * math.Sin(2*math.Pi*1000*float64(i)/rate))
	}
	f.Process(block)

	peak := 0.0
	for _, s := range block[rate/2:] {
		peak = math.Max(peak, math.Abs(float64(s)))
	}
	require.InDelta(t, 0.5, peak, 0.02)
}

func TestHighPassDisabledIsPassThrough(t *testing.T) {
	f := NewHighPass(0, 48000)
	block := []float32{0.1, 0.2, -0.3}
	f.Process(block)
	require.Equal(t, []float32{0.1, 0.2, -0.3}, block)
}

func TestCompressorStaticCurve(t *testing.T) {
	c := NewCompressor(CompressorConfig{ThresholdDb: -50, KneeDb: 40, Ratio: 12, Attack: 0, Release: 0.25}, 48000)

	require.Equal(t, 0.0, c.reductionDb(-80))
	require.InDelta(t, -(50.0 - 50.0/12), c.reductionDb(0), 1e-9)
	require.Less(t, c.reductionDb(-50), 0.0)
	require.Greater(t, c.reductionDb(-50), c.reductionDb(-40))
}

func TestCompressorNarrowsDynamicRange(t *testing.T) {
	const rate = 16000
	c := NewCompressor(CompressorConfig{ThresholdDb: -50, KneeDb: 40, Ratio: 12, Attack: 0, Release: 0.25}, rate)

	loud := make([]float32, rate/10)
	quiet := make([]float32, rate/10)
	for i := range loud {
		phase := math.Sin(2 * math.Pi * 440 * float64(i) / rate)
		loud[i] = float32(0.8 * phase)
		quiet[i] = float32(0.01 * phase)
	}

	c.Process(loud)
	c.Reset()
	c.Process(quiet)

	inputSpread := toDb(0.8) - toDb(0.01)
	outputSpread := toDb(peak(loud)) - toDb(peak(quiet))
	require.Less(t, outputSpread, inputSpread)
	for _, s := range loud {
		require.LessOrEqual(t, math.Abs(float64(s)), 1.0)
	}
}

func peak(samples []float32) float64 {
	p := 0.0
	for _, s := range samples {
		p = math.Max(p, math.Abs(float64(s)))
	}
	return p
}
