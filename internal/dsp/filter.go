package dsp

import "math"

const butterworthQ = math.Sqrt2 / 2

// HighPass is a second-order (RBJ cookbook) high-pass biquad.
type HighPass struct {
	b0, b1, b2 float64
	a1, a2     float64
	x1, x2     float64
	y1, y2     float64
}

// NewHighPass builds a Butterworth high-pass filter with the given cutoff.
// A non-positive cutoff yields a pass-through filter.
func NewHighPass(cutoffHz float64, sampleRate int) *HighPass {
	if cutoffHz <= 0 || sampleRate <= 0 || cutoffHz >= float64(sampleRate)/2 {
		return &HighPass{b0: 1}
	}

	w0 := 2 * math.Pi * cutoffHz / float64(sampleRate)
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * butterworthQ)
	a0 := 1 + alpha

	return &HighPass{
		b0: (1 + cosW0) / 2 / a0,
		b1: -(1 + cosW0) / a0,
		b2: (1 + cosW0) / 2 / a0,
		a1: -2 * cosW0 / a0,
		a2: (1 - alpha) / a0,
	}
}

// Process filters samples in place.
func (f *HighPass) Process(samples []float32) {
	for i, s := range samples {
		x := float64(s)
		y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
		f.x2, f.x1 = f.x1, x
		f.y2, f.y1 = f.y1, y
		samples[i] = float32(y)
	}
}

// Reset clears the filter history.
func (f *HighPass) Reset() {
	f.x1, f.x2, f.y1, f.y2 = 0, 0, 0, 0
}
