// Package dsp holds the pure signal-processing stages of the capture pipeline.
package dsp

// Resample converts samples captured at fromRate to toRate with a
// zero-order hold: output[i] = samples[floor(i*fromRate/toRate)]. The output
// length is floor(len(samples)*toRate/fromRate).
func Resample(samples []float32, fromRate int, toRate int) []float32 {
	if fromRate == toRate {
		return samples
	}
	if len(samples) == 0 || fromRate <= 0 || toRate <= 0 {
		return []float32{}
	}

	n := len(samples) * toRate / fromRate
	out := make([]float32, n)
	for i := range out {
		out[i] = samples[i*fromRate/toRate]
	}
	return out
}
