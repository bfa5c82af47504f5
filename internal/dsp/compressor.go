package dsp

import "math"

// CompressorConfig describes a feed-forward dynamics compressor.
type CompressorConfig struct {
	ThresholdDb float64
	KneeDb      float64
	Ratio       float64
	Attack      float64 // seconds
	Release     float64 // seconds
}

// Compressor applies soft-knee gain reduction followed by automatic makeup
// gain, tracking the level with separate attack and release smoothing.
type Compressor struct {
	cfg         CompressorConfig
	attackCoef  float64
	releaseCoef float64
	makeupDb    float64
	gainDb      float64
}

// NewCompressor builds a compressor for the given sample rate.
func NewCompressor(cfg CompressorConfig, sampleRate int) *Compressor {
	if cfg.Ratio < 1 {
		cfg.Ratio = 1
	}
	if cfg.KneeDb < 0 {
		cfg.KneeDb = 0
	}

	c := &Compressor{
		cfg:         cfg,
		attackCoef:  smoothingCoef(cfg.Attack, sampleRate),
		releaseCoef: smoothingCoef(cfg.Release, sampleRate),
	}
	c.makeupDb = -0.6 * c.reductionDb(0)
	return c
}

// Process compresses samples in place.
func (c *Compressor) Process(samples []float32) {
	for i, s := range samples {
		levelDb := toDb(math.Abs(float64(s)))
		target := c.reductionDb(levelDb)

		coef := c.releaseCoef
		if target < c.gainDb {
			coef = c.attackCoef
		}
		c.gainDb = target + coef*(c.gainDb-target)

		out := float64(s) * fromDb(c.gainDb+c.makeupDb)
		if out > 1 {
			out = 1
		} else if out < -1 {
			out = -1
		}
		samples[i] = float32(out)
	}
}

// Reset clears the envelope state.
func (c *Compressor) Reset() {
	c.gainDb = 0
}

// reductionDb returns the static gain change (<= 0) for an input level.
func (c *Compressor) reductionDb(levelDb float64) float64 {
	t, w, r := c.cfg.ThresholdDb, c.cfg.KneeDb, c.cfg.Ratio
	over := levelDb - t

	var outDb float64
	switch {
	case 2*over < -w:
		outDb = levelDb
	case w > 0 && 2*math.Abs(over) <= w:
		outDb = levelDb + (1/r-1)*(over+w/2)*(over+w/2)/(2*w)
	default:
		outDb = t + over/r
	}
	return outDb - levelDb
}

func smoothingCoef(seconds float64, sampleRate int) float64 {
	if seconds <= 0 || sampleRate <= 0 {
		return 0
	}
	return math.Exp(-1 / (seconds * float64(sampleRate)))
}

func toDb(amplitude float64) float64 {
	return 20 * math.Log10(math.Max(amplitude, minAmplitude))
}

func fromDb(db float64) float64 {
	return math.Pow(10, db/20)
}

// minAmplitude keeps log10 finite for silent input.
const minAmplitude = 1e-10
