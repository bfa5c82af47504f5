// Package gate decides which captured audio blocks carry speech and batches
// them into transmissible buffers.
package gate

import (
	"math"
	"sync/atomic"
	"time"
)

const (
	// meterFloorDb is the level reported as 0 on the 0-100 meter.
	meterFloorDb = -100.0
	minRMS       = 1e-10
)

// Config controls the threshold mapping and hysteresis of a Gate.
type Config struct {
	// Sensitivity is the user-facing 0-100 knob.
	Sensitivity    float64
	BaseFloorDb    float64
	ScaleDb        float64
	Hold           time.Duration
	StrongMarginDb float64
}

// DefaultConfig maps sensitivity 0..100 onto -70..-20 dB with a 250ms hold.
func DefaultConfig() Config {
	return Config{
		Sensitivity:    50,
		BaseFloorDb:    -70,
		ScaleDb:        0.5,
		Hold:           250 * time.Millisecond,
		StrongMarginDb: 10,
	}
}

// Decision is the per-block gate verdict.
type Decision struct {
	Open    bool
	Strong  bool
	LevelDb float64
	// Level is LevelDb normalized to 0-100 for metering.
	Level float64
}

// Gate is a hysteresis noise gate. It is not safe for concurrent Evaluate
// calls; Level may be read from any goroutine.
type Gate struct {
	cfg         Config
	thresholdDb float64
	now         func() time.Time

	lastActive time.Time
	active     bool
	level      atomic.Uint64
}

// New builds a gate. A nil clock uses time.Now.
func New(cfg Config, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{
		cfg:         cfg,
		thresholdDb: Threshold(cfg.Sensitivity, cfg.BaseFloorDb, cfg.ScaleDb),
		now:         now,
	}
}

// Threshold maps a 0-100 sensitivity onto an open/close threshold in dB.
func Threshold(sensitivity float64, baseFloorDb float64, scaleDb float64) float64 {
	sensitivity = math.Max(0, math.Min(100, sensitivity))
	return baseFloorDb + sensitivity*scaleDb
}

// ThresholdDb returns the active threshold.
func (g *Gate) ThresholdDb() float64 {
	return g.thresholdDb
}

// Evaluate measures block and returns the gate verdict at the current time.
func (g *Gate) Evaluate(block []float32) Decision {
	at := g.now()
	db := Decibels(RMS(block))

	if db > g.thresholdDb {
		g.lastActive = at
		g.active = true
	}

	level := NormalizedLevel(db)
	g.level.Store(math.Float64bits(level))

	return Decision{
		Open:    g.active && at.Sub(g.lastActive) < g.cfg.Hold,
		Strong:  db > g.thresholdDb+g.cfg.StrongMarginDb,
		LevelDb: db,
		Level:   level,
	}
}

// Level returns the most recent normalized level (0-100).
func (g *Gate) Level() float64 {
	return math.Float64frombits(g.level.Load())
}

// Reset forgets the last active time so the gate starts closed.
func (g *Gate) Reset() {
	g.lastActive = time.Time{}
	g.active = false
	g.level.Store(0)
}

// RMS returns the root-mean-square of block.
func RMS(block []float32) float64 {
	if len(block) == 0 {
		return 0
	}
	var sum float64
	for _, s := range block {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(block)))
}

// Decibels converts an RMS amplitude to dBFS, flooring silence at -200 dB.
func Decibels(rms float64) float64 {
	return 20 * math.Log10(math.Max(rms, minRMS))
}

// NormalizedLevel maps dBFS onto 0-100 with -100 dB as zero.
func NormalizedLevel(db float64) float64 {
	level := (db - meterFloorDb) / -meterFloorDb * 100
	return math.Max(0, math.Min(100, level))
}
