package gate

import "math/rand/v2"

// State is the accumulator state.
type State int

const (
	StateIdle State = iota
	StateAccumulating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccumulating:
		return "accumulating"
	default:
		return "unknown"
	}
}

// AccumulatorConfig controls flush policy.
type AccumulatorConfig struct {
	BlockSize int
	// FlushBlocks is the number of blocks batched before a flush.
	FlushBlocks int
	// HeartbeatProbability is the chance that a closed block emits one block
	// of silence to keep the remote session warm.
	HeartbeatProbability float64
}

// DefaultAccumulatorConfig flushes every two 4096-sample blocks.
func DefaultAccumulatorConfig() AccumulatorConfig {
	return AccumulatorConfig{
		BlockSize:            4096,
		FlushBlocks:          2,
		HeartbeatProbability: 0.02,
	}
}

// Flush is one buffer released by the accumulator.
type Flush struct {
	Samples   []float32
	Strong    bool
	Heartbeat bool
}

// Accumulator batches gated blocks into flushes. It is owned by a single
// capture goroutine.
type Accumulator struct {
	cfg   AccumulatorConfig
	rand  func() float64
	buf   []float32
	state State
}

// NewAccumulator builds an accumulator. A nil rand uses math/rand/v2.
func NewAccumulator(cfg AccumulatorConfig, random func() float64) *Accumulator {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = DefaultAccumulatorConfig().BlockSize
	}
	if cfg.FlushBlocks <= 0 {
		cfg.FlushBlocks = 1
	}
	if random == nil {
		random = rand.Float64
	}
	return &Accumulator{
		cfg:  cfg,
		rand: random,
		buf:  make([]float32, 0, cfg.BlockSize*cfg.FlushBlocks),
	}
}

// Push feeds one block and its gate verdict. It reports a flush when one is
// due.
func (a *Accumulator) Push(block []float32, d Decision) (Flush, bool) {
	if !d.Open {
		a.discard()
		if a.cfg.HeartbeatProbability > 0 && a.rand() < a.cfg.HeartbeatProbability {
			return Flush{Samples: make([]float32, a.cfg.BlockSize), Heartbeat: true}, true
		}
		return Flush{}, false
	}

	a.state = StateAccumulating
	a.buf = append(a.buf, block...)
	if len(a.buf) < a.cfg.FlushBlocks*a.cfg.BlockSize && !d.Strong {
		return Flush{}, false
	}

	out := a.buf
	a.buf = make([]float32, 0, a.cfg.BlockSize*a.cfg.FlushBlocks)
	return Flush{Samples: out, Strong: d.Strong}, true
}

// Pending returns the number of buffered samples.
func (a *Accumulator) Pending() int {
	return len(a.buf)
}

// State returns the current accumulator state.
func (a *Accumulator) State() State {
	return a.state
}

// Reset drops buffered audio and returns to idle.
func (a *Accumulator) Reset() {
	a.discard()
}

func (a *Accumulator) discard() {
	a.buf = a.buf[:0]
	a.state = StateIdle
}
