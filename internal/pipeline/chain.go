package pipeline

import (
	"github.com/rbright/lectern/internal/audio"
	"github.com/rbright/lectern/internal/dsp"
	"github.com/rbright/lectern/internal/gate"
)

// chain is the per-block processing graph. It is owned by the process loop.
type chain struct {
	highPass    *dsp.HighPass
	compressor  *dsp.Compressor
	gate        *gate.Gate
	accumulator *gate.Accumulator
	recording   *audio.Recording
	rate        int
}

// process filters one block in place, appends it to the recording, and runs
// it through the gate and accumulator. A recording error is returned with
// the flush verdict; it never stops gating.
func (ch *chain) process(samples []float32) (gate.Flush, bool, error) {
	ch.highPass.Process(samples)
	ch.compressor.Process(samples)

	writeErr := ch.recording.Write(samples)

	decision := ch.gate.Evaluate(samples)
	flush, ok := ch.accumulator.Push(samples, decision)
	return flush, ok, writeErr
}
