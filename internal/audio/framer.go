package audio

// Framer converts a little-endian int16 byte stream into fixed-size float32
// blocks.
type Framer struct {
	blockSize int
	odd       []byte
	pending   []float32
}

// NewFramer builds a framer emitting blocks of blockSize samples.
func NewFramer(blockSize int) *Framer {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Framer{blockSize: blockSize, pending: make([]float32, 0, blockSize)}
}

// Push consumes raw PCM bytes and returns every completed block.
func (f *Framer) Push(pcm []byte) [][]float32 {
	if len(f.odd) > 0 {
		pcm = append(f.odd, pcm...)
		f.odd = nil
	}

	var blocks [][]float32
	for len(pcm) >= 2 {
		v := int16(uint16(pcm[0]) | uint16(pcm[1])<<8)
		f.pending = append(f.pending, float32(v)/32768)
		pcm = pcm[2:]

		if len(f.pending) == f.blockSize {
			blocks = append(blocks, f.pending)
			f.pending = make([]float32, 0, f.blockSize)
		}
	}
	if len(pcm) == 1 {
		f.odd = []byte{pcm[0]}
	}
	return blocks
}

// Flush returns the residual samples zero-padded to a full block, or nil.
func (f *Framer) Flush() []float32 {
	if len(f.pending) == 0 {
		return nil
	}
	block := make([]float32, f.blockSize)
	copy(block, f.pending)
	f.pending = f.pending[:0]
	f.odd = nil
	return block
}

// Pending returns the number of buffered samples.
func (f *Framer) Pending() int {
	return len(f.pending)
}
