package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	// DefaultBlockSize is the number of samples per hardware callback block.
	DefaultBlockSize = 4096
	// DefaultSampleRate is the native capture rate requested from Pulse.
	DefaultSampleRate = 48000

	blockQueueSize = 32
)

// Block is one fixed-size run of mono samples in [-1,1].
type Block struct {
	Samples []float32
	Rate    int
	Seq     uint64
}

// CaptureConfig controls the Pulse record stream.
type CaptureConfig struct {
	SampleRate int
	BlockSize  int
}

func (c CaptureConfig) withDefaults() CaptureConfig {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.BlockSize <= 0 {
		c.BlockSize = DefaultBlockSize
	}
	return c
}

// Capture streams fixed-size blocks from one selected Pulse source.
type Capture struct {
	device Device
	cfg    CaptureConfig

	client *pulse.Client
	stream *pulse.RecordStream

	blocks chan Block
	stopCh chan struct{}

	mu      sync.Mutex
	framer  *Framer
	seq     uint64
	stopped bool

	inflight sync.WaitGroup
	samples  atomic.Int64
}

// StartCapture creates and starts a mono s16 record stream at cfg.SampleRate.
// Acquisition errors are classified for the caller.
func StartCapture(ctx context.Context, selected Device, cfg CaptureConfig) (*Capture, error) {
	cfg = cfg.withDefaults()

	client, err := newClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, Classify(fmt.Sprintf("resolve source %q", selected.ID), err)
	}

	capture := newCapture(selected, cfg)
	capture.client = client

	writer := pulse.NewWriter(writerFunc(capture.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(cfg.SampleRate),
		pulse.RecordBufferFragmentSize(uint32(cfg.BlockSize*2)),
		pulse.RecordMediaName("lectern rehearsal"),
	)
	if err != nil {
		capture.Close()
		return nil, Classify("create pulse record stream", err)
	}

	capture.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = capture.Stop()
		case <-capture.stopCh:
		}
	}()

	return capture, nil
}

func newCapture(device Device, cfg CaptureConfig) *Capture {
	cfg = cfg.withDefaults()
	return &Capture{
		device: device,
		cfg:    cfg,
		blocks: make(chan Block, blockQueueSize),
		stopCh: make(chan struct{}),
		framer: NewFramer(cfg.BlockSize),
	}
}

// Device returns capture metadata for logging and diagnostics.
func (c *Capture) Device() Device {
	return c.device
}

// SampleRate returns the native rate of emitted blocks.
func (c *Capture) SampleRate() int {
	return c.cfg.SampleRate
}

// Blocks returns the block stream in capture order.
func (c *Capture) Blocks() <-chan Block {
	return c.blocks
}

// SamplesCaptured reports total samples accepted from Pulse.
func (c *Capture) SamplesCaptured() int64 {
	return c.samples.Load()
}

// Stop halts the stream, emits the zero-padded residual block, and closes
// Blocks exactly once.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.inflight.Wait()

	c.mu.Lock()
	residual := c.framer.Flush()
	seq := c.seq
	c.mu.Unlock()

	if residual != nil {
		select {
		case c.blocks <- Block{Samples: residual, Rate: c.cfg.SampleRate, Seq: seq}:
		default:
		}
	}

	close(c.blocks)
	return nil
}

// Close is a convenience alias for Stop.
func (c *Capture) Close() {
	_ = c.Stop()
}

// onPCM receives raw Pulse frames and emits completed blocks.
func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	select {
	case <-c.stopCh:
		return 0, io.EOF
	default:
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Guard Add under the same mutex as c.stopped to avoid Add/Wait races.
	c.inflight.Add(1)

	frames := c.framer.Push(buffer)
	blocks := make([]Block, 0, len(frames))
	for _, samples := range frames {
		blocks = append(blocks, Block{Samples: samples, Rate: c.cfg.SampleRate, Seq: c.seq})
		c.seq++
	}
	c.mu.Unlock()
	defer c.inflight.Done()

	c.samples.Add(int64(len(buffer) / 2))

	for _, block := range blocks {
		select {
		case <-c.stopCh:
			return 0, io.EOF
		case c.blocks <- block:
		}
	}

	return len(buffer), nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
