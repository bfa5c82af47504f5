package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rbright/lectern/internal/dsp"
)

const (
	wavHeaderSize = 44
	bitsPerSample = 16
)

// WAVInfo describes a parsed PCM16 WAV header.
type WAVInfo struct {
	SampleRate int
	Channels   int
	DataBytes  int
}

// Duration returns the audio length described by the header.
func (i WAVInfo) Duration() time.Duration {
	if i.SampleRate <= 0 || i.Channels <= 0 {
		return 0
	}
	frames := i.DataBytes / (i.Channels * bitsPerSample / 8)
	return time.Duration(frames) * time.Second / time.Duration(i.SampleRate)
}

// Recording appends mono samples to a PCM16 WAV file and patches the header
// sizes on Close.
type Recording struct {
	path       string
	sampleRate int

	mu        sync.Mutex
	file      *os.File
	dataBytes int64
	closed    bool
}

// CreateRecording creates path (and its directory) and writes a placeholder header.
func CreateRecording(path string, sampleRate int) (*Recording, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create recording dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create recording %q: %w", path, err)
	}
	if _, err := file.Write(wavHeader(0, sampleRate, 1)); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("write recording header: %w", err)
	}
	return &Recording{path: path, sampleRate: sampleRate, file: file}, nil
}

// Path returns the recording location.
func (r *Recording) Path() string {
	return r.path
}

// Write appends samples as PCM16.
func (r *Recording) Write(samples []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.New("recording closed")
	}
	n, err := r.file.Write(dsp.PCM16Bytes(samples))
	r.dataBytes += int64(n)
	return err
}

// Info reports the recording format and current size.
func (r *Recording) Info() WAVInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return WAVInfo{SampleRate: r.sampleRate, Channels: 1, DataBytes: int(r.dataBytes)}
}

// Close finalizes the header. It is safe to call more than once.
func (r *Recording) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	if _, err := r.file.WriteAt(wavHeader(int(r.dataBytes), r.sampleRate, 1), 0); err != nil {
		errs = append(errs, fmt.Errorf("finalize recording header: %w", err))
	}
	if err := r.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close recording: %w", err))
	}
	return errors.Join(errs...)
}

// EncodeWAV wraps raw little-endian PCM16 bytes in a WAV container.
func EncodeWAV(pcm []byte, sampleRate int, channels int) []byte {
	out := make([]byte, 0, wavHeaderSize+len(pcm))
	out = append(out, wavHeader(len(pcm), sampleRate, channels)...)
	return append(out, pcm...)
}

// ParseWAV validates a PCM16 WAV header and returns its description.
func ParseWAV(r io.Reader) (WAVInfo, error) {
	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return WAVInfo{}, fmt.Errorf("read wav header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return WAVInfo{}, errors.New("not a RIFF/WAVE file")
	}
	if string(header[12:16]) != "fmt " || string(header[36:40]) != "data" {
		return WAVInfo{}, errors.New("unsupported wav layout")
	}
	if format := binary.LittleEndian.Uint16(header[20:22]); format != 1 {
		return WAVInfo{}, fmt.Errorf("unsupported wav format %d", format)
	}
	if bits := binary.LittleEndian.Uint16(header[34:36]); bits != bitsPerSample {
		return WAVInfo{}, fmt.Errorf("unsupported bits per sample %d", bits)
	}
	return WAVInfo{
		Channels:   int(binary.LittleEndian.Uint16(header[22:24])),
		SampleRate: int(binary.LittleEndian.Uint32(header[24:28])),
		DataBytes:  int(binary.LittleEndian.Uint32(header[40:44])),
	}, nil
}

func wavHeader(dataBytes int, sampleRate int, channels int) []byte {
	if channels <= 0 {
		channels = 1
	}
	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)

	header := make([]byte, wavHeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataBytes))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataBytes))
	return header
}
