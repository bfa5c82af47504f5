package dsp

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// TargetRate is the fixed sample rate of every transmitted audio unit.
const TargetRate = 16000

// PCMFormat is the format tag attached to encoded audio units.
var PCMFormat = fmt.Sprintf("audio/pcm;rate=%d", TargetRate)

// Unit is one encoded, ready-to-send payload.
type Unit struct {
	Payload string
	Format  string
}

// Samples reports how many 16-bit samples the payload carries.
func (u Unit) Samples() int {
	n := len(u.Payload) / 4 * 3
	n -= strings.Count(u.Payload[max(0, len(u.Payload)-2):], "=")
	return n / 2
}

// EncodePCM16 clamps samples to [-1,1], converts them to little-endian int16
// and base64-encodes the result.
func EncodePCM16(samples []float32) Unit {
	return Unit{
		Payload: base64.StdEncoding.EncodeToString(PCM16Bytes(samples)),
		Format:  PCMFormat,
	}
}

// PCM16Bytes returns the raw little-endian int16 encoding of samples.
func PCM16Bytes(samples []float32) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(ToInt16(s)))
	}
	return buf
}

// ToInt16 maps one float sample onto the int16 range. Negative values scale
// by 32768 and non-negative values by 32767 so +1.0 does not overflow.
func ToInt16(s float32) int16 {
	v := math.Max(-1, math.Min(1, float64(s)))
	if v < 0 {
		return int16(math.Round(v * 32768))
	}
	return int16(math.Round(v * 32767))
}

// DecodePCM16 reverses EncodePCM16.
func DecodePCM16(unit Unit) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(unit.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode pcm payload: %w", err)
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("decode pcm payload: odd byte length %d", len(raw))
	}

	out := make([]float32, len(raw)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		if v < 0 {
			out[i] = float32(v) / 32768
		} else {
			out[i] = float32(v) / 32767
		}
	}
	return out, nil
}
