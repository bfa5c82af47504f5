package indicator

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jfreymuth/pulse"
	"github.com/rbright/lectern/internal/config"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueComplete
	cueCancel
)

const (
	cueSampleRate = 16000
	cueGain       = 0.18
	cueGap        = 22 * time.Millisecond
	cueRamp       = 5 * time.Millisecond
	cueFileLimit  = 4 * time.Second
)

// tone is one enveloped sine segment of a cue.
type tone struct {
	hz  float64
	dur time.Duration
}

// cue pairs the synthesized earcon with the config key that overrides it.
type cue struct {
	tones []tone
	file  func(config.IndicatorConfig) string
}

var cues = map[cueKind]cue{
	// Rising triad: the microphone is live.
	cueStart: {
		tones: []tone{{hz: 660, dur: 60 * time.Millisecond}, {hz: 880, dur: 60 * time.Millisecond}, {hz: 1175, dur: 80 * time.Millisecond}},
		file:  func(c config.IndicatorConfig) string { return c.SoundStartFile },
	},
	cueStop: {
		tones: []tone{{hz: 620, dur: 120 * time.Millisecond}},
		file:  func(c config.IndicatorConfig) string { return c.SoundStopFile },
	},
	// The critique is ready.
	cueComplete: {
		tones: []tone{{hz: 740, dur: 65 * time.Millisecond}, {hz: 988, dur: 65 * time.Millisecond}, {hz: 1319, dur: 110 * time.Millisecond}},
		file:  func(c config.IndicatorConfig) string { return c.SoundCompleteFile },
	},
	cueCancel: {
		tones: []tone{{hz: 480, dur: 75 * time.Millisecond}, {hz: 360, dur: 90 * time.Millisecond}},
		file:  func(c config.IndicatorConfig) string { return c.SoundCancelFile },
	},
}

// emitCue plays the configured cue file when one is set and playable,
// otherwise the synthesized earcon over Pulse.
func emitCue(ctx context.Context, kind cueKind, cfg config.IndicatorConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, ok := cues[kind]
	if !ok {
		return fmt.Errorf("unknown cue %d", kind)
	}

	if path := expandUserPath(c.file(cfg)); path != "" {
		if err := playCueFile(ctx, path); err == nil {
			return nil
		}
	}
	return playSynthCue(ctx, c.render())
}

func cuePath(kind cueKind, cfg config.IndicatorConfig) string {
	c, ok := cues[kind]
	if !ok {
		return ""
	}
	return expandUserPath(c.file(cfg))
}

func cueSamples(kind cueKind) []int16 {
	c, ok := cues[kind]
	if !ok {
		return nil
	}
	return c.render()
}

func expandUserPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(raw, "~"))
}

func playCueFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file %q: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(ctx, cueFileLimit)
	defer cancel()

	if err := exec.CommandContext(ctx, "pw-play", "--media-role", "Notification", path).Run(); err != nil {
		return fmt.Errorf("play cue file %q: %w", path, err)
	}
	return nil
}

func playSynthCue(ctx context.Context, samples []int16) error {
	if len(samples) == 0 {
		return nil
	}

	client, err := pulse.NewClient(
		pulse.ClientApplicationName("lectern"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	remaining := samples
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		n := copy(buf, remaining)
		remaining = remaining[n:]
		if len(remaining) == 0 {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("lectern cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	if err := ctx.Err(); err != nil {
		return err
	}
	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return nil
}

// render lays the tones out back to back with cueGap of silence between.
func (c cue) render() []int16 {
	gap := samplesForDuration(cueGap)
	var pcm []int16
	for i, t := range c.tones {
		if i > 0 {
			pcm = append(pcm, make([]int16, gap)...)
		}
		pcm = append(pcm, t.render()...)
	}
	return pcm
}

// render returns the tone with linear attack and release ramps of at most
// cueRamp, or a tenth of the tone when that is shorter.
func (t tone) render() []int16 {
	n := samplesForDuration(t.dur)
	if n <= 0 || t.hz <= 0 {
		return nil
	}
	ramp := min(max(n/10, 1), samplesForDuration(cueRamp))

	pcm := make([]int16, n)
	for i := range pcm {
		envelope := math.Min(1, math.Min(float64(i)/float64(ramp), float64(n-1-i)/float64(ramp)))
		phase := 2 * math.Pi * t.hz * float64(i) / cueSampleRate
		pcm[i] = int16(math.Round(math.Sin(phase) * cueGain * envelope * math.MaxInt16))
	}
	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
