package config

import (
	"github.com/rbright/lectern/internal/audio"
	"github.com/rbright/lectern/internal/coach"
	"github.com/rbright/lectern/internal/dsp"
	"github.com/rbright/lectern/internal/gemini"
	"github.com/rbright/lectern/internal/history"
)

// DefaultAPIKeyEnv names the environment variable holding the Gemini key.
const DefaultAPIKeyEnv = "GEMINI_API_KEY"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	settings := "pavucontrol --tab=4"

	return Config{
		Audio: AudioConfig{
			Input:      "default",
			Fallback:   "default",
			NativeRate: audio.DefaultSampleRate,
			BlockSize:  audio.DefaultBlockSize,
			TargetRate: dsp.TargetRate,
		},
		Filter: FilterConfig{
			HighPassHz: 100,
			Compressor: CompressorConfig{
				ThresholdDb: -50,
				KneeDb:      40,
				Ratio:       12,
				Attack:      0,
				Release:     0.25,
			},
		},
		Gate: GateConfig{
			Sensitivity:    50,
			BaseFloorDb:    -70,
			ScaleDb:        0.5,
			HoldMS:         250,
			StrongMarginDb: 10,
		},
		Chunk: ChunkConfig{
			FlushBlocks:          2,
			HeartbeatProbability: 0.02,
		},
		Transcript: TranscriptConfig{DebounceMS: 60},
		Gemini: GeminiConfig{
			APIKeyEnv:         DefaultAPIKeyEnv,
			LiveModel:         gemini.DefaultLiveModel,
			AnalysisModel:     gemini.DefaultAnalysisModel,
			LiveURL:           gemini.DefaultLiveBaseURL,
			SystemInstruction: gemini.DefaultInstruction,
			TimeoutMS:         int(gemini.DefaultTimeout.Milliseconds()),
		},
		Coach: CoachConfig{
			Scenario:        coach.DefaultScenario.Key,
			LeadershipStyle: coach.DefaultStyle.Key,
		},
		History: HistoryConfig{Limit: history.DefaultLimit},
		Status: StatusConfig{
			Enable: false,
			Addr:   "127.0.0.1:9464",
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			AppName:        "lectern",
			SoundEnable:    true,
			ErrorTimeoutMS: 4000,
		},
		Diagnostics: DiagnosticsConfig{
			SettingsCmd: mustParseCommand(settings),
		},
		Debug: DebugConfig{},
	}
}
