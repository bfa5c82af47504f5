// Package config resolves, parses, validates, and defaults lectern configuration.
package config

// Config is the fully materialized runtime configuration used by lectern.
type Config struct {
	Audio       AudioConfig
	Filter      FilterConfig
	Gate        GateConfig
	Chunk       ChunkConfig
	Transcript  TranscriptConfig
	Gemini      GeminiConfig
	Coach       CoachConfig
	History     HistoryConfig
	Status      StatusConfig
	Indicator   IndicatorConfig
	Diagnostics DiagnosticsConfig
	Debug       DebugConfig
}

// AudioConfig controls input-source selection and the capture format.
type AudioConfig struct {
	Input      string
	Fallback   string
	NativeRate int
	BlockSize  int
	TargetRate int
}

// FilterConfig controls the high-pass and compressor stages.
type FilterConfig struct {
	HighPassHz float64
	Compressor CompressorConfig
}

// CompressorConfig mirrors the compressor knobs; times are in seconds.
type CompressorConfig struct {
	ThresholdDb float64
	KneeDb      float64
	Ratio       float64
	Attack      float64
	Release     float64
}

// GateConfig controls the adaptive noise gate.
type GateConfig struct {
	Sensitivity    float64
	BaseFloorDb    float64
	ScaleDb        float64
	HoldMS         int
	StrongMarginDb float64
}

// ChunkConfig controls accumulator flushing.
type ChunkConfig struct {
	FlushBlocks          int
	HeartbeatProbability float64
}

// TranscriptConfig controls live transcript segmentation.
type TranscriptConfig struct {
	DebounceMS int
}

// GeminiConfig selects models and endpoints. APIKey is resolved from the
// environment variable named by APIKeyEnv and never read from the file.
type GeminiConfig struct {
	APIKeyEnv         string
	APIKey            string
	LiveModel         string
	AnalysisModel     string
	LiveURL           string
	APIBaseURL        string
	SystemInstruction string
	TimeoutMS         int
}

// CoachConfig selects the default rehearsal scenario and style.
type CoachConfig struct {
	Scenario        string
	LeadershipStyle string
}

// HistoryConfig locates the session history database.
type HistoryConfig struct {
	Path  string
	Limit int
}

// StatusConfig controls the optional local status server.
type StatusConfig struct {
	Enable bool
	Addr   string
}

// IndicatorConfig controls desktop notifications and audio cue behavior.
type IndicatorConfig struct {
	Enable            bool
	AppName           string
	SoundEnable       bool
	SoundStartFile    string
	SoundStopFile     string
	SoundCompleteFile string
	SoundCancelFile   string
	ErrorTimeoutMS    int
}

// DiagnosticsConfig controls doctor recovery hints.
type DiagnosticsConfig struct {
	// SettingsCmd opens the system sound settings.
	SettingsCmd CommandConfig
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug behavior.
type DebugConfig struct {
	KeepRecording bool
	Verbose       bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
