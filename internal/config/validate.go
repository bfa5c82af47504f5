package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rbright/lectern/internal/coach"
	"github.com/rbright/lectern/internal/dsp"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if cfg.Audio.NativeRate <= 0 {
		return nil, fmt.Errorf("audio.native_rate must be > 0")
	}
	if cfg.Audio.BlockSize <= 0 {
		return nil, fmt.Errorf("audio.block_size must be > 0")
	}
	if cfg.Audio.TargetRate != dsp.TargetRate {
		return nil, fmt.Errorf("audio.target_rate must be %d (the Live input rate)", dsp.TargetRate)
	}
	if cfg.Audio.NativeRate < cfg.Audio.TargetRate {
		return nil, fmt.Errorf("audio.native_rate must be >= audio.target_rate")
	}
	if cfg.Audio.NativeRate%cfg.Audio.TargetRate != 0 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("audio.native_rate %d is not a multiple of %d; downsampling will alias", cfg.Audio.NativeRate, cfg.Audio.TargetRate)})
	}

	if cfg.Filter.HighPassHz < 0 {
		return nil, fmt.Errorf("filter.highpass_hz must be >= 0")
	}
	if cfg.Filter.HighPassHz >= float64(cfg.Audio.NativeRate)/2 {
		return nil, fmt.Errorf("filter.highpass_hz must be below the Nyquist frequency")
	}
	comp := cfg.Filter.Compressor
	if comp.Ratio < 1 {
		return nil, fmt.Errorf("filter.compressor.ratio must be >= 1")
	}
	if comp.KneeDb < 0 {
		return nil, fmt.Errorf("filter.compressor.knee_db must be >= 0")
	}
	if comp.Attack < 0 || comp.Release < 0 {
		return nil, fmt.Errorf("filter.compressor attack and release must be >= 0")
	}

	if cfg.Gate.Sensitivity < 0 || cfg.Gate.Sensitivity > 100 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("gate.sensitivity %.1f is outside 0-100 and will be clamped", cfg.Gate.Sensitivity)})
	}
	if cfg.Gate.ScaleDb <= 0 {
		return nil, fmt.Errorf("gate.scale_db must be > 0")
	}
	if cfg.Gate.HoldMS <= 0 {
		return nil, fmt.Errorf("gate.hold_ms must be > 0")
	}
	if cfg.Gate.StrongMarginDb < 0 {
		return nil, fmt.Errorf("gate.strong_margin_db must be >= 0")
	}

	if cfg.Chunk.FlushBlocks <= 0 {
		return nil, fmt.Errorf("chunk.flush_blocks must be > 0")
	}
	if cfg.Chunk.HeartbeatProbability < 0 || cfg.Chunk.HeartbeatProbability > 1 {
		return nil, fmt.Errorf("chunk.heartbeat_probability must be within 0-1")
	}
	if cfg.Chunk.HeartbeatProbability > 0.2 {
		warnings = append(warnings, Warning{Message: "chunk.heartbeat_probability above 0.2 sends mostly silence while idle"})
	}

	if cfg.Transcript.DebounceMS <= 0 {
		return nil, fmt.Errorf("transcript.debounce_ms must be > 0")
	}

	if strings.TrimSpace(cfg.Gemini.APIKeyEnv) == "" {
		return nil, fmt.Errorf("gemini.api_key_env must not be empty")
	}
	if cfg.Gemini.LiveModel == "" {
		return nil, fmt.Errorf("gemini.live_model must not be empty")
	}
	if cfg.Gemini.AnalysisModel == "" {
		return nil, fmt.Errorf("gemini.analysis_model must not be empty")
	}
	if err := validateURL("gemini.live_url", cfg.Gemini.LiveURL, "ws", "wss"); err != nil {
		return nil, err
	}
	if cfg.Gemini.APIBaseURL != "" {
		if err := validateURL("gemini.api_base_url", cfg.Gemini.APIBaseURL, "http", "https"); err != nil {
			return nil, err
		}
	}
	if cfg.Gemini.TimeoutMS <= 0 {
		return nil, fmt.Errorf("gemini.timeout_ms must be > 0")
	}

	if _, err := coach.LookupScenario(cfg.Coach.Scenario); err != nil {
		return nil, fmt.Errorf("coach.scenario: %w", err)
	}
	if _, err := coach.LookupLeadershipStyle(cfg.Coach.LeadershipStyle); err != nil {
		return nil, fmt.Errorf("coach.leadership_style: %w", err)
	}

	if cfg.History.Limit <= 0 {
		return nil, fmt.Errorf("history.limit must be > 0")
	}

	if cfg.Status.Enable && strings.TrimSpace(cfg.Status.Addr) == "" {
		return nil, fmt.Errorf("status.addr must not be empty when status.enable=true")
	}

	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}
	if cfg.Indicator.Enable && strings.TrimSpace(cfg.Indicator.AppName) == "" {
		return nil, fmt.Errorf("indicator.app_name must not be empty when indicator.enable=true")
	}

	settings := cfg.Diagnostics.SettingsCmd
	if settings.Raw != "" && !strings.HasPrefix(strings.TrimSpace(settings.Raw), "#") && len(settings.Argv) == 0 {
		return nil, fmt.Errorf("diagnostics.settings_cmd is configured but empty")
	}

	return warnings, nil
}

func validateURL(key string, raw string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	for _, scheme := range schemes {
		if parsed.Scheme == scheme && parsed.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be a %s URL", key, strings.Join(schemes, "/"))
}
