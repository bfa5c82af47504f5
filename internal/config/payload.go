package config

import (
	"fmt"
	"strings"
)

// filePayload is the on-disk shape shared by the JSONC and YAML formats.
// Pointer fields distinguish "unset" from zero values.
type filePayload struct {
	Audio       *fileAudio       `json:"audio" yaml:"audio"`
	Filter      *fileFilter      `json:"filter" yaml:"filter"`
	Gate        *fileGate        `json:"gate" yaml:"gate"`
	Chunk       *fileChunk       `json:"chunk" yaml:"chunk"`
	Transcript  *fileTranscript  `json:"transcript" yaml:"transcript"`
	Gemini      *fileGemini      `json:"gemini" yaml:"gemini"`
	Coach       *fileCoach       `json:"coach" yaml:"coach"`
	History     *fileHistory     `json:"history" yaml:"history"`
	Status      *fileStatus      `json:"status" yaml:"status"`
	Indicator   *fileIndicator   `json:"indicator" yaml:"indicator"`
	Diagnostics *fileDiagnostics `json:"diagnostics" yaml:"diagnostics"`
	Debug       *fileDebug       `json:"debug" yaml:"debug"`
}

type fileAudio struct {
	Input      *string `json:"input" yaml:"input"`
	Fallback   *string `json:"fallback" yaml:"fallback"`
	NativeRate *int    `json:"native_rate" yaml:"native_rate"`
	BlockSize  *int    `json:"block_size" yaml:"block_size"`
	TargetRate *int    `json:"target_rate" yaml:"target_rate"`
}

type fileFilter struct {
	HighPassHz *float64        `json:"highpass_hz" yaml:"highpass_hz"`
	Compressor *fileCompressor `json:"compressor" yaml:"compressor"`
}

type fileCompressor struct {
	ThresholdDb *float64 `json:"threshold_db" yaml:"threshold_db"`
	KneeDb      *float64 `json:"knee_db" yaml:"knee_db"`
	Ratio       *float64 `json:"ratio" yaml:"ratio"`
	Attack      *float64 `json:"attack" yaml:"attack"`
	Release     *float64 `json:"release" yaml:"release"`
}

type fileGate struct {
	Sensitivity    *float64 `json:"sensitivity" yaml:"sensitivity"`
	BaseFloorDb    *float64 `json:"base_floor_db" yaml:"base_floor_db"`
	ScaleDb        *float64 `json:"scale_db" yaml:"scale_db"`
	HoldMS         *int     `json:"hold_ms" yaml:"hold_ms"`
	StrongMarginDb *float64 `json:"strong_margin_db" yaml:"strong_margin_db"`
}

type fileChunk struct {
	FlushBlocks          *int     `json:"flush_blocks" yaml:"flush_blocks"`
	HeartbeatProbability *float64 `json:"heartbeat_probability" yaml:"heartbeat_probability"`
}

type fileTranscript struct {
	DebounceMS *int `json:"debounce_ms" yaml:"debounce_ms"`
}

type fileGemini struct {
	APIKeyEnv         *string `json:"api_key_env" yaml:"api_key_env"`
	LiveModel         *string `json:"live_model" yaml:"live_model"`
	AnalysisModel     *string `json:"analysis_model" yaml:"analysis_model"`
	LiveURL           *string `json:"live_url" yaml:"live_url"`
	APIBaseURL        *string `json:"api_base_url" yaml:"api_base_url"`
	SystemInstruction *string `json:"system_instruction" yaml:"system_instruction"`
	TimeoutMS         *int    `json:"timeout_ms" yaml:"timeout_ms"`
}

type fileCoach struct {
	Scenario        *string `json:"scenario" yaml:"scenario"`
	LeadershipStyle *string `json:"leadership_style" yaml:"leadership_style"`
}

type fileHistory struct {
	Path  *string `json:"path" yaml:"path"`
	Limit *int    `json:"limit" yaml:"limit"`
}

type fileStatus struct {
	Enable *bool   `json:"enable" yaml:"enable"`
	Addr   *string `json:"addr" yaml:"addr"`
}

type fileIndicator struct {
	Enable            *bool   `json:"enable" yaml:"enable"`
	AppName           *string `json:"app_name" yaml:"app_name"`
	SoundEnable       *bool   `json:"sound_enable" yaml:"sound_enable"`
	SoundStartFile    *string `json:"sound_start_file" yaml:"sound_start_file"`
	SoundStopFile     *string `json:"sound_stop_file" yaml:"sound_stop_file"`
	SoundCompleteFile *string `json:"sound_complete_file" yaml:"sound_complete_file"`
	SoundCancelFile   *string `json:"sound_cancel_file" yaml:"sound_cancel_file"`
	ErrorTimeoutMS    *int    `json:"error_timeout_ms" yaml:"error_timeout_ms"`
}

type fileDiagnostics struct {
	SettingsCmd *string `json:"settings_cmd" yaml:"settings_cmd"`
}

type fileDebug struct {
	KeepRecording *bool `json:"keep_recording" yaml:"keep_recording"`
	Verbose       *bool `json:"verbose" yaml:"verbose"`
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func set[T int | float64 | bool](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (payload filePayload) applyTo(cfg *Config) error {
	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
		set(&cfg.Audio.NativeRate, a.NativeRate)
		set(&cfg.Audio.BlockSize, a.BlockSize)
		set(&cfg.Audio.TargetRate, a.TargetRate)
	}

	if f := payload.Filter; f != nil {
		set(&cfg.Filter.HighPassHz, f.HighPassHz)
		if c := f.Compressor; c != nil {
			set(&cfg.Filter.Compressor.ThresholdDb, c.ThresholdDb)
			set(&cfg.Filter.Compressor.KneeDb, c.KneeDb)
			set(&cfg.Filter.Compressor.Ratio, c.Ratio)
			set(&cfg.Filter.Compressor.Attack, c.Attack)
			set(&cfg.Filter.Compressor.Release, c.Release)
		}
	}

	if g := payload.Gate; g != nil {
		set(&cfg.Gate.Sensitivity, g.Sensitivity)
		set(&cfg.Gate.BaseFloorDb, g.BaseFloorDb)
		set(&cfg.Gate.ScaleDb, g.ScaleDb)
		set(&cfg.Gate.HoldMS, g.HoldMS)
		set(&cfg.Gate.StrongMarginDb, g.StrongMarginDb)
	}

	if c := payload.Chunk; c != nil {
		set(&cfg.Chunk.FlushBlocks, c.FlushBlocks)
		set(&cfg.Chunk.HeartbeatProbability, c.HeartbeatProbability)
	}

	if t := payload.Transcript; t != nil {
		set(&cfg.Transcript.DebounceMS, t.DebounceMS)
	}

	if g := payload.Gemini; g != nil {
		setString(&cfg.Gemini.APIKeyEnv, g.APIKeyEnv)
		setString(&cfg.Gemini.LiveModel, g.LiveModel)
		setString(&cfg.Gemini.AnalysisModel, g.AnalysisModel)
		setString(&cfg.Gemini.LiveURL, g.LiveURL)
		setString(&cfg.Gemini.APIBaseURL, g.APIBaseURL)
		setString(&cfg.Gemini.SystemInstruction, g.SystemInstruction)
		set(&cfg.Gemini.TimeoutMS, g.TimeoutMS)
	}

	if c := payload.Coach; c != nil {
		setString(&cfg.Coach.Scenario, c.Scenario)
		setString(&cfg.Coach.LeadershipStyle, c.LeadershipStyle)
	}

	if h := payload.History; h != nil {
		setString(&cfg.History.Path, h.Path)
		set(&cfg.History.Limit, h.Limit)
	}

	if s := payload.Status; s != nil {
		set(&cfg.Status.Enable, s.Enable)
		setString(&cfg.Status.Addr, s.Addr)
	}

	if i := payload.Indicator; i != nil {
		set(&cfg.Indicator.Enable, i.Enable)
		setString(&cfg.Indicator.AppName, i.AppName)
		set(&cfg.Indicator.SoundEnable, i.SoundEnable)
		setString(&cfg.Indicator.SoundStartFile, i.SoundStartFile)
		setString(&cfg.Indicator.SoundStopFile, i.SoundStopFile)
		setString(&cfg.Indicator.SoundCompleteFile, i.SoundCompleteFile)
		setString(&cfg.Indicator.SoundCancelFile, i.SoundCancelFile)
		set(&cfg.Indicator.ErrorTimeoutMS, i.ErrorTimeoutMS)
	}

	if d := payload.Diagnostics; d != nil && d.SettingsCmd != nil {
		cmd, err := ParseCommand(*d.SettingsCmd)
		if err != nil {
			return fmt.Errorf("invalid diagnostics.settings_cmd: %w", err)
		}
		cfg.Diagnostics.SettingsCmd = cmd
	}

	if d := payload.Debug; d != nil {
		set(&cfg.Debug.KeepRecording, d.KeepRecording)
		set(&cfg.Debug.Verbose, d.Verbose)
	}

	return nil
}
