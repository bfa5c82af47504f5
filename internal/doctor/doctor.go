// Package doctor runs readiness diagnostics for config, microphone access and
// the Gemini endpoints.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/lectern/internal/audio"
	"github.com/rbright/lectern/internal/config"
	"github.com/rbright/lectern/internal/failure"
)

// Check is one doctor assertion result. Steps carry recovery instructions
// for failed checks.
type Check struct {
	Name    string
	Pass    bool
	Message string
	Steps   []string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
		for i, step := range check.Steps {
			b.WriteString(fmt.Sprintf("       %d. %s\n", i+1, step))
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	message := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		message = fmt.Sprintf("%q not found; using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: message})

	checks = append(checks, checkAPIKey(cfg.Config.Gemini))
	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	if len(cfg.Config.Diagnostics.SettingsCmd.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.Config.Diagnostics.SettingsCmd.Argv, "settings_cmd"))
	}
	checks = append(checks, checkLiveEndpoint(ctx, cfg.Config.Gemini))

	return Report{Checks: checks}
}

// checkAPIKey reports whether the configured key variable resolved.
func checkAPIKey(cfg config.GeminiConfig) Check {
	if strings.TrimSpace(cfg.APIKey) != "" {
		return Check{Name: "gemini.api_key", Pass: true, Message: fmt.Sprintf("%s is set", cfg.APIKeyEnv)}
	}
	return Check{
		Name:    "gemini.api_key",
		Pass:    false,
		Message: fmt.Sprintf("%s is not set", cfg.APIKeyEnv),
		Steps: []string{
			"Create an API key at https://aistudio.google.com/apikey.",
			fmt.Sprintf("Export %s in your shell, or add %s=<key> to a .env file next to the config.", cfg.APIKeyEnv, cfg.APIKeyEnv),
			"Run `lectern doctor` again.",
		},
	}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface permission,
// selection and mute issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	settings := cfg.Diagnostics.SettingsCmd.Raw
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		kind, _ := failure.KindOf(err)
		return Check{
			Name:    "audio.device",
			Pass:    false,
			Message: err.Error(),
			Steps:   audioRecoverySteps(kind, settings),
		}
	}

	if selection.Device.Muted {
		return Check{
			Name:    "audio.device",
			Pass:    false,
			Message: fmt.Sprintf("selected %q but it is muted", selection.Device.ID),
			Steps:   audioRecoverySteps(failure.DeviceUnavailable, settings),
		}
	}

	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

func audioRecoverySteps(kind failure.Kind, settingsCmd string) []string {
	openSettings := "Open your sound settings"
	if strings.TrimSpace(settingsCmd) != "" {
		openSettings = fmt.Sprintf("Open your sound settings (`%s`)", settingsCmd)
	}

	if kind == failure.DeviceAccessDenied {
		return []string{
			"Make sure the PipeWire/PulseAudio user service is running (`systemctl --user status pipewire-pulse`).",
			"If lectern runs inside a sandbox, grant it access to the PulseAudio socket.",
			openSettings + " and allow microphone access for lectern.",
			"Run `lectern doctor` again.",
		}
	}
	return []string{
		"Check that a microphone is connected (`lectern devices`).",
		openSettings + ", unmute the input and pick it as the default source.",
		"Or set audio.input in the config to the device id shown by `lectern devices`.",
		"Run `lectern doctor` again.",
	}
}

// checkLiveEndpoint verifies the Live host answers HTTP. Any non-5xx status
// counts as reachable since the endpoint only serves WebSocket upgrades.
func checkLiveEndpoint(ctx context.Context, cfg config.GeminiConfig) Check {
	probe, err := probeURL(cfg.LiveURL)
	if err != nil {
		return Check{Name: "gemini.live", Pass: false, Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probe, nil)
	if err != nil {
		return Check{Name: "gemini.live", Pass: false, Message: err.Error()}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Check{
			Name:    "gemini.live",
			Pass:    false,
			Message: fmt.Sprintf("request failed: %v", err),
			Steps: []string{
				"Check your network connection and any proxy settings.",
				"Verify gemini.live_url in the config.",
			},
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Check{Name: "gemini.live", Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, probe)}
	}
	return Check{Name: "gemini.live", Pass: true, Message: fmt.Sprintf("reachable at %s (HTTP %d)", probe, resp.StatusCode)}
}

func probeURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid live_url: %w", err)
	}
	switch parsed.Scheme {
	case "ws":
		parsed.Scheme = "http"
	case "wss":
		parsed.Scheme = "https"
	default:
		return "", fmt.Errorf("live_url scheme %q is not ws or wss", parsed.Scheme)
	}
	return parsed.String(), nil
}
