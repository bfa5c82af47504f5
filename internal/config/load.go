package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration, then
// resolves the Gemini API key from the environment. `.env` files next to the
// config and in the working directory are loaded first without overriding
// variables that are already set.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{Path: resolvedPath, Config: Default()}
	content, err := os.ReadFile(resolvedPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = append(loaded.Warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		})
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	default:
		cfg, warnings, err := Parse(string(content), loaded.Config)
		if err != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
		}
		loaded.Config = cfg
		loaded.Warnings = append(loaded.Warnings, warnings...)
		loaded.Exists = true
	}

	for _, envFile := range []string{filepath.Join(filepath.Dir(resolvedPath), ".env"), ".env"} {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			loaded.Warnings = append(loaded.Warnings, Warning{
				Message: fmt.Sprintf("ignoring env file %q: %v", envFile, err),
			})
		}
	}

	loaded.Config.Gemini.APIKey = strings.TrimSpace(os.Getenv(loaded.Config.Gemini.APIKeyEnv))
	if loaded.Config.Gemini.APIKey == "" {
		loaded.Warnings = append(loaded.Warnings, Warning{
			Message: fmt.Sprintf("%s is not set; live transcription and analysis are unavailable", loaded.Config.Gemini.APIKeyEnv),
		})
	}
	return loaded, nil
}
