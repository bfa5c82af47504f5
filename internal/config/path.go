package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	configFileName     = "config.jsonc"
	yamlConfigFileName = "config.yaml"
)

// ResolvePath applies CLI/XDG/home fallback rules for the config location.
// Within the config directory config.jsonc wins; config.yaml is used when it
// is the only file present.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	dir, err := configDir()
	if err != nil {
		return "", err
	}

	primary := filepath.Join(dir, configFileName)
	if _, err := os.Stat(primary); err == nil {
		return primary, nil
	}
	alternate := filepath.Join(dir, yamlConfigFileName)
	if _, err := os.Stat(alternate); err == nil {
		return alternate, nil
	}
	return primary, nil
}

func configDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "lectern"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "lectern"), nil
}
