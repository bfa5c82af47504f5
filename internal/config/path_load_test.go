package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePathPrecedence(t *testing.T) {
	xdg := t.TempDir()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", home)

	path, err := ResolvePath("/explicit/config.jsonc")
	require.NoError(t, err)
	require.Equal(t, "/explicit/config.jsonc", path)

	path, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "lectern", "config.jsonc"), path)

	t.Setenv("XDG_CONFIG_HOME", "")
	path, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "lectern", "config.jsonc"), path)
}

func TestResolvePathFallsBackToYAML(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	dir := filepath.Join(xdg, "lectern")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("gate:\n  hold_ms: 300\n"), 0o600))

	path, err := ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "config.yaml"), path)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.jsonc"), []byte("{}"), 0o600))
	path, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "config.jsonc"), path)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(DefaultAPIKeyEnv, "from-env")

	loaded, err := Load(filepath.Join(t.TempDir(), "missing.jsonc"))
	require.NoError(t, err)
	require.False(t, loaded.Exists)
	require.Equal(t, "from-env", loaded.Config.Gemini.APIKey)
	require.Len(t, loaded.Warnings, 1)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadReadsDotEnvNextToConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LECTERN_TEST_KEY", "")
	require.NoError(t, os.Unsetenv("LECTERN_TEST_KEY"))

	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"gemini": {"api_key_env": "LECTERN_TEST_KEY"}}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LECTERN_TEST_KEY=dotenv-key\n"), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "dotenv-key", loaded.Config.Gemini.APIKey)
	require.Empty(t, loaded.Warnings)
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LECTERN_TEST_KEY", "shell-key")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gemini:\n  api_key_env: LECTERN_TEST_KEY\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LECTERN_TEST_KEY=dotenv-key\n"), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "shell-key", loaded.Config.Gemini.APIKey)
}

func TestLoadWarnsWhenAPIKeyMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LECTERN_MISSING_KEY", "")

	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"gemini": {"api_key_env": "LECTERN_MISSING_KEY"}}`), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Empty(t, loaded.Config.Gemini.APIKey)
	require.Len(t, loaded.Warnings, 1)
	require.Contains(t, loaded.Warnings[0].Message, "LECTERN_MISSING_KEY is not set")
}

func TestLoadReturnsParseErrorsWithPath(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"gate": {"hold_ms": 0}}`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
	require.Contains(t, err.Error(), "gate.hold_ms")
}
