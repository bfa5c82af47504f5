package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr string
	}{
		{name: "empty", input: "", want: nil},
		{name: "simple", input: "pavucontrol --tab=4", want: []string{"pavucontrol", "--tab=4"}},
		{name: "double quotes", input: `gnome-control-center "sound input"`, want: []string{"gnome-control-center", "sound input"}},
		{name: "single quotes", input: `helvum --title 'Mic routing'`, want: []string{"helvum", "--title", "Mic routing"}},
		{name: "escaped space", input: `open-settings Sound\ Input`, want: []string{"open-settings", "Sound Input"}},
		{name: "empty quoted argument", input: `settings ""`, want: []string{"settings", ""}},
		{name: "leading comment", input: `# pavucontrol --tab=4`, want: nil},
		{name: "unterminated quote", input: `pavucontrol "oops`, wantErr: "unterminated quote"},
		{name: "unterminated escape", input: `pavucontrol tab\`, wantErr: "unterminated escape"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCommand(tc.input)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.input, got.Raw)
			require.Equal(t, tc.want, got.Argv)
		})
	}
}

func TestParseCommandExpandsHomeInProgramOnly(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ParseCommand("~/bin/mic-settings ~/notes")
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(home, "bin", "mic-settings"), "~/notes"}, got.Argv)
}

func TestMustParseCommandPanicsOnInvalidInput(t *testing.T) {
	require.Panics(t, func() {
		_ = mustParseCommand(`pavucontrol "unterminated`)
	})
}
