package indicator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveLocale(t *testing.T) {
	require.Equal(t, localeEnglish, resolveLocale("en_US.UTF-8"))
	require.Equal(t, localeEnglish, resolveLocale("", "", "en_GB.UTF-8"))
	require.Equal(t, localeEnglish, resolveLocale("fr_FR.UTF-8", "en_US.UTF-8"))
	require.Equal(t, localeEnglish, resolveLocale())
}

func TestIndicatorMessagesFallBackToEnglish(t *testing.T) {
	msg := indicatorMessages(locale("yo"))
	require.Equal(t, "Recording…", msg.recording)
	require.Equal(t, "Analyzing…", msg.analyzing)
	require.Equal(t, "Rehearsal error", msg.errorText)
}

func TestIndicatorMessagesFromEnvUsesLCAll(t *testing.T) {
	t.Setenv("LC_ALL", "en_NG.UTF-8")
	t.Setenv("LANG", "")
	require.Equal(t, catalog[localeEnglish], indicatorMessagesFromEnv())
}
