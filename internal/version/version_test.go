package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringIncludesInjectedMetadata(t *testing.T) {
	originalVersion, originalCommit, originalDate := Version, Commit, Date
	t.Cleanup(func() {
		Version, Commit, Date = originalVersion, originalCommit, originalDate
	})

	Version = "1.2.3"
	Commit = "abc123"
	Date = "2026-02-18"

	got := String()
	require.Contains(t, got, "lectern 1.2.3")
	require.Contains(t, got, "commit=abc123")
	require.Contains(t, got, "date=2026-02-18")
	require.Contains(t, got, "go=")
}

func TestFromBuildInfoFillsDefaultsOnly(t *testing.T) {
	info := &debug.BuildInfo{Settings: []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.time", Value: "2026-03-01T10:00:00Z"},
	}}

	commit, date := fromBuildInfo(info, "none", "unknown")
	require.Equal(t, "0123456789ab", commit)
	require.Equal(t, "2026-03-01T10:00:00Z", date)

	commit, date = fromBuildInfo(info, "release", "2026-02-18")
	require.Equal(t, "release", commit)
	require.Equal(t, "2026-02-18", date)
}
