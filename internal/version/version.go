// Package version reports build metadata injected with -ldflags -X, falling
// back to the VCS stamp Go embeds in module builds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the `lectern version` line.
func String() string {
	commit, date := Commit, Date
	if info, ok := debug.ReadBuildInfo(); ok {
		commit, date = fromBuildInfo(info, commit, date)
	}
	return fmt.Sprintf("lectern %s (commit=%s, date=%s, go=%s)", Version, commit, date, runtime.Version())
}

// fromBuildInfo fills commit and date from vcs settings only where ldflags
// left the defaults in place.
func fromBuildInfo(info *debug.BuildInfo, commit, date string) (string, string) {
	for _, setting := range info.Settings {
		switch {
		case setting.Key == "vcs.revision" && commit == "none":
			commit = setting.Value
			if len(commit) > 12 {
				commit = commit[:12]
			}
		case setting.Key == "vcs.time" && date == "unknown":
			date = setting.Value
		}
	}
	return commit, date
}
