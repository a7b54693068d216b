// Package version reports the build of mcmctl and mcm-sim.
//
// Release builds stamp both values:
//
//	go build -ldflags "-X github.com/mcmlink/mcm/internal/version.Version=v0.4.0 \
//	    -X github.com/mcmlink/mcm/internal/version.Commit=$(git rev-parse --short HEAD)" \
//	    ./cmd/mcmctl
//
// Unstamped binaries fall back to what the toolchain embedded: the module
// version for `go install github.com/mcmlink/mcm/cmd/mcmctl@v0.4.0`, or the VCS
// revision for a build from a checkout. Both tools print Full() from their
// version command, and UserAgent() is sent to the master's HTTP API.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

var (
	Version = ""
	Commit  = ""
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		fromBuildInfo(info)
	}
	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

func fromBuildInfo(info *debug.BuildInfo) {
	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	if Commit == "" {
		if rev := settings["vcs.revision"]; rev != "" {
			if len(rev) > 7 {
				rev = rev[:7]
			}
			if settings["vcs.modified"] == "true" {
				rev += "-dirty"
			}
			Commit = rev
		}
	}

	if Version != "" {
		return
	}
	// "(devel)" is what a plain go build from a checkout reports.
	if v := info.Main.Version; v != "" && v != "(devel)" {
		Version = v
		return
	}
	if t, err := time.Parse(time.RFC3339, settings["vcs.time"]); err == nil {
		Version = "dev-" + t.UTC().Format("20060102")
	}
}

// Full returns the version with its commit.
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// UserAgent returns "<tool>/<version>".
func UserAgent(tool string) string {
	return tool + "/" + Version
}
