package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFull(t *testing.T) {
	if Version == "" || Commit == "" {
		t.Fatal("init() should populate Version and Commit")
	}
	if got := Full(); !strings.Contains(got, Version) || !strings.Contains(got, "commit: "+Commit) {
		t.Errorf("Full() = %q", got)
	}
}

func TestUserAgent(t *testing.T) {
	if got := UserAgent("mcmctl"); got != "mcmctl/"+Version {
		t.Errorf("UserAgent() = %q", got)
	}
}

func TestFromBuildInfo(t *testing.T) {
	tests := []struct {
		name        string
		main        string
		settings    map[string]string
		wantVersion string
		wantCommit  string
	}{
		{
			name:        "go install",
			main:        "v0.4.0",
			wantVersion: "v0.4.0",
			wantCommit:  "",
		},
		{
			name: "dirty checkout",
			main: "(devel)",
			settings: map[string]string{
				"vcs.revision": "0123456789abcdef",
				"vcs.modified": "true",
				"vcs.time":     "2026-10-18T09:30:00Z",
			},
			wantVersion: "dev-20261018",
			wantCommit:  "0123456-dirty",
		},
		{
			name:        "no vcs",
			main:        "(devel)",
			wantVersion: "",
			wantCommit:  "",
		},
	}

	oldVersion, oldCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = oldVersion, oldCommit })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version, Commit = "", ""
			info := &debug.BuildInfo{Main: debug.Module{Version: tt.main}}
			for k, v := range tt.settings {
				info.Settings = append(info.Settings, debug.BuildSetting{Key: k, Value: v})
			}
			fromBuildInfo(info)
			if Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", Version, tt.wantVersion)
			}
			if Commit != tt.wantCommit {
				t.Errorf("Commit = %q, want %q", Commit, tt.wantCommit)
			}
		})
	}
}

func TestStampedValuesWin(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = oldVersion, oldCommit })

	Version, Commit = "v1.0.0", "abc1234"
	fromBuildInfo(&debug.BuildInfo{
		Main:     debug.Module{Version: "v0.9.0"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffffffffff"}},
	})
	if Version != "v1.0.0" || Commit != "abc1234" {
		t.Errorf("stamped values overwritten: %s %s", Version, Commit)
	}
}
