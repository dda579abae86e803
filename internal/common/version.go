package common

import (
	"bufio"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
)

// Set at build time with -ldflags "-X github.com/bobmcallan/stockreplay/internal/common.Version=..."
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// BuildInfo identifies the running binary
type BuildInfo struct {
	Version   string `json:"version"`
	Build     string `json:"build"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified,omitempty"`
}

// String formats the build for banners and logs
func (b BuildInfo) String() string {
	s := b.Version + " (build: " + b.Build + ", commit: " + b.Commit
	if b.Modified {
		s += "+dirty"
	}
	return s + ")"
}

var (
	buildOnce sync.Once
	buildInfo BuildInfo
)

// CurrentBuild reports the binary's version. Values set through ldflags win;
// otherwise a .version file beside the binary is read, and the commit and
// timestamp fall back to the VCS stamp the Go toolchain embeds.
func CurrentBuild() BuildInfo {
	buildOnce.Do(func() {
		buildInfo = resolveBuild(versionFilePath())
	})
	return buildInfo
}

func versionFilePath() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(exe), ".version")
}

func resolveBuild(versionFile string) BuildInfo {
	info := BuildInfo{Version: Version, Build: Build, Commit: GitCommit}

	if versionFile != "" {
		for key, val := range readVersionFile(versionFile) {
			switch key {
			case "version":
				if info.Version == "dev" {
					info.Version = val
				}
			case "build":
				if info.Build == "unknown" {
					info.Build = val
				}
			case "commit":
				if info.Commit == "unknown" {
					info.Commit = val
				}
			}
		}
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.Commit == "unknown" && len(setting.Value) >= 7 {
				info.Commit = setting.Value[:7]
			}
		case "vcs.time":
			if info.Build == "unknown" {
				info.Build = setting.Value
			}
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		}
	}
	return info
}

// readVersionFile parses "key: value" lines, ignoring blanks and # comments.
// A missing file yields no entries.
func readVersionFile(path string) map[string]string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	out := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(val)
	}
	return out
}
