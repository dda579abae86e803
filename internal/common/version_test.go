package common

import (
	"os"
	"path/filepath"
	"testing"
)

func withVersionVars(t *testing.T, version, build, commit string) {
	t.Helper()
	oldV, oldB, oldC := Version, Build, GitCommit
	Version, Build, GitCommit = version, build, commit
	t.Cleanup(func() { Version, Build, GitCommit = oldV, oldB, oldC })
}

func TestResolveBuild_VersionFileFillsDefaults(t *testing.T) {
	withVersionVars(t, "dev", "unknown", "unknown")

	path := filepath.Join(t.TempDir(), ".version")
	content := "# release\nversion: 1.4.0\nBuild: 2026-10-01T08:00:00Z\ncommit: abc1234\nnot a pair\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	info := resolveBuild(path)
	if info.Version != "1.4.0" {
		t.Errorf("Expected version 1.4.0, got %s", info.Version)
	}
	if info.Build != "2026-10-01T08:00:00Z" {
		t.Errorf("Expected build from file, got %s", info.Build)
	}
	if info.Commit != "abc1234" {
		t.Errorf("Expected commit abc1234, got %s", info.Commit)
	}
}

func TestResolveBuild_LdflagsWin(t *testing.T) {
	withVersionVars(t, "2.0.0", "ci-77", "fedcba9")

	path := filepath.Join(t.TempDir(), ".version")
	if err := os.WriteFile(path, []byte("version: 1.0.0\nbuild: old\ncommit: 0000000\n"), 0644); err != nil {
		t.Fatal(err)
	}

	info := resolveBuild(path)
	if info.Version != "2.0.0" || info.Build != "ci-77" || info.Commit != "fedcba9" {
		t.Errorf("Expected ldflags values to win, got %+v", info)
	}
}

func TestResolveBuild_MissingFile(t *testing.T) {
	withVersionVars(t, "dev", "unknown", "unknown")

	info := resolveBuild(filepath.Join(t.TempDir(), "missing"))
	if info.Version != "dev" {
		t.Errorf("Expected dev version, got %s", info.Version)
	}
	if info.Commit == "" || info.Build == "" {
		t.Errorf("Expected non-empty build fields, got %+v", info)
	}
}

func TestBuildInfo_String(t *testing.T) {
	info := BuildInfo{Version: "1.0.0", Build: "b1", Commit: "abc1234", Modified: true}
	want := "1.0.0 (build: b1, commit: abc1234+dirty)"
	if got := info.String(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
