package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func setupTestDirs(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("TABSPLIT_CONFIG_DIR", "")
	t.Setenv("TABSPLIT_STATE_DIR", "")
	t.Setenv("TABSPLIT_RUNTIME_DIR", "")
	t.Setenv("HOME", tmp)
	ResetForTest()
	return tmp
}

func TestConfigDir_EnvOverride(t *testing.T) {
	tmp := setupTestDirs(t)
	override := filepath.Join(tmp, "custom-config")
	t.Setenv("TABSPLIT_CONFIG_DIR", override)
	ResetForTest()

	if got := ConfigDir(); got != override {
		t.Errorf("ConfigDir() = %q, want %q", got, override)
	}
}

func TestConfigDir_Default(t *testing.T) {
	tmp := setupTestDirs(t)
	want := filepath.Join(tmp, ".config", "tabsplit")
	if got := ConfigDir(); got != want {
		t.Errorf("ConfigDir() = %q, want %q", got, want)
	}
}

func TestStateDir_Default(t *testing.T) {
	tmp := setupTestDirs(t)
	want := filepath.Join(tmp, ".local", "state", "tabsplit")
	if got := StateDir(); got != want {
		t.Errorf("StateDir() = %q, want %q", got, want)
	}
}

func TestConfigPath(t *testing.T) {
	tmp := setupTestDirs(t)
	want := filepath.Join(tmp, ".config", "tabsplit", "config.yaml")
	if got := ConfigPath(); got != want {
		t.Errorf("ConfigPath() = %q, want %q", got, want)
	}
}

func TestRuntimePath(t *testing.T) {
	setupTestDirs(t)
	if got, want := RuntimePath("daemon", "", ".sock"), "/tmp/tabsplit-daemon-default.sock"; got != want {
		t.Errorf("RuntimePath() = %q, want %q", got, want)
	}

	dir := t.TempDir()
	t.Setenv("TABSPLIT_RUNTIME_DIR", dir)
	want := filepath.Join(dir, "tabsplit-daemon-$1.pid")
	if got := RuntimePath("daemon", "$1", ".pid"); got != want {
		t.Errorf("RuntimePath() = %q, want %q", got, want)
	}
}

func TestEnsureStateDir_Creates(t *testing.T) {
	tmp := setupTestDirs(t)
	expected := filepath.Join(tmp, ".local", "state", "tabsplit")

	dir, err := EnsureStateDir()
	if err != nil {
		t.Fatalf("EnsureStateDir() error: %v", err)
	}
	if dir != expected {
		t.Errorf("EnsureStateDir() = %q, want %q", dir, expected)
	}
	info, err := os.Stat(expected)
	if err != nil || !info.IsDir() {
		t.Errorf("EnsureStateDir() did not create directory %q", expected)
	}
}
