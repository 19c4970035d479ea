// Package paths provides centralized path resolution for tabsplit's config,
// state and runtime files.
//
// Layout (XDG-style):
//
//	Config:  ~/.config/tabsplit/config.yaml   (override: TABSPLIT_CONFIG_DIR)
//	State:   ~/.local/state/tabsplit/         (override: TABSPLIT_STATE_DIR)
//	Runtime: /tmp/tabsplit-*                  (override: TABSPLIT_RUNTIME_DIR)
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var (
	configDirOnce   sync.Once
	configDirCached string

	stateDirOnce   sync.Once
	stateDirCached string
)

// ConfigDir resolves the config directory.
// Priority: TABSPLIT_CONFIG_DIR env > ~/.config/tabsplit/
func ConfigDir() string {
	configDirOnce.Do(func() {
		configDirCached = resolveDir("TABSPLIT_CONFIG_DIR", ".config", "tabsplit")
	})
	return configDirCached
}

// StateDir resolves the state directory.
// Priority: TABSPLIT_STATE_DIR env > ~/.local/state/tabsplit/
func StateDir() string {
	stateDirOnce.Do(func() {
		stateDirCached = resolveDir("TABSPLIT_STATE_DIR", ".local", "state", "tabsplit")
	})
	return stateDirCached
}

func resolveDir(env string, homeParts ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(append([]string{home}, homeParts...)...)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// StatePath returns the full path to a state file.
func StatePath(filename string) string {
	return filepath.Join(StateDir(), filename)
}

// RuntimePath returns a per-session runtime file such as a socket or log:
// RuntimePath("daemon", "main", ".sock") is /tmp/tabsplit-daemon-main.sock.
// An empty session is "default".
func RuntimePath(kind, session, suffix string) string {
	if session == "" {
		session = "default"
	}
	dir := os.Getenv("TABSPLIT_RUNTIME_DIR")
	if dir == "" {
		dir = "/tmp"
	}
	return filepath.Join(dir, fmt.Sprintf("tabsplit-%s-%s%s", kind, session, suffix))
}

// EnsureConfigDir creates the config directory if it doesn't exist and returns its path.
func EnsureConfigDir() (string, error) {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir %s: %w", dir, err)
	}
	return dir, nil
}

// EnsureStateDir creates the state directory if it doesn't exist and returns its path.
func EnsureStateDir() (string, error) {
	dir := StateDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create state dir %s: %w", dir, err)
	}
	return dir, nil
}

// ResetForTest clears cached values so tests can re-run resolution logic.
// Only use in tests.
func ResetForTest() {
	configDirOnce = sync.Once{}
	configDirCached = ""
	stateDirOnce = sync.Once{}
	stateDirCached = ""
}
