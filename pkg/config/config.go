package config

import (
	"time"

	"github.com/b/tmux-tabsplit/pkg/paths"
)

type Config struct {
	Store  Store  `yaml:"store"`
	Groups Groups `yaml:"groups"`
	Daemon Daemon `yaml:"daemon"`
	Watch  Watch  `yaml:"watch"`
}

type Store struct {
	// Allowed distance of a group's distribution sum from 1. 0 means exact.
	DistributionTolerance float64 `yaml:"distribution_tolerance"`
}

type Groups struct {
	DefaultLayout string   `yaml:"default_layout"` // Layout for new groups (default: column_split)
	DefaultSplit  float64  `yaml:"default_split"`  // Left column share for new groups (default: 0.5)
	Palette       []string `yaml:"palette"`        // Colors handed out to new groups in order
}

type Daemon struct {
	Host         string        `yaml:"host"`          // "tmux" or "static" (default: tmux)
	Panels       []string      `yaml:"panels"`        // Panel ids known to the static host
	PollWidth    bool          `yaml:"poll_width"`    // Track the tmux window width
	PollInterval time.Duration `yaml:"poll_interval"` // Width probe interval (default: 2s)
}

type Watch struct {
	HideHelp bool `yaml:"hide_help"`
	BarWidth int  `yaml:"bar_width"` // Columns used to draw a group's split bar (default: 40)
}

const (
	HostTmux   = "tmux"
	HostStatic = "static"
)

// DefaultPalette is used when the config does not list any colors.
var DefaultPalette = []string{
	"#3498db", // Blue
	"#2ecc71", // Green
	"#e74c3c", // Red
	"#9b59b6", // Purple
	"#f39c12", // Orange
	"#1abc9c", // Turquoise
	"#e67e22", // Carrot
	"#16a085", // Green sea
}

func DefaultConfigPath() string {
	return paths.ConfigPath()
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
