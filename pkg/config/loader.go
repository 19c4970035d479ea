package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/b/tmux-tabsplit/pkg/colors"
)

var (
	ErrInvalidTolerance = errors.New("distribution_tolerance must be between 0 and 1")
	ErrInvalidSplit     = errors.New("default_split must be between 0 and 1")
	ErrUnknownHost      = errors.New("unknown host")
	ErrNoPanels         = errors.New("static host needs at least one panel")
	ErrInvalidPalette   = errors.New("palette entries must be hex colors")
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// SaveConfig writes the config to the specified path
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Written as a range check so that NaN fails too.
	if t := c.Store.DistributionTolerance; !(t >= 0 && t < 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidTolerance, t)
	}
	if s := c.Groups.DefaultSplit; !(s > 0 && s < 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidSplit, s)
	}
	for _, color := range c.Groups.Palette {
		if _, err := colors.Normalize(color); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPalette, err)
		}
	}
	switch c.Daemon.Host {
	case HostTmux:
	case HostStatic:
		if len(c.Daemon.Panels) == 0 {
			return ErrNoPanels
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownHost, c.Daemon.Host)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Groups.DefaultLayout == "" {
		cfg.Groups.DefaultLayout = "column_split"
	}
	if cfg.Groups.DefaultSplit == 0 {
		cfg.Groups.DefaultSplit = 0.5
	}
	if len(cfg.Groups.Palette) == 0 {
		cfg.Groups.Palette = append([]string(nil), DefaultPalette...)
	}
	if cfg.Daemon.Host == "" {
		cfg.Daemon.Host = HostTmux
	}
	if cfg.Daemon.PollInterval <= 0 {
		cfg.Daemon.PollInterval = 2 * time.Second
	}
	if cfg.Watch.BarWidth <= 0 {
		cfg.Watch.BarWidth = 40
	}
}
