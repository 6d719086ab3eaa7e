// Package config provides configuration loading for ferrite.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gigurra/ferrite/cmd/deck/tape"
)

// Config represents the ferrite configuration file structure.
type Config struct {
	Deck          *DeckConfig         `json:"deck,omitempty"`
	Notifications *NotificationConfig `json:"notifications,omitempty"`
}

// DeckConfig holds the tape physics tunables. Zero-valued fields fall
// back to the deck's built-in defaults.
type DeckConfig struct {
	TickIntervalMS    int     `json:"tick_interval_ms,omitempty"`
	ScrubSpeed        float64 `json:"scrub_speed,omitempty"`
	HeatRate          float64 `json:"heat_rate,omitempty"`
	CoolRate          float64 `json:"cool_rate,omitempty"`
	CooldownThreshold float64 `json:"cooldown_threshold,omitempty"`
	// GlitchChance is the per-tick trigger probability. Negative
	// disables glitches.
	GlitchChance     float64  `json:"glitch_chance,omitempty"`
	GlitchMinSeconds float64  `json:"glitch_min_seconds,omitempty"`
	GlitchMaxSeconds float64  `json:"glitch_max_seconds,omitempty"`
	Jumpscares       []string `json:"jumpscares,omitempty"`
}

// NotificationConfig holds settings for OS notifications (overheat and
// end-of-side toasts from the deck screen).
type NotificationConfig struct {
	Enabled         bool `json:"enabled"`
	CooldownSeconds int  `json:"cooldown_seconds,omitempty"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Deck: &DeckConfig{
			TickIntervalMS:    200,
			ScrubSpeed:        2,
			HeatRate:          25,
			CoolRate:          10,
			CooldownThreshold: 30,
			GlitchChance:      0.008,
			GlitchMinSeconds:  2,
			GlitchMaxSeconds:  6,
		},
		Notifications: &NotificationConfig{
			Enabled:         false,
			CooldownSeconds: 30,
		},
	}
}

// Options converts the tunables into deck options. Unset fields resolve
// to the deck's defaults.
func (c *DeckConfig) Options() tape.Options {
	if c == nil {
		return tape.DefaultOptions()
	}
	return tape.Options{
		TickInterval:      time.Duration(c.TickIntervalMS) * time.Millisecond,
		ScrubSpeed:        c.ScrubSpeed,
		HeatRate:          c.HeatRate,
		CoolRate:          c.CoolRate,
		CooldownThreshold: c.CooldownThreshold,
		GlitchChance:      c.GlitchChance,
		GlitchMinDuration: time.Duration(c.GlitchMinSeconds * float64(time.Second)),
		GlitchMaxDuration: time.Duration(c.GlitchMaxSeconds * float64(time.Second)),
		Jumpscares:        c.Jumpscares,
	}
}

// ConfigDir returns the ferrite config directory (~/.ferrite).
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ferrite")
}

// ConfigPath returns the path to the config file (~/.ferrite/config.json).
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// LibraryDir returns the mixtape library directory (~/.ferrite/mixtapes).
func LibraryDir() string {
	return filepath.Join(ConfigDir(), "mixtapes")
}

// Load loads the config from ~/.ferrite/config.json.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	// Apply defaults for missing sections
	if config.Deck == nil {
		config.Deck = DefaultConfig().Deck
	}
	if config.Notifications == nil {
		config.Notifications = DefaultConfig().Notifications
	} else if config.Notifications.CooldownSeconds == 0 {
		config.Notifications.CooldownSeconds = DefaultConfig().Notifications.CooldownSeconds
	}

	return &config, nil
}

// Save saves the config to ~/.ferrite/config.json.
func Save(config *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
