package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/tabwell/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion  int             `mapstructure:"config_version" yaml:"config_version"`
	StateDir       string          `mapstructure:"state_dir" yaml:"state_dir"`
	Profiles       []ProfileConfig `mapstructure:"profiles" yaml:"profiles"`
	DefaultProfile string          `mapstructure:"default_profile" yaml:"default_profile"`
	Suspend        SuspendConfig   `mapstructure:"suspend" yaml:"suspend"`
	Tabs           TabsConfig      `mapstructure:"tabs" yaml:"tabs"`
	HTTP           HTTPConfig      `mapstructure:"http" yaml:"http"`
	Logging        LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// ProfileConfig declares a browsing profile and its isolated storage partition.
type ProfileConfig struct {
	ID         string `mapstructure:"id" yaml:"id"`
	Name       string `mapstructure:"name" yaml:"name"`
	DefaultURL string `mapstructure:"default_url" yaml:"default_url"`
}

// SuspendConfig controls the inactivity sweeper.
type SuspendConfig struct {
	Enabled              bool `mapstructure:"enabled" yaml:"enabled"`
	Minutes              int  `mapstructure:"minutes" yaml:"minutes"`
	ExcludeActiveProfile bool `mapstructure:"exclude_active_profile" yaml:"exclude_active_profile"`
}

// TabsConfig controls tab lifecycle behavior.
type TabsConfig struct {
	SwitchBehavior       string `mapstructure:"switch_behavior" yaml:"switch_behavior"`
	LoadStrategy         string `mapstructure:"load_strategy" yaml:"load_strategy"`
	ClosedMax            int    `mapstructure:"closed_max" yaml:"closed_max"`
	SweepIntervalSeconds int    `mapstructure:"sweep_interval_seconds" yaml:"sweep_interval_seconds"`
}

// HTTPConfig configures the control API server.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LoggingConfig controls event logging behavior.
type LoggingConfig struct {
	DisableEventLog bool `mapstructure:"disable_event_log" yaml:"disable_event_log"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".tabwell", "state"),
		Profiles: []ProfileConfig{
			{ID: "default", Name: "Default", DefaultURL: "about:blank"},
		},
		DefaultProfile: "default",
		Suspend: SuspendConfig{
			Enabled:              true,
			Minutes:              schema.DefaultAutoSuspendMinutes,
			ExcludeActiveProfile: false,
		},
		Tabs: TabsConfig{
			SwitchBehavior:       string(schema.SwitchKeep),
			LoadStrategy:         string(schema.LoadLazy),
			ClosedMax:            schema.DefaultClosedTabMax,
			SweepIntervalSeconds: int(schema.DefaultSweepInterval / time.Second),
		},
		HTTP: HTTPConfig{
			Addr: "127.0.0.1:27490",
		},
		Logging: LoggingConfig{
			DisableEventLog: false,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tabwell", "config.yaml"), nil
}

// ServiceConfig converts the file config into the core service config.
func (c Config) ServiceConfig() schema.ServiceConfig {
	profiles := make([]schema.ProfileRef, 0, len(c.Profiles))
	for _, p := range c.Profiles {
		profiles = append(profiles, schema.ProfileRef{
			ID:         schema.ProfileID(p.ID),
			Name:       p.Name,
			DefaultURL: p.DefaultURL,
		})
	}
	return schema.ServiceConfig{
		StateDir:       c.StateDir,
		Profiles:       profiles,
		DefaultProfile: schema.ProfileID(c.DefaultProfile),
		ClosedTabMax:   c.Tabs.ClosedMax,
		SweepInterval:  time.Duration(c.Tabs.SweepIntervalSeconds) * time.Second,
	}
}

// Settings converts the file config into the runtime settings.
func (c Config) Settings() schema.Settings {
	return schema.Settings{
		AutoSuspendEnabled:    c.Suspend.Enabled,
		AutoSuspendMinutes:    c.Suspend.Minutes,
		ExcludeActiveProfile:  c.Suspend.ExcludeActiveProfile,
		ProfileSwitchBehavior: schema.SwitchBehavior(c.Tabs.SwitchBehavior),
		TabLoadingStrategy:    schema.LoadStrategy(c.Tabs.LoadStrategy),
	}
}
