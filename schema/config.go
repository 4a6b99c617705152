package schema

import (
	"errors"
	"os"
	"path/filepath"
	"time"
)

// ServiceConfig defines defaults and limits for the lifecycle core.
type ServiceConfig struct {
	StateDir       string
	Profiles       []ProfileRef
	DefaultProfile ProfileID
	ClosedTabMax   int
	SweepInterval  time.Duration
}

// Settings captures the user-tunable lifecycle behavior. Unlike ServiceConfig
// these can change while the process runs.
type Settings struct {
	AutoSuspendEnabled    bool
	AutoSuspendMinutes    int
	ExcludeActiveProfile  bool
	ProfileSwitchBehavior SwitchBehavior
	TabLoadingStrategy    LoadStrategy
}

// DefaultClosedTabMax bounds the reopen-closed-tab ring buffer.
const DefaultClosedTabMax = 10

// DefaultSweepInterval is the inactivity sweeper tick period.
const DefaultSweepInterval = time.Minute

// DefaultAutoSuspendMinutes is the idle threshold applied when none is configured.
const DefaultAutoSuspendMinutes = 30

// NormalizeServiceConfig applies defaults and validates the config.
func NormalizeServiceConfig(cfg ServiceConfig) (ServiceConfig, error) {
	if cfg.StateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ServiceConfig{}, err
		}
		cfg.StateDir = filepath.Join(home, ".tabwell", "state")
	}
	if cfg.ClosedTabMax <= 0 {
		cfg.ClosedTabMax = DefaultClosedTabMax
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if len(cfg.Profiles) == 0 {
		return ServiceConfig{}, errors.New("at least one profile is required")
	}
	seen := make(map[ProfileID]bool, len(cfg.Profiles))
	for _, profile := range cfg.Profiles {
		if profile.ID == "" {
			return ServiceConfig{}, errors.New("profile id must not be empty")
		}
		if seen[profile.ID] {
			return ServiceConfig{}, errors.New("duplicate profile id: " + string(profile.ID))
		}
		seen[profile.ID] = true
	}
	if cfg.DefaultProfile == "" {
		cfg.DefaultProfile = cfg.Profiles[0].ID
	}
	if !seen[cfg.DefaultProfile] {
		return ServiceConfig{}, errors.New("default profile is not configured: " + string(cfg.DefaultProfile))
	}
	return cfg, nil
}

// NormalizeSettings applies defaults and validates setting values.
func NormalizeSettings(settings Settings) (Settings, error) {
	if settings.AutoSuspendMinutes <= 0 {
		settings.AutoSuspendMinutes = DefaultAutoSuspendMinutes
	}
	switch settings.ProfileSwitchBehavior {
	case "":
		settings.ProfileSwitchBehavior = SwitchKeep
	case SwitchKeep, SwitchSuspend, SwitchClose:
	default:
		return Settings{}, ErrInvalidBehavior
	}
	switch settings.TabLoadingStrategy {
	case "":
		settings.TabLoadingStrategy = LoadLazy
	case LoadLazy, LoadEager:
	default:
		return Settings{}, ErrInvalidStrategy
	}
	return settings, nil
}

// IdleThreshold returns the configured idle duration before suspension.
func (s Settings) IdleThreshold() time.Duration {
	return time.Duration(s.AutoSuspendMinutes) * time.Minute
}
