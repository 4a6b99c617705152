package appconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("default_profile", cfg.DefaultProfile)
	v.SetDefault("suspend.enabled", cfg.Suspend.Enabled)
	v.SetDefault("suspend.minutes", cfg.Suspend.Minutes)
	v.SetDefault("suspend.exclude_active_profile", cfg.Suspend.ExcludeActiveProfile)
	v.SetDefault("tabs.switch_behavior", cfg.Tabs.SwitchBehavior)
	v.SetDefault("tabs.load_strategy", cfg.Tabs.LoadStrategy)
	v.SetDefault("tabs.closed_max", cfg.Tabs.ClosedMax)
	v.SetDefault("tabs.sweep_interval_seconds", cfg.Tabs.SweepIntervalSeconds)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("logging.disable_event_log", cfg.Logging.DisableEventLog)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if configLoaded && v.IsSet("profiles") {
		// viper merges list defaults poorly; take the file's list verbatim.
		cfg.Profiles = cfg.Profiles[:0]
		if err := v.UnmarshalKey("profiles", &cfg.Profiles); err != nil {
			return Config{}, err
		}
	}
	expandConfigEnv(&cfg)
	return cfg, nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	for i := range cfg.Profiles {
		cfg.Profiles[i].DefaultURL = expandEnv(cfg.Profiles[i].DefaultURL)
	}
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
