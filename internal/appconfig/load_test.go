package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 99
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ConfigVersion != CurrentConfigVersion {
		t.Fatalf("expected version %d, got %d", CurrentConfigVersion, cfg.ConfigVersion)
	}
	if len(cfg.Profiles) != 1 || cfg.Profiles[0].ID != "default" {
		t.Fatalf("expected default profile, got %+v", cfg.Profiles)
	}
	if cfg.Tabs.SwitchBehavior != "keep" {
		t.Fatalf("expected keep behavior, got %q", cfg.Tabs.SwitchBehavior)
	}
}

func TestLoadReplacesProfileList(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
default_profile: work
profiles:
  - id: work
    name: Work
    default_url: https://intranet.example.com
  - id: personal
    name: Personal
tabs:
  switch_behavior: suspend
  load_strategy: eager
suspend:
  enabled: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %+v", cfg.Profiles)
	}
	if cfg.Profiles[0].ID != "work" || cfg.Profiles[1].ID != "personal" {
		t.Fatalf("unexpected profiles: %+v", cfg.Profiles)
	}
	if cfg.DefaultProfile != "work" {
		t.Fatalf("expected default_profile work, got %q", cfg.DefaultProfile)
	}
	if cfg.Tabs.SwitchBehavior != "suspend" || cfg.Tabs.LoadStrategy != "eager" {
		t.Fatalf("unexpected tabs config: %+v", cfg.Tabs)
	}
	if cfg.Suspend.Enabled {
		t.Fatalf("expected suspend disabled")
	}
	service := cfg.ServiceConfig()
	if len(service.Profiles) != 2 || service.DefaultProfile != "work" {
		t.Fatalf("unexpected service config: %+v", service)
	}
	settings := cfg.Settings()
	if string(settings.ProfileSwitchBehavior) != "suspend" {
		t.Fatalf("unexpected settings: %+v", settings)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config to exist: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
