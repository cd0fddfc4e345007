package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
)

func TestLoadCreatesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProfilePath == "" {
		t.Error("default ProfilePath empty")
	}
	if !cfg.Web.Enabled || cfg.Web.Port == 0 {
		t.Errorf("web defaults = %+v", cfg.Web)
	}
	if !cfg.Tray.Enabled || !cfg.History.Enabled {
		t.Errorf("tray/history defaults = %+v %+v", cfg.Tray, cfg.History)
	}

	// the default file must have been written
	path, err := ConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config not written: %v", err)
	}
}

func TestLoadExisting(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	configDir := filepath.Join(dir, "keypadd")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	content := `
profile_path = "/tmp/custom-keymap.json"

[web]
enabled = false
port = 9001
`
	if err := os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProfilePath != "/tmp/custom-keymap.json" {
		t.Errorf("ProfilePath = %q", cfg.ProfilePath)
	}
	if cfg.Web.Enabled || cfg.Web.Port != 9001 {
		t.Errorf("web = %+v", cfg.Web)
	}
	// sections absent from the file keep their defaults
	if !cfg.Tray.Enabled {
		t.Error("tray default lost on partial config")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	want := &Config{
		ProfilePath: "/home/u/.keymap.json",
		Web:         WebConfig{Enabled: true, Port: 8080},
		Tray:        TrayConfig{Enabled: false},
		History:     HistoryConfig{Enabled: true},
	}
	if err := save(path, want); err != nil {
		t.Fatal(err)
	}

	got := &Config{}
	if _, err := toml.DecodeFile(path, got); err != nil {
		t.Fatal(err)
	}
	if *got != *want {
		t.Errorf("round trip: got %+v, want %+v", got, want)
	}
}
