package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromExpandsEnvValuesAfterParsing(t *testing.T) {
	t.Setenv("RP_USER", `abc"def`)

	path := filepath.Join(t.TempDir(), "config.toml")
	const raw = `
client_id = "123456"

[activity]
state = "Hacking as ${RP_USER}"
buttons = [{ label = "Profile", url = "https://example.com/${RP_USER}" }]
`
	if err := os.WriteFile(path, []byte(raw), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if got, want := cfg.Activity.State, `Hacking as abc"def`; got != want {
		t.Fatalf("activity.state = %q, want %q", got, want)
	}
	if got, want := cfg.Activity.Buttons[0].URL, `https://example.com/abc"def`; got != want {
		t.Fatalf("button url = %q, want %q", got, want)
	}
}

func TestLoadFromLeavesUnresolvedPlaceholders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	const raw = `client_id = "${RP_SURELY_UNSET_VAR}"`
	if err := os.WriteFile(path, []byte(raw), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.ClientID != "${RP_SURELY_UNSET_VAR}" {
		t.Fatalf("client_id = %q", cfg.ClientID)
	}
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "console" {
		t.Fatalf("defaults = %+v", cfg.Log)
	}
}

func TestLoadFromKeepsDefaultsForUnsetKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	const raw = `
client_id = "1"
[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(raw), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
		t.Fatalf("log = %+v, want debug/console", cfg.Log)
	}
}

func TestLoadFromReportsParseErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("client_id = "), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("LoadFrom() error = nil, want parse error")
	}
}

func TestActivityConfigBuild(t *testing.T) {
	ac := ActivityConfig{
		State:       "Editing",
		LargeImage:  "logo",
		ShowElapsed: true,
		Buttons:     []ButtonConfig{{Label: "Repo", URL: "https://example.com"}},
	}
	now := time.Unix(1700000000, 0)

	a := ac.Build(now)
	if a.State != "Editing" || a.Assets.LargeImage != "logo" {
		t.Fatalf("activity = %+v", a)
	}
	if a.Timestamps == nil || a.Timestamps.Start != now.Unix() || a.Timestamps.End != 0 {
		t.Fatalf("timestamps = %+v", a.Timestamps)
	}
	if len(a.Buttons) != 1 || a.Buttons[0].Label != "Repo" {
		t.Fatalf("buttons = %+v", a.Buttons)
	}

	ac.ShowElapsed = false
	if ac.Build(now).Timestamps != nil {
		t.Fatal("timestamps set without show_elapsed")
	}
}
