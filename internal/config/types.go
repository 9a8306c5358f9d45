package config

import (
	"time"

	"github.com/lydakis/richpresence/internal/activity"
)

// Config is the top-level richpresence configuration.
type Config struct {
	ClientID string         `toml:"client_id"`
	Socket   string         `toml:"socket,omitempty"`
	Log      LogConfig      `toml:"log"`
	Activity ActivityConfig `toml:"activity"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ActivityConfig holds the default presence used by `richpresence set`.
type ActivityConfig struct {
	State       string         `toml:"state,omitempty"`
	Details     string         `toml:"details,omitempty"`
	LargeImage  string         `toml:"large_image,omitempty"`
	LargeText   string         `toml:"large_text,omitempty"`
	SmallImage  string         `toml:"small_image,omitempty"`
	SmallText   string         `toml:"small_text,omitempty"`
	ShowElapsed bool           `toml:"show_elapsed,omitempty"`
	Buttons     []ButtonConfig `toml:"buttons,omitempty"`
}

// ButtonConfig is a link button.
type ButtonConfig struct {
	Label string `toml:"label"`
	URL   string `toml:"url"`
}

// Build converts the configured defaults into an activity. When ShowElapsed
// is set the start timestamp is now.
func (a ActivityConfig) Build(now time.Time) *activity.Activity {
	act := activity.New().
		SetState(a.State).
		SetDetails(a.Details).
		SetLargeImage(a.LargeImage).
		SetLargeText(a.LargeText).
		SetSmallImage(a.SmallImage).
		SetSmallText(a.SmallText)
	if a.ShowElapsed {
		act.SetTimestamps(now.Unix(), 0)
	}
	for _, b := range a.Buttons {
		act.AddButton(b.Label, b.URL)
	}
	return act
}
