package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lydakis/richpresence/internal/activity"
	"github.com/lydakis/richpresence/internal/logging"
)

// Validate checks configuration invariants and returns actionable errors.
func Validate(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	var errs []error
	errs = append(errs, validateClientID(cfg.ClientID)...)

	if !logging.ValidLevel(cfg.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level: unsupported value %q (debug, info, warn, error)", cfg.Log.Level))
	}
	if !logging.ValidFormat(cfg.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format: unsupported value %q (console, json)", cfg.Log.Format))
	}

	if err := activity.Validate(cfg.Activity.Build(time.Unix(0, 0))); err != nil {
		errs = append(errs, fmt.Errorf("activity: %w", err))
	}

	return errors.Join(errs...)
}

// ValidateForCurrentEnv checks config invariants after expanding ${ENV_VAR}
// placeholders against the current process environment.
func ValidateForCurrentEnv(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	expanded := cloneConfig(cfg)
	expandConfigEnvVars(expanded)
	return Validate(expanded)
}

func cloneConfig(cfg *Config) *Config {
	if cfg == nil {
		return nil
	}
	cloned := *cfg
	cloned.Activity.Buttons = append([]ButtonConfig(nil), cfg.Activity.Buttons...)
	return &cloned
}

func validateClientID(id string) []error {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return []error{errors.New("client_id: missing, set it in the config file or pass --client-id")}
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return []error{fmt.Errorf("client_id: %q must be the numeric application id", id)}
		}
	}
	return nil
}
