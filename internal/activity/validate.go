package activity

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// MaxButtons is the number of buttons the desktop client renders.
const MaxButtons = 2

// Validate checks activity invariants and returns actionable errors.
func Validate(a *Activity) error {
	if a == nil {
		return errors.New("activity is nil")
	}

	var errs []error
	if a.Timestamps != nil {
		ts := a.Timestamps
		if ts.Start < 0 || ts.End < 0 {
			errs = append(errs, fmt.Errorf("timestamps must not be negative"))
		}
		if ts.End != 0 && ts.End < ts.Start {
			errs = append(errs, fmt.Errorf("timestamps: end %d is before start %d", ts.End, ts.Start))
		}
	}

	if len(a.Buttons) > MaxButtons {
		errs = append(errs, fmt.Errorf("at most %d buttons are allowed, got %d", MaxButtons, len(a.Buttons)))
	}
	for i, b := range a.Buttons {
		if strings.TrimSpace(b.Label) == "" {
			errs = append(errs, fmt.Errorf("button %d: label is required", i+1))
		}
		if err := validateButtonURL(b.URL); err != nil {
			errs = append(errs, fmt.Errorf("button %d: %w", i+1, err))
		}
	}

	return errors.Join(errs...)
}

func validateButtonURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}
