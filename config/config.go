// Package config provides human-readable (YAML) configuration for
// dispatchers: the default suspend timeout and the timeout policy.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/carlavmott/jersey/dispatch"
)

// DispatcherConfig is the root structure for dispatcher settings (e.g. from
// YAML):
//
//	default_timeout: 30s
//	on_timeout: respond
type DispatcherConfig struct {
	// DefaultTimeout is the suspend deadline applied when a context
	// suspends without an explicit duration. Empty or "never" means
	// suspended invocations wait indefinitely.
	DefaultTimeout Duration `yaml:"default_timeout"`

	// OnTimeout selects the deadline policy: "respond" (resume with the
	// fallback response, cancel if none was set) or "cancel" (always
	// cancel). Default "respond".
	OnTimeout string `yaml:"on_timeout"`
}

// Duration is a time.Duration that unmarshals from YAML strings (e.g. "60s",
// "5m"). The string "never" (or an empty string) yields zero, which the
// dispatch package treats as "no deadline".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" || s == "never" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the standard time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Parse parses YAML bytes into a DispatcherConfig.
func Parse(data []byte) (*DispatcherConfig, error) {
	var cfg DispatcherConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.Policy(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Policy returns the dispatch.TimeoutPolicy selected by OnTimeout.
func (c *DispatcherConfig) Policy() (dispatch.TimeoutPolicy, error) {
	switch c.OnTimeout {
	case "", "respond":
		return dispatch.RespondOnTimeout, nil
	case "cancel":
		return dispatch.CancelOnTimeout, nil
	default:
		return 0, fmt.Errorf("on_timeout %q: must be \"respond\" or \"cancel\"", c.OnTimeout)
	}
}

// Options builds dispatch options from the config. Recorder, callback,
// converter, and logger are wiring, not configuration; set them on the
// returned options before calling dispatch.New.
func Options[Q, S any](c *DispatcherConfig) (*dispatch.Options[Q, S], error) {
	policy, err := c.Policy()
	if err != nil {
		return nil, err
	}
	return &dispatch.Options[Q, S]{
		DefaultTimeout: c.DefaultTimeout.Duration(),
		Policy:         policy,
	}, nil
}
