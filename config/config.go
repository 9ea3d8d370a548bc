// Package config provides YAML configuration parsing for PollBoard.
//
// This package enables running PollBoard as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Drone Fleet
//	port: 8080
//	poll_interval: 3s
//
//	widgets:
//	  - region: drone-status-list
//	    name: Drones
//	    url: ${DRONE_API:-http://localhost:9999}/drones/status
//	    last_seen_field: last_seen
//
//	  - region: data-list
//	    name: Position
//	    url: ${DRONE_API:-http://localhost:9999}/position
//	    shape: primitive
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"github.com/jpalmerr/pollboard"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort         = 8080
	defaultPollInterval = 3 * time.Second

	// minPollInterval keeps a typo in the config from hammering an upstream.
	minPollInterval = 1 * time.Second
)

// Config is the root configuration structure for PollBoard.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "PollBoard" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// PollInterval is the fixed period between refreshes of every widget.
	// Accepts duration strings like "3s", "1m". Defaults to 3s.
	PollInterval Duration `yaml:"poll_interval"`

	// StaleDiscard drops responses that settle after a newer refresh of the
	// same widget has already rendered.
	StaleDiscard bool `yaml:"stale_discard"`

	// Widgets binds polled sources to dashboard regions.
	Widgets []WidgetConfig `yaml:"widgets"`
}

// WidgetConfig defines one polled source and the region it renders into.
type WidgetConfig struct {
	// Region is the dashboard region id, e.g. "drone-status-list".
	Region string `yaml:"region"`

	// Name is the display name shown above the region. Defaults to Region.
	Name string `yaml:"name"`

	// URL is the resource fetched on every refresh.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Shape is "object" (default) or "primitive".
	Shape string `yaml:"shape"`

	// IDField is the identifier field for object records. Defaults to drone_id.
	IDField string `yaml:"id_field"`

	// StatusField is the status field for object records. Defaults to status.
	StatusField string `yaml:"status_field"`

	// LastSeenField is the optional last-observed field. Defaults to last_seen.
	LastSeenField string `yaml:"last_seen_field"`

	// Headers are custom HTTP headers sent with each request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Timeout is the request timeout. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in URL and header values.
// Defaults are applied for Port (8080), PollInterval (3s) and each widget's
// Name and Shape.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(defaultPollInterval)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}

	if len(c.Widgets) == 0 {
		return errors.New("at least one widget must be defined")
	}

	seen := make(map[string]int, len(c.Widgets))
	for i := range c.Widgets {
		w := &c.Widgets[i]

		if w.Region == "" {
			return fmt.Errorf("widgets[%d]: region is required", i)
		}
		if prev, ok := seen[w.Region]; ok {
			return fmt.Errorf("widgets[%d] (%s): region already used by widgets[%d]", i, w.Region, prev)
		}
		seen[w.Region] = i

		if w.Name == "" {
			w.Name = w.Region
		}

		if w.URL == "" {
			return fmt.Errorf("widgets[%d] (%s): url is required", i, w.Region)
		}
		expanded, err := expandEnvVars(w.URL)
		if err != nil {
			return fmt.Errorf("widgets[%d] (%s): url: %w", i, w.Region, err)
		}
		w.URL = expanded

		parsedURL, err := url.Parse(w.URL)
		if err != nil {
			return fmt.Errorf("widgets[%d] (%s): invalid url: %w", i, w.Region, err)
		}
		if parsedURL.Scheme == "" {
			return fmt.Errorf("widgets[%d] (%s): url must have a scheme (http:// or https://)", i, w.Region)
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("widgets[%d] (%s): url scheme must be http or https, got %q", i, w.Region, parsedURL.Scheme)
		}

		shape, err := pollboard.ParseShape(w.Shape)
		if err != nil {
			return fmt.Errorf("widgets[%d] (%s): %w", i, w.Region, err)
		}
		w.Shape = string(shape)

		for k, v := range w.Headers {
			expanded, err := expandEnvVars(v)
			if err != nil {
				return fmt.Errorf("widgets[%d] (%s): headers[%s]: %w", i, w.Region, k, err)
			}
			w.Headers[k] = expanded
		}

		if w.Timeout != 0 {
			if w.Timeout.Duration() < 0 {
				return fmt.Errorf("widgets[%d] (%s): timeout cannot be negative, got %s",
					i, w.Region, w.Timeout.Duration())
			}
			if w.Timeout.Duration() < time.Second {
				return fmt.Errorf("widgets[%d] (%s): timeout must be at least 1s if specified, got %s",
					i, w.Region, w.Timeout.Duration())
			}
		}
	}

	return nil
}
