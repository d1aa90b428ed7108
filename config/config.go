// Package config loads the babel configuration file.
//
// Every field is optional; Load starts from Default and overlays whatever
// the file sets. Command-line flags take precedence over the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/poiesic/babel/core"
	"gopkg.in/yaml.v3"
)

// Backends accepted in Store.Backend.
const (
	BackendBadger = "badger"
	BackendFiles  = "files"
)

// ErrInvalidConfig is returned when a configuration file is malformed or a
// value is out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root of the configuration file.
type Config struct {
	LogLevel   string     `yaml:"log_level"`
	Store      Store      `yaml:"store"`
	Search     Search     `yaml:"search"`
	Background Background `yaml:"background"`
	Phrases    []string   `yaml:"phrases"`
}

// Store selects the persistence backend.
type Store struct {
	Backend string `yaml:"backend"` // "badger" or "files"
	Path    string `yaml:"path"`
}

// Search holds defaults for one-shot searches.
type Search struct {
	PageLength   int   `yaml:"page_length"`
	AttemptLimit int64 `yaml:"attempt_limit"`
	MaxMatches   int   `yaml:"max_matches"`
	FuzzyWindow  int64 `yaml:"fuzzy_window"`
	FuzzyTopN    int   `yaml:"fuzzy_top_n"`
}

// Background holds defaults for background scans.
type Background struct {
	Name               string        `yaml:"name"`
	Workers            int           `yaml:"workers"`
	CheckpointInterval int64         `yaml:"checkpoint_interval"`
	GracePeriod        time.Duration `yaml:"grace_period"`
	RateLimit          float64       `yaml:"rate_limit"`
	MetricsAddr        string        `yaml:"metrics_addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Store: Store{
			Backend: BackendBadger,
			Path:    "babel.db",
		},
		Search: Search{
			PageLength:   core.DefaultPageLength,
			AttemptLimit: 10000,
			MaxMatches:   1,
			FuzzyWindow:  1000,
			FuzzyTopN:    5,
		},
		Background: Background{
			Name:               "background",
			Workers:            4,
			CheckpointInterval: 10000,
			GracePeriod:        5 * time.Second,
		},
	}
}

// Load reads the YAML file at path over Default. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and normalizes phrases in place.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendBadger, BackendFiles:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Store.Backend)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("%w: store path cannot be empty", ErrInvalidConfig)
	}
	if err := core.ValidateLength(c.Search.PageLength); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Search.AttemptLimit < 0 || c.Search.MaxMatches < 1 || c.Search.FuzzyWindow < 0 || c.Search.FuzzyTopN < 0 {
		return fmt.Errorf("%w: search limits out of range", ErrInvalidConfig)
	}
	if c.Search.FuzzyWindow > 0 && c.Search.FuzzyTopN < 1 {
		return fmt.Errorf("%w: fuzzy_top_n must be at least 1 when fuzzy_window is set", ErrInvalidConfig)
	}
	if c.Background.Workers < 1 || c.Background.CheckpointInterval < 1 {
		return fmt.Errorf("%w: workers and checkpoint interval must be at least 1", ErrInvalidConfig)
	}
	if c.Background.GracePeriod < 0 || c.Background.RateLimit < 0 {
		return fmt.Errorf("%w: grace period and rate limit cannot be negative", ErrInvalidConfig)
	}
	for i, p := range c.Phrases {
		normalized, err := core.ValidatePhrase(p)
		if err != nil {
			return fmt.Errorf("%w: phrase %d: %w", ErrInvalidConfig, i, err)
		}
		c.Phrases[i] = normalized
	}
	return nil
}
