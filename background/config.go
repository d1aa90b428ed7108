package background

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/poiesic/babel/core"
	"github.com/poiesic/babel/library"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultName is the checkpoint name used when none is configured.
const DefaultName = "background"

// Config holds the tunables of a background scan.
type Config struct {
	// Name identifies the scan's checkpoint
	Name string

	// Workers is the number of concurrent workers, and the address stride
	Workers int

	// PageLength is the length of generated pages
	PageLength int

	// CheckpointInterval is how far, in addresses, the confirmed frontier
	// must advance before a checkpoint is written
	CheckpointInterval int64

	// ReportEvery is how many pages a worker scans between progress reports
	ReportEvery int

	// GracePeriod is how long Stop waits for workers before abandoning them
	GracePeriod time.Duration

	// RateLimit caps pages per second per worker; 0 means unlimited
	RateLimit float64

	// EventBuffer is the capacity of the Events channel
	EventBuffer int

	// RetryDelay is the delay before the single checkpoint retry
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:               DefaultName,
		Workers:            max(runtime.NumCPU()/2, 1),
		PageLength:         core.DefaultPageLength,
		CheckpointInterval: 10000,
		ReportEvery:        100,
		GracePeriod:        5 * time.Second,
		EventBuffer:        256,
		RetryDelay:         100 * time.Millisecond,
	}
}

// Validate checks every field of the configuration.
func (c *Config) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers %d must be at least 1", ErrInvalidConfig, c.Workers)
	case c.CheckpointInterval < 1:
		return fmt.Errorf("%w: checkpoint interval %d must be at least 1", ErrInvalidConfig, c.CheckpointInterval)
	case c.ReportEvery < 1:
		return fmt.Errorf("%w: report interval %d must be at least 1", ErrInvalidConfig, c.ReportEvery)
	case c.GracePeriod < 0:
		return fmt.Errorf("%w: grace period %v is negative", ErrInvalidConfig, c.GracePeriod)
	case c.RateLimit < 0:
		return fmt.Errorf("%w: rate limit %v is negative", ErrInvalidConfig, c.RateLimit)
	case c.EventBuffer < 0:
		return fmt.Errorf("%w: event buffer %d is negative", ErrInvalidConfig, c.EventBuffer)
	case c.RetryDelay < 0:
		return fmt.Errorf("%w: retry delay %v is negative", ErrInvalidConfig, c.RetryDelay)
	}
	return core.ValidateLength(c.PageLength)
}

// Option configures a Coordinator.
type Option func(*Coordinator) error

// WithConfig replaces the whole configuration. Options applied after it
// still override individual fields.
func WithConfig(config *Config) Option {
	return func(c *Coordinator) error {
		if config == nil {
			return fmt.Errorf("%w: nil config", ErrInvalidConfig)
		}
		cfg := *config
		c.config = &cfg
		return nil
	}
}

// WithName sets the checkpoint name.
// Default is DefaultName.
func WithName(name string) Option {
	return func(c *Coordinator) error {
		c.config.Name = name
		return nil
	}
}

// WithWorkers sets the number of workers.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithWorkers(workers int) Option {
	return func(c *Coordinator) error {
		c.config.Workers = workers
		return nil
	}
}

// WithPageLength sets the length of scanned pages.
// Default is core.DefaultPageLength.
func WithPageLength(length int) Option {
	return func(c *Coordinator) error {
		c.config.PageLength = length
		return nil
	}
}

// WithCheckpointInterval sets how many addresses the frontier advances
// between checkpoints. Default is 10000.
func WithCheckpointInterval(interval int64) Option {
	return func(c *Coordinator) error {
		c.config.CheckpointInterval = interval
		return nil
	}
}

// WithReportEvery sets how many pages a worker scans between progress
// reports. Default is 100.
func WithReportEvery(pages int) Option {
	return func(c *Coordinator) error {
		c.config.ReportEvery = pages
		return nil
	}
}

// WithGracePeriod sets how long a stop waits for running workers.
// Default is 5 seconds.
func WithGracePeriod(d time.Duration) Option {
	return func(c *Coordinator) error {
		c.config.GracePeriod = d
		return nil
	}
}

// WithRateLimit caps each worker at pagesPerSecond. Zero disables the cap.
func WithRateLimit(pagesPerSecond float64) Option {
	return func(c *Coordinator) error {
		c.config.RateLimit = pagesPerSecond
		return nil
	}
}

// WithEventBuffer sets the capacity of the Events channel.
// Default is 256.
func WithEventBuffer(size int) Option {
	return func(c *Coordinator) error {
		c.config.EventBuffer = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics registers the coordinator's collectors on reg.
// By default collectors are created but not registered.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Coordinator) error {
		c.registerer = reg
		return nil
	}
}

// WithGenerator replaces the page source.
// Default is library.Generate.
func WithGenerator(generate library.PageSource) Option {
	return func(c *Coordinator) error {
		if generate == nil {
			return fmt.Errorf("%w: nil generator", ErrInvalidConfig)
		}
		c.generate = generate
		return nil
	}
}

// WithClock sets the time source used to stamp results and events.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) error {
		if now != nil {
			c.now = now
		}
		return nil
	}
}

// WithRetryDelay sets the delay before a failed write is retried.
// Default is 100ms.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Coordinator) error {
		c.config.RetryDelay = d
		return nil
	}
}
