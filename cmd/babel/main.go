// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/babel"
	"github.com/poiesic/babel/config"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "babel",
		Usage: "Explore and search the Library of Babel",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the library store (overrides the config file)",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Store backend: badger or files (overrides the config file)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			generateCommand(),
			coordsCommand(),
			compareCommand(),
			neighborsCommand(),
			partialCommand(),
			searchCommand(),
			evolveCommand(),
			lookupCommand(),
			estimateCommand(),
			backgroundCommand(),
			resultsCommand(),
			phrasesCommand(),
			progressCommand(),
		},
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := c.String("log-level")
	if !c.IsSet("log-level") && c.String("config") != "" {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		levelStr = cfg.LogLevel
	}

	level, err := parseLevel(levelStr)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadConfig reads --config, or the defaults, and applies the global
// store overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if c.IsSet("db") {
		cfg.Store.Path = c.String("db")
	}
	if c.IsSet("backend") {
		cfg.Store.Backend = c.String("backend")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openLibrary opens the configured store. Caller must Close it.
func openLibrary(c *cli.Context) (*babel.Library, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	lib, err := babel.OpenConfig(cfg, babel.WithLogger(slog.Default()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open library: %w", err)
	}
	return lib, cfg, nil
}
