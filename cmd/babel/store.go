package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poiesic/babel/background"
	"github.com/poiesic/babel/core"
	"github.com/poiesic/babel/library"
	"github.com/poiesic/babel/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func printResult(w io.Writer, r *core.SearchResult) {
	coord, _ := library.ToCoordinate(r.Address)
	fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%q", r.Address, coord, r.Offset, r.Kind, r.MatchedText)
	if r.Kind == core.MatchFuzzy {
		fmt.Fprintf(w, "\tscore=%d", r.Score)
	}
	fmt.Fprintln(w)
}

// progressMonitor reports a one-shot search on stderr.
type progressMonitor struct {
	w io.Writer
}

func (m *progressMonitor) Start(query string, start core.Address, limit int64) {
	fmt.Fprintf(m.w, "searching %q from %d (%d pages)\n", query, start, limit)
}

func (m *progressMonitor) Progress(scanned int64, address core.Address) {
	fmt.Fprintf(m.w, "\rscanned %d pages, at %d", scanned, address)
}

func (m *progressMonitor) Match(r *core.SearchResult) {}

func (m *progressMonitor) Finish(scanned int64, results []core.SearchResult) {
	fmt.Fprintf(m.w, "\rscanned %d pages, %d matches\n", scanned, len(results))
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search for a phrase, or a pattern with * and ?",
		ArgsUsage: "<phrase|pattern>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "start", Usage: "First address or coordinate", Value: "0"},
			&cli.Int64Flag{Name: "attempts", Usage: "Number of pages to scan"},
			&cli.IntFlag{Name: "max", Usage: "Stop after this many matches"},
			&cli.Int64Flag{Name: "fuzzy-window", Usage: "Pages rescanned for near misses when nothing matches (0 disables)"},
			&cli.IntFlag{Name: "top", Usage: "Number of near misses to keep"},
			&cli.BoolFlag{Name: "save", Usage: "Store matches in the library"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("missing phrase argument")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			start, err := parseLocation(c.String("start"))
			if err != nil {
				return err
			}

			q := search.Query{
				Text:         c.Args().First(),
				Start:        start,
				AttemptLimit: cfg.Search.AttemptLimit,
				MaxMatches:   cfg.Search.MaxMatches,
				FuzzyWindow:  cfg.Search.FuzzyWindow,
				FuzzyTopN:    cfg.Search.FuzzyTopN,
				Monitor:      &progressMonitor{w: c.App.ErrWriter},
			}
			if c.IsSet("attempts") {
				q.AttemptLimit = c.Int64("attempts")
			}
			if c.IsSet("max") {
				q.MaxMatches = c.Int("max")
			}
			if c.IsSet("fuzzy-window") {
				q.FuzzyWindow = c.Int64("fuzzy-window")
			}
			if c.IsSet("top") {
				q.FuzzyTopN = c.Int("top")
			}

			engine, err := search.New(search.WithPageLength(cfg.Search.PageLength))
			if err != nil {
				return err
			}
			began := time.Now()
			report, err := engine.Search(c.Context, q)
			if err != nil {
				return err
			}

			out := c.App.Writer
			if report.Fuzzy {
				fmt.Fprintln(out, "no exact match; closest pages:")
			}
			results := make([]*core.SearchResult, len(report.Results))
			for i := range report.Results {
				results[i] = &report.Results[i]
				printResult(out, results[i])
			}
			eff := search.MeasureEfficiency(report.Scanned, len(report.Results), time.Since(began))
			fmt.Fprintf(c.App.ErrWriter, "%.0f pages/s\n", eff.PagesPerSecond)

			if !c.Bool("save") || len(results) == 0 {
				return nil
			}
			lib, _, err := openLibrary(c)
			if err != nil {
				return err
			}
			defer lib.Close()
			added, err := lib.Results().AppendResults(c.Context, results...)
			if err != nil {
				return fmt.Errorf("failed to save results: %w", err)
			}
			fmt.Fprintf(c.App.ErrWriter, "saved %d new results\n", len(added))
			return nil
		},
	}
}

func estimateCommand() *cli.Command {
	return &cli.Command{
		Name:      "estimate",
		Usage:     "Estimate how long a phrase takes to find",
		ArgsUsage: "<phrase>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "matches", Usage: "Number of matches wanted", Value: 1},
			&cli.Float64Flag{Name: "rate", Usage: "Scan rate in pages per second", Value: 1000},
			lengthFlag(),
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("missing phrase argument")
			}
			engine, err := search.New(search.WithPageLength(c.Int("length")))
			if err != nil {
				return err
			}
			est, err := engine.Estimate(c.Args().First(), c.Int("matches"), c.Float64("rate"))
			if err != nil {
				return err
			}
			out := c.App.Writer
			fmt.Fprintf(out, "page probability: %.6g\n", est.PageProbability)
			fmt.Fprintf(out, "expected pages per match: %.6g\n", est.ExpectedPagesPerMatch)
			fmt.Fprintf(out, "expected pages: %.6g\n", est.ExpectedPagesTotal)
			fmt.Fprintf(out, "estimated time: %s\n", est.EstimatedDuration)
			return nil
		},
	}
}

func backgroundCommand() *cli.Command {
	return &cli.Command{
		Name:  "background",
		Usage: "Scan for the watched phrases until interrupted, resuming from the last checkpoint",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "phrase", Aliases: []string{"p"}, Usage: "Add a phrase to the watch list before starting"},
			&cli.StringFlag{Name: "name", Usage: "Checkpoint name"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Number of workers"},
			&cli.Int64Flag{Name: "checkpoint-interval", Usage: "Addresses between checkpoints"},
			&cli.DurationFlag{Name: "grace", Usage: "How long to wait for workers when stopping"},
			&cli.Float64Flag{Name: "rate", Usage: "Pages per second per worker (0 is unlimited)"},
			&cli.DurationFlag{Name: "duration", Usage: "Stop after this long (0 runs until interrupted)"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "Serve Prometheus metrics on this address, e.g. :9090"},
		},
		Action: backgroundAction,
	}
}

func backgroundAction(c *cli.Context) error {
	lib, cfg, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := c.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	for _, p := range append(cfg.Phrases, c.StringSlice("phrase")...) {
		if _, _, err := lib.Phrases().AddPhrase(ctx, p); err != nil {
			return err
		}
	}

	bg := cfg.Background
	if c.IsSet("name") {
		bg.Name = c.String("name")
	}
	if c.IsSet("workers") {
		bg.Workers = c.Int("workers")
	}
	if c.IsSet("checkpoint-interval") {
		bg.CheckpointInterval = c.Int64("checkpoint-interval")
	}
	if c.IsSet("grace") {
		bg.GracePeriod = c.Duration("grace")
	}
	if c.IsSet("rate") {
		bg.RateLimit = c.Float64("rate")
	}
	if c.IsSet("metrics-addr") {
		bg.MetricsAddr = c.String("metrics-addr")
	}

	opts := []background.Option{
		background.WithName(bg.Name),
		background.WithWorkers(bg.Workers),
		background.WithPageLength(cfg.Search.PageLength),
		background.WithCheckpointInterval(bg.CheckpointInterval),
		background.WithGracePeriod(bg.GracePeriod),
		background.WithRateLimit(bg.RateLimit),
		background.WithProgress(c.App.ErrWriter),
	}
	var reg *prometheus.Registry
	if bg.MetricsAddr != "" {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, background.WithMetrics(reg))
	}

	coordinator, err := lib.NewCoordinator(ctx, opts...)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	var srv *http.Server
	if reg != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv = &http.Server{Addr: bg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	out := c.App.Writer
	g.Go(func() error {
		for ev := range coordinator.Events() {
			if ev.Kind == background.EventMatch {
				printResult(out, ev.Result)
			}
		}
		return nil
	})

	var summary background.Summary
	g.Go(func() error {
		var err error
		summary, err = coordinator.Run(gctx)
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(c.App.ErrWriter, "run %s: scanned %d pages from %d, %d new matches, checkpoint %d\n",
		summary.RunID, summary.Scanned, summary.Resume, summary.Matches, summary.Checkpoint)
	return nil
}

func resultsCommand() *cli.Command {
	return &cli.Command{
		Name:  "results",
		Usage: "List stored results",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "phrase", Usage: "Only show results for this phrase"},
			&cli.BoolFlag{Name: "clear", Usage: "Delete every stored result"},
		},
		Action: func(c *cli.Context) error {
			lib, _, err := openLibrary(c)
			if err != nil {
				return err
			}
			defer lib.Close()

			if c.Bool("clear") {
				return lib.Results().ClearResults(c.Context)
			}
			results, err := lib.Results().ListResults(c.Context)
			if err != nil {
				return err
			}
			filter := core.NormalizePhrase(c.String("phrase"))
			for _, r := range results {
				if filter == "" || r.Phrase == filter {
					printResult(c.App.Writer, r)
				}
			}
			return nil
		},
	}
}

func phrasesCommand() *cli.Command {
	return &cli.Command{
		Name:  "phrases",
		Usage: "Manage the watched phrases",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Watch a phrase",
				ArgsUsage: "<phrase>...",
				Action: func(c *cli.Context) error {
					lib, _, err := openLibrary(c)
					if err != nil {
						return err
					}
					defer lib.Close()
					for _, p := range c.Args().Slice() {
						phrase, added, err := lib.Phrases().AddPhrase(c.Context, p)
						if err != nil {
							return err
						}
						if !added {
							fmt.Fprintf(c.App.ErrWriter, "already watching %q\n", phrase)
						}
					}
					return nil
				},
			},
			{
				Name:      "remove",
				Usage:     "Stop watching a phrase",
				ArgsUsage: "<phrase>...",
				Action: func(c *cli.Context) error {
					lib, _, err := openLibrary(c)
					if err != nil {
						return err
					}
					defer lib.Close()
					for _, p := range c.Args().Slice() {
						if err := lib.Phrases().RemovePhrase(c.Context, p); err != nil {
							return err
						}
					}
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List watched phrases",
				Action: func(c *cli.Context) error {
					lib, _, err := openLibrary(c)
					if err != nil {
						return err
					}
					defer lib.Close()
					phrases, err := lib.Phrases().ListPhrases(c.Context)
					if err != nil {
						return err
					}
					for _, p := range phrases {
						fmt.Fprintln(c.App.Writer, p)
					}
					return nil
				},
			},
		},
	}
}

func progressCommand() *cli.Command {
	return &cli.Command{
		Name:  "progress",
		Usage: "Show the checkpoint of a background scan",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Checkpoint name", Value: background.DefaultName},
		},
		Action: func(c *cli.Context) error {
			lib, _, err := openLibrary(c)
			if err != nil {
				return err
			}
			defer lib.Close()

			p, err := lib.Progress(c.Context, c.String("name"))
			if err != nil {
				return err
			}
			out := c.App.Writer
			if p.Checkpoint == nil {
				fmt.Fprintf(out, "%s: no checkpoint\n", p.Name)
			} else {
				coord, _ := library.ToCoordinate(p.Checkpoint.LastAddress)
				fmt.Fprintf(out, "%s: resume at %d (%s), saved %s\n",
					p.Name, p.Checkpoint.LastAddress, coord, p.Checkpoint.UpdatedAt.Format(time.RFC3339))
			}
			fmt.Fprintf(out, "results: %d\nphrases: %d\n", p.Results, len(p.Phrases))
			return nil
		},
	}
}
