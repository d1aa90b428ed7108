package main

import (
	"fmt"
	"time"

	"github.com/poiesic/babel/core"
	"github.com/poiesic/babel/search"
	"github.com/urfave/cli/v2"
)

func phraseArg(c *cli.Context, i int) (string, error) {
	if c.NArg() <= i {
		return "", fmt.Errorf("missing phrase argument")
	}
	return c.Args().Get(i), nil
}

// randSeed returns --seed, or a clock-derived seed when it is not set.
func randSeed(c *cli.Context) uint64 {
	if c.IsSet("seed") {
		return c.Uint64("seed")
	}
	return uint64(time.Now().UnixNano())
}

func seedFlag() cli.Flag {
	return &cli.Uint64Flag{Name: "seed", Usage: "Random seed, for repeatable runs"}
}

func maxSeedFlag() cli.Flag {
	return &cli.Int64Flag{Name: "max-seed", Usage: "Highest address to sample", Value: int64(search.DefaultMaxSeed)}
}

func evolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "evolve",
		Usage:     "Search for a phrase by breeding addresses whose pages come close",
		ArgsUsage: "<phrase>",
		Flags: []cli.Flag{
			lengthFlag(),
			&cli.IntFlag{Name: "population", Usage: "Addresses per generation", Value: search.DefaultPopulation},
			&cli.IntFlag{Name: "generations", Usage: "Maximum generations", Value: search.DefaultGenerations},
			&cli.Float64Flag{Name: "mutation-rate", Usage: "Percent of an address a mutation may move it", Value: search.DefaultMutationRate},
			&cli.IntFlag{Name: "max", Usage: "Stop after this many matches (0 runs every generation)"},
			maxSeedFlag(),
			seedFlag(),
		},
		Action: func(c *cli.Context) error {
			phrase, err := phraseArg(c, 0)
			if err != nil {
				return err
			}
			engine, err := search.New(search.WithPageLength(c.Int("length")))
			if err != nil {
				return err
			}
			evo, err := engine.Evolve(c.Context, phrase, search.EvolveConfig{
				Population:   c.Int("population"),
				Generations:  c.Int("generations"),
				MutationRate: c.Float64("mutation-rate"),
				MaxSeed:      core.Address(c.Int64("max-seed")),
				RandSeed:     randSeed(c),
				MaxResults:   c.Int("max"),
			})
			if err != nil {
				return err
			}

			for i := range evo.Results {
				printResult(c.App.Writer, &evo.Results[i])
			}
			for i := range evo.NearMisses {
				printResult(c.App.Writer, &evo.NearMisses[i])
			}
			fmt.Fprintf(c.App.ErrWriter, "%d generations, %d pages, best %d (%.2f)\n",
				evo.Generations, evo.Evaluated, evo.Best.Address, evo.Best.Fitness)
			return nil
		},
	}
}

func partialCommand() *cli.Command {
	return &cli.Command{
		Name:      "partial",
		Usage:     "Find the parts of a page that resemble a phrase",
		ArgsUsage: "<address|coordinate> <phrase>",
		Flags: []cli.Flag{
			lengthFlag(),
			&cli.IntFlag{Name: "min", Usage: "Shortest window to consider", Value: 3},
		},
		Action: func(c *cli.Context) error {
			address, err := locationArg(c, 0)
			if err != nil {
				return err
			}
			phrase, err := phraseArg(c, 1)
			if err != nil {
				return err
			}
			engine, err := search.New(search.WithPageLength(c.Int("length")))
			if err != nil {
				return err
			}
			page, err := engine.Page(address)
			if err != nil {
				return err
			}
			matches, err := search.PartialMatches(page, phrase, c.Int("min"))
			if err != nil {
				return err
			}
			for _, m := range matches {
				fmt.Fprintf(c.App.Writer, "%d\t%q\t%.2f%%\n", m.Offset, m.Text, m.Similarity)
			}
			return nil
		},
	}
}

func lookupCommand() *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "Sample random addresses for pages containing some text",
		ArgsUsage: "<text>",
		Flags: []cli.Flag{
			lengthFlag(),
			&cli.IntFlag{Name: "samples", Usage: "Addresses to sample", Value: 10000},
			&cli.IntFlag{Name: "max", Usage: "Stop after this many hits", Value: 50},
			maxSeedFlag(),
			seedFlag(),
		},
		Action: func(c *cli.Context) error {
			text, err := phraseArg(c, 0)
			if err != nil {
				return err
			}
			engine, err := search.New(search.WithPageLength(c.Int("length")))
			if err != nil {
				return err
			}
			hits, err := engine.RandomLookup(c.Context, text, c.Int("samples"), c.Int("max"),
				core.Address(c.Int64("max-seed")), randSeed(c))
			if err != nil {
				return err
			}
			for _, h := range hits {
				fmt.Fprintf(c.App.Writer, "%d\t%d\t%s\n", h.Result.Address, h.Result.Offset, h.Context)
			}
			fmt.Fprintf(c.App.ErrWriter, "%d hits\n", len(hits))
			return nil
		},
	}
}
