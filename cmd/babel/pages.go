package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/babel/compare"
	"github.com/poiesic/babel/core"
	"github.com/poiesic/babel/library"
	"github.com/poiesic/babel/search"
	"github.com/urfave/cli/v2"
)

// parseLocation accepts a decimal address or a coordinate like H0:W1:S2:V3:P4.
func parseLocation(s string) (core.Address, error) {
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(s)), "H") {
		coord, err := library.ParseCoordinate(strings.ToUpper(s))
		if err != nil {
			return 0, err
		}
		return library.ToAddress(coord)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is neither an address nor a coordinate", core.ErrInvalidAddress, s)
	}
	address := core.Address(n)
	return address, core.ValidateAddress(address)
}

func locationArg(c *cli.Context, i int) (core.Address, error) {
	if c.NArg() <= i {
		return 0, fmt.Errorf("missing address argument %d", i+1)
	}
	return parseLocation(c.Args().Get(i))
}

func lengthFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "length",
		Usage: "Page length",
		Value: core.DefaultPageLength,
	}
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Print the page at an address or coordinate",
		ArgsUsage: "<address|coordinate>",
		Flags: []cli.Flag{
			lengthFlag(),
			&cli.BoolFlag{
				Name:  "stats",
				Usage: "Print page statistics after the page",
			},
		},
		Action: func(c *cli.Context) error {
			address, err := locationArg(c, 0)
			if err != nil {
				return err
			}
			page, err := library.Generate(address, c.Int("length"))
			if err != nil {
				return err
			}
			coord, err := library.ToCoordinate(address)
			if err != nil {
				return err
			}

			out := c.App.Writer
			fmt.Fprintf(out, "%d %s\n%s\n", address, coord, page)
			if c.Bool("stats") {
				s := compare.Statistics(page)
				fmt.Fprintf(out, "digest: %s\nentropy: %.4f\nunique symbols: %d\n", s.Digest, s.Entropy, s.UniqueSymbols)
			}
			return nil
		},
	}
}

func coordsCommand() *cli.Command {
	return &cli.Command{
		Name:      "coords",
		Usage:     "Convert between addresses and coordinates",
		ArgsUsage: "<address|coordinate>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "grid",
				Usage: "Also print a grid of this size around the address",
			},
		},
		Action: func(c *cli.Context) error {
			address, err := locationArg(c, 0)
			if err != nil {
				return err
			}
			coord, err := library.ToCoordinate(address)
			if err != nil {
				return err
			}

			out := c.App.Writer
			fmt.Fprintf(out, "%d %s\n", address, coord)
			if size := c.Int("grid"); size > 0 {
				for _, row := range library.Grid(address, size) {
					cells := make([]string, len(row))
					for i, a := range row {
						cells[i] = strconv.FormatInt(int64(a), 10)
					}
					fmt.Fprintln(out, strings.Join(cells, "\t"))
				}
			}
			return nil
		},
	}
}

func compareCommand() *cli.Command {
	return &cli.Command{
		Name:      "compare",
		Usage:     "Compare two pages",
		ArgsUsage: "<address|coordinate> <address|coordinate>",
		Flags: []cli.Flag{
			lengthFlag(),
			&cli.IntFlag{
				Name:  "diff",
				Usage: "Print differing regions with this much context (0 disables)",
			},
		},
		Action: func(c *cli.Context) error {
			a, err := locationArg(c, 0)
			if err != nil {
				return err
			}
			b, err := locationArg(c, 1)
			if err != nil {
				return err
			}
			pageA, err := library.Generate(a, c.Int("length"))
			if err != nil {
				return err
			}
			pageB, err := library.Generate(b, c.Int("length"))
			if err != nil {
				return err
			}

			cmp := compare.Compare(pageA, pageB)
			out := c.App.Writer
			fmt.Fprintf(out, "identical: %t\n", cmp.Identical)
			fmt.Fprintf(out, "similarity: %.2f%%\n", cmp.Similarity)
			fmt.Fprintf(out, "edit distance: %d\n", cmp.EditDistance)
			fmt.Fprintf(out, "longest common: %q (%d)\n", cmp.LongestCommon, cmp.LongestCommonLength)
			fmt.Fprintf(out, "entropy: %.4f / %.4f\n", cmp.EntropyA, cmp.EntropyB)
			fmt.Fprintf(out, "frequency distance: %.4f\n", cmp.FrequencyDistance)
			fmt.Fprintf(out, "pattern overlap: %.4f (%d common)\n", cmp.PatternOverlap, cmp.CommonPatterns)

			if ctxSize := c.Int("diff"); ctxSize > 0 {
				for _, r := range compare.DiffRegions(pageA, pageB, ctxSize) {
					fmt.Fprintf(out, "@%d+%d\n  a: %s\n  b: %s\n", r.Position, r.Length, r.TextA, r.TextB)
				}
			}
			return nil
		},
	}
}

func neighborsCommand() *cli.Command {
	return &cli.Command{
		Name:      "neighbors",
		Usage:     "Compare the pages around an address",
		ArgsUsage: "<address|coordinate>",
		Flags: []cli.Flag{
			lengthFlag(),
			&cli.IntFlag{
				Name:  "radius",
				Usage: "Number of addresses on each side",
				Value: 5,
			},
		},
		Action: func(c *cli.Context) error {
			address, err := locationArg(c, 0)
			if err != nil {
				return err
			}
			engine, err := search.New(search.WithPageLength(c.Int("length")))
			if err != nil {
				return err
			}
			n, err := engine.Neighborhood(c.Context, address, c.Int("radius"))
			if err != nil {
				return err
			}

			out := c.App.Writer
			for _, nb := range n.Neighbors {
				fmt.Fprintf(out, "%d\t%+d\t%.2f%%\t%.4f\n", nb.Address, nb.Offset, nb.Similarity, nb.Entropy)
			}
			fmt.Fprintf(out, "similarity avg %.2f%% min %.2f%% max %.2f%%, entropy avg %.4f\n",
				n.AvgSimilarity, n.MinSimilarity, n.MaxSimilarity, n.AvgEntropy)
			return nil
		},
	}
}
