package search

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/poiesic/babel/compare"
	"github.com/poiesic/babel/core"
	"github.com/poiesic/babel/library"
)

// Estimate is the expected cost of finding a phrase by exhaustive scanning.
type Estimate struct {
	PhraseLength          int
	PositionProbability   float64 // Chance of the phrase at one fixed position
	PageProbability       float64 // Chance of at least one occurrence on a page
	ExpectedPagesPerMatch float64
	ExpectedPagesTotal    float64
	EstimatedDuration     time.Duration // At the given scan rate; math.MaxInt64 when unreachable
}

// Estimate predicts how many pages must be scanned to find matches of
// phrase, scanning pagesPerSecond pages per second.
func (e *Engine) Estimate(phrase string, matches int, pagesPerSecond float64) (Estimate, error) {
	phrase, err := core.ValidatePhrase(phrase)
	if err != nil {
		return Estimate{}, err
	}
	if matches <= 0 || pagesPerSecond <= 0 {
		return Estimate{}, fmt.Errorf("%w: matches %d, rate %v", ErrInvalidLimit, matches, pagesPerSecond)
	}

	est := Estimate{
		PhraseLength:        len(phrase),
		PositionProbability: math.Pow(1/float64(core.AlphabetSize), float64(len(phrase))),
	}
	positions := e.pageLength - len(phrase) + 1
	if positions > 0 {
		// 1-(1-p)^n without losing precision for tiny p.
		est.PageProbability = -math.Expm1(float64(positions) * math.Log1p(-est.PositionProbability))
	}
	if est.PageProbability == 0 {
		est.ExpectedPagesPerMatch = math.Inf(1)
		est.ExpectedPagesTotal = math.Inf(1)
		est.EstimatedDuration = time.Duration(math.MaxInt64)
		return est, nil
	}
	est.ExpectedPagesPerMatch = 1 / est.PageProbability
	est.ExpectedPagesTotal = est.ExpectedPagesPerMatch * float64(matches)

	seconds := est.ExpectedPagesTotal / pagesPerSecond
	if seconds >= float64(math.MaxInt64)/float64(time.Second) {
		est.EstimatedDuration = time.Duration(math.MaxInt64)
	} else {
		est.EstimatedDuration = time.Duration(seconds * float64(time.Second))
	}
	return est, nil
}

// Efficiency summarizes the throughput of a finished scan.
type Efficiency struct {
	PagesPerSecond float64
	MatchesPerHour float64
	SuccessRate    float64 // Percentage of scanned pages with a match
	TimePerMatch   time.Duration
}

// MeasureEfficiency computes Efficiency. Zero attempts or elapsed time
// yields the zero value.
func MeasureEfficiency(attempts int64, matches int, elapsed time.Duration) Efficiency {
	if attempts <= 0 || elapsed <= 0 {
		return Efficiency{}
	}
	secs := elapsed.Seconds()
	eff := Efficiency{
		PagesPerSecond: float64(attempts) / secs,
		MatchesPerHour: float64(matches) / secs * 3600,
		SuccessRate:    float64(matches) / float64(attempts) * 100,
	}
	if matches > 0 {
		eff.TimePerMatch = elapsed / time.Duration(matches)
	}
	return eff
}

// MutationKind selects a family of single-edit phrase variants.
type MutationKind int

const (
	MutateSubstitute MutationKind = iota + 1
	MutateInsert
	MutateDelete
	MutateSwap
)

// Mutations returns every distinct phrase one edit away from phrase using
// the given kinds (all kinds when none are given), sorted. The phrase
// itself is never included.
func Mutations(phrase string, kinds ...MutationKind) ([]string, error) {
	phrase, err := core.ValidatePhrase(phrase)
	if err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		kinds = []MutationKind{MutateSubstitute, MutateInsert, MutateDelete, MutateSwap}
	}

	seen := make(map[string]struct{})
	add := func(s string) {
		if s != phrase && s != "" {
			seen[s] = struct{}{}
		}
	}
	for _, kind := range kinds {
		switch kind {
		case MutateSubstitute:
			for i := 0; i < len(phrase); i++ {
				for j := 0; j < len(core.Alphabet); j++ {
					add(phrase[:i] + core.Alphabet[j:j+1] + phrase[i+1:])
				}
			}
		case MutateInsert:
			for i := 0; i <= len(phrase); i++ {
				for j := 0; j < len(core.Alphabet); j++ {
					add(phrase[:i] + core.Alphabet[j:j+1] + phrase[i:])
				}
			}
		case MutateDelete:
			for i := 0; i < len(phrase); i++ {
				add(phrase[:i] + phrase[i+1:])
			}
		case MutateSwap:
			for i := 0; i+1 < len(phrase); i++ {
				add(phrase[:i] + phrase[i+1:i+2] + phrase[i:i+1] + phrase[i+2:])
			}
		default:
			return nil, fmt.Errorf("unknown mutation kind %d", kind)
		}
	}

	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	slices.Sort(out)
	return out, nil
}

func validateRadius(radius int) error {
	if radius < 0 || radius > library.MaxRadius {
		return fmt.Errorf("%w: radius %d outside 0..%d", ErrInvalidLimit, radius, library.MaxRadius)
	}
	return nil
}

// Neighbor describes one page near a reference page.
type Neighbor struct {
	Address    core.Address
	Offset     int64
	Similarity float64 // To the reference page
	Entropy    float64
	Digest     string
}

// Neighborhood summarizes the pages around a reference address.
type Neighborhood struct {
	Reference        core.Address
	Radius           int
	Neighbors        []Neighbor
	AvgSimilarity    float64 // Excluding the reference itself
	MaxSimilarity    float64
	MinSimilarity    float64
	AvgEntropy       float64
	EntropyVariation float64
}

// Neighborhood compares every page within radius of address to the page at
// address. Addresses below 0 are skipped.
func (e *Engine) Neighborhood(ctx context.Context, address core.Address, radius int) (Neighborhood, error) {
	if err := validateRadius(radius); err != nil {
		return Neighborhood{}, err
	}
	ref, err := e.Page(address)
	if err != nil {
		return Neighborhood{}, err
	}
	n := Neighborhood{Reference: address, Radius: radius}
	var sumSim, sumEnt float64
	minEnt, maxEnt := math.Inf(1), math.Inf(-1)
	others := 0
	for _, a := range library.Adjacent(address, radius) {
		if err := ctx.Err(); err != nil {
			return Neighborhood{}, err
		}
		page, err := e.Page(a)
		if err != nil {
			return Neighborhood{}, err
		}
		nb := Neighbor{
			Address:    a,
			Offset:     int64(a - address),
			Similarity: compare.Similarity(ref, page),
			Entropy:    compare.Entropy(page),
			Digest:     compare.Digest(page),
		}
		n.Neighbors = append(n.Neighbors, nb)

		sumEnt += nb.Entropy
		minEnt, maxEnt = min(minEnt, nb.Entropy), max(maxEnt, nb.Entropy)
		if a == address {
			continue
		}
		if others == 0 || nb.Similarity > n.MaxSimilarity {
			n.MaxSimilarity = nb.Similarity
		}
		if others == 0 || nb.Similarity < n.MinSimilarity {
			n.MinSimilarity = nb.Similarity
		}
		sumSim += nb.Similarity
		others++
	}
	if others > 0 {
		n.AvgSimilarity = sumSim / float64(others)
	}
	n.AvgEntropy = sumEnt / float64(len(n.Neighbors))
	n.EntropyVariation = maxEnt - minEnt
	return n, nil
}

// SimilarPage is a page whose similarity to a reference passed a threshold.
type SimilarPage struct {
	Address    core.Address
	Distance   int64 // Absolute address distance to the reference
	Similarity float64
}

// SimilarPages scans the addresses within radius of reference, in increasing
// order, for pages at least threshold percent similar to it. The scan stops
// once maxResults pages are found. Results are sorted by similarity
// descending, then address.
func (e *Engine) SimilarPages(ctx context.Context, reference core.Address, radius int, threshold float64, maxResults int) ([]SimilarPage, error) {
	if maxResults <= 0 {
		return nil, fmt.Errorf("%w: max results %d must be greater than 0", ErrInvalidLimit, maxResults)
	}
	if err := validateRadius(radius); err != nil {
		return nil, err
	}
	ref, err := e.Page(reference)
	if err != nil {
		return nil, err
	}
	var out []SimilarPage
	for _, a := range library.Adjacent(reference, radius) {
		if a == reference {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := e.Page(a)
		if err != nil {
			return nil, err
		}
		if s := compare.Similarity(ref, page); s >= threshold {
			d := int64(a - reference)
			if d < 0 {
				d = -d
			}
			out = append(out, SimilarPage{Address: a, Distance: d, Similarity: s})
			if len(out) >= maxResults {
				break
			}
		}
	}
	slices.SortStableFunc(out, func(x, y SimilarPage) int {
		switch {
		case x.Similarity > y.Similarity:
			return -1
		case x.Similarity < y.Similarity:
			return 1
		}
		return 0
	})
	return out, nil
}

// Echo compares the pages at two addresses.
type Echo struct {
	AddressA   core.Address
	AddressB   core.Address
	Distance   int64
	PageA      string
	PageB      string
	Comparison compare.Comparison
}

// Echo generates the pages at a and b and compares them.
func (e *Engine) Echo(ctx context.Context, a, b core.Address) (Echo, error) {
	if err := ctx.Err(); err != nil {
		return Echo{}, err
	}
	pa, err := e.Page(a)
	if err != nil {
		return Echo{}, err
	}
	pb, err := e.Page(b)
	if err != nil {
		return Echo{}, err
	}
	d := int64(a - b)
	if d < 0 {
		d = -d
	}
	return Echo{
		AddressA:   a,
		AddressB:   b,
		Distance:   d,
		PageA:      pa,
		PageB:      pb,
		Comparison: compare.Compare(pa, pb),
	}, nil
}
