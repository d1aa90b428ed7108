package search

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/poiesic/babel/compare"
	"github.com/poiesic/babel/core"
)

const (
	// ExactFitness is the fitness of a page that contains the phrase.
	ExactFitness = 1000.0

	DefaultPopulation   = 50
	DefaultGenerations  = 100
	DefaultMutationRate = 0.3
	DefaultMaxSeed      = core.Address(math.MaxInt32)

	// maxEvolveSeed keeps a mutated address from overflowing.
	maxEvolveSeed = core.Address(math.MaxInt64 / 4)
)

// EvolveConfig tunes Evolve. Zero fields take the defaults above.
type EvolveConfig struct {
	Population   int          // Addresses evaluated per generation
	Generations  int          // Upper bound on generations
	MutationRate float64      // Percent of the parent address a mutation may move it by
	MaxSeed      core.Address // Population is drawn from 1..MaxSeed
	RandSeed     uint64       // Seeds the selection and mutation source
	MaxResults   int          // Stop once this many exact matches are found; 0 runs every generation
}

func (c EvolveConfig) withDefaults() EvolveConfig {
	if c.Population == 0 {
		c.Population = DefaultPopulation
	}
	if c.Generations == 0 {
		c.Generations = DefaultGenerations
	}
	if c.MutationRate == 0 {
		c.MutationRate = DefaultMutationRate
	}
	if c.MaxSeed == 0 {
		c.MaxSeed = DefaultMaxSeed
	}
	return c
}

// Candidate is one evaluated address.
type Candidate struct {
	Address core.Address
	Fitness float64 // ExactFitness, or the best window similarity in percent
	Offset  int     // Start of the best window, -1 when the page is shorter than the phrase
}

// Evolution is the outcome of Evolve.
type Evolution struct {
	Generations int
	Evaluated   int64
	Best        Candidate
	Results     []core.SearchResult // Exact matches, first found first, one per address
	NearMisses  []core.SearchResult // Pages holding the phrase one edit away
}

// Evolve searches for phrase by breeding addresses. Each generation keeps
// the fittest quarter and fills the rest with crossovers (the mean of two
// elite addresses) and mutations (an elite address moved by up to
// MutationRate percent of itself). A page containing the phrase scores
// ExactFitness; any other page scores the best compare.Similarity of a
// phrase-length window.
func (e *Engine) Evolve(ctx context.Context, phrase string, cfg EvolveConfig) (Evolution, error) {
	phrase, err := core.ValidatePhrase(phrase)
	if err != nil {
		return Evolution{}, err
	}
	cfg = cfg.withDefaults()
	if cfg.Population < 2 || cfg.Generations < 0 || cfg.MutationRate < 0 || cfg.MutationRate > 100 ||
		cfg.MaxSeed < 1 || cfg.MaxSeed > maxEvolveSeed || cfg.MaxResults < 0 {
		return Evolution{}, fmt.Errorf("%w: population %d, generations %d, mutation rate %v, max seed %d",
			ErrInvalidLimit, cfg.Population, cfg.Generations, cfg.MutationRate, cfg.MaxSeed)
	}

	variants, err := sameLengthVariants(phrase)
	if err != nil {
		return Evolution{}, err
	}
	rng := rand.New(rand.NewPCG(cfg.RandSeed, uint64(len(phrase))))
	randomAddress := func() core.Address {
		return 1 + core.Address(rng.Int64N(int64(cfg.MaxSeed)))
	}

	population := make([]core.Address, cfg.Population)
	for i := range population {
		population[i] = randomAddress()
	}

	var (
		out      Evolution
		found    = make(map[core.Address]bool)
		near     = make(map[core.Address]bool)
		eliteLen = max(cfg.Population/4, 1)
	)
	out.Best.Offset = -1
	for gen := 0; gen < cfg.Generations; gen++ {
		scored := make([]Candidate, 0, len(population))
		for _, address := range population {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			page, err := e.generate(address, e.pageLength)
			if err != nil {
				return out, fmt.Errorf("generating page %d: %w", address, err)
			}
			out.Evaluated++

			c, miss, missAt := fitness(phrase, page, variants)
			c.Address = address
			scored = append(scored, c)
			if c.Fitness == ExactFitness && !found[address] {
				found[address] = true
				out.Results = append(out.Results, e.result(core.MatchExact, phrase, address, c.Offset, phrase, page))
			} else if miss != "" && !near[address] {
				near[address] = true
				r := e.result(core.MatchFuzzy, phrase, address, missAt, miss, page)
				r.Score = len(phrase) - 1
				out.NearMisses = append(out.NearMisses, r)
			}
		}
		out.Generations = gen + 1

		slices.SortStableFunc(scored, func(a, b Candidate) int {
			return cmp.Compare(b.Fitness, a.Fitness)
		})
		if scored[0].Fitness > out.Best.Fitness || out.Best.Address == 0 {
			out.Best = scored[0]
		}
		e.logger.Debug("generation evaluated", "phrase", phrase, "generation", gen, "best", out.Best.Fitness, "matches", len(out.Results))
		if cfg.MaxResults > 0 && len(out.Results) >= cfg.MaxResults {
			break
		}

		elite := make([]core.Address, eliteLen)
		for i := range elite {
			elite[i] = scored[i].Address
		}
		next := slices.Clone(elite)
		for len(next) < cfg.Population {
			var child core.Address
			if len(elite) >= 2 && rng.Float64() < 0.5 {
				i := rng.IntN(len(elite))
				j := rng.IntN(len(elite) - 1)
				if j >= i {
					j++
				}
				child = elite[i]/2 + elite[j]/2 + (elite[i]%2+elite[j]%2)/2
			} else {
				parent := elite[rng.IntN(len(elite))]
				amount := int64(float64(parent) * cfg.MutationRate / 100)
				child = parent
				if amount > 0 {
					child += core.Address(rng.Int64N(2*amount+1) - amount)
				}
				child = min(max(child, 1), cfg.MaxSeed)
			}
			next = append(next, child)
		}
		population = next
	}
	return out, nil
}

// fitness scores page against phrase. It also returns the first window
// that is a single substitution or swap away from the phrase, and its offset.
func fitness(phrase, page string, variants map[string]struct{}) (Candidate, string, int) {
	if i := strings.Index(page, phrase); i >= 0 {
		return Candidate{Fitness: ExactFitness, Offset: i}, "", -1
	}
	best := Candidate{Offset: -1}
	miss, missAt := "", -1
	for i := 0; i+len(phrase) <= len(page); i++ {
		window := page[i : i+len(phrase)]
		if s := compare.Similarity(phrase, window); s > best.Fitness || best.Offset < 0 {
			best.Fitness, best.Offset = s, i
		}
		if miss == "" {
			if _, ok := variants[window]; ok {
				miss, missAt = window, i
			}
		}
	}
	return best, miss, missAt
}

func sameLengthVariants(phrase string) (map[string]struct{}, error) {
	mutations, err := Mutations(phrase, MutateSubstitute, MutateSwap)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(mutations))
	for _, m := range mutations {
		set[m] = struct{}{}
	}
	return set, nil
}

// PartialMatch is a page window resembling a prefix of a phrase.
type PartialMatch struct {
	Offset     int
	Text       string
	Similarity float64
}

// partialThreshold is the similarity a window must exceed to count.
const partialThreshold = 70.0

// PartialMatches finds windows of page, minLength long and up, that are
// more than 70% similar to the equally long prefix of phrase. Matches do
// not overlap; higher similarity wins, then shorter windows, then lower
// offsets.
func PartialMatches(page, phrase string, minLength int) ([]PartialMatch, error) {
	phrase, err := core.ValidatePhrase(phrase)
	if err != nil {
		return nil, err
	}
	if minLength < 1 {
		return nil, fmt.Errorf("%w: min length %d must be at least 1", ErrInvalidLimit, minLength)
	}

	var candidates []PartialMatch
	for length := minLength; length <= len(phrase); length++ {
		prefix := phrase[:length]
		for i := 0; i+length <= len(page); i++ {
			window := page[i : i+length]
			if s := compare.Similarity(window, prefix); s > partialThreshold {
				candidates = append(candidates, PartialMatch{Offset: i, Text: window, Similarity: s})
			}
		}
	}
	slices.SortStableFunc(candidates, func(a, b PartialMatch) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})

	used := make([]bool, len(page))
	var out []PartialMatch
	for _, c := range candidates {
		if slices.Contains(used[c.Offset:c.Offset+len(c.Text)], true) {
			continue
		}
		for i := c.Offset; i < c.Offset+len(c.Text); i++ {
			used[i] = true
		}
		out = append(out, c)
	}
	return out, nil
}

// LookupHit is a random address whose page contains the looked-up text.
type LookupHit struct {
	Result  core.SearchResult
	Context string // Up to 30 characters either side, the match in brackets
}

// contextRadius is how much text surrounds a hit in LookupHit.Context.
const contextRadius = 30

// RandomLookup samples maxSamples random addresses in 1..maxSeed and
// returns those whose page contains text, stopping after maxResults hits.
func (e *Engine) RandomLookup(ctx context.Context, text string, maxSamples, maxResults int, maxSeed core.Address, randSeed uint64) ([]LookupHit, error) {
	text, err := core.ValidatePhrase(text)
	if err != nil {
		return nil, err
	}
	if maxSamples < 0 || maxResults <= 0 || maxSeed < 1 {
		return nil, fmt.Errorf("%w: samples %d, results %d, max seed %d", ErrInvalidLimit, maxSamples, maxResults, maxSeed)
	}

	rng := rand.New(rand.NewPCG(randSeed, 0))
	var hits []LookupHit
	for n := 0; n < maxSamples && len(hits) < maxResults; n++ {
		if err := ctx.Err(); err != nil {
			return hits, err
		}
		address := 1 + core.Address(rng.Int64N(int64(maxSeed)))
		page, err := e.generate(address, e.pageLength)
		if err != nil {
			return hits, fmt.Errorf("generating page %d: %w", address, err)
		}
		i := strings.Index(page, text)
		if i < 0 {
			continue
		}
		window := page[max(i-contextRadius, 0):min(i+len(text)+contextRadius, len(page))]
		hits = append(hits, LookupHit{
			Result:  e.result(core.MatchExact, text, address, i, text, page),
			Context: strings.ReplaceAll(window, text, "["+text+"]"),
		})
	}
	e.logger.Debug("random lookup finished", "text", text, "hits", len(hits))
	return hits, nil
}
