package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/babel/compare"
	"github.com/poiesic/babel/core"
	"github.com/poiesic/babel/library"
)

// Engine scans the library for phrases and patterns.
// An Engine holds no per-search state and is safe for concurrent use.
type Engine struct {
	pageLength int
	generate   library.PageSource
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithPageLength sets the length of scanned pages.
// Default is core.DefaultPageLength.
func WithPageLength(length int) Option {
	return func(e *Engine) error {
		if err := core.ValidateLength(length); err != nil {
			return err
		}
		e.pageLength = length
		return nil
	}
}

// WithGenerator replaces the page source.
// Default is library.Generate.
func WithGenerator(generate library.PageSource) Option {
	return func(e *Engine) error {
		if generate == nil {
			return ErrGeneratorRequired
		}
		e.generate = generate
		return nil
	}
}

// WithClock sets the time source used to stamp results.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) error {
		if now != nil {
			e.now = now
		}
		return nil
	}
}

// New creates a new search engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		pageLength: core.DefaultPageLength,
		generate:   library.Generate,
		now:        time.Now,
		logger:     slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	e.logger = e.logger.With("component", "search")
	return e, nil
}

// PageLength returns the length of pages this engine scans.
func (e *Engine) PageLength() int {
	return e.pageLength
}

// Page generates the page at address using the engine's page length.
func (e *Engine) Page(address core.Address) (string, error) {
	return e.generate(address, e.pageLength)
}

// Query describes a single-shot search.
type Query struct {
	Text         string       // Phrase, or pattern when it contains '*' or '?'
	Start        core.Address // First address to scan
	AttemptLimit int64        // Number of addresses to scan
	MaxMatches   int          // Stop after this many matches
	FuzzyWindow  int64        // Trailing window rescanned when exact search finds nothing; 0 disables
	FuzzyTopN    int          // Number of fuzzy results to keep
	Monitor      ScanMonitor  // Optional
}

// Report is the outcome of Search.
type Report struct {
	Results   []core.SearchResult
	Scanned   int64 // Addresses scanned by the primary search
	Exhausted bool  // The attempt limit was reached before MaxMatches
	Fuzzy     bool  // Results come from the fuzzy fallback
}

// Search runs an exact or wildcard search depending on the query text and,
// for phrases with no exact match, the fuzzy fallback over the trailing
// FuzzyWindow addresses of the scanned range.
func (e *Engine) Search(ctx context.Context, q Query) (Report, error) {
	if q.FuzzyWindow > 0 && q.FuzzyTopN <= 0 {
		return Report{}, fmt.Errorf("%w: fuzzy window %d needs a top n", ErrInvalidLimit, q.FuzzyWindow)
	}

	var (
		results []core.SearchResult
		scanned int64
		err     error
	)
	wildcard := core.IsPattern(q.Text)
	if wildcard {
		results, scanned, err = e.wildcardSearch(ctx, q.Text, q.Start, q.AttemptLimit, q.MaxMatches, q.Monitor)
	} else {
		results, scanned, err = e.exactSearch(ctx, q.Text, q.Start, q.AttemptLimit, q.MaxMatches, q.Monitor)
	}
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Results:   results,
		Scanned:   scanned,
		Exhausted: len(results) < q.MaxMatches,
	}
	if wildcard || len(results) > 0 || q.FuzzyWindow <= 0 {
		return report, nil
	}

	e.logger.Debug("no exact match, running fuzzy fallback", "phrase", q.Text, "window", q.FuzzyWindow)
	fuzzy, err := e.FuzzyFallback(ctx, q.Text, q.Start+core.Address(scanned), q.FuzzyWindow, q.FuzzyTopN)
	if err != nil {
		return Report{}, err
	}
	report.Results = fuzzy
	report.Fuzzy = true
	return report, nil
}

// ExactSearch scans attemptLimit addresses from start for the first
// occurrence of phrase on each page, stopping after maxMatches hits.
// Results are in address order. An empty slice means the range was exhausted.
func (e *Engine) ExactSearch(ctx context.Context, phrase string, start core.Address, attemptLimit int64, maxMatches int) ([]core.SearchResult, error) {
	results, _, err := e.exactSearch(ctx, phrase, start, attemptLimit, maxMatches, nil)
	return results, err
}

func (e *Engine) exactSearch(ctx context.Context, phrase string, start core.Address, attemptLimit int64, maxMatches int, monitor ScanMonitor) ([]core.SearchResult, int64, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	phrase, err := core.ValidatePhrase(phrase)
	if err != nil {
		return nil, 0, err
	}
	if err := validateBounds(start, attemptLimit, maxMatches); err != nil {
		return nil, 0, err
	}

	results := make([]core.SearchResult, 0, min(maxMatches, 64))
	scanned, err := e.scan(ctx, phrase, start, attemptLimit, monitor, func(address core.Address, page string) bool {
		offset := strings.Index(page, phrase)
		if offset < 0 {
			return false
		}
		results = append(results, e.result(core.MatchExact, phrase, address, offset, phrase, page))
		monitor.Match(&results[len(results)-1])
		return len(results) >= maxMatches
	})
	if err != nil {
		return nil, scanned, err
	}
	e.finish(monitor, scanned, results)
	return results, scanned, nil
}

// WildcardSearch scans attemptLimit addresses from start for every match of
// pattern, stopping after maxMatches matches. Matches on one page are
// reported left to right and do not overlap.
func (e *Engine) WildcardSearch(ctx context.Context, pattern string, start core.Address, attemptLimit int64, maxMatches int) ([]core.SearchResult, error) {
	results, _, err := e.wildcardSearch(ctx, pattern, start, attemptLimit, maxMatches, nil)
	return results, err
}

func (e *Engine) wildcardSearch(ctx context.Context, pattern string, start core.Address, attemptLimit int64, maxMatches int, monitor ScanMonitor) ([]core.SearchResult, int64, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	pattern, err := core.ValidatePattern(pattern)
	if err != nil {
		return nil, 0, err
	}
	if err := validateBounds(start, attemptLimit, maxMatches); err != nil {
		return nil, 0, err
	}
	re, err := compilePattern(pattern)
	if err != nil {
		return nil, 0, err
	}

	results := make([]core.SearchResult, 0, min(maxMatches, 64))
	scanned, err := e.scan(ctx, pattern, start, attemptLimit, monitor, func(address core.Address, page string) bool {
		for _, loc := range re.FindAllStringIndex(page, maxMatches-len(results)) {
			results = append(results, e.result(core.MatchWildcard, pattern, address, loc[0], page[loc[0]:loc[1]], page))
			monitor.Match(&results[len(results)-1])
		}
		return len(results) >= maxMatches
	})
	if err != nil {
		return nil, scanned, err
	}
	e.finish(monitor, scanned, results)
	return results, scanned, nil
}

// scan generates pages from start until visit returns true or attemptLimit
// addresses have been scanned. It returns the number of addresses scanned.
func (e *Engine) scan(ctx context.Context, query string, start core.Address, attemptLimit int64, monitor ScanMonitor, visit func(core.Address, string) bool) (int64, error) {
	monitor.Start(query, start, attemptLimit)

	var scanned int64
	for scanned < attemptLimit {
		if err := ctx.Err(); err != nil {
			return scanned, err
		}
		address := start + core.Address(scanned)
		if address < start {
			// Past the last representable address.
			break
		}
		page, err := e.generate(address, e.pageLength)
		if err != nil {
			return scanned, fmt.Errorf("generating page %d: %w", address, err)
		}
		scanned++
		if scanned%progressInterval == 0 {
			monitor.Progress(scanned, address)
		}
		if visit(address, page) {
			break
		}
	}
	return scanned, nil
}

func (e *Engine) result(kind core.MatchKind, phrase string, address core.Address, offset int, matched, page string) core.SearchResult {
	return core.SearchResult{
		Kind:        kind,
		Phrase:      phrase,
		Address:     address,
		Offset:      offset,
		MatchedText: matched,
		Digest:      compare.Digest(page),
		Timestamp:   e.now().UTC(),
	}
}

func (e *Engine) finish(monitor ScanMonitor, scanned int64, results []core.SearchResult) {
	monitor.Finish(scanned, results)
	e.logger.Debug("scan finished", "scanned", scanned, "matches", len(results))
}

func validateBounds(start core.Address, attemptLimit int64, maxMatches int) error {
	if err := core.ValidateAddress(start); err != nil {
		return err
	}
	if attemptLimit < 0 {
		return fmt.Errorf("%w: attempt limit %d is negative", ErrInvalidLimit, attemptLimit)
	}
	if maxMatches <= 0 {
		return fmt.Errorf("%w: max matches %d must be greater than 0", ErrInvalidLimit, maxMatches)
	}
	return nil
}
