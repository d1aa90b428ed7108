package search

import (
	"context"
	"fmt"
	"slices"

	"github.com/poiesic/babel/compare"
	"github.com/poiesic/babel/core"
)

// FuzzyFallback ranks the pages in [windowEnd-trailingWindow, windowEnd) by
// the length of their longest common substring with phrase. It returns the
// topN best pages, highest score first, ties broken by lowest address.
// The window is clamped at address 0.
func (e *Engine) FuzzyFallback(ctx context.Context, phrase string, windowEnd core.Address, trailingWindow int64, topN int) ([]core.SearchResult, error) {
	phrase, err := core.ValidatePhrase(phrase)
	if err != nil {
		return nil, err
	}
	if err := core.ValidateAddress(windowEnd); err != nil {
		return nil, err
	}
	if trailingWindow < 0 || topN <= 0 {
		return nil, fmt.Errorf("%w: window %d, top %d", ErrInvalidLimit, trailingWindow, topN)
	}

	start := max(windowEnd-core.Address(trailingWindow), 0)
	top := make([]core.SearchResult, 0, topN+1)
	for address := start; address < windowEnd; address++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := e.generate(address, e.pageLength)
		if err != nil {
			return nil, fmt.Errorf("generating page %d: %w", address, err)
		}
		m := compare.LongestCommonMatch(phrase, page)

		// Addresses arrive in increasing order, so inserting after every
		// equal score keeps the lowest address first among ties.
		pos, _ := slices.BinarySearchFunc(top, m.Length, func(r core.SearchResult, score int) int {
			if r.Score >= score {
				return -1
			}
			return 1
		})
		if pos >= topN {
			continue
		}
		r := e.result(core.MatchFuzzy, phrase, address, m.OffsetB, m.Text, page)
		r.Score = m.Length
		top = slices.Insert(top, pos, r)
		if len(top) > topN {
			top = top[:topN]
		}
	}

	e.logger.Debug("fuzzy fallback finished", "phrase", phrase, "window_start", start, "window_end", windowEnd, "results", len(top))
	return top, nil
}
