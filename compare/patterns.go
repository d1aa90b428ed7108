package compare

import (
	"cmp"
	"slices"
)

// PatternCounts counts the length-k substrings of page that occur more than
// once. Overlapping occurrences count. k <= 0 yields an empty map.
func PatternCounts(page string, k int) map[string]int {
	out := make(map[string]int)
	if k <= 0 || k > len(page) {
		return out
	}
	all := make(map[string]int, len(page)-k+1)
	for i := 0; i+k <= len(page); i++ {
		all[page[i:i+k]]++
	}
	for p, n := range all {
		if n > 1 {
			out[p] = n
		}
	}
	return out
}

// CommonSubstring is a maximal run shared by two pages.
type CommonSubstring struct {
	Text   string
	Length int
	PosA   int
	PosB   int
}

// CommonSubstrings returns the maximal common runs of at least minLen
// symbols, longest first, then by position in a and b. A run is maximal when
// it cannot be extended left or right in both strings at once. limit <= 0
// returns every run.
func CommonSubstrings(a, b string, minLen, limit int) []CommonSubstring {
	if minLen < 1 {
		minLen = 1
	}
	var out []CommonSubstring
	emit := func(endA, endB, n int) {
		if n >= minLen {
			out = append(out, CommonSubstring{Text: a[endA-n : endA], Length: n, PosA: endA - n, PosB: endB - n})
		}
	}

	// Walk every diagonal of the alignment grid once.
	for d := -(len(b) - 1); d < len(a); d++ {
		i, j := max(d, 0), max(-d, 0)
		run := 0
		for ; i < len(a) && j < len(b); i, j = i+1, j+1 {
			if a[i] == b[j] {
				run++
				continue
			}
			emit(i, j, run)
			run = 0
		}
		emit(i, j, run)
	}

	slices.SortFunc(out, func(x, y CommonSubstring) int {
		if c := cmp.Compare(y.Length, x.Length); c != 0 {
			return c
		}
		if c := cmp.Compare(x.PosA, y.PosA); c != 0 {
			return c
		}
		return cmp.Compare(x.PosB, y.PosB)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PatternSpread describes a pattern found on more than one page.
type PatternSpread struct {
	Pattern    string
	TotalCount int     // repeated occurrences summed over all pages
	Pages      int     // pages on which the pattern repeats
	Frequency  float64 // Pages / number of pages
}

// CrossPageReport is the result of CrossPagePatterns.
type CrossPageReport struct {
	TotalPages     int
	PatternLength  int
	UniquePatterns int
	CrossPage      []PatternSpread // sorted by Pages desc, then TotalCount desc, then pattern
	PerPage        []int           // repeated pattern count per page
}

// CrossPagePatterns finds length-k patterns that repeat within more than one
// of the given pages.
func CrossPagePatterns(pages []string, k int) CrossPageReport {
	report := CrossPageReport{
		TotalPages:    len(pages),
		PatternLength: k,
		PerPage:       make([]int, len(pages)),
	}
	total := make(map[string]int)
	spread := make(map[string]int)
	for i, page := range pages {
		counts := PatternCounts(page, k)
		report.PerPage[i] = len(counts)
		for p, n := range counts {
			total[p] += n
			spread[p]++
		}
	}
	report.UniquePatterns = len(total)

	for p, n := range spread {
		if n < 2 {
			continue
		}
		report.CrossPage = append(report.CrossPage, PatternSpread{
			Pattern:    p,
			TotalCount: total[p],
			Pages:      n,
			Frequency:  float64(n) / float64(len(pages)),
		})
	}
	slices.SortFunc(report.CrossPage, func(x, y PatternSpread) int {
		if c := cmp.Compare(y.Pages, x.Pages); c != 0 {
			return c
		}
		if c := cmp.Compare(y.TotalCount, x.TotalCount); c != 0 {
			return c
		}
		return cmp.Compare(x.Pattern, y.Pattern)
	})
	return report
}
