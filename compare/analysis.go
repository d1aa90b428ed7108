package compare

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
)

// Digest returns the SHA-256 of page as lowercase hex.
func Digest(page string) string {
	sum := sha256.Sum256([]byte(page))
	return hex.EncodeToString(sum[:])
}

// Identical reports whether two pages have the same digest.
func Identical(a, b string) bool {
	return Digest(a) == Digest(b)
}

// counts returns per-byte occurrence counts.
func counts(s string) *[256]int {
	var c [256]int
	for i := 0; i < len(s); i++ {
		c[s[i]]++
	}
	return &c
}

// Entropy returns the Shannon entropy of page in bits per symbol.
func Entropy(page string) float64 {
	if page == "" {
		return 0
	}
	c := counts(page)
	n := float64(len(page))
	var h float64
	for _, k := range c {
		if k == 0 {
			continue
		}
		p := float64(k) / n
		h -= p * math.Log2(p)
	}
	return h
}

// Frequencies returns the share of each symbol in page as a percentage.
// Symbols that do not occur are absent from the map.
func Frequencies(page string) map[byte]float64 {
	out := make(map[byte]float64)
	if page == "" {
		return out
	}
	c := counts(page)
	n := float64(len(page))
	for b, k := range c {
		if k > 0 {
			out[byte(b)] = float64(k) / n * 100
		}
	}
	return out
}

// frequencyDistance is the L1 distance between the percentage
// distributions of two pages.
func frequencyDistance(a, b string) float64 {
	fa, fb := Frequencies(a), Frequencies(b)
	var d float64
	for sym, pa := range fa {
		d += math.Abs(pa - fb[sym])
	}
	for sym, pb := range fb {
		if _, ok := fa[sym]; !ok {
			d += pb
		}
	}
	return d
}

// Stats summarizes a single page.
type Stats struct {
	Length          int
	Entropy         float64
	Digest          string
	Frequencies     map[byte]float64
	UniqueSymbols   int
	MostCommon      byte // zero when the page is empty
	MostCommonCount int
	Patterns3       int // distinct 3-grams occurring more than once
	Patterns4       int // distinct 4-grams occurring more than once
}

// Statistics computes Stats for page. The most common symbol is the one with
// the highest count, ties going to the symbol that appears first.
func Statistics(page string) Stats {
	s := Stats{
		Length:      len(page),
		Entropy:     Entropy(page),
		Digest:      Digest(page),
		Frequencies: Frequencies(page),
		Patterns3:   len(PatternCounts(page, 3)),
		Patterns4:   len(PatternCounts(page, 4)),
	}
	s.UniqueSymbols = len(s.Frequencies)

	c := counts(page)
	for i := 0; i < len(page); i++ {
		if k := c[page[i]]; k > s.MostCommonCount {
			s.MostCommon = page[i]
			s.MostCommonCount = k
		}
	}
	return s
}
