package compare

import "math"

// overlapPatternLength is the k-gram size used by Compare.
const overlapPatternLength = 3

// Comparison bundles the metrics between two pages.
type Comparison struct {
	Identical           bool
	DigestA             string
	DigestB             string
	LengthDiff          int
	Similarity          float64
	LongestCommon       string
	LongestCommonLength int
	EditDistance        int
	EntropyA            float64
	EntropyB            float64
	EntropyDiff         float64
	FrequencyDistance   float64 // L1 distance between symbol percentages
	CommonPatterns      int
	PatternsA           int
	PatternsB           int
	PatternOverlap      float64 // CommonPatterns / max(PatternsA, PatternsB, 1)
}

// Compare computes every pairwise metric between a and b.
func Compare(a, b string) Comparison {
	c := Comparison{
		DigestA:      Digest(a),
		DigestB:      Digest(b),
		LengthDiff:   abs(len(a) - len(b)),
		Similarity:   Similarity(a, b),
		EditDistance: EditDistance(a, b),
		EntropyA:     Entropy(a),
		EntropyB:     Entropy(b),
	}
	c.Identical = c.DigestA == c.DigestB
	c.LongestCommon, c.LongestCommonLength = LongestCommonSubstring(a, b)
	c.EntropyDiff = math.Abs(c.EntropyA - c.EntropyB)
	c.FrequencyDistance = frequencyDistance(a, b)

	pa := PatternCounts(a, overlapPatternLength)
	pb := PatternCounts(b, overlapPatternLength)
	for p := range pa {
		if _, ok := pb[p]; ok {
			c.CommonPatterns++
		}
	}
	c.PatternsA, c.PatternsB = len(pa), len(pb)
	c.PatternOverlap = float64(c.CommonPatterns) / float64(max(c.PatternsA, c.PatternsB, 1))
	return c
}

// DiffRegion is a run of differing positions between two pages.
type DiffRegion struct {
	Position     int
	Length       int
	TextA        string
	TextB        string
	ContextA     string
	ContextB     string
	ContextStart int
	ContextEnd   int
	LengthDiff   bool // region covers the tail of the longer page
}

// DiffRegions compares a and b position by position over their common
// length, grouping consecutive mismatches into regions with contextSize
// symbols of surrounding text. When the lengths differ a final region
// covers the extra tail of the longer string.
func DiffRegions(a, b string, contextSize int) []DiffRegion {
	contextSize = max(contextSize, 0)
	n := min(len(a), len(b))
	var regions []DiffRegion

	for i := 0; i < n; {
		if a[i] == b[i] {
			i++
			continue
		}
		start := i
		for i < n && a[i] != b[i] {
			i++
		}
		cs, ce := max(start-contextSize, 0), min(i+contextSize, n)
		regions = append(regions, DiffRegion{
			Position:     start,
			Length:       i - start,
			TextA:        a[start:i],
			TextB:        b[start:i],
			ContextA:     a[cs:ce],
			ContextB:     b[cs:ce],
			ContextStart: cs,
			ContextEnd:   ce,
		})
	}

	if len(a) != len(b) {
		cs, ce := max(n-contextSize, 0), n+contextSize
		regions = append(regions, DiffRegion{
			Position:     n,
			Length:       abs(len(a) - len(b)),
			TextA:        a[n:],
			TextB:        b[n:],
			ContextA:     a[cs:min(ce, len(a))],
			ContextB:     b[cs:min(ce, len(b))],
			ContextStart: cs,
			ContextEnd:   ce,
			LengthDiff:   true,
		})
	}
	return regions
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
