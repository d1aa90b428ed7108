package compare

// EditDistance returns the Levenshtein distance between a and b with unit
// costs for insertion, deletion and substitution. It keeps two rows of the
// DP table, so memory is O(min(len(a), len(b))).
func EditDistance(a, b string) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1]
				continue
			}
			cur[j] = 1 + min(prev[j], cur[j-1], prev[j-1])
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// Similarity returns (maxLen - EditDistance) / maxLen * 100.
// Two empty strings are 100% similar; one empty string is 0% similar.
func Similarity(a, b string) float64 {
	switch {
	case a == "" && b == "":
		return 100
	case a == "" || b == "":
		return 0
	}
	maxLen := float64(max(len(a), len(b)))
	return (maxLen - float64(EditDistance(a, b))) / maxLen * 100
}

// Match locates a common substring in both inputs.
type Match struct {
	Text    string
	Length  int
	OffsetA int
	OffsetB int
}

// LongestCommonSubstring returns the longest substring shared by a and b and
// its length. Among equally long candidates the one that occurs first in a
// wins.
func LongestCommonSubstring(a, b string) (string, int) {
	m := LongestCommonMatch(a, b)
	return m.Text, m.Length
}

// LongestCommonMatch is LongestCommonSubstring with the offsets of the
// match in both strings. When the substring occurs several times in b the
// first occurrence aligned with the chosen position in a is reported.
func LongestCommonMatch(a, b string) Match {
	if a == "" || b == "" {
		return Match{}
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	best, endA, endB := 0, 0, 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] != b[j-1] {
				cur[j] = 0
				continue
			}
			cur[j] = prev[j-1] + 1
			if cur[j] > best {
				best, endA, endB = cur[j], i, j
			}
		}
		prev, cur = cur, prev
	}
	if best == 0 {
		return Match{}
	}
	return Match{
		Text:    a[endA-best : endA],
		Length:  best,
		OffsetA: endA - best,
		OffsetB: endB - best,
	}
}
