package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/poiesic/babel/core"
)

// symbolClass matches one alphabet symbol.
var symbolClass = "[" + regexp.QuoteMeta(core.Alphabet) + "]"

// compilePattern translates a validated wildcard pattern into a regular
// expression. '*' becomes a lazy run of symbols so each match is the
// shortest one starting at its position; '?' becomes one symbol. Go's RE2
// engine runs in time linear in the page length for any pattern.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	for _, r := range pattern {
		switch r {
		case core.WildcardAny:
			sb.WriteString(symbolClass + "*?")
		case core.WildcardSingle:
			sb.WriteString(symbolClass)
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", core.ErrInvalidPattern, pattern, err)
	}
	return re, nil
}

// MatchPattern reports whether text contains a match of the wildcard pattern.
func MatchPattern(text, pattern string) (bool, error) {
	pattern, err := core.ValidatePattern(pattern)
	if err != nil {
		return false, err
	}
	re, err := compilePattern(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(core.NormalizePhrase(text)), nil
}
