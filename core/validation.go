// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"strings"
)

// NormalizePhrase folds a phrase to the case used by generated pages.
// Every search mode matches case-insensitively by normalizing its input
// this way; pages are lowercase by construction.
func NormalizePhrase(phrase string) string {
	return strings.ToLower(phrase)
}

// ValidatePhrase normalizes a phrase and checks it against the alphabet.
// Returns the normalized phrase.
//
// Validation rules:
//   - Phrase must not be empty
//   - Every symbol must belong to Alphabet after case folding
func ValidatePhrase(phrase string) (string, error) {
	normalized := NormalizePhrase(phrase)
	if normalized == "" {
		return "", fmt.Errorf("%w: phrase cannot be empty", ErrInvalidPhrase)
	}
	for _, r := range normalized {
		if !IsSymbol(r) {
			return "", fmt.Errorf("%w: %q contains %q; allowed symbols are a-z, space, comma and period (%q)",
				ErrInvalidPhrase, phrase, r, Alphabet)
		}
	}
	return normalized, nil
}

// ValidatePattern normalizes a wildcard pattern and checks it against the
// alphabet plus the wildcard tokens. Returns the normalized pattern.
//
// Validation rules:
//   - Pattern must not be empty
//   - Every symbol must belong to Alphabet or be '*' or '?'
//   - Pattern must require at least one symbol, so '*' alone is rejected
func ValidatePattern(pattern string) (string, error) {
	normalized := NormalizePhrase(pattern)
	if normalized == "" {
		return "", fmt.Errorf("%w: pattern cannot be empty", ErrInvalidPhrase)
	}
	consumes := false
	for _, r := range normalized {
		switch {
		case r == WildcardAny:
		case r == WildcardSingle || IsSymbol(r):
			consumes = true
		default:
			return "", fmt.Errorf("%w: %q contains %q; allowed symbols are a-z, space, comma, period and the wildcards * and ? (%q)",
				ErrInvalidPhrase, pattern, r, Alphabet)
		}
	}
	if !consumes {
		return "", fmt.Errorf("%w: %q matches the empty string", ErrInvalidPattern, pattern)
	}
	return normalized, nil
}

// IsPattern reports whether s contains wildcard tokens.
func IsPattern(s string) bool {
	return strings.ContainsRune(s, WildcardAny) || strings.ContainsRune(s, WildcardSingle)
}

// ValidateAddress checks that an address is non-negative.
func ValidateAddress(address Address) error {
	if address < 0 {
		return fmt.Errorf("%w: %d is negative", ErrInvalidAddress, address)
	}
	return nil
}

// ValidateLength checks that a page length is positive.
func ValidateLength(length int) error {
	if length <= 0 {
		return fmt.Errorf("%w: %d must be greater than 0", ErrInvalidLength, length)
	}
	return nil
}

// ValidateMatchKind validates that a MatchKind has a known value.
func ValidateMatchKind(kind MatchKind) error {
	if kind < MatchExact || kind > MatchFuzzy {
		return fmt.Errorf("%w: value %d", ErrInvalidMatchKind, kind)
	}
	return nil
}

// ValidateSearchResult validates a SearchResult before it is stored.
//
// Validation rules:
//   - Kind must be valid
//   - Phrase must not be empty
//   - Address must not be negative
//   - Offset must not be negative
func ValidateSearchResult(result *SearchResult) error {
	if result == nil {
		return fmt.Errorf("%w: result is nil", ErrInvalidSearchResult)
	}
	if err := ValidateMatchKind(result.Kind); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSearchResult, err)
	}
	if result.Phrase == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSearchResult, ErrInvalidPhrase)
	}
	if err := ValidateAddress(result.Address); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSearchResult, err)
	}
	if result.Offset < 0 {
		return fmt.Errorf("%w: offset %d is negative", ErrInvalidSearchResult, result.Offset)
	}
	return nil
}
