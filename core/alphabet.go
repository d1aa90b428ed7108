package core

// Alphabet is the fixed symbol set of every page. The order is part of the
// generation convention and must never change.
const Alphabet = "abcdefghijklmnopqrstuvwxyz ,."

// AlphabetSize is the number of symbols in Alphabet.
const AlphabetSize = len(Alphabet)

// DefaultPageLength is the number of symbols on a page.
const DefaultPageLength = 3200

// Wildcard tokens accepted in patterns.
const (
	WildcardAny    = '*'
	WildcardSingle = '?'
)

var symbolTable = func() [256]bool {
	var t [256]bool
	for i := 0; i < len(Alphabet); i++ {
		t[Alphabet[i]] = true
	}
	return t
}()

// IsSymbol reports whether r belongs to Alphabet.
func IsSymbol(r rune) bool {
	return r >= 0 && r < 256 && symbolTable[r]
}
