package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Address identifies one page of the library. Valid addresses are >= 0.
type Address int64

// MatchKind identifies how a SearchResult was found.
type MatchKind int

const (
	// MatchExact is a literal phrase occurrence.
	MatchExact MatchKind = iota + 1
	// MatchWildcard is a wildcard pattern match.
	MatchWildcard
	// MatchFuzzy is a ranked near-miss from the fuzzy fallback.
	MatchFuzzy
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchWildcard:
		return "wildcard"
	case MatchFuzzy:
		return "fuzzy"
	default:
		return "unknown"
	}
}

// ResultKey is the deduplication key of a SearchResult.
type ResultKey struct {
	Address Address
	Phrase  string
}

// SearchResult is a single match of a phrase or pattern on a page.
type SearchResult struct {
	Kind        MatchKind
	Phrase      string    // Phrase or pattern that produced the match
	Address     Address
	Offset      int       // Start of the match within the page
	MatchedText string
	Score       int       // Longest common substring length, fuzzy results only
	Digest      string    // SHA-256 of the full page
	Timestamp   time.Time // When the match was found
}

// Key returns the (address, phrase) pair used to deduplicate results.
func (r *SearchResult) Key() ResultKey {
	return ResultKey{Address: r.Address, Phrase: r.Phrase}
}

// Checkpoint records the furthest address confirmed scanned by a named scan.
type Checkpoint struct {
	Name        string
	LastAddress Address
	UpdatedAt   time.Time
}
