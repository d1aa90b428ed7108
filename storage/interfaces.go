package storage

import (
	"context"

	"github.com/poiesic/babel/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository.
	Close() error
}

// CheckpointRepository persists the progress record of named scans.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint, replacing any previous one with
	// the same name. Sets UpdatedAt.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for a scan name.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error)
}

// ResultRepository is an append-only store of search results, kept in
// insertion order and deduplicated by (address, phrase).
type ResultRepository interface {
	Repository

	// AppendResults stores results whose key is not present yet, in the
	// given order. Results are validated first; an invalid result fails the
	// whole call. Returns the results that were actually appended.
	AppendResults(ctx context.Context, results ...*core.SearchResult) ([]*core.SearchResult, error)

	// ListResults returns every stored result in insertion order.
	// Entries that cannot be decoded are skipped and logged.
	ListResults(ctx context.Context) ([]*core.SearchResult, error)

	// HasResult reports whether a result with key is stored.
	HasResult(ctx context.Context, key core.ResultKey) (bool, error)

	// CountResults returns the number of stored results.
	CountResults(ctx context.Context) (int, error)

	// ClearResults removes every stored result.
	ClearResults(ctx context.Context) error
}

// PhraseRepository stores the ordered, deduplicated set of phrases the
// background scan watches for.
type PhraseRepository interface {
	// AddPhrase validates and normalizes phrase and stores it if absent.
	// Returns the normalized phrase and whether it was added.
	AddPhrase(ctx context.Context, phrase string) (string, bool, error)

	// RemovePhrase removes phrase. Returns ErrNotFound if it is not stored.
	RemovePhrase(ctx context.Context, phrase string) error

	// ListPhrases returns the stored phrases in insertion order.
	ListPhrases(ctx context.Context) ([]string, error)
}
