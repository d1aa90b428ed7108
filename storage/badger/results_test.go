package badger

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/babel/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResult(address core.Address, phrase string, offset int) *core.SearchResult {
	return &core.SearchResult{
		Kind:        core.MatchExact,
		Phrase:      phrase,
		Address:     address,
		Offset:      offset,
		MatchedText: phrase,
		Timestamp:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestResultRepository_AppendAndList(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()

	added, err := repos.Results.AppendResults(ctx,
		newResult(30, "the", 1495),
		newResult(10, "the", 555),
		newResult(10, "babel", 7),
	)
	require.NoError(t, err)
	assert.Len(t, added, 3)

	results, err := repos.Results.ListResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Insertion order, not address order
	assert.Equal(t, core.Address(30), results[0].Address)
	assert.Equal(t, core.Address(10), results[1].Address)
	assert.Equal(t, "babel", results[2].Phrase)
	assert.Equal(t, 555, results[1].Offset)

	count, err := repos.Results.CountResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestResultRepository_Dedup(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()

	_, err = repos.Results.AppendResults(ctx, newResult(10, "the", 555))
	require.NoError(t, err)

	t.Run("existing key skipped", func(t *testing.T) {
		added, err := repos.Results.AppendResults(ctx, newResult(10, "the", 999), newResult(12, "the", 2091))
		require.NoError(t, err)
		require.Len(t, added, 1)
		assert.Equal(t, core.Address(12), added[0].Address)
	})

	t.Run("duplicate within a batch", func(t *testing.T) {
		added, err := repos.Results.AppendResults(ctx, newResult(23, "the", 273), newResult(23, "the", 273))
		require.NoError(t, err)
		assert.Len(t, added, 1)
	})

	t.Run("has result", func(t *testing.T) {
		ok, err := repos.Results.HasResult(ctx, core.ResultKey{Address: 10, Phrase: "the"})
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repos.Results.HasResult(ctx, core.ResultKey{Address: 10, Phrase: "then"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	results, err := repos.Results.ListResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 555, results[0].Offset)
}

func TestResultRepository_InvalidResult(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()

	_, err = repos.Results.AppendResults(ctx, newResult(1, "ok", 0), newResult(-1, "the", 0))
	assert.ErrorIs(t, err, core.ErrInvalidSearchResult)

	count, err := repos.Results.CountResults(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "an invalid result must fail the whole batch")
}

func TestResultRepository_SkipsCorruptEntries(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()

	_, err = repos.Results.AppendResults(ctx, newResult(1, "abc", 3))
	require.NoError(t, err)

	err = repos.Backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeResultKey(1<<60), []byte{0xff, 0xff}); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	require.NoError(t, err)

	results, err := repos.Results.ListResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "abc", results[0].Phrase)
}

func TestResultRepository_Clear(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()

	_, err = repos.Results.AppendResults(ctx, newResult(1, "abc", 3), newResult(2, "abc", 4))
	require.NoError(t, err)

	require.NoError(t, repos.Results.ClearResults(ctx))

	count, err := repos.Results.CountResults(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	ok, err := repos.Results.HasResult(ctx, core.ResultKey{Address: 1, Phrase: "abc"})
	require.NoError(t, err)
	assert.False(t, ok)

	added, err := repos.Results.AppendResults(ctx, newResult(1, "abc", 3))
	require.NoError(t, err)
	assert.Len(t, added, 1)
}

func TestResultRepository_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	repos, err := NewRepositories(backend)
	require.NoError(t, err)

	_, err = repos.Results.AppendResults(ctx, newResult(5, "abc", 1), newResult(6, "abc", 2))
	require.NoError(t, err)
	require.NoError(t, repos.Close())

	backend, err = OpenBackend(dir, false)
	require.NoError(t, err)
	repos, err = NewRepositories(backend)
	require.NoError(t, err)
	defer repos.Close()

	_, err = repos.Results.AppendResults(ctx, newResult(4, "abc", 0))
	require.NoError(t, err)

	results, err := repos.Results.ListResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, core.Address(5), results[0].Address)
	assert.Equal(t, core.Address(6), results[1].Address)
	assert.Equal(t, core.Address(4), results[2].Address, "appends after reopen sort last")
}
