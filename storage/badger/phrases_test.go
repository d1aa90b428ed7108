package badger

import (
	"context"
	"testing"

	"github.com/poiesic/babel/core"
	"github.com/poiesic/babel/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhraseRepository(t *testing.T) {
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	repo := repos.Phrases

	t.Run("add normalizes", func(t *testing.T) {
		phrase, added, err := repo.AddPhrase(ctx, "The Library")
		require.NoError(t, err)
		assert.True(t, added)
		assert.Equal(t, "the library", phrase)
	})

	t.Run("add is idempotent", func(t *testing.T) {
		_, added, err := repo.AddPhrase(ctx, "THE LIBRARY")
		require.NoError(t, err)
		assert.False(t, added)
	})

	t.Run("invalid phrase rejected", func(t *testing.T) {
		_, _, err := repo.AddPhrase(ctx, "hello, world!")
		assert.ErrorIs(t, err, core.ErrInvalidPhrase)
	})

	_, _, err = repo.AddPhrase(ctx, "babel")
	require.NoError(t, err)
	_, _, err = repo.AddPhrase(ctx, "abc")
	require.NoError(t, err)

	phrases, err := repo.ListPhrases(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"the library", "babel", "abc"}, phrases)

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, repo.RemovePhrase(ctx, "Babel"))

		phrases, err := repo.ListPhrases(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"the library", "abc"}, phrases)

		err = repo.RemovePhrase(ctx, "babel")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("re-added phrase goes last", func(t *testing.T) {
		_, added, err := repo.AddPhrase(ctx, "babel")
		require.NoError(t, err)
		assert.True(t, added)

		phrases, err := repo.ListPhrases(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"the library", "abc", "babel"}, phrases)
	})
}
