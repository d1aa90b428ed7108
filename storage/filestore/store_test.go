package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/babel/core"
	"github.com/poiesic/babel/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func result(address core.Address, phrase string, offset int) *core.SearchResult {
	return &core.SearchResult{
		Kind:        core.MatchExact,
		Phrase:      phrase,
		Address:     address,
		Offset:      offset,
		MatchedText: phrase,
		Digest:      "d",
		Timestamp:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestCheckpoint(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openStore(t, dir)

	t.Run("missing", func(t *testing.T) {
		checkpoint, err := s.LoadCheckpoint(ctx, "background")
		require.NoError(t, err)
		assert.Nil(t, checkpoint)
	})

	t.Run("save and load", func(t *testing.T) {
		require.NoError(t, s.SaveCheckpoint(ctx, &core.Checkpoint{Name: "background", LastAddress: 40000}))

		data, err := os.ReadFile(filepath.Join(dir, "background.progress.json"))
		require.NoError(t, err)
		assert.Contains(t, string(data), `"last_address":40000`)

		checkpoint, err := s.LoadCheckpoint(ctx, "background")
		require.NoError(t, err)
		require.NotNil(t, checkpoint)
		assert.Equal(t, core.Address(40000), checkpoint.LastAddress)
		assert.Equal(t, "background", checkpoint.Name)
	})

	t.Run("no temp files left behind", func(t *testing.T) {
		matches, err := filepath.Glob(filepath.Join(dir, ".tmp-*"))
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("corrupt progress file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.progress.json"), []byte(`{"last_add`), 0o644))
		_, err := s.LoadCheckpoint(ctx, "broken")
		assert.ErrorIs(t, err, core.ErrPersistenceRead)
	})

	t.Run("negative address on disk", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "neg.progress.json"), []byte(`{"last_address":-3}`), 0o644))
		_, err := s.LoadCheckpoint(ctx, "neg")
		assert.ErrorIs(t, err, core.ErrPersistenceRead)
	})

	t.Run("invalid names", func(t *testing.T) {
		err := s.SaveCheckpoint(ctx, &core.Checkpoint{Name: "", LastAddress: 1})
		assert.ErrorIs(t, err, storage.ErrCheckpointNameRequired)
		err = s.SaveCheckpoint(ctx, &core.Checkpoint{Name: "../escape", LastAddress: 1})
		assert.ErrorIs(t, err, ErrInvalidName)
	})
}

func TestResults(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openStore(t, dir)

	added, err := s.AppendResults(ctx, result(30, "the", 1495), result(10, "the", 555), result(30, "the", 1))
	require.NoError(t, err)
	assert.Len(t, added, 2)

	added, err = s.AppendResults(ctx, result(10, "the", 555), result(10, "babel", 9))
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, "babel", added[0].Phrase)

	results, err := s.ListResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, core.Address(30), results[0].Address)
	assert.Equal(t, 1495, results[0].Offset)
	assert.Equal(t, core.Address(10), results[1].Address)
	assert.Equal(t, result(10, "babel", 9), results[2])

	count, err := s.CountResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	ok, err := s.HasResult(ctx, core.ResultKey{Address: 10, Phrase: "babel"})
	require.NoError(t, err)
	assert.True(t, ok)

	t.Run("invalid result", func(t *testing.T) {
		_, err := s.AppendResults(ctx, result(1, "", 0))
		assert.ErrorIs(t, err, core.ErrInvalidSearchResult)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, s.ClearResults(ctx))
		results, err := s.ListResults(ctx)
		require.NoError(t, err)
		assert.Empty(t, results)

		added, err := s.AppendResults(ctx, result(10, "the", 555))
		require.NoError(t, err)
		assert.Len(t, added, 1)
	})
}

func TestResults_Reopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	_, err = s.AppendResults(ctx, result(1, "abc", 0), result(2, "abc", 0))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s = openStore(t, dir)
	ok, err := s.HasResult(ctx, core.ResultKey{Address: 2, Phrase: "abc"})
	require.NoError(t, err)
	assert.True(t, ok)

	added, err := s.AppendResults(ctx, result(2, "abc", 0))
	require.NoError(t, err)
	assert.Empty(t, added)
}

func TestResults_CorruptLines(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	_, err = s.AppendResults(ctx, result(1, "abc", 0))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Garbage, a record with an unknown kind, and a torn final line.
	f, err := os.OpenFile(filepath.Join(dir, resultsFile), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n" + `{"kind":"nope","phrase":"x","address":1}` + "\n" + `{"kind":"exact","phr`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	s = openStore(t, dir)
	results, err := s.ListResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// The torn line is terminated, so new appends stay readable.
	_, err = s.AppendResults(ctx, result(2, "abc", 0))
	require.NoError(t, err)
	results, err = s.ListResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, core.Address(2), results[1].Address)
}

// tornLog writes half of the first batch and then fails, like a disk
// filling up mid-write.
type tornLog struct {
	appendLog
	failed bool
}

func (l *tornLog) Write(p []byte) (int, error) {
	if l.failed {
		return l.appendLog.Write(p)
	}
	l.failed = true
	n, _ := l.appendLog.Write(p[:len(p)/2])
	return n, errors.New("no space left on device")
}

func TestResults_FailedAppendRollsBack(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	_, err = s.AppendResults(ctx, result(1, "abc", 0))
	require.NoError(t, err)
	s.results = &tornLog{appendLog: s.results}

	_, err = s.AppendResults(ctx, result(2, "abc", 0))
	require.Error(t, err)
	has, err := s.HasResult(ctx, result(2, "abc", 0).Key())
	require.NoError(t, err)
	assert.False(t, has)

	// The retry lands on its own line.
	added, err := s.AppendResults(ctx, result(2, "abc", 0))
	require.NoError(t, err)
	require.Len(t, added, 1)
	require.NoError(t, s.Close())

	results, err := openStore(t, dir).ListResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, core.Address(1), results[0].Address)
	assert.Equal(t, core.Address(2), results[1].Address)
}

func TestClosedStore(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.AppendResults(context.Background(), result(1, "abc", 0))
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestPhrases(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openStore(t, dir)

	phrases, err := s.ListPhrases(ctx)
	require.NoError(t, err)
	assert.Empty(t, phrases)

	phrase, added, err := s.AddPhrase(ctx, "The End")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, "the end", phrase)

	_, added, err = s.AddPhrase(ctx, "the end")
	require.NoError(t, err)
	assert.False(t, added)

	_, _, err = s.AddPhrase(ctx, "babel")
	require.NoError(t, err)

	_, _, err = s.AddPhrase(ctx, "tab\t")
	assert.ErrorIs(t, err, core.ErrInvalidPhrase)

	phrases, err = s.ListPhrases(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"the end", "babel"}, phrases)

	require.NoError(t, s.RemovePhrase(ctx, "THE END"))
	assert.ErrorIs(t, s.RemovePhrase(ctx, "the end"), storage.ErrNotFound)

	reopened := openStore(t, dir)
	phrases, err = reopened.ListPhrases(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"babel"}, phrases)

	t.Run("corrupt phrase file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, phrasesFile), []byte("[\"a"), 0o644))
		phrases, err := s.ListPhrases(ctx)
		require.NoError(t, err)
		assert.Empty(t, phrases)

		// The next write replaces the damaged file.
		_, added, err := s.AddPhrase(ctx, "babel")
		require.NoError(t, err)
		assert.True(t, added)
		phrases, err = openStore(t, dir).ListPhrases(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"babel"}, phrases)
	})
}
