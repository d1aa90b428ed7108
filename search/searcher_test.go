package search

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/babel/core"
	"github.com/poiesic/babel/library"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedTime })}, opts...)
	e, err := New(opts...)
	require.NoError(t, err)
	return e
}

// countingSource wraps library.Generate and counts the pages generated.
func countingSource(calls *atomic.Int64) library.PageSource {
	return func(address core.Address, length int) (string, error) {
		calls.Add(1)
		return library.Generate(address, length)
	}
}

// alternatingSource yields "abcd" at even addresses and "abcx" at odd ones.
func alternatingSource(address core.Address, length int) (string, error) {
	if err := core.ValidateAddress(address); err != nil {
		return "", err
	}
	if address%2 == 0 {
		return "abcd", nil
	}
	return "abcx", nil
}

type recordingMonitor struct {
	started  bool
	progress []int64
	matches  int
	finished int64
}

func (m *recordingMonitor) Start(_ string, _ core.Address, _ int64) {
	m.started = true
}

func (m *recordingMonitor) Progress(scanned int64, _ core.Address) {
	m.progress = append(m.progress, scanned)
}

func (m *recordingMonitor) Match(_ *core.SearchResult) {
	m.matches++
}

func (m *recordingMonitor) Finish(scanned int64, _ []core.SearchResult) {
	m.finished = scanned
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		e, err := New()
		require.NoError(t, err)
		assert.Equal(t, core.DefaultPageLength, e.PageLength())
	})

	t.Run("with custom logger", func(t *testing.T) {
		e, err := New(WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.NotNil(t, e)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		e, err := New(WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, e.logger)
	})

	t.Run("with page length", func(t *testing.T) {
		e, err := New(WithPageLength(100))
		require.NoError(t, err)
		assert.Equal(t, 100, e.PageLength())
	})

	t.Run("invalid page length", func(t *testing.T) {
		_, err := New(WithPageLength(0))
		assert.ErrorIs(t, err, core.ErrInvalidLength)
	})

	t.Run("nil generator", func(t *testing.T) {
		_, err := New(WithGenerator(nil))
		assert.ErrorIs(t, err, ErrGeneratorRequired)
	})
}

func TestExactSearch(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	t.Run("first match", func(t *testing.T) {
		results, err := e.ExactSearch(ctx, "the", 0, 100000, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)

		r := results[0]
		assert.Equal(t, core.MatchExact, r.Kind)
		assert.Equal(t, "the", r.Phrase)
		assert.Equal(t, core.Address(10), r.Address)
		assert.Equal(t, 555, r.Offset)
		assert.Equal(t, "the", r.MatchedText)
		assert.Equal(t, fixedTime, r.Timestamp)
		assert.Len(t, r.Digest, 64)

		page, err := e.Page(r.Address)
		require.NoError(t, err)
		assert.Equal(t, "the", page[r.Offset:r.Offset+3])
	})

	t.Run("several matches in address order", func(t *testing.T) {
		results, err := e.ExactSearch(ctx, "the", 0, 100000, 5)
		require.NoError(t, err)
		require.Len(t, results, 5)

		want := []struct {
			address core.Address
			offset  int
		}{{10, 555}, {12, 2091}, {23, 273}, {30, 1495}, {53, 2180}}
		for i, w := range want {
			assert.Equal(t, w.address, results[i].Address, "result %d", i)
			assert.Equal(t, w.offset, results[i].Offset, "result %d", i)
		}
	})

	t.Run("case folded", func(t *testing.T) {
		results, err := e.ExactSearch(ctx, "BaBeL", 0, 10000, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "babel", results[0].Phrase)
		assert.Equal(t, core.Address(3092), results[0].Address)
		assert.Equal(t, 1868, results[0].Offset)
		assert.Equal(t, core.Address(5881), results[1].Address)
		assert.Equal(t, core.Address(7630), results[2].Address)
	})

	t.Run("exhausted range", func(t *testing.T) {
		short := newTestEngine(t, WithPageLength(100))
		results, err := short.ExactSearch(ctx, "the", 0, 1000, 3)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, core.Address(71), results[0].Address)
		assert.Equal(t, 26, results[0].Offset)
		assert.Equal(t, core.Address(114), results[1].Address)
		assert.Equal(t, 37, results[1].Offset)
	})

	t.Run("zero attempt limit scans nothing", func(t *testing.T) {
		results, err := e.ExactSearch(ctx, "the", 0, 0, 1)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("invalid phrase fails before generating", func(t *testing.T) {
		var calls atomic.Int64
		counted := newTestEngine(t, WithGenerator(countingSource(&calls)))
		_, err := counted.ExactSearch(ctx, "hello!", 0, 100, 1)
		assert.ErrorIs(t, err, core.ErrInvalidPhrase)
		_, err = counted.ExactSearch(ctx, "", 0, 100, 1)
		assert.ErrorIs(t, err, core.ErrInvalidPhrase)
		assert.Zero(t, calls.Load())
	})

	t.Run("invalid bounds", func(t *testing.T) {
		_, err := e.ExactSearch(ctx, "the", -1, 100, 1)
		assert.ErrorIs(t, err, core.ErrInvalidAddress)
		_, err = e.ExactSearch(ctx, "the", 0, -1, 1)
		assert.ErrorIs(t, err, ErrInvalidLimit)
		_, err = e.ExactSearch(ctx, "the", 0, 100, 0)
		assert.ErrorIs(t, err, ErrInvalidLimit)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := e.ExactSearch(cctx, "the", 0, 100000, 1)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("generator error propagates", func(t *testing.T) {
		boom := errors.New("boom")
		failing := newTestEngine(t, WithGenerator(func(core.Address, int) (string, error) {
			return "", boom
		}))
		_, err := failing.ExactSearch(ctx, "the", 0, 10, 1)
		assert.ErrorIs(t, err, boom)
	})
}

func TestWildcardSearch(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	t.Run("single symbol wildcard", func(t *testing.T) {
		results, err := e.WildcardSearch(ctx, "t?e", 0, 50, 4)
		require.NoError(t, err)
		require.Len(t, results, 4)

		want := []struct {
			offset  int
			matched string
		}{{1617, "t,e"}, {2379, "tve"}, {2606, "tae"}, {2631, "tme"}}
		for i, w := range want {
			assert.Equal(t, core.MatchWildcard, results[i].Kind)
			assert.Equal(t, "t?e", results[i].Phrase)
			assert.Equal(t, core.Address(0), results[i].Address)
			assert.Equal(t, w.offset, results[i].Offset)
			assert.Equal(t, w.matched, results[i].MatchedText)
		}
	})

	t.Run("star matches the shortest run", func(t *testing.T) {
		results, err := e.WildcardSearch(ctx, "qu*k", 0, 50, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, 365, results[0].Offset)
		assert.Equal(t, "quxbczbgbayjeet.o oqtxv.v fprxnwlryxtafohby,ilxbsdiybbmozute.lrlbnearsdpk", results[0].MatchedText)
		assert.Equal(t, 832, results[1].Offset)
		assert.Equal(t, "qugvxwk", results[1].MatchedText)
		assert.Equal(t, 975, results[2].Offset)
		assert.Equal(t, "qutk", results[2].MatchedText)
	})

	t.Run("punctuation is literal", func(t *testing.T) {
		results, err := e.WildcardSearch(ctx, "z.z", 0, 5000, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, core.Address(10), results[0].Address)
		assert.Equal(t, 2883, results[0].Offset)
		assert.Equal(t, core.Address(12), results[1].Address)
		assert.Equal(t, 1768, results[1].Offset)
	})

	t.Run("matched text satisfies pattern", func(t *testing.T) {
		results, err := e.WildcardSearch(ctx, "a*b?c", 0, 20, 5)
		require.NoError(t, err)
		for _, r := range results {
			ok, err := MatchPattern(r.MatchedText, "a*b?c")
			require.NoError(t, err)
			assert.True(t, ok, r.MatchedText)
		}
	})

	t.Run("invalid patterns", func(t *testing.T) {
		_, err := e.WildcardSearch(ctx, "*", 0, 10, 1)
		assert.ErrorIs(t, err, core.ErrInvalidPattern)
		_, err = e.WildcardSearch(ctx, "a*b!", 0, 10, 1)
		assert.ErrorIs(t, err, core.ErrInvalidPhrase)
	})
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		text    string
		pattern string
		want    bool
	}{
		{"the cat", "t?e", true},
		{"the cat", "c*t", true},
		{"the cat", "c?g", false},
		{"THE CAT", "the*cat", true},
		{"a.b", "a.b", true},
		{"axb", "a.b", false},
	}
	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.pattern, func(t *testing.T) {
			got, err := MatchPattern(tt.text, tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFuzzyFallback(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	results, err := e.FuzzyFallback(ctx, "library of babel", 200, 50, 5)
	require.NoError(t, err)
	require.Len(t, results, 5)

	want := []struct {
		address core.Address
		score   int
		offset  int
		matched string
	}{
		{152, 4, 2526, "rary"},
		{153, 4, 1436, "babe"},
		{193, 4, 1871, "ary "},
		{150, 3, 2379, ""},
		{151, 3, 569, ""},
	}
	for i, w := range want {
		r := results[i]
		assert.Equal(t, core.MatchFuzzy, r.Kind)
		assert.Equal(t, w.address, r.Address, "result %d", i)
		assert.Equal(t, w.score, r.Score, "result %d", i)
		assert.Equal(t, w.offset, r.Offset, "result %d", i)
		if w.matched != "" {
			assert.Equal(t, w.matched, r.MatchedText, "result %d", i)
		}
		assert.Len(t, r.MatchedText, w.score)
	}

	t.Run("window clamped at zero", func(t *testing.T) {
		results, err := e.FuzzyFallback(ctx, "abc", 3, 100, 10)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("empty window", func(t *testing.T) {
		results, err := e.FuzzyFallback(ctx, "abc", 0, 100, 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		_, err := e.FuzzyFallback(ctx, "abc", 10, 5, 0)
		assert.ErrorIs(t, err, ErrInvalidLimit)
		_, err = e.FuzzyFallback(ctx, "abc", -1, 5, 1)
		assert.ErrorIs(t, err, core.ErrInvalidAddress)
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	t.Run("exact hit", func(t *testing.T) {
		report, err := e.Search(ctx, Query{Text: "the", Start: 0, AttemptLimit: 100000, MaxMatches: 2, FuzzyWindow: 50, FuzzyTopN: 3})
		require.NoError(t, err)
		assert.False(t, report.Fuzzy)
		assert.False(t, report.Exhausted)
		assert.Equal(t, int64(13), report.Scanned)
		require.Len(t, report.Results, 2)
		assert.Equal(t, core.Address(12), report.Results[1].Address)
	})

	t.Run("fuzzy fallback after a miss", func(t *testing.T) {
		report, err := e.Search(ctx, Query{Text: "Library of Babel", Start: 0, AttemptLimit: 200, MaxMatches: 1, FuzzyWindow: 50, FuzzyTopN: 3})
		require.NoError(t, err)
		assert.True(t, report.Fuzzy)
		assert.True(t, report.Exhausted)
		assert.Equal(t, int64(200), report.Scanned)
		require.Len(t, report.Results, 3)
		assert.Equal(t, core.Address(152), report.Results[0].Address)
		assert.Equal(t, core.Address(153), report.Results[1].Address)
		assert.Equal(t, core.Address(193), report.Results[2].Address)
	})

	t.Run("fuzzy disabled", func(t *testing.T) {
		report, err := e.Search(ctx, Query{Text: "library of babel", AttemptLimit: 20, MaxMatches: 1})
		require.NoError(t, err)
		assert.False(t, report.Fuzzy)
		assert.True(t, report.Exhausted)
		assert.Empty(t, report.Results)
	})

	t.Run("wildcard routing", func(t *testing.T) {
		report, err := e.Search(ctx, Query{Text: "t?e", AttemptLimit: 50, MaxMatches: 4, FuzzyWindow: 10, FuzzyTopN: 1})
		require.NoError(t, err)
		assert.False(t, report.Fuzzy)
		require.Len(t, report.Results, 4)
		assert.Equal(t, core.MatchWildcard, report.Results[0].Kind)
	})

	t.Run("fuzzy window without top n", func(t *testing.T) {
		var calls atomic.Int64
		e := newTestEngine(t, WithGenerator(countingSource(&calls)))
		_, err := e.Search(ctx, Query{Text: "babel", AttemptLimit: 100, MaxMatches: 1, FuzzyWindow: 50})
		assert.ErrorIs(t, err, ErrInvalidLimit)
		assert.Zero(t, calls.Load())
	})

	t.Run("monitor hooks", func(t *testing.T) {
		mon := &recordingMonitor{}
		report, err := e.Search(ctx, Query{Text: "babel", AttemptLimit: 2500, MaxMatches: 1, Monitor: mon})
		require.NoError(t, err)
		assert.True(t, mon.started)
		assert.Equal(t, []int64{1000, 2000}, mon.progress)
		assert.Zero(t, mon.matches)
		assert.Equal(t, int64(2500), mon.finished)
		assert.Equal(t, int64(2500), report.Scanned)
	})
}

func TestEstimate(t *testing.T) {
	e := newTestEngine(t)

	est, err := e.Estimate("THE", 10, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, est.PhraseLength)
	assert.InDelta(t, 1.0/24389, est.PositionProbability, 1e-12)
	assert.InDelta(t, 0.12289395, est.PageProbability, 1e-6)
	assert.InDelta(t, 8.1370968, est.ExpectedPagesPerMatch, 1e-5)
	assert.InDelta(t, 81.370968, est.ExpectedPagesTotal, 1e-4)
	assert.InDelta(t, 0.8137, est.EstimatedDuration.Seconds(), 1e-3)

	t.Run("phrase longer than a page", func(t *testing.T) {
		short := newTestEngine(t, WithPageLength(2))
		est, err := short.Estimate("abc", 1, 100)
		require.NoError(t, err)
		assert.Zero(t, est.PageProbability)
		assert.Equal(t, time.Duration(1<<63-1), est.EstimatedDuration)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := e.Estimate("a#", 1, 1)
		assert.ErrorIs(t, err, core.ErrInvalidPhrase)
		_, err = e.Estimate("abc", 0, 1)
		assert.ErrorIs(t, err, ErrInvalidLimit)
		_, err = e.Estimate("abc", 1, 0)
		assert.ErrorIs(t, err, ErrInvalidLimit)
	})
}

func TestMeasureEfficiency(t *testing.T) {
	eff := MeasureEfficiency(1000, 4, 2*time.Second)
	assert.InDelta(t, 500.0, eff.PagesPerSecond, 1e-9)
	assert.InDelta(t, 7200.0, eff.MatchesPerHour, 1e-9)
	assert.InDelta(t, 0.4, eff.SuccessRate, 1e-9)
	assert.Equal(t, 500*time.Millisecond, eff.TimePerMatch)

	assert.Equal(t, Efficiency{}, MeasureEfficiency(0, 0, time.Second))
	assert.Equal(t, Efficiency{}, MeasureEfficiency(10, 1, 0))
}

func TestMutations(t *testing.T) {
	t.Run("delete and swap", func(t *testing.T) {
		got, err := Mutations("Ab", MutateDelete, MutateSwap)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "ba"}, got)
	})

	t.Run("substitutions exclude the phrase", func(t *testing.T) {
		got, err := Mutations("ab", MutateSubstitute)
		require.NoError(t, err)
		assert.Len(t, got, 2*(core.AlphabetSize-1))
		assert.NotContains(t, got, "ab")
		assert.Contains(t, got, "zb")
		assert.Contains(t, got, "a.")
	})

	t.Run("all kinds by default", func(t *testing.T) {
		got, err := Mutations("ab")
		require.NoError(t, err)
		assert.Contains(t, got, "ba")
		assert.Contains(t, got, "a")
		assert.Contains(t, got, "xab")
		assert.Contains(t, got, "ab ")
		assert.IsIncreasing(t, got)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := Mutations("a!")
		assert.ErrorIs(t, err, core.ErrInvalidPhrase)
		_, err = Mutations("ab", MutationKind(99))
		assert.Error(t, err)
	})
}

func TestNeighborhood(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, WithGenerator(alternatingSource))

	n, err := e.Neighborhood(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, n.Neighbors, 5)
	assert.Equal(t, core.Address(8), n.Neighbors[0].Address)
	assert.Equal(t, int64(-2), n.Neighbors[0].Offset)
	assert.InDelta(t, 100.0, n.Neighbors[2].Similarity, 1e-9)
	assert.InDelta(t, 87.5, n.AvgSimilarity, 1e-9)
	assert.InDelta(t, 100.0, n.MaxSimilarity, 1e-9)
	assert.InDelta(t, 75.0, n.MinSimilarity, 1e-9)
	assert.InDelta(t, 2.0, n.AvgEntropy, 1e-9)
	assert.InDelta(t, 0.0, n.EntropyVariation, 1e-9)

	t.Run("clamped at zero", func(t *testing.T) {
		n, err := e.Neighborhood(ctx, 0, 2)
		require.NoError(t, err)
		assert.Len(t, n.Neighbors, 3)
	})

	t.Run("negative address", func(t *testing.T) {
		_, err := e.Neighborhood(ctx, -1, 2)
		assert.ErrorIs(t, err, core.ErrInvalidAddress)
	})

	t.Run("radius too large", func(t *testing.T) {
		_, err := e.Neighborhood(ctx, 10, library.MaxRadius+1)
		assert.ErrorIs(t, err, ErrInvalidLimit)
		_, err = e.SimilarPages(ctx, 10, library.MaxRadius+1, 0, 1)
		assert.ErrorIs(t, err, ErrInvalidLimit)
	})
}

func TestSimilarPages(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, WithGenerator(alternatingSource))

	pages, err := e.SimilarPages(ctx, 10, 2, 80, 10)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, SimilarPage{Address: 8, Distance: 2, Similarity: 100}, pages[0])
	assert.Equal(t, SimilarPage{Address: 12, Distance: 2, Similarity: 100}, pages[1])

	t.Run("sorted by similarity", func(t *testing.T) {
		pages, err := e.SimilarPages(ctx, 10, 1, 50, 10)
		require.NoError(t, err)
		require.Len(t, pages, 2)
		assert.Equal(t, core.Address(9), pages[0].Address)
		assert.InDelta(t, 75.0, pages[0].Similarity, 1e-9)
	})

	t.Run("stops at max results", func(t *testing.T) {
		pages, err := e.SimilarPages(ctx, 10, 5, 0, 3)
		require.NoError(t, err)
		assert.Len(t, pages, 3)
	})

	t.Run("invalid limit", func(t *testing.T) {
		_, err := e.SimilarPages(ctx, 10, 5, 0, 0)
		assert.ErrorIs(t, err, ErrInvalidLimit)
	})
}

func TestEcho(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, WithPageLength(1000))

	echo, err := e.Echo(ctx, 42, 43)
	require.NoError(t, err)
	assert.Equal(t, int64(1), echo.Distance)
	assert.Len(t, echo.PageA, 1000)
	assert.Equal(t, 896, echo.Comparison.EditDistance)
	assert.InDelta(t, 10.4, echo.Comparison.Similarity, 1e-9)
	assert.Equal(t, 4, echo.Comparison.LongestCommonLength)
	assert.False(t, echo.Comparison.Identical)

	same, err := e.Echo(ctx, 7, 7)
	require.NoError(t, err)
	assert.True(t, same.Comparison.Identical)
	assert.Zero(t, same.Distance)
}
