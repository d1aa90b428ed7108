package storage

import (
	"testing"
	"time"

	"github.com/poiesic/babel/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	id := core.IDFromContent("library of babel")
	decoded, err := UnmarshalID(MarshalID(id))
	require.NoError(t, err)
	assert.Equal(t, id, decoded)

	_, err = UnmarshalID([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestSearchResultRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	result := &core.SearchResult{
		Kind:        core.MatchFuzzy,
		Phrase:      "library of babel",
		Address:     1 << 40,
		Offset:      3199,
		MatchedText: "rary",
		Score:       4,
		Digest:      "ec0b46c6083858ee6484bba7666986d23f72c229888b52897fa91a0fb3946d88",
		Timestamp:   now,
	}

	decoded, err := UnmarshalSearchResult(MarshalSearchResult(result))
	require.NoError(t, err)
	assert.True(t, result.Timestamp.Equal(decoded.Timestamp))
	decoded.Timestamp = result.Timestamp
	assert.Equal(t, result, decoded)
}

func TestUnmarshalSearchResult_Invalid(t *testing.T) {
	valid := MarshalSearchResult(&core.SearchResult{
		Kind:    core.MatchExact,
		Phrase:  "the",
		Address: 10,
		Offset:  555,
	})
	badKind := MarshalSearchResult(&core.SearchResult{
		Kind:   core.MatchKind(9),
		Phrase: "the",
	})

	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"truncated", valid[:len(valid)/2]},
		{"trailing bytes", append(append([]byte{}, valid...), 0x01)},
		{"invalid kind", badKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalSearchResult(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	checkpoint := &core.Checkpoint{Name: "background", LastAddress: 120000, UpdatedAt: now}

	decoded, err := UnmarshalCheckpoint(MarshalCheckpoint(checkpoint))
	require.NoError(t, err)
	assert.Equal(t, checkpoint.Name, decoded.Name)
	assert.Equal(t, checkpoint.LastAddress, decoded.LastAddress)
	assert.True(t, checkpoint.UpdatedAt.Equal(decoded.UpdatedAt))

	_, err = UnmarshalCheckpoint([]byte{0x05, 'a'})
	assert.ErrorIs(t, err, ErrSerializationFailed)

	negative := MarshalCheckpoint(&core.Checkpoint{Name: "x", LastAddress: -5})
	_, err = UnmarshalCheckpoint(negative)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestPhraseRoundTrip(t *testing.T) {
	decoded, err := UnmarshalPhrase(MarshalPhrase("the quick fox."))
	require.NoError(t, err)
	assert.Equal(t, "the quick fox.", decoded)

	_, err = UnmarshalPhrase(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
