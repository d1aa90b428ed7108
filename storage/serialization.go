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


package storage

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/poiesic/babel/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: id: %w", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalSearchResult serializes a SearchResult to bytes.
func MarshalSearchResult(result *core.SearchResult) []byte {
	buf := make([]byte, core.SearchResultMUS.Size(*result))
	core.SearchResultMUS.Marshal(*result, buf)
	return buf
}

// UnmarshalSearchResult deserializes a SearchResult from bytes. Decoded
// results are validated, so a corrupt entry never reaches callers.
func UnmarshalSearchResult(data []byte) (*core.SearchResult, error) {
	result, n, err := core.SearchResultMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: search result: %w", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: search result: %d trailing bytes", ErrSerializationFailed, len(data)-n)
	}
	if err := core.ValidateSearchResult(&result); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &result, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) []byte {
	buf := make([]byte, core.CheckpointMUS.Size(*checkpoint))
	core.CheckpointMUS.Marshal(*checkpoint, buf)
	return buf
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	checkpoint, _, err := core.CheckpointMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: checkpoint: %w", ErrSerializationFailed, err)
	}
	if checkpoint.LastAddress < 0 {
		return nil, fmt.Errorf("%w: checkpoint: %w", ErrSerializationFailed, core.ErrInvalidAddress)
	}
	return &checkpoint, nil
}

// MarshalPhrase serializes a phrase to bytes.
func MarshalPhrase(phrase string) []byte {
	buf := make([]byte, ord.String.Size(phrase))
	ord.String.Marshal(phrase, buf)
	return buf
}

// UnmarshalPhrase deserializes a phrase from bytes.
func UnmarshalPhrase(data []byte) (string, error) {
	phrase, _, err := ord.String.Unmarshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: phrase: %w", ErrSerializationFailed, err)
	}
	return phrase, nil
}
