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


package badger

import "errors"

// Repositories bundles every repository sharing one Backend.
type Repositories struct {
	Backend     *Backend
	Results     *ResultRepository
	Checkpoints *CheckpointRepository
	Phrases     *PhraseRepository
}

// NewRepositories creates every repository on top of backend.
func NewRepositories(backend *Backend) (*Repositories, error) {
	results, err := NewResultRepository(backend)
	if err != nil {
		return nil, err
	}

	phrases, err := NewPhraseRepository(backend)
	if err != nil {
		results.Close()
		return nil, err
	}

	return &Repositories{
		Backend:     backend,
		Results:     results,
		Checkpoints: NewCheckpointRepository(backend),
		Phrases:     phrases,
	}, nil
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must call Close when done.
func NewMemoryRepositories() (*Repositories, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	repos, err := NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return repos, nil
}

// Close releases the repositories' sequences, then closes the backend.
func (r *Repositories) Close() error {
	return errors.Join(
		r.Results.Close(),
		r.Phrases.Close(),
		r.Backend.Close(),
	)
}
