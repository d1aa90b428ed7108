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


// Package babel opens a persistent Library of Babel workspace: the result
// log, scan checkpoints and watched phrases, plus the engines that fill them.
package babel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/babel/background"
	"github.com/poiesic/babel/config"
	"github.com/poiesic/babel/core"
	"github.com/poiesic/babel/search"
	"github.com/poiesic/babel/storage"
	"github.com/poiesic/babel/storage/badger"
	"github.com/poiesic/babel/storage/filestore"
)

// Library is an open store of search results, scan checkpoints and watched
// phrases. It is safe for concurrent use; Close releases the backend.
type Library struct {
	results     storage.ResultRepository
	checkpoints storage.CheckpointRepository
	phrases     storage.PhraseRepository
	close       func() error
	logger      *slog.Logger
}

// Option configures Open.
type Option func(*options)

type options struct {
	backend string
	logger  *slog.Logger
}

// WithBackend selects config.BackendBadger (default) or config.BackendFiles.
func WithBackend(backend string) Option {
	return func(o *options) {
		o.backend = backend
	}
}

// WithLogger sets the logger handed to the backend and every engine.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func applyOptions(opts []Option) *options {
	o := &options{backend: config.BackendBadger, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open opens or creates a library stored at path.
func Open(path string, opts ...Option) (*Library, error) {
	o := applyOptions(opts)
	switch o.backend {
	case config.BackendBadger:
		backend, err := badger.OpenBackend(path, false, badger.WithLogger(o.logger))
		if err != nil {
			return nil, err
		}
		return fromBadger(backend, o.logger)
	case config.BackendFiles:
		store, err := filestore.Open(path, filestore.WithLogger(o.logger))
		if err != nil {
			return nil, err
		}
		return &Library{
			results:     store,
			checkpoints: store,
			phrases:     store,
			close:       store.Close,
			logger:      o.logger,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalidConfig, o.backend)
	}
}

// OpenConfig opens the store described by cfg.
func OpenConfig(cfg *config.Config, opts ...Option) (*Library, error) {
	return Open(cfg.Store.Path, append([]Option{WithBackend(cfg.Store.Backend)}, opts...)...)
}

// OpenMemory creates a library that lives only in memory.
func OpenMemory(opts ...Option) (*Library, error) {
	o := applyOptions(opts)
	backend, err := badger.OpenBackend("", true, badger.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}
	return fromBadger(backend, o.logger)
}

func fromBadger(backend *badger.Backend, logger *slog.Logger) (*Library, error) {
	repos, err := badger.NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return &Library{
		results:     repos.Results,
		checkpoints: repos.Checkpoints,
		phrases:     repos.Phrases,
		close:       repos.Close,
		logger:      logger,
	}, nil
}

func (l *Library) Close() error {
	if err := l.close(); err != nil {
		l.logger.Error("error closing library", "err", err)
		return err
	}
	return nil
}

func (l *Library) Results() storage.ResultRepository {
	return l.results
}

func (l *Library) Checkpoints() storage.CheckpointRepository {
	return l.checkpoints
}

func (l *Library) Phrases() storage.PhraseRepository {
	return l.phrases
}

// NewEngine creates a search engine logging through the library's logger.
func (l *Library) NewEngine(opts ...search.Option) (*search.Engine, error) {
	return search.New(append([]search.Option{search.WithLogger(l.logger)}, opts...)...)
}

// NewCoordinator creates a background coordinator watching the stored
// phrases. Phrases added or removed on the coordinator are persisted.
// Unreadable stored phrases are logged and treated as none.
func (l *Library) NewCoordinator(ctx context.Context, opts ...background.Option) (*background.Coordinator, error) {
	phrases, err := l.phrases.ListPhrases(ctx)
	if err != nil {
		if !errors.Is(err, core.ErrPersistenceRead) {
			return nil, err
		}
		l.logger.Warn("ignoring unreadable phrases", "err", err)
		phrases = nil
	}
	base := []background.Option{
		background.WithLogger(l.logger),
		background.WithPhraseRepository(l.phrases),
	}
	return background.New(l.results, l.checkpoints, phrases, append(base, opts...)...)
}

// Progress summarizes the persisted state of a named background scan.
type Progress struct {
	Name       string
	Checkpoint *core.Checkpoint // nil if the scan never saved one
	Results    int
	Phrases    []string
}

// Progress reads the checkpoint of the scan called name along with the
// result and phrase counts.
func (l *Library) Progress(ctx context.Context, name string) (Progress, error) {
	checkpoint, err := l.checkpoints.LoadCheckpoint(ctx, name)
	if err != nil {
		return Progress{}, err
	}
	count, err := l.results.CountResults(ctx)
	if err != nil {
		return Progress{}, err
	}
	phrases, err := l.phrases.ListPhrases(ctx)
	if err != nil {
		return Progress{}, err
	}
	return Progress{Name: name, Checkpoint: checkpoint, Results: count, Phrases: phrases}, nil
}
