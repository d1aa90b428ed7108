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


// Package storage provides the storage abstraction layer for babel.
//
// This package defines repository interfaces that decouple the background
// scan and the CLI from the storage backend, plus the binary encodings used
// by key-value backends.
//
// # Architecture
//
//   - CheckpointRepository: progress record of a named scan
//   - ResultRepository: append-only, deduplicated search results
//   - PhraseRepository: the watched phrase set
//
// Two backends implement all three:
//
//   - storage/badger: BadgerDB, on disk or in memory
//   - storage/filestore: plain files (JSON progress record, JSON Lines results)
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	results, err := badger.NewResultRepository(backend)
//
// Use in tests with in-memory storage:
//
//	repos, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context. Pass context.Background()
// for operations without specific timeout requirements.
package storage
