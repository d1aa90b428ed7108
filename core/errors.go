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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidAddress indicates a negative page address.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidLength indicates a page length that is zero or negative.
	ErrInvalidLength = errors.New("invalid page length")

	// ErrInvalidPhrase indicates a phrase that is empty or contains symbols
	// outside the library alphabet.
	ErrInvalidPhrase = errors.New("invalid phrase")

	// ErrInvalidPattern indicates a wildcard pattern that cannot be compiled.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrInvalidCoordinate indicates a coordinate field out of range.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrAddressOverflow indicates a coordinate too large to encode as an address.
	ErrAddressOverflow = errors.New("address overflow")

	// ErrInvalidSearchResult indicates a SearchResult failed validation.
	ErrInvalidSearchResult = errors.New("invalid search result")

	// ErrInvalidMatchKind indicates an unknown MatchKind value.
	ErrInvalidMatchKind = errors.New("invalid match kind")
)

// Runtime errors
var (
	// ErrPersistenceRead indicates persisted state could not be read.
	// Callers recover from it with safe defaults.
	ErrPersistenceRead = errors.New("persisted state unreadable")

	// ErrWorkerFault indicates a failure while scanning a single address.
	ErrWorkerFault = errors.New("worker fault")
)
