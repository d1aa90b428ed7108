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


// Package library generates the pages of the Library of Babel and maps page
// addresses to their place in the hexagons.
//
// # Pages
//
// A page is a pure function of its address and length:
//
//	page, err := library.Generate(42, core.DefaultPageLength)
//
// The generation convention is permanent. Addresses recorded by any release
// keep pointing at the same text, so the pseudorandom stream, its seeding and
// the alphabet order never change.
//
// # Coordinates
//
// Every address has exactly one coordinate and every in-range coordinate has
// exactly one address:
//
//	c, _ := library.ToCoordinate(123456) // H5:W0:S3:V4:P56
//	a, _ := library.ToAddress(c)         // 123456
//
// The radices are 100 pages per volume, 10 volumes per shelf, 4 shelves per
// wall and 6 walls per hexagon. The hexagon count is unbounded up to the
// range of int64.
//
// # Thread Safety
//
// Everything in this package is safe for concurrent use. Generate allocates
// its own stream per call and shares no state.
package library
