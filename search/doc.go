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


// Package search scans ranges of the library for phrases.
//
// The Engine type implements three scan modes over a bounded address range:
//   - Exact search for the first literal occurrence of a phrase on each page
//   - Wildcard search where '*' matches any run of symbols and '?' exactly one
//   - Fuzzy fallback that ranks a trailing window of pages by their longest
//     common substring with the phrase
//
// Phrases and patterns are folded to lowercase and validated against the
// alphabet before any page is generated, so matching is case-insensitive in
// every mode.
//
// Scans are synchronous. The context is checked between pages; a page being
// generated is never interrupted. An exhausted range is not an error and is
// reported through Report.Exhausted.
package search
