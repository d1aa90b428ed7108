// Package compare analyzes and compares library pages.
//
// All functions are pure and safe for concurrent use. They accept any string,
// including the empty string, and compare byte by byte; pages only contain
// single-byte symbols.
//
// Boundary values for empty input:
//
//	Entropy("")          == 0
//	Similarity("", "")   == 100
//	Similarity("abc", "") == 0
//	EditDistance("", s)  == len(s)
package compare
