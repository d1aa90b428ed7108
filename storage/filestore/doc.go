// Package filestore stores babel scan state in plain files under one
// directory, for setups where an embedded database is unwanted.
//
// Layout:
//
//	<name>.progress.json  checkpoint of a named scan, {"last_address": N}
//	results.jsonl         one JSON result per line, append-only
//	phrases.json          JSON array of watched phrases
//
// The progress record and the phrase list are replaced atomically (write to
// a temporary file, fsync, rename, fsync the directory), so a crash leaves
// either the old or the new version. Results are appended with O_APPEND and
// fsync'd per batch; a torn final line is skipped on the next read.
package filestore
