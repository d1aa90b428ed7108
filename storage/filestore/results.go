package filestore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/poiesic/babel/core"
)

// maxLineSize bounds one line of the result log.
const maxLineSize = 1 << 20

// resultRecord is the on-disk form of a core.SearchResult.
type resultRecord struct {
	Kind        string    `json:"kind"`
	Phrase      string    `json:"phrase"`
	Address     int64     `json:"address"`
	Offset      int       `json:"offset"`
	MatchedText string    `json:"matched_text"`
	Score       int       `json:"score,omitempty"`
	Digest      string    `json:"digest,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func toRecord(r *core.SearchResult) resultRecord {
	return resultRecord{
		Kind:        r.Kind.String(),
		Phrase:      r.Phrase,
		Address:     int64(r.Address),
		Offset:      r.Offset,
		MatchedText: r.MatchedText,
		Score:       r.Score,
		Digest:      r.Digest,
		Timestamp:   r.Timestamp,
	}
}

func (rec resultRecord) result() (*core.SearchResult, error) {
	kind, err := parseKind(rec.Kind)
	if err != nil {
		return nil, err
	}
	r := &core.SearchResult{
		Kind:        kind,
		Phrase:      rec.Phrase,
		Address:     core.Address(rec.Address),
		Offset:      rec.Offset,
		MatchedText: rec.MatchedText,
		Score:       rec.Score,
		Digest:      rec.Digest,
		Timestamp:   rec.Timestamp.UTC(),
	}
	if err := core.ValidateSearchResult(r); err != nil {
		return nil, err
	}
	return r, nil
}

func parseKind(s string) (core.MatchKind, error) {
	for _, k := range []core.MatchKind{core.MatchExact, core.MatchWildcard, core.MatchFuzzy} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", core.ErrInvalidMatchKind, s)
}

// AppendResults appends results whose (address, phrase) key is not stored
// yet. The whole batch is written and fsync'd at once.
func (s *Store) AppendResults(ctx context.Context, results ...*core.SearchResult) ([]*core.SearchResult, error) {
	for _, r := range results {
		if err := core.ValidateSearchResult(r); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var (
		buf      bytes.Buffer
		appended []*core.SearchResult
		batch    = make(map[core.ResultKey]struct{})
	)
	for _, r := range results {
		key := r.Key()
		if _, ok := s.keys[key]; ok {
			continue
		}
		if _, ok := batch[key]; ok {
			continue
		}
		line, err := json.Marshal(toRecord(r))
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
		batch[key] = struct{}{}
		appended = append(appended, r)
	}
	if len(appended) == 0 {
		return nil, nil
	}

	info, err := s.results.Stat()
	if err != nil {
		return nil, fmt.Errorf("appending results: %w", err)
	}
	if _, err := s.results.Write(buf.Bytes()); err != nil {
		return nil, s.rollback(info.Size(), fmt.Errorf("appending results: %w", err))
	}
	if err := s.results.Sync(); err != nil {
		return nil, s.rollback(info.Size(), fmt.Errorf("syncing results: %w", err))
	}
	for key := range batch {
		s.keys[key] = struct{}{}
	}
	return appended, nil
}

// rollback cuts the log back to size so a partly written batch cannot
// merge with the record appended by a retry.
func (s *Store) rollback(size int64, cause error) error {
	if err := s.results.Truncate(size); err != nil {
		s.logger.Error("truncating result log after failed append", "size", size, "err", err)
		return errors.Join(cause, err)
	}
	return cause
}

// ListResults returns every readable result in the order it was appended.
func (s *Store) ListResults(ctx context.Context) ([]*core.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.readResults()
}

// readResults parses the result log. Unreadable lines are logged and
// skipped. Must be called with the lock held or before the store is shared.
func (s *Store) readResults() ([]*core.SearchResult, error) {
	f, err := os.Open(s.path(resultsFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var results []*core.SearchResult
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec resultRecord
		err := json.Unmarshal(line, &rec)
		var r *core.SearchResult
		if err == nil {
			r, err = rec.result()
		}
		if err != nil {
			s.logger.Warn("skipping unreadable result",
				"line", lineNo,
				"err", fmt.Errorf("%w: %w", core.ErrPersistenceRead, err))
			continue
		}
		results = append(results, r)
	}
	if err := scanner.Err(); err != nil {
		return results, fmt.Errorf("%w: reading %s: %w", core.ErrPersistenceRead, resultsFile, err)
	}
	return results, nil
}

// HasResult reports whether a result with key is stored.
func (s *Store) HasResult(ctx context.Context, key core.ResultKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	_, ok := s.keys[key]
	return ok, nil
}

// CountResults returns the number of stored results.
func (s *Store) CountResults(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	return len(s.keys), nil
}

// ClearResults truncates the result log.
func (s *Store) ClearResults(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.results.Truncate(0); err != nil {
		return err
	}
	if err := s.results.Sync(); err != nil {
		return err
	}
	s.keys = make(map[core.ResultKey]struct{})
	return nil
}
