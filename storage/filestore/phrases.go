package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/poiesic/babel/core"
	"github.com/poiesic/babel/storage"
)

// AddPhrase validates phrase and appends it to the phrase list if absent.
func (s *Store) AddPhrase(ctx context.Context, phrase string) (string, bool, error) {
	phrase, err := core.ValidatePhrase(phrase)
	if err != nil {
		return "", false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	phrases, err := s.readPhrases()
	if err != nil {
		return "", false, err
	}
	if slices.Contains(phrases, phrase) {
		return phrase, false, nil
	}
	if err := s.writePhrases(append(phrases, phrase)); err != nil {
		return "", false, err
	}
	return phrase, true, nil
}

// RemovePhrase removes phrase. Returns storage.ErrNotFound if it is not stored.
func (s *Store) RemovePhrase(ctx context.Context, phrase string) error {
	phrase = core.NormalizePhrase(phrase)

	s.mu.Lock()
	defer s.mu.Unlock()
	phrases, err := s.readPhrases()
	if err != nil {
		return err
	}
	i := slices.Index(phrases, phrase)
	if i < 0 {
		return fmt.Errorf("%w: phrase %q", storage.ErrNotFound, phrase)
	}
	return s.writePhrases(slices.Delete(phrases, i, i+1))
}

// ListPhrases returns the stored phrases in insertion order. An unreadable
// phrase file is logged and reads as an empty list.
func (s *Store) ListPhrases(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readPhrases()
}

func (s *Store) readPhrases() ([]string, error) {
	data, err := os.ReadFile(s.path(phrasesFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var phrases []string
	if err := json.Unmarshal(data, &phrases); err != nil {
		s.logger.Warn("ignoring unreadable phrase file",
			"err", fmt.Errorf("%w: %s: %w", core.ErrPersistenceRead, phrasesFile, err))
		return nil, nil
	}
	return phrases, nil
}

func (s *Store) writePhrases(phrases []string) error {
	if phrases == nil {
		phrases = []string{}
	}
	data, err := json.MarshalIndent(phrases, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path(phrasesFile), data, filePerm)
}
