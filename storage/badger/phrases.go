package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/babel/core"
	"github.com/poiesic/babel/storage"
)

// PhraseRepository implements storage.PhraseRepository for BadgerDB.
// Phrases are indexed by their content ID so adding one twice is a no-op.
type PhraseRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.PhraseRepository = (*PhraseRepository)(nil)

// NewPhraseRepository creates a new PhraseRepository.
func NewPhraseRepository(backend *Backend) (*PhraseRepository, error) {
	idSeq, err := backend.GetSequence(phraseIDSeq)
	if err != nil {
		return nil, err
	}
	return &PhraseRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *PhraseRepository) Close() error {
	return r.idSeq.Release()
}

// AddPhrase validates phrase and stores it if absent.
func (r *PhraseRepository) AddPhrase(ctx context.Context, phrase string) (string, bool, error) {
	phrase, err := core.ValidatePhrase(phrase)
	if err != nil {
		return "", false, err
	}

	added := false
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		indexKey := makePhraseIndexKey(core.IDFromContent(phrase))
		seq, err := readPhraseSeq(tx, indexKey)
		if err != nil {
			return err
		}
		if seq != 0 {
			return nil
		}

		seq, err = r.idSeq.Next()
		if err != nil {
			return err
		}
		// BadgerDB sequences can return 0 on first call, so we skip it
		if seq == 0 {
			if seq, err = r.idSeq.Next(); err != nil {
				return err
			}
		}
		if err := tx.Set(makePhraseKey(seq), storage.MarshalPhrase(phrase)); err != nil {
			return err
		}
		if err := tx.Set(indexKey, storage.MarshalID(core.ID(seq))); err != nil {
			return err
		}
		added = true
		return tx.Commit()
	}, true)
	if err != nil {
		return "", false, err
	}
	return phrase, added, nil
}

// RemovePhrase removes phrase. Returns storage.ErrNotFound if it is not stored.
func (r *PhraseRepository) RemovePhrase(ctx context.Context, phrase string) error {
	phrase = core.NormalizePhrase(phrase)
	return r.backend.WithTx(func(tx *badger.Txn) error {
		indexKey := makePhraseIndexKey(core.IDFromContent(phrase))
		seq, err := readPhraseSeq(tx, indexKey)
		if err != nil {
			return err
		}
		if seq == 0 {
			return fmt.Errorf("%w: phrase %q", storage.ErrNotFound, phrase)
		}
		if err := tx.Delete(makePhraseKey(seq)); err != nil {
			return err
		}
		if err := tx.Delete(indexKey); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListPhrases returns the stored phrases in insertion order.
func (r *PhraseRepository) ListPhrases(ctx context.Context) ([]string, error) {
	var phrases []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(phrasePrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			var phrase string
			err := item.Value(func(val []byte) error {
				var err error
				phrase, err = storage.UnmarshalPhrase(val)
				return err
			})
			if err != nil {
				r.backend.logger.Warn("skipping unreadable phrase",
					"seq", binary.BigEndian.Uint64(item.Key()[len(phrasePrefix):]),
					"err", fmt.Errorf("%w: %w", core.ErrPersistenceRead, err))
				continue
			}
			phrases = append(phrases, phrase)
		}
		return nil
	}, false)
	return phrases, err
}

// readPhraseSeq returns the sequence number stored under an index key,
// or 0 if the key is absent.
func readPhraseSeq(tx *badger.Txn, indexKey []byte) (uint64, error) {
	item, err := tx.Get(indexKey)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	var id core.ID
	err = item.Value(func(val []byte) error {
		var err error
		id, err = storage.UnmarshalID(val)
		return err
	})
	return uint64(id), err
}
