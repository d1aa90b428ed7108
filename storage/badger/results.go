package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/babel/core"
	"github.com/poiesic/babel/storage"
)

// ResultRepository implements storage.ResultRepository for BadgerDB.
type ResultRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ResultRepository = (*ResultRepository)(nil)

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(backend *Backend) (*ResultRepository, error) {
	idSeq, err := backend.GetSequence(resultIDSeq)
	if err != nil {
		return nil, err
	}

	return &ResultRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ResultRepository) Close() error {
	return r.idSeq.Release()
}

// AppendResults stores results whose (address, phrase) key is not present.
func (r *ResultRepository) AppendResults(ctx context.Context, results ...*core.SearchResult) ([]*core.SearchResult, error) {
	for _, result := range results {
		if err := core.ValidateSearchResult(result); err != nil {
			return nil, err
		}
	}

	var appended []*core.SearchResult
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, result := range results {
			indexKey := makeResultIndexKey(result.Key())
			_, err := tx.Get(indexKey)
			if err == nil {
				continue
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			seq, err := r.next()
			if err != nil {
				return err
			}
			if err := tx.Set(makeResultKey(seq), storage.MarshalSearchResult(result)); err != nil {
				return err
			}
			if err := tx.Set(indexKey, storage.MarshalID(core.ID(seq))); err != nil {
				return err
			}
			appended = append(appended, result)
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return appended, nil
}

// next returns the next sequence number.
func (r *ResultRepository) next() (uint64, error) {
	seq, err := r.idSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if seq == 0 {
		return r.idSeq.Next()
	}
	return seq, nil
}

// ListResults returns every stored result in insertion order.
func (r *ResultRepository) ListResults(ctx context.Context) ([]*core.SearchResult, error) {
	var results []*core.SearchResult
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(resultPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			var result *core.SearchResult
			err := item.Value(func(val []byte) error {
				var err error
				result, err = storage.UnmarshalSearchResult(val)
				return err
			})
			if errors.Is(err, storage.ErrSerializationFailed) {
				r.backend.logger.Warn("skipping unreadable result",
					"key", fmt.Sprintf("%x", item.Key()),
					"err", fmt.Errorf("%w: %w", core.ErrPersistenceRead, err))
				continue
			}
			if err != nil {
				return err
			}
			results = append(results, result)
		}
		return nil
	}, false)
	return results, err
}

// HasResult reports whether a result with key is stored.
func (r *ResultRepository) HasResult(ctx context.Context, key core.ResultKey) (bool, error) {
	found := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeResultIndexKey(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return nil
	}, false)
	return found, err
}

// CountResults returns the number of stored results.
func (r *ResultRepository) CountResults(ctx context.Context) (int, error) {
	return r.backend.countPrefix([]byte(resultPrefix))
}

// ClearResults removes every stored result and its index entry.
func (r *ResultRepository) ClearResults(ctx context.Context) error {
	return r.backend.DropPrefix([]byte(resultPrefix), []byte(resultKeyPrefix))
}
