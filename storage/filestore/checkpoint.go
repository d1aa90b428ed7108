package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/poiesic/babel/core"
)

// progressRecord is the on-disk checkpoint.
type progressRecord struct {
	LastAddress int64     `json:"last_address"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// SaveCheckpoint atomically replaces the progress file of checkpoint.Name.
func (s *Store) SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	path, err := checkpointPath(s.dir, checkpoint.Name)
	if err != nil {
		return err
	}
	if err := core.ValidateAddress(checkpoint.LastAddress); err != nil {
		return err
	}

	checkpoint.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(progressRecord{
		LastAddress: int64(checkpoint.LastAddress),
		UpdatedAt:   checkpoint.UpdatedAt,
	})
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data, filePerm)
}

// LoadCheckpoint reads the progress file of a named scan.
// Returns nil, nil if the file does not exist. An unreadable file returns
// an error wrapping core.ErrPersistenceRead.
func (s *Store) LoadCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error) {
	path, err := checkpointPath(s.dir, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", core.ErrPersistenceRead, err)
	}

	var rec progressRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrPersistenceRead, path, err)
	}
	if rec.LastAddress < 0 {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrPersistenceRead, path, core.ErrInvalidAddress)
	}
	return &core.Checkpoint{
		Name:        name,
		LastAddress: core.Address(rec.LastAddress),
		UpdatedAt:   rec.UpdatedAt.UTC(),
	}, nil
}
