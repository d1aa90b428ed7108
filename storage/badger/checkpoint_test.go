package badger

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/babel/core"
	"github.com/poiesic/babel/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRepository(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	repo := NewCheckpointRepository(backend)
	ctx := context.Background()

	t.Run("missing checkpoint", func(t *testing.T) {
		checkpoint, err := repo.LoadCheckpoint(ctx, "background")
		require.NoError(t, err)
		assert.Nil(t, checkpoint)
	})

	t.Run("save and load", func(t *testing.T) {
		err := repo.SaveCheckpoint(ctx, &core.Checkpoint{Name: "background", LastAddress: 20000})
		require.NoError(t, err)

		checkpoint, err := repo.LoadCheckpoint(ctx, "background")
		require.NoError(t, err)
		require.NotNil(t, checkpoint)
		assert.Equal(t, core.Address(20000), checkpoint.LastAddress)
		assert.False(t, checkpoint.UpdatedAt.IsZero())
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, repo.SaveCheckpoint(ctx, &core.Checkpoint{Name: "background", LastAddress: 30000}))

		checkpoint, err := repo.LoadCheckpoint(ctx, "background")
		require.NoError(t, err)
		assert.Equal(t, core.Address(30000), checkpoint.LastAddress)
	})

	t.Run("names are independent", func(t *testing.T) {
		checkpoint, err := repo.LoadCheckpoint(ctx, "other")
		require.NoError(t, err)
		assert.Nil(t, checkpoint)
	})

	t.Run("invalid checkpoints", func(t *testing.T) {
		err := repo.SaveCheckpoint(ctx, &core.Checkpoint{LastAddress: 1})
		assert.ErrorIs(t, err, storage.ErrCheckpointNameRequired)

		err = repo.SaveCheckpoint(ctx, &core.Checkpoint{Name: "background", LastAddress: -1})
		assert.ErrorIs(t, err, core.ErrInvalidAddress)
	})

	t.Run("corrupt checkpoint", func(t *testing.T) {
		err := backend.WithTx(func(tx *badger.Txn) error {
			if err := tx.Set(makeCheckpointKey("broken"), []byte{0x7f}); err != nil {
				return err
			}
			return tx.Commit()
		}, true)
		require.NoError(t, err)

		_, err = repo.LoadCheckpoint(ctx, "broken")
		assert.ErrorIs(t, err, core.ErrPersistenceRead)
	})
}
