package boltdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/iudanet/gophsync/internal/client/storage"
)

func TestSaveAndGetInstanceID(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	// Изначально instance id отсутствует
	_, err := store.GetInstanceID(ctx)
	assert.ErrorIs(t, err, storage.ErrMetadataNotFound)

	require.NoError(t, store.SaveInstanceID(ctx, "instance-1"))

	got, err := store.GetInstanceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "instance-1", got)
}

func TestInstanceID_BucketMissing(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	// Удаляем bucket metadata напрямую
	err := store.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket(bucketMetadata)
	})
	require.NoError(t, err)

	_, err = store.GetInstanceID(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "metadata bucket not found")

	err = store.SaveInstanceID(ctx, "x")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "metadata bucket not found")
}
