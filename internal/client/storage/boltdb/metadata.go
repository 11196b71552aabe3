package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gophsync/internal/client/storage"
)

const (
	keyInstanceID = "instance_id"
)

// Compile-time check that Storage implements MetadataStorage
var _ storage.MetadataStorage = (*Storage)(nil)

// SaveInstanceID saves the identifier of this client instance
func (s *Storage) SaveInstanceID(ctx context.Context, id string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		if err := bucket.Put([]byte(keyInstanceID), []byte(id)); err != nil {
			return fmt.Errorf("failed to save instance id: %w", err)
		}

		return nil
	})
}

// GetInstanceID retrieves the identifier of this client instance
func (s *Storage) GetInstanceID(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", storage.ErrStorageClosed
	}

	var id string

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		value := bucket.Get([]byte(keyInstanceID))
		if value == nil {
			return storage.ErrMetadataNotFound
		}

		id = string(value)
		return nil
	})

	if err != nil {
		return "", err
	}

	return id, nil
}
