package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gophsync/internal/client/storage"
	"github.com/iudanet/gophsync/internal/models"
)

// Compile-time check that Storage implements DocumentStorage
var _ storage.DocumentStorage = (*Storage)(nil)

// SaveDocument stores serialized CRDT document under the key
func (s *Storage) SaveDocument(ctx context.Context, key string, data []byte) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketDocuments)
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}

		// bbolt требует, чтобы значение жило до конца транзакции - копируем
		value := append([]byte(nil), data...)
		if err := bucket.Put([]byte(key), value); err != nil {
			return fmt.Errorf("failed to save document: %w", err)
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// GetDocument retrieves serialized CRDT document
func (s *Storage) GetDocument(ctx context.Context, key string) ([]byte, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var data []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketDocuments)
		if bucket == nil {
			return storage.ErrDocumentNotFound
		}

		value := bucket.Get([]byte(key))
		if value == nil {
			return storage.ErrDocumentNotFound
		}

		// Данные валидны только внутри транзакции
		data = append([]byte(nil), value...)
		return nil
	})

	if err != nil {
		return nil, err
	}

	return data, nil
}

// SaveTree stores the version tree under the key
func (s *Storage) SaveTree(ctx context.Context, key string, tree *models.Tree) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	// Сериализуем дерево в JSON
	data, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("failed to marshal tree: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketTrees)
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}

		if err := bucket.Put([]byte(key), data); err != nil {
			return fmt.Errorf("failed to save tree: %w", err)
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// GetTree retrieves the version tree
func (s *Storage) GetTree(ctx context.Context, key string) (*models.Tree, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var tree *models.Tree

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketTrees)
		if bucket == nil {
			return storage.ErrTreeNotFound
		}

		data := bucket.Get([]byte(key))
		if data == nil {
			return storage.ErrTreeNotFound
		}

		// Десериализуем
		tree = &models.Tree{}
		if err := json.Unmarshal(data, tree); err != nil {
			return fmt.Errorf("failed to unmarshal tree: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return tree, nil
}
