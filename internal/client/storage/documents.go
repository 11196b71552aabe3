package storage

import (
	"context"

	"github.com/iudanet/gophsync/internal/models"
)

//go:generate moq -out documents_mock.go . DocumentStorage

// DocumentStorage defines persistence of a version tree store on client.
// Documents are keyed by "{store}/{branchId}", the tree by "{store}/tree".
type DocumentStorage interface {
	// SaveDocument stores serialized CRDT document under the key
	SaveDocument(ctx context.Context, key string, data []byte) error

	// GetDocument retrieves serialized CRDT document
	// Returns ErrDocumentNotFound if nothing is stored under the key
	GetDocument(ctx context.Context, key string) ([]byte, error)

	// SaveTree stores the version tree under the key
	SaveTree(ctx context.Context, key string, tree *models.Tree) error

	// GetTree retrieves the version tree
	// Returns ErrTreeNotFound if nothing is stored under the key
	GetTree(ctx context.Context, key string) (*models.Tree, error)
}

// DocumentKey возвращает ключ документа ветки
func DocumentKey(store, branchID string) string {
	return store + "/" + branchID
}

// TreeKey возвращает ключ дерева версий store
func TreeKey(store string) string {
	return store + "/tree"
}
