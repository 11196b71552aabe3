package storage

import "context"

//go:generate moq -out metadata_mock.go . MetadataStorage

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// SaveInstanceID saves the identifier of this client instance
	SaveInstanceID(ctx context.Context, id string) error

	// GetInstanceID retrieves the identifier of this client instance
	// Returns ErrMetadataNotFound if it was never saved
	GetInstanceID(ctx context.Context) (string, error)
}
