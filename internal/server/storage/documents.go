package storage

import "context"

//go:generate moq -out documents_mock.go . DocumentStorage

// DocumentStorage defines persistence of authoritative channel documents
type DocumentStorage interface {
	// SaveDoc stores serialized CRDT document of the channel, replacing previous one
	SaveDoc(ctx context.Context, channelID string, data []byte) error

	// GetDoc retrieves serialized CRDT document of the channel
	// Returns ErrDocNotFound if channel has no document yet
	GetDoc(ctx context.Context, channelID string) ([]byte, error)
}
