package storage

import "errors"

// Common client storage errors
var (
	// ErrDocumentNotFound indicates that no document is stored under the key
	ErrDocumentNotFound = errors.New("document not found")

	// ErrTreeNotFound indicates that no version tree is stored under the key
	ErrTreeNotFound = errors.New("version tree not found")

	// ErrMetadataNotFound indicates that metadata value was not found
	ErrMetadataNotFound = errors.New("metadata not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
