package storage

import "errors"

// Common storage errors
var (
	// ErrDocNotFound indicates that channel has no stored document
	ErrDocNotFound = errors.New("channel document not found")

	// ErrEmptyChannel indicates that channel id is empty
	ErrEmptyChannel = errors.New("channel id is empty")
)
