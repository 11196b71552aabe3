package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/gophsync/internal/server/storage"
)

// SaveDoc stores serialized CRDT document of the channel, replacing previous one
func (s *Storage) SaveDoc(ctx context.Context, channelID string, data []byte) error {
	if channelID == "" {
		return storage.ErrEmptyChannel
	}

	query := `
		INSERT INTO channel_docs (channel_id, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, channelID, data, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to save channel document: %w", err)
	}

	return nil
}

// GetDoc retrieves serialized CRDT document of the channel
func (s *Storage) GetDoc(ctx context.Context, channelID string) ([]byte, error) {
	if channelID == "" {
		return nil, storage.ErrEmptyChannel
	}

	query := `SELECT data FROM channel_docs WHERE channel_id = ?`

	var data []byte
	err := s.db.QueryRowContext(ctx, query, channelID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrDocNotFound
		}
		return nil, fmt.Errorf("failed to get channel document: %w", err)
	}

	return data, nil
}
