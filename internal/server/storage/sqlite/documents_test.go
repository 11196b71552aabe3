package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophsync/internal/server/storage"
)

func TestDocuments_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	tests := []struct {
		name    string
		channel string
		writes  [][]byte
		want    []byte
	}{
		{name: "single write", channel: "a/main", writes: [][]byte{{1}}, want: []byte{1}},
		{name: "overwrite", channel: "a/dev", writes: [][]byte{{1}, {2, 3}}, want: []byte{2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, data := range tt.writes {
				require.NoError(t, s.SaveDoc(ctx, tt.channel, data))
			}

			got, err := s.GetDoc(ctx, tt.channel)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDocuments_NotFound(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.GetDoc(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrDocNotFound)
}

func TestDocuments_EmptyChannel(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	assert.ErrorIs(t, s.SaveDoc(ctx, "", []byte{1}), storage.ErrEmptyChannel)

	_, err := s.GetDoc(ctx, "")
	assert.ErrorIs(t, err, storage.ErrEmptyChannel)
}

func TestDocuments_ClosedDB(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStorage(t)
	require.NoError(t, s.Close())

	assert.Error(t, s.SaveDoc(ctx, "a", []byte{1}))

	_, err := s.GetDoc(ctx, "a")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrDocNotFound)
}
