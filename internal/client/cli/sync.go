package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/iudanet/gophsync/internal/client/store"
	clientsync "github.com/iudanet/gophsync/internal/client/sync"
	"github.com/iudanet/gophsync/internal/crdt"
	"github.com/iudanet/gophsync/internal/models"
)

// Параметры повторного подключения к каналам при запуске sync
const (
	DefaultJoinRetryDelay = time.Second
	DefaultJoinRetries    = 5
)

// Syncer адаптер синхронизации с сервером
type Syncer interface {
	Join(ctx context.Context, channelID string, replica crdt.Replica) error
	Run(ctx context.Context) error
	Subscribe(fn func(clientsync.Event)) func()
}

// SyncedStore store, чьи ветки синхронизируются через каналы
type SyncedStore interface {
	Tree() *models.Tree
	ChannelID(branchID string) string
	Replica(branchID string) crdt.Replica
}

var (
	_ Syncer      = (*clientsync.Adapter)(nil)
	_ SyncedStore = (*store.Store)(nil)
)

// SyncOptions параметры команды sync
type SyncOptions struct {
	JoinRetryDelay time.Duration
	JoinRetries    uint64
}

// RunSync подключает все ветки store к их каналам и синхронизирует
// изменения до отмены ctx
func (c *Cli) RunSync(ctx context.Context, syncer Syncer, st SyncedStore, opts SyncOptions) error {
	if opts.JoinRetryDelay <= 0 {
		opts.JoinRetryDelay = DefaultJoinRetryDelay
	}
	if opts.JoinRetries == 0 {
		opts.JoinRetries = DefaultJoinRetries
	}

	c.io.Println("=== Synchronization ===")
	c.io.Println()

	tree := st.Tree()

	unsubscribe := syncer.Subscribe(func(ev clientsync.Event) {
		switch ev.Type {
		case clientsync.EventMessage:
			c.io.Printf("[%s] received changes for %s from %s\n",
				c.now().Format(time.TimeOnly), channelBranch(tree, ev.ChannelID), ev.SenderID)
		case clientsync.EventPeerDisconnected:
			c.io.Printf("[%s] connection lost, reconnecting\n", c.now().Format(time.TimeOnly))
		}
	})
	defer unsubscribe()

	for _, branch := range tree.Branches.Values() {
		channelID := st.ChannelID(branch.ID)

		backoff := retry.WithMaxRetries(opts.JoinRetries, retry.NewConstant(opts.JoinRetryDelay))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			if err := syncer.Join(ctx, channelID, st.Replica(branch.ID)); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to join branch %s: %w", branch.Title, err)
		}

		c.io.Printf("Joined %s (%s)\n", branch.Title, channelID)
	}

	c.io.Println()
	c.io.Println("Synchronizing, press Ctrl+C to stop.")

	if err := syncer.Run(ctx); err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}
	return nil
}

// channelBranch переводит ID канала "{store}/{branch}" в название ветки
func channelBranch(tree *models.Tree, channelID string) string {
	_, branchID, ok := strings.Cut(channelID, "/")
	if !ok {
		return channelID
	}
	return branchTitle(tree, branchID)
}
