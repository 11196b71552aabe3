// Package cli реализует команды клиента поверх дерева версий store.
package cli

import (
	"context"
	"errors"
	"time"

	"github.com/iudanet/gophsync/internal/client/iocli"
	"github.com/iudanet/gophsync/internal/client/store"
	"github.com/iudanet/gophsync/internal/crdt"
	"github.com/iudanet/gophsync/internal/models"
)

// CLI errors
var (
	// ErrLocked indicates a mutation attempt while viewing a historical commit
	ErrLocked = errors.New("viewing a historical commit, checkout a branch first")

	// ErrNotFound indicates that branch or commit reference did not match anything
	ErrNotFound = errors.New("reference not found")

	// ErrAmbiguous indicates that reference matches more than one branch or commit
	ErrAmbiguous = errors.New("ambiguous reference")

	// ErrNoCommits indicates that active branch has nothing to branch from
	ErrNoCommits = errors.New("branch has no commits")
)

// VersionStore операции дерева версий, используемые командами
type VersionStore interface {
	Tree() *models.Tree
	Commits() []models.Commit
	Heads() models.BranchHeads
	Head() string
	Locked() bool
	Value() (map[string]any, error)
	Change(message string, fn crdt.ChangeFunc) error
	Set(key string, value any, message string) error
	Commit(ctx context.Context, message, branchID, mergeBranch string) error
	Branch(ctx context.Context, commit models.Commit, title string) (string, error)
	Merge(ctx context.Context, fromID, toID string) error
	SetActiveBranch(ctx context.Context, branchID string) error
	SetState(ctx context.Context, commit models.Commit) error
}

var _ VersionStore = (*store.Store)(nil)

type Cli struct {
	io    iocli.IO
	store VersionStore
	now   func() time.Time
}

func New(io iocli.IO, store VersionStore) *Cli {
	return &Cli{
		io:    io,
		store: store,
		now:   time.Now,
	}
}
