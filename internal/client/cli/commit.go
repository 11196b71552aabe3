package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/gophsync/internal/client/store"
)

// RunCommit фиксирует текущий head активной ветки
func (c *Cli) RunCommit(ctx context.Context, message string) error {
	if c.store.Locked() {
		return ErrLocked
	}

	// Без аргумента сообщение запрашивается интерактивно
	if message == "" {
		input, err := c.io.ReadInput("Commit message: ")
		if err != nil {
			return fmt.Errorf("failed to read commit message: %w", err)
		}
		message = input
	}
	if message == "" {
		return fmt.Errorf("missing commit message. Usage: gophsync commit <message>")
	}

	if err := c.store.Commit(ctx, message, "", ""); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	tree := c.store.Tree()
	c.io.Printf("Committed %s on %s\n", shortHash(c.store.Head()), branchTitle(tree, tree.ActiveBranch))
	return nil
}

// RunMerge вливает ветку from в to (по умолчанию активную)
func (c *Cli) RunMerge(ctx context.Context, from, to string) error {
	if from == "" {
		return fmt.Errorf("missing source branch. Usage: gophsync merge <from> [to]")
	}
	if c.store.Locked() {
		return ErrLocked
	}

	tree := c.store.Tree()

	source, err := findBranch(tree, from)
	if err != nil {
		return err
	}

	targetID := tree.ActiveBranch
	if to != "" {
		target, err := findBranch(tree, to)
		if err != nil {
			return err
		}
		targetID = target.ID
	}

	if source.ID == targetID {
		return fmt.Errorf("%w: %s", store.ErrSameBranch, source.Title)
	}

	if err := c.store.Merge(ctx, source.ID, targetID); err != nil {
		return fmt.Errorf("failed to merge: %w", err)
	}

	c.io.Printf("Merged %s into %s\n", source.Title, branchTitle(tree, targetID))
	return nil
}
