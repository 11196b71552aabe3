package cli

import (
	"context"
	"fmt"
	"text/template"
)

type branchLine struct {
	ID         string
	Title      string
	Head       string
	LastCommit string
	Active     bool
}

// RunBranches выводит ветки с их живыми heads
func (c *Cli) RunBranches(ctx context.Context) error {
	tree := c.store.Tree()
	heads := c.store.Heads()

	lines := make([]branchLine, 0, len(tree.Branches.IDs))
	for _, b := range tree.Branches.Values() {
		line := branchLine{
			ID:     b.ID,
			Title:  b.Title,
			Active: b.ID == tree.ActiveBranch,
		}
		if h, ok := heads[b.ID]; ok {
			line.Head = shortHash(h.Head)
			if h.LastCommit != nil {
				line.LastCommit = shortHash(h.LastCommit.ID)
			}
		}
		lines = append(lines, line)
	}

	tmpl, err := template.New("branches").Parse(branchesTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	if err := tmpl.Execute(c.io, lines); err != nil {
		return fmt.Errorf("failed to render branches: %w", err)
	}
	c.io.Println()
	return nil
}

// RunBranch создает ветку из коммита from (по умолчанию последний коммит
// активной ветки) и переключается на нее
func (c *Cli) RunBranch(ctx context.Context, title, from string) error {
	if title == "" {
		return fmt.Errorf("missing branch title. Usage: gophsync branch <title> [commit]")
	}

	tree := c.store.Tree()

	var ref string
	if from != "" {
		commit, err := findCommit(c.store.Commits(), from)
		if err != nil {
			return err
		}
		ref = commit.ID
	} else {
		head, ok := c.store.Heads()[tree.ActiveBranch]
		if !ok || head.LastCommit == nil {
			return fmt.Errorf("%w: %s", ErrNoCommits, branchTitle(tree, tree.ActiveBranch))
		}
		ref = head.LastCommit.ID
	}

	commit, ok := tree.Commits.Get(ref)
	if !ok {
		return fmt.Errorf("%w: commit %s", ErrNotFound, ref)
	}

	id, err := c.store.Branch(ctx, commit, title)
	if err != nil {
		return fmt.Errorf("failed to create branch: %w", err)
	}

	c.io.Printf("Created branch %s (%s) from %s\n", title, id, shortHash(commit.ID))
	return nil
}

// RunCheckout переключает активную ветку или открывает коммит для просмотра.
// Сначала ref ищется среди веток, затем среди коммитов.
func (c *Cli) RunCheckout(ctx context.Context, ref string) error {
	if ref == "" {
		return fmt.Errorf("missing branch or commit. Usage: gophsync checkout <branch|commit>")
	}

	if branch, err := findBranch(c.store.Tree(), ref); err == nil {
		if err := c.store.SetActiveBranch(ctx, branch.ID); err != nil {
			return fmt.Errorf("failed to switch branch: %w", err)
		}
		c.io.Printf("Switched to branch %s\n", branch.Title)
		return nil
	}

	commit, err := findCommit(c.store.Commits(), ref)
	if err != nil {
		return err
	}
	if err := c.store.SetState(ctx, commit); err != nil {
		return fmt.Errorf("failed to checkout commit: %w", err)
	}

	if c.store.Locked() {
		c.io.Printf("Viewing commit %s: %s (read-only)\n", shortHash(commit.ID), commit.Message)
		return nil
	}

	tree := c.store.Tree()
	c.io.Printf("Commit %s is the head of %s, switched to branch\n",
		shortHash(commit.ID), branchTitle(tree, tree.ActiveBranch))
	return nil
}
