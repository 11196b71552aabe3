package cli

import (
	"context"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/iudanet/gophsync/internal/models"
)

// RunLog выводит коммиты каждой ветки в порядке создания
func (c *Cli) RunLog(ctx context.Context) error {
	tree := c.store.Tree()
	commits := c.store.Commits()
	head := c.store.Head()
	now := c.now()

	c.io.Println("=== History ===")

	for _, branch := range tree.Branches.Values() {
		marker := " "
		if branch.ID == tree.ActiveBranch {
			marker = "*"
		}

		c.io.Println()
		c.io.Printf("%s %s (%s)\n", marker, branch.Title, branch.ID)

		count := 0
		for _, commit := range commits {
			if commit.Branch != branch.ID {
				continue
			}
			count++
			c.io.Println(formatCommit(tree, commit, head, now))
		}

		if count == 0 {
			c.io.Println("    no commits")
		}
	}

	return nil
}

func formatCommit(tree *models.Tree, commit models.Commit, head string, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("    ")
	sb.WriteString(shortHash(commit.ID))
	sb.WriteString("  ")
	sb.WriteString(commit.Message)
	sb.WriteString("  (")
	sb.WriteString(humanize.RelTime(time.UnixMilli(commit.Timestamp), now, "ago", "from now"))
	sb.WriteString(")")

	if commit.Head == head {
		sb.WriteString("  <- HEAD")
	}

	for _, id := range commit.Merges {
		sb.WriteString("\n        merged from ")
		sb.WriteString(branchTitle(tree, id))
	}
	for _, id := range commit.Forks {
		sb.WriteString("\n        forked into ")
		sb.WriteString(branchTitle(tree, id))
	}

	return sb.String()
}
