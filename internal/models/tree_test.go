package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityState_AddKeepsOrder(t *testing.T) {
	s := NewEntityState[Branch]()

	s.Add("b", Branch{ID: "b"})
	s.Add("a", Branch{ID: "a"})
	s.Add("b", Branch{ID: "b", Title: "renamed"})

	assert.Equal(t, []string{"b", "a"}, s.IDs)
	assert.Equal(t, 1, s.IndexOf("a"))
	assert.Equal(t, -1, s.IndexOf("missing"))

	b, ok := s.Get("b")
	require.True(t, ok)
	assert.Equal(t, "renamed", b.Title)
	assert.Len(t, s.Values(), 2)
}

func TestCommit_AddForkAndMergeAreSets(t *testing.T) {
	c := &Commit{ID: "h1", Head: "h1", Branch: "main"}

	assert.True(t, c.AddFork("dev"))
	assert.False(t, c.AddFork("dev"))
	assert.True(t, c.AddMerge("dev"))
	assert.False(t, c.AddMerge("dev"))

	assert.Equal(t, []string{"dev"}, c.Forks)
	assert.Equal(t, []string{"dev"}, c.Merges)
}

func TestCommit_Involves(t *testing.T) {
	c := &Commit{Branch: "main", Forks: []string{"f"}, Merges: []string{"m"}}

	tests := []struct {
		name     string
		branch   string
		expected bool
	}{
		{name: "owner", branch: "main", expected: true},
		{name: "fork", branch: "f", expected: true},
		{name: "merge", branch: "m", expected: true},
		{name: "unrelated", branch: "x", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Involves(tt.branch))
		})
	}
}

func TestTree_CloneIsDeep(t *testing.T) {
	tree := NewTree()
	tree.Commits.Add("h1", Commit{ID: "h1", Head: "h1", Branch: MainBranchID})

	clone := tree.Clone()
	c := clone.Commits.Entities["h1"]
	c.AddFork("dev")
	clone.Commits.Entities["h1"] = c
	clone.ActiveBranch = "dev"

	assert.Empty(t, tree.Commits.Entities["h1"].Forks)
	assert.Equal(t, MainBranchID, tree.ActiveBranch)
	assert.Equal(t, "Main", clone.Branches.Entities[MainBranchID].Title)
}
