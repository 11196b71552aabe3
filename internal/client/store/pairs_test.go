package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophsync/internal/models"
)

func commitLog(commits ...models.Commit) models.EntityState[models.Commit] {
	state := models.NewEntityState[models.Commit]()
	for _, c := range commits {
		if c.Forks == nil {
			c.Forks = []string{}
		}
		if c.Merges == nil {
			c.Merges = []string{}
		}
		state.Add(c.ID, c)
	}
	return state
}

func commit(id, branch string) models.Commit {
	return models.Commit{ID: id, Head: id, Branch: branch}
}

func withForks(c models.Commit, forks ...string) models.Commit {
	c.Forks = forks
	return c
}

func withMerges(c models.Commit, merges ...string) models.Commit {
	c.Merges = merges
	return c
}

func ids(commits []models.Commit) []string {
	result := make([]string, 0, len(commits))
	for _, c := range commits {
		result = append(result, c.ID)
	}
	return result
}

func TestBranchCommitsBetween(t *testing.T) {
	log := commitLog(
		commit("h0", "main"),
		commit("h1", "main"),
		commit("h2", "dev"),
		commit("h3", "main"),
		commit("h4", "dev"),
	)

	tests := []struct {
		name     string
		branch   string
		start    string
		end      string
		expected []string
	}{
		{name: "strictly between", branch: "main", start: "h0", end: "h3", expected: []string{"h1"}},
		{name: "other branch", branch: "dev", start: "h0", end: "h4", expected: []string{"h2"}},
		{name: "empty start excludes first commit", branch: "main", start: "", end: "h3", expected: []string{"h1"}},
		{name: "empty end excludes last commit", branch: "dev", start: "h1", end: "", expected: []string{"h2"}},
		{name: "both empty", branch: "main", start: "", end: "", expected: []string{"h1", "h3"}},
		{name: "unknown start includes first commit", branch: "main", start: "zz", end: "h3", expected: []string{"h0", "h1"}},
		{name: "unknown end excludes last commit", branch: "dev", start: "h0", end: "zz", expected: []string{"h2"}},
		{name: "end before start", branch: "main", start: "h3", end: "h1", expected: []string{}},
		{name: "no commits", branch: "dev", start: "h3", end: "h4", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BranchCommitsBetween(log, tt.branch, tt.start, tt.end)
			assert.Equal(t, tt.expected, ids(got))
		})
	}

	assert.Empty(t, BranchCommitsBetween(commitLog(), "main", "", ""))
}

func TestBranchMergePairs_SingleCycle(t *testing.T) {
	log := commitLog(
		withForks(commit("h1", "A"), "B"),
		commit("a1", "A"),
		commit("b1", "B"),
		commit("b2", "B"),
		withMerges(commit("h2", "A"), "B"),
	)

	pairs := BranchMergePairs(log)
	require.Len(t, pairs, 1)

	pair := pairs[0]
	assert.Equal(t, "A", pair.From)
	assert.Equal(t, "B", pair.To)
	assert.Equal(t, "h1", pair.Start)
	assert.Equal(t, "h2", pair.End)
	assert.Equal(t, []string{"a1"}, ids(pair.FromCommits))
	assert.Equal(t, []string{"b1", "b2"}, ids(pair.ToCommits))
}

func TestBranchMergePairs_OpenForkDiscarded(t *testing.T) {
	log := commitLog(
		withForks(commit("h1", "A"), "B", "C"),
		withMerges(commit("h2", "A"), "C"),
	)

	pairs := BranchMergePairs(log)
	require.Len(t, pairs, 1)
	assert.Equal(t, "C", pairs[0].To)
}

func TestBranchMergePairs_ZeroLengthNotClosed(t *testing.T) {
	// fork и merge на одном head
	c := withMerges(withForks(commit("h1", "A"), "B"), "B")
	log := commitLog(c)

	assert.Empty(t, BranchMergePairs(log))
}

func TestBranchMergePairs_FirstOpenPairWins(t *testing.T) {
	log := commitLog(
		withForks(commit("h1", "A"), "B"),
		withForks(commit("h2", "A"), "B"),
		withMerges(commit("h3", "A"), "B"),
	)

	pairs := BranchMergePairs(log)
	require.Len(t, pairs, 1)
	assert.Equal(t, "h1", pairs[0].Start)
	assert.Equal(t, "h3", pairs[0].End)
}

func TestBranchMergePairs_RepeatedCycles(t *testing.T) {
	log := commitLog(
		withForks(commit("h1", "A"), "B"),
		withMerges(commit("h2", "A"), "B"),
		withForks(commit("h3", "A"), "B"),
		withMerges(commit("h4", "A"), "B"),
	)

	pairs := BranchMergePairs(log)
	require.Len(t, pairs, 2)
	assert.Equal(t, []string{"h1", "h2"}, []string{pairs[0].Start, pairs[0].End})
	assert.Equal(t, []string{"h3", "h4"}, []string{pairs[1].Start, pairs[1].End})
}

func TestBranchMergePairs_Empty(t *testing.T) {
	assert.Empty(t, BranchMergePairs(models.NewEntityState[models.Commit]()))
}
