package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophsync/internal/client/iocli"
	"github.com/iudanet/gophsync/internal/client/storage/boltdb"
	"github.com/iudanet/gophsync/internal/client/store"
	"github.com/iudanet/gophsync/internal/crdt"
	"github.com/iudanet/gophsync/internal/models"
)

// syncBuffer потокобезопасный буфер вывода
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newTestIO собирает весь вывод команд в буфер
func newTestIO(inputs ...string) (*iocli.IOMock, *syncBuffer) {
	out := &syncBuffer{}
	var mu sync.Mutex

	return &iocli.IOMock{
		PrintlnFunc: func(a ...any) {
			_, _ = fmt.Fprintln(out, a...)
		},
		PrintfFunc: func(format string, a ...any) {
			_, _ = fmt.Fprintf(out, format, a...)
		},
		WriteFunc: func(p []byte) (int, error) {
			return out.Write(p)
		},
		ReadInputFunc: func(prompt string) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			if len(inputs) == 0 {
				return "", io.EOF
			}
			next := inputs[0]
			inputs = inputs[1:]
			return next, nil
		},
	}, out
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()

	db, err := boltdb.New(ctx, filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.New(ctx, store.Config{Key: "test", SaveDebounce: time.Millisecond},
		crdt.NewAutomerge(), db, db, nil, logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close(context.Background()) })

	return st
}

func newTestCli(t *testing.T, inputs ...string) (*Cli, *store.Store, *syncBuffer) {
	t.Helper()
	st := openTestStore(t)
	mockIO, out := newTestIO(inputs...)
	return New(mockIO, st), st, out
}

func commitByMessage(t *testing.T, st *store.Store, message string) models.Commit {
	t.Helper()
	for _, c := range st.Commits() {
		if c.Message == message {
			return c
		}
	}
	t.Fatalf("commit %q not found", message)
	return models.Commit{}
}

func TestCli_SetIncrView(t *testing.T) {
	ctx := context.Background()
	c, _, out := newTestCli(t)

	require.NoError(t, c.RunSet(ctx, "name", "alice", ""))
	require.NoError(t, c.RunSet(ctx, "ratio", "0.5", ""))
	require.NoError(t, c.RunIncr(ctx, "count", 2, ""))
	require.NoError(t, c.RunIncr(ctx, "count", 3, ""))

	// Проверяется только вывод view
	start := len(out.String())
	require.NoError(t, c.RunView(ctx))
	output := out.String()[start:]

	assert.Contains(t, output, "=== Main ===")
	assert.NotContains(t, output, "read-only")

	// Ключи выводятся по алфавиту
	assert.Contains(t, output, "\ncount = 5\nname = alice\nratio = 0.5\n")
}

func TestCli_View_Empty(t *testing.T) {
	c, _, out := newTestCli(t)

	require.NoError(t, c.RunView(context.Background()))
	assert.Contains(t, out.String(), "(empty)")
}

func TestCli_CommitAndLog(t *testing.T) {
	ctx := context.Background()
	c, st, out := newTestCli(t)
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	require.NoError(t, c.RunSet(ctx, "title", "draft", ""))
	require.NoError(t, c.RunCommit(ctx, "first draft"))

	commit := commitByMessage(t, st, "first draft")
	assert.Contains(t, out.String(), "Committed "+shortHash(commit.ID)+" on Main")

	require.NoError(t, c.RunLog(ctx))

	output := out.String()
	assert.Contains(t, output, "* Main (main)")
	assert.Contains(t, output, store.InitialCommitMessage)
	assert.Contains(t, output, shortHash(commit.ID)+"  first draft  (2 hours ago)  <- HEAD")
}

func TestCli_Commit_PromptsMessage(t *testing.T) {
	ctx := context.Background()
	c, st, _ := newTestCli(t, "from prompt")

	require.NoError(t, c.RunSet(ctx, "k", "v", ""))
	require.NoError(t, c.RunCommit(ctx, ""))

	commitByMessage(t, st, "from prompt")
}

func TestCli_Commit_EmptyPrompt(t *testing.T) {
	ctx := context.Background()
	c, st, _ := newTestCli(t, "")

	require.NoError(t, c.RunSet(ctx, "k", "v", ""))
	before := len(st.Commits())

	err := c.RunCommit(ctx, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing commit message")
	assert.Len(t, st.Commits(), before)
}

func TestCli_BranchCheckoutMerge(t *testing.T) {
	ctx := context.Background()
	c, st, out := newTestCli(t)

	require.NoError(t, c.RunSet(ctx, "x", "1", ""))
	require.NoError(t, c.RunCommit(ctx, "base"))

	require.NoError(t, c.RunBranch(ctx, "feature", ""))
	feature, err := findBranch(st.Tree(), "feature")
	require.NoError(t, err)
	assert.Equal(t, feature.ID, st.Tree().ActiveBranch)

	require.NoError(t, c.RunSet(ctx, "y", "2", ""))
	require.NoError(t, c.RunCommit(ctx, "feature work"))

	require.NoError(t, c.RunCheckout(ctx, "Main"))
	assert.Equal(t, models.MainBranchID, st.Tree().ActiveBranch)

	value, err := st.Value()
	require.NoError(t, err)
	assert.NotContains(t, value, "y")

	require.NoError(t, c.RunMerge(ctx, "feature", ""))

	value, err = st.Value()
	require.NoError(t, err)
	assert.Equal(t, int64(1), value["x"])
	assert.Equal(t, int64(2), value["y"])

	require.NoError(t, c.RunBranches(ctx))
	require.NoError(t, c.RunLog(ctx))

	output := out.String()
	assert.Contains(t, output, "Created branch feature ("+feature.ID+")")
	assert.Contains(t, output, "Switched to branch Main")
	assert.Contains(t, output, "Merged feature into Main")
	assert.Contains(t, output, "forked into feature")
	assert.Contains(t, output, "merged from feature")
	assert.Contains(t, output, "* Main  main")
}

func TestCli_Merge_Errors(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCli(t)

	assert.ErrorIs(t, c.RunMerge(ctx, "missing", ""), ErrNotFound)
	assert.ErrorIs(t, c.RunMerge(ctx, "Main", ""), store.ErrSameBranch)
	assert.Error(t, c.RunMerge(ctx, "", ""))
}

func TestCli_CheckoutCommitLocks(t *testing.T) {
	ctx := context.Background()
	c, st, out := newTestCli(t)

	require.NoError(t, c.RunSet(ctx, "v", "1", ""))
	require.NoError(t, c.RunCommit(ctx, "one"))
	require.NoError(t, c.RunSet(ctx, "v", "2", ""))
	require.NoError(t, c.RunCommit(ctx, "two"))

	first := commitByMessage(t, st, "one")
	require.NoError(t, c.RunCheckout(ctx, first.ID[:8]))
	assert.True(t, st.Locked())

	// Изменения в режиме просмотра истории отклоняются
	assert.ErrorIs(t, c.RunSet(ctx, "v", "3", ""), ErrLocked)
	assert.ErrorIs(t, c.RunIncr(ctx, "n", 1, ""), ErrLocked)
	assert.ErrorIs(t, c.RunCommit(ctx, "nope"), ErrLocked)
	assert.ErrorIs(t, c.RunMerge(ctx, "Main", ""), ErrLocked)

	require.NoError(t, c.RunView(ctx))
	output := out.String()
	assert.Contains(t, output, "Viewing commit "+shortHash(first.ID))
	assert.Contains(t, output, "read-only")
	assert.Contains(t, output, "v = 1")

	require.NoError(t, c.RunCheckout(ctx, "main"))
	assert.False(t, st.Locked())

	value, err := st.Value()
	require.NoError(t, err)
	assert.Equal(t, int64(2), value["v"])
}

func TestCli_Branch_FromCommit(t *testing.T) {
	ctx := context.Background()
	c, st, _ := newTestCli(t)

	require.NoError(t, c.RunSet(ctx, "v", "1", ""))
	require.NoError(t, c.RunCommit(ctx, "one"))
	require.NoError(t, c.RunSet(ctx, "v", "2", ""))
	require.NoError(t, c.RunCommit(ctx, "two"))

	first := commitByMessage(t, st, "one")
	require.NoError(t, c.RunBranch(ctx, "hotfix", first.ID[:10]))

	value, err := st.Value()
	require.NoError(t, err)
	assert.Equal(t, int64(1), value["v"])

	assert.Error(t, c.RunBranch(ctx, "", ""))
	assert.ErrorIs(t, c.RunBranch(ctx, "other", "zzzzzzzz"), ErrNotFound)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		want  any
		input string
	}{
		{input: "42", want: int64(42)},
		{input: "-7", want: int64(-7)},
		{input: "2.5", want: 2.5},
		{input: "true", want: true},
		{input: "hello", want: "hello"},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseValue(tt.input))
		})
	}
}

func TestFindBranch(t *testing.T) {
	tree := models.NewTree()
	tree.Branches.Add("b1", models.Branch{ID: "b1", Title: "dup"})
	tree.Branches.Add("b2", models.Branch{ID: "b2", Title: "dup"})
	tree.Branches.Add("b3", models.Branch{ID: "b3", Title: "solo"})

	b, err := findBranch(tree, "solo")
	require.NoError(t, err)
	assert.Equal(t, "b3", b.ID)

	b, err = findBranch(tree, "b1")
	require.NoError(t, err)
	assert.Equal(t, "dup", b.Title)

	_, err = findBranch(tree, "dup")
	assert.ErrorIs(t, err, ErrAmbiguous)

	_, err = findBranch(tree, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindCommit(t *testing.T) {
	commits := []models.Commit{
		{ID: "abcd1111"},
		{ID: "abcd2222"},
		{ID: "ffff0000"},
	}

	c, err := findCommit(commits, "ffff")
	require.NoError(t, err)
	assert.Equal(t, "ffff0000", c.ID)

	_, err = findCommit(commits, "abcd")
	assert.ErrorIs(t, err, ErrAmbiguous)

	_, err = findCommit(commits, "abc")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = findCommit(commits, "0000")
	assert.ErrorIs(t, err, ErrNotFound)
}
