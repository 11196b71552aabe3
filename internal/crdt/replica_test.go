package crdt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocHandle_ChangeNotifies(t *testing.T) {
	e := NewAutomerge()
	h := NewDocHandle(e, newCounterDoc(t, e))

	var notified [][]Hash
	h.OnChange(func(heads []Hash) {
		notified = append(notified, heads)
	})

	require.NoError(t, h.Change(ChangeOptions{Message: "inc"}, increment("count")))
	require.Len(t, notified, 1)
	assert.Equal(t, h.Heads(), notified[0])

	state, err := h.Materialize()
	require.NoError(t, err)
	assert.Equal(t, int64(1), state["count"])
}

func TestDocHandle_UpdateWithoutChangeIsSilent(t *testing.T) {
	e := NewAutomerge()
	h := NewDocHandle(e, newCounterDoc(t, e))

	called := false
	h.OnChange(func([]Hash) { called = true })

	require.NoError(t, h.Update(func(doc Doc) (Doc, error) { return doc, nil }))
	assert.False(t, called)
}

func TestDocHandle_UpdateErrorKeepsDoc(t *testing.T) {
	e := NewAutomerge()
	h := NewDocHandle(e, newCounterDoc(t, e))
	before := h.Heads()

	errBoom := errors.New("boom")
	err := h.Update(func(Doc) (Doc, error) { return nil, errBoom })
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, before, h.Heads())

	err = h.Read(func(doc Doc) error {
		assert.Equal(t, before, e.Heads(doc))
		return nil
	})
	require.NoError(t, err)
}
