package channel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophsync/internal/crdt"
	"github.com/iudanet/gophsync/internal/server/storage"
	"github.com/iudanet/gophsync/internal/server/storage/sqlite"
	"github.com/iudanet/gophsync/pkg/api"
)

const testChannel = "doc-1/main"

var errBoom = errors.New("boom")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryStorage возвращает мок хранилища поверх map.
// Пока fail выставлен, SaveDoc возвращает ошибку.
func memoryStorage(fail *atomic.Bool) *storage.DocumentStorageMock {
	var mu sync.Mutex
	docs := make(map[string][]byte)

	return &storage.DocumentStorageMock{
		GetDocFunc: func(ctx context.Context, channelID string) ([]byte, error) {
			mu.Lock()
			defer mu.Unlock()
			data, ok := docs[channelID]
			if !ok {
				return nil, storage.ErrDocNotFound
			}
			return data, nil
		},
		SaveDocFunc: func(ctx context.Context, channelID string, data []byte) error {
			if fail != nil && fail.Load() {
				return errBoom
			}
			mu.Lock()
			defer mu.Unlock()
			docs[channelID] = data
			return nil
		},
	}
}

// flakyEngine отклоняет первые failures входящих сообщений
type flakyEngine struct {
	crdt.Engine
	failures atomic.Int32
}

func (f *flakyEngine) ReceiveSyncMessage(doc crdt.Doc, state crdt.SyncState, msg []byte) (crdt.Doc, crdt.SyncState, error) {
	if f.failures.Add(-1) >= 0 {
		return nil, nil, errBoom
	}
	return f.Engine.ReceiveSyncMessage(doc, state, msg)
}

type testPeer struct {
	engine crdt.Engine
	doc    crdt.Doc
	state  crdt.SyncState
	id     string
}

func newTestPeer(t *testing.T, id string) *testPeer {
	t.Helper()
	e := crdt.NewAutomerge()
	return &testPeer{id: id, engine: e, doc: e.Init(), state: e.InitSyncState()}
}

// newSharedPeers создает пиров с копиями одного документа {count: 0}
func newSharedPeers(t *testing.T, ids ...string) []*testPeer {
	t.Helper()
	e := crdt.NewAutomerge()
	base, err := e.Change(e.Init(), crdt.ChangeOptions{Message: "init"}, func(m crdt.Mutator) error {
		return m.Increment("count", 0)
	})
	require.NoError(t, err)

	peers := make([]*testPeer, 0, len(ids))
	for _, id := range ids {
		doc, err := e.Clone(base)
		require.NoError(t, err)
		peers = append(peers, &testPeer{id: id, engine: e, doc: doc, state: e.InitSyncState()})
	}
	return peers
}

func (p *testPeer) increment(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		var err error
		p.doc, err = p.engine.Change(p.doc, crdt.ChangeOptions{Message: "inc"}, func(m crdt.Mutator) error {
			return m.Increment("count", 1)
		})
		require.NoError(t, err)
	}
}

func (p *testPeer) count(t *testing.T) any {
	t.Helper()
	state, err := p.engine.Materialize(p.doc)
	require.NoError(t, err)
	return state["count"]
}

func (p *testPeer) receive(data []byte) error {
	var err error
	p.doc, p.state, err = p.engine.ReceiveSyncMessage(p.doc, p.state, data)
	return err
}

// sync обменивается сообщениями с каналом до сходимости
func (p *testPeer) sync(ctx context.Context, c *Channel) error {
	for i := 0; i < 30; i++ {
		next, msg, err := p.engine.GenerateSyncMessage(p.doc, p.state)
		if err != nil {
			return err
		}
		p.state = next

		if msg == nil {
			env, err := c.Pull(ctx, &api.PullRequest{SenderID: p.id, ChannelID: testChannel})
			if err != nil {
				return err
			}
			if env.Empty() {
				return nil
			}
			if err := p.receive(env.Data); err != nil {
				return err
			}
			continue
		}

		resp, err := c.SyncMessage(ctx, &api.Envelope{
			SenderID:  p.id,
			TargetID:  api.ServerPeerID,
			ChannelID: testChannel,
			Type:      api.MessageType,
			Data:      msg,
		})
		if err != nil {
			return err
		}
		if !resp.Empty() {
			if err := p.receive(resp.Data); err != nil {
				return err
			}
		}
	}
	return errors.New("peer did not converge")
}

func newTestChannel(engine crdt.Engine, docs storage.DocumentStorage, opts ...Option) *Channel {
	opts = append([]Option{WithLatency(0)}, opts...)
	return New(engine, docs, testLogger(), opts...)
}

func TestChannel_TwoPeersConverge(t *testing.T) {
	ctx := context.Background()

	docs, err := sqlite.New(ctx, ":memory:", testLogger())
	require.NoError(t, err)
	defer docs.Close()

	c := newTestChannel(crdt.NewAutomerge(), docs)

	peers := newSharedPeers(t, "alice", "bob")
	alice, bob := peers[0], peers[1]

	for _, p := range peers {
		resp, err := c.Connect(ctx, &api.ConnectRequest{SenderID: p.id, ChannelID: testChannel})
		require.NoError(t, err)
		assert.Equal(t, api.StatusConnected, resp.Status)
	}

	alice.increment(t, 3)
	bob.increment(t, 4)

	require.NoError(t, alice.sync(ctx, c))
	require.NoError(t, bob.sync(ctx, c))
	require.NoError(t, alice.sync(ctx, c))

	assert.Equal(t, int64(7), alice.count(t))
	assert.Equal(t, int64(7), bob.count(t))

	heads, err := c.Heads(ctx, testChannel)
	require.NoError(t, err)
	assert.ElementsMatch(t, alice.engine.Heads(alice.doc), heads)

	// Документ канала сохранен и читается заново
	data, err := docs.GetDoc(ctx, testChannel)
	require.NoError(t, err)
	stored, err := crdt.NewAutomerge().Load(data)
	require.NoError(t, err)
	assert.ElementsMatch(t, heads, crdt.NewAutomerge().Heads(stored))
}

func TestChannel_Validation(t *testing.T) {
	ctx := context.Background()
	c := newTestChannel(crdt.NewAutomerge(), memoryStorage(nil))

	_, err := c.Connect(ctx, &api.ConnectRequest{ChannelID: testChannel})
	assert.ErrorIs(t, err, api.ErrMissingSender)

	_, err = c.Pull(ctx, &api.PullRequest{SenderID: "alice"})
	assert.ErrorIs(t, err, api.ErrMissingChannel)

	_, err = c.SyncMessage(ctx, &api.Envelope{SenderID: "alice", ChannelID: testChannel})
	assert.ErrorIs(t, err, api.ErrEmptyPayload)
}

func TestChannel_PullAddressesReply(t *testing.T) {
	ctx := context.Background()
	c := newTestChannel(crdt.NewAutomerge(), memoryStorage(nil))

	env, err := c.Pull(ctx, &api.PullRequest{SenderID: "alice", ChannelID: testChannel})
	require.NoError(t, err)
	assert.Equal(t, api.ServerPeerID, env.SenderID)
	assert.Equal(t, "alice", env.TargetID)
	assert.Equal(t, testChannel, env.ChannelID)

	env, err = c.Pull(ctx, &api.PullRequest{SenderID: "alice", ChannelID: testChannel, TargetID: "relay"})
	require.NoError(t, err)
	assert.Equal(t, "relay", env.SenderID)
}

func TestChannel_SerializesRequests(t *testing.T) {
	ctx := context.Background()

	var active, maxSeen atomic.Int32
	docs := memoryStorage(nil)
	save := docs.SaveDocFunc
	docs.SaveDocFunc = func(ctx context.Context, channelID string, data []byte) error {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			seen := maxSeen.Load()
			if n <= seen || maxSeen.CompareAndSwap(seen, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		return save(ctx, channelID, data)
	}

	c := newTestChannel(crdt.NewAutomerge(), docs)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		p := newTestPeer(t, string(rune('a'+i)))
		p.increment(t, 1)

		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- p.sync(ctx, c)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), maxSeen.Load())
	assert.NotEmpty(t, docs.SaveDocCalls())
}

func TestChannel_RetriesWithResetState(t *testing.T) {
	ctx := context.Background()

	engine := &flakyEngine{Engine: crdt.NewAutomerge()}
	engine.failures.Store(1)
	c := newTestChannel(engine, memoryStorage(nil))

	alice := newTestPeer(t, "alice")
	alice.increment(t, 2)

	require.NoError(t, alice.sync(ctx, c))
	assert.NotEmpty(t, c.PreviousMessage("alice"))

	heads, err := c.Heads(ctx, testChannel)
	require.NoError(t, err)
	assert.Equal(t, alice.engine.Heads(alice.doc), heads)
}

func TestChannel_SyncFailureResetsPeer(t *testing.T) {
	ctx := context.Background()

	engine := &flakyEngine{Engine: crdt.NewAutomerge()}
	engine.failures.Store(2)
	c := newTestChannel(engine, memoryStorage(nil))

	alice := newTestPeer(t, "alice")
	alice.increment(t, 1)

	_, msg, err := alice.engine.GenerateSyncMessage(alice.doc, alice.state)
	require.NoError(t, err)

	_, err = c.SyncMessage(ctx, &api.Envelope{SenderID: "alice", ChannelID: testChannel, Data: msg})
	assert.ErrorIs(t, err, ErrSyncFailure)
	assert.Equal(t, msg, c.PreviousMessage("alice"))

	// После сброса пир синхронизируется заново
	alice.state = alice.engine.InitSyncState()
	require.NoError(t, alice.sync(ctx, c))
}

func TestChannel_PersistFailureKeepsDocument(t *testing.T) {
	ctx := context.Background()

	var fail atomic.Bool
	c := newTestChannel(crdt.NewAutomerge(), memoryStorage(&fail))

	alice := newTestPeer(t, "alice")
	alice.increment(t, 1)
	require.NoError(t, alice.sync(ctx, c))

	before, err := c.Heads(ctx, testChannel)
	require.NoError(t, err)

	alice.increment(t, 1)
	fail.Store(true)
	err = alice.sync(ctx, c)
	assert.ErrorIs(t, err, ErrSyncFailure)

	after, err := c.Heads(ctx, testChannel)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// Хранилище восстановилось, пир досылает изменения
	fail.Store(false)
	alice.state = alice.engine.InitSyncState()
	require.NoError(t, alice.sync(ctx, c))

	after, err = c.Heads(ctx, testChannel)
	require.NoError(t, err)
	assert.Equal(t, alice.engine.Heads(alice.doc), after)
}

func TestChannel_NotifiesOtherPeers(t *testing.T) {
	ctx := context.Background()
	c := newTestChannel(crdt.NewAutomerge(), memoryStorage(nil))

	alice := newTestPeer(t, "alice")
	bob := newTestPeer(t, "bob")
	for _, p := range []*testPeer{alice, bob} {
		_, err := c.Connect(ctx, &api.ConnectRequest{SenderID: p.id, ChannelID: testChannel})
		require.NoError(t, err)
	}

	var aliceNotified atomic.Int32
	unsubscribe := c.Subscribe("alice", func(Notification) { aliceNotified.Add(1) })
	defer unsubscribe()

	notifications := make(chan Notification, 16)
	unsubscribe = c.Subscribe("bob", func(n Notification) { notifications <- n })
	defer unsubscribe()

	alice.increment(t, 1)
	require.NoError(t, alice.sync(ctx, c))

	select {
	case n := <-notifications:
		assert.Equal(t, Notification{ChannelID: testChannel, TargetID: "bob"}, n)
	case <-time.After(time.Second):
		t.Fatal("bob was not notified")
	}

	assert.Never(t, func() bool { return aliceNotified.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestChannel_Fetch(t *testing.T) {
	ctx := context.Background()
	c := newTestChannel(crdt.NewAutomerge(), memoryStorage(nil))

	body, err := api.Marshal(&api.ConnectRequest{SenderID: "alice", ChannelID: testChannel})
	require.NoError(t, err)

	out, err := c.Fetch(ctx, "/api/v1/sync/"+api.ActionConnect, body)
	require.NoError(t, err)

	var resp api.ConnectResponse
	require.NoError(t, api.Unmarshal(out, &resp))
	assert.Equal(t, api.StatusConnected, resp.Status)

	body, err = api.Marshal(&api.PullRequest{SenderID: "alice", ChannelID: testChannel})
	require.NoError(t, err)
	out, err = c.Fetch(ctx, api.ActionPull, body)
	require.NoError(t, err)

	env, err := api.DecodeEnvelope(out)
	require.NoError(t, err)
	assert.Equal(t, "alice", env.TargetID)

	body, err = api.Marshal(&api.Envelope{SenderID: "alice", ChannelID: testChannel})
	require.NoError(t, err)
	_, err = c.Fetch(ctx, api.ActionSyncMessage, body)
	assert.ErrorIs(t, err, api.ErrEmptyPayload)

	_, err = c.Fetch(ctx, "bogus", body)
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestChannel_LatencyRespectsContext(t *testing.T) {
	c := newTestChannel(crdt.NewAutomerge(), memoryStorage(nil), WithLatency(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.Connect(ctx, &api.ConnectRequest{SenderID: "alice", ChannelID: testChannel})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
