// Package channel реализует серверный канал синхронизации.
//
// Для каждого канала (идентификатор документа) сервер хранит авторитетную
// копию CRDT документа и состояние синхронизации с каждым пиром. Запросы к
// одному каналу обрабатываются строго по одному, в порядке поступления.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"sync"
	"time"

	"github.com/iudanet/gophsync/internal/crdt"
	"github.com/iudanet/gophsync/internal/server/storage"
	"github.com/iudanet/gophsync/pkg/api"
)

// DefaultLatency искусственная задержка обработки запроса
const DefaultLatency = 100 * time.Millisecond

// Channel errors
var (
	// ErrSyncFailure indicates that peer message could not be merged or persisted.
	// Peer sync state is reset, the peer has to restart synchronization.
	ErrSyncFailure = errors.New("sync failure")

	// ErrUnknownAction indicates unsupported Fetch action
	ErrUnknownAction = errors.New("unknown action")
)

// Notification сообщает пиру, что в канале появились изменения
type Notification struct {
	ChannelID string
	TargetID  string
}

// Option настраивает Channel
type Option func(*Channel)

// WithLatency задает задержку обработки каждого запроса
func WithLatency(d time.Duration) Option {
	return func(c *Channel) {
		c.latency = d
	}
}

type listener struct {
	fn func(Notification)
	id uint64
}

// Channel координатор синхронизации пиров
type Channel struct {
	engine     crdt.Engine
	storage    storage.DocumentStorage
	logger     *slog.Logger
	locks      *keyedLock
	docs       map[string]crdt.Doc                  // channel -> документ
	syncStates map[string]map[string]crdt.SyncState // peer -> channel -> state
	members    map[string]map[string]struct{}       // channel -> peers
	previous   map[string][]byte                    // peer -> последнее сообщение
	listeners  map[string][]listener                // peer -> подписчики
	mu         sync.Mutex
	latency    time.Duration
	nextID     uint64
}

// New создает канал синхронизации
func New(engine crdt.Engine, docs storage.DocumentStorage, logger *slog.Logger, opts ...Option) *Channel {
	c := &Channel{
		engine:     engine,
		storage:    docs,
		logger:     logger,
		locks:      newKeyedLock(),
		latency:    DefaultLatency,
		docs:       make(map[string]crdt.Doc),
		syncStates: make(map[string]map[string]crdt.SyncState),
		members:    make(map[string]map[string]struct{}),
		previous:   make(map[string][]byte),
		listeners:  make(map[string][]listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch обрабатывает действие с CBOR телом и возвращает CBOR ответ.
// action может быть путем: используется последний сегмент.
func (c *Channel) Fetch(ctx context.Context, action string, body []byte) ([]byte, error) {
	switch path.Base(action) {
	case api.ActionConnect:
		var req api.ConnectRequest
		if err := api.Unmarshal(body, &req); err != nil {
			return nil, err
		}
		resp, err := c.Connect(ctx, &req)
		if err != nil {
			return nil, err
		}
		return api.Marshal(resp)

	case api.ActionPull:
		var req api.PullRequest
		if err := api.Unmarshal(body, &req); err != nil {
			return nil, err
		}
		resp, err := c.Pull(ctx, &req)
		if err != nil {
			return nil, err
		}
		return api.Marshal(resp)

	case api.ActionSyncMessage:
		env, err := api.DecodeEnvelope(body)
		if err != nil {
			return nil, err
		}
		resp, err := c.SyncMessage(ctx, env)
		if err != nil {
			return nil, err
		}
		return api.Marshal(resp)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
}

// withLock выполняет fn под блокировкой канала после задержки latency
func (c *Channel) withLock(ctx context.Context, channelID string, fn func() error) error {
	unlock, err := c.locks.lock(ctx, channelID)
	if err != nil {
		return err
	}
	defer unlock()

	if c.latency > 0 {
		timer := time.NewTimer(c.latency)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fn()
}

func validatePeer(senderID, channelID string) error {
	if senderID == "" {
		return api.ErrMissingSender
	}
	if channelID == "" {
		return api.ErrMissingChannel
	}
	return nil
}

// Connect регистрирует пира с чистой таблицей состояний синхронизации
func (c *Channel) Connect(ctx context.Context, req *api.ConnectRequest) (*api.ConnectResponse, error) {
	if err := validatePeer(req.SenderID, req.ChannelID); err != nil {
		return nil, err
	}

	err := c.withLock(ctx, req.ChannelID, func() error {
		c.SetupPeer(req.SenderID)
		c.join(req.ChannelID, req.SenderID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Peer connected", "peer", req.SenderID, "channel", req.ChannelID)
	return &api.ConnectResponse{Status: api.StatusConnected}, nil
}

// Pull возвращает следующее сообщение синхронизации для пира.
// Конверт без данных означает, что передавать нечего.
func (c *Channel) Pull(ctx context.Context, req *api.PullRequest) (*api.Envelope, error) {
	if err := validatePeer(req.SenderID, req.ChannelID); err != nil {
		return nil, err
	}

	var msg []byte
	err := c.withLock(ctx, req.ChannelID, func() error {
		c.join(req.ChannelID, req.SenderID)

		doc, err := c.getDoc(ctx, req.ChannelID)
		if err != nil {
			return err
		}
		msg, err = c.generateSyncMessage(req.ChannelID, req.SenderID, doc)
		return err
	})
	if err != nil {
		return nil, err
	}

	sender := req.TargetID
	if sender == "" {
		sender = api.ServerPeerID
	}

	return &api.Envelope{
		SenderID:  sender,
		TargetID:  req.SenderID,
		ChannelID: req.ChannelID,
		Data:      msg,
	}, nil
}

// SyncMessage применяет сообщение пира к документу канала и возвращает ответ.
// При ошибке состояние синхронизации пира сбрасывается.
func (c *Channel) SyncMessage(ctx context.Context, env *api.Envelope) (*api.Envelope, error) {
	if env.Empty() {
		return nil, api.ErrEmptyPayload
	}
	if err := validatePeer(env.SenderID, env.ChannelID); err != nil {
		return nil, err
	}

	var (
		msg    []byte
		notify []string
	)
	err := c.withLock(ctx, env.ChannelID, func() error {
		c.join(env.ChannelID, env.SenderID)

		var err error
		msg, notify, err = c.updateDoc(ctx, env)
		if err != nil {
			c.ResetDocState(env.SenderID, env.ChannelID)
		}
		return err
	})
	if err != nil {
		c.logger.Warn("Sync message failed", "peer", env.SenderID, "channel", env.ChannelID, "error", err)
		return nil, err
	}

	// Уведомления после освобождения канала
	c.notify(env.ChannelID, notify)

	return &api.Envelope{
		SenderID:  env.TargetID,
		TargetID:  env.SenderID,
		ChannelID: env.ChannelID,
		Data:      msg,
	}, nil
}

// updateDoc принимает сообщение пира; вызывается под блокировкой канала.
// Возвращает ответное сообщение и пиров, которых нужно уведомить.
func (c *Channel) updateDoc(ctx context.Context, env *api.Envelope) ([]byte, []string, error) {
	peer, channelID := env.SenderID, env.ChannelID

	c.mu.Lock()
	c.previous[peer] = env.Data
	c.mu.Unlock()

	doc, err := c.getDoc(ctx, channelID)
	if err != nil {
		return nil, nil, err
	}
	before := c.engine.Heads(doc)

	state := c.syncState(peer, channelID)
	next, nextState, err := c.engine.ReceiveSyncMessage(doc, state, env.Data)
	if err != nil {
		c.logger.Warn("Sync state rejected message, retrying with reset state",
			"peer", peer, "channel", channelID, "error", err)

		reset, resetErr := crdt.ResetSyncState(c.engine, state)
		if resetErr != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrSyncFailure, resetErr)
		}

		next, nextState, err = c.engine.ReceiveSyncMessage(doc, reset, env.Data)
		if err != nil {
			c.dropDoc(channelID)
			return nil, nil, fmt.Errorf("%w: %w", ErrSyncFailure, err)
		}
	}

	if err := c.saveDoc(ctx, channelID, next); err != nil {
		c.logger.Error("Failed to persist channel document",
			"peer", peer,
			"channel", channelID,
			"old_heads", before,
			"new_heads", c.engine.Heads(next),
			"error", err)

		// Документ будет перечитан из хранилища в последнем сохраненном виде
		c.dropDoc(channelID)
		return nil, nil, fmt.Errorf("%w: %w", ErrSyncFailure, err)
	}

	c.setSyncState(peer, channelID, nextState)

	var notify []string
	if !slices.Equal(before, c.engine.Heads(next)) {
		notify = c.otherMembers(channelID, peer)
	}

	msg, err := c.generateSyncMessage(channelID, peer, next)
	if err != nil {
		return nil, nil, err
	}
	return msg, notify, nil
}

// generateSyncMessage вызывается под блокировкой канала
func (c *Channel) generateSyncMessage(channelID, peer string, doc crdt.Doc) ([]byte, error) {
	next, msg, err := c.engine.GenerateSyncMessage(doc, c.syncState(peer, channelID))
	if err != nil {
		return nil, fmt.Errorf("failed to generate sync message: %w", err)
	}
	c.setSyncState(peer, channelID, next)
	return msg, nil
}

// getDoc возвращает живой документ канала, загружая его при необходимости
func (c *Channel) getDoc(ctx context.Context, channelID string) (crdt.Doc, error) {
	c.mu.Lock()
	doc, ok := c.docs[channelID]
	c.mu.Unlock()
	if ok {
		return doc, nil
	}

	data, err := c.storage.GetDoc(ctx, channelID)
	switch {
	case errors.Is(err, storage.ErrDocNotFound):
		doc = c.engine.Init()
	case err != nil:
		return nil, fmt.Errorf("failed to get channel document: %w", err)
	default:
		doc, err = c.engine.Load(data)
		if err != nil {
			return nil, fmt.Errorf("failed to load channel document: %w", err)
		}
	}

	c.mu.Lock()
	c.docs[channelID] = doc
	c.mu.Unlock()
	return doc, nil
}

// saveDoc проверяет и сохраняет документ, после чего делает его живым
func (c *Channel) saveDoc(ctx context.Context, channelID string, doc crdt.Doc) error {
	data, err := crdt.SaveChecked(c.engine, doc)
	if err != nil {
		return err
	}
	if err := c.storage.SaveDoc(ctx, channelID, data); err != nil {
		return err
	}

	c.mu.Lock()
	c.docs[channelID] = doc
	c.mu.Unlock()
	return nil
}

func (c *Channel) dropDoc(channelID string) {
	c.mu.Lock()
	delete(c.docs, channelID)
	c.mu.Unlock()
}

func (c *Channel) syncState(peer, channelID string) crdt.SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if state, ok := c.syncStates[peer][channelID]; ok && state != nil {
		return state
	}
	return c.engine.InitSyncState()
}

func (c *Channel) setSyncState(peer, channelID string, state crdt.SyncState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.syncStates[peer] == nil {
		c.syncStates[peer] = make(map[string]crdt.SyncState)
	}
	c.syncStates[peer][channelID] = state
}

func (c *Channel) join(channelID, peer string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.members[channelID] == nil {
		c.members[channelID] = make(map[string]struct{})
	}
	c.members[channelID][peer] = struct{}{}
}

func (c *Channel) otherMembers(channelID, peer string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var result []string
	for p := range c.members[channelID] {
		if p != peer {
			result = append(result, p)
		}
	}
	slices.Sort(result)
	return result
}

// SetupPeer создает для пира чистую таблицу состояний синхронизации
func (c *Channel) SetupPeer(peer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncStates[peer] = make(map[string]crdt.SyncState)
}

// ResetDocState сбрасывает состояние синхронизации пира по каналу через
// encode/decode; при отсутствии состояния создает чистое
func (c *Channel) ResetDocState(peer, channelID string) {
	state := c.syncState(peer, channelID)

	reset, err := crdt.ResetSyncState(c.engine, state)
	if err != nil {
		c.logger.Warn("Failed to reset sync state, starting from scratch",
			"peer", peer, "channel", channelID, "error", err)
		reset = c.engine.InitSyncState()
	}

	c.setSyncState(peer, channelID, reset)
}

// PreviousMessage возвращает последнее сообщение, полученное от пира
func (c *Channel) PreviousMessage(peer string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previous[peer]
}

// Heads возвращает heads документа канала
func (c *Channel) Heads(ctx context.Context, channelID string) ([]crdt.Hash, error) {
	unlock, err := c.locks.lock(ctx, channelID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, err := c.getDoc(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return c.engine.Heads(doc), nil
}

// Subscribe подписывает пира на уведомления об изменениях в его каналах.
// Возвращает функцию отписки.
func (c *Channel) Subscribe(peer string, fn func(Notification)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[peer] = append(c.listeners[peer], listener{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.listeners[peer] = slices.DeleteFunc(c.listeners[peer], func(l listener) bool {
			return l.id == id
		})
	}
}

// notify асинхронно уведомляет пиров о доступных сообщениях
func (c *Channel) notify(channelID string, peers []string) {
	for _, peer := range peers {
		c.mu.Lock()
		listeners := slices.Clone(c.listeners[peer])
		c.mu.Unlock()

		n := Notification{ChannelID: channelID, TargetID: peer}
		for _, l := range listeners {
			go l.fn(n)
		}
	}
}
