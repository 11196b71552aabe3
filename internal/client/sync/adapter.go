// Package sync реализует клиентский адаптер синхронизации.
//
// Adapter ведет обмен сообщениями синхронизации CRDT с сервером по каждому
// каналу: не более одного запроса в полете на канал, остальные сообщения
// ждут в очереди в порядке генерации. При ошибке транспорта адаптер
// сообщает об отключении и переподключается к каналам через фиксированную
// задержку.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/gophsync/internal/client/store"
	"github.com/iudanet/gophsync/internal/crdt"
	"github.com/iudanet/gophsync/pkg/api"
)

const (
	// DefaultReconnectDelay задержка переподключения после ошибки транспорта
	DefaultReconnectDelay = 3 * time.Second

	// DefaultPollInterval период опроса сервера в Run
	DefaultPollInterval = 5 * time.Second

	// RingSize сколько исходящих сообщений допускается в одном обмене
	RingSize = 10
)

// Adapter errors
var (
	// ErrTransport wraps failed requests to the sync server
	ErrTransport = errors.New("transport failure")

	// ErrNoPeerID indicates that Connect was not called before sending
	ErrNoPeerID = errors.New("peer id is not set")

	// ErrNotJoined indicates that channel was not joined
	ErrNotJoined = errors.New("channel is not joined")
)

// Option настраивает Adapter
type Option func(*Adapter)

// WithReconnectDelay задает задержку переподключения
func WithReconnectDelay(d time.Duration) Option {
	return func(a *Adapter) {
		a.reconnectDelay = d
	}
}

// WithPollInterval задает период опроса сервера
func WithPollInterval(d time.Duration) Option {
	return func(a *Adapter) {
		a.pollInterval = d
	}
}

// outbound элемент очереди канала: сообщение или pull
type outbound struct {
	env  *api.Envelope
	pull bool
}

type channelState struct {
	replica crdt.Replica
	state   crdt.SyncState
	ring    *digestRing
	id      string
	queue   []outbound
	// stateMu защищает replica и state, берется до блокировки replica
	stateMu sync.Mutex
	// mu защищает queue, ring и syncing
	mu      sync.Mutex
	syncing bool
}

// Adapter клиентский адаптер синхронизации
type Adapter struct {
	transport      Transport
	engine         crdt.Engine
	logger         *slog.Logger
	events         *events
	channels       map[string]*channelState
	reconnect      *time.Timer
	ctx            context.Context
	cancel         context.CancelFunc
	peerID         string
	mu             sync.Mutex
	reconnectDelay time.Duration
	pollInterval   time.Duration
	connected      bool
	closed         bool
}

var _ store.Synchronizer = (*Adapter)(nil)

// New создает адаптер
func New(transport Transport, engine crdt.Engine, logger *slog.Logger, opts ...Option) *Adapter {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Adapter{
		transport:      transport,
		engine:         engine,
		logger:         logger,
		events:         newEvents(),
		channels:       make(map[string]*channelState),
		ctx:            ctx,
		cancel:         cancel,
		reconnectDelay: DefaultReconnectDelay,
		pollInterval:   DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Connect задает идентификатор локального пира
func (a *Adapter) Connect(peerID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.peerID = peerID
}

// PeerID возвращает идентификатор локального пира
func (a *Adapter) PeerID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.peerID
}

// Connected сообщает, подключен ли адаптер к серверу
func (a *Adapter) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

// Subscribe подписывает fn на события адаптера.
// Возвращает функцию отписки.
func (a *Adapter) Subscribe(fn func(Event)) func() {
	return a.events.subscribe(fn)
}

// Close останавливает переподключение и опрос
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.closed = true
	a.cancel()
	if a.reconnect != nil {
		a.reconnect.Stop()
		a.reconnect = nil
	}
}

func (a *Adapter) channel(channelID string) *channelState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.channels[channelID]
}

// Join подключается к каналу и начинает синхронизацию replica
func (a *Adapter) Join(ctx context.Context, channelID string, replica crdt.Replica) error {
	if a.PeerID() == "" {
		return ErrNoPeerID
	}
	if channelID == "" {
		return api.ErrMissingChannel
	}

	a.mu.Lock()
	ch, ok := a.channels[channelID]
	if !ok {
		ch = &channelState{
			id:    channelID,
			ring:  newDigestRing(RingSize),
			state: a.engine.InitSyncState(),
		}
		a.channels[channelID] = ch
	}
	a.mu.Unlock()

	ch.stateMu.Lock()
	ch.replica = replica
	ch.stateMu.Unlock()

	return a.initiateConnection(ctx, ch)
}

// Leave прекращает синхронизацию канала
func (a *Adapter) Leave(channelID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.channels, channelID)
}

// Push отправляет серверу локальные изменения replica.
// Канал подключается при первом обращении.
func (a *Adapter) Push(ctx context.Context, channelID string, replica crdt.Replica) error {
	ch := a.channel(channelID)
	if ch == nil {
		return a.Join(ctx, channelID, replica)
	}

	ch.stateMu.Lock()
	ch.replica = replica
	ch.stateMu.Unlock()

	return a.sync(ctx, ch)
}

// Pull запрашивает у сервера сообщения для канала
func (a *Adapter) Pull(ctx context.Context, channelID string) error {
	ch := a.channel(channelID)
	if ch == nil {
		return fmt.Errorf("%w: %s", ErrNotJoined, channelID)
	}
	if !a.Connected() {
		return nil
	}
	return a.enqueue(ctx, ch, outbound{pull: true})
}

// Run периодически опрашивает сервер по всем каналам до отмены ctx
func (a *Adapter) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.ctx.Done():
			return nil
		case <-ticker.C:
			a.mu.Lock()
			ids := make([]string, 0, len(a.channels))
			for id := range a.channels {
				ids = append(ids, id)
			}
			a.mu.Unlock()

			for _, id := range ids {
				if err := a.Pull(ctx, id); err != nil {
					a.logger.Debug("Periodic pull failed", "channel", id, "error", err)
				}
			}
		}
	}
}

// SendMessage отправляет сообщение синхронизации в канал.
// Пока в канале идет обмен, сообщение ставится в очередь.
func (a *Adapter) SendMessage(ctx context.Context, targetID, channelID string, data []byte, broadcast bool) error {
	a.mu.Lock()
	connected, peerID := a.connected, a.peerID
	ch := a.channels[channelID]
	a.mu.Unlock()

	if !connected {
		a.logger.Debug("Not connected, message dropped", "channel", channelID)
		return nil
	}
	if len(data) == 0 {
		return api.ErrEmptyPayload
	}
	if peerID == "" {
		return ErrNoPeerID
	}
	if ch == nil {
		return fmt.Errorf("%w: %s", ErrNotJoined, channelID)
	}

	return a.enqueue(ctx, ch, outbound{env: &api.Envelope{
		SenderID:  peerID,
		TargetID:  targetID,
		ChannelID: channelID,
		Type:      api.MessageType,
		Data:      data,
		Broadcast: broadcast,
	}})
}

// AnnounceConnection сообщает подписчикам о доступном пире канала
func (a *Adapter) AnnounceConnection(channelID, peerID string) error {
	if a.PeerID() == "" {
		return ErrNoPeerID
	}
	a.events.emit(Event{Type: EventPeerCandidate, PeerID: peerID, ChannelID: channelID})
	return nil
}

// initiateConnection заново подключает канал с чистым состоянием синхронизации
func (a *Adapter) initiateConnection(ctx context.Context, ch *channelState) error {
	ch.mu.Lock()
	ch.queue = nil
	ch.ring.reset()
	ch.mu.Unlock()

	body, err := api.Marshal(&api.ConnectRequest{SenderID: a.PeerID(), ChannelID: ch.id})
	if err != nil {
		return err
	}

	data, err := a.request(ctx, api.ActionConnect, body)
	if err != nil {
		return err
	}

	var resp api.ConnectResponse
	if err := api.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("failed to decode connect response: %w", err)
	}

	a.mu.Lock()
	a.connected = true
	a.mu.Unlock()

	// Сервер начинает с чистого состояния, клиент тоже
	ch.stateMu.Lock()
	ch.state = a.engine.InitSyncState()
	ch.stateMu.Unlock()

	if resp.Status == api.StatusConnected {
		if err := a.AnnounceConnection(ch.id, api.ServerPeerID); err != nil {
			return err
		}
	}

	a.logger.Info("Joined channel", "channel", ch.id, "status", resp.Status)
	return a.sync(ctx, ch)
}

// sync генерирует следующее сообщение для сервера и отправляет его
func (a *Adapter) sync(ctx context.Context, ch *channelState) error {
	var msg []byte

	ch.stateMu.Lock()
	err := ch.replica.Read(func(doc crdt.Doc) error {
		next, m, err := a.engine.GenerateSyncMessage(doc, ch.state)
		if err != nil {
			return err
		}
		ch.state = next
		msg = m
		return nil
	})
	ch.stateMu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to generate sync message: %w", err)
	}
	if msg == nil {
		return nil
	}
	return a.SendMessage(ctx, api.ServerPeerID, ch.id, msg, false)
}

// enqueue ставит элемент в очередь канала; если обмен не идет,
// текущий вызов становится владельцем обмена и отправляет очередь.
func (a *Adapter) enqueue(ctx context.Context, ch *channelState, item outbound) error {
	ch.mu.Lock()
	if item.pull {
		for _, q := range ch.queue {
			if q.pull {
				ch.mu.Unlock()
				return nil
			}
		}
	}
	ch.queue = append(ch.queue, item)
	if ch.syncing {
		ch.mu.Unlock()
		return nil
	}
	ch.syncing = true
	ch.mu.Unlock()

	return a.flush(ctx, ch)
}

func (a *Adapter) flush(ctx context.Context, ch *channelState) error {
	for {
		ch.mu.Lock()
		if len(ch.queue) == 0 {
			ch.syncing = false
			ch.mu.Unlock()
			return nil
		}
		item := ch.queue[0]
		ch.queue = ch.queue[1:]
		ch.mu.Unlock()

		var err error
		if item.pull {
			err = a.pull(ctx, ch)
		} else {
			err = a.send(ctx, ch, item.env)
		}

		if err != nil {
			ch.mu.Lock()
			ch.queue = nil
			ch.syncing = false
			ch.mu.Unlock()
			return err
		}
	}
}

func (a *Adapter) send(ctx context.Context, ch *channelState, env *api.Envelope) error {
	encoded, err := api.EncodeEnvelope(env)
	if err != nil {
		return err
	}

	d := payloadDigest(encoded)

	ch.mu.Lock()
	duplicate := ch.ring.contains(d)
	overflow := !duplicate && !ch.ring.push(d)
	ch.mu.Unlock()

	if duplicate {
		a.logger.Debug("Duplicate sync message skipped", "channel", ch.id)
		return nil
	}
	if overflow {
		a.logger.Warn("Too many messages in one exchange, rejoining channel", "channel", ch.id)
		return a.initiateConnection(ctx, ch)
	}

	data, err := a.request(ctx, api.ActionSyncMessage, encoded)
	if err != nil {
		return err
	}
	return a.receiveReply(ctx, ch, data)
}

func (a *Adapter) pull(ctx context.Context, ch *channelState) error {
	body, err := api.Marshal(&api.PullRequest{
		SenderID:  a.PeerID(),
		ChannelID: ch.id,
		TargetID:  api.ServerPeerID,
	})
	if err != nil {
		return err
	}

	data, err := a.request(ctx, api.ActionPull, body)
	if err != nil {
		return err
	}
	return a.receiveReply(ctx, ch, data)
}

func (a *Adapter) receiveReply(ctx context.Context, ch *channelState, data []byte) error {
	env, err := api.DecodeEnvelope(data)
	if err != nil {
		return fmt.Errorf("failed to decode reply: %w", err)
	}

	// Сервер ничего не прислал: обмен завершен
	if env.Empty() {
		ch.mu.Lock()
		ch.ring.reset()
		ch.mu.Unlock()
		return nil
	}

	if env.ChannelID != ch.id {
		a.logger.Warn("Reply for another channel ignored", "channel", ch.id, "reply_channel", env.ChannelID)
		return nil
	}

	return a.receiveMessage(ctx, ch, env)
}

// receiveMessage применяет сообщение сервера к replica и продолжает обмен
func (a *Adapter) receiveMessage(ctx context.Context, ch *channelState, env *api.Envelope) error {
	ch.stateMu.Lock()
	err := ch.replica.Update(func(doc crdt.Doc) (crdt.Doc, error) {
		next, state, err := a.engine.ReceiveSyncMessage(doc, ch.state, env.Data)
		if err != nil {
			return nil, err
		}
		ch.state = state
		return next, nil
	})
	ch.stateMu.Unlock()

	if err != nil {
		a.logger.Warn("Failed to apply sync message, rejoining channel", "channel", ch.id, "error", err)
		return a.initiateConnection(ctx, ch)
	}

	a.events.emit(Event{
		Type:      EventMessage,
		ChannelID: env.ChannelID,
		SenderID:  env.SenderID,
		TargetID:  env.TargetID,
		Message:   env.Data,
		Broadcast: env.Broadcast,
	})

	a.logger.Debug("Sync message applied", "channel", ch.id, "size", len(env.Data))
	return a.sync(ctx, ch)
}

// request выполняет действие; при ошибке транспорта планирует переподключение
func (a *Adapter) request(ctx context.Context, action string, body []byte) ([]byte, error) {
	data, err := a.transport.Fetch(ctx, action, body)
	if err == nil {
		return data, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	a.logger.Warn("Sync request failed", "action", action, "error", err)
	a.resetConnection()
	return nil, fmt.Errorf("%w: %s: %w", ErrTransport, action, err)
}

// resetConnection сообщает об отключении и планирует одну попытку переподключения
func (a *Adapter) resetConnection() {
	a.mu.Lock()
	if a.reconnect != nil || a.closed {
		a.mu.Unlock()
		return
	}
	a.connected = false
	a.reconnect = time.AfterFunc(a.reconnectDelay, a.rejoin)
	a.mu.Unlock()

	a.events.emit(Event{Type: EventPeerDisconnected, PeerID: api.ServerPeerID})
}

func (a *Adapter) rejoin() {
	a.mu.Lock()
	a.reconnect = nil
	if a.closed {
		a.mu.Unlock()
		return
	}
	channels := make([]*channelState, 0, len(a.channels))
	for _, ch := range a.channels {
		channels = append(channels, ch)
	}
	a.mu.Unlock()

	for _, ch := range channels {
		if err := a.initiateConnection(a.ctx, ch); err != nil {
			a.logger.Warn("Reconnect failed", "channel", ch.id, "error", err)
			return
		}
	}
}
