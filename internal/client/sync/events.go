package sync

import "sync"

// EventType тип события адаптера
type EventType string

// События адаптера
const (
	// EventPeerCandidate сервер принял подключение к каналу
	EventPeerCandidate EventType = "peer-candidate"
	// EventPeerDisconnected запрос к серверу не удался, запланировано переподключение
	EventPeerDisconnected EventType = "peer-disconnected"
	// EventMessage получено непустое сообщение синхронизации
	EventMessage EventType = "message"
)

// Event событие адаптера
type Event struct {
	Type      EventType
	PeerID    string
	ChannelID string
	SenderID  string
	TargetID  string
	Message   []byte
	Broadcast bool
}

type events struct {
	listeners map[uint64]func(Event)
	mu        sync.Mutex
	next      uint64
}

func newEvents() *events {
	return &events{listeners: make(map[uint64]func(Event))}
}

func (e *events) subscribe(fn func(Event)) func() {
	e.mu.Lock()
	id := e.next
	e.next++
	e.listeners[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

func (e *events) emit(ev Event) {
	e.mu.Lock()
	listeners := make([]func(Event), 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, l)
	}
	e.mu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
}
