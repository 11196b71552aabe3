package store

import "sync"

// subject рассылает значения подписчикам.
// Подписчики вызываются синхронно, вне блокировок store.
type subject[T any] struct {
	listeners map[uint64]func(T)
	mu        sync.Mutex
	next      uint64
}

func newSubject[T any]() *subject[T] {
	return &subject[T]{listeners: make(map[uint64]func(T))}
}

// subscribe регистрирует listener и возвращает функцию отписки
func (s *subject[T]) subscribe(listener func(T)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.listeners[id] = listener
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *subject[T]) empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners) == 0
}

func (s *subject[T]) publish(v T) {
	s.mu.Lock()
	listeners := make([]func(T), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(v)
	}
}
