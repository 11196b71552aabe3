package store

import (
	"context"
	"sync"
	"time"
)

// saveFunc сохраняет текущее состояние ветки; push требует отправки пирам
type saveFunc func(ctx context.Context, branchID string, push bool)

// saver откладывает сохранение ветки на delay после последнего изменения.
// Каждый schedule перезапускает таймер своей ветки, сохраняется всегда
// документ на момент срабатывания.
type saver struct {
	save    saveFunc
	timers  map[string]*time.Timer
	gen     map[string]uint64
	push    map[string]bool
	mu      sync.Mutex
	delay   time.Duration
	stopped bool
}

func newSaver(delay time.Duration, save saveFunc) *saver {
	return &saver{
		save:   save,
		delay:  delay,
		timers: make(map[string]*time.Timer),
		gen:    make(map[string]uint64),
		push:   make(map[string]bool),
	}
}

// schedule (пере)запускает таймер сохранения ветки
func (s *saver) schedule(branchID string, push bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if t, ok := s.timers[branchID]; ok {
		t.Stop()
	}

	s.gen[branchID]++
	g := s.gen[branchID]
	s.push[branchID] = s.push[branchID] || push
	s.timers[branchID] = time.AfterFunc(s.delay, func() {
		s.fire(branchID, g)
	})
}

func (s *saver) fire(branchID string, g uint64) {
	s.mu.Lock()
	// таймер уже перезапущен или сброшен flush
	if s.gen[branchID] != g || s.timers[branchID] == nil {
		s.mu.Unlock()
		return
	}
	push := s.push[branchID]
	delete(s.timers, branchID)
	delete(s.push, branchID)
	s.mu.Unlock()

	s.save(context.Background(), branchID, push)
}

// flush немедленно сохраняет все ветки с ожидающими таймерами
func (s *saver) flush(ctx context.Context) {
	s.mu.Lock()
	pending := make(map[string]bool, len(s.timers))
	for id, t := range s.timers {
		t.Stop()
		pending[id] = s.push[id]
		s.gen[id]++
	}
	s.timers = make(map[string]*time.Timer)
	s.push = make(map[string]bool)
	s.mu.Unlock()

	for id, push := range pending {
		s.save(ctx, id, push)
	}
}

// stop сохраняет ожидающие ветки и запрещает новые таймеры
func (s *saver) stop(ctx context.Context) {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.flush(ctx)
}

func (s *saver) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
