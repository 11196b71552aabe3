package crdt

import (
	"slices"
	"sync"
)

// Replica владелец живого документа, с которым работает синхронизация.
// Все обращения к документу выполняются под блокировкой владельца.
type Replica interface {
	// Read вызывает fn с текущим документом
	Read(fn func(doc Doc) error) error

	// Update вызывает fn и заменяет документ результатом
	Update(fn func(doc Doc) (Doc, error)) error
}

// DocHandle простая Replica поверх одного документа.
// OnChange вызывается после Update, если heads документа изменились.
type DocHandle struct {
	engine   Engine
	doc      Doc
	onChange func(heads []Hash)
	mu       sync.Mutex
}

var _ Replica = (*DocHandle)(nil)

// NewDocHandle создает handle для документа
func NewDocHandle(engine Engine, doc Doc) *DocHandle {
	return &DocHandle{engine: engine, doc: doc}
}

// OnChange устанавливает обработчик изменения heads
func (h *DocHandle) OnChange(fn func(heads []Hash)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = fn
}

// Read вызывает fn с текущим документом
func (h *DocHandle) Read(fn func(doc Doc) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.doc)
}

// Update вызывает fn и заменяет документ результатом
func (h *DocHandle) Update(fn func(doc Doc) (Doc, error)) error {
	h.mu.Lock()
	before := h.engine.Heads(h.doc)
	doc, err := fn(h.doc)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	h.doc = doc
	after := h.engine.Heads(doc)
	onChange := h.onChange
	h.mu.Unlock()

	if onChange != nil && !slices.Equal(before, after) {
		onChange(after)
	}
	return nil
}

// Change применяет локальное изменение к документу
func (h *DocHandle) Change(opts ChangeOptions, fn ChangeFunc) error {
	return h.Update(func(doc Doc) (Doc, error) {
		return h.engine.Change(doc, opts, fn)
	})
}

// Heads возвращает текущие heads документа
func (h *DocHandle) Heads() []Hash {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engine.Heads(h.doc)
}

// Materialize возвращает содержимое документа
func (h *DocHandle) Materialize() (map[string]any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engine.Materialize(h.doc)
}
