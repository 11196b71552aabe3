// Package crdt определяет узкий интерфейс к движку CRDT документов.
//
// Дерево версий и канал синхронизации работают с документами только через
// Engine: документ и состояние синхронизации для них непрозрачны.
// Конкретный движок (automerge) внедряется как зависимость.
package crdt

import (
	"errors"
	"fmt"
	"time"
)

// Hash идентификатор изменения (head) документа
type Hash = string

// Doc непрозрачный CRDT документ
type Doc any

// SyncState непрозрачный курсор синхронизации с одним пиром по одному документу
type SyncState any

// Common engine errors
var (
	// ErrInvalidDoc indicates that value was not produced by this engine
	ErrInvalidDoc = errors.New("crdt: invalid document")

	// ErrInvalidSyncState indicates that sync state was not produced by this engine
	ErrInvalidSyncState = errors.New("crdt: invalid sync state")

	// ErrHistoryIndex indicates that history index is out of range
	ErrHistoryIndex = errors.New("crdt: history index out of range")

	// ErrInvalidHash indicates that head string can't be parsed
	ErrInvalidHash = errors.New("crdt: invalid hash")
)

// ChangeOptions параметры создаваемого изменения
type ChangeOptions struct {
	Time    time.Time
	Message string
}

// Mutator набор операций над корнем документа, доступный внутри Change.
// Ключи могут быть составными: "counter.value".
type Mutator interface {
	// Set записывает значение по ключу
	Set(key string, value any) error

	// Increment увеличивает счетчик по ключу, создавая его при отсутствии.
	// Конкурентные инкременты суммируются при слиянии.
	Increment(key string, delta int64) error

	// Delete удаляет ключ
	Delete(key string) error
}

// ChangeFunc функция изменения документа
type ChangeFunc func(m Mutator) error

// HistoryEntry элемент истории изменений документа (от старых к новым)
type HistoryEntry struct {
	Time    time.Time
	Hash    Hash
	Message string
}

// Engine операции CRDT движка, необходимые дереву версий и каналу синхронизации
type Engine interface {
	// Init создает пустой документ
	Init() Doc

	// Load восстанавливает документ из сериализованного вида
	Load(data []byte) (Doc, error)

	// Save сериализует документ; Load(Save(d)) не должен завершаться ошибкой
	Save(doc Doc) ([]byte, error)

	// Clone создает независимую копию документа
	Clone(doc Doc) (Doc, error)

	// Change применяет fn и фиксирует новое изменение; всегда порождает новый head.
	// Если fn вернула ошибку, документ остается без изменений.
	Change(doc Doc, opts ChangeOptions, fn ChangeFunc) (Doc, error)

	// EmptyChange фиксирует пустое изменение с сообщением
	EmptyChange(doc Doc, message string) (Doc, error)

	// Merge вливает source в target и возвращает результат
	Merge(target, source Doc) (Doc, error)

	// Heads возвращает текущие heads; при единственном head он канонический
	Heads(doc Doc) []Hash

	// History возвращает историю изменений от старых к новым
	History(doc Doc) ([]HistoryEntry, error)

	// Snapshot возвращает содержимое документа на момент history[index]:
	// само изменение и все его предки
	Snapshot(doc Doc, index int) (map[string]any, error)

	// View возвращает проекцию документа на заданные heads
	View(doc Doc, heads []Hash) (Doc, error)

	// Materialize возвращает содержимое документа в виде Go значений
	Materialize(doc Doc) (map[string]any, error)

	// InitSyncState создает чистое состояние синхронизации
	InitSyncState() SyncState

	// GenerateSyncMessage возвращает следующее сообщение для пира или nil,
	// если передавать нечего
	GenerateSyncMessage(doc Doc, state SyncState) (SyncState, []byte, error)

	// ReceiveSyncMessage применяет сообщение пира к документу
	ReceiveSyncMessage(doc Doc, state SyncState, msg []byte) (Doc, SyncState, error)

	// EncodeSyncState сериализует долговременную часть состояния синхронизации
	EncodeSyncState(state SyncState) ([]byte, error)

	// DecodeSyncState восстанавливает состояние синхронизации
	DecodeSyncState(data []byte) (SyncState, error)
}

// CheckDoc проверяет, что документ переживает цикл save/load
func CheckDoc(e Engine, doc Doc) error {
	_, err := SaveChecked(e, doc)
	return err
}

// SaveChecked сериализует документ и проверяет, что результат загружается
func SaveChecked(e Engine, doc Doc) ([]byte, error) {
	data, err := e.Save(doc)
	if err != nil {
		return nil, err
	}
	if _, err := e.Load(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDoc, err)
	}
	return data, nil
}

// ResetSyncState сбрасывает состояние синхронизации через encode/decode:
// сохраняются общие heads, все "в полете" данные отбрасываются.
func ResetSyncState(e Engine, state SyncState) (SyncState, error) {
	if state == nil {
		return e.InitSyncState(), nil
	}
	data, err := e.EncodeSyncState(state)
	if err != nil {
		return nil, err
	}
	return e.DecodeSyncState(data)
}
