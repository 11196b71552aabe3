package crdt

import (
	"fmt"
	"strings"

	"github.com/automerge/automerge-go"
)

// Automerge реализация Engine поверх automerge-go.
//
// Документы automerge изменяемые: Change, Merge и ReceiveSyncMessage
// модифицируют переданный документ и возвращают его же.
type Automerge struct{}

// NewAutomerge создает engine на базе automerge
func NewAutomerge() *Automerge {
	return &Automerge{}
}

var _ Engine = (*Automerge)(nil)

// amSyncState привязывает состояние синхронизации automerge к документу.
// Состояние automerge живет вместе с конкретным *automerge.Doc, поэтому при
// использовании с другим документом оно перепривязывается через Save/Load.
type amSyncState struct {
	doc *automerge.Doc
	ss  *automerge.SyncState
	raw []byte
}

func unwrapDoc(doc Doc) (*automerge.Doc, error) {
	d, ok := doc.(*automerge.Doc)
	if !ok || d == nil {
		return nil, fmt.Errorf("%w: %T", ErrInvalidDoc, doc)
	}
	return d, nil
}

func unwrapSyncState(state SyncState) (*amSyncState, error) {
	if state == nil {
		return &amSyncState{}, nil
	}
	s, ok := state.(*amSyncState)
	if !ok || s == nil {
		return nil, fmt.Errorf("%w: %T", ErrInvalidSyncState, state)
	}
	return s, nil
}

// bind возвращает automerge.SyncState, привязанный к doc
func (s *amSyncState) bind(doc *automerge.Doc) (*automerge.SyncState, error) {
	if s.ss != nil && s.doc == doc {
		return s.ss, nil
	}

	if s.ss != nil {
		s.raw = s.ss.Save()
	}

	var (
		ss  *automerge.SyncState
		err error
	)
	if len(s.raw) == 0 {
		ss = automerge.NewSyncState(doc)
	} else {
		ss, err = automerge.LoadSyncState(doc, s.raw)
		if err != nil {
			return nil, fmt.Errorf("failed to load sync state: %w", err)
		}
	}

	s.doc = doc
	s.ss = ss
	return ss, nil
}

// Init создает пустой документ
func (a *Automerge) Init() Doc {
	return automerge.New()
}

// Load восстанавливает документ из сериализованного вида
func (a *Automerge) Load(data []byte) (Doc, error) {
	doc, err := automerge.Load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return doc, nil
}

// Save сериализует документ
func (a *Automerge) Save(doc Doc) ([]byte, error) {
	d, err := unwrapDoc(doc)
	if err != nil {
		return nil, err
	}
	return d.Save(), nil
}

// Clone создает независимую копию документа с новым actor
func (a *Automerge) Clone(doc Doc) (Doc, error) {
	d, err := unwrapDoc(doc)
	if err != nil {
		return nil, err
	}
	clone, err := d.Fork()
	if err != nil {
		return nil, fmt.Errorf("failed to clone document: %w", err)
	}
	return clone, nil
}

// Change применяет fn к документу и фиксирует изменение с сообщением
func (a *Automerge) Change(doc Doc, opts ChangeOptions, fn ChangeFunc) (Doc, error) {
	d, err := unwrapDoc(doc)
	if err != nil {
		return nil, err
	}

	// fn работает с копией под тем же actor: при ошибке документ не меняется
	draft, err := d.Fork()
	if err != nil {
		return nil, fmt.Errorf("failed to fork document: %w", err)
	}
	if err := draft.SetActorID(d.ActorID()); err != nil {
		return nil, fmt.Errorf("failed to set actor: %w", err)
	}

	if err := fn(&amMutator{doc: draft}); err != nil {
		return nil, fmt.Errorf("change callback failed: %w", err)
	}

	commitOpts := automerge.CommitOptions{AllowEmpty: true}
	if !opts.Time.IsZero() {
		t := opts.Time
		commitOpts.Time = &t
	}

	if _, err := draft.Commit(opts.Message, commitOpts); err != nil {
		return nil, fmt.Errorf("failed to commit change: %w", err)
	}
	if _, err := d.Merge(draft); err != nil {
		return nil, fmt.Errorf("failed to apply change: %w", err)
	}
	return d, nil
}

// EmptyChange фиксирует пустое изменение
func (a *Automerge) EmptyChange(doc Doc, message string) (Doc, error) {
	d, err := unwrapDoc(doc)
	if err != nil {
		return nil, err
	}
	if _, err := d.Commit(message, automerge.CommitOptions{AllowEmpty: true}); err != nil {
		return nil, fmt.Errorf("failed to commit empty change: %w", err)
	}
	return d, nil
}

// Merge вливает изменения source в target
func (a *Automerge) Merge(target, source Doc) (Doc, error) {
	t, err := unwrapDoc(target)
	if err != nil {
		return nil, err
	}
	s, err := unwrapDoc(source)
	if err != nil {
		return nil, err
	}
	if _, err := t.Merge(s); err != nil {
		return nil, fmt.Errorf("failed to merge documents: %w", err)
	}
	return t, nil
}

// Heads возвращает текущие heads документа
func (a *Automerge) Heads(doc Doc) []Hash {
	d, err := unwrapDoc(doc)
	if err != nil {
		return nil
	}
	heads := d.Heads()
	result := make([]Hash, 0, len(heads))
	for _, h := range heads {
		result = append(result, h.String())
	}
	return result
}

// History возвращает все изменения документа в причинном порядке
func (a *Automerge) History(doc Doc) ([]HistoryEntry, error) {
	d, err := unwrapDoc(doc)
	if err != nil {
		return nil, err
	}
	changes, err := d.Changes()
	if err != nil {
		return nil, fmt.Errorf("failed to get changes: %w", err)
	}

	history := make([]HistoryEntry, 0, len(changes))
	for _, ch := range changes {
		history = append(history, HistoryEntry{
			Hash:    ch.Hash().String(),
			Message: ch.Message(),
			Time:    ch.Timestamp(),
		})
	}
	return history, nil
}

// Snapshot материализует документ на момент изменения с номером index
// в истории History
func (a *Automerge) Snapshot(doc Doc, index int) (map[string]any, error) {
	d, err := unwrapDoc(doc)
	if err != nil {
		return nil, err
	}
	changes, err := d.Changes()
	if err != nil {
		return nil, fmt.Errorf("failed to get changes: %w", err)
	}
	if index < 0 || index >= len(changes) {
		return nil, fmt.Errorf("%w: %d of %d", ErrHistoryIndex, index, len(changes))
	}

	view, err := d.Fork(changes[index].Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to view change %d: %w", index, err)
	}
	return a.Materialize(view)
}

// View возвращает копию документа на момент заданных heads
func (a *Automerge) View(doc Doc, heads []Hash) (Doc, error) {
	d, err := unwrapDoc(doc)
	if err != nil {
		return nil, err
	}

	hashes := make([]automerge.ChangeHash, 0, len(heads))
	for _, h := range heads {
		hash, err := automerge.NewChangeHash(h)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidHash, h)
		}
		hashes = append(hashes, hash)
	}

	view, err := d.Fork(hashes...)
	if err != nil {
		return nil, fmt.Errorf("failed to view document at heads: %w", err)
	}
	return view, nil
}

// Materialize возвращает содержимое корня документа
func (a *Automerge) Materialize(doc Doc) (map[string]any, error) {
	d, err := unwrapDoc(doc)
	if err != nil {
		return nil, err
	}
	return materializeMap(d.RootMap())
}

// InitSyncState создает чистое состояние синхронизации
func (a *Automerge) InitSyncState() SyncState {
	return &amSyncState{}
}

// GenerateSyncMessage генерирует следующее сообщение синхронизации
func (a *Automerge) GenerateSyncMessage(doc Doc, state SyncState) (SyncState, []byte, error) {
	d, err := unwrapDoc(doc)
	if err != nil {
		return nil, nil, err
	}
	s, err := unwrapSyncState(state)
	if err != nil {
		return nil, nil, err
	}
	ss, err := s.bind(d)
	if err != nil {
		return nil, nil, err
	}

	msg, valid := ss.GenerateMessage()
	if !valid {
		return s, nil, nil
	}
	return s, msg.Bytes(), nil
}

// ReceiveSyncMessage применяет сообщение пира к документу
func (a *Automerge) ReceiveSyncMessage(doc Doc, state SyncState, msg []byte) (Doc, SyncState, error) {
	d, err := unwrapDoc(doc)
	if err != nil {
		return nil, nil, err
	}
	s, err := unwrapSyncState(state)
	if err != nil {
		return nil, nil, err
	}
	ss, err := s.bind(d)
	if err != nil {
		return nil, nil, err
	}

	if _, err := ss.ReceiveMessage(msg); err != nil {
		return nil, nil, fmt.Errorf("failed to receive sync message: %w", err)
	}
	return d, s, nil
}

// EncodeSyncState сериализует состояние синхронизации
func (a *Automerge) EncodeSyncState(state SyncState) ([]byte, error) {
	s, err := unwrapSyncState(state)
	if err != nil {
		return nil, err
	}
	if s.ss != nil {
		return s.ss.Save(), nil
	}
	return append([]byte(nil), s.raw...), nil
}

// DecodeSyncState восстанавливает состояние синхронизации.
// Пустые данные соответствуют чистому состоянию.
func (a *Automerge) DecodeSyncState(data []byte) (SyncState, error) {
	return &amSyncState{raw: append([]byte(nil), data...)}, nil
}

// amMutator операции над корнем automerge документа
type amMutator struct {
	doc *automerge.Doc
}

func (m *amMutator) path(key string) *automerge.Path {
	parts := strings.Split(key, ".")
	segments := make([]any, 0, len(parts))
	for _, p := range parts {
		segments = append(segments, p)
	}
	return m.doc.Path(segments...)
}

func (m *amMutator) Set(key string, value any) error {
	if err := m.path(key).Set(value); err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

func (m *amMutator) Increment(key string, delta int64) error {
	p := m.path(key)

	v, err := p.Get()
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", key, err)
	}

	// Счетчик создается один раз, дальше только инкременты
	if v.Kind() != automerge.KindCounter {
		if err := p.Set(automerge.NewCounter(delta)); err != nil {
			return fmt.Errorf("failed to create counter %q: %w", key, err)
		}
		return nil
	}

	if err := p.Counter().Inc(delta); err != nil {
		return fmt.Errorf("failed to increment %q: %w", key, err)
	}
	return nil
}

func (m *amMutator) Delete(key string) error {
	if err := m.path(key).Delete(); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

func materializeMap(m *automerge.Map) (map[string]any, error) {
	values, err := m.Values()
	if err != nil {
		return nil, fmt.Errorf("failed to read map: %w", err)
	}

	result := make(map[string]any, len(values))
	for key, v := range values {
		gv, err := materializeValue(v)
		if err != nil {
			return nil, err
		}
		result[key] = gv
	}
	return result, nil
}

func materializeValue(v *automerge.Value) (any, error) {
	switch v.Kind() {
	case automerge.KindMap:
		return materializeMap(v.Map())
	case automerge.KindList:
		values, err := v.List().Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read list: %w", err)
		}
		result := make([]any, 0, len(values))
		for _, item := range values {
			gv, err := materializeValue(item)
			if err != nil {
				return nil, err
			}
			result = append(result, gv)
		}
		return result, nil
	case automerge.KindText:
		return v.Text().Get()
	case automerge.KindCounter:
		return v.Counter().Get()
	case automerge.KindStr:
		return v.Str(), nil
	case automerge.KindInt64:
		return v.Int64(), nil
	case automerge.KindUint64:
		return v.Uint64(), nil
	case automerge.KindFloat64:
		return v.Float64(), nil
	case automerge.KindBool:
		return v.Bool(), nil
	case automerge.KindBytes:
		return v.Bytes(), nil
	case automerge.KindTime:
		return v.Time(), nil
	default:
		return nil, nil
	}
}
