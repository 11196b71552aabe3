// Package store реализует дерево версий поверх CRDT документов:
// ветки, коммиты, слияния и просмотр исторических снимков (time travel).
//
// Каждая ветка хранит собственный CRDT документ. Коммит фиксирует head
// документа ветки и создается только явным вызовом Commit или Merge.
// Изменения документов сохраняются с задержкой и отправляются пирам
// через Synchronizer.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/gophsync/internal/client/storage"
	"github.com/iudanet/gophsync/internal/crdt"
	"github.com/iudanet/gophsync/internal/models"
)

// DefaultSaveDebounce задержка сохранения после последнего изменения
const DefaultSaveDebounce = 100 * time.Millisecond

// InitialCommitMessage сообщение коммита, создаваемого при первом запуске
const InitialCommitMessage = "Initial state"

// Store errors
var (
	// ErrEmptyKey indicates that store was created without a key
	ErrEmptyKey = errors.New("store key is empty")

	// ErrBranchNotFound indicates that branch does not exist in the tree
	ErrBranchNotFound = errors.New("branch not found")

	// ErrCommitNotFound indicates that commit does not exist in the tree
	ErrCommitNotFound = errors.New("commit not found")

	// ErrNoHeads indicates that branch document has no changes
	ErrNoHeads = errors.New("document has no heads")

	// ErrSameBranch indicates an attempt to merge a branch into itself
	ErrSameBranch = errors.New("cannot merge a branch into itself")
)

//go:generate moq -out synchronizer_mock.go . Synchronizer

// Synchronizer отправляет сохраненные изменения ветки пирам.
// channelID имеет вид "{store}/{branchId}".
type Synchronizer interface {
	Push(ctx context.Context, channelID string, replica crdt.Replica) error
}

// Config параметры store
type Config struct {
	// Initial заполняет документ main при первом запуске
	Initial crdt.ChangeFunc
	// Key имя store, префикс всех ключей хранилища
	Key string
	// SaveDebounce задержка сохранения; 0 означает DefaultSaveDebounce
	SaveDebounce time.Duration
}

// View производное состояние store, передаваемое подписчикам
type View struct {
	Value  map[string]any
	Tree   *models.Tree
	Heads  models.BranchHeads
	Head   string
	Locked bool
}

// Store дерево версий одного логического документа
type Store struct {
	engine       crdt.Engine
	documents    storage.DocumentStorage
	metadata     storage.MetadataStorage
	synchronizer Synchronizer
	logger       *slog.Logger
	saver        *saver
	views        *subject[View]
	now          func() time.Time
	tree         *models.Tree
	branches     map[string]crdt.Doc
	locals       map[string]map[string]any
	locked       models.LockedState
	key          string
	instanceID   string
	mu           sync.Mutex
}

// New создает store и загружает его состояние из хранилища.
// synchronizer может быть nil: тогда изменения только сохраняются локально.
func New(
	ctx context.Context,
	cfg Config,
	engine crdt.Engine,
	documents storage.DocumentStorage,
	metadata storage.MetadataStorage,
	synchronizer Synchronizer,
	logger *slog.Logger,
) (*Store, error) {
	if cfg.Key == "" {
		return nil, ErrEmptyKey
	}

	debounce := cfg.SaveDebounce
	if debounce <= 0 {
		debounce = DefaultSaveDebounce
	}

	s := &Store{
		key:          cfg.Key,
		engine:       engine,
		documents:    documents,
		metadata:     metadata,
		synchronizer: synchronizer,
		logger:       logger,
		views:        newSubject[View](),
		now:          time.Now,
		branches:     make(map[string]crdt.Doc),
		locals:       make(map[string]map[string]any),
	}
	s.saver = newSaver(debounce, s.saveBranch)

	if err := s.load(ctx, cfg.Initial); err != nil {
		return nil, err
	}

	return s, nil
}

// load восстанавливает дерево, документы веток и идентификатор экземпляра
func (s *Store) load(ctx context.Context, initial crdt.ChangeFunc) error {
	tree, err := s.documents.GetTree(ctx, storage.TreeKey(s.key))
	fresh := errors.Is(err, storage.ErrTreeNotFound)
	switch {
	case fresh:
		tree = models.NewTree()
	case err != nil:
		return fmt.Errorf("failed to load tree: %w", err)
	}

	if err := s.loadInstanceID(ctx); err != nil {
		return err
	}

	active := tree.ActiveBranch
	doc, err := s.loadDocument(ctx, active)
	// Новый документ создается только для нового store;
	// отсутствие документа у существующего дерева это потеря данных
	if fresh && errors.Is(err, storage.ErrDocumentNotFound) {
		doc, err = s.initialDocument(initial)
	}
	if err != nil {
		return fmt.Errorf("failed to load active branch %s: %w", active, err)
	}

	heads := s.engine.Heads(doc)
	if len(heads) == 0 {
		return fmt.Errorf("active branch %s: %w", active, ErrNoHeads)
	}
	head := heads[0]

	s.tree = tree
	s.branches[active] = doc

	// Первый запуск: фиксируем начальное состояние как коммит main
	if len(tree.Commits.IDs) == 0 && active == models.MainBranchID {
		mainBranch, _ := tree.Branches.Get(models.MainBranchID)
		mainBranch.Start = head
		tree.Branches.Add(models.MainBranchID, mainBranch)

		tree.Commits.Add(head, models.Commit{
			ID:        head,
			Branch:    models.MainBranchID,
			Timestamp: s.now().UnixMilli(),
			Message:   InitialCommitMessage,
			Head:      head,
			HeadIndex: 0,
			Forks:     []string{},
			Merges:    []string{},
		})

		if err := s.saveDocument(ctx, active, doc); err != nil {
			return err
		}
		if err := s.saveTree(ctx); err != nil {
			return err
		}
		s.saver.schedule(active, true)

		s.logger.Info("Initialized version tree", "store", s.key, "head", head)
	}

	for _, branchID := range tree.Branches.IDs {
		if branchID == active {
			continue
		}
		doc, err := s.loadDocument(ctx, branchID)
		if err != nil {
			return fmt.Errorf("failed to load branch %s: %w", branchID, err)
		}
		s.branches[branchID] = doc
	}

	s.logger.Debug("Store loaded",
		"store", s.key,
		"branches", len(tree.Branches.IDs),
		"commits", len(tree.Commits.IDs),
		"active_branch", active)

	return nil
}

func (s *Store) loadInstanceID(ctx context.Context) error {
	id, err := s.metadata.GetInstanceID(ctx)
	if err == nil {
		s.instanceID = id
		return nil
	}
	if !errors.Is(err, storage.ErrMetadataNotFound) {
		return fmt.Errorf("failed to get instance id: %w", err)
	}

	id = uuid.NewString()
	if err := s.metadata.SaveInstanceID(ctx, id); err != nil {
		return fmt.Errorf("failed to save instance id: %w", err)
	}
	s.instanceID = id
	return nil
}

func (s *Store) loadDocument(ctx context.Context, branchID string) (crdt.Doc, error) {
	data, err := s.documents.GetDocument(ctx, storage.DocumentKey(s.key, branchID))
	if err != nil {
		return nil, err
	}
	return s.engine.Load(data)
}

func (s *Store) initialDocument(initial crdt.ChangeFunc) (crdt.Doc, error) {
	doc := s.engine.Init()
	if initial == nil {
		return s.engine.EmptyChange(doc, InitialCommitMessage)
	}
	return s.engine.Change(doc, crdt.ChangeOptions{Message: InitialCommitMessage, Time: s.now()}, initial)
}

// saveBranch сохраняет документ ветки на момент вызова и при необходимости
// отправляет изменения пирам
func (s *Store) saveBranch(ctx context.Context, branchID string, push bool) {
	s.mu.Lock()
	doc, ok := s.branches[branchID]
	if !ok {
		s.mu.Unlock()
		return
	}
	data, err := s.engine.Save(doc)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Failed to serialize branch document", "branch", branchID, "error", err)
		return
	}

	if err := s.documents.SaveDocument(ctx, storage.DocumentKey(s.key, branchID), data); err != nil {
		s.logger.Error("Failed to save branch document", "branch", branchID, "error", err)
		return
	}

	if !push || s.synchronizer == nil {
		return
	}

	if err := s.synchronizer.Push(ctx, s.ChannelID(branchID), s.Replica(branchID)); err != nil {
		s.logger.Warn("Failed to push branch changes", "branch", branchID, "error", err)
	}
}

// saveDocument сразу сохраняет документ ветки; вызывается под s.mu
func (s *Store) saveDocument(ctx context.Context, branchID string, doc crdt.Doc) error {
	data, err := s.engine.Save(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize branch %s: %w", branchID, err)
	}
	if err := s.documents.SaveDocument(ctx, storage.DocumentKey(s.key, branchID), data); err != nil {
		return fmt.Errorf("failed to save branch %s: %w", branchID, err)
	}
	return nil
}

// saveTree сохраняет дерево; вызывается под s.mu
func (s *Store) saveTree(ctx context.Context) error {
	if err := s.documents.SaveTree(ctx, storage.TreeKey(s.key), s.tree.Clone()); err != nil {
		return fmt.Errorf("failed to save tree: %w", err)
	}
	return nil
}

// update выполняет fn под блокировкой и уведомляет подписчиков
func (s *Store) update(fn func() error) error {
	s.mu.Lock()
	err := fn()
	s.mu.Unlock()

	s.publish()
	return err
}

// setBranchDoc заменяет документ ветки; локальные значения ветки сбрасываются
func (s *Store) setBranchDoc(branchID string, doc crdt.Doc) {
	s.branches[branchID] = doc
	delete(s.locals, branchID)
}

// Change применяет fn к документу активной ветки.
// Коммит не создается; сохранение и отправка откладываются.
// В режиме просмотра истории ничего не делает.
func (s *Store) Change(message string, fn crdt.ChangeFunc) error {
	return s.update(func() error {
		if s.locked.Locked {
			return nil
		}

		active := s.tree.ActiveBranch
		doc, err := s.engine.Change(s.branches[active], crdt.ChangeOptions{Message: message, Time: s.now()}, fn)
		if err != nil {
			return fmt.Errorf("failed to change branch %s: %w", active, err)
		}

		s.setBranchDoc(active, doc)
		s.saver.schedule(active, true)
		return nil
	})
}

// Set записывает значение в документ активной ветки
func (s *Store) Set(key string, value any, message string) error {
	return s.Change(message, func(m crdt.Mutator) error {
		return m.Set(key, value)
	})
}

// SetLocal записывает значение только в локальное представление активной ветки.
// Значение не попадает в документ, не сохраняется и не отправляется пирам;
// оно сбрасывается при следующей замене документа ветки.
func (s *Store) SetLocal(key string, value any) {
	_ = s.update(func() error {
		if s.locked.Locked {
			return nil
		}

		active := s.tree.ActiveBranch
		if s.locals[active] == nil {
			s.locals[active] = make(map[string]any)
		}
		s.locals[active][key] = value
		return nil
	})
}

// Commit фиксирует текущий head ветки branchID (по умолчанию активной).
// Если head уже зафиксирован, коммит переназначается на branchID и
// mergeBranch добавляется в его merges без дубликатов.
func (s *Store) Commit(ctx context.Context, message, branchID, mergeBranch string) error {
	return s.update(func() error {
		if s.locked.Locked {
			return nil
		}
		return s.commitLocked(ctx, message, branchID, mergeBranch)
	})
}

func (s *Store) commitLocked(ctx context.Context, message, branchID, mergeBranch string) error {
	if branchID == "" {
		branchID = s.tree.ActiveBranch
	}

	doc, ok := s.branches[branchID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBranchNotFound, branchID)
	}

	heads := s.engine.Heads(doc)
	if len(heads) == 0 {
		return fmt.Errorf("branch %s: %w", branchID, ErrNoHeads)
	}
	head := heads[0]

	// Дерево не должно ссылаться на head, которого нет в сохраненном документе
	if err := s.saveDocument(ctx, branchID, doc); err != nil {
		return err
	}

	if existing, ok := s.tree.Commits.Get(head); ok {
		existing.Branch = branchID
		if mergeBranch != "" {
			existing.AddMerge(mergeBranch)
		}
		s.tree.Commits.Add(head, existing)

		s.logger.Debug("Commit reassigned", "head", head, "branch", branchID, "merge", mergeBranch)
		return s.saveTree(ctx)
	}

	history, err := s.engine.History(doc)
	if err != nil {
		return fmt.Errorf("failed to get branch %s history: %w", branchID, err)
	}

	commit := models.Commit{
		ID:        head,
		Branch:    branchID,
		Timestamp: s.now().UnixMilli(),
		Message:   message,
		Head:      head,
		HeadIndex: len(history) - 1,
		Forks:     []string{},
		Merges:    []string{},
	}
	if mergeBranch != "" {
		commit.Merges = append(commit.Merges, mergeBranch)
	}
	s.tree.Commits.Add(head, commit)

	s.logger.Debug("Commit created", "head", head, "branch", branchID, "head_index", commit.HeadIndex)
	return s.saveTree(ctx)
}

// Merge вливает ветку fromID в toID (по умолчанию активную) и фиксирует
// коммит слияния. Если результат не совпадает с head источника, поверх
// создается пустое изменение, сводящее heads к одному.
func (s *Store) Merge(ctx context.Context, fromID, toID string) error {
	return s.update(func() error {
		if s.locked.Locked {
			return nil
		}
		if toID == "" {
			toID = s.tree.ActiveBranch
		}
		if fromID == toID {
			return fmt.Errorf("%w: %s", ErrSameBranch, fromID)
		}

		fromBranch, ok := s.tree.Branches.Get(fromID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrBranchNotFound, fromID)
		}
		toBranch, ok := s.tree.Branches.Get(toID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrBranchNotFound, toID)
		}

		source := s.branches[fromID]
		sourceHeads := s.engine.Heads(source)

		merged, err := s.engine.Merge(s.branches[toID], source)
		if err != nil {
			return fmt.Errorf("failed to merge %s into %s: %w", fromID, toID, err)
		}

		message := fmt.Sprintf("Merged %s into %s", fromBranch.Title, toBranch.Title)

		mergedHeads := s.engine.Heads(merged)
		if len(mergedHeads) != 1 || len(sourceHeads) == 0 || sourceHeads[0] != mergedHeads[0] {
			merged, err = s.engine.EmptyChange(merged, message)
			if err != nil {
				return fmt.Errorf("failed to finalize merge: %w", err)
			}
		}

		s.setBranchDoc(toID, merged)
		s.saver.schedule(toID, true)

		s.logger.Info("Branches merged", "from", fromID, "to", toID)
		return s.commitLocked(ctx, message, toID, fromID)
	})
}

// Branch создает ветку из состояния документа на момент commit и делает
// ее активной. Возвращает идентификатор новой ветки.
func (s *Store) Branch(ctx context.Context, commit models.Commit, title string) (string, error) {
	var branchID string

	err := s.update(func() error {
		stored, ok := s.tree.Commits.Get(commit.ID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrCommitNotFound, commit.ID)
		}

		source, ok := s.branches[stored.Branch]
		if !ok {
			return fmt.Errorf("%w: %s", ErrBranchNotFound, stored.Branch)
		}

		view, err := s.engine.View(source, []crdt.Hash{stored.Head})
		if err != nil {
			return fmt.Errorf("failed to view commit %s: %w", stored.Head, err)
		}
		doc, err := s.engine.Clone(view)
		if err != nil {
			return fmt.Errorf("failed to clone commit %s: %w", stored.Head, err)
		}

		branchID = uuid.NewString()

		// Документ сохраняется до дерева: ветка в дереве всегда имеет документ
		if err := s.saveDocument(ctx, branchID, doc); err != nil {
			return err
		}

		s.branches[branchID] = doc
		s.tree.Branches.Add(branchID, models.Branch{ID: branchID, Title: title, Start: stored.Head})

		stored.AddFork(branchID)
		s.tree.Commits.Add(stored.ID, stored)

		s.saver.schedule(branchID, true)
		s.activateLocked(branchID)

		s.logger.Info("Branch created", "branch", branchID, "title", title, "start", stored.Head)
		return s.saveTree(ctx)
	})

	return branchID, err
}

// activateLocked снимает режим просмотра истории и переключает активную ветку
func (s *Store) activateLocked(branchID string) {
	s.locked = models.LockedState{}
	s.tree.ActiveBranch = branchID
}

// SetActiveBranch выходит из режима просмотра истории и переключает активную ветку
func (s *Store) SetActiveBranch(ctx context.Context, branchID string) error {
	return s.update(func() error {
		if !s.tree.Branches.Has(branchID) {
			return fmt.Errorf("%w: %s", ErrBranchNotFound, branchID)
		}
		s.activateLocked(branchID)
		return s.saveTree(ctx)
	})
}

// SetState переводит store в режим просмотра снимка на момент commit.
// Если commit совпадает с живым head своей ветки, просто активирует ветку.
func (s *Store) SetState(ctx context.Context, commit models.Commit) error {
	return s.update(func() error {
		branchID := commit.Branch

		// Коммит мог быть переназначен: если история активной ветки
		// на позиции headIndex совпадает, используем ее
		active := s.tree.ActiveBranch
		history, err := s.engine.History(s.branches[active])
		if err == nil && commit.HeadIndex >= 0 && commit.HeadIndex < len(history) &&
			history[commit.HeadIndex].Hash == commit.Head {
			branchID = active
		}

		doc, ok := s.branches[branchID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrBranchNotFound, branchID)
		}

		if heads := s.engine.Heads(doc); len(heads) > 0 && heads[0] == commit.Head {
			s.activateLocked(branchID)
			return s.saveTree(ctx)
		}

		snapshot, err := s.engine.Snapshot(doc, commit.HeadIndex)
		if err != nil {
			return fmt.Errorf("failed to build snapshot for %s: %w", commit.Head, err)
		}

		s.locked = models.LockedState{Locked: true, Head: commit.Head, State: snapshot}
		return nil
	})
}

// Locked сообщает, находится ли store в режиме просмотра истории
func (s *Store) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked.Locked
}

// Head возвращает просматриваемый head или живой head активной ветки
func (s *Store) Head() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headLocked()
}

func (s *Store) headLocked() string {
	if s.locked.Locked {
		return s.locked.Head
	}
	heads := s.engine.Heads(s.branches[s.tree.ActiveBranch])
	if len(heads) == 0 {
		return ""
	}
	return heads[0]
}

// Heads возвращает живой head, последний коммит и точку ответвления каждой ветки
func (s *Store) Heads() models.BranchHeads {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headsLocked()
}

func (s *Store) headsLocked() models.BranchHeads {
	commits := s.tree.Commits.Values()
	result := make(models.BranchHeads, len(s.tree.Branches.IDs))

	for _, b := range s.tree.Branches.Values() {
		var bh models.BranchHead

		if heads := s.engine.Heads(s.branches[b.ID]); len(heads) > 0 {
			bh.Head = heads[0]
		}

		if start, ok := s.tree.Commits.Get(b.Start); ok {
			bh.BranchPoint = start.Clone()
			bh.LastCommit = start.Clone()
		}

		for i := len(commits) - 1; i >= 0; i-- {
			if commits[i].Involves(b.ID) {
				bh.LastCommit = commits[i].Clone()
				break
			}
		}

		result[b.ID] = bh
	}

	return result
}

// Value возвращает содержимое store: снимок в режиме просмотра истории,
// иначе документ активной ветки с локальными значениями
func (s *Store) Value() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valueLocked()
}

func (s *Store) valueLocked() (map[string]any, error) {
	if s.locked.Locked && s.locked.State != nil {
		return maps.Clone(s.locked.State), nil
	}

	active := s.tree.ActiveBranch
	value, err := s.engine.Materialize(s.branches[active])
	if err != nil {
		return nil, fmt.Errorf("failed to materialize branch %s: %w", active, err)
	}
	maps.Copy(value, s.locals[active])
	return value, nil
}

// Tree возвращает копию дерева версий
func (s *Store) Tree() *models.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Clone()
}

// Commits возвращает коммиты в порядке создания
func (s *Store) Commits() []models.Commit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Commits.Values()
}

// View возвращает все производные представления store
func (s *Store) View() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, err := s.valueLocked()
	if err != nil {
		return View{}, err
	}

	return View{
		Value:  value,
		Tree:   s.tree.Clone(),
		Heads:  s.headsLocked(),
		Head:   s.headLocked(),
		Locked: s.locked.Locked,
	}, nil
}

// Subscribe вызывает listener с текущим View и после каждого изменения store.
// Возвращает функцию отписки.
func (s *Store) Subscribe(listener func(View)) func() {
	unsubscribe := s.views.subscribe(listener)

	v, err := s.View()
	if err != nil {
		s.logger.Error("Failed to build store view", "error", err)
		return unsubscribe
	}
	listener(v)
	return unsubscribe
}

func (s *Store) publish() {
	if s.views.empty() {
		return
	}

	v, err := s.View()
	if err != nil {
		s.logger.Error("Failed to build store view", "error", err)
		return
	}
	s.views.publish(v)
}

// Key возвращает имя store
func (s *Store) Key() string {
	return s.key
}

// InstanceID возвращает постоянный идентификатор этого экземпляра клиента
func (s *Store) InstanceID() string {
	return s.instanceID
}

// ChannelID возвращает канал синхронизации ветки
func (s *Store) ChannelID(branchID string) string {
	return storage.DocumentKey(s.key, branchID)
}

// Replica возвращает доступ к живому документу ветки для синхронизации
func (s *Store) Replica(branchID string) crdt.Replica {
	return &branchReplica{store: s, branchID: branchID}
}

// Flush немедленно сохраняет все отложенные изменения
func (s *Store) Flush(ctx context.Context) {
	s.saver.flush(ctx)
}

// Close сохраняет отложенные изменения и останавливает таймеры
func (s *Store) Close(ctx context.Context) {
	s.saver.stop(ctx)
}

// branchReplica документ ветки store как crdt.Replica
type branchReplica struct {
	store    *Store
	branchID string
}

func (r *branchReplica) Read(fn func(doc crdt.Doc) error) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	doc, ok := r.store.branches[r.branchID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBranchNotFound, r.branchID)
	}
	return fn(doc)
}

// Update применяет изменения, полученные от пиров.
// Документ сохраняется, но повторно не отправляется.
func (r *branchReplica) Update(fn func(doc crdt.Doc) (crdt.Doc, error)) error {
	s := r.store

	s.mu.Lock()
	doc, ok := s.branches[r.branchID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBranchNotFound, r.branchID)
	}

	before := s.engine.Heads(doc)
	next, err := fn(doc)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	changed := !slices.Equal(before, s.engine.Heads(next))
	if changed {
		s.setBranchDoc(r.branchID, next)
		s.saver.schedule(r.branchID, false)
	} else {
		s.branches[r.branchID] = next
	}
	s.mu.Unlock()

	if changed {
		s.publish()
	}
	return nil
}
