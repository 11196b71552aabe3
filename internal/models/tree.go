package models

import "slices"

// MainBranchID идентификатор ветки, создаваемой при первом запуске store
const MainBranchID = "main"

// EntityState упорядоченная коллекция сущностей с доступом по ID.
// Порядок IDs соответствует порядку добавления.
type EntityState[T any] struct {
	Entities map[string]T `json:"entities"`
	IDs      []string     `json:"ids"`
}

// NewEntityState создает пустую коллекцию
func NewEntityState[T any]() EntityState[T] {
	return EntityState[T]{
		IDs:      []string{},
		Entities: make(map[string]T),
	}
}

// Has проверяет наличие сущности с заданным ID
func (s *EntityState[T]) Has(id string) bool {
	_, ok := s.Entities[id]
	return ok
}

// Get возвращает сущность по ID
func (s *EntityState[T]) Get(id string) (T, bool) {
	v, ok := s.Entities[id]
	return v, ok
}

// Add добавляет новую сущность в конец коллекции.
// Если ID уже существует, значение заменяется без изменения порядка.
func (s *EntityState[T]) Add(id string, v T) {
	if s.Entities == nil {
		s.Entities = make(map[string]T)
	}
	if _, ok := s.Entities[id]; !ok {
		s.IDs = append(s.IDs, id)
	}
	s.Entities[id] = v
}

// IndexOf возвращает позицию ID в коллекции или -1
func (s *EntityState[T]) IndexOf(id string) int {
	return slices.Index(s.IDs, id)
}

// Values возвращает сущности в порядке добавления
func (s *EntityState[T]) Values() []T {
	result := make([]T, 0, len(s.IDs))
	for _, id := range s.IDs {
		result = append(result, s.Entities[id])
	}
	return result
}

// Branch представляет именованную ветку дерева версий.
// Start - head документа в момент создания ветки (пустой для main до первого коммита).
type Branch struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Start string `json:"start,omitempty"`
}

// Commit фиксирует конкретный head CRDT документа.
// ID и Head всегда совпадают: коммит определяется замороженным head.
type Commit struct {
	ID        string   `json:"id"`
	Branch    string   `json:"branch"`
	Message   string   `json:"message"`
	Head      string   `json:"head"`
	Forks     []string `json:"forks"`
	Merges    []string `json:"merges"`
	Timestamp int64    `json:"timestamp"` // Timestamp unix milliseconds
	HeadIndex int      `json:"headIndex"` // HeadIndex позиция head в истории ветки на момент коммита
}

// AddFork добавляет ветку в список forks (без дубликатов).
// Возвращает true, если список изменился.
func (c *Commit) AddFork(branchID string) bool {
	if slices.Contains(c.Forks, branchID) {
		return false
	}
	c.Forks = append(c.Forks, branchID)
	return true
}

// AddMerge добавляет ветку в список merges (без дубликатов).
// Возвращает true, если список изменился.
func (c *Commit) AddMerge(branchID string) bool {
	if slices.Contains(c.Merges, branchID) {
		return false
	}
	c.Merges = append(c.Merges, branchID)
	return true
}

// Involves проверяет, ссылается ли коммит на ветку: как владелец, источник merge или fork
func (c *Commit) Involves(branchID string) bool {
	return c.Branch == branchID ||
		slices.Contains(c.Merges, branchID) ||
		slices.Contains(c.Forks, branchID)
}

// Clone создает глубокую копию коммита
func (c *Commit) Clone() *Commit {
	clone := *c
	clone.Forks = slices.Clone(c.Forks)
	clone.Merges = slices.Clone(c.Merges)
	if clone.Forks == nil {
		clone.Forks = []string{}
	}
	if clone.Merges == nil {
		clone.Merges = []string{}
	}
	return &clone
}

// Tree полное состояние контроля версий store, независимое от материализованного документа
type Tree struct {
	Branches     EntityState[Branch] `json:"branches"`
	Commits      EntityState[Commit] `json:"commits"`
	ActiveBranch string              `json:"activeBranch"`
}

// NewTree возвращает начальное дерево с единственной веткой main
func NewTree() *Tree {
	tree := &Tree{
		ActiveBranch: MainBranchID,
		Branches:     NewEntityState[Branch](),
		Commits:      NewEntityState[Commit](),
	}
	tree.Branches.Add(MainBranchID, Branch{ID: MainBranchID, Title: "Main"})
	return tree
}

// Clone создает глубокую копию дерева
func (t *Tree) Clone() *Tree {
	clone := &Tree{
		ActiveBranch: t.ActiveBranch,
		Branches:     NewEntityState[Branch](),
		Commits:      NewEntityState[Commit](),
	}
	for _, b := range t.Branches.Values() {
		clone.Branches.Add(b.ID, b)
	}
	for _, id := range t.Commits.IDs {
		c := t.Commits.Entities[id]
		clone.Commits.Add(id, *c.Clone())
	}
	return clone
}

// BranchHead производное представление ветки: живой head, последний
// связанный коммит и точка ответвления
type BranchHead struct {
	LastCommit  *Commit `json:"lastCommit"`
	BranchPoint *Commit `json:"branchPoint"`
	Head        string  `json:"head"`
}

// BranchHeads BranchHead по ID ветки
type BranchHeads map[string]BranchHead

// BranchPair описывает завершенный цикл fork -> merge:
// From ответвилась в To на head Start, позже коммит на From
// зафиксировал merge из To на head End.
type BranchPair struct {
	From        string   `json:"from"`
	To          string   `json:"to"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	FromCommits []Commit `json:"fromCommits"`
	ToCommits   []Commit `json:"toCommits"`
}

// LockedState состояние просмотра исторического снимка (time travel).
// Пока Locked == true, store не принимает изменений.
type LockedState struct {
	State  map[string]any `json:"state"`
	Head   string         `json:"head"`
	Locked bool           `json:"locked"`
}
