package cli

import (
	"context"
	"fmt"
	"slices"
	"text/template"

	"github.com/iudanet/gophsync/internal/crdt"
)

type viewEntry struct {
	Value any
	Key   string
}

type viewData struct {
	Branch  string
	Head    string
	Entries []viewEntry
	Locked  bool
}

// RunView выводит состояние документа: снимок при просмотре истории,
// иначе живое значение активной ветки
func (c *Cli) RunView(ctx context.Context) error {
	value, err := c.store.Value()
	if err != nil {
		return fmt.Errorf("failed to read value: %w", err)
	}

	tree := c.store.Tree()
	data := viewData{
		Branch: branchTitle(tree, tree.ActiveBranch),
		Head:   shortHash(c.store.Head()),
		Locked: c.store.Locked(),
	}

	keys := make([]string, 0, len(value))
	for k := range value {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		data.Entries = append(data.Entries, viewEntry{Key: k, Value: value[k]})
	}

	tmpl, err := template.New("view").Parse(viewTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	if err := tmpl.Execute(c.io, data); err != nil {
		return fmt.Errorf("failed to render view: %w", err)
	}
	c.io.Println()
	return nil
}

// RunSet записывает значение в документ активной ветки
func (c *Cli) RunSet(ctx context.Context, key, raw, message string) error {
	if key == "" {
		return fmt.Errorf("missing key. Usage: gophsync set <key> <value>")
	}
	if c.store.Locked() {
		return ErrLocked
	}
	if message == "" {
		message = fmt.Sprintf("Set %s", key)
	}

	value := parseValue(raw)
	if err := c.store.Set(key, value, message); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	c.io.Printf("%s = %v\n", key, value)
	return nil
}

// RunIncr увеличивает счетчик в документе активной ветки
func (c *Cli) RunIncr(ctx context.Context, key string, delta int64, message string) error {
	if key == "" {
		return fmt.Errorf("missing key. Usage: gophsync incr <key> [delta]")
	}
	if c.store.Locked() {
		return ErrLocked
	}
	if message == "" {
		message = fmt.Sprintf("Increment %s by %d", key, delta)
	}

	err := c.store.Change(message, func(m crdt.Mutator) error {
		return m.Increment(key, delta)
	})
	if err != nil {
		return fmt.Errorf("failed to increment %s: %w", key, err)
	}

	value, err := c.store.Value()
	if err != nil {
		return fmt.Errorf("failed to read value: %w", err)
	}
	c.io.Printf("%s = %v\n", key, value[key])
	return nil
}
