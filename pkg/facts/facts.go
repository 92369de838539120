// Package facts is a table of named facts whose values are computed when they
// are queried rather than when they are registered.
package facts

import "sync"

// Fact is a named value resolved on demand.
type Fact struct {
	Name    string
	resolve func() string
}

// Value resolves the fact.
func (f *Fact) Value() string {
	if f.resolve == nil {
		return ""
	}
	return f.resolve()
}

// Resolved is a fact name paired with its evaluated value.
type Resolved struct {
	Name  string
	Value string
}

// Table holds registered facts in the order they were first registered.
type Table struct {
	mu    sync.RWMutex
	facts map[string]*Fact
	order []string
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{facts: make(map[string]*Fact)}
}

// Add registers name with a resolver that is called each time the fact is
// queried. Registering an existing name replaces its resolver and keeps its
// original position.
func (t *Table) Add(name string, resolve func() string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.facts[name]; ok {
		existing.resolve = resolve
		return
	}
	t.facts[name] = &Fact{Name: name, resolve: resolve}
	t.order = append(t.order, name)
}

// Register binds name to a fixed value. It satisfies payload.RegisterFunc.
func (t *Table) Register(name, value string) {
	t.Add(name, func() string { return value })
}

// Value resolves the named fact.
func (t *Table) Value(name string) (string, bool) {
	t.mu.RLock()
	fact, ok := t.facts[name]
	t.mu.RUnlock()
	if !ok {
		return "", false
	}
	return fact.Value(), true
}

// Names lists registered fact names in registration order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.order...)
}

// Len is the number of distinct registered facts.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// Resolve evaluates every fact in registration order.
func (t *Table) Resolve() []Resolved {
	resolved, _ := t.Lookup(t.Names()...)
	return resolved
}

// Lookup evaluates only the named facts, in the order given. Names that are
// not registered are returned in missing and their facts are not evaluated.
func (t *Table) Lookup(names ...string) (resolved []Resolved, missing []string) {
	for _, name := range names {
		value, ok := t.Value(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		resolved = append(resolved, Resolved{Name: name, Value: value})
	}
	return resolved, missing
}
