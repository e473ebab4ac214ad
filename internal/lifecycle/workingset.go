package lifecycle

import (
	"context"
	"sync"

	"github.com/roach88/ontoreg/internal/rdf"
	"github.com/roach88/ontoreg/internal/register"
)

// WorkingSet caches the statements of published contexts, grouped by the
// identity that owns them. Entries are never mutated once cached; callers
// receive clones.
type WorkingSet struct {
	mu     sync.RWMutex
	graphs map[string]*rdf.Graph
	owners map[string]map[string]bool
}

// NewWorkingSet creates an empty working set.
func NewWorkingSet() *WorkingSet {
	return &WorkingSet{
		graphs: make(map[string]*rdf.Graph),
		owners: make(map[string]map[string]bool),
	}
}

// Len returns the number of cached contexts.
func (w *WorkingSet) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.graphs)
}

// Has reports whether any context of identity is cached.
func (w *WorkingSet) Has(identity string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.owners[identity]) > 0
}

// Evict drops every cached context of identity and returns how many were
// dropped.
func (w *WorkingSet) Evict(identity string) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	names := w.owners[identity]
	for name := range names {
		delete(w.graphs, name)
	}
	delete(w.owners, identity)
	return len(names)
}

// load returns the statements of context, reading through t on a miss.
// The result is shared and must not be modified.
func (w *WorkingSet) load(ctx context.Context, t *register.Txn, owner, name string) (*rdf.Graph, error) {
	w.mu.RLock()
	g, ok := w.graphs[name]
	w.mu.RUnlock()
	if ok {
		return g, nil
	}

	g, err := t.Graph(ctx, name)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if cached, ok := w.graphs[name]; ok {
		return cached, nil
	}
	w.graphs[name] = g
	if w.owners[owner] == nil {
		w.owners[owner] = make(map[string]bool)
	}
	w.owners[owner][name] = true
	return g, nil
}
