// Package closure resolves a candidate graph's declared imports into the
// set of managed Versions it must be checked against.
package closure

import (
	"context"
	"fmt"

	"github.com/roach88/ontoreg/internal/errs"
	"github.com/roach88/ontoreg/internal/model"
)

// EntryKind classifies an IRI known to the catalog.
type EntryKind int

const (
	// EntryUnknown means the IRI names neither an identity nor a version.
	EntryUnknown EntryKind = iota

	// EntryIdentity means the IRI is a managed identity.
	EntryIdentity

	// EntryVersion means the IRI is a recorded version IRI, possibly a
	// tombstone of a removed version.
	EntryVersion
)

// Entry is the catalog's answer to Lookup.
type Entry struct {
	Kind     EntryKind
	Identity model.Identity
	Version  model.Version
}

// Catalog is the read view of published versions that resolution runs
// against. It must only expose committed, published state.
type Catalog interface {
	// Lookup classifies iri.
	Lookup(ctx context.Context, iri string) (Entry, error)

	// Current returns the current version of identity. ok is false when the
	// identity has no live version.
	Current(ctx context.Context, identity string) (v model.Version, ok bool, err error)
}

// Options controls resolution.
type Options struct {
	// Self is the identity of the candidate graph. Importing it, directly or
	// through another import, is a cycle.
	Self string

	// HonorPins binds an import naming a version IRI to exactly that
	// version. When false the version's identity is resolved to its current
	// version instead.
	HonorPins bool

	// SchemasOnly rejects any import that resolves to an artifact.
	SchemasOnly bool
}

// Closure is the result of resolution.
type Closure struct {
	// Direct holds the bound Version for each declared import, in declared
	// order, without duplicates.
	Direct []model.Version

	// All holds the transitive closure in dependency order: every Version
	// appears after everything it imports. Each (identity, version) pair
	// appears once.
	All []model.Version
}

// Refs returns the (identity, version) pairs of the direct imports.
func (c Closure) Refs() []model.Ref {
	refs := make([]model.Ref, 0, len(c.Direct))
	for _, v := range c.Direct {
		refs = append(refs, v.Ref())
	}
	return refs
}

// Contexts returns the concrete and inferred contexts of every Version in
// the closure, in dependency order.
func (c Closure) Contexts() []string {
	var names []string
	for _, v := range c.All {
		names = append(names, v.Contexts()...)
	}
	return names
}

// Resolve binds each declared import and walks the recorded imports of the
// bound versions. Already-published versions are expanded through the
// bindings recorded when they were published, never re-resolved.
//
// Errors:
//   - UNMANAGED_IMPORT: an IRI names nothing managed, or an identity with no
//     live version
//   - AMBIGUOUS_IMPORT: a pinned version no longer exists
//   - IMPORT_CYCLE: an identity is re-entered while still on the path
//   - ILLEGAL_IMPORT: SchemasOnly and an import resolves to an artifact
func Resolve(ctx context.Context, cat Catalog, imports []string, opts Options) (Closure, error) {
	r := &resolver{
		cat:    cat,
		opts:   opts,
		done:   make(map[string]bool),
		onPath: make(map[string]bool),
	}
	if opts.Self != "" {
		r.push(opts.Self)
	}

	var out Closure
	direct := make(map[string]bool)
	for _, iri := range imports {
		v, err := r.bind(ctx, iri)
		if err != nil {
			return Closure{}, err
		}
		if err := r.visit(ctx, v); err != nil {
			return Closure{}, err
		}
		if direct[v.Ref().Key()] {
			continue
		}
		direct[v.Ref().Key()] = true
		out.Direct = append(out.Direct, v)
	}
	out.All = r.all
	return out, nil
}

type resolver struct {
	cat    Catalog
	opts   Options
	done   map[string]bool // (identity, version) keys fully expanded
	onPath map[string]bool // identities on the current path
	path   []string
	all    []model.Version
}

func (r *resolver) push(identity string) {
	r.onPath[identity] = true
	r.path = append(r.path, identity)
}

func (r *resolver) pop() {
	last := r.path[len(r.path)-1]
	r.path = r.path[:len(r.path)-1]
	delete(r.onPath, last)
}

func (r *resolver) cycle(identity string) error {
	path := append(append([]string{}, r.path...), identity)
	return errs.ImportCycle(path)
}

// bind resolves one declared import IRI.
func (r *resolver) bind(ctx context.Context, iri string) (model.Version, error) {
	e, err := r.cat.Lookup(ctx, iri)
	if err != nil {
		return model.Version{}, fmt.Errorf("resolve %s: %w", iri, err)
	}

	var v model.Version
	switch e.Kind {
	case EntryIdentity:
		if r.onPath[e.Identity.IRI] {
			return model.Version{}, r.cycle(e.Identity.IRI)
		}
		v, err = r.current(ctx, e.Identity.IRI, iri)
	case EntryVersion:
		if r.onPath[e.Version.Identity] {
			return model.Version{}, r.cycle(e.Version.Identity)
		}
		if r.opts.HonorPins {
			if e.Version.Removed {
				return model.Version{}, errs.AmbiguousImport(e.Version.Identity, e.Version.Version)
			}
			v = e.Version
		} else {
			v, err = r.current(ctx, e.Version.Identity, iri)
		}
	default:
		if r.onPath[iri] {
			return model.Version{}, r.cycle(iri)
		}
		return model.Version{}, errs.UnmanagedImport(iri)
	}
	if err != nil {
		return model.Version{}, err
	}

	if r.opts.SchemasOnly && v.Kind != model.KindSchema {
		return model.Version{}, errs.IllegalImport(v.Identity)
	}
	return v, nil
}

func (r *resolver) current(ctx context.Context, identity, iri string) (model.Version, error) {
	v, ok, err := r.cat.Current(ctx, identity)
	if err != nil {
		return model.Version{}, fmt.Errorf("resolve %s: %w", iri, err)
	}
	if !ok {
		return model.Version{}, errs.UnmanagedImport(iri)
	}
	return v, nil
}

// visit expands v's recorded imports depth first and appends v after them.
func (r *resolver) visit(ctx context.Context, v model.Version) error {
	if r.onPath[v.Identity] {
		return r.cycle(v.Identity)
	}
	if r.done[v.Ref().Key()] {
		return nil
	}

	r.push(v.Identity)
	for _, ref := range v.Imports {
		dep, err := r.pinned(ctx, ref)
		if err != nil {
			return err
		}
		if err := r.visit(ctx, dep); err != nil {
			return err
		}
	}
	r.pop()

	r.done[v.Ref().Key()] = true
	r.all = append(r.all, v)
	return nil
}

// pinned loads a recorded binding. A binding whose version was removed is
// ambiguous.
func (r *resolver) pinned(ctx context.Context, ref model.Ref) (model.Version, error) {
	e, err := r.cat.Lookup(ctx, ref.Version)
	if err != nil {
		return model.Version{}, fmt.Errorf("resolve %s: %w", ref, err)
	}
	if e.Kind != EntryVersion || e.Version.Removed {
		return model.Version{}, errs.AmbiguousImport(ref.Identity, ref.Version)
	}
	return e.Version, nil
}
