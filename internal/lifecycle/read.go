package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/ontoreg/internal/closure"
	"github.com/roach88/ontoreg/internal/errs"
	"github.com/roach88/ontoreg/internal/model"
	"github.com/roach88/ontoreg/internal/rdf"
	"github.com/roach88/ontoreg/internal/register"
)

// Current returns the current version of identity. ok is false for an
// UNMANAGED or REMOVED identity.
func (o *Orchestrator) Current(ctx context.Context, identity string) (v model.Version, ok bool, err error) {
	err = o.reg.Read(ctx, func(t *register.Txn) error {
		v, ok, err = t.Current(ctx, identity)
		return err
	})
	return v, ok, err
}

// State returns the lifecycle state of identity.
func (o *Orchestrator) State(ctx context.Context, identity string) (s model.State, err error) {
	err = o.reg.Read(ctx, func(t *register.Txn) error {
		s, err = t.State(ctx, identity)
		return err
	})
	return s, err
}

// History returns every recorded version of identity, oldest first,
// including removed and superseded ones.
func (o *Orchestrator) History(ctx context.Context, identity string) (vs []model.Version, err error) {
	err = o.reg.Read(ctx, func(t *register.Txn) error {
		vs, err = t.History(ctx, identity)
		return err
	})
	return vs, err
}

// Identities lists managed identities of kind. Empty kind lists all.
func (o *Orchestrator) Identities(ctx context.Context, kind model.Kind) (ids []model.Identity, err error) {
	err = o.reg.Read(ctx, func(t *register.Txn) error {
		ids, err = t.Identities(ctx, kind)
		return err
	})
	return ids, err
}

// Export returns the concrete statements of a version, or its inferred
// statements when inferred is set. iri may also name an identity, meaning
// its current version.
//
// Errors: NOT_FOUND when iri names nothing live.
func (o *Orchestrator) Export(ctx context.Context, iri string, inferred bool) (*rdf.Graph, error) {
	var out *rdf.Graph
	err := o.reg.Read(ctx, func(t *register.Txn) error {
		v, err := liveVersion(ctx, t, iri)
		if err != nil {
			return err
		}
		name := v.Concrete
		if inferred {
			if v.Inferred == "" {
				out = rdf.NewGraph()
				return nil
			}
			name = v.Inferred
		}
		g, err := o.working.load(ctx, t, v.Identity, name)
		if err != nil {
			return err
		}
		out = g.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", iri, err)
	}
	return out, nil
}

// Closure returns the recorded import closure of the current version of
// identity, or of the version iri names.
//
// Errors: NOT_FOUND, AMBIGUOUS_IMPORT when a recorded binding was removed.
func (o *Orchestrator) Closure(ctx context.Context, iri string) (closure.Closure, error) {
	var cl closure.Closure
	err := o.reg.Read(ctx, func(t *register.Txn) error {
		v, err := liveVersion(ctx, t, iri)
		if err != nil {
			return err
		}
		pins := make([]string, len(v.Imports))
		for i, ref := range v.Imports {
			pins[i] = ref.Version
		}
		cl, err = closure.Resolve(ctx, t, pins, closure.Options{Self: v.Identity, HonorPins: true})
		return err
	})
	if err != nil {
		return closure.Closure{}, fmt.Errorf("closure %s: %w", iri, err)
	}
	return cl, nil
}

// Prune garbage-collects superseded versions of identity that no live
// version imports. Returns the pruned version IRIs.
func (o *Orchestrator) Prune(ctx context.Context, identity string) (pruned []string, err error) {
	start := time.Now()
	defer func() { err = o.finish(OpPrune, identity, "", start, err) }()

	err = o.reg.Write(ctx, func(t *register.Txn) error {
		pruned, err = t.Prune(ctx, identity)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("prune %s: %w", identity, err)
	}
	if len(pruned) > 0 {
		o.working.Evict(identity)
	}
	return pruned, nil
}

// liveVersion resolves iri as a live version IRI or as an identity's
// current version.
func liveVersion(ctx context.Context, t *register.Txn, iri string) (model.Version, error) {
	e, err := t.Lookup(ctx, iri)
	if err != nil {
		return model.Version{}, err
	}
	switch e.Kind {
	case closure.EntryVersion:
		if !e.Version.Removed {
			return e.Version, nil
		}
	case closure.EntryIdentity:
		v, ok, err := t.Current(ctx, e.Identity.IRI)
		if err != nil {
			return model.Version{}, err
		}
		if ok {
			return v, nil
		}
	}
	return model.Version{}, errs.NotFound(iri)
}
