package register

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/ontoreg/internal/closure"
	"github.com/roach88/ontoreg/internal/errs"
	"github.com/roach88/ontoreg/internal/model"
	"github.com/roach88/ontoreg/internal/rdf"
	"github.com/roach88/ontoreg/internal/store"
)

// Txn implements the closure resolver's catalog.
var _ closure.Catalog = (*Txn)(nil)

// Identity returns the identity row. ok is false when the IRI was never
// managed.
func (t *Txn) Identity(ctx context.Context, iri string) (id model.Identity, ok bool, err error) {
	id, err = t.tx.GetIdentity(ctx, iri)
	if errors.Is(err, store.ErrNoRow) {
		return model.Identity{}, false, nil
	}
	if err != nil {
		return model.Identity{}, false, err
	}
	return id, true, nil
}

// State returns the lifecycle state of identity. Unknown identities are
// UNMANAGED.
func (t *Txn) State(ctx context.Context, identity string) (model.State, error) {
	id, ok, err := t.Identity(ctx, identity)
	if err != nil {
		return "", err
	}
	if !ok {
		return model.StateUnmanaged, nil
	}
	return id.State, nil
}

// Current returns the version the CurrentPointer of identity references.
// ok is false for UNMANAGED and REMOVED identities; that is not an error.
func (t *Txn) Current(ctx context.Context, identity string) (model.Version, bool, error) {
	ptr, err := t.tx.Match(ctx, ManagementGraph, rdf.Pattern{
		Subject:   rdf.IRI(identity),
		Predicate: rdf.IRI(rdf.CurrentVersion),
	})
	if err != nil {
		return model.Version{}, false, err
	}
	if len(ptr) == 0 {
		return model.Version{}, false, nil
	}
	if len(ptr) > 1 {
		return model.Version{}, false, fmt.Errorf("current %s: %d pointers in management graph", identity, len(ptr))
	}

	v, err := t.tx.GetVersion(ctx, ptr[0].Object.Value)
	if err != nil {
		return model.Version{}, false, fmt.Errorf("current %s: %w", identity, err)
	}
	return v, true, nil
}

// Version returns a recorded version, including tombstones. ok is false when
// the IRI was never recorded.
func (t *Txn) Version(ctx context.Context, version string) (model.Version, bool, error) {
	v, err := t.tx.GetVersion(ctx, version)
	if errors.Is(err, store.ErrNoRow) {
		return model.Version{}, false, nil
	}
	if err != nil {
		return model.Version{}, false, err
	}
	return v, true, nil
}

// History returns every recorded version of identity, oldest first.
func (t *Txn) History(ctx context.Context, identity string) ([]model.Version, error) {
	return t.tx.ListVersions(ctx, identity)
}

// Identities lists managed identities of kind, or all when kind is empty.
func (t *Txn) Identities(ctx context.Context, kind model.Kind) ([]model.Identity, error) {
	return t.tx.ListIdentities(ctx, kind)
}

// Lookup classifies iri as an identity, a recorded version, or unknown.
func (t *Txn) Lookup(ctx context.Context, iri string) (closure.Entry, error) {
	id, ok, err := t.Identity(ctx, iri)
	if err != nil {
		return closure.Entry{}, err
	}
	if ok {
		return closure.Entry{Kind: closure.EntryIdentity, Identity: id}, nil
	}

	v, ok, err := t.Version(ctx, iri)
	if err != nil {
		return closure.Entry{}, err
	}
	if ok {
		return closure.Entry{Kind: closure.EntryVersion, Version: v}, nil
	}
	return closure.Entry{Kind: closure.EntryUnknown}, nil
}

// Staged describes a version to record.
type Staged struct {
	Identity string
	Kind     model.Kind
	Version  string
	Label    string
	Graph    *rdf.Graph
	Imports  []model.Ref
	Hash     string
}

// Stage writes a new version's concrete graph and catalog rows with status
// UNCHECKED. The graph is written to a fresh staging context and swapped
// into the context named by the version IRI. A first version also records
// the identity as UNMANAGED until it is published.
func (t *Txn) Stage(ctx context.Context, s Staged) (model.Version, error) {
	if err := t.mustWrite("stage"); err != nil {
		return model.Version{}, err
	}
	if !s.Kind.Valid() {
		return model.Version{}, fmt.Errorf("stage %s: invalid kind %q", s.Version, s.Kind)
	}
	if s.Version == "" || s.Version == s.Identity {
		return model.Version{}, errs.InvalidGraph(nil, "version IRI must be set and differ from the identity").
			WithRef(s.Identity, s.Version)
	}

	id, ok, err := t.Identity(ctx, s.Identity)
	if err != nil {
		return model.Version{}, err
	}
	if ok {
		if id.Kind != s.Kind {
			return model.Version{}, errs.IllegalState(s.Identity, s.Version, "identity is a %s, not a %s", id.Kind, s.Kind)
		}
		if id.State == model.StateRemoved {
			return model.Version{}, errs.IllegalState(s.Identity, s.Version, "identity was removed")
		}
	}

	if entry, err := t.Lookup(ctx, s.Version); err != nil {
		return model.Version{}, err
	} else if entry.Kind != closure.EntryUnknown {
		return model.Version{}, errs.VersionExists(s.Identity, s.Version)
	}
	if exists, err := t.tx.HasContext(ctx, s.Version); err != nil {
		return model.Version{}, err
	} else if exists {
		return model.Version{}, errs.VersionExists(s.Identity, s.Version)
	}

	seq, err := t.tx.NextSeq(ctx)
	if err != nil {
		return model.Version{}, err
	}

	if !ok {
		id = model.Identity{IRI: s.Identity, Kind: s.Kind, State: model.StateUnmanaged, Label: s.Label, Seq: seq}
		if err := t.tx.PutIdentity(ctx, id); err != nil {
			return model.Version{}, err
		}
	}

	staging := StagingPrefix + uuid.NewString()
	if _, err := t.tx.AddGraph(ctx, staging, s.Graph); err != nil {
		return model.Version{}, fmt.Errorf("stage %s: %w", s.Version, err)
	}
	if err := t.tx.RenameContext(ctx, staging, s.Version); err != nil {
		return model.Version{}, fmt.Errorf("stage %s: %w", s.Version, err)
	}

	v := model.Version{
		Identity: s.Identity,
		Version:  s.Version,
		Kind:     s.Kind,
		Concrete: s.Version,
		Imports:  s.Imports,
		Status:   model.StatusUnchecked,
		Seq:      seq,
		Hash:     s.Hash,
		Label:    s.Label,
	}
	if err := t.tx.PutVersion(ctx, v); err != nil {
		return model.Version{}, err
	}
	return v, nil
}

// SetStatus records the consistency status of a staged version.
func (t *Txn) SetStatus(ctx context.Context, version string, status model.Status) error {
	if err := t.mustWrite("set status"); err != nil {
		return err
	}
	return t.tx.SetVersionStatus(ctx, version, status)
}

// SetInferred binds an inferred context to a version.
func (t *Txn) SetInferred(ctx context.Context, version, inferred string) error {
	if err := t.mustWrite("set inferred"); err != nil {
		return err
	}
	return t.tx.SetVersionInferred(ctx, version, inferred)
}

// Publish makes version the current version of its identity.
//
// Legal from UNMANAGED and ACTIVE only, and only for a CONSISTENT version.
// Superseding replaces the old pointer statements; the old version's data
// stays addressable by its version IRI.
func (t *Txn) Publish(ctx context.Context, version string) (model.Version, error) {
	if err := t.mustWrite("publish"); err != nil {
		return model.Version{}, err
	}

	v, ok, err := t.Version(ctx, version)
	if err != nil {
		return model.Version{}, err
	}
	if !ok || v.Removed {
		return model.Version{}, errs.IllegalState("", version, "version is not recorded")
	}
	if v.Status != model.StatusConsistent {
		return model.Version{}, errs.IllegalState(v.Identity, v.Version, "cannot publish a %s version", v.Status)
	}

	id, ok, err := t.Identity(ctx, v.Identity)
	if err != nil {
		return model.Version{}, err
	}
	if !ok || id.State == model.StateRemoved {
		return model.Version{}, errs.IllegalState(v.Identity, v.Version, "cannot publish onto a removed identity")
	}

	subject := rdf.IRI(v.Identity)
	if _, err := t.tx.Remove(ctx, ManagementGraph, rdf.Pattern{Subject: subject}); err != nil {
		return model.Version{}, err
	}
	pointer := []rdf.Statement{rdf.S(subject, rdf.IRI(rdf.CurrentVersion), rdf.IRI(v.Version))}
	if v.Inferred != "" {
		pointer = append(pointer, rdf.S(subject, rdf.IRI(rdf.CurrentInferredVersion), rdf.IRI(v.Inferred)))
	}
	label := v.Label
	if label == "" {
		label = id.Label
	}
	if label != "" {
		pointer = append(pointer, rdf.S(subject, rdf.Label, rdf.Literal(label)))
	}
	if _, err := t.tx.Add(ctx, ManagementGraph, pointer...); err != nil {
		return model.Version{}, err
	}

	id.State = model.StateActive
	id.Label = label
	if err := t.tx.PutIdentity(ctx, id); err != nil {
		return model.Version{}, err
	}

	t.afterCommit(func() { t.reg.metrics.RecordPublish(string(id.Kind)) })
	t.reg.logger.Debug("published", "identity", v.Identity, "version", v.Version)
	return v, nil
}

// Remove retracts the CurrentPointer of identity and deletes the concrete
// and inferred statements of all its versions. Version rows stay behind as
// tombstones so pinned imports of them report AMBIGUOUS_IMPORT.
//
// Remove on an UNMANAGED or REMOVED identity returns false and writes
// nothing.
func (t *Txn) Remove(ctx context.Context, identity string) (bool, error) {
	if err := t.mustWrite("remove"); err != nil {
		return false, err
	}

	id, ok, err := t.Identity(ctx, identity)
	if err != nil {
		return false, err
	}
	if !ok || id.State != model.StateActive {
		return false, nil
	}

	versions, err := t.History(ctx, identity)
	if err != nil {
		return false, err
	}
	for _, v := range versions {
		if v.Removed {
			continue
		}
		if err := t.drop(ctx, v); err != nil {
			return false, err
		}
	}

	if _, err := t.tx.Remove(ctx, ManagementGraph, rdf.Pattern{Subject: rdf.IRI(identity)}); err != nil {
		return false, err
	}
	id.State = model.StateRemoved
	if err := t.tx.PutIdentity(ctx, id); err != nil {
		return false, err
	}

	t.afterCommit(func() { t.reg.metrics.RecordRemoval(string(id.Kind)) })
	t.reg.logger.Debug("removed", "identity", identity, "versions", len(versions))
	return true, nil
}

// Prune garbage-collects superseded versions of identity that no live
// version imports. The current version is never pruned. Returns the pruned
// version IRIs.
func (t *Txn) Prune(ctx context.Context, identity string) ([]string, error) {
	if err := t.mustWrite("prune"); err != nil {
		return nil, err
	}

	cur, ok, err := t.Current(ctx, identity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.NotFound(identity)
	}

	versions, err := t.History(ctx, identity)
	if err != nil {
		return nil, err
	}

	pruned := []string{}
	for _, v := range versions {
		if v.Removed || v.Version == cur.Version {
			continue
		}
		deps, err := t.tx.Dependents(ctx, v.Version)
		if err != nil {
			return nil, err
		}
		if len(deps) > 0 {
			continue
		}
		if err := t.drop(ctx, v); err != nil {
			return nil, err
		}
		pruned = append(pruned, v.Version)
	}
	return pruned, nil
}

// drop deletes a version's contexts and tombstones its row.
func (t *Txn) drop(ctx context.Context, v model.Version) error {
	for _, name := range v.Contexts() {
		if _, err := t.tx.DropContext(ctx, name); err != nil {
			return err
		}
	}
	return t.tx.MarkVersionRemoved(ctx, v.Version)
}

// Graph loads the union of the given contexts.
func (t *Txn) Graph(ctx context.Context, contexts ...string) (*rdf.Graph, error) {
	out := rdf.NewGraph()
	for _, name := range contexts {
		g, err := t.tx.Graph(ctx, name)
		if err != nil {
			return nil, err
		}
		out.Add(g.Statements()...)
	}
	return out, nil
}
