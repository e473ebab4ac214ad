package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/roach88/ontoreg/internal/closure"
	"github.com/roach88/ontoreg/internal/errs"
	"github.com/roach88/ontoreg/internal/model"
	"github.com/roach88/ontoreg/internal/rdf"
	"github.com/roach88/ontoreg/internal/register"
	"github.com/roach88/ontoreg/internal/translate"
)

// maxVersionProbes bounds the search for an unused successor version IRI.
const maxVersionProbes = 1000

// ArtifactOptions configures LoadArtifact.
type ArtifactOptions struct {
	// Timeout overrides the orchestrator's default deadline.
	Timeout time.Duration
}

// LoadArtifact publishes a client graph as the first version of a freshly
// minted artifact identity.
//
// The client's owl:Ontology subject, which must be provisional if present,
// becomes the identity. Every other provisional IRI moves under
// translate.IdentityBase(identity). Imports are bound exactly: a version
// IRI pins that version, an identity IRI binds its current version. Only
// schemas may be imported.
//
// Errors: EMPTY_ONTOLOGY, INVALID_GRAPH, DUPLICATE_IDENTITY,
// ILLEGAL_IMPORT, closure and gate failures, REASONING_TIMEOUT.
func (o *Orchestrator) LoadArtifact(ctx context.Context, data []byte, format rdf.Format, opts ArtifactOptions) (v model.Version, err error) {
	start := time.Now()
	var identity, version string
	defer func() { err = o.finish(OpLoadArtifact, identity, version, start, err) }()

	ctx, cancel := o.deadline(ctx, opts.Timeout)
	defer cancel()

	g, err := parse(data, format)
	if err != nil {
		return model.Version{}, err
	}
	if g.Len() == 0 {
		return model.Version{}, errs.EmptyOntology()
	}

	identity = strings.TrimSuffix(o.artifactBase, "/") + "/" + o.minter.Mint()
	version = translate.FirstVersion(identity)

	g, err = o.adopt(g, identity, true)
	if err != nil {
		return model.Version{}, err
	}
	rdf.SetVersionIRI(g, identity, version)

	c := candidate{
		identity: identity,
		version:  version,
		kind:     model.KindArtifact,
		label:    rdf.LabelOf(g, identity),
		graph:    g,
		resolve:  closure.Options{HonorPins: true, SchemasOnly: true},
	}
	err = o.reg.Write(ctx, func(t *register.Txn) error {
		if _, exists, err := t.Identity(ctx, identity); err != nil {
			return err
		} else if exists {
			return errs.DuplicateIdentity(identity)
		}
		v, err = o.publish(ctx, t, c)
		return err
	})
	if err != nil {
		return model.Version{}, fmt.Errorf("load artifact: %w", err)
	}
	return v, nil
}

// adopt rewrites a client graph so it belongs to identity: the declared
// provisional ontology maps exactly onto identity and remaining provisional
// IRIs map by prefix under the identity base. With declare set, a graph
// with no ontology declaration gets one.
func (o *Orchestrator) adopt(g *rdf.Graph, identity string, declare bool) (*rdf.Graph, error) {
	onto, ok, err := rdf.OntologyIRI(g)
	if err != nil {
		return nil, errs.InvalidGraph(err, "artifact must declare at most one owl:Ontology")
	}
	switch {
	case !ok:
		if declare {
			g = g.Clone()
			g.Add(rdf.S(rdf.IRI(identity), rdf.Type, rdf.Ontology))
		}
	case onto == identity:
	case translate.IsProvisional(onto, o.tempPrefix):
		g, _ = o.exact.Rewrite(g, onto, identity)
	default:
		return nil, errs.InvalidGraph(nil, "artifact ontology %s is not provisional", onto)
	}

	g, _ = o.prefix.Rewrite(g, o.tempPrefix, translate.IdentityBase(identity))
	return g, nil
}

// UpdateRequest describes an artifact update.
type UpdateRequest struct {
	// Identity is the artifact to update.
	Identity string

	// BaseVersion is the version the edits were made against. It must be
	// the current version. Empty skips the check.
	BaseVersion string

	// Edits is the serialized edits graph in Format.
	Edits  []byte
	Format rdf.Format

	Mode     Mode
	Dangling DanglingPolicy

	// Timeout overrides the orchestrator's default deadline.
	Timeout time.Duration
}

// UpdateArtifact publishes a new version of an artifact from edits against
// its current version. The new version IRI increments the current one.
//
// Errors: NOT_FOUND, STALE_VERSION, EMPTY_ONTOLOGY, INVALID_GRAPH,
// DANGLING_OBJECT, ILLEGAL_IMPORT, closure and gate failures,
// REASONING_TIMEOUT.
func (o *Orchestrator) UpdateArtifact(ctx context.Context, req UpdateRequest) (v model.Version, err error) {
	start := time.Now()
	var version string
	defer func() { err = o.finish(OpUpdateArtifact, req.Identity, version, start, err) }()

	if err := ValidateMode(req.Mode); err != nil {
		return model.Version{}, errs.InvalidGraph(err, "bad update request")
	}
	if err := ValidateDanglingPolicy(req.Dangling); err != nil {
		return model.Version{}, errs.InvalidGraph(err, "bad update request")
	}

	ctx, cancel := o.deadline(ctx, req.Timeout)
	defer cancel()

	edits, err := parse(req.Edits, req.Format)
	if err != nil {
		return model.Version{}, err
	}
	if edits.Len() == 0 {
		return model.Version{}, errs.EmptyOntology()
	}
	edits, err = o.adopt(edits, req.Identity, false)
	if err != nil {
		return model.Version{}, err
	}

	err = o.reg.Write(ctx, func(t *register.Txn) error {
		id, ok, err := t.Identity(ctx, req.Identity)
		if err != nil {
			return err
		}
		if !ok || id.State != model.StateActive {
			return errs.NotFound(req.Identity)
		}
		if id.Kind != model.KindArtifact {
			return errs.IllegalState(req.Identity, "", "identity is a %s, not an artifact", id.Kind)
		}
		cur, ok, err := t.Current(ctx, req.Identity)
		if err != nil {
			return err
		}
		if !ok {
			return errs.NotFound(req.Identity)
		}
		if req.BaseVersion != "" && req.BaseVersion != cur.Version {
			return errs.StaleVersion(req.Identity, req.BaseVersion, cur.Version)
		}

		base, err := t.Graph(ctx, cur.Concrete)
		if err != nil {
			return err
		}
		g := combine(base, edits, req.Mode)
		g.Add(rdf.S(rdf.IRI(req.Identity), rdf.Type, rdf.Ontology))

		version, err = nextVersion(ctx, t, cur.Version)
		if err != nil {
			return err
		}
		rdf.SetVersionIRI(g, req.Identity, version)

		if dangling := Dangling(base, g, translate.IdentityBase(req.Identity)); len(dangling) > 0 {
			if req.Dangling != DanglingForceClean {
				return errs.DanglingObject(req.Identity, dangling)
			}
			for _, obj := range dangling {
				g.RemoveMatching(rdf.Pattern{Object: rdf.IRI(obj)})
			}
			o.logger.Debug("dangling references stripped", "identity", req.Identity, "objects", len(dangling))
		}

		v, err = o.publish(ctx, t, candidate{
			identity: req.Identity,
			version:  version,
			kind:     model.KindArtifact,
			label:    rdf.LabelOf(g, req.Identity),
			graph:    g,
			resolve:  closure.Options{HonorPins: true, SchemasOnly: true},
		})
		return err
	})
	if err != nil {
		return model.Version{}, fmt.Errorf("update artifact %s: %w", req.Identity, err)
	}
	return v, nil
}

// combine applies edits to base. Merge replaces every subject the edits
// mention; replace discards base entirely.
func combine(base, edits *rdf.Graph, mode Mode) *rdf.Graph {
	if mode != ModeMerge {
		return edits.Clone()
	}
	g := base.Clone()
	for _, s := range edits.Subjects() {
		g.RemoveMatching(rdf.Pattern{Subject: s})
	}
	g.Add(edits.Statements()...)
	return g
}

// nextVersion increments current until it names an unused version.
func nextVersion(ctx context.Context, t *register.Txn, current string) (string, error) {
	next := current
	for i := 0; i < maxVersionProbes; i++ {
		next = translate.IncrementVersion(next)
		e, err := t.Lookup(ctx, next)
		if err != nil {
			return "", err
		}
		if e.Kind == closure.EntryUnknown {
			return next, nil
		}
	}
	return "", errs.VersionExists("", next)
}

// Dangling returns the IRIs under base that were described in before (used
// as a subject), are no longer described in after, and are still referenced
// as objects in after. Sorted.
func Dangling(before, after *rdf.Graph, base string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, st := range after.Statements() {
		obj := st.Object
		if !obj.IsIRI() || !strings.HasPrefix(obj.Value, base) || seen[obj.Value] {
			continue
		}
		seen[obj.Value] = true
		if before.HasSubject(obj) && !after.HasSubject(obj) {
			out = append(out, obj.Value)
		}
	}
	sort.Strings(out)
	return out
}

// DeleteArtifact removes an artifact and all its versions. It returns false
// when the identity was not ACTIVE.
func (o *Orchestrator) DeleteArtifact(ctx context.Context, identity string) (removed bool, err error) {
	start := time.Now()
	defer func() { err = o.finish(OpDeleteArtifact, identity, "", start, err) }()
	return o.remove(ctx, identity, model.KindArtifact)
}

// Unload evicts identity from the working set without touching the store.
// It reports whether anything was cached.
func (o *Orchestrator) Unload(identity string) bool {
	n := o.working.Evict(identity)
	o.logger.Debug("unloaded", "identity", identity, "contexts", n)
	return n > 0
}
