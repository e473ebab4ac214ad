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
	"github.com/roach88/ontoreg/internal/translate"
)

// SchemaOptions configures LoadSchema.
type SchemaOptions struct {
	// VersionHint is used as the version IRI when the graph declares none.
	// A declared owl:versionIRI takes precedence.
	VersionHint string

	// Timeout overrides the orchestrator's default deadline.
	Timeout time.Duration
}

// LoadSchema publishes a schema graph as the new current version of the
// identity it declares.
//
// Imports are resolved by identity: an import naming a version IRI binds to
// that identity's current version. Provisional IRIs, if any, are made
// permanent under the schema's identity.
//
// Errors: EMPTY_ONTOLOGY, INVALID_GRAPH, MISSING_VERSION_IRI,
// VERSION_EXISTS, closure and gate failures, REASONING_TIMEOUT.
func (o *Orchestrator) LoadSchema(ctx context.Context, data []byte, format rdf.Format, opts SchemaOptions) (v model.Version, err error) {
	start := time.Now()
	var identity, version string
	defer func() { err = o.finish(OpLoadSchema, identity, version, start, err) }()

	ctx, cancel := o.deadline(ctx, opts.Timeout)
	defer cancel()

	g, err := parse(data, format)
	if err != nil {
		return model.Version{}, err
	}
	if g.Len() == 0 {
		return model.Version{}, errs.EmptyOntology()
	}

	identity, ok, err := rdf.OntologyIRI(g)
	if err != nil {
		return model.Version{}, errs.InvalidGraph(err, "schema must declare one owl:Ontology")
	}
	if !ok {
		return model.Version{}, errs.InvalidGraph(nil, "schema declares no owl:Ontology")
	}
	if translate.IsProvisional(identity, o.tempPrefix) {
		return model.Version{}, errs.InvalidGraph(nil, "schema identity %s is provisional", identity)
	}

	version, ok = rdf.VersionIRIOf(g, identity)
	switch {
	case ok:
		if opts.VersionHint != "" && opts.VersionHint != version {
			o.logger.Debug("version hint ignored", "identity", identity, "declared", version, "hint", opts.VersionHint)
		}
	case opts.VersionHint != "":
		version = opts.VersionHint
		rdf.SetVersionIRI(g, identity, version)
	default:
		return model.Version{}, errs.MissingVersionIRI(identity)
	}

	if len(translate.Provisional(g, o.tempPrefix)) > 0 {
		g, _ = o.prefix.Rewrite(g, o.tempPrefix, translate.IdentityBase(identity))
	}

	c := candidate{
		identity: identity,
		version:  version,
		kind:     model.KindSchema,
		label:    rdf.LabelOf(g, identity),
		graph:    g,
		resolve:  closure.Options{HonorPins: false},
	}
	err = o.reg.Write(ctx, func(t *register.Txn) error {
		v, err = o.publish(ctx, t, c)
		return err
	})
	if err != nil {
		return model.Version{}, fmt.Errorf("load schema %s: %w", identity, err)
	}
	return v, nil
}

// RemoveSchema removes a schema identity and all its versions. It returns
// false when the identity was not ACTIVE.
//
// Artifacts already bound to the schema keep their recorded bindings; their
// next update reports AMBIGUOUS_IMPORT or UNMANAGED_IMPORT.
func (o *Orchestrator) RemoveSchema(ctx context.Context, identity string) (removed bool, err error) {
	start := time.Now()
	defer func() { err = o.finish(OpRemoveSchema, identity, "", start, err) }()
	return o.remove(ctx, identity, model.KindSchema)
}

// remove retracts identity if it has the expected kind and evicts it from
// the working set once committed.
func (o *Orchestrator) remove(ctx context.Context, identity string, kind model.Kind) (bool, error) {
	var removed bool
	err := o.reg.Write(ctx, func(t *register.Txn) error {
		id, ok, err := t.Identity(ctx, identity)
		if err != nil {
			return err
		}
		if ok && id.Kind != kind {
			return errs.IllegalState(identity, "", "identity is a %s, not a %s", id.Kind, kind)
		}
		removed, err = t.Remove(ctx, identity)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", identity, err)
	}
	if removed {
		o.working.Evict(identity)
	}
	return removed, nil
}
