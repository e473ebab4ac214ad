package lifecycle

import (
	"context"
	"fmt"

	"github.com/roach88/ontoreg/internal/closure"
	"github.com/roach88/ontoreg/internal/errs"
	"github.com/roach88/ontoreg/internal/model"
	"github.com/roach88/ontoreg/internal/rdf"
	"github.com/roach88/ontoreg/internal/register"
)

// candidate is a normalized graph ready for the publish pipeline.
type candidate struct {
	identity string
	version  string
	kind     model.Kind
	label    string
	graph    *rdf.Graph
	resolve  closure.Options
}

// publish runs resolve -> gate -> stage -> materialize -> publish inside t.
func (o *Orchestrator) publish(ctx context.Context, t *register.Txn, c candidate) (model.Version, error) {
	opts := c.resolve
	opts.Self = c.identity

	cl, err := closure.Resolve(ctx, t, rdf.ImportsOf(c.graph, c.identity), opts)
	if err != nil {
		return model.Version{}, err
	}
	imports, err := o.closureGraph(ctx, t, cl)
	if err != nil {
		return model.Version{}, err
	}

	session, err := o.gate.Check(ctx, c.graph, imports)
	if err != nil {
		return model.Version{}, err
	}

	staged, err := t.Stage(ctx, register.Staged{
		Identity: c.identity,
		Kind:     c.kind,
		Version:  c.version,
		Label:    c.label,
		Graph:    c.graph,
		Imports:  cl.Refs(),
		Hash:     rdf.Hash(c.graph),
	})
	if err != nil {
		return model.Version{}, err
	}
	if err := t.SetStatus(ctx, staged.Version, model.StatusConsistent); err != nil {
		return model.Version{}, err
	}

	res, err := o.materializer.Materialize(ctx, t.Store(), session, staged.Version)
	if err != nil {
		return model.Version{}, err
	}
	if err := t.SetInferred(ctx, staged.Version, res.Context); err != nil {
		return model.Version{}, err
	}

	o.logger.Debug("gate passed",
		"identity", c.identity,
		"version", c.version,
		"imports", len(cl.All),
		"inferred", res.Statements,
	)
	return t.Publish(ctx, staged.Version)
}

// closureGraph unions the concrete and inferred contexts of every version in
// cl.
func (o *Orchestrator) closureGraph(ctx context.Context, t *register.Txn, cl closure.Closure) (*rdf.Graph, error) {
	out := rdf.NewGraph()
	for _, v := range cl.All {
		for _, name := range v.Contexts() {
			g, err := o.working.load(ctx, t, v.Identity, name)
			if err != nil {
				return nil, fmt.Errorf("load closure %s: %w", v.Ref(), err)
			}
			out.Add(g.Statements()...)
		}
	}
	return out, nil
}

// parse decodes data, salting blank nodes by content so separately loaded
// graphs never share them.
func parse(data []byte, format rdf.Format) (*rdf.Graph, error) {
	g, err := rdf.ParseBytes(data, format, rdf.Salt(string(data)))
	if err != nil {
		return nil, errs.InvalidGraph(err, "cannot parse %s input", format)
	}
	return g, nil
}
