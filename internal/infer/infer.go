// Package infer materializes entailed statements into inferred contexts.
//
// Each published Version owns at most one inferred context, named from its
// version IRI. The context holds exactly the entailments of the Version's
// union graph that are not asserted anywhere in that union.
package infer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/ontoreg/internal/gate"
	"github.com/roach88/ontoreg/internal/metrics"
	"github.com/roach88/ontoreg/internal/rdf"
	"github.com/roach88/ontoreg/internal/store"
)

// ContextPrefix prefixes every inferred context name.
const ContextPrefix = "urn:ontoreg:inferred:"

// ContextFor returns the inferred context name bound to a version IRI.
func ContextFor(version string) string {
	return ContextPrefix + version
}

// Result describes one materialization.
type Result struct {
	// Context is the inferred context name.
	Context string

	// Created is false when the context already existed and nothing was
	// written.
	Created bool

	// Statements is the number of statements in the context.
	Statements int
}

// Materializer writes entailment deltas.
type Materializer struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a Materializer. A nil logger means slog.Default().
func New(logger *slog.Logger, m *metrics.Metrics) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{logger: logger, metrics: m}
}

// Materialize computes the session's entailment delta and writes it into
// the inferred context of version, inside the caller's transaction.
//
// If the context already exists the call is a no-op returning the existing
// reference, so repeating it never duplicates statements.
func (m *Materializer) Materialize(ctx context.Context, tx *store.Tx, s *gate.Session, version string) (Result, error) {
	name := ContextFor(version)

	exists, err := tx.HasContext(ctx, name)
	if err != nil {
		return Result{}, fmt.Errorf("materialize %s: %w", version, err)
	}
	if exists {
		n, err := tx.Size(ctx, name)
		if err != nil {
			return Result{}, fmt.Errorf("materialize %s: %w", version, err)
		}
		m.logger.Debug("inferred context exists", "version", version, "context", name)
		return Result{Context: name, Created: false, Statements: n}, nil
	}

	entailed, err := s.Entailments(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("materialize %s: %w", version, err)
	}
	delta := Delta(entailed, s.Asserted())

	if _, err := tx.CreateContext(ctx, name); err != nil {
		return Result{}, fmt.Errorf("materialize %s: %w", version, err)
	}
	added, err := tx.AddGraph(ctx, name, delta)
	if err != nil {
		return Result{}, fmt.Errorf("materialize %s: %w", version, err)
	}

	m.metrics.RecordInferred(added)
	m.logger.Debug("materialized", "version", version, "context", name, "statements", added)
	return Result{Context: name, Created: true, Statements: added}, nil
}

// Delta returns the well-formed statements of entailed that are not in
// asserted.
func Delta(entailed, asserted *rdf.Graph) *rdf.Graph {
	out := rdf.NewGraph()
	for _, st := range entailed.Minus(asserted).Statements() {
		if st.Valid() {
			out.Add(st)
		}
	}
	return out
}
