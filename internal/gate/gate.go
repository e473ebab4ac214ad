// Package gate validates candidate graphs against the profile checker and
// the reasoner before they may be published.
//
// Both collaborators are black boxes reached through ProfileChecker and
// Reasoner. Calls into them are synchronous and uncancelable, so the gate
// runs each on its own goroutine and abandons it when the caller's deadline
// passes, reporting REASONING_TIMEOUT.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/ontoreg/internal/errs"
	"github.com/roach88/ontoreg/internal/metrics"
	"github.com/roach88/ontoreg/internal/rdf"
)

// Violation is one profile-checker finding.
type Violation struct {
	Rule    string `json:"rule" yaml:"rule"`
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// String renders the violation on one line.
func (v Violation) String() string {
	if v.Subject == "" {
		return v.Rule + ": " + v.Message
	}
	return v.Rule + ": " + v.Subject + ": " + v.Message
}

// Verdict is the reasoner's answer to a consistency check.
type Verdict struct {
	Consistent  bool
	Explanation string
}

// ProfileChecker decides whether a graph stays within the supported
// language profile. A nil or empty result means in-profile.
type ProfileChecker interface {
	CheckProfile(ctx context.Context, g *rdf.Graph) ([]Violation, error)
}

// Reasoner checks consistency and computes entailments.
type Reasoner interface {
	CheckConsistency(ctx context.Context, g *rdf.Graph) (Verdict, error)

	// ComputeEntailments returns every statement entailed by g. It may
	// include statements already asserted in g.
	ComputeEntailments(ctx context.Context, g *rdf.Graph) (*rdf.Graph, error)
}

// Call names used in errors, logs, and metrics.
const (
	CallCheckProfile       = "checkProfile"
	CallCheckConsistency   = "checkConsistency"
	CallComputeEntailments = "computeEntailments"
)

// Gate runs the profile and consistency checks.
type Gate struct {
	profile  ProfileChecker
	reasoner Reasoner
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger. Nil means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithMetrics records call durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// New creates a Gate.
func New(profile ProfileChecker, reasoner Reasoner, opts ...Option) *Gate {
	g := &Gate{
		profile:  profile,
		reasoner: reasoner,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Session carries the state of a successful check to the materializer.
type Session struct {
	// Candidate is the graph being published.
	Candidate *rdf.Graph

	// Imports is the union of the import closure's concrete and inferred
	// contexts.
	Imports *rdf.Graph

	// Union is Candidate plus Imports, the graph the reasoner judged.
	Union *rdf.Graph

	gate *Gate
}

// Check validates candidate against the closure graph imports.
//
// An empty candidate fails with EMPTY_ONTOLOGY before either collaborator is
// called. The profile is checked on the candidate alone, consistency on the
// union with imports. Check never touches the store.
func (g *Gate) Check(ctx context.Context, candidate, imports *rdf.Graph) (*Session, error) {
	if candidate.Len() == 0 {
		return nil, errs.EmptyOntology()
	}

	violations, err := invoke(ctx, g, CallCheckProfile, func(ctx context.Context) ([]Violation, error) {
		return g.profile.CheckProfile(ctx, candidate)
	})
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		lines := make([]string, len(violations))
		for i, v := range violations {
			lines[i] = v.String()
		}
		return nil, errs.ProfileViolation(lines)
	}

	union := candidate.Union(imports)
	verdict, err := invoke(ctx, g, CallCheckConsistency, func(ctx context.Context) (Verdict, error) {
		return g.reasoner.CheckConsistency(ctx, union)
	})
	if err != nil {
		return nil, err
	}
	if !verdict.Consistent {
		return nil, errs.InconsistentOntology(verdict.Explanation)
	}

	return &Session{
		Candidate: candidate,
		Imports:   imports,
		Union:     union,
		gate:      g,
	}, nil
}

// Entailments asks the reasoner for the union's entailments under the same
// deadline rules as Check.
func (s *Session) Entailments(ctx context.Context) (*rdf.Graph, error) {
	return invoke(ctx, s.gate, CallComputeEntailments, func(ctx context.Context) (*rdf.Graph, error) {
		return s.gate.reasoner.ComputeEntailments(ctx, s.Union)
	})
}

// Asserted returns every statement asserted in the candidate or its closure.
func (s *Session) Asserted() *rdf.Graph {
	return s.Union
}

// invoke runs fn on its own goroutine and waits for it or for ctx.
func invoke[T any](ctx context.Context, g *Gate, call string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()

	if err := ctx.Err(); err != nil {
		g.observe(call, "timeout", start)
		return zero, classify(call, err)
	}

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		val, err := fn(ctx)
		done <- result{val: val, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				g.observe(call, "timeout", start)
				return zero, errs.ReasoningTimeout(call, r.err)
			}
			g.observe(call, "error", start)
			return zero, fmt.Errorf("%s: %w", call, r.err)
		}
		g.observe(call, "ok", start)
		return r.val, nil
	case <-ctx.Done():
		g.observe(call, "timeout", start)
		g.logger.Warn("abandoning external call", "call", call, "elapsed", time.Since(start))
		return zero, classify(call, ctx.Err())
	}
}

func classify(call string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.ReasoningTimeout(call, err)
	}
	return fmt.Errorf("%s: %w", call, err)
}

func (g *Gate) observe(call, outcome string, start time.Time) {
	elapsed := time.Since(start)
	g.metrics.RecordReasoning(call, outcome, elapsed)
	g.logger.Debug("external call", "call", call, "outcome", outcome, "elapsed", elapsed)
}
