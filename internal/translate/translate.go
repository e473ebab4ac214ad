package translate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/ontoreg/internal/rdf"
	"github.com/roach88/ontoreg/internal/store"
)

// Match selects how an IRI is compared against the translation source.
type Match string

const (
	// MatchPrefix rewrites every IRI starting with the source, keeping the
	// remainder: from+rest becomes to+rest. This is the default.
	MatchPrefix Match = "prefix"

	// MatchExact rewrites only IRIs equal to the source.
	MatchExact Match = "exact"
)

// ValidateMatch checks that m is a known match mode. Empty defaults to prefix.
func ValidateMatch(m Match) error {
	switch m {
	case MatchPrefix, MatchExact, "":
		return nil
	default:
		return fmt.Errorf("invalid match mode %q: must be prefix or exact", m)
	}
}

// RoleOptions controls translation for one statement position.
type RoleOptions struct {
	// Translate enables rewriting in this position.
	Translate bool

	// Match selects prefix or exact comparison.
	Match Match

	// DeleteOriginal removes the provisional statement after its translated
	// replacement is written. When false both statements are kept.
	DeleteOriginal bool
}

// Options configures a Translator per statement position.
type Options struct {
	Subject   RoleOptions
	Predicate RoleOptions
	Object    RoleOptions
}

// DefaultOptions translates every position by prefix and drops originals.
func DefaultOptions() Options {
	role := RoleOptions{Translate: true, Match: MatchPrefix, DeleteOriginal: true}
	return Options{Subject: role, Predicate: role, Object: role}
}

// ExactOptions translates every position by exact match and drops originals.
func ExactOptions() Options {
	role := RoleOptions{Translate: true, Match: MatchExact, DeleteOriginal: true}
	return Options{Subject: role, Predicate: role, Object: role}
}

// Translator rewrites provisional IRIs.
type Translator struct {
	opts Options
}

// New creates a Translator.
func New(opts Options) (*Translator, error) {
	for _, r := range []RoleOptions{opts.Subject, opts.Predicate, opts.Object} {
		if err := ValidateMatch(r.Match); err != nil {
			return nil, err
		}
	}
	return &Translator{opts: opts}, nil
}

// Rewrite returns a copy of g with every matching IRI mapped from from to to.
// Statements without a matching IRI are preserved unchanged. The second
// result is the number of statements that were rewritten.
//
// Roles are processed subject, then predicate, then object. Each pass sees
// the output of the previous one, so a statement kept by one role's
// DeleteOriginal=false is still translated by later roles.
func (t *Translator) Rewrite(g *rdf.Graph, from, to string) (*rdf.Graph, int) {
	out := g.Clone()
	if from == "" {
		return out, 0
	}

	total := 0
	for _, pass := range t.passes() {
		if !pass.opts.Translate {
			continue
		}
		for _, st := range out.Statements() {
			term := pass.get(st)
			mapped, ok := mapTerm(term, pass.opts.Match, from, to)
			if !ok {
				continue
			}
			if pass.opts.DeleteOriginal {
				out.Remove(st)
			}
			out.Add(pass.set(st, mapped))
			total++
		}
	}
	return out, total
}

// Apply rewrites the named graph in place inside the caller's transaction.
// It neither commits nor rolls back. Returns the number of statements
// rewritten.
func (t *Translator) Apply(ctx context.Context, tx *store.Tx, graph, from, to string) (int, error) {
	before, err := tx.Graph(ctx, graph)
	if err != nil {
		return 0, fmt.Errorf("translate %s: %w", graph, err)
	}

	after, n := t.Rewrite(before, from, to)
	if n == 0 {
		return 0, nil
	}

	for _, st := range before.Minus(after).Statements() {
		if _, err := tx.Remove(ctx, graph, rdf.Pattern{Subject: st.Subject, Predicate: st.Predicate, Object: st.Object}); err != nil {
			return 0, fmt.Errorf("translate %s: %w", graph, err)
		}
	}
	if _, err := tx.Add(ctx, graph, after.Minus(before).Statements()...); err != nil {
		return 0, fmt.Errorf("translate %s: %w", graph, err)
	}
	return n, nil
}

type rolePass struct {
	opts RoleOptions
	get  func(rdf.Statement) rdf.Term
	set  func(rdf.Statement, rdf.Term) rdf.Statement
}

func (t *Translator) passes() []rolePass {
	return []rolePass{
		{
			opts: t.opts.Subject,
			get:  func(st rdf.Statement) rdf.Term { return st.Subject },
			set:  func(st rdf.Statement, v rdf.Term) rdf.Statement { st.Subject = v; return st },
		},
		{
			opts: t.opts.Predicate,
			get:  func(st rdf.Statement) rdf.Term { return st.Predicate },
			set:  func(st rdf.Statement, v rdf.Term) rdf.Statement { st.Predicate = v; return st },
		},
		{
			opts: t.opts.Object,
			get:  func(st rdf.Statement) rdf.Term { return st.Object },
			set:  func(st rdf.Statement, v rdf.Term) rdf.Statement { st.Object = v; return st },
		},
	}
}

// mapTerm maps one IRI term. Literals and blank nodes never match.
func mapTerm(term rdf.Term, match Match, from, to string) (rdf.Term, bool) {
	if !term.IsIRI() {
		return term, false
	}
	switch match {
	case MatchExact:
		if term.Value != from {
			return term, false
		}
		return rdf.IRI(to), true
	default:
		if !strings.HasPrefix(term.Value, from) {
			return term, false
		}
		return rdf.IRI(to + term.Value[len(from):]), true
	}
}

// IsProvisional reports whether iri lies under the temporary prefix.
func IsProvisional(iri, prefix string) bool {
	return prefix != "" && strings.HasPrefix(iri, prefix)
}

// Provisional returns every distinct IRI in g that lies under prefix, in
// sorted order.
func Provisional(g *rdf.Graph, prefix string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, st := range g.Statements() {
		for _, term := range []rdf.Term{st.Subject, st.Predicate, st.Object} {
			if !term.IsIRI() || !IsProvisional(term.Value, prefix) {
				continue
			}
			if _, ok := seen[term.Value]; ok {
				continue
			}
			seen[term.Value] = struct{}{}
			out = append(out, term.Value)
		}
	}
	sort.Strings(out)
	return out
}
