// Package reasoner is the built-in forward-chaining reasoner.
//
// It covers the RDFS core and a small OWL subset: subclass and subproperty
// hierarchies, domain and range typing, owl:equivalentClass,
// owl:inverseOf, and owl:disjointWith. A graph is inconsistent when an
// individual is typed with two disjoint classes or with owl:Nothing.
//
// The reasoner is deterministic: the same input always yields the same
// closure, which keeps materialization idempotent.
package reasoner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/ontoreg/internal/gate"
	"github.com/roach88/ontoreg/internal/rdf"
)

var (
	subClassOf    = rdf.IRI(rdf.RDFSSubClassOf)
	subPropertyOf = rdf.IRI(rdf.RDFSSubPropertyOf)
	domain        = rdf.IRI(rdf.RDFSDomain)
	rangeOf       = rdf.IRI(rdf.RDFSRange)
	equivalent    = rdf.IRI(rdf.OWLEquivalentClass)
	inverseOf     = rdf.IRI(rdf.OWLInverseOf)
	disjointWith  = rdf.IRI(rdf.OWLDisjointWith)
	nothing       = rdf.IRI(rdf.OWLNothing)
)

// Reasoner implements gate.Reasoner.
type Reasoner struct{}

var _ gate.Reasoner = (*Reasoner)(nil)

// New creates a Reasoner.
func New() *Reasoner {
	return &Reasoner{}
}

// ComputeEntailments returns the deductive closure of g, asserted
// statements included.
func (r *Reasoner) ComputeEntailments(ctx context.Context, g *rdf.Graph) (*rdf.Graph, error) {
	return Closure(ctx, g)
}

// CheckConsistency computes the closure of g and looks for clashes.
func (r *Reasoner) CheckConsistency(ctx context.Context, g *rdf.Graph) (gate.Verdict, error) {
	c, err := Closure(ctx, g)
	if err != nil {
		return gate.Verdict{}, err
	}
	clashes := Clashes(c)
	if len(clashes) == 0 {
		return gate.Verdict{Consistent: true}, nil
	}
	return gate.Verdict{Consistent: false, Explanation: strings.Join(clashes, "; ")}, nil
}

// Closure applies the rules to g until nothing new is derived. g is not
// modified.
func Closure(ctx context.Context, g *rdf.Graph) (*rdf.Graph, error) {
	c := g.Clone()
	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("closure round %d: %w", round, err)
		}
		if c.Add(derive(c)...) == 0 {
			return c, nil
		}
	}
}

// derive returns the statements one application of every rule yields.
func derive(g *rdf.Graph) []rdf.Statement {
	var out []rdf.Statement
	add := func(s, p, o rdf.Term) {
		st := rdf.S(s, p, o)
		if st.Valid() && !g.Has(st) {
			out = append(out, st)
		}
	}

	superClasses := index(g, subClassOf)
	superProps := index(g, subPropertyOf)
	domains := index(g, domain)
	ranges := index(g, rangeOf)
	inverses := index(g, inverseOf)

	// equivalence is mutual subclassing
	for _, st := range g.Match(rdf.Pattern{Predicate: equivalent}) {
		add(st.Subject, subClassOf, st.Object)
		add(st.Object, subClassOf, st.Subject)
	}
	// disjointness and inverses are symmetric
	for _, st := range g.Match(rdf.Pattern{Predicate: disjointWith}) {
		add(st.Object, disjointWith, st.Subject)
	}
	for _, st := range g.Match(rdf.Pattern{Predicate: inverseOf}) {
		add(st.Object, inverseOf, st.Subject)
	}

	// hierarchy transitivity
	for _, st := range g.Match(rdf.Pattern{Predicate: subClassOf}) {
		for _, sup := range superClasses[st.Object] {
			add(st.Subject, subClassOf, sup)
		}
	}
	for _, st := range g.Match(rdf.Pattern{Predicate: subPropertyOf}) {
		for _, sup := range superProps[st.Object] {
			add(st.Subject, subPropertyOf, sup)
		}
	}

	for _, st := range g.Statements() {
		if st.Predicate == rdf.Type {
			for _, sup := range superClasses[st.Object] {
				add(st.Subject, rdf.Type, sup)
			}
			continue
		}
		for _, sup := range superProps[st.Predicate] {
			add(st.Subject, sup, st.Object)
		}
		for _, c := range domains[st.Predicate] {
			add(st.Subject, rdf.Type, c)
		}
		if st.Object.IsResource() {
			for _, c := range ranges[st.Predicate] {
				add(st.Object, rdf.Type, c)
			}
			for _, inv := range inverses[st.Predicate] {
				add(st.Object, inv, st.Subject)
			}
		}
	}
	return out
}

// index maps each subject of predicate p to its objects.
func index(g *rdf.Graph, p rdf.Term) map[rdf.Term][]rdf.Term {
	m := make(map[rdf.Term][]rdf.Term)
	for _, st := range g.Match(rdf.Pattern{Predicate: p}) {
		if st.Object.IsResource() {
			m[st.Subject] = append(m[st.Subject], st.Object)
		}
	}
	return m
}

// Clashes lists every inconsistency in an already-closed graph, sorted.
func Clashes(c *rdf.Graph) []string {
	types := make(map[rdf.Term]map[rdf.Term]bool)
	for _, st := range c.Match(rdf.Pattern{Predicate: rdf.Type}) {
		if types[st.Subject] == nil {
			types[st.Subject] = make(map[rdf.Term]bool)
		}
		types[st.Subject][st.Object] = true
	}

	seen := make(map[string]bool)
	var out []string
	report := func(msg string) {
		if !seen[msg] {
			seen[msg] = true
			out = append(out, msg)
		}
	}

	for x, ts := range types {
		if ts[nothing] {
			report(fmt.Sprintf("%s is an instance of owl:Nothing", x))
		}
	}
	for _, st := range c.Match(rdf.Pattern{Predicate: disjointWith}) {
		a, b := st.Subject, st.Object
		if a.String() > b.String() {
			a, b = b, a
		}
		for x, ts := range types {
			if ts[a] && ts[b] {
				report(fmt.Sprintf("%s is an instance of disjoint classes %s and %s", x, a, b))
			}
		}
	}
	sort.Strings(out)
	return out
}
