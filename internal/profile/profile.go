// Package profile implements the profile checker from a CUE document.
//
// A profile document has a single top-level "profile" field conforming to
// #Profile in schema.cue:
//
//	profile: {
//		name: "strict"
//		requireOntologyDeclaration: true
//		maxStatements: 100000
//		forbiddenPredicates: ["http://www.w3.org/2002/07/owl#unionOf"]
//		forbiddenTypes: []
//	}
//
// Unknown fields are rejected. Omitted fields take the #Profile defaults.
package profile

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/ontoreg/internal/gate"
	"github.com/roach88/ontoreg/internal/rdf"
)

//go:embed schema.cue
var schemaCUE string

//go:embed default.cue
var defaultCUE []byte

// Rule names reported in violations.
const (
	RuleOntologyDeclaration = "requireOntologyDeclaration"
	RuleMaxStatements       = "maxStatements"
	RuleForbiddenPredicate  = "forbiddenPredicates"
	RuleForbiddenType       = "forbiddenTypes"
)

// Rules is a compiled profile.
type Rules struct {
	Name                       string
	RequireOntologyDeclaration bool
	MaxStatements              int64
	ForbiddenPredicates        []string
	ForbiddenTypes             []string
}

// Default returns the built-in profile.
func Default() *Checker {
	c, err := Parse(defaultCUE, "default.cue")
	if err != nil {
		panic(fmt.Sprintf("built-in profile does not compile: %v", err))
	}
	return c
}

// Load compiles the profile document at path.
func Load(path string) (*Checker, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return Parse(src, path)
}

// Parse compiles a profile document.
func Parse(src []byte, filename string) (*Checker, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile profile schema: %w", err)
	}

	doc := ctx.CompileBytes(src, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return nil, fmt.Errorf("compile profile %s: %w", filename, err)
	}

	pv := doc.LookupPath(cue.ParsePath("profile"))
	if !pv.Exists() {
		return nil, fmt.Errorf("profile %s: missing top-level profile field", filename)
	}

	v := schema.LookupPath(cue.ParsePath("#Profile")).Unify(pv)
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", filename, err)
	}

	var rules Rules
	var err error
	if rules.Name, err = stringField(v, "name"); err != nil {
		return nil, err
	}
	if rules.RequireOntologyDeclaration, err = boolField(v, "requireOntologyDeclaration"); err != nil {
		return nil, err
	}
	if rules.MaxStatements, err = intField(v, "maxStatements"); err != nil {
		return nil, err
	}
	if rules.ForbiddenPredicates, err = stringsField(v, "forbiddenPredicates"); err != nil {
		return nil, err
	}
	if rules.ForbiddenTypes, err = stringsField(v, "forbiddenTypes"); err != nil {
		return nil, err
	}
	return New(rules), nil
}

func field(v cue.Value, name string) cue.Value {
	f := v.LookupPath(cue.ParsePath(name))
	if d, ok := f.Default(); ok {
		return d
	}
	return f
}

func stringField(v cue.Value, name string) (string, error) {
	s, err := field(v, name).String()
	if err != nil {
		return "", fmt.Errorf("profile field %s: %w", name, err)
	}
	return s, nil
}

func boolField(v cue.Value, name string) (bool, error) {
	b, err := field(v, name).Bool()
	if err != nil {
		return false, fmt.Errorf("profile field %s: %w", name, err)
	}
	return b, nil
}

func intField(v cue.Value, name string) (int64, error) {
	n, err := field(v, name).Int64()
	if err != nil {
		return 0, fmt.Errorf("profile field %s: %w", name, err)
	}
	return n, nil
}

func stringsField(v cue.Value, name string) ([]string, error) {
	iter, err := field(v, name).List()
	if err != nil {
		return nil, fmt.Errorf("profile field %s: %w", name, err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, fmt.Errorf("profile field %s[%d]: %w", name, len(out), err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Checker implements gate.ProfileChecker.
type Checker struct {
	rules      Rules
	predicates map[string]bool
	types      map[string]bool
}

var _ gate.ProfileChecker = (*Checker)(nil)

// New creates a Checker from compiled rules.
func New(rules Rules) *Checker {
	c := &Checker{
		rules:      rules,
		predicates: make(map[string]bool, len(rules.ForbiddenPredicates)),
		types:      make(map[string]bool, len(rules.ForbiddenTypes)),
	}
	for _, p := range rules.ForbiddenPredicates {
		c.predicates[p] = true
	}
	for _, t := range rules.ForbiddenTypes {
		c.types[t] = true
	}
	return c
}

// Rules returns the compiled rules.
func (c *Checker) Rules() Rules {
	return c.rules
}

// CheckProfile reports every rule g breaks, in statement order.
func (c *Checker) CheckProfile(ctx context.Context, g *rdf.Graph) ([]gate.Violation, error) {
	var out []gate.Violation

	if c.rules.RequireOntologyDeclaration {
		if _, ok, err := rdf.OntologyIRI(g); err != nil {
			out = append(out, gate.Violation{Rule: RuleOntologyDeclaration, Message: err.Error()})
		} else if !ok {
			out = append(out, gate.Violation{Rule: RuleOntologyDeclaration, Message: "graph declares no owl:Ontology"})
		}
	}

	if c.rules.MaxStatements > 0 && int64(g.Len()) > c.rules.MaxStatements {
		out = append(out, gate.Violation{
			Rule:    RuleMaxStatements,
			Message: fmt.Sprintf("graph has %d statements, limit is %d", g.Len(), c.rules.MaxStatements),
		})
	}

	for _, st := range g.Statements() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.predicates[st.Predicate.Value] {
			out = append(out, gate.Violation{
				Rule:    RuleForbiddenPredicate,
				Subject: st.Subject.Value,
				Message: "uses " + st.Predicate.String(),
			})
		}
		if st.Predicate == rdf.Type && st.Object.IsIRI() && c.types[st.Object.Value] {
			out = append(out, gate.Violation{
				Rule:    RuleForbiddenType,
				Subject: st.Subject.Value,
				Message: "typed " + st.Object.String(),
			})
		}
	}
	return out, nil
}
