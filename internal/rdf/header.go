package rdf

import (
	"errors"
	"fmt"
)

// ErrMultipleOntologies is returned when a graph declares more than one
// owl:Ontology subject.
var ErrMultipleOntologies = errors.New("graph declares more than one ontology")

// OntologyIRI returns the IRI of the single owl:Ontology declared in g.
// ok is false when g declares none.
func OntologyIRI(g *Graph) (iri string, ok bool, err error) {
	var found []string
	for _, st := range g.Match(Pattern{Predicate: Type, Object: Ontology}) {
		if st.Subject.IsIRI() {
			found = append(found, st.Subject.Value)
		}
	}
	switch len(found) {
	case 0:
		return "", false, nil
	case 1:
		return found[0], true, nil
	default:
		return "", false, fmt.Errorf("%w: %v", ErrMultipleOntologies, found)
	}
}

// VersionIRIOf returns the owl:versionIRI of ontology, if declared.
func VersionIRIOf(g *Graph, ontology string) (string, bool) {
	for _, o := range g.Objects(IRI(ontology), VersionIRI) {
		if o.IsIRI() {
			return o.Value, true
		}
	}
	return "", false
}

// ImportsOf returns the owl:imports targets of ontology in canonical order.
func ImportsOf(g *Graph, ontology string) []string {
	var out []string
	for _, o := range g.Objects(IRI(ontology), Imports) {
		if o.IsIRI() {
			out = append(out, o.Value)
		}
	}
	return out
}

// LabelOf returns the first rdfs:label of ontology, if any.
func LabelOf(g *Graph, ontology string) string {
	for _, o := range g.Objects(IRI(ontology), Label) {
		if o.IsLiteral() {
			return o.Value
		}
	}
	return ""
}

// SetVersionIRI replaces every owl:versionIRI of ontology with version.
func SetVersionIRI(g *Graph, ontology, version string) {
	g.RemoveMatching(Pattern{Subject: IRI(ontology), Predicate: VersionIRI})
	g.Add(S(IRI(ontology), VersionIRI, IRI(version)))
}
