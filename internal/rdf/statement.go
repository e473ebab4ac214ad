package rdf

// Statement is an RDF triple.
type Statement struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// S builds a statement. It exists to keep fixtures short.
func S(subject, predicate, object Term) Statement {
	return Statement{Subject: subject, Predicate: predicate, Object: object}
}

// String returns the N-Triples line for st, without the trailing newline.
func (st Statement) String() string {
	return st.Subject.String() + " " + st.Predicate.String() + " " + st.Object.String() + " ."
}

// Valid reports whether st is a well-formed triple.
func (st Statement) Valid() bool {
	return st.Subject.IsResource() && st.Predicate.IsIRI() && st.Object.Kind != KindAny
}

// Pattern selects statements. A zero Term in any position matches anything.
type Pattern struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// Any matches every statement.
var Any = Pattern{}

// Matches reports whether st satisfies p.
func (p Pattern) Matches(st Statement) bool {
	return matchTerm(p.Subject, st.Subject) &&
		matchTerm(p.Predicate, st.Predicate) &&
		matchTerm(p.Object, st.Object)
}

func matchTerm(want, got Term) bool {
	return want.Kind == KindAny || want == got
}
