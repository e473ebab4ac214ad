package rdf

import "sort"

// Graph is an unordered set of statements. Methods that return statements
// return them in canonical order (sorted by N-Triples line).
//
// The zero value is not usable; use NewGraph. A nil *Graph reads as empty.
type Graph struct {
	set map[Statement]struct{}
}

// NewGraph returns a graph holding stmts.
func NewGraph(stmts ...Statement) *Graph {
	g := &Graph{set: make(map[Statement]struct{}, len(stmts))}
	g.Add(stmts...)
	return g
}

// Add inserts statements and returns how many were new.
func (g *Graph) Add(stmts ...Statement) int {
	added := 0
	for _, st := range stmts {
		if _, ok := g.set[st]; ok {
			continue
		}
		g.set[st] = struct{}{}
		added++
	}
	return added
}

// Remove deletes statements and returns how many were present.
func (g *Graph) Remove(stmts ...Statement) int {
	removed := 0
	for _, st := range stmts {
		if _, ok := g.set[st]; ok {
			delete(g.set, st)
			removed++
		}
	}
	return removed
}

// RemoveMatching deletes every statement matching p.
func (g *Graph) RemoveMatching(p Pattern) int {
	return g.Remove(g.Match(p)...)
}

// Has reports whether st is in g.
func (g *Graph) Has(st Statement) bool {
	if g == nil {
		return false
	}
	_, ok := g.set[st]
	return ok
}

// Len returns the number of statements.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.set)
}

// Statements returns all statements in canonical order.
func (g *Graph) Statements() []Statement {
	return g.Match(Any)
}

// Match returns the statements matching p in canonical order.
func (g *Graph) Match(p Pattern) []Statement {
	if g == nil {
		return []Statement{}
	}
	out := make([]Statement, 0)
	for st := range g.set {
		if p.Matches(st) {
			out = append(out, st)
		}
	}
	sortStatements(out)
	return out
}

// Objects returns the objects of statements matching (subject, predicate, *).
func (g *Graph) Objects(subject, predicate Term) []Term {
	stmts := g.Match(Pattern{Subject: subject, Predicate: predicate})
	out := make([]Term, 0, len(stmts))
	for _, st := range stmts {
		out = append(out, st.Object)
	}
	return out
}

// Subjects returns the distinct subjects of g in canonical order.
func (g *Graph) Subjects() []Term {
	if g == nil {
		return []Term{}
	}
	seen := make(map[Term]struct{})
	for st := range g.set {
		seen[st.Subject] = struct{}{}
	}
	out := make([]Term, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// HasSubject reports whether t appears as the subject of any statement.
func (g *Graph) HasSubject(t Term) bool {
	if g == nil {
		return false
	}
	for st := range g.set {
		if st.Subject == t {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of g.
func (g *Graph) Clone() *Graph {
	c := NewGraph()
	if g == nil {
		return c
	}
	for st := range g.set {
		c.set[st] = struct{}{}
	}
	return c
}

// Union returns a new graph holding the statements of g and others.
func (g *Graph) Union(others ...*Graph) *Graph {
	u := g.Clone()
	for _, o := range others {
		if o == nil {
			continue
		}
		for st := range o.set {
			u.set[st] = struct{}{}
		}
	}
	return u
}

// Minus returns a new graph holding the statements of g absent from other.
func (g *Graph) Minus(other *Graph) *Graph {
	d := NewGraph()
	if g == nil {
		return d
	}
	for st := range g.set {
		if !other.Has(st) {
			d.set[st] = struct{}{}
		}
	}
	return d
}

// Equal reports whether g and other hold the same statements.
func (g *Graph) Equal(other *Graph) bool {
	if g.Len() != other.Len() {
		return false
	}
	if g == nil {
		return true
	}
	for st := range g.set {
		if !other.Has(st) {
			return false
		}
	}
	return true
}

func sortStatements(stmts []Statement) {
	sort.Slice(stmts, func(i, j int) bool {
		return stmts[i].String() < stmts[j].String()
	})
}
