package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/ontoreg/internal/lifecycle"
	"github.com/roach88/ontoreg/internal/model"
)

// AssertionContext provides what assertions evaluate against.
type AssertionContext struct {
	Ctx  context.Context
	Orch *lifecycle.Orchestrator

	// Expand substitutes step bindings. Nil means no substitution.
	Expand func(string) string
}

func (a *AssertionContext) expand(s string) string {
	if a == nil || a.Expand == nil {
		return s
	}
	return a.Expand(s)
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s -> %s\n", ev.Step, ev.Op, ev.Identity, ev.Version, ev.Code)
		}
	}

	return buf.String()
}

// matchesStep reports whether ev ran op and, when code is set, ended with
// code.
func matchesStep(ev TraceEvent, op, code string) bool {
	return ev.Op == op && (code == "" || ev.Code == code)
}

func describeStep(op, code string) string {
	if code == "" {
		return op
	}
	return op + " -> " + code
}

// assertTraceContains checks that some step ran op (with code, if set).
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if matchesStep(ev, a.Op, a.Code) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describeStep(a.Op, a.Code),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceCount checks that exactly a.Count steps ran op (with code, if
// set).
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if matchesStep(ev, a.Op, a.Code) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, describeStep(a.Op, a.Code)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertCurrent checks the identity's current version. An empty expected
// version means the identity has none.
func assertCurrent(actx *AssertionContext, a Assertion) error {
	identity := actx.expand(a.Identity)
	want := actx.expand(a.Version)

	v, ok, err := actx.Orch.Current(actx.Ctx, identity)
	if err != nil {
		return fmt.Errorf("current %s: %w", identity, err)
	}
	got := ""
	if ok {
		got = v.Version
	}
	if got != want {
		return &AssertionError{
			Type:     AssertCurrent,
			Expected: fmt.Sprintf("%s current version %q", identity, want),
			Actual:   fmt.Sprintf("%q", got),
		}
	}
	return nil
}

// assertState checks the identity's lifecycle state.
func assertState(actx *AssertionContext, a Assertion) error {
	identity := actx.expand(a.Identity)
	s, err := actx.Orch.State(actx.Ctx, identity)
	if err != nil {
		return fmt.Errorf("state %s: %w", identity, err)
	}
	if s != model.State(a.State) {
		return &AssertionError{
			Type:     AssertState,
			Expected: fmt.Sprintf("%s in state %s", identity, a.State),
			Actual:   string(s),
		}
	}
	return nil
}

// assertContains checks whether a statement, written as one N-Triples
// line, is in the asserted or inferred graph of a version.
func assertContains(actx *AssertionContext, a Assertion, want bool) error {
	iri := actx.expand(a.IRI)
	stmt := strings.TrimSpace(actx.expand(a.Statement))

	g, err := actx.Orch.Export(actx.Ctx, iri, a.Inferred)
	if err != nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("graph of %s", iri),
			Actual:   err.Error(),
		}
	}

	found := false
	for _, st := range g.Statements() {
		if st.String() == stmt {
			found = true
			break
		}
	}
	if found == want {
		return nil
	}

	where := "asserted"
	if a.Inferred {
		where = "inferred"
	}
	expected := fmt.Sprintf("%s graph of %s to contain %s", where, iri, stmt)
	actual := "absent"
	if !want {
		expected = fmt.Sprintf("%s graph of %s not to contain %s", where, iri, stmt)
		actual = "present"
	}
	return &AssertionError{Type: a.Type, Expected: expected, Actual: actual}
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertCurrent, AssertState, AssertContains, AssertNotContains:
			if actx == nil || actx.Orch == nil {
				err = fmt.Errorf("%s assertion requires an orchestrator", a.Type)
				break
			}
			switch a.Type {
			case AssertCurrent:
				err = assertCurrent(actx, a)
			case AssertState:
				err = assertState(actx, a)
			case AssertContains:
				err = assertContains(actx, a, true)
			default:
				err = assertContains(actx, a, false)
			}
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}
