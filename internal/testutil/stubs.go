package testutil

import (
	"context"
	"sync"

	"github.com/roach88/ontoreg/internal/gate"
	"github.com/roach88/ontoreg/internal/rdf"
)

// StubProfile is a gate.ProfileChecker returning canned results.
type StubProfile struct {
	Violations []gate.Violation
	Err        error

	mu    sync.Mutex
	calls int
}

// CheckProfile implements gate.ProfileChecker.
func (p *StubProfile) CheckProfile(ctx context.Context, g *rdf.Graph) ([]gate.Violation, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.Violations, p.Err
}

// Calls returns how many times CheckProfile ran.
func (p *StubProfile) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// StubReasoner is a gate.Reasoner with scripted answers.
//
// The zero value reports every graph consistent with no entailments.
// Inconsistent makes CheckConsistency fail with Explanation. Entail, when
// set, computes entailments. Block, when non-nil, stalls every call until
// it is closed, ignoring the context the way a real black-box reasoner
// would.
type StubReasoner struct {
	Inconsistent bool
	Explanation  string
	Entail       func(g *rdf.Graph) *rdf.Graph
	Err          error
	Block        chan struct{}

	mu          sync.Mutex
	consistency int
	entailments int
}

var (
	_ gate.Reasoner       = (*StubReasoner)(nil)
	_ gate.ProfileChecker = (*StubProfile)(nil)
)

// CheckConsistency implements gate.Reasoner.
func (r *StubReasoner) CheckConsistency(ctx context.Context, g *rdf.Graph) (gate.Verdict, error) {
	r.mu.Lock()
	r.consistency++
	r.mu.Unlock()
	r.wait()
	if r.Err != nil {
		return gate.Verdict{}, r.Err
	}
	return gate.Verdict{Consistent: !r.Inconsistent, Explanation: r.Explanation}, nil
}

// ComputeEntailments implements gate.Reasoner.
func (r *StubReasoner) ComputeEntailments(ctx context.Context, g *rdf.Graph) (*rdf.Graph, error) {
	r.mu.Lock()
	r.entailments++
	r.mu.Unlock()
	r.wait()
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Entail == nil {
		return rdf.NewGraph(), nil
	}
	return r.Entail(g), nil
}

// ConsistencyCalls returns how many times CheckConsistency ran.
func (r *StubReasoner) ConsistencyCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.consistency
}

// EntailmentCalls returns how many times ComputeEntailments ran.
func (r *StubReasoner) EntailmentCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entailments
}

func (r *StubReasoner) wait() {
	if r.Block != nil {
		<-r.Block
	}
}
