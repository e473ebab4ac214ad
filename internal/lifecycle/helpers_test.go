package lifecycle

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/ontoreg/internal/errs"
	"github.com/roach88/ontoreg/internal/gate"
	"github.com/roach88/ontoreg/internal/metrics"
	"github.com/roach88/ontoreg/internal/profile"
	"github.com/roach88/ontoreg/internal/rdf"
	"github.com/roach88/ontoreg/internal/reasoner"
	"github.com/roach88/ontoreg/internal/register"
	"github.com/roach88/ontoreg/internal/store"
	"github.com/roach88/ontoreg/internal/testutil"
)

const (
	zoo   = "http://example.org/zoo"
	zooV1 = "http://example.org/zoo/1"
	zooV2 = "http://example.org/zoo/2"
	base  = "https://w3id.org/ontoreg/artifact/"
	tok1  = "00000000-0000-0000-0000-000000000001"
	tok2  = "00000000-0000-0000-0000-000000000002"
)

type fixture struct {
	o       *Orchestrator
	metrics *metrics.Metrics
}

type fixtureOpt func(*fixtureConfig)

type fixtureConfig struct {
	reasoner gate.Reasoner
	profile  gate.ProfileChecker
	opts     []Option
}

func withReasoner(r gate.Reasoner) fixtureOpt {
	return func(c *fixtureConfig) { c.reasoner = r }
}

func withOption(o Option) fixtureOpt {
	return func(c *fixtureConfig) { c.opts = append(c.opts, o) }
}

// newFixture wires an orchestrator over a fresh SQLite store with the
// built-in profile and reasoner and a deterministic minter.
func newFixture(t *testing.T, opts ...fixtureOpt) *fixture {
	t.Helper()
	cfg := fixtureConfig{reasoner: reasoner.New(), profile: profile.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	reg := register.New(s, logger, m)
	g := gate.New(cfg.profile, cfg.reasoner, gate.WithLogger(logger), gate.WithMetrics(m))

	o := New(reg, g, append([]Option{
		WithLogger(logger),
		WithMetrics(m),
		WithMinter(testutil.NewSequenceMinter()),
	}, cfg.opts...)...)
	return &fixture{o: o, metrics: m}
}

func iri(s string) rdf.Term { return rdf.IRI(s) }

// nt serializes statements as N-Triples.
func nt(t *testing.T, stmts ...rdf.Statement) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, rdf.WriteNTriples(&buf, rdf.NewGraph(stmts...)))
	return buf.Bytes()
}

// zooSchema is a small consistent schema: Dog < Mammal < Animal, Dog and
// Cat disjoint.
func zooSchema(version string, extra ...rdf.Statement) []rdf.Statement {
	stmts := []rdf.Statement{
		rdf.S(iri(zoo), rdf.Type, rdf.Ontology),
		rdf.S(iri(zoo+"#Dog"), rdf.Type, iri(rdf.OWLClass)),
		rdf.S(iri(zoo+"#Dog"), iri(rdf.RDFSSubClassOf), iri(zoo+"#Mammal")),
		rdf.S(iri(zoo+"#Mammal"), iri(rdf.RDFSSubClassOf), iri(zoo+"#Animal")),
		rdf.S(iri(zoo+"#Dog"), iri(rdf.OWLDisjointWith), iri(zoo+"#Cat")),
	}
	if version != "" {
		stmts = append(stmts, rdf.S(iri(zoo), rdf.VersionIRI, iri(version)))
	}
	return append(stmts, extra...)
}

func (f *fixture) loadZoo(t *testing.T, version string, extra ...rdf.Statement) {
	t.Helper()
	_, err := f.o.LoadSchema(context.Background(), nt(t, zooSchema(version, extra...)...), rdf.NTriples, SchemaOptions{})
	require.NoError(t, err)
}

// petArtifact is a client graph using provisional IRIs that imports zoo.
func petArtifact(extra ...rdf.Statement) []rdf.Statement {
	stmts := []rdf.Statement{
		rdf.S(iri("urn:temp:onto"), rdf.Type, rdf.Ontology),
		rdf.S(iri("urn:temp:onto"), rdf.Imports, iri(zoo)),
		rdf.S(iri("urn:temp:onto"), rdf.Label, rdf.Literal("pets")),
		rdf.S(iri("urn:temp:rex"), rdf.Type, iri(zoo+"#Dog")),
	}
	return append(stmts, extra...)
}

func requireCode(t *testing.T, err error, code errs.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, errs.CodeOf(err), "error: %v", err)
}
