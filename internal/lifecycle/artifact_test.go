package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ontoreg/internal/errs"
	"github.com/roach88/ontoreg/internal/model"
	"github.com/roach88/ontoreg/internal/rdf"
	"github.com/roach88/ontoreg/internal/testutil"
)

const (
	pet   = base + tok1
	petV1 = pet + "/version%3A1"
	petV2 = pet + "/version%3A2"
)

func (f *fixture) loadPet(t *testing.T, extra ...rdf.Statement) model.Version {
	t.Helper()
	v, err := f.o.LoadArtifact(context.Background(), nt(t, petArtifact(extra...)...), rdf.NTriples, ArtifactOptions{})
	require.NoError(t, err)
	return v
}

func TestLoadArtifact_MintsAndTranslates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.loadZoo(t, zooV1)

	v := f.loadPet(t)
	assert.Equal(t, pet, v.Identity)
	assert.Equal(t, petV1, v.Version)
	assert.Equal(t, model.KindArtifact, v.Kind)
	assert.Equal(t, "pets", v.Label)
	assert.Equal(t, []model.Ref{{Identity: zoo, Version: zooV1}}, v.Imports)

	g, err := f.o.Export(ctx, pet, false)
	require.NoError(t, err)
	assert.True(t, g.Has(rdf.S(iri(pet+"#rex"), rdf.Type, iri(zoo+"#Dog"))))
	assert.True(t, g.Has(rdf.S(iri(pet), rdf.VersionIRI, iri(petV1))))
	assert.True(t, g.Has(rdf.S(iri(pet), rdf.Imports, iri(zoo))))
	for _, st := range g.Statements() {
		assert.NotContains(t, st.String(), "urn:temp:")
	}

	inferred, err := f.o.Export(ctx, petV1, true)
	require.NoError(t, err)
	assert.True(t, inferred.Has(rdf.S(iri(pet+"#rex"), rdf.Type, iri(zoo+"#Mammal"))))
	assert.True(t, inferred.Has(rdf.S(iri(pet+"#rex"), rdf.Type, iri(zoo+"#Animal"))))
	assert.False(t, inferred.Has(rdf.S(iri(zoo+"#Dog"), iri(rdf.RDFSSubClassOf), iri(zoo+"#Animal"))),
		"entailments already in the closure are not repeated")
}

func TestLoadArtifact_DeclaresMissingOntology(t *testing.T) {
	f := newFixture(t)

	v, err := f.o.LoadArtifact(context.Background(), nt(t,
		rdf.S(iri("urn:temp:rex"), rdf.Label, rdf.Literal("Rex")),
	), rdf.NTriples, ArtifactOptions{})
	require.NoError(t, err)
	assert.Equal(t, pet, v.Identity)

	g, err := f.o.Export(context.Background(), pet, false)
	require.NoError(t, err)
	assert.True(t, g.Has(rdf.S(iri(pet), rdf.Type, rdf.Ontology)))
}

func TestLoadArtifact_Errors(t *testing.T) {
	tests := []struct {
		name  string
		stmts []rdf.Statement
		code  errs.Code
	}{
		{"empty", nil, errs.CodeEmptyOntology},
		{"permanent ontology", []rdf.Statement{
			rdf.S(iri("http://example.org/mine"), rdf.Type, rdf.Ontology),
		}, errs.CodeInvalidGraph},
		{"unmanaged import", petArtifact(
			rdf.S(iri("urn:temp:onto"), rdf.Imports, iri("http://example.org/nowhere")),
		), errs.CodeUnmanagedImport},
		{"inconsistent", petArtifact(
			rdf.S(iri("urn:temp:rex"), rdf.Type, iri(zoo+"#Cat")),
		), errs.CodeInconsistentOntology},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.loadZoo(t, zooV1)

			_, err := f.o.LoadArtifact(context.Background(), nt(t, tt.stmts...), rdf.NTriples, ArtifactOptions{})
			requireCode(t, err, tt.code)

			ids, err := f.o.Identities(context.Background(), model.KindArtifact)
			require.NoError(t, err)
			assert.Empty(t, ids)
		})
	}
}

func TestLoadArtifact_OnlyImportsSchemas(t *testing.T) {
	f := newFixture(t)
	f.loadZoo(t, zooV1)
	f.loadPet(t)

	_, err := f.o.LoadArtifact(context.Background(), nt(t,
		rdf.S(iri("urn:temp:onto"), rdf.Type, rdf.Ontology),
		rdf.S(iri("urn:temp:onto"), rdf.Imports, iri(pet)),
	), rdf.NTriples, ArtifactOptions{})
	requireCode(t, err, errs.CodeIllegalImport)
}

func TestLoadArtifact_DuplicateIdentity(t *testing.T) {
	f := newFixture(t, withOption(WithMinter(testutil.NewFixedMinter(tok1))))
	f.loadZoo(t, zooV1)
	f.loadPet(t)

	_, err := f.o.LoadArtifact(context.Background(), nt(t, petArtifact()...), rdf.NTriples, ArtifactOptions{})
	requireCode(t, err, errs.CodeDuplicateIdentity)
}

func TestLoadArtifact_PinnedImport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.loadZoo(t, zooV1)
	f.loadZoo(t, zooV2)

	v, err := f.o.LoadArtifact(ctx, nt(t,
		rdf.S(iri("urn:temp:onto"), rdf.Type, rdf.Ontology),
		rdf.S(iri("urn:temp:onto"), rdf.Imports, iri(zooV1)),
	), rdf.NTriples, ArtifactOptions{})
	require.NoError(t, err)
	assert.Equal(t, []model.Ref{{Identity: zoo, Version: zooV1}}, v.Imports)

	// zoo v1 has a dependent and survives garbage collection
	pruned, err := f.o.Prune(ctx, zoo)
	require.NoError(t, err)
	assert.Empty(t, pruned)
}

func TestLoadArtifact_PinnedImportOfPrunedVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.loadZoo(t, zooV1)
	f.loadZoo(t, zooV2)

	pruned, err := f.o.Prune(ctx, zoo)
	require.NoError(t, err)
	assert.Equal(t, []string{zooV1}, pruned)

	_, err = f.o.LoadArtifact(ctx, nt(t,
		rdf.S(iri("urn:temp:onto"), rdf.Type, rdf.Ontology),
		rdf.S(iri("urn:temp:onto"), rdf.Imports, iri(zooV1)),
	), rdf.NTriples, ArtifactOptions{})
	requireCode(t, err, errs.CodeAmbiguousImport)
}

// A published artifact stays bound to the schema version it was checked
// against when the schema moves on.
func TestScenario_SchemaEvolutionKeepsArtifactBinding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.loadZoo(t, zooV1)
	cur, ok, err := f.o.Current(ctx, zoo)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, zooV1, cur.Version)

	f.loadPet(t)
	cl, err := f.o.Closure(ctx, pet)
	require.NoError(t, err)
	require.Len(t, cl.All, 1)
	assert.Equal(t, zooV1, cl.All[0].Version)

	// v2 makes every Dog a Cat, which the disjointness forbids for rex
	f.loadZoo(t, zooV2, rdf.S(iri(zoo+"#Dog"), iri(rdf.RDFSSubClassOf), iri(zoo+"#Cat")))
	cur, _, err = f.o.Current(ctx, zoo)
	require.NoError(t, err)
	assert.Equal(t, zooV2, cur.Version)

	art, ok, err := f.o.Current(ctx, pet)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, petV1, art.Version)
	assert.Equal(t, []model.Ref{{Identity: zoo, Version: zooV1}}, art.Imports)

	cl, err = f.o.Closure(ctx, pet)
	require.NoError(t, err)
	require.Len(t, cl.All, 1)
	assert.Equal(t, zooV1, cl.All[0].Version)

	// an update rebinds to the current schema and is judged against it
	_, err = f.o.UpdateArtifact(ctx, UpdateRequest{
		Identity:    pet,
		BaseVersion: petV1,
		Edits:       nt(t, rdf.S(iri("urn:temp:fido"), rdf.Type, iri(zoo+"#Mammal"))),
		Format:      rdf.NTriples,
		Mode:        ModeMerge,
	})
	requireCode(t, err, errs.CodeInconsistentOntology)

	art, _, err = f.o.Current(ctx, pet)
	require.NoError(t, err)
	assert.Equal(t, petV1, art.Version)
}

func TestUpdateArtifact_Replace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.loadZoo(t, zooV1)
	f.loadPet(t)

	v, err := f.o.UpdateArtifact(ctx, UpdateRequest{
		Identity:    pet,
		BaseVersion: petV1,
		Edits: nt(t,
			rdf.S(iri(pet), rdf.Imports, iri(zoo)),
			rdf.S(iri("urn:temp:rex"), rdf.Type, iri(zoo+"#Dog")),
			rdf.S(iri("urn:temp:rex"), rdf.Label, rdf.Literal("Rex")),
		),
		Format: rdf.NTriples,
	})
	require.NoError(t, err)
	assert.Equal(t, petV2, v.Version)

	g, err := f.o.Export(ctx, pet, false)
	require.NoError(t, err)
	assert.True(t, g.Has(rdf.S(iri(pet+"#rex"), rdf.Label, rdf.Literal("Rex"))))
	assert.True(t, g.Has(rdf.S(iri(pet), rdf.Type, rdf.Ontology)))
	assert.Equal(t, []rdf.Term{iri(petV2)}, g.Objects(iri(pet), rdf.VersionIRI))
	assert.Empty(t, g.Objects(iri(pet), rdf.Label), "replace drops the old header label")

	old, err := f.o.Export(ctx, petV1, false)
	require.NoError(t, err)
	assert.False(t, old.Has(rdf.S(iri(pet+"#rex"), rdf.Label, rdf.Literal("Rex"))), "old versions are immutable")

	history, err := f.o.History(ctx, pet)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, petV1, history[0].Version)
	assert.Equal(t, petV2, history[1].Version)
}

func TestUpdateArtifact_Merge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.loadZoo(t, zooV1)
	f.loadPet(t, rdf.S(iri("urn:temp:tom"), rdf.Type, iri(zoo+"#Mammal")))

	_, err := f.o.UpdateArtifact(ctx, UpdateRequest{
		Identity:    pet,
		BaseVersion: petV1,
		Edits:       nt(t, rdf.S(iri("urn:temp:rex"), rdf.Label, rdf.Literal("Rex"))),
		Format:      rdf.NTriples,
		Mode:        ModeMerge,
	})
	require.NoError(t, err)

	g, err := f.o.Export(ctx, pet, false)
	require.NoError(t, err)
	assert.True(t, g.Has(rdf.S(iri(pet+"#rex"), rdf.Label, rdf.Literal("Rex"))))
	assert.False(t, g.Has(rdf.S(iri(pet+"#rex"), rdf.Type, iri(zoo+"#Dog"))), "merge replaces mentioned subjects")
	assert.True(t, g.Has(rdf.S(iri(pet+"#tom"), rdf.Type, iri(zoo+"#Mammal"))))
	assert.True(t, g.Has(rdf.S(iri(pet), rdf.Imports, iri(zoo))))
}

func TestUpdateArtifact_Dangling(t *testing.T) {
	owner := iri(zoo + "#owner")
	edits := func(t *testing.T) []byte {
		return nt(t,
			rdf.S(iri(pet), rdf.Imports, iri(zoo)),
			rdf.S(iri("urn:temp:rex"), rdf.Type, iri(zoo+"#Dog")),
			rdf.S(iri("urn:temp:rex"), owner, iri("urn:temp:bob")),
		)
	}
	setup := func(t *testing.T) *fixture {
		f := newFixture(t)
		f.loadZoo(t, zooV1)
		f.loadPet(t,
			rdf.S(iri("urn:temp:rex"), owner, iri("urn:temp:bob")),
			rdf.S(iri("urn:temp:bob"), rdf.Label, rdf.Literal("Bob")),
		)
		return f
	}

	t.Run("report", func(t *testing.T) {
		f := setup(t)
		_, err := f.o.UpdateArtifact(context.Background(), UpdateRequest{
			Identity:    pet,
			BaseVersion: petV1,
			Edits:       edits(t),
			Format:      rdf.NTriples,
			Dangling:    DanglingReport,
		})
		requireCode(t, err, errs.CodeDanglingObject)
		e, _ := errs.As(err)
		assert.Equal(t, []string{pet + "#bob"}, e.Objects)

		cur, _, err := f.o.Current(context.Background(), pet)
		require.NoError(t, err)
		assert.Equal(t, petV1, cur.Version)
	})

	t.Run("force clean", func(t *testing.T) {
		f := setup(t)
		v, err := f.o.UpdateArtifact(context.Background(), UpdateRequest{
			Identity:    pet,
			BaseVersion: petV1,
			Edits:       edits(t),
			Format:      rdf.NTriples,
			Dangling:    DanglingForceClean,
		})
		require.NoError(t, err)

		g, err := f.o.Export(context.Background(), v.Version, false)
		require.NoError(t, err)
		assert.Empty(t, g.Match(rdf.Pattern{Object: iri(pet + "#bob")}))
		assert.True(t, g.Has(rdf.S(iri(pet+"#rex"), rdf.Type, iri(zoo+"#Dog"))))
	})
}

func TestUpdateArtifact_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.loadZoo(t, zooV1)
	f.loadPet(t)
	edits := nt(t, rdf.S(iri("urn:temp:rex"), rdf.Label, rdf.Literal("Rex")))

	tests := []struct {
		name string
		req  UpdateRequest
		code errs.Code
	}{
		{"unknown identity", UpdateRequest{Identity: base + "nope", Edits: edits}, errs.CodeNotFound},
		{"stale base", UpdateRequest{Identity: pet, BaseVersion: pet + "/version%3A0", Edits: edits}, errs.CodeStaleVersion},
		{"schema identity", UpdateRequest{Identity: zoo, Edits: edits}, errs.CodeIllegalState},
		{"empty edits", UpdateRequest{Identity: pet, BaseVersion: petV1}, errs.CodeEmptyOntology},
		{"bad mode", UpdateRequest{Identity: pet, Edits: edits, Mode: "append"}, errs.CodeInvalidGraph},
		{"bad policy", UpdateRequest{Identity: pet, Edits: edits, Dangling: "ignore"}, errs.CodeInvalidGraph},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Format = rdf.NTriples
			_, err := f.o.UpdateArtifact(ctx, tt.req)
			requireCode(t, err, tt.code)
		})
	}

	history, err := f.o.History(ctx, pet)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestDeleteArtifact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.loadZoo(t, zooV1)
	f.loadPet(t)

	_, err := f.o.DeleteArtifact(ctx, zoo)
	requireCode(t, err, errs.CodeIllegalState)

	removed, err := f.o.DeleteArtifact(ctx, pet)
	require.NoError(t, err)
	assert.True(t, removed)

	state, err := f.o.State(ctx, pet)
	require.NoError(t, err)
	assert.Equal(t, model.StateRemoved, state)

	_, err = f.o.Export(ctx, petV1, true)
	requireCode(t, err, errs.CodeNotFound)

	removed, err = f.o.DeleteArtifact(ctx, pet)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = f.o.UpdateArtifact(ctx, UpdateRequest{
		Identity: pet,
		Edits:    nt(t, rdf.S(iri("urn:temp:rex"), rdf.Label, rdf.Literal("Rex"))),
		Format:   rdf.NTriples,
	})
	requireCode(t, err, errs.CodeNotFound)

	// the schema it imported is untouched
	_, ok, err := f.o.Current(ctx, zoo)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnload_EvictsWorkingSetOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.loadZoo(t, zooV1)
	f.loadPet(t)

	assert.True(t, f.o.WorkingSet().Has(zoo), "closure checks load imported graphs")

	assert.True(t, f.o.Unload(zoo))
	assert.False(t, f.o.WorkingSet().Has(zoo))
	assert.False(t, f.o.Unload(zoo))

	cur, ok, err := f.o.Current(ctx, zoo)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, zooV1, cur.Version)

	g, err := f.o.Export(ctx, zoo, false)
	require.NoError(t, err)
	assert.True(t, g.Has(rdf.S(iri(zoo), rdf.Type, rdf.Ontology)))
	assert.True(t, f.o.WorkingSet().Has(zoo))
}

func TestPrune_SupersededArtifactVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.loadZoo(t, zooV1)
	f.loadPet(t)

	_, err := f.o.UpdateArtifact(ctx, UpdateRequest{
		Identity: pet,
		Edits:    nt(t, rdf.S(iri("urn:temp:rex"), rdf.Label, rdf.Literal("Rex"))),
		Format:   rdf.NTriples,
		Mode:     ModeMerge,
	})
	require.NoError(t, err)

	pruned, err := f.o.Prune(ctx, pet)
	require.NoError(t, err)
	assert.Equal(t, []string{petV1}, pruned)

	_, err = f.o.Export(ctx, petV1, false)
	requireCode(t, err, errs.CodeNotFound)

	_, err = f.o.Prune(ctx, base+"nope")
	requireCode(t, err, errs.CodeNotFound)
}

func TestReasoningTimeout_RollsBack(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	stub := &testutil.StubReasoner{Block: block}

	f := newFixture(t, withReasoner(stub), withOption(WithTimeout(50*time.Millisecond)))
	ctx := context.Background()

	_, err := f.o.LoadSchema(ctx, nt(t, zooSchema(zooV1)...), rdf.NTriples, SchemaOptions{})
	requireCode(t, err, errs.CodeReasoningTimeout)

	state, err := f.o.State(ctx, zoo)
	require.NoError(t, err)
	assert.Equal(t, model.StateUnmanaged, state)
	assert.Equal(t, 1, stub.ConsistencyCalls())
}

func TestConcurrentArtifactLoads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.loadZoo(t, zooV1)

	const n = 5
	data := nt(t, petArtifact()...)
	var wg sync.WaitGroup
	errc := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.o.LoadArtifact(ctx, data, rdf.NTriples, ArtifactOptions{})
			errc <- err
		}()
	}
	wg.Wait()
	close(errc)
	for err := range errc {
		assert.NoError(t, err)
	}

	ids, err := f.o.Identities(ctx, model.KindArtifact)
	require.NoError(t, err)
	assert.Len(t, ids, n)
	for _, id := range ids {
		assert.Equal(t, model.StateActive, id.State)
	}
}
