package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ontoreg/internal/rdf"
)

func TestAdd_CreatesContextAndDeduplicates(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	st := rdf.S(ex("a"), rdf.Type, rdf.IRI(rdf.OWLClass))
	update(t, s, func(ctx context.Context, tx *Tx) error {
		n, err := tx.Add(ctx, "urn:g1", st, st)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = tx.Add(ctx, "urn:g1", st)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		return nil
	})

	err := s.View(ctx, func(tx *Tx) error {
		ok, err := tx.HasContext(ctx, "urn:g1")
		require.NoError(t, err)
		assert.True(t, ok)

		size, err := tx.Size(ctx, "urn:g1")
		require.NoError(t, err)
		assert.Equal(t, 1, size)
		return nil
	})
	require.NoError(t, err)
}

func TestAdd_PreservesLiteralDetail(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	in := rdf.NewGraph(
		rdf.S(ex("a"), rdf.Label, rdf.LangLiteral("Alpha", "en")),
		rdf.S(ex("a"), rdf.Label, rdf.Literal("Alpha")),
		rdf.S(ex("a"), ex("size"), rdf.TypedLiteral("3", rdf.XSDNS+"integer")),
		rdf.S(rdf.Blank("b1"), ex("p"), rdf.Blank("b2")),
	)
	update(t, s, func(ctx context.Context, tx *Tx) error {
		_, err := tx.AddGraph(ctx, "urn:g", in)
		return err
	})

	var out *rdf.Graph
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.Graph(ctx, "urn:g")
		return err
	})
	require.NoError(t, err)
	assert.True(t, in.Equal(out), "got:\n%s", rdf.CanonicalBytes(out))
}

func TestMatch_Pattern(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	update(t, s, func(ctx context.Context, tx *Tx) error {
		_, err := tx.Add(ctx, "urn:g",
			rdf.S(ex("a"), rdf.Type, rdf.IRI(rdf.OWLClass)),
			rdf.S(ex("b"), rdf.Type, rdf.IRI(rdf.OWLClass)),
			rdf.S(ex("b"), rdf.Label, rdf.Literal("B")),
		)
		return err
	})

	err := s.View(ctx, func(tx *Tx) error {
		got, err := tx.Match(ctx, "urn:g", rdf.Pattern{Predicate: rdf.Type})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, ex("a"), got[0].Subject)
		assert.Equal(t, ex("b"), got[1].Subject)

		got, err = tx.Match(ctx, "urn:g", rdf.Pattern{Subject: ex("b")})
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = tx.Match(ctx, "urn:other", rdf.Any)
		require.NoError(t, err)
		assert.Empty(t, got)
		return nil
	})
	require.NoError(t, err)
}

func TestRemove_Pattern(t *testing.T) {
	s := createTestStore(t)

	update(t, s, func(ctx context.Context, tx *Tx) error {
		_, err := tx.Add(ctx, "urn:g",
			rdf.S(ex("a"), rdf.Label, rdf.Literal("A")),
			rdf.S(ex("a"), rdf.Label, rdf.LangLiteral("A", "en")),
			rdf.S(ex("b"), rdf.Label, rdf.Literal("B")),
		)
		require.NoError(t, err)

		n, err := tx.Remove(ctx, "urn:g", rdf.Pattern{Subject: ex("a"), Object: rdf.LangLiteral("A", "en")})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = tx.Remove(ctx, "urn:g", rdf.Pattern{Subject: ex("a")})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		size, err := tx.Size(ctx, "urn:g")
		require.NoError(t, err)
		assert.Equal(t, 1, size)
		return nil
	})
}

func TestRenameContext_MovesStatements(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	update(t, s, func(ctx context.Context, tx *Tx) error {
		_, err := tx.Add(ctx, "urn:staging", rdf.S(ex("a"), rdf.Type, rdf.IRI(rdf.OWLClass)))
		require.NoError(t, err)
		return tx.RenameContext(ctx, "urn:staging", "http://example.org/v1")
	})

	err := s.View(ctx, func(tx *Tx) error {
		names, err := tx.Contexts(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"http://example.org/v1"}, names)

		size, err := tx.Size(ctx, "http://example.org/v1")
		require.NoError(t, err)
		assert.Equal(t, 1, size)
		return nil
	})
	require.NoError(t, err)
}

func TestRenameContext_RejectsExistingTarget(t *testing.T) {
	s := createTestStore(t)

	update(t, s, func(ctx context.Context, tx *Tx) error {
		_, err := tx.CreateContext(ctx, "urn:a")
		require.NoError(t, err)
		_, err = tx.CreateContext(ctx, "urn:b")
		require.NoError(t, err)

		assert.Error(t, tx.RenameContext(ctx, "urn:a", "urn:b"))
		assert.Error(t, tx.RenameContext(ctx, "urn:missing", "urn:c"))
		return nil
	})
}

func TestDropContext(t *testing.T) {
	s := createTestStore(t)

	update(t, s, func(ctx context.Context, tx *Tx) error {
		_, err := tx.Add(ctx, "urn:g",
			rdf.S(ex("a"), rdf.Label, rdf.Literal("A")),
			rdf.S(ex("b"), rdf.Label, rdf.Literal("B")),
		)
		require.NoError(t, err)

		n, err := tx.DropContext(ctx, "urn:g")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		ok, err := tx.HasContext(ctx, "urn:g")
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
}

func TestUpdate_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx *Tx) error {
		if _, err := tx.Add(ctx, "urn:g", rdf.S(ex("a"), rdf.Label, rdf.Literal("A"))); err != nil {
			return err
		}
		if _, err := tx.NextSeq(ctx); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.View(ctx, func(tx *Tx) error {
		ok, err := tx.HasContext(ctx, "urn:g")
		require.NoError(t, err)
		assert.False(t, ok, "uncommitted context must not be visible")
		return nil
	})
	require.NoError(t, err)

	update(t, s, func(ctx context.Context, tx *Tx) error {
		seq, err := tx.NextSeq(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), seq, "sequence advance must roll back")
		return nil
	})
}

func TestUpdate_RollsBackOnPanic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = s.Update(ctx, func(tx *Tx) error {
			_, _ = tx.CreateContext(ctx, "urn:g")
			panic("boom")
		})
	})

	err := s.View(ctx, func(tx *Tx) error {
		ok, err := tx.HasContext(ctx, "urn:g")
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestNextSeq_Monotonic(t *testing.T) {
	s := createTestStore(t)

	var prev int64
	for i := 0; i < 5; i++ {
		update(t, s, func(ctx context.Context, tx *Tx) error {
			seq, err := tx.NextSeq(ctx)
			require.NoError(t, err)
			assert.Greater(t, seq, prev)
			prev = seq
			return nil
		})
	}
}
