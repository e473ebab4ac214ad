package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/ontoreg/internal/model"
	"github.com/roach88/ontoreg/internal/rdf"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// update runs fn in a committed transaction and fails the test on error.
func update(t *testing.T, s *Store, fn func(context.Context, *Tx) error) {
	t.Helper()
	ctx := context.Background()
	if err := s.Update(ctx, func(tx *Tx) error { return fn(ctx, tx) }); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
}

// ex returns an IRI term in the example.org namespace.
func ex(local string) rdf.Term {
	return rdf.IRI("http://example.org/" + local)
}

// createTestVersion creates a version with minimal required fields.
func createTestVersion(identity, version string, seq int64, imports ...model.Ref) model.Version {
	return model.Version{
		Identity: identity,
		Version:  version,
		Concrete: version,
		Imports:  imports,
		Status:   model.StatusConsistent,
		Seq:      seq,
	}
}

// createTestIdentity creates an active identity of the given kind.
func createTestIdentity(iri string, kind model.Kind, seq int64) model.Identity {
	return model.Identity{IRI: iri, Kind: kind, State: model.StateActive, Seq: seq}
}

// readSeq reads the sequence through View with a short deadline, so a View
// that waits on the write connection fails the test instead of hanging.
func readSeq(t *testing.T, s *Store) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var seq int64
	err := s.View(ctx, func(tx *Tx) error {
		return tx.tx.QueryRowContext(ctx, `SELECT value FROM sequence WHERE id = 1`).Scan(&seq)
	})
	if err != nil {
		t.Fatalf("View() failed: %v", err)
	}
	return seq
}

// verifyPragma checks that a pragma on the write connection is set to the
// expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
