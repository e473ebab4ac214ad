package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/ontoreg/internal/errs"
	"github.com/roach88/ontoreg/internal/model"
)

// ErrNoRow is returned by catalog lookups that find nothing.
var ErrNoRow = errors.New("store: no such row")

// PutIdentity inserts or updates an identity row.
func (t *Tx) PutIdentity(ctx context.Context, id model.Identity) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO identities (iri, kind, state, label, created_seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(iri) DO UPDATE SET
			state = excluded.state,
			label = excluded.label
	`, id.IRI, string(id.Kind), string(id.State), id.Label, id.Seq)
	if err != nil {
		return errs.StoreUnavailable("put identity", err)
	}
	return nil
}

// GetIdentity loads an identity row. Returns ErrNoRow if absent.
func (t *Tx) GetIdentity(ctx context.Context, iri string) (model.Identity, error) {
	var id model.Identity
	var kind, state string
	err := t.tx.QueryRowContext(ctx, `
		SELECT iri, kind, state, label, created_seq
		FROM identities
		WHERE iri = ?
	`, iri).Scan(&id.IRI, &kind, &state, &id.Label, &id.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Identity{}, ErrNoRow
	}
	if err != nil {
		return model.Identity{}, errs.StoreUnavailable("get identity", err)
	}
	id.Kind = model.Kind(kind)
	id.State = model.State(state)
	return id, nil
}

// ListIdentities returns identities ordered by creation, optionally
// filtered by kind. An empty kind lists all.
func (t *Tx) ListIdentities(ctx context.Context, kind model.Kind) ([]model.Identity, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT iri, kind, state, label, created_seq
		FROM identities
		WHERE ? = '' OR kind = ?
		ORDER BY created_seq ASC, iri COLLATE BINARY ASC
	`, string(kind), string(kind))
	if err != nil {
		return nil, errs.StoreUnavailable("list identities", err)
	}
	defer rows.Close()

	ids := []model.Identity{}
	for rows.Next() {
		var id model.Identity
		var k, state string
		if err := rows.Scan(&id.IRI, &k, &state, &id.Label, &id.Seq); err != nil {
			return nil, errs.StoreUnavailable("list identities", err)
		}
		id.Kind = model.Kind(k)
		id.State = model.State(state)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.StoreUnavailable("list identities", err)
	}
	return ids, nil
}

// PutVersion inserts a version row together with its ordered import edges.
// Version IRIs are unique across identities; a duplicate returns
// errs.CodeVersionExists.
func (t *Tx) PutVersion(ctx context.Context, v model.Version) error {
	var n int
	if err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM versions WHERE version = ?`, v.Version).Scan(&n); err != nil {
		return errs.StoreUnavailable("put version", err)
	}
	if n > 0 {
		return errs.VersionExists(v.Identity, v.Version)
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO versions
		(version, identity, concrete, inferred, status, seq, hash, label, removed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.Version, v.Identity, v.Concrete, v.Inferred, string(v.Status), v.Seq, v.Hash, v.Label, boolToInt(v.Removed))
	if err != nil {
		return errs.StoreUnavailable("put version", err)
	}

	for i, imp := range v.Imports {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO import_edges (version, ordinal, import_identity, import_version)
			VALUES (?, ?, ?, ?)
		`, v.Version, i, imp.Identity, imp.Version)
		if err != nil {
			return errs.StoreUnavailable("put import edge", err)
		}
	}
	return nil
}

// GetVersion loads a version row with its import edges. Removed versions
// are returned with Removed set. Returns ErrNoRow if the IRI was never
// recorded.
func (t *Tx) GetVersion(ctx context.Context, version string) (model.Version, error) {
	var v model.Version
	var kind, status string
	var removed int
	err := t.tx.QueryRowContext(ctx, `
		SELECT v.version, v.identity, i.kind, v.concrete, v.inferred,
		       v.status, v.seq, v.hash, v.label, v.removed
		FROM versions v
		JOIN identities i ON i.iri = v.identity
		WHERE v.version = ?
	`, version).Scan(&v.Version, &v.Identity, &kind, &v.Concrete, &v.Inferred,
		&status, &v.Seq, &v.Hash, &v.Label, &removed)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Version{}, ErrNoRow
	}
	if err != nil {
		return model.Version{}, errs.StoreUnavailable("get version", err)
	}
	v.Kind = model.Kind(kind)
	v.Status = model.Status(status)
	v.Removed = removed != 0

	imports, err := t.importsOf(ctx, v.Version)
	if err != nil {
		return model.Version{}, err
	}
	v.Imports = imports
	return v, nil
}

// ListVersions returns every recorded version of an identity, oldest first.
func (t *Tx) ListVersions(ctx context.Context, identity string) ([]model.Version, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT version
		FROM versions
		WHERE identity = ?
		ORDER BY seq ASC, version COLLATE BINARY ASC
	`, identity)
	if err != nil {
		return nil, errs.StoreUnavailable("list versions", err)
	}

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, errs.StoreUnavailable("list versions", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errs.StoreUnavailable("list versions", err)
	}
	rows.Close()

	// Edges are loaded after the cursor closes; a transaction holds one connection.
	versions := make([]model.Version, 0, len(names))
	for _, name := range names {
		v, err := t.GetVersion(ctx, name)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}

// SetVersionStatus records a new consistency status.
func (t *Tx) SetVersionStatus(ctx context.Context, version string, status model.Status) error {
	return t.updateVersion(ctx, "set status", `UPDATE versions SET status = ? WHERE version = ?`, string(status), version)
}

// SetVersionInferred records the inferred context of a version.
func (t *Tx) SetVersionInferred(ctx context.Context, version, inferred string) error {
	return t.updateVersion(ctx, "set inferred", `UPDATE versions SET inferred = ? WHERE version = ?`, inferred, version)
}

// MarkVersionRemoved turns a version row into a tombstone. Its contexts are
// no longer referenced.
func (t *Tx) MarkVersionRemoved(ctx context.Context, version string) error {
	return t.updateVersion(ctx, "mark removed", `UPDATE versions SET removed = 1, inferred = '' WHERE version = ?`, version)
}

// Dependents returns the versions whose import edges bind the given version.
func (t *Tx) Dependents(ctx context.Context, version string) ([]model.Ref, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT v.identity, v.version
		FROM import_edges e
		JOIN versions v ON v.version = e.version
		WHERE e.import_version = ? AND v.removed = 0
		ORDER BY v.seq ASC
	`, version)
	if err != nil {
		return nil, errs.StoreUnavailable("dependents", err)
	}
	defer rows.Close()

	refs := []model.Ref{}
	for rows.Next() {
		var r model.Ref
		if err := rows.Scan(&r.Identity, &r.Version); err != nil {
			return nil, errs.StoreUnavailable("dependents", err)
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.StoreUnavailable("dependents", err)
	}
	return refs, nil
}

func (t *Tx) importsOf(ctx context.Context, version string) ([]model.Ref, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT import_identity, import_version
		FROM import_edges
		WHERE version = ?
		ORDER BY ordinal ASC
	`, version)
	if err != nil {
		return nil, errs.StoreUnavailable("import edges", err)
	}
	defer rows.Close()

	var refs []model.Ref
	for rows.Next() {
		var r model.Ref
		if err := rows.Scan(&r.Identity, &r.Version); err != nil {
			return nil, errs.StoreUnavailable("import edges", err)
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.StoreUnavailable("import edges", err)
	}
	return refs, nil
}

func (t *Tx) updateVersion(ctx context.Context, op, query string, args ...any) error {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return errs.StoreUnavailable(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.StoreUnavailable(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %v: %w", op, args[len(args)-1], ErrNoRow)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
