package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/ontoreg/internal/errs"
	"github.com/roach88/ontoreg/internal/rdf"
)

// CreateContext registers an empty named graph. created is false when the
// context already exists.
func (t *Tx) CreateContext(ctx context.Context, name string) (created bool, err error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO contexts (name, created_seq)
		VALUES (?, (SELECT value FROM sequence WHERE id = 1))
		ON CONFLICT(name) DO NOTHING
	`, name)
	if err != nil {
		return false, errs.StoreUnavailable("create context", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errs.StoreUnavailable("create context", err)
	}
	return n > 0, nil
}

// HasContext reports whether the named graph exists, even if empty.
func (t *Tx) HasContext(ctx context.Context, name string) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM contexts WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, errs.StoreUnavailable("check context", err)
	}
	return n > 0, nil
}

// Contexts lists every named graph in binary order.
func (t *Tx) Contexts(ctx context.Context) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT name FROM contexts ORDER BY name COLLATE BINARY ASC`)
	if err != nil {
		return nil, errs.StoreUnavailable("list contexts", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errs.StoreUnavailable("list contexts", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.StoreUnavailable("list contexts", err)
	}
	return names, nil
}

// DropContext deletes a named graph and all of its statements.
// Returns the number of statements removed.
func (t *Tx) DropContext(ctx context.Context, name string) (int, error) {
	n, err := t.Size(ctx, name)
	if err != nil {
		return 0, err
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM statements WHERE context = ?`, name); err != nil {
		return 0, errs.StoreUnavailable("drop context", err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM contexts WHERE name = ?`, name); err != nil {
		return 0, errs.StoreUnavailable("drop context", err)
	}
	return n, nil
}

// RenameContext atomically moves every statement of from into the new
// context to. The target must not exist.
func (t *Tx) RenameContext(ctx context.Context, from, to string) error {
	exists, err := t.HasContext(ctx, to)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("rename context: target %s already exists", to)
	}
	res, err := t.tx.ExecContext(ctx, `UPDATE contexts SET name = ? WHERE name = ?`, to, from)
	if err != nil {
		return errs.StoreUnavailable("rename context", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.StoreUnavailable("rename context", err)
	}
	if n == 0 {
		return fmt.Errorf("rename context: source %s does not exist", from)
	}
	return nil
}

// Add inserts statements into the named graph, creating it if needed.
// Statements already present are ignored. Returns the number added.
func (t *Tx) Add(ctx context.Context, name string, stmts ...rdf.Statement) (int, error) {
	if _, err := t.CreateContext(ctx, name); err != nil {
		return 0, err
	}
	if len(stmts) == 0 {
		return 0, nil
	}

	ins, err := t.tx.PrepareContext(ctx, `
		INSERT INTO statements
		(context, s_kind, s_value, p_value, o_kind, o_value, o_datatype, o_lang)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return 0, errs.StoreUnavailable("add statements", err)
	}
	defer ins.Close()

	added := 0
	for _, st := range stmts {
		if !st.Valid() {
			return added, fmt.Errorf("add statements: malformed statement %s", st)
		}
		res, err := ins.ExecContext(ctx,
			name,
			st.Subject.Kind.String(), st.Subject.Value,
			st.Predicate.Value,
			st.Object.Kind.String(), st.Object.Value, st.Object.Datatype, st.Object.Lang,
		)
		if err != nil {
			return added, errs.StoreUnavailable("add statements", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return added, errs.StoreUnavailable("add statements", err)
		}
		added += int(n)
	}
	return added, nil
}

// AddGraph inserts every statement of g into the named graph.
func (t *Tx) AddGraph(ctx context.Context, name string, g *rdf.Graph) (int, error) {
	return t.Add(ctx, name, g.Statements()...)
}

// Remove deletes statements of the named graph matching p.
// Returns the number removed.
func (t *Tx) Remove(ctx context.Context, name string, p rdf.Pattern) (int, error) {
	where, args := patternClause(name, p)
	res, err := t.tx.ExecContext(ctx, `DELETE FROM statements WHERE `+where, args...)
	if err != nil {
		return 0, errs.StoreUnavailable("remove statements", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errs.StoreUnavailable("remove statements", err)
	}
	return int(n), nil
}

// Match returns the statements of the named graph matching p.
func (t *Tx) Match(ctx context.Context, name string, p rdf.Pattern) ([]rdf.Statement, error) {
	where, args := patternClause(name, p)
	rows, err := t.tx.QueryContext(ctx, `
		SELECT s_kind, s_value, p_value, o_kind, o_value, o_datatype, o_lang
		FROM statements
		WHERE `+where+`
		ORDER BY s_value COLLATE BINARY, p_value COLLATE BINARY, o_value COLLATE BINARY
	`, args...)
	if err != nil {
		return nil, errs.StoreUnavailable("match statements", err)
	}
	defer rows.Close()

	stmts := []rdf.Statement{}
	for rows.Next() {
		st, err := scanStatement(rows)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.StoreUnavailable("match statements", err)
	}
	return stmts, nil
}

// Graph loads the whole named graph. A missing context reads as empty.
func (t *Tx) Graph(ctx context.Context, name string) (*rdf.Graph, error) {
	stmts, err := t.Match(ctx, name, rdf.Any)
	if err != nil {
		return nil, err
	}
	return rdf.NewGraph(stmts...), nil
}

// Size returns the number of statements in the named graph.
func (t *Tx) Size(ctx context.Context, name string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM statements WHERE context = ?`, name).Scan(&n)
	if err != nil {
		return 0, errs.StoreUnavailable("size", err)
	}
	return n, nil
}

func patternClause(name string, p rdf.Pattern) (string, []any) {
	conds := []string{"context = ?"}
	args := []any{name}
	if p.Subject.Kind != rdf.KindAny {
		conds = append(conds, "s_kind = ?", "s_value = ?")
		args = append(args, p.Subject.Kind.String(), p.Subject.Value)
	}
	if p.Predicate.Kind != rdf.KindAny {
		conds = append(conds, "p_value = ?")
		args = append(args, p.Predicate.Value)
	}
	if p.Object.Kind != rdf.KindAny {
		conds = append(conds, "o_kind = ?", "o_value = ?", "o_datatype = ?", "o_lang = ?")
		args = append(args, p.Object.Kind.String(), p.Object.Value, p.Object.Datatype, p.Object.Lang)
	}
	return strings.Join(conds, " AND "), args
}

func scanStatement(rows *sql.Rows) (rdf.Statement, error) {
	var sKind, sValue, pValue, oKind, oValue, oDatatype, oLang string
	if err := rows.Scan(&sKind, &sValue, &pValue, &oKind, &oValue, &oDatatype, &oLang); err != nil {
		return rdf.Statement{}, errs.StoreUnavailable("scan statement", err)
	}
	sk, err := rdf.ParseKind(sKind)
	if err != nil {
		return rdf.Statement{}, fmt.Errorf("scan statement: %w", err)
	}
	ok, err := rdf.ParseKind(oKind)
	if err != nil {
		return rdf.Statement{}, fmt.Errorf("scan statement: %w", err)
	}
	return rdf.Statement{
		Subject:   rdf.Term{Kind: sk, Value: sValue},
		Predicate: rdf.IRI(pValue),
		Object:    rdf.Term{Kind: ok, Value: oValue, Datatype: oDatatype, Lang: oLang},
	}, nil
}
