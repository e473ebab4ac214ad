package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/ontoreg/internal/errs"
)

// Tx is one store transaction. All graph and catalog access goes through a Tx.
type Tx struct {
	tx *sql.Tx
}

// Begin starts a transaction. Callers must Commit or Rollback; prefer Update
// and View, which guarantee release.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errs.StoreUnavailable("begin", err)
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return errs.StoreUnavailable("commit", err)
	}
	return nil
}

// Rollback aborts the transaction. Rolling back a finished transaction is a no-op.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return errs.StoreUnavailable("rollback", err)
	}
	return nil
}

// Update runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back when fn returns an error or panics.
func (s *Store) Update(ctx context.Context, fn func(*Tx) error) (err error) {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// View runs fn inside a transaction on the read pool that is always rolled
// back. It never waits for an open Update.
func (s *Store) View(ctx context.Context, fn func(*Tx) error) error {
	sqlTx, err := s.read.BeginTx(ctx, nil)
	if err != nil {
		return errs.StoreUnavailable("begin read", err)
	}
	tx := &Tx{tx: sqlTx}
	defer tx.Rollback()

	return fn(tx)
}

// NextSeq advances the persisted logical clock and returns the new value.
// The increment is part of the transaction and is undone by rollback.
func (t *Tx) NextSeq(ctx context.Context) (int64, error) {
	if _, err := t.tx.ExecContext(ctx, `UPDATE sequence SET value = value + 1 WHERE id = 1`); err != nil {
		return 0, errs.StoreUnavailable("advance sequence", err)
	}
	var seq int64
	if err := t.tx.QueryRowContext(ctx, `SELECT value FROM sequence WHERE id = 1`).Scan(&seq); err != nil {
		return 0, errs.StoreUnavailable("read sequence", err)
	}
	return seq, nil
}
