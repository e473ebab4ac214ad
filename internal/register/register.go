package register

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/roach88/ontoreg/internal/metrics"
	"github.com/roach88/ontoreg/internal/store"
)

// ManagementGraph is the reserved context holding CurrentPointer statements.
const ManagementGraph = "urn:ontoreg:management"

// StagingPrefix prefixes the temporary contexts concrete graphs are written
// to before being swapped into place.
const StagingPrefix = "urn:ontoreg:staging:"

// ErrReadOnly is returned when a write is attempted through Register.Read.
var ErrReadOnly = errors.New("register: write in read-only transaction")

// Register serializes version transitions over a store.
type Register struct {
	store   *store.Store
	lock    *semaphore.Weighted
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a Register. A nil logger means slog.Default().
func New(s *store.Store, logger *slog.Logger, m *metrics.Metrics) *Register {
	if logger == nil {
		logger = slog.Default()
	}
	return &Register{store: s, lock: semaphore.NewWeighted(1), logger: logger, metrics: m}
}

// Write runs fn under the global write lock inside one store transaction.
// The transaction commits only if fn returns nil. Waiting for the lock
// ends with ctx.
func (r *Register) Write(ctx context.Context, fn func(*Txn) error) error {
	if err := r.lock.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("register: waiting for write lock: %w", err)
	}
	defer r.lock.Release(1)

	var pending []func()
	err := r.store.Update(ctx, func(tx *store.Tx) error {
		t := &Txn{tx: tx, reg: r, writable: true}
		if err := fn(t); err != nil {
			return err
		}
		pending = t.onCommit
		return nil
	})
	if err != nil {
		return err
	}
	for _, f := range pending {
		f()
	}
	return nil
}

// Read runs fn inside a transaction that is always rolled back. It does not
// take the write lock.
func (r *Register) Read(ctx context.Context, fn func(*Txn) error) error {
	return r.store.View(ctx, func(tx *store.Tx) error {
		return fn(&Txn{tx: tx, reg: r})
	})
}

// Txn is the register's view of one store transaction.
type Txn struct {
	tx       *store.Tx
	reg      *Register
	writable bool
	onCommit []func()
}

// Store exposes the underlying store transaction for graph reads and for
// writes that must share the transaction, such as materialization.
func (t *Txn) Store() *store.Tx {
	return t.tx
}

// afterCommit queues f to run once the transaction has committed.
func (t *Txn) afterCommit(f func()) {
	t.onCommit = append(t.onCommit, f)
}

func (t *Txn) mustWrite(op string) error {
	if !t.writable {
		return fmt.Errorf("%s: %w", op, ErrReadOnly)
	}
	return nil
}
