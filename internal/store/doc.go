// Package store provides the SQLite-backed graph store for ontoreg.
//
// The store is the exclusive gateway to persisted statements. It holds:
//   - Contexts: named graphs, one per Version's concrete and inferred statements,
//     plus the reserved management graph
//   - Statements: triples scoped to a context, de-duplicated per context
//   - Catalog: identities, versions and their recorded import edges
//   - Sequence: the persisted logical clock stamping every publish
//
// # Critical Patterns
//
// Scoped transactions:
//   - Every read and write happens inside Update or View
//   - Update commits only when its callback returns nil; any error or panic
//     rolls back every write made through the Tx
//
// Logical time:
//   - Ordering uses seq INTEGER from NextSeq, never timestamps
//
// Deterministic reads:
//   - Catalog queries order by seq ASC, then IRI COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - One open connection: uncommitted writes are never visible to another operation
//
// Resource faults are reported as errs.CodeStoreUnavailable.
package store
