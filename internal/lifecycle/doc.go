// Package lifecycle composes the translator, closure resolver, consistency
// gate, materializer and register into the operations clients call.
//
// Every write operation runs as one register transaction:
//
//	parse -> translate -> resolve imports -> gate -> stage -> materialize -> publish
//
// Any failure after the transaction begins rolls back every store write, so
// an operation either publishes a new current version or leaves the store
// unchanged.
//
// # Identities and versions
//
// Schemas name themselves: the graph's owl:Ontology IRI is the identity and
// its owl:versionIRI (or the caller's hint) the version. Artifacts are always
// minted: the identity is ArtifactBase + a fresh token and the first version
// is identity + "/version%3A1". Updates derive the next version with
// translate.IncrementVersion.
//
// # Timeouts
//
// Each operation runs under a deadline (the per-call timeout, or the
// orchestrator default). A deadline that passes while the reasoner or
// profile checker is running surfaces as REASONING_TIMEOUT.
//
// # Working set
//
// Published version graphs are immutable, so the orchestrator keeps a
// read-through WorkingSet of the ones it has loaded for closure checks and
// exports. Unload evicts an identity from it without touching the store.
package lifecycle
