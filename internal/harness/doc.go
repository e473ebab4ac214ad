// Package harness runs ontoreg lifecycle scenarios as executable contract
// tests.
//
// A scenario is a YAML file naming a sequence of lifecycle operations
// against a fresh in-memory register, the outcome each step must have, and
// assertions over the final state.
//
// # Scenario Format
//
//	name: schema_evolution
//	description: "What this scenario validates"
//	graphs:
//	  zoo_v1: |
//	    <http://example.org/zoo> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://www.w3.org/2002/07/owl#Ontology> .
//	steps:
//	  - op: load_schema
//	    graph: zoo_v1
//	    expect: { code: ok, version: "http://example.org/zoo/1" }
//	  - op: load_artifact
//	    graph: pets
//	    as: pets
//	  - op: update_artifact
//	    identity: ${pets}
//	    base: ${pets.version}
//	    graph: pets_edit
//	    mode: merge
//	    expect: { code: INCONSISTENT_ONTOLOGY }
//	assertions:
//	  - type: current
//	    identity: ${pets}
//	    version: ${pets.version}
//	  - type: contains
//	    iri: ${pets}
//	    inferred: true
//	    statement: "<...> <...> <...> ."
//
// Graphs are N-Triples unless a step names another format; a step may read
// a file relative to the scenario instead with file:. A step's as: binds
// ${name} to the identity it published and ${name.version} to the version.
//
// # Assertion Types
//
//   - current: the identity's current version (empty version means none)
//   - state: the identity's lifecycle state
//   - contains, not_contains: a statement in a version's asserted or
//     inferred graph
//   - trace_contains: a step with the given op (and code) ran
//   - trace_count: the number of steps with the given op (and code)
//
// # Deterministic Testing
//
// Artifact identities are minted from testutil.SequenceMinter and every run
// gets its own in-memory SQLite database, so traces are identical across
// runs and can be compared against golden files.
package harness
