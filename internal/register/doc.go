// Package register is the version state machine.
//
// Per managed identity the register holds exactly one CurrentPointer, kept
// as statements in the management graph:
//
//	<identity> ontoreg:currentVersion <version> .
//	<identity> ontoreg:currentInferredVersion <inferred-context> .
//	<identity> rdfs:label "label" .
//
// Identities move through
//
//	UNMANAGED --publish--> ACTIVE(v) --publish--> ACTIVE(v') --remove--> REMOVED
//
// REMOVED is terminal. All writes go through Register.Write, which holds a
// single global lock for the duration of one store transaction, so
// publishes and removals are strictly serialized and never observe each
// other's uncommitted state.
package register
