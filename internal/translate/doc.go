// Package translate rewrites provisional identifiers into permanent ones.
//
// Clients author graphs before an owning identity exists, naming their
// resources under a well-known temporary prefix. Once an identity is minted
// the Translator rewrites those IRIs in subject, predicate, and object
// position, each role controlled independently by RoleOptions.
//
// The package also owns version IRI arithmetic: IncrementVersion derives the
// next version IRI from a prior one.
package translate
