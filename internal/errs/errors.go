// Package errs defines the error kinds surfaced by ontoreg operations.
//
// Every failure that reaches a caller carries one stable Code. Codes are
// matched through wrapping with Is and CodeOf, so callers never need to
// type-assert.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies an error kind. Codes are stable and caller-facing.
type Code string

const (
	// CodeEmptyOntology indicates the candidate graph has zero statements.
	CodeEmptyOntology Code = "EMPTY_ONTOLOGY"

	// CodeMissingVersionIRI indicates a schema load with no declared or hinted version.
	CodeMissingVersionIRI Code = "MISSING_VERSION_IRI"

	// CodeProfileViolation indicates the profile checker reported violations.
	CodeProfileViolation Code = "PROFILE_VIOLATION"

	// CodeInconsistentOntology indicates the reasoner found the union graph inconsistent.
	CodeInconsistentOntology Code = "INCONSISTENT_ONTOLOGY"

	// CodeUnmanagedImport indicates an import names an identity with no published version.
	CodeUnmanagedImport Code = "UNMANAGED_IMPORT"

	// CodeAmbiguousImport indicates a pinned import version no longer exists.
	CodeAmbiguousImport Code = "AMBIGUOUS_IMPORT"

	// CodeImportCycle indicates the import graph revisits a node on the current path.
	CodeImportCycle Code = "IMPORT_CYCLE"

	// CodeIllegalImport indicates an artifact imports something other than a schema.
	CodeIllegalImport Code = "ILLEGAL_IMPORT"

	// CodeDanglingObject indicates an update would leave referenced objects undescribed.
	CodeDanglingObject Code = "DANGLING_OBJECT"

	// CodeDuplicateIdentity indicates a freshly minted identity is already recorded.
	CodeDuplicateIdentity Code = "DUPLICATE_IDENTITY"

	// CodeVersionExists indicates a version IRI is already recorded.
	CodeVersionExists Code = "VERSION_EXISTS"

	// CodeStaleVersion indicates an update was based on a version that is no longer current.
	CodeStaleVersion Code = "STALE_VERSION"

	// CodeNotFound indicates the identity is unmanaged or removed.
	CodeNotFound Code = "NOT_FOUND"

	// CodeIllegalState indicates a register transition that is not allowed.
	CodeIllegalState Code = "ILLEGAL_STATE"

	// CodeInvalidGraph indicates input that cannot be parsed or lacks required structure.
	CodeInvalidGraph Code = "INVALID_GRAPH"

	// CodeReasoningTimeout indicates an external reasoning call exceeded the deadline.
	CodeReasoningTimeout Code = "REASONING_TIMEOUT"

	// CodeStoreUnavailable indicates a resource-layer fault in the triple store.
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
)

// Error is a classified ontoreg failure.
//
// Only the fields relevant to the Code are set.
type Error struct {
	Code    Code
	Message string

	// Identity and Version locate the affected graph, when known.
	Identity string
	Version  string

	// Violations lists profile violations (PROFILE_VIOLATION).
	Violations []string

	// Explanation is the reasoner's account of an inconsistency.
	Explanation string

	// Path is the import path that closed a cycle (IMPORT_CYCLE).
	Path []string

	// Objects lists dangling object IRIs (DANGLING_OBJECT).
	Objects []string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Identity != "" {
		fmt.Fprintf(&b, " (identity=%s", e.Identity)
		if e.Version != "" {
			fmt.Fprintf(&b, ", version=%s", e.Version)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around a cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithRef sets Identity and Version and returns e.
func (e *Error) WithRef(identity, version string) *Error {
	e.Identity = identity
	e.Version = version
	return e
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// CodeOf returns the code carried by err, or "" when err is unclassified.
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}

// EmptyOntology reports a graph with zero statements.
func EmptyOntology() *Error {
	return New(CodeEmptyOntology, "ontology has no statements")
}

// MissingVersionIRI reports a schema load with no version IRI.
func MissingVersionIRI(identity string) *Error {
	return New(CodeMissingVersionIRI, "schema declares no owl:versionIRI and no version hint was supplied").
		WithRef(identity, "")
}

// ProfileViolation reports profile-checker violations.
func ProfileViolation(violations []string) *Error {
	e := New(CodeProfileViolation, "graph is outside the profile: %d violation(s)", len(violations))
	e.Violations = violations
	return e
}

// InconsistentOntology reports a reasoner inconsistency verdict.
func InconsistentOntology(explanation string) *Error {
	e := New(CodeInconsistentOntology, "ontology is inconsistent")
	e.Explanation = explanation
	return e
}

// UnmanagedImport reports an import of an identity with no published version.
func UnmanagedImport(iri string) *Error {
	return New(CodeUnmanagedImport, "import %s is not managed", iri)
}

// AmbiguousImport reports a pinned import whose version no longer exists.
func AmbiguousImport(identity, version string) *Error {
	return New(CodeAmbiguousImport, "pinned import version no longer exists").WithRef(identity, version)
}

// ImportCycle reports an import cycle along path.
func ImportCycle(path []string) *Error {
	e := New(CodeImportCycle, "import cycle: %s", strings.Join(path, " -> "))
	e.Path = path
	return e
}

// IllegalImport reports an artifact importing a non-schema.
func IllegalImport(identity string) *Error {
	return New(CodeIllegalImport, "artifacts may only import schemas").WithRef(identity, "")
}

// DanglingObject reports objects left without description by an update.
func DanglingObject(identity string, objects []string) *Error {
	e := New(CodeDanglingObject, "update leaves %d referenced object(s) undescribed", len(objects)).
		WithRef(identity, "")
	e.Objects = objects
	return e
}

// DuplicateIdentity reports a minted identity that already exists.
func DuplicateIdentity(identity string) *Error {
	return New(CodeDuplicateIdentity, "identity already exists").WithRef(identity, "")
}

// VersionExists reports a version IRI already recorded.
func VersionExists(identity, version string) *Error {
	return New(CodeVersionExists, "version already exists").WithRef(identity, version)
}

// StaleVersion reports an update based on a superseded version.
func StaleVersion(identity, base, current string) *Error {
	return New(CodeStaleVersion, "base version %s is not current (current is %s)", base, current).
		WithRef(identity, base)
}

// NotFound reports an unmanaged or removed identity.
func NotFound(identity string) *Error {
	return New(CodeNotFound, "identity is not managed").WithRef(identity, "")
}

// IllegalState reports a disallowed register transition.
func IllegalState(identity, version, format string, args ...any) *Error {
	return New(CodeIllegalState, format, args...).WithRef(identity, version)
}

// InvalidGraph reports unusable input.
func InvalidGraph(err error, format string, args ...any) *Error {
	return Wrap(CodeInvalidGraph, err, format, args...)
}

// ReasoningTimeout reports an external call that exceeded its deadline.
func ReasoningTimeout(call string, err error) *Error {
	return Wrap(CodeReasoningTimeout, err, "%s exceeded the reasoning deadline", call)
}

// StoreUnavailable reports a resource-layer fault.
func StoreUnavailable(op string, err error) *Error {
	return Wrap(CodeStoreUnavailable, err, "store %s failed", op)
}
