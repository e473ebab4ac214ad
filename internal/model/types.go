package model

// Kind distinguishes schema vocabularies from user-authored artifacts.
type Kind string

const (
	KindSchema   Kind = "schema"
	KindArtifact Kind = "artifact"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindSchema || k == KindArtifact
}

// Status is the consistency status of a Version.
type Status string

const (
	StatusUnchecked    Status = "UNCHECKED"
	StatusConsistent   Status = "CONSISTENT"
	StatusInconsistent Status = "INCONSISTENT"
	StatusOutOfProfile Status = "OUT_OF_PROFILE"
)

// State is the lifecycle state of a managed identity.
//
//	UNMANAGED --publish--> ACTIVE(v) --publish--> ACTIVE(v') --remove--> REMOVED
type State string

const (
	StateUnmanaged State = "UNMANAGED"
	StateActive    State = "ACTIVE"
	StateRemoved   State = "REMOVED"
)

// Identity is a ManagedIdentity: the permanent logical name of a versioned graph.
type Identity struct {
	IRI   string `json:"iri" yaml:"iri"`
	Kind  Kind   `json:"kind" yaml:"kind"`
	State State  `json:"state" yaml:"state"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	Seq   int64  `json:"seq" yaml:"seq"`
}

// Ref addresses one Version by its (identity, version) pair.
type Ref struct {
	Identity string `json:"identity" yaml:"identity"`
	Version  string `json:"version" yaml:"version"`
}

// Key returns a map key unique to the pair.
func (r Ref) Key() string {
	return r.Identity + "\x00" + r.Version
}

// String returns "identity@version".
func (r Ref) String() string {
	return r.Identity + "@" + r.Version
}

// Version is an immutable snapshot of a managed identity.
//
// Concrete names the context holding the asserted statements; Inferred names
// the context holding the materialized entailments and is empty until
// materialization. Imports is the ordered list of Versions this one was bound
// to when it was published.
type Version struct {
	Identity string `json:"identity" yaml:"identity"`
	Version  string `json:"version" yaml:"version"`
	Kind     Kind   `json:"kind" yaml:"kind"`
	Concrete string `json:"concrete" yaml:"concrete"`
	Inferred string `json:"inferred,omitempty" yaml:"inferred,omitempty"`
	Imports  []Ref  `json:"imports,omitempty" yaml:"imports,omitempty"`
	Status   Status `json:"status" yaml:"status"`
	Seq      int64  `json:"seq" yaml:"seq"`
	Hash     string `json:"hash,omitempty" yaml:"hash,omitempty"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
	Removed  bool   `json:"removed,omitempty" yaml:"removed,omitempty"`
}

// Ref returns the (identity, version) pair of v.
func (v Version) Ref() Ref {
	return Ref{Identity: v.Identity, Version: v.Version}
}

// Contexts returns the named graphs holding v's statements: the concrete
// context and, when materialized, the inferred one.
func (v Version) Contexts() []string {
	if v.Inferred == "" {
		return []string{v.Concrete}
	}
	return []string{v.Concrete, v.Inferred}
}
