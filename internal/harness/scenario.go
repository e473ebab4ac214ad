package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ontoreg/internal/lifecycle"
	"github.com/roach88/ontoreg/internal/model"
	"github.com/roach88/ontoreg/internal/rdf"
)

// Scenario defines a lifecycle contract test.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Graphs holds named RDF documents steps refer to.
	Graphs map[string]string `yaml:"graphs,omitempty"`

	// Steps are the lifecycle operations to run, in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final register state and the trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one lifecycle operation.
type Step struct {
	// Op is the operation: load_schema, load_artifact, update_artifact,
	// delete_artifact, remove_schema, prune or unload.
	Op string `yaml:"op"`

	// Graph names an entry of Scenario.Graphs.
	Graph string `yaml:"graph,omitempty"`

	// File is an RDF file path, resolved relative to the scenario file.
	File string `yaml:"file,omitempty"`

	// Format is the input format. Default: N-Triples for Graph, derived
	// from the extension for File.
	Format string `yaml:"format,omitempty"`

	// VersionHint is passed to load_schema.
	VersionHint string `yaml:"version_hint,omitempty"`

	// Identity is the target of update, delete, remove, prune and unload.
	Identity string `yaml:"identity,omitempty"`

	// Base is the base version of an update_artifact.
	Base string `yaml:"base,omitempty"`

	// Mode is the update_artifact mode (replace|merge).
	Mode string `yaml:"mode,omitempty"`

	// Dangling is the update_artifact dangling policy (report|force-clean).
	Dangling string `yaml:"dangling,omitempty"`

	// As binds the published identity and version to ${as} and
	// ${as.version} for later steps and assertions.
	As string `yaml:"as,omitempty"`

	// Expect specifies the expected outcome. Nil means success.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Code is "ok" or an errs code.
	Code string `yaml:"code"`

	// Version is the expected published version, if set.
	Version string `yaml:"version,omitempty"`

	// Removed is the expected result of delete_artifact and remove_schema.
	Removed *bool `yaml:"removed,omitempty"`
}

// Assertion validates the final state or the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "current": Identity's current version equals Version ("" for none)
	// - "state": Identity's lifecycle state equals State
	// - "contains" / "not_contains": Statement is (not) in IRI's graph
	// - "trace_contains": a step with Op (and Code) ran
	// - "trace_count": exactly Count steps with Op (and Code) ran
	Type string `yaml:"type"`

	Identity string `yaml:"identity,omitempty"`
	Version  string `yaml:"version,omitempty"`
	State    string `yaml:"state,omitempty"`

	// IRI names a version or an identity (its current version).
	IRI       string `yaml:"iri,omitempty"`
	Inferred  bool   `yaml:"inferred,omitempty"`
	Statement string `yaml:"statement,omitempty"`

	Op    string `yaml:"op,omitempty"`
	Code  string `yaml:"code,omitempty"`
	Count int    `yaml:"count,omitempty"`
}

// Step operations.
const (
	OpLoadSchema     = lifecycle.OpLoadSchema
	OpLoadArtifact   = lifecycle.OpLoadArtifact
	OpUpdateArtifact = lifecycle.OpUpdateArtifact
	OpDeleteArtifact = lifecycle.OpDeleteArtifact
	OpRemoveSchema   = lifecycle.OpRemoveSchema
	OpPrune          = lifecycle.OpPrune
	OpUnload         = "unload"
)

// Assertion type constants.
const (
	AssertCurrent       = "current"
	AssertState         = "state"
	AssertContains      = "contains"
	AssertNotContains   = "not_contains"
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
)

var graphOps = []string{OpLoadSchema, OpLoadArtifact, OpUpdateArtifact}

var identityOps = []string{OpUpdateArtifact, OpDeleteArtifact, OpRemoveSchema, OpPrune, OpUnload}

// LoadScenario reads and parses a scenario YAML file. Step file paths are
// resolved relative to the scenario's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving step file paths relative to
// basePath.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, step := range scenario.Steps {
		if step.File != "" && !filepath.IsAbs(step.File) && basePath != "" {
			scenario.Steps[i].File = filepath.Join(basePath, step.File)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	bound := make(map[string]bool)
	for i, step := range s.Steps {
		if err := validateStep(i, step, s.Graphs); err != nil {
			return err
		}
		if step.As != "" {
			if bound[step.As] {
				return fmt.Errorf("steps[%d]: %q is already bound", i, step.As)
			}
			bound[step.As] = true
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step, graphs map[string]string) error {
	switch step.Op {
	case OpLoadSchema, OpLoadArtifact, OpUpdateArtifact,
		OpDeleteArtifact, OpRemoveSchema, OpPrune, OpUnload:
	case "":
		return fmt.Errorf("steps[%d]: op is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}

	if slices.Contains(graphOps, step.Op) {
		switch {
		case step.Graph == "" && step.File == "":
			return fmt.Errorf("steps[%d]: %s requires graph or file", i, step.Op)
		case step.Graph != "" && step.File != "":
			return fmt.Errorf("steps[%d]: graph and file are mutually exclusive", i)
		case step.Graph != "":
			if _, ok := graphs[step.Graph]; !ok {
				return fmt.Errorf("steps[%d]: graph %q is not defined", i, step.Graph)
			}
		default:
			if _, err := os.Stat(step.File); err != nil {
				return fmt.Errorf("steps[%d]: file not found: %s", i, step.File)
			}
		}
		if step.Format != "" {
			if _, err := rdf.ParseFormat(step.Format); err != nil {
				return fmt.Errorf("steps[%d]: %w", i, err)
			}
		}
	}

	if slices.Contains(identityOps, step.Op) && step.Identity == "" {
		return fmt.Errorf("steps[%d]: %s requires identity", i, step.Op)
	}

	if step.Op == OpUpdateArtifact {
		if err := lifecycle.ValidateMode(lifecycle.Mode(step.Mode)); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		if err := lifecycle.ValidateDanglingPolicy(lifecycle.DanglingPolicy(step.Dangling)); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	if step.Expect != nil && step.Expect.Code == "" {
		return fmt.Errorf("steps[%d].expect: code is required", i)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertCurrent:
		if a.Identity == "" {
			return fmt.Errorf("assertions[%d]: identity is required for current", index)
		}
	case AssertState:
		if a.Identity == "" {
			return fmt.Errorf("assertions[%d]: identity is required for state", index)
		}
		switch model.State(a.State) {
		case model.StateUnmanaged, model.StateActive, model.StateRemoved:
		default:
			return fmt.Errorf("assertions[%d]: unknown state %q", index, a.State)
		}
	case AssertContains, AssertNotContains:
		if a.IRI == "" || a.Statement == "" {
			return fmt.Errorf("assertions[%d]: iri and statement are required for %s", index, a.Type)
		}
	case AssertTraceContains, AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for %s", index, a.Type)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
