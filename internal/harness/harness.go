package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/roach88/ontoreg/internal/errs"
	"github.com/roach88/ontoreg/internal/gate"
	"github.com/roach88/ontoreg/internal/lifecycle"
	"github.com/roach88/ontoreg/internal/model"
	"github.com/roach88/ontoreg/internal/profile"
	"github.com/roach88/ontoreg/internal/rdf"
	"github.com/roach88/ontoreg/internal/reasoner"
	"github.com/roach88/ontoreg/internal/register"
	"github.com/roach88/ontoreg/internal/store"
	"github.com/roach88/ontoreg/internal/testutil"
)

// Harness executes one scenario against a private register.
type Harness struct {
	store  *store.Store
	orch   *lifecycle.Orchestrator
	logger *slog.Logger
	graphs map[string]string
	vars   map[string]string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with the built-in
// profile and reasoner and a sequence minter, so artifact identities are
// predictable.
//
// Execution flow:
// 1. Create fresh in-memory database and wire the orchestrator
// 2. Execute steps, checking each against its expect clause
// 3. Record the final current pointers
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := register.New(st, logger, nil)
	g := gate.New(profile.Default(), reasoner.New(), gate.WithLogger(logger))
	orch := lifecycle.New(reg, g,
		lifecycle.WithLogger(logger),
		lifecycle.WithMinter(testutil.NewSequenceMinter()),
	)

	h := &Harness{
		store:  st,
		orch:   orch,
		logger: logger,
		graphs: scenario.Graphs,
		vars:   make(map[string]string),
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i+1, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	if err := h.snapshot(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}

	actx := &AssertionContext{Ctx: ctx, Orch: orch, Expand: h.expand}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// expand substitutes ${name} and ${name.version} bindings.
func (h *Harness) expand(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, func(key string) string {
		if v, ok := h.vars[key]; ok {
			return v
		}
		return "${" + key + "}"
	})
}

// input returns the document and format of a graph step.
func (h *Harness) input(step Step) ([]byte, rdf.Format, error) {
	if step.File != "" {
		data, err := os.ReadFile(step.File)
		if err != nil {
			return nil, "", err
		}
		if step.Format != "" {
			f, err := rdf.ParseFormat(step.Format)
			return data, f, err
		}
		f, err := rdf.FormatFromPath(step.File)
		return data, f, err
	}
	format := rdf.NTriples
	if step.Format != "" {
		f, err := rdf.ParseFormat(step.Format)
		if err != nil {
			return nil, "", err
		}
		format = f
	}
	return []byte(h.graphs[step.Graph]), format, nil
}

// executeStep runs one operation, records it in the trace and checks it
// against the step's expect clause. Operation failures are outcomes, not
// errors; only harness faults are returned.
func (h *Harness) executeStep(ctx context.Context, n int, step Step, result *Result) error {
	identity := h.expand(step.Identity)
	var (
		v       model.Version
		removed *bool
		opErr   error
	)

	switch step.Op {
	case OpLoadSchema, OpLoadArtifact, OpUpdateArtifact:
		data, format, err := h.input(step)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		switch step.Op {
		case OpLoadSchema:
			v, opErr = h.orch.LoadSchema(ctx, data, format, lifecycle.SchemaOptions{VersionHint: h.expand(step.VersionHint)})
		case OpLoadArtifact:
			v, opErr = h.orch.LoadArtifact(ctx, data, format, lifecycle.ArtifactOptions{})
		default:
			v, opErr = h.orch.UpdateArtifact(ctx, lifecycle.UpdateRequest{
				Identity:    identity,
				BaseVersion: h.expand(step.Base),
				Edits:       data,
				Format:      format,
				Mode:        lifecycle.Mode(step.Mode),
				Dangling:    lifecycle.DanglingPolicy(step.Dangling),
			})
		}
	case OpDeleteArtifact:
		var ok bool
		ok, opErr = h.orch.DeleteArtifact(ctx, identity)
		removed = &ok
	case OpRemoveSchema:
		var ok bool
		ok, opErr = h.orch.RemoveSchema(ctx, identity)
		removed = &ok
	case OpPrune:
		_, opErr = h.orch.Prune(ctx, identity)
	case OpUnload:
		h.orch.Unload(identity)
	}

	ev := TraceEvent{Step: n, Op: step.Op, Identity: identity, Version: v.Version, Code: CodeOK}
	if v.Identity != "" {
		ev.Identity = v.Identity
	}
	if opErr != nil {
		code := errs.CodeOf(opErr)
		if code == "" {
			return fmt.Errorf("%s: unclassified failure: %w", step.Op, opErr)
		}
		ev.Code = string(code)
	}
	result.AddTrace(ev)

	if step.As != "" && opErr == nil {
		h.vars[step.As] = v.Identity
		h.vars[step.As+".version"] = v.Version
	}

	h.logger.Info("step completed", "step", n, "op", step.Op, "identity", ev.Identity, "code", ev.Code)

	want := &ExpectClause{Code: CodeOK}
	if step.Expect != nil {
		want = step.Expect
	}
	if ev.Code != want.Code {
		msg := fmt.Sprintf("step %d (%s): expected %s, got %s", n, step.Op, want.Code, ev.Code)
		if opErr != nil {
			msg += ": " + opErr.Error()
		}
		result.AddError(msg)
		return nil
	}
	if want.Version != "" && h.expand(want.Version) != v.Version {
		result.AddError(fmt.Sprintf("step %d (%s): expected version %s, got %s", n, step.Op, h.expand(want.Version), v.Version))
	}
	if want.Removed != nil && removed != nil && *want.Removed != *removed {
		result.AddError(fmt.Sprintf("step %d (%s): expected removed=%t, got %t", n, step.Op, *want.Removed, *removed))
	}
	return nil
}

// snapshot records every identity's current version, or its state when it
// has none.
func (h *Harness) snapshot(ctx context.Context, result *Result) error {
	ids, err := h.orch.Identities(ctx, "")
	if err != nil {
		return err
	}
	for _, id := range ids {
		v, ok, err := h.orch.Current(ctx, id.IRI)
		if err != nil {
			return err
		}
		if ok {
			result.Current[id.IRI] = v.Version
		} else {
			result.Current[id.IRI] = string(id.State)
		}
	}
	return nil
}
