package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/ontoreg/internal/errs"
	"github.com/roach88/ontoreg/internal/gate"
	"github.com/roach88/ontoreg/internal/infer"
	"github.com/roach88/ontoreg/internal/metrics"
	"github.com/roach88/ontoreg/internal/register"
	"github.com/roach88/ontoreg/internal/translate"
)

// Defaults for Orchestrator settings.
const (
	DefaultTempPrefix   = "urn:temp:"
	DefaultArtifactBase = "https://w3id.org/ontoreg/artifact/"
	DefaultTimeout      = 30 * time.Second
)

// Operation names used in logs and metrics.
const (
	OpLoadSchema     = "load_schema"
	OpLoadArtifact   = "load_artifact"
	OpUpdateArtifact = "update_artifact"
	OpDeleteArtifact = "delete_artifact"
	OpRemoveSchema   = "remove_schema"
	OpPrune          = "prune"
)

// Minter supplies fresh tokens for artifact identities.
// Implemented by UUIDv7Minter (production) and testutil minters (tests).
type Minter interface {
	Mint() string
}

// UUIDv7Minter mints time-sortable UUIDv7 tokens.
type UUIDv7Minter struct{}

// Mint returns a new hyphenated UUIDv7.
func (UUIDv7Minter) Mint() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Orchestrator implements the schema and artifact lifecycle.
//
// Thread-safety: all methods are safe for concurrent use. Writes serialize
// on the register's lock; reads run concurrently.
type Orchestrator struct {
	reg          *register.Register
	gate         *gate.Gate
	materializer *infer.Materializer
	prefix       *translate.Translator
	exact        *translate.Translator
	working      *WorkingSet

	minter       Minter
	tempPrefix   string
	artifactBase string
	timeout      time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Nil means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records operation outcomes to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithMinter sets the artifact identity minter.
// Default: UUIDv7Minter.
func WithMinter(m Minter) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.minter = m
		}
	}
}

// WithTempPrefix sets the prefix marking provisional IRIs.
// Default: "urn:temp:".
func WithTempPrefix(p string) Option {
	return func(o *Orchestrator) {
		if p != "" {
			o.tempPrefix = p
		}
	}
}

// WithArtifactBase sets the namespace artifact identities are minted under.
// Default: "https://w3id.org/ontoreg/artifact/".
func WithArtifactBase(base string) Option {
	return func(o *Orchestrator) {
		if base != "" {
			o.artifactBase = base
		}
	}
}

// WithTimeout sets the default per-operation deadline. Zero or negative
// disables it.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// New creates an Orchestrator over the register and gate.
func New(reg *register.Register, g *gate.Gate, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		reg:          reg,
		gate:         g,
		working:      NewWorkingSet(),
		minter:       UUIDv7Minter{},
		tempPrefix:   DefaultTempPrefix,
		artifactBase: DefaultArtifactBase,
		timeout:      DefaultTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	// Both option sets are statically valid.
	o.prefix, _ = translate.New(translate.DefaultOptions())
	o.exact, _ = translate.New(translate.ExactOptions())
	o.materializer = infer.New(o.logger, o.metrics)
	return o
}

// WorkingSet returns the orchestrator's in-memory graph cache.
func (o *Orchestrator) WorkingSet() *WorkingSet {
	return o.working
}

// deadline applies the call timeout, falling back to the default.
func (o *Orchestrator) deadline(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = o.timeout
	}
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// finish classifies err, then logs and records the outcome of op.
func (o *Orchestrator) finish(op, identity, version string, start time.Time, err error) error {
	// A deadline can expire in the lock wait or a store call as well as in
	// the reasoner; all of them report the same code.
	if errors.Is(err, context.DeadlineExceeded) && !errs.Is(err, errs.CodeReasoningTimeout) {
		err = errs.ReasoningTimeout(op, err)
	}
	code := string(errs.CodeOf(err))
	if err != nil && code == "" {
		code = "error"
	}
	o.metrics.RecordOperation(op, code, time.Since(start))

	if err != nil {
		o.logger.Info("operation failed", "op", op, "identity", identity, "version", version, "code", code, "error", err)
		return err
	}
	o.logger.Info("operation succeeded", "op", op, "identity", identity, "version", version)
	return nil
}
