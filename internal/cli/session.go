package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ontoreg/internal/gate"
	"github.com/roach88/ontoreg/internal/lifecycle"
	"github.com/roach88/ontoreg/internal/metrics"
	"github.com/roach88/ontoreg/internal/profile"
	"github.com/roach88/ontoreg/internal/rdf"
	"github.com/roach88/ontoreg/internal/reasoner"
	"github.com/roach88/ontoreg/internal/register"
	"github.com/roach88/ontoreg/internal/store"
)

// session is the wiring one command invocation runs against.
type session struct {
	store   *store.Store
	orch    *lifecycle.Orchestrator
	metrics *metrics.Metrics
	logger  *slog.Logger
	out     *OutputFormatter
}

// formatter returns the OutputFormatter for cmd under opts.
func (opts *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// logger builds the slog logger commands log through: text on stderr, at
// Debug with --verbose.
func (opts *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// open opens the store and wires the orchestrator. The caller must Close
// the session.
func (opts *RootOptions) open(cmd *cobra.Command) (*session, error) {
	cfg := opts.Config
	out := opts.formatter(cmd)
	logger := opts.logger(cmd)

	checker := profile.Default()
	if cfg.Profile != "" {
		c, err := profile.Load(cfg.Profile)
		if err != nil {
			return nil, out.Fail("failed to load profile", err)
		}
		checker = c
	}

	logger.Debug("opening database", "path", cfg.DB)
	st, err := store.Open(cfg.DB)
	if err != nil {
		return nil, out.Fail("failed to open database", err)
	}

	m := metrics.New()
	reg := register.New(st, logger, m)
	g := gate.New(checker, reasoner.New(), gate.WithLogger(logger), gate.WithMetrics(m))

	lopts := []lifecycle.Option{
		lifecycle.WithLogger(logger),
		lifecycle.WithMetrics(m),
		lifecycle.WithTempPrefix(cfg.TempPrefix),
		lifecycle.WithArtifactBase(cfg.ArtifactBase),
		lifecycle.WithTimeout(cfg.ReasoningTimeout),
	}
	if opts.Minter != nil {
		lopts = append(lopts, lifecycle.WithMinter(opts.Minter))
	}

	return &session{
		store:   st,
		orch:    lifecycle.New(reg, g, lopts...),
		metrics: m,
		logger:  logger,
		out:     out,
	}, nil
}

// Close closes the store.
func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

// readGraph reads an RDF file, deriving its format from the extension
// unless format is set.
func readGraph(path, format string) ([]byte, rdf.Format, error) {
	var (
		f   rdf.Format
		err error
	)
	if format != "" {
		f, err = rdf.ParseFormat(format)
	} else {
		f, err = rdf.FormatFromPath(path)
	}
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return data, f, nil
}
