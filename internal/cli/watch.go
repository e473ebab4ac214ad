package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/ontoreg/internal/config"
	"github.com/roach88/ontoreg/internal/errs"
	"github.com/roach88/ontoreg/internal/watch"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Load schema files dropped into a directory",
		Long: `Load every schema file in a directory, then keep loading new and changed
files until interrupted. A file whose version is already recorded is
skipped; a failed load is reported and the watcher carries on.

With metrics_addr set, Prometheus metrics are served on /metrics.

Example:
  ontoreg watch --db ./ontoreg.db ./schemas
  ONTOREG_METRICS_ADDR=:9090 ontoreg watch ./schemas`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts, args[0])
		},
	}

	cmd.Flags().Duration("debounce", 0, "delay before loading changed files")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	_ = opts.v.BindPFlag(config.KeyWatchDebounce, cmd.Flags().Lookup("debounce"))
	_ = opts.v.BindPFlag(config.KeyMetricsAddr, cmd.Flags().Lookup("metrics-addr"))

	return cmd
}

func runWatch(cmd *cobra.Command, opts *WatchOptions, dir string) error {
	s, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			s.logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if addr := opts.Config.MetricsAddr; addr != "" {
		go func() {
			s.logger.Info("serving metrics", "addr", addr)
			if err := s.metrics.Serve(ctx, addr); err != nil {
				s.logger.Error("metrics server failed", "addr", addr, "error", err)
			}
		}()
	}

	cfg := watch.Config{
		Debounce:   opts.Config.Watch.Debounce,
		Extensions: opts.Config.Watch.Extensions,
	}
	w := watch.New(dir, cfg, s.orch,
		watch.WithLogger(s.logger),
		watch.OnResult(func(r watch.Result) { reportWatch(s.out, r) }),
	)

	s.logger.Info("watching", "dir", dir, "debounce", cfg.Debounce)
	if err := w.Run(ctx); err != nil {
		return s.out.Fail("watch failed", err)
	}
	s.logger.Info("watcher stopped")
	return nil
}

// WatchEvent is the structured form of one watcher load attempt.
type WatchEvent struct {
	Path     string `json:"path" yaml:"path"`
	Outcome  string `json:"outcome" yaml:"outcome"` // "published", "skipped" or an errs code
	Identity string `json:"identity,omitempty" yaml:"identity,omitempty"`
	Version  string `json:"version,omitempty" yaml:"version,omitempty"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`
}

func reportWatch(out *OutputFormatter, r watch.Result) {
	ev := WatchEvent{Path: r.Path, Identity: r.Version.Identity, Version: r.Version.Version}
	switch {
	case r.Skipped:
		ev.Outcome = "skipped"
	case r.Err != nil:
		ev.Outcome = ErrCodeCommand
		if code := errs.CodeOf(r.Err); code != "" {
			ev.Outcome = string(code)
		}
		ev.Message = r.Err.Error()
	default:
		ev.Outcome = "published"
	}

	if out.Structured() {
		_ = out.Success(ev)
		return
	}
	switch ev.Outcome {
	case "published":
		_ = out.Success(fmt.Sprintf("✓ %s: published %s", ev.Path, ev.Version))
	case "skipped":
		_ = out.Success(fmt.Sprintf("- %s: already recorded", ev.Path))
	default:
		_ = out.Success(fmt.Sprintf("✗ %s: %s", ev.Path, ev.Message))
	}
}
