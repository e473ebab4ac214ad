package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ontoreg/internal/model"
	"github.com/roach88/ontoreg/internal/rdf"
	"github.com/roach88/ontoreg/internal/translate"
)

// CurrentResult is the payload of the current command.
type CurrentResult struct {
	Identity string         `json:"identity" yaml:"identity"`
	State    model.State    `json:"state" yaml:"state"`
	Current  *model.Version `json:"current,omitempty" yaml:"current,omitempty"`
}

// NewCurrentCommand creates the current command.
func NewCurrentCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "current <identity>",
		Short: "Show the current version of an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			state, err := s.orch.State(ctx, args[0])
			if err != nil {
				return s.out.Fail("current failed", err)
			}
			res := CurrentResult{Identity: args[0], State: state}
			v, ok, err := s.orch.Current(ctx, args[0])
			if err != nil {
				return s.out.Fail("current failed", err)
			}
			if ok {
				res.Current = &v
			}

			if s.out.Structured() {
				return s.out.Success(res)
			}
			if !ok {
				return s.out.Success(fmt.Sprintf("%s: %s", res.Identity, res.State))
			}
			return s.out.Success(describeVersion("current", v))
		},
	}
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <identity>",
		Short: "List every recorded version of an identity",
		Long: `List every recorded version of an identity, oldest first.

Superseded versions stay addressable until gc prunes them. Versions of a
removed identity are listed as removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			vs, err := s.orch.History(ctx, args[0])
			if err != nil {
				return s.out.Fail("history failed", err)
			}
			cur, _, err := s.orch.Current(ctx, args[0])
			if err != nil {
				return s.out.Fail("history failed", err)
			}

			if s.out.Structured() {
				if vs == nil {
					vs = []model.Version{}
				}
				return s.out.Success(vs)
			}
			if len(vs) == 0 {
				return s.out.Success(fmt.Sprintf("%s: no versions", args[0]))
			}
			var b strings.Builder
			for _, v := range vs {
				mark := " "
				switch {
				case v.Removed:
					mark = "x"
				case v.Version == cur.Version:
					mark = "*"
				}
				fmt.Fprintf(&b, "%s %4d  %s  %s\n", mark, v.Seq, v.Status, v.Version)
			}
			return s.out.Success(strings.TrimSuffix(b.String(), "\n"))
		},
	}
}

// ClosureResult is the payload of the closure command.
type ClosureResult struct {
	Version string      `json:"version" yaml:"version"`
	Direct  []model.Ref `json:"direct" yaml:"direct"`
	All     []model.Ref `json:"all" yaml:"all"`
}

// NewClosureCommand creates the closure command.
func NewClosureCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "closure <identity-or-version>",
		Short: "Show the import closure a version was published against",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			cl, err := s.orch.Closure(cmd.Context(), args[0])
			if err != nil {
				return s.out.Fail("closure failed", err)
			}
			res := ClosureResult{Version: args[0], Direct: cl.Refs(), All: make([]model.Ref, 0, len(cl.All))}
			for _, v := range cl.All {
				res.All = append(res.All, v.Ref())
			}

			if s.out.Structured() {
				return s.out.Success(res)
			}
			if len(res.All) == 0 {
				return s.out.Success(fmt.Sprintf("%s imports nothing", res.Version))
			}
			direct := make(map[string]bool, len(res.Direct))
			for _, r := range res.Direct {
				direct[r.Key()] = true
			}
			var b strings.Builder
			for _, r := range res.All {
				kind := "transitive"
				if direct[r.Key()] {
					kind = "direct"
				}
				fmt.Fprintf(&b, "%-10s  %s\n", kind, r.Version)
			}
			return s.out.Success(strings.TrimSuffix(b.String(), "\n"))
		},
	}
}

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Inferred bool
}

// ExportResult is the structured payload of the export command.
type ExportResult struct {
	IRI        string `json:"iri" yaml:"iri"`
	Inferred   bool   `json:"inferred" yaml:"inferred"`
	Statements int    `json:"statements" yaml:"statements"`
	Hash       string `json:"hash" yaml:"hash"`
	NTriples   string `json:"ntriples" yaml:"ntriples"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <identity-or-version>",
		Short: "Write a version's statements as canonical N-Triples",
		Long: `Write the asserted statements of a version, or with --inferred its
materialized entailments, as canonical N-Triples: one statement per line in
sorted order. An identity IRI exports its current version.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			g, err := s.orch.Export(cmd.Context(), args[0], opts.Inferred)
			if err != nil {
				return s.out.Fail("export failed", err)
			}

			if !s.out.Structured() {
				if err := rdf.WriteNTriples(cmd.OutOrStdout(), g); err != nil {
					return WrapExitError(ExitCommandError, "failed to write output", err)
				}
				return nil
			}
			return s.out.Success(ExportResult{
				IRI:        args[0],
				Inferred:   opts.Inferred,
				Statements: g.Len(),
				Hash:       rdf.Hash(g),
				NTriples:   string(rdf.CanonicalBytes(g)),
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Inferred, "inferred", false, "export the inferred context instead of the asserted one")

	return cmd
}

// PruneResult is the payload of the gc command.
type PruneResult struct {
	Identity string   `json:"identity" yaml:"identity"`
	Pruned   []string `json:"pruned" yaml:"pruned"`
}

// NewGCCommand creates the gc command.
func NewGCCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "gc <identity>",
		Short: "Prune superseded versions no live version imports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			pruned, err := s.orch.Prune(cmd.Context(), args[0])
			if err != nil {
				return s.out.Fail("gc failed", err)
			}
			res := PruneResult{Identity: args[0], Pruned: pruned}
			if res.Pruned == nil {
				res.Pruned = []string{}
			}
			if s.out.Structured() {
				return s.out.Success(res)
			}
			if len(pruned) == 0 {
				return s.out.Success(fmt.Sprintf("%s: nothing to prune", res.Identity))
			}
			return s.out.Success(fmt.Sprintf("pruned %d version(s) of %s:\n  %s",
				len(pruned), res.Identity, strings.Join(pruned, "\n  ")))
		},
	}
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Kind string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List managed identities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			kind := model.Kind(opts.Kind)
			if kind != "" && !kind.Valid() {
				return out.Fail("invalid kind", fmt.Errorf("unknown kind %q: must be schema or artifact", opts.Kind))
			}

			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ids, err := s.orch.Identities(cmd.Context(), kind)
			if err != nil {
				return s.out.Fail("list failed", err)
			}
			if s.out.Structured() {
				if ids == nil {
					ids = []model.Identity{}
				}
				return s.out.Success(ids)
			}
			if len(ids) == 0 {
				return s.out.Success("no identities")
			}
			var b strings.Builder
			for _, id := range ids {
				fmt.Fprintf(&b, "%-8s  %-9s  %s\n", id.Kind, id.State, id.IRI)
			}
			return s.out.Success(strings.TrimSuffix(b.String(), "\n"))
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only list identities of this kind (schema|artifact)")

	return cmd
}

// NewIncrementVersionCommand creates the increment-version command.
func NewIncrementVersionCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "increment-version <iri>",
		Short: "Print the successor of a version IRI",
		Long: `Print the successor of a version IRI: its last decimal run incremented, or
"1" appended when it has none. Unsafe characters are percent-encoded;
existing escapes and the fragment marker are kept.

Example:
  ontoreg increment-version http://example.org/zoo/version:9
  # http://example.org/zoo/version%3A10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			next := translate.IncrementVersion(args[0])
			out := opts.formatter(cmd)
			if out.Structured() {
				return out.Success(map[string]string{"from": args[0], "next": next})
			}
			return out.Success(next)
		},
	}
}
