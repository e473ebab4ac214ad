package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ontoreg/internal/lifecycle"
	"github.com/roach88/ontoreg/internal/model"
)

// LoadSchemaOptions holds flags for the load-schema command.
type LoadSchemaOptions struct {
	*RootOptions
	VersionHint string
	InputFormat string
}

// NewLoadSchemaCommand creates the load-schema command.
func NewLoadSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadSchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load-schema <file>",
		Short: "Publish a schema version",
		Long: `Publish a new version of a schema vocabulary.

The file must declare exactly one owl:Ontology. Its owl:versionIRI names the
new version; when it declares none, --version-hint supplies it. Imports bind
to the current version of each imported schema.

Example:
  ontoreg load-schema --db ./ontoreg.db zoo.ttl
  ontoreg load-schema zoo.nt --version-hint http://example.org/zoo/2.0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoadSchema(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.VersionHint, "version-hint", "", "version IRI to use when the file declares none")
	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "", "input format (ntriples|turtle|rdfxml; default from extension)")

	return cmd
}

func runLoadSchema(cmd *cobra.Command, opts *LoadSchemaOptions, path string) error {
	out := opts.formatter(cmd)
	data, format, err := readGraph(path, opts.InputFormat)
	if err != nil {
		return out.Fail("failed to read schema", err)
	}

	s, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	v, err := s.orch.LoadSchema(cmd.Context(), data, format, lifecycle.SchemaOptions{VersionHint: opts.VersionHint})
	if err != nil {
		return out.Fail("load-schema failed", err)
	}
	return outputVersion(out, "published", v)
}

// NewRemoveSchemaCommand creates the remove-schema command.
func NewRemoveSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return newRemoveCommand(rootOpts, "remove-schema", "Remove a schema identity",
		func(cmd *cobra.Command, s *session, identity string) (bool, error) {
			return s.orch.RemoveSchema(cmd.Context(), identity)
		})
}

// RemoveResult is the payload of remove-schema and delete-artifact.
type RemoveResult struct {
	Identity string `json:"identity" yaml:"identity"`
	Removed  bool   `json:"removed" yaml:"removed"`
}

func newRemoveCommand(opts *RootOptions, use, short string,
	remove func(*cobra.Command, *session, string) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <identity>",
		Short: short,
		Long: short + `.

The identity's current pointer and every version's statements are deleted in
one transaction. Removing an identity that is not active is a no-op.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			removed, err := remove(cmd, s, args[0])
			if err != nil {
				return s.out.Fail(use+" failed", err)
			}
			res := RemoveResult{Identity: args[0], Removed: removed}
			if s.out.Structured() {
				return s.out.Success(res)
			}
			if removed {
				return s.out.Success(fmt.Sprintf("removed %s", res.Identity))
			}
			return s.out.Success(fmt.Sprintf("%s was not active; nothing removed", res.Identity))
		},
	}
}

// outputVersion reports a published version.
func outputVersion(out *OutputFormatter, verb string, v model.Version) error {
	if out.Structured() {
		return out.Success(v)
	}
	return out.Success(describeVersion(verb, v))
}

func describeVersion(verb string, v model.Version) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ %s %s %s\n", verb, v.Kind, v.Identity)
	fmt.Fprintf(&b, "  version:  %s\n", v.Version)
	fmt.Fprintf(&b, "  status:   %s\n", v.Status)
	if v.Inferred != "" {
		fmt.Fprintf(&b, "  inferred: %s\n", v.Inferred)
	}
	for _, ref := range v.Imports {
		fmt.Fprintf(&b, "  imports:  %s\n", ref)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
