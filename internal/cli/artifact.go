package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/ontoreg/internal/lifecycle"
)

// LoadArtifactOptions holds flags for the load-artifact command.
type LoadArtifactOptions struct {
	*RootOptions
	InputFormat string
}

// NewLoadArtifactCommand creates the load-artifact command.
func NewLoadArtifactCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadArtifactOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load-artifact <file>",
		Short: "Publish a new artifact",
		Long: `Publish a client graph as the first version of a new artifact.

A fresh identity is minted under artifact_base. Provisional IRIs (under
temp_prefix) are rewritten to permanent ones beneath it. Artifacts may only
import schemas; an import naming a schema version pins that version.

Example:
  ontoreg load-artifact --db ./ontoreg.db pets.ttl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			data, format, err := readGraph(args[0], opts.InputFormat)
			if err != nil {
				return out.Fail("failed to read artifact", err)
			}

			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			v, err := s.orch.LoadArtifact(cmd.Context(), data, format, lifecycle.ArtifactOptions{})
			if err != nil {
				return out.Fail("load-artifact failed", err)
			}
			return outputVersion(out, "published", v)
		},
	}

	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "", "input format (ntriples|turtle|rdfxml; default from extension)")

	return cmd
}

// UpdateArtifactOptions holds flags for the update-artifact command.
type UpdateArtifactOptions struct {
	*RootOptions
	Base        string
	Merge       bool
	ForceClean  bool
	InputFormat string
}

// NewUpdateArtifactCommand creates the update-artifact command.
func NewUpdateArtifactCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateArtifactOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update-artifact <identity> <file>",
		Short: "Publish a new version of an artifact",
		Long: `Publish a new version of an artifact from an edits graph.

By default the edits replace the current graph. With --merge, every subject
the edits mention is replaced and the rest of the current graph is kept.
Objects that the previous version described and the new one still references
without describing are dangling: they fail the update unless --force-clean
strips the references.

--base names the version the edits were made against; the update fails with
STALE_VERSION if it is no longer current.

Example:
  ontoreg update-artifact https://w3id.org/ontoreg/artifact/0190... edits.ttl \
    --base https://w3id.org/ontoreg/artifact/0190.../version%3A1 --merge`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			data, format, err := readGraph(args[1], opts.InputFormat)
			if err != nil {
				return out.Fail("failed to read edits", err)
			}

			req := lifecycle.UpdateRequest{
				Identity:    args[0],
				BaseVersion: opts.Base,
				Edits:       data,
				Format:      format,
				Mode:        lifecycle.ModeReplace,
				Dangling:    lifecycle.DanglingReport,
			}
			if opts.Merge {
				req.Mode = lifecycle.ModeMerge
			}
			if opts.ForceClean {
				req.Dangling = lifecycle.DanglingForceClean
			}

			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			v, err := s.orch.UpdateArtifact(cmd.Context(), req)
			if err != nil {
				return out.Fail("update-artifact failed", err)
			}
			return outputVersion(out, "updated", v)
		},
	}

	cmd.Flags().StringVar(&opts.Base, "base", "", "version the edits are based on (required)")
	cmd.Flags().BoolVar(&opts.Merge, "merge", false, "merge edits into the current graph instead of replacing it")
	cmd.Flags().BoolVar(&opts.ForceClean, "force-clean", false, "strip dangling references instead of failing")
	cmd.Flags().StringVar(&opts.InputFormat, "input-format", "", "input format (ntriples|turtle|rdfxml; default from extension)")
	_ = cmd.MarkFlagRequired("base")

	return cmd
}

// NewDeleteArtifactCommand creates the delete-artifact command.
func NewDeleteArtifactCommand(rootOpts *RootOptions) *cobra.Command {
	return newRemoveCommand(rootOpts, "delete-artifact", "Delete an artifact identity",
		func(cmd *cobra.Command, s *session, identity string) (bool, error) {
			return s.orch.DeleteArtifact(cmd.Context(), identity)
		})
}
