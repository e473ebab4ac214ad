package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/ontoreg/internal/config"
	"github.com/roach88/ontoreg/internal/lifecycle"
)

// RootOptions holds global flags and the resolved configuration for all
// commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "text" | "json" | "yaml"
	ConfigFile string

	// Config is resolved from flags, environment and config file before any
	// subcommand runs.
	Config config.Config

	// Minter overrides the artifact identity minter (for testing).
	// If nil, defaults to lifecycle.UUIDv7Minter.
	Minter lifecycle.Minter

	v *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the ontoreg CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	opts.v = config.New()

	cmd := &cobra.Command{
		Use:   "ontoreg",
		Short: "ontoreg - versioned ontology register",
		Long: `ontoreg manages versioned RDF graphs: schema vocabularies and the
artifacts built on them. Every version is checked against its import
closure for profile conformance and consistency before it becomes current,
and its entailments are materialized alongside it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve()
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default .ontoreg.yaml in . or $HOME)")
	flags.String("db", "", "path to SQLite database")
	flags.Duration("timeout", 0, "reasoning timeout per operation")
	flags.String("profile", "", "path to a CUE profile (default: built-in)")

	for key, name := range map[string]string{
		config.KeyVerbose:          "verbose",
		config.KeyFormat:           "format",
		config.KeyDB:               "db",
		config.KeyReasoningTimeout: "timeout",
		config.KeyProfile:          "profile",
	} {
		_ = opts.v.BindPFlag(key, flags.Lookup(name))
	}

	// Add subcommands
	cmd.AddCommand(NewLoadSchemaCommand(opts))
	cmd.AddCommand(NewRemoveSchemaCommand(opts))
	cmd.AddCommand(NewLoadArtifactCommand(opts))
	cmd.AddCommand(NewUpdateArtifactCommand(opts))
	cmd.AddCommand(NewDeleteArtifactCommand(opts))
	cmd.AddCommand(NewCurrentCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewClosureCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewGCCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewIncrementVersionCommand(opts))

	return cmd
}

// resolve reads the config file and merges flags, environment and file into
// opts.Config.
func (opts *RootOptions) resolve() error {
	if err := config.ReadFile(opts.v, opts.ConfigFile); err != nil {
		return WrapExitError(ExitCommandError, "failed to read config", err)
	}
	cfg, err := config.Load(opts.v)
	if err != nil {
		if !isValidFormat(opts.v.GetString(config.KeyFormat)) {
			return NewExitError(ExitCommandError,
				fmt.Sprintf("invalid format %q: must be one of %v", opts.v.GetString(config.KeyFormat), ValidFormats))
		}
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	opts.Config = cfg
	opts.Format = cfg.Format
	opts.Verbose = cfg.Verbose
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
