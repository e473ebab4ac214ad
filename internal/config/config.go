// Package config loads ontoreg runtime configuration.
//
// Values come from, in increasing precedence: built-in defaults, an optional
// .ontoreg.yaml, ONTOREG_* environment variables, and CLI flags bound by the
// cli package.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ONTOREG_DB.
const EnvPrefix = "ONTOREG"

// Keys shared with the CLI's flag bindings.
const (
	KeyDB               = "db"
	KeyTempPrefix       = "temp_prefix"
	KeyArtifactBase     = "artifact_base"
	KeyReasoningTimeout = "reasoning_timeout"
	KeyProfile          = "profile"
	KeyMetricsAddr      = "metrics_addr"
	KeyVerbose          = "verbose"
	KeyFormat           = "format"
	KeyWatchDebounce    = "watch.debounce"
	KeyWatchExtensions  = "watch.extensions"
)

// WatchConfig configures the directory watcher.
type WatchConfig struct {
	Debounce   time.Duration `mapstructure:"debounce"`
	Extensions []string      `mapstructure:"extensions"`
}

// Config holds all runtime configuration.
type Config struct {
	DB               string        `mapstructure:"db"`
	TempPrefix       string        `mapstructure:"temp_prefix"`
	ArtifactBase     string        `mapstructure:"artifact_base"`
	ReasoningTimeout time.Duration `mapstructure:"reasoning_timeout"`
	Profile          string        `mapstructure:"profile"`
	MetricsAddr      string        `mapstructure:"metrics_addr"`
	Verbose          bool          `mapstructure:"verbose"`
	Format           string        `mapstructure:"format"`
	Watch            WatchConfig   `mapstructure:"watch"`
}

// New returns a viper instance carrying the defaults and environment
// binding. Config files are read separately with ReadFile.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDB, "ontoreg.db")
	v.SetDefault(KeyTempPrefix, "urn:temp:")
	v.SetDefault(KeyArtifactBase, "https://w3id.org/ontoreg/artifact/")
	v.SetDefault(KeyReasoningTimeout, 30*time.Second)
	v.SetDefault(KeyProfile, "")
	v.SetDefault(KeyMetricsAddr, "")
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyFormat, "text")
	v.SetDefault(KeyWatchDebounce, 500*time.Millisecond)
	v.SetDefault(KeyWatchExtensions, []string{".ttl", ".nt", ".owl", ".rdf"})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile reads path into v. With an empty path it looks for .ontoreg.yaml
// in the working directory and then the home directory, and a missing file
// is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName(".ontoreg")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	var problems []string
	if c.DB == "" {
		problems = append(problems, "db must be set")
	}
	if c.TempPrefix == "" {
		problems = append(problems, "temp_prefix must be set")
	}
	if !strings.Contains(c.ArtifactBase, ":") {
		problems = append(problems, fmt.Sprintf("artifact_base %q is not an absolute IRI", c.ArtifactBase))
	}
	if strings.HasPrefix(c.ArtifactBase, c.TempPrefix) {
		problems = append(problems, "artifact_base must not be under temp_prefix")
	}
	if c.ReasoningTimeout < 0 {
		problems = append(problems, "reasoning_timeout must not be negative")
	}
	if c.Watch.Debounce < 0 {
		problems = append(problems, "watch.debounce must not be negative")
	}
	switch c.Format {
	case "text", "json", "yaml":
	default:
		problems = append(problems, fmt.Sprintf("format %q must be text, json or yaml", c.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
