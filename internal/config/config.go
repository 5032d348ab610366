// Package config loads the phenoscoring run configuration (spec.md
// §6) from a YAML file plus environment overrides via spf13/viper. No
// singleton is kept: Load returns a Config value that callers pass
// explicitly, per the no-global-state design.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds every recognized phenoscoring option (spec.md §6).
type Config struct {
	ReferenceNeighborsK    int     `mapstructure:"reference_neighbors_k"`
	ReferenceMissingFactor float64 `mapstructure:"reference_missing_factor"`
	Prior                  float64 `mapstructure:"prior"`
	MinInference           float64 `mapstructure:"min_inference"`
	MinEnrichment          float64 `mapstructure:"min_enrichment"`
	FPPenalty              float64 `mapstructure:"fp_penalty"`
	Cores                  int     `mapstructure:"cores"`
	PartitionSize          int     `mapstructure:"partition_size"`
}

// Default returns the configuration used when no file or override is
// supplied.
func Default() Config {
	return Config{
		ReferenceNeighborsK:    10,
		ReferenceMissingFactor: 0.5,
		Prior:                  0.05,
		MinInference:           0.1,
		MinEnrichment:          2.0,
		FPPenalty:              1.0,
		Cores:                  1,
		PartitionSize:          50,
	}
}

// Load reads configuration from path (if non-empty) layered over
// Default(), with PHENOSCORING_-prefixed environment variables taking
// final precedence.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PHENOSCORING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("reference_neighbors_k", def.ReferenceNeighborsK)
	v.SetDefault("reference_missing_factor", def.ReferenceMissingFactor)
	v.SetDefault("prior", def.Prior)
	v.SetDefault("min_inference", def.MinInference)
	v.SetDefault("min_enrichment", def.MinEnrichment)
	v.SetDefault("fp_penalty", def.FPPenalty)
	v.SetDefault("cores", def.Cores)
	v.SetDefault("partition_size", def.PartitionSize)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the invariants named in spec.md §6.
func (c Config) Validate() error {
	switch {
	case c.ReferenceNeighborsK < 1:
		return fmt.Errorf("reference_neighbors_k must be >= 1, got %d", c.ReferenceNeighborsK)
	case c.ReferenceMissingFactor < 0 || c.ReferenceMissingFactor > 1:
		return fmt.Errorf("reference_missing_factor must be in [0,1], got %v", c.ReferenceMissingFactor)
	case c.Prior <= 0 || c.Prior >= 1:
		return fmt.Errorf("prior must be in (0,1), got %v", c.Prior)
	case c.FPPenalty < 0:
		return fmt.Errorf("fp_penalty must be >= 0, got %v", c.FPPenalty)
	case c.Cores < 1:
		return fmt.Errorf("cores must be >= 1, got %d", c.Cores)
	case c.PartitionSize < 1:
		return fmt.Errorf("partition_size must be >= 1, got %d", c.PartitionSize)
	}
	return nil
}

// YAML renders the effective configuration, for CLI inspection
// ("phenoscoring config dump").
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// NullPrior returns the prior assigned to the null reference given
// the sum of the configured non-null priors: max(prior, 1 - sum).
func (c Config) NullPrior(sumOthers float64) float64 {
	if c.Prior > 1-sumOthers {
		return c.Prior
	}
	return 1 - sumOthers
}
