package model

import (
	"runtime"
	"time"
)

// ScopePolicy controls what happens to a fragment that violates its
// document-type scope
type ScopePolicy string

const (
	ScopePolicyReject ScopePolicy = "reject"
	ScopePolicyClip   ScopePolicy = "clip"
)

// Config is the complete runtime configuration
type Config struct {
	Rules       RulesConfig       `mapstructure:"rules" yaml:"rules"`
	Scope       ScopeConfig       `mapstructure:"scope" yaml:"scope"`
	Reconcile   ReconcileConfig   `mapstructure:"reconcile" yaml:"reconcile"`
	Relational  RelationalConfig  `mapstructure:"relational" yaml:"relational"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency" yaml:"concurrency"`
	Cache       CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output"`
}

// RulesConfig locates the declarative rule sets
type RulesConfig struct {
	// Dir holds one YAML rule set per document type. Empty means built-in
	// defaults only.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// ScopeConfig controls document-scope validation
type ScopeConfig struct {
	// File overrides the built-in scope table
	File   string      `mapstructure:"file" yaml:"file"`
	Policy ScopePolicy `mapstructure:"policy" yaml:"policy"`
}

// ReconcileConfig carries the externally mandated business constants for the
// reasonableness checks. They are policy, not derived values.
type ReconcileConfig struct {
	// DTIReunderwritePoints is the DTI increase, in percentage points, that
	// triggers re_underwrite_required after an income overwrite
	DTIReunderwritePoints float64 `mapstructure:"dti_reunderwrite_points" yaml:"dti_reunderwrite_points"`
	// LargeDepositRatio is the fraction of qualifying monthly income above
	// which a single inbound deposit must be sourced
	LargeDepositRatio float64 `mapstructure:"large_deposit_ratio" yaml:"large_deposit_ratio"`
	// MandatoryPaths is the fixed critical-field list checked after merge
	MandatoryPaths []string `mapstructure:"mandatory_paths" yaml:"mandatory_paths"`
}

// RelationalConfig locates the relational schema contract
type RelationalConfig struct {
	// SchemaFile overrides the built-in schema contract
	SchemaFile string `mapstructure:"schema_file" yaml:"schema_file"`
}

// ConcurrencyConfig controls document-parallel processing
type ConcurrencyConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
	// IntakePerSecond throttles envelopes per intake source (0 = unlimited)
	IntakePerSecond float64 `mapstructure:"intake_per_second" yaml:"intake_per_second"`
	IntakeBurst     int     `mapstructure:"intake_burst" yaml:"intake_burst"`
}

// CacheConfig controls the fragment dedupe cache
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled" yaml:"enabled"`
	TTL             time.Duration `mapstructure:"ttl" yaml:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
}

// OutputConfig controls artifact rendering
type OutputConfig struct {
	Verbose bool   `mapstructure:"verbose" yaml:"verbose"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
}

// DefaultMandatoryPaths is the fixed critical-field list
var DefaultMandatoryPaths = []string{
	"parties[0].tax_id",
	"terms.loan_amount",
	"loan.purpose",
	"collateral.address.street",
	"parties[0].employment[0]",
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		Scope: ScopeConfig{
			Policy: ScopePolicyReject,
		},
		Reconcile: ReconcileConfig{
			DTIReunderwritePoints: 3.0,
			LargeDepositRatio:     0.5,
			MandatoryPaths:        DefaultMandatoryPaths,
		},
		Concurrency: ConcurrencyConfig{
			Workers:     runtime.NumCPU(),
			IntakeBurst: 5,
		},
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             24 * time.Hour,
			CleanupInterval: time.Hour,
		},
		Output: OutputConfig{
			Dir: "./loanforge-reports",
		},
	}
}
