// Package cli implements the loanforge command tree.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/mortgageiq/loanforge/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "loanforge",
	Short: "LoanForge - rule-based mortgage document extraction and reconciliation",
	Long: `LoanForge turns heterogeneous mortgage documents into a single canonical
loan representation.

Each document envelope is run through declarative extraction rules for its
document type, mapped onto the canonical model, reconciled into the master
loan state with cross-document reasonableness checks, and projected into
normalized relational rows.

LoanForge never invents data: a field a document does not state stays
empty, and a conflicting identity is held for review rather than merged.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and build information for LoanForge.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("loanforge v0.3.2")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.loanforge/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.loanforge")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match LOANFORGE_*
	viper.SetEnvPrefix("LOANFORGE")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// buildConfig assembles the runtime configuration: defaults, then config
// file and LOANFORGE_* environment, then flags applied by the caller
func buildConfig() *model.Config {
	cfg := model.DefaultConfig()

	if v := viper.GetString("rules.dir"); v != "" {
		cfg.Rules.Dir = v
	}
	if v := viper.GetString("scope.file"); v != "" {
		cfg.Scope.File = v
	}
	if v := viper.GetString("scope.policy"); v != "" {
		cfg.Scope.Policy = model.ScopePolicy(v)
	}
	if v := viper.GetString("relational.schema_file"); v != "" {
		cfg.Relational.SchemaFile = v
	}
	if viper.IsSet("reconcile.dti_reunderwrite_points") {
		cfg.Reconcile.DTIReunderwritePoints = viper.GetFloat64("reconcile.dti_reunderwrite_points")
	}
	if viper.IsSet("reconcile.large_deposit_ratio") {
		cfg.Reconcile.LargeDepositRatio = viper.GetFloat64("reconcile.large_deposit_ratio")
	}
	if v := viper.GetStringSlice("reconcile.mandatory_paths"); len(v) > 0 {
		cfg.Reconcile.MandatoryPaths = v
	}
	if viper.IsSet("concurrency.workers") {
		cfg.Concurrency.Workers = viper.GetInt("concurrency.workers")
	}
	if viper.IsSet("concurrency.intake_per_second") {
		cfg.Concurrency.IntakePerSecond = viper.GetFloat64("concurrency.intake_per_second")
	}
	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	if viper.IsSet("cache.ttl") {
		cfg.Cache.TTL = viper.GetDuration("cache.ttl")
	}
	if v := viper.GetString("output.dir"); v != "" {
		cfg.Output.Dir = v
	}
	cfg.Output.Verbose = verbose

	if cfg.Cache.CleanupInterval <= 0 {
		cfg.Cache.CleanupInterval = time.Hour
	}
	return cfg
}
