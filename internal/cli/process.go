package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mortgageiq/loanforge/internal/model"
	"github.com/mortgageiq/loanforge/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	outReport      string
	outMaster      string
	outRows        string
	processTimeout time.Duration
	rulesDir       string
	scopePolicy    string
	noCache        bool
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process <envelope.json>",
	Short: "Process a single document envelope through the full pipeline",
	Long: `Process runs one document envelope through extraction, canonical
mapping, reconciliation, and relational projection:
- Apply the document type's declarative extraction rules
- Map extracted values onto the canonical loan model
- Merge the fragment into the master loan state with reasonableness checks
- Project the updated master into normalized relational rows

Example:
  loanforge process statement.json
  loanforge process statement.json --report report.json --master master.json
  loanforge process urla.json --rules-dir ./rules --scope-policy clip`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	// Output flags
	processCmd.Flags().StringVar(&outReport, "report", "report.json", "output path for the reconciliation report")
	processCmd.Flags().StringVar(&outMaster, "master", "", "output path for the master loan state (optional)")
	processCmd.Flags().StringVar(&outRows, "rows", "", "output path for the relational row set (optional)")

	// Pipeline flags
	processCmd.Flags().DurationVar(&processTimeout, "timeout", time.Minute, "overall processing timeout")
	processCmd.Flags().StringVar(&rulesDir, "rules-dir", "", "directory of YAML rule sets (default: built-in rules)")
	processCmd.Flags().StringVar(&scopePolicy, "scope-policy", "", "scope violation policy: reject or clip")
	processCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the fragment dedupe cache")
}

func runProcess(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	cfg := buildConfig()
	applyPipelineFlags(cfg)

	env, err := pipeline.LoadEnvelope(path)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Processing: %s\n", path)
		fmt.Fprintf(os.Stderr, "Document type: %s\n", env.DocType)
		fmt.Fprintf(os.Stderr, "Pages: %d\n", len(env.Pages))
		fmt.Fprintln(os.Stderr)
	}

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return err
	}

	result, err := p.Process(ctx, env)
	if err != nil {
		return fmt.Errorf("process failed: %w", err)
	}

	renderer := p.Renderer()
	if outReport != "" {
		if err := renderer.RenderJSON(result.Report, outReport); err != nil {
			return fmt.Errorf("render report: %w", err)
		}
	}
	if outMaster != "" && result.Master != nil {
		if err := renderer.RenderJSON(result.Master, outMaster); err != nil {
			return fmt.Errorf("render master: %w", err)
		}
	}
	if outRows != "" && result.Rows != nil {
		if err := renderer.RenderJSON(result.Rows, outRows); err != nil {
			return fmt.Errorf("render rows: %w", err)
		}
	}

	renderer.RenderSummary(result)
	return nil
}

// applyPipelineFlags overrides the assembled configuration with the
// process/batch command flags
func applyPipelineFlags(cfg *model.Config) {
	if rulesDir != "" {
		cfg.Rules.Dir = rulesDir
	}
	if scopePolicy != "" {
		cfg.Scope.Policy = model.ScopePolicy(strings.ToLower(scopePolicy))
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
}

// artifactPath derives an output path inside the output directory from an
// envelope path and a suffix
func artifactPath(dir, envelopePath, suffix string) string {
	base := strings.TrimSuffix(filepath.Base(envelopePath), filepath.Ext(envelopePath))
	return filepath.Join(dir, base+"."+suffix+".json")
}
