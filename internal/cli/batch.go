package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/mortgageiq/loanforge/internal/pipeline"
	"github.com/mortgageiq/loanforge/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	intakeRate   float64
	intakeBurst  int
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <manifest>",
	Short: "Process a manifest of document envelopes in parallel",
	Long: `Batch processes many document envelopes concurrently:
- Read envelope paths from a manifest file (one per line)
- Process envelopes in parallel with a configurable worker count
- Throttle intake per source system
- Write one reconciliation report per envelope plus the final master
  loan states and relational rows

Documents for the same loan are serialized by the reconciliation engine,
so batch order never corrupts a master loan state.

Example:
  loanforge batch manifest.txt
  loanforge batch manifest.txt --concurrency 8 --output-dir ./reports
  loanforge batch manifest.txt --intake-rate 5 --intake-burst 10`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./loanforge-reports", "output directory for artifacts")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().Float64Var(&intakeRate, "intake-rate", 0, "envelopes per second per intake source (0 = unlimited)")
	batchCmd.Flags().IntVar(&intakeBurst, "intake-burst", 5, "intake burst size per source")

	// Shared pipeline flags
	batchCmd.Flags().StringVar(&rulesDir, "rules-dir", "", "directory of YAML rule sets (default: built-in rules)")
	batchCmd.Flags().StringVar(&scopePolicy, "scope-policy", "", "scope violation policy: reject or clip")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the fragment dedupe cache")
}

func runBatch(cmd *cobra.Command, args []string) error {
	manifest := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  LoanForge Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Manifest:     %s\n", manifest)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	cfg := buildConfig()
	applyPipelineFlags(cfg)
	cfg.Concurrency.Workers = concurrency
	if intakeRate > 0 {
		cfg.Concurrency.IntakePerSecond = intakeRate
		cfg.Concurrency.IntakeBurst = intakeBurst
	}
	cfg.Output.Dir = outputDir

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return err
	}

	var limiter *worker.Limiter
	if cfg.Concurrency.IntakePerSecond > 0 {
		limiter = worker.NewLimiter(cfg.Concurrency.IntakePerSecond, cfg.Concurrency.IntakeBurst)
	}
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers, limiter)

	fmt.Fprintf(os.Stderr, "⚙️  Reading manifest...\n")
	results, err := processor.ProcessManifest(ctx, manifest)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "✓ Loaded %d envelopes\n", len(results))
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "⚙️  Processing with %d workers...\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "\n")

	renderer := p.Renderer()
	successCount := 0
	heldCount := 0
	rejectedCount := 0
	failureCount := 0

	for _, res := range results {
		if res.Err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", res.Path, res.Err)
			continue
		}

		switch {
		case res.Result.Report.Rejected:
			rejectedCount++
		case res.Result.Report.Held:
			heldCount++
		default:
			successCount++
		}

		reportPath := artifactPath(outputDir, res.Path, "report")
		if err := renderer.RenderJSON(res.Result.Report, reportPath); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: write report: %v\n", res.Path, err)
			continue
		}
		renderer.RenderSummary(res.Result)
	}

	// Final master states and rows, one file per loan
	for _, master := range p.Engine().States() {
		slug := sanitizeFilename(master.Identity)
		if err := renderer.RenderJSON(master, filepath.Join(outputDir, slug+".master.json")); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: write master: %v\n", master.Identity, err)
		}
	}
	if held := p.Engine().Held(); len(held) > 0 {
		if err := renderer.RenderJSON(held, filepath.Join(outputDir, "held-fragments.json")); err != nil {
			fmt.Fprintf(os.Stderr, "✗ write held fragments: %v\n", err)
		}
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d envelopes\n", len(results))
	fmt.Fprintf(os.Stderr, "  Merged:    %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Held:      %d\n", heldCount)
	fmt.Fprintf(os.Stderr, "  Rejected:  %d\n", rejectedCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Loans:     %d\n", len(p.Engine().States()))
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// sanitizeFilename sanitizes a loan identity for use as a filename
func sanitizeFilename(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) > 100 {
		out = out[:100]
	}
	return string(out)
}
