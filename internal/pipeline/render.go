package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mortgageiq/loanforge/internal/model"
)

// Renderer writes pipeline artifacts to disk and prints run summaries
type Renderer struct {
	verbose bool
}

// NewRenderer creates a new artifact renderer
func NewRenderer(verbose bool) *Renderer {
	return &Renderer{verbose: verbose}
}

// RenderJSON writes any artifact as indented JSON
func (r *Renderer) RenderJSON(v any, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if r.verbose {
		fmt.Printf("✓ Wrote %s\n", path)
	}
	return nil
}

// RenderSummary prints a one-screen outcome of a processed envelope
func (r *Renderer) RenderSummary(res *Result) {
	rep := res.Report
	status := "merged"
	switch {
	case rep.Rejected:
		status = "rejected"
	case rep.Held:
		status = "held"
	case !rep.Merged:
		status = "skipped"
	}

	fmt.Printf("%s %s: %s", rep.DocType, rep.SourceID, status)
	if rep.Identity != "" {
		fmt.Printf(" -> %s", rep.Identity)
	}
	if res.CacheHit {
		fmt.Print(" (cached)")
	}
	fmt.Println()

	if res.Master != nil {
		fmt.Printf("  state: %s / %s\n", res.Master.State, res.Master.FlagState)
	}
	for _, e := range rep.Entries {
		if e.Severity == model.SeverityInfo && !r.verbose {
			continue
		}
		fmt.Printf("  [%s] %s: %s", e.Severity, e.Kind, e.Description)
		if len(e.Paths) > 0 {
			fmt.Printf(" (%v)", e.Paths)
		}
		fmt.Println()
	}
}
