// Package pipeline orchestrates the document flow: envelope intake, field
// extraction, canonical assembly, reconciliation into master loan states,
// and relational projection.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mortgageiq/loanforge/internal/assemble"
	"github.com/mortgageiq/loanforge/internal/cache"
	"github.com/mortgageiq/loanforge/internal/canon"
	"github.com/mortgageiq/loanforge/internal/model"
	"github.com/mortgageiq/loanforge/internal/reconcile"
	"github.com/mortgageiq/loanforge/internal/relational"
	"github.com/mortgageiq/loanforge/internal/rules"
)

// Pipeline wires the processing stages together. One pipeline serves many
// documents; the reconciliation engine inside it accumulates master loan
// states across calls.
type Pipeline struct {
	assembler   *assemble.Assembler
	engine      *reconcile.Engine
	transformer *relational.Transformer
	fragCache   cache.Cache
	renderer    *Renderer
	config      *model.Config
}

// NewPipeline creates a pipeline from configuration. Rule sets, the scope
// table, and the schema contract are loaded once here; a bad configuration
// fails before any document is touched.
func NewPipeline(cfg *model.Config) (*Pipeline, error) {
	ruleset, err := rules.Load(cfg.Rules.Dir)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	scope := canon.BuiltinScopeTable()
	if cfg.Scope.File != "" {
		scope, err = canon.LoadScopeTable(cfg.Scope.File)
		if err != nil {
			return nil, fmt.Errorf("load scope table: %w", err)
		}
	}

	schema := relational.BuiltinSchema()
	if cfg.Relational.SchemaFile != "" {
		schema, err = relational.LoadSchema(cfg.Relational.SchemaFile)
		if err != nil {
			return nil, fmt.Errorf("load schema contract: %w", err)
		}
	}

	var fragCache cache.Cache
	if cfg.Cache.Enabled {
		fragCache = cache.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.CleanupInterval)
	}

	return &Pipeline{
		assembler:   assemble.NewAssembler(ruleset, scope, cfg.Scope.Policy),
		engine:      reconcile.NewEngine(cfg.Reconcile),
		transformer: relational.NewTransformer(schema),
		fragCache:   fragCache,
		renderer:    NewRenderer(cfg.Output.Verbose),
		config:      cfg,
	}, nil
}

// Result is the complete outcome of processing one envelope
type Result struct {
	Fragment *model.CanonicalFragment `json:"fragment"`
	Report   *model.ReconcileReport   `json:"report"`
	Master   *model.MasterLoanState   `json:"master,omitempty"`
	Rows     *model.RowSet            `json:"rows,omitempty"`
	CacheHit bool                     `json:"cache_hit,omitempty"`
}

// Process runs one envelope through the full pipeline. Scope violations
// under the reject policy and held fragments produce a result with a
// populated report, not a bare error; only configuration-level failures
// return err alone.
func (p *Pipeline) Process(ctx context.Context, env *Envelope) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1. Fold pages into a single extraction input
	text, fields := mergePages(env.Pages)

	// 2. Assemble a canonical fragment, reusing the cached one for a
	// resubmission of identical content
	frag, outcome, cacheHit, err := p.assembleOnce(env, text, fields)
	if err != nil {
		var scopeErr *model.ScopeViolationError
		if !errors.As(err, &scopeErr) {
			return nil, err
		}
		report := &model.ReconcileReport{
			DocType:  env.DocType,
			SourceID: env.SourceID,
			MergedAt: time.Now().UTC(),
			Rejected: true,
		}
		report.Add(model.ReportEntry{
			Kind:        model.EntryScopeViolation,
			Severity:    model.SeverityCritical,
			Paths:       scopeErr.Paths,
			Description: fmt.Sprintf("document type %q may not populate these sections", env.DocType),
		})
		return &Result{Fragment: frag, Report: report, CacheHit: cacheHit}, nil
	}

	// 3. Reconcile into the master loan state
	report, mergeErr := p.engine.Apply(frag)
	if outcome != nil && len(outcome.Clipped) > 0 {
		report.Add(model.ReportEntry{
			Kind:        model.EntryScopeViolation,
			Severity:    model.SeverityWarning,
			Paths:       outcome.Clipped,
			Description: "out-of-scope sections were clipped before the merge",
		})
	}
	if mergeErr != nil {
		var ambiguous *model.IdentityAmbiguousError
		if !errors.As(mergeErr, &ambiguous) {
			return nil, mergeErr
		}
		// Fragment was held; the report already carries the reason
		return &Result{Fragment: frag, Report: report, CacheHit: cacheHit}, nil
	}

	// 4. Project a snapshot of the updated master into relational rows.
	// The snapshot is taken under the loan's merge lock, so a sibling
	// document merging concurrently cannot mutate it mid-projection.
	res := &Result{Fragment: frag, Report: report, CacheHit: cacheHit}
	if master, ok := p.engine.State(report.Identity); ok {
		res.Master = master
		rows, err := p.transformer.Project(&master.Canonical)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", report.Identity, err)
		}
		res.Rows = rows
	}
	return res, nil
}

// assembleOnce assembles a fragment, serving repeated submissions of the
// same content from the dedupe cache. The scope outcome is only available
// on a fresh assembly; a cached fragment already passed validation.
func (p *Pipeline) assembleOnce(env *Envelope, text string, fields map[string]string) (*model.CanonicalFragment, *canon.MapOutcome, bool, error) {
	key := ""
	if p.fragCache != nil {
		key = cache.DocumentKey(string(env.DocType), text+"\x00"+canonicalFields(fields))
		if data, ok := p.fragCache.Get(key); ok {
			var frag model.CanonicalFragment
			if err := json.Unmarshal(data, &frag); err == nil {
				frag.SourceID = env.SourceID
				return &frag, nil, true, nil
			}
		}
	}

	frag, outcome, err := p.assembler.Assemble(assemble.Input{
		DocType:  env.DocType,
		SourceID: env.SourceID,
		Text:     text,
		Fields:   fields,
	})
	if err != nil {
		return frag, outcome, false, err
	}
	frag.AssembledAt = time.Now().UTC()

	if p.fragCache != nil {
		if data, err := json.Marshal(frag); err == nil {
			_ = p.fragCache.Set(key, data, p.config.Cache.TTL)
		}
	}
	return frag, outcome, false, nil
}

// Engine exposes the reconciliation engine for state queries
func (p *Pipeline) Engine() *reconcile.Engine {
	return p.engine
}

// Renderer exposes the artifact renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// canonicalFields renders a flat field map deterministically for hashing
func canonicalFields(fields map[string]string) string {
	data, _ := json.Marshal(fields)
	return string(data)
}
