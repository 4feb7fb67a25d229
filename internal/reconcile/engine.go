// Package reconcile merges canonical fragments into master loan states,
// running reasonableness checks and deduplication rules. Merges for one
// loan identity are serialized; different loans reconcile in parallel.
package reconcile

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mortgageiq/loanforge/internal/model"
)

// HeldFragment is a fragment parked for manual identity resolution
type HeldFragment struct {
	Fragment *model.CanonicalFragment `json:"fragment"`
	Reason   string                   `json:"reason"`
	HeldAt   time.Time                `json:"held_at"`
}

// loanState pairs a master loan state with its serialization point. All
// reads-then-writes of one loan go through this mutex.
type loanState struct {
	mu     sync.Mutex
	master *model.MasterLoanState
}

// Engine is the arena of master loan states keyed by identity
type Engine struct {
	cfg model.ReconcileConfig

	mu        sync.RWMutex
	states    map[string]*loanState
	taxIndex  map[string]string // tax id -> identity key
	loanIndex map[string]string // loan/case number -> identity key
	held      []HeldFragment
}

// NewEngine creates a reconciliation engine with the given business
// thresholds
func NewEngine(cfg model.ReconcileConfig) *Engine {
	if len(cfg.MandatoryPaths) == 0 {
		cfg.MandatoryPaths = model.DefaultMandatoryPaths
	}
	return &Engine{
		cfg:       cfg,
		states:    make(map[string]*loanState),
		taxIndex:  make(map[string]string),
		loanIndex: make(map[string]string),
	}
}

// Apply merges a fragment into its master loan state. The returned report
// always describes the outcome; an IdentityAmbiguousError additionally
// signals that the fragment was held, never merged. Per-fragment failures
// never affect other loans.
func (e *Engine) Apply(frag *model.CanonicalFragment) (*model.ReconcileReport, error) {
	report := &model.ReconcileReport{
		DocType:  frag.DocType,
		SourceID: frag.SourceID,
		MergedAt: time.Now().UTC(),
	}

	if frag.LowConfidence {
		report.Add(model.ReportEntry{
			Kind:        model.EntryLowConfidence,
			Severity:    model.SeverityWarning,
			Description: "document yielded no usable fields",
		})
	}
	for _, p := range frag.UnparsedFields {
		report.Add(model.ReportEntry{
			Kind:        model.EntryUnparsedField,
			Severity:    model.SeverityWarning,
			Paths:       []string{p},
			Description: "value could not be coerced and was kept as extracted",
		})
	}

	ls, err := e.resolve(frag, report)
	if err != nil {
		return report, err
	}
	report.Identity = ls.master.Identity

	ls.mu.Lock()
	defer ls.mu.Unlock()

	m := &merger{cfg: e.cfg, master: ls.master, frag: frag, report: report}

	// Reasonableness tests run before the merge, in a fixed order; each may
	// raise flags on the master
	m.checkIncome()
	m.checkLiabilities()
	m.checkAssetSourcing()

	m.merge()
	m.checkMandatory()

	ls.master.UpdatedAt = report.MergedAt
	ls.master.Audit = append(ls.master.Audit, model.MergeRecord{
		ID:         uuid.NewString(),
		DocType:    frag.DocType,
		SourceID:   frag.SourceID,
		MergedAt:   report.MergedAt,
		Overwrites: report.Overwrites,
		Flags:      m.flagsRaised,
	})

	e.index(ls.master, frag)
	report.Merged = true
	return report, nil
}

// State returns a snapshot of the master loan state for an identity. The
// copy is taken under the loan's merge lock, so it is safe to read and
// serialize while sibling documents for the same loan keep merging.
func (e *Engine) State(identity string) (*model.MasterLoanState, bool) {
	e.mu.RLock()
	ls, ok := e.states[identity]
	e.mu.RUnlock()
	if !ok {
		return nil, false
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return copyMaster(ls.master), true
}

// States returns a snapshot of every master loan state
func (e *Engine) States() []*model.MasterLoanState {
	e.mu.RLock()
	all := make([]*loanState, 0, len(e.states))
	for _, ls := range e.states {
		all = append(all, ls)
	}
	e.mu.RUnlock()

	out := make([]*model.MasterLoanState, 0, len(all))
	for _, ls := range all {
		ls.mu.Lock()
		out = append(out, copyMaster(ls.master))
		ls.mu.Unlock()
	}
	return out
}

// copyMaster deep-copies a master loan state through its JSON form. The
// caller holds the loan's merge lock.
func copyMaster(m *model.MasterLoanState) *model.MasterLoanState {
	data, err := json.Marshal(m)
	if err != nil {
		cp := *m
		return &cp
	}
	out := &model.MasterLoanState{}
	if err := json.Unmarshal(data, out); err != nil {
		cp := *m
		return &cp
	}
	return out
}

// Held returns the fragments parked for manual identity resolution
func (e *Engine) Held() []HeldFragment {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]HeldFragment(nil), e.held...)
}

// resolve locates (or creates) the master loan state a fragment belongs to:
// tax-id first, then explicit loan/case number, else a new state. A tax-id
// hit with a materially different name is ambiguous and holds the fragment.
func (e *Engine) resolve(frag *model.CanonicalFragment, report *model.ReconcileReport) (*loanState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, p := range frag.Canonical.Parties {
		if p.TaxID == "" || !p.Role.Persisted() {
			continue
		}
		identity, ok := e.taxIndex[p.TaxID]
		if !ok {
			continue
		}
		ls := e.states[identity]
		if conflictsWithMaster(ls.master, p) {
			return nil, e.hold(frag, report, fmt.Sprintf(
				"tax id %s matches loan %s but name %q disagrees", maskTaxID(p.TaxID), identity, p.Name.Full))
		}
		return ls, nil
	}

	for _, key := range []string{frag.Canonical.Loan.LoanNumber, frag.Canonical.Loan.CaseNumber} {
		if key == "" {
			continue
		}
		if identity, ok := e.loanIndex[key]; ok {
			return e.states[identity], nil
		}
	}

	identity := frag.LoanIdentity()
	if identity == "" {
		return nil, e.hold(frag, report, "fragment carries neither tax id nor loan/case number")
	}
	if _, exists := e.states[identity]; exists {
		return e.states[identity], nil
	}

	now := time.Now().UTC()
	ls := &loanState{master: &model.MasterLoanState{
		Identity:  identity,
		CreatedAt: now,
		UpdatedAt: now,
		State:     model.StateEmpty,
		FlagState: model.FlagStateClean,
	}}
	e.states[identity] = ls
	return ls, nil
}

// hold parks a fragment for manual resolution. Caller holds e.mu.
func (e *Engine) hold(frag *model.CanonicalFragment, report *model.ReconcileReport, reason string) error {
	e.held = append(e.held, HeldFragment{Fragment: frag, Reason: reason, HeldAt: time.Now().UTC()})
	report.Held = true
	report.Add(model.ReportEntry{
		Kind:        model.EntryIdentityHeld,
		Severity:    model.SeverityCritical,
		Description: reason,
	})
	return &model.IdentityAmbiguousError{Identity: frag.LoanIdentity(), Reason: reason}
}

// index records the fragment's identifiers so later documents find the same
// loan. Caller must not hold e.mu.
func (e *Engine) index(master *model.MasterLoanState, frag *model.CanonicalFragment) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range frag.Canonical.Parties {
		if p.TaxID != "" && p.Role.Persisted() {
			e.taxIndex[p.TaxID] = master.Identity
		}
	}
	if n := frag.Canonical.Loan.LoanNumber; n != "" {
		e.loanIndex[n] = master.Identity
	}
	if n := frag.Canonical.Loan.CaseNumber; n != "" {
		e.loanIndex[n] = master.Identity
	}
}

// conflictsWithMaster reports whether a fragment party sharing a tax id
// disagrees on the person's last name
func conflictsWithMaster(master *model.MasterLoanState, p model.Party) bool {
	for _, mp := range master.Canonical.Parties {
		if mp.TaxID != p.TaxID {
			continue
		}
		if mp.Name.Last == "" || p.Name.Last == "" {
			return false
		}
		return !strings.EqualFold(strings.TrimSpace(mp.Name.Last), strings.TrimSpace(p.Name.Last))
	}
	return false
}

func maskTaxID(s string) string {
	if len(s) <= 4 {
		return "***"
	}
	return "***-**-" + s[len(s)-4:]
}
