package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mortgageiq/loanforge/internal/model"
)

func newTestPipeline(t *testing.T, mutate func(*model.Config)) *Pipeline {
	t.Helper()
	cfg := model.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func applicationEnvelope(sourceID string) *Envelope {
	return &Envelope{
		DocType:  model.DocApplication,
		SourceID: sourceID,
		Source:   "lender-portal",
		Pages: []Page{{
			Number: 1,
			Text: "Borrower: John Smith\n" +
				"SSN: 123-45-6789\n" +
				"Loan Amount: $250,000.00\n" +
				"Purpose of Loan: Purchase\n" +
				"Monthly Income: $5,000.00\n",
		}},
	}
}

func TestProcessEndToEnd(t *testing.T) {
	p := newTestPipeline(t, nil)

	res, err := p.Process(context.Background(), applicationEnvelope("app-1"))
	if err != nil {
		t.Fatal(err)
	}

	if !res.Report.Merged {
		t.Errorf("report = %+v", res.Report)
	}
	if res.Report.Identity != "tax:123-45-6789" {
		t.Errorf("identity = %q", res.Report.Identity)
	}
	if res.Fragment.AssembledAt.IsZero() {
		t.Error("fragment should carry the assembly timestamp")
	}
	if res.Master == nil {
		t.Fatal("master state missing from result")
	}
	if res.Master.Canonical.Terms.LoanAmount.String() != "250000" {
		t.Errorf("loan amount = %s", res.Master.Canonical.Terms.LoanAmount)
	}
	if res.Rows == nil || len(res.Rows.Rows) == 0 {
		t.Fatal("relational rows missing from result")
	}
	if res.Rows.Rows[0].Table != model.TableApplication {
		t.Errorf("first row = %s", res.Rows.Rows[0].Table)
	}
}

func TestProcessMultiPageEnvelope(t *testing.T) {
	p := newTestPipeline(t, nil)

	env := &Envelope{
		DocType:  model.DocBankStatement,
		SourceID: "stmt-1",
		Pages: []Page{
			{
				Number: 1,
				Text:   "Bank Name: First National\nAccount Holder: John Smith\n",
				Fields: map[string]string{
					"deposits_1_amount": "$100.00",
					"deposits_2_amount": "$200.00",
				},
			},
			{
				Number: 2,
				Fields: map[string]string{
					"deposits_1_amount": "$300.00",
				},
			},
		},
	}
	res, err := p.Process(context.Background(), env)
	if err != nil {
		t.Fatal(err)
	}

	// No tax id or loan number: the fragment is held, never merged
	if !res.Report.Held {
		t.Errorf("report = %+v", res.Report)
	}
	// Page two's deposit continues page one's sequence
	asset := res.Fragment.Canonical.Assets[0]
	if len(asset.Transactions) != 3 {
		t.Fatalf("transactions = %+v", asset.Transactions)
	}
	if asset.Transactions[2].Amount.String() != "300" {
		t.Errorf("third deposit = %s", asset.Transactions[2].Amount)
	}
}

func TestProcessCacheHit(t *testing.T) {
	p := newTestPipeline(t, nil)

	first, err := p.Process(context.Background(), applicationEnvelope("app-1"))
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHit {
		t.Error("first submission cannot hit the cache")
	}

	// Identical content under a new source id is served from the cache
	second, err := p.Process(context.Background(), applicationEnvelope("app-2"))
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit {
		t.Error("resubmission of identical content should hit the cache")
	}
	if second.Fragment.SourceID != "app-2" {
		t.Errorf("source id = %q, must be re-stamped on a cache hit", second.Fragment.SourceID)
	}
}

func TestProcessCacheDisabled(t *testing.T) {
	p := newTestPipeline(t, func(cfg *model.Config) { cfg.Cache.Enabled = false })

	if _, err := p.Process(context.Background(), applicationEnvelope("app-1")); err != nil {
		t.Fatal(err)
	}
	res, err := p.Process(context.Background(), applicationEnvelope("app-2"))
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheHit {
		t.Error("cache disabled, no hit expected")
	}
}

func writeScopeViolatingRules(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	ruleset := `doc_type: bank_statement
version: "test"
rules:
  - id: institutionName
    literal: "Bank:"
    target: assets[0].institution
  - id: loanAmount
    literal: "Loan Amount:"
    target: loan.loan_amount
`
	if err := os.WriteFile(filepath.Join(dir, "bank_statement.yaml"), []byte(ruleset), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestProcessScopeViolationRejected(t *testing.T) {
	rulesDir := writeScopeViolatingRules(t)
	p := newTestPipeline(t, func(cfg *model.Config) { cfg.Rules.Dir = rulesDir })

	env := &Envelope{
		DocType:  model.DocBankStatement,
		SourceID: "stmt-1",
		Pages:    []Page{{Number: 1, Text: "Bank: First National\nLoan Amount: $250,000\n"}},
	}
	res, err := p.Process(context.Background(), env)
	if err != nil {
		t.Fatalf("rejection is a report outcome, not an error: %v", err)
	}

	if !res.Report.Rejected || res.Report.Merged {
		t.Errorf("report = %+v", res.Report)
	}
	var entry *model.ReportEntry
	for i := range res.Report.Entries {
		if res.Report.Entries[i].Kind == model.EntryScopeViolation {
			entry = &res.Report.Entries[i]
		}
	}
	if entry == nil {
		t.Fatal("rejection must name the violation")
	}
	if entry.Severity != model.SeverityCritical {
		t.Errorf("severity = %s", entry.Severity)
	}
	if len(entry.Paths) != 1 || entry.Paths[0] != "loan.loan_amount" {
		t.Errorf("paths = %v", entry.Paths)
	}

	// Nothing reached the reconciliation engine
	if len(p.Engine().States()) != 0 {
		t.Errorf("states = %d", len(p.Engine().States()))
	}
}

func TestProcessScopeViolationClipped(t *testing.T) {
	rulesDir := writeScopeViolatingRules(t)
	p := newTestPipeline(t, func(cfg *model.Config) {
		cfg.Rules.Dir = rulesDir
		cfg.Scope.Policy = model.ScopePolicyClip
	})

	env := &Envelope{
		DocType:  model.DocBankStatement,
		SourceID: "stmt-1",
		Pages:    []Page{{Number: 1, Text: "Bank: First National\nLoan Amount: $250,000\n"}},
	}
	res, err := p.Process(context.Background(), env)
	if err != nil {
		t.Fatal(err)
	}

	if res.Report.Rejected {
		t.Error("clip policy must not reject the document")
	}
	var clipped bool
	for _, e := range res.Report.Entries {
		if e.Kind == model.EntryScopeViolation && e.Severity == model.SeverityWarning {
			clipped = true
		}
	}
	if !clipped {
		t.Errorf("entries = %+v", res.Report.Entries)
	}
	if res.Fragment.Canonical.Assets[0].Institution != "First National" {
		t.Errorf("in-scope data lost: %+v", res.Fragment.Canonical)
	}
	if !res.Fragment.Canonical.Terms.LoanAmount.IsZero() {
		t.Error("out-of-scope section survived the clip")
	}
}

func TestProcessContextCancelled(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Process(ctx, applicationEnvelope("app-1")); err == nil {
		t.Error("cancelled context should abort processing")
	}
}

func TestNewPipelineBadRulesDir(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Rules.Dir = "/no/such/dir"
	if _, err := NewPipeline(cfg); err == nil {
		t.Error("bad configuration must fail pipeline construction")
	}
}

func unparsedLoanEnvelope(sourceID string) *Envelope {
	return &Envelope{
		DocType:  model.DocApplication,
		SourceID: sourceID,
		Pages: []Page{{
			Number: 1,
			Text:   "Borrower: John Smith\nSSN: 123-45-6789\nPurpose of Loan: Purchase\n",
			Fields: map[string]string{"loanAmount": "TBD"},
		}},
	}
}

func TestProcessCacheKeepsUnparsedValues(t *testing.T) {
	p := newTestPipeline(t, nil)

	assertRetained := func(t *testing.T, frag *model.CanonicalFragment) {
		t.Helper()
		amt := frag.Canonical.Terms.LoanAmount
		if !amt.Unparsed || amt.Raw != "TBD" {
			t.Errorf("loan amount = %+v, raw text must be kept as extracted", amt)
		}
		var marked bool
		for _, path := range frag.UnparsedFields {
			if path == "terms.loan_amount" {
				marked = true
			}
		}
		if !marked {
			t.Errorf("unparsed fields = %v", frag.UnparsedFields)
		}
	}

	first, err := p.Process(context.Background(), unparsedLoanEnvelope("app-1"))
	if err != nil {
		t.Fatal(err)
	}
	assertRetained(t, first.Fragment)

	// The cache round trip must return the same fragment fresh assembly did
	second, err := p.Process(context.Background(), unparsedLoanEnvelope("app-2"))
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit {
		t.Fatal("identical content should hit the cache")
	}
	assertRetained(t, second.Fragment)
}

func TestProcessConcurrentSameLoan(t *testing.T) {
	p := newTestPipeline(t, nil)
	if _, err := p.Process(context.Background(), applicationEnvelope("app-0")); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errc := make(chan error, 6)
	for i := 1; i <= 6; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := p.Process(context.Background(), applicationEnvelope(fmt.Sprintf("app-%d", n))); err != nil {
				errc <- err
			}
		}(i)
	}
	wg.Wait()
	close(errc)
	for err := range errc {
		t.Fatal(err)
	}

	master, ok := p.Engine().State("tax:123-45-6789")
	if !ok {
		t.Fatal("master state missing")
	}
	if master.Canonical.Terms.LoanAmount.String() != "250000" {
		t.Errorf("loan amount = %s", master.Canonical.Terms.LoanAmount)
	}
	if n := len(p.Engine().States()); n != 1 {
		t.Errorf("states = %d, every document belongs to one loan", n)
	}
}
