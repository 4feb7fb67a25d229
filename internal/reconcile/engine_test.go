package reconcile

import (
	"errors"
	"sync"
	"testing"

	"github.com/mortgageiq/loanforge/internal/model"
	"github.com/shopspring/decimal"
)

const ssn = "123-45-6789"

func testConfig() model.ReconcileConfig {
	return model.ReconcileConfig{
		DTIReunderwritePoints: 3.0,
		LargeDepositRatio:     0.5,
	}
}

func money(s string) model.Money {
	return model.MoneyFromDecimal(decimal.RequireFromString(s))
}

func borrower(name string) model.Party {
	return model.Party{
		Role:  model.RoleBorrower,
		Name:  model.PersonName{Full: name + " Smith", First: name, Last: "Smith"},
		TaxID: ssn,
	}
}

// applicationFragment stands in for the genesis document of a loan
func applicationFragment() *model.CanonicalFragment {
	p := borrower("John")
	p.BirthDate = "1980-01-01"
	p.Employment = []model.Employment{{Employer: "ACME Corp"}}
	return &model.CanonicalFragment{
		DocType:    model.DocApplication,
		SourceID:   "app-1",
		FieldCount: 9,
		Canonical: model.CanonicalDocument{
			Loan:  model.LoanIdentifiers{LoanNumber: "L-100", Purpose: "Purchase"},
			Terms: model.TransactionTerms{LoanAmount: money("250000")},
			Collateral: model.Collateral{
				Address: model.Address{Street: "12 Oak Ln", City: "Springfield", State: "IL", Zip: "62704"},
			},
			Parties: []model.Party{p},
			Liabilities: []model.Liability{
				{Creditor: "Visa", Type: "revolving", Balance: money("5000"), MonthlyPayment: money("900"), Source: "application"},
			},
			Summary: model.FinancialSummary{StatedMonthlyIncome: money("5000")},
		},
	}
}

func payStubFragment(verified string) *model.CanonicalFragment {
	p := borrower("John")
	p.Income = &model.Income{Verified: money(verified)}
	return &model.CanonicalFragment{
		DocType:    model.DocPayStub,
		SourceID:   "stub-1",
		FieldCount: 3,
		Canonical: model.CanonicalDocument{
			Parties: []model.Party{p},
			Summary: model.FinancialSummary{VerifiedMonthlyIncome: money(verified)},
		},
	}
}

func TestApplyCreatesMasterState(t *testing.T) {
	e := NewEngine(testConfig())

	report, err := e.Apply(applicationFragment())
	if err != nil {
		t.Fatal(err)
	}
	if !report.Merged {
		t.Error("report should mark the fragment merged")
	}
	if report.Identity != "tax:"+ssn {
		t.Errorf("identity = %q", report.Identity)
	}

	master, ok := e.State("tax:" + ssn)
	if !ok {
		t.Fatal("master state missing")
	}
	if master.State != model.StateReadyForClosing {
		t.Errorf("state = %s, all mandatory fields are present", master.State)
	}
	if master.FlagState != model.FlagStateClean {
		t.Errorf("flag state = %s", master.FlagState)
	}
	if len(master.Audit) != 1 || master.Audit[0].DocType != model.DocApplication {
		t.Errorf("audit = %+v", master.Audit)
	}
	// 900 / 5000
	if master.Canonical.Summary.DTI.String() != "18" {
		t.Errorf("DTI = %s", master.Canonical.Summary.DTI)
	}
}

func TestApplyIncomeVerificationOverwritesAndFlags(t *testing.T) {
	e := NewEngine(testConfig())
	if _, err := e.Apply(applicationFragment()); err != nil {
		t.Fatal(err)
	}

	// Verified income well below stated: DTI moves 18% -> 25.71%
	report, err := e.Apply(payStubFragment("3500"))
	if err != nil {
		t.Fatal(err)
	}

	master, _ := e.State("tax:" + ssn)
	if master.Canonical.Summary.StatedMonthlyIncome.String() != "3500" {
		t.Errorf("stated income = %s, want overwritten to verified", master.Canonical.Summary.StatedMonthlyIncome)
	}
	if master.Canonical.Summary.VerifiedMonthlyIncome.String() != "3500" {
		t.Errorf("verified income = %s", master.Canonical.Summary.VerifiedMonthlyIncome)
	}

	if !master.HasFlag(model.FlagReUnderwriteRequired) {
		t.Error("DTI increase beyond threshold must require re-underwriting")
	}
	if master.FlagState != model.FlagStateFlagged {
		t.Errorf("flag state = %s", master.FlagState)
	}

	var sawOverwrite bool
	for _, ow := range report.Overwrites {
		if ow.Path == "summary.stated_monthly_income" && ow.Previous == "5000" && ow.Current == "3500" {
			sawOverwrite = true
		}
	}
	if !sawOverwrite {
		t.Errorf("overwrites = %+v", report.Overwrites)
	}
}

func TestApplyIncomeVerificationWithinTolerance(t *testing.T) {
	e := NewEngine(testConfig())
	if _, err := e.Apply(applicationFragment()); err != nil {
		t.Fatal(err)
	}

	// 4800 moves DTI 18% -> 18.75%, under the 3-point threshold
	if _, err := e.Apply(payStubFragment("4800")); err != nil {
		t.Fatal(err)
	}

	master, _ := e.State("tax:" + ssn)
	if master.HasFlag(model.FlagReUnderwriteRequired) {
		t.Error("small DTI movement must not require re-underwriting")
	}
	if master.Canonical.Summary.StatedMonthlyIncome.String() != "4800" {
		t.Errorf("stated income = %s, verified still overwrites when lower", master.Canonical.Summary.StatedMonthlyIncome)
	}
}

func TestApplyGenesisProtection(t *testing.T) {
	e := NewEngine(testConfig())
	if _, err := e.Apply(applicationFragment()); err != nil {
		t.Fatal(err)
	}

	// A bank statement disagreeing on birth date fills nothing
	stmt := &model.CanonicalFragment{
		DocType:    model.DocBankStatement,
		SourceID:   "stmt-1",
		FieldCount: 2,
		Canonical: model.CanonicalDocument{
			Parties: []model.Party{{
				Role: model.RoleBorrower, TaxID: ssn,
				Name:      model.PersonName{Full: "John Smith", First: "John", Last: "Smith"},
				BirthDate: "1999-09-09",
			}},
		},
	}
	if _, err := e.Apply(stmt); err != nil {
		t.Fatal(err)
	}
	master, _ := e.State("tax:" + ssn)
	if got := master.Canonical.Parties[0].BirthDate; got != "1980-01-01" {
		t.Errorf("birth date = %q, genesis value must survive non-identity documents", got)
	}

	// A government ID is authoritative for identity fields
	gid := &model.CanonicalFragment{
		DocType:    model.DocGovernmentID,
		SourceID:   "dl-1",
		FieldCount: 3,
		Canonical: model.CanonicalDocument{
			Parties: []model.Party{{
				Role: model.RoleBorrower, TaxID: ssn,
				Name:      model.PersonName{Full: "John A. Smith", First: "John", Middle: "A.", Last: "Smith"},
				BirthDate: "1980-01-02",
				IDNumber:  "D123-456",
			}},
		},
	}
	report, err := e.Apply(gid)
	if err != nil {
		t.Fatal(err)
	}

	master, _ = e.State("tax:" + ssn)
	p := master.Canonical.Parties[0]
	if p.BirthDate != "1980-01-02" {
		t.Errorf("birth date = %q, identity verification must overwrite", p.BirthDate)
	}
	if p.Name.Full != "John A. Smith" {
		t.Errorf("name = %q", p.Name.Full)
	}
	if p.IDNumber != "D123-456" {
		t.Errorf("id number = %q", p.IDNumber)
	}
	if len(report.Overwrites) != 2 {
		t.Errorf("expected name and birth-date overwrite records, got %+v", report.Overwrites)
	}
}

func TestApplyLiabilityReconciliation(t *testing.T) {
	e := NewEngine(testConfig())
	if _, err := e.Apply(applicationFragment()); err != nil {
		t.Fatal(err)
	}

	credit := &model.CanonicalFragment{
		DocType:    model.DocCreditReport,
		SourceID:   "cr-1",
		FieldCount: 4,
		Canonical: model.CanonicalDocument{
			Parties: []model.Party{borrower("John")},
			Liabilities: []model.Liability{
				// Same tradeline with a larger balance and payment
				{Creditor: "Visa", Type: "revolving", Balance: money("8000"), MonthlyPayment: money("950")},
				// A debt the borrower never disclosed
				{Creditor: "AutoLoan Co", Type: "installment", Balance: money("14000"), MonthlyPayment: money("420")},
			},
		},
	}
	if _, err := e.Apply(credit); err != nil {
		t.Fatal(err)
	}

	master, _ := e.State("tax:" + ssn)
	if len(master.Canonical.Liabilities) != 2 {
		t.Fatalf("liabilities = %+v", master.Canonical.Liabilities)
	}
	if master.Canonical.Liabilities[0].Balance.String() != "8000" {
		t.Errorf("understated balance should be raised, got %s", master.Canonical.Liabilities[0].Balance)
	}
	if !master.HasFlag(model.FlagJustificationRequired) {
		t.Error("understated liability must require justification")
	}
	// 950 + 420 against 5000
	if master.Canonical.Summary.MonthlyDebt.String() != "1370" {
		t.Errorf("monthly debt = %s", master.Canonical.Summary.MonthlyDebt)
	}
}

func TestApplyLargeDepositSourcing(t *testing.T) {
	e := NewEngine(testConfig())
	if _, err := e.Apply(applicationFragment()); err != nil {
		t.Fatal(err)
	}

	stmt := &model.CanonicalFragment{
		DocType:    model.DocBankStatement,
		SourceID:   "stmt-1",
		FieldCount: 5,
		Canonical: model.CanonicalDocument{
			Parties: []model.Party{borrower("John")},
			Assets: []model.Asset{{
				Kind: "depository", Institution: "First National", AccountNumber: "****1234",
				Balance: money("22000"),
				Transactions: []model.Transaction{
					{Date: "2024-01-05", Description: "Payroll", Amount: money("2400"), Inbound: true},
					{Date: "2024-01-12", Description: "Wire transfer", Amount: money("18000"), Inbound: true},
					{Date: "2024-01-08", Description: "Rent", Amount: money("-1500")},
				},
			}},
		},
	}
	if _, err := e.Apply(stmt); err != nil {
		t.Fatal(err)
	}

	master, _ := e.State("tax:" + ssn)
	if !master.HasFlag(model.FlagLargeDepositFound) {
		t.Fatal("deposit above half of qualifying income must be flagged")
	}

	asset := master.Canonical.Assets[0]
	var sourcing int
	for _, tx := range asset.Transactions {
		if tx.RequiresSourcing {
			sourcing++
			if tx.Description != "Wire transfer" {
				t.Errorf("wrong transaction marked: %+v", tx)
			}
		}
	}
	if sourcing != 1 {
		t.Errorf("%d transactions marked for sourcing, want 1", sourcing)
	}
}

func TestApplyIdentityAmbiguityHolds(t *testing.T) {
	e := NewEngine(testConfig())
	if _, err := e.Apply(applicationFragment()); err != nil {
		t.Fatal(err)
	}

	conflicting := &model.CanonicalFragment{
		DocType:    model.DocW2,
		SourceID:   "w2-1",
		FieldCount: 2,
		Canonical: model.CanonicalDocument{
			Parties: []model.Party{{
				Role: model.RoleBorrower, TaxID: ssn,
				Name: model.PersonName{Full: "John Jones", First: "John", Last: "Jones"},
			}},
		},
	}
	report, err := e.Apply(conflicting)
	if err == nil {
		t.Fatal("expected identity ambiguity")
	}
	var ambErr *model.IdentityAmbiguousError
	if !errors.As(err, &ambErr) {
		t.Fatalf("expected IdentityAmbiguousError, got %T: %v", err, err)
	}

	if !report.Held || report.Merged {
		t.Errorf("report held=%v merged=%v", report.Held, report.Merged)
	}
	if len(e.Held()) != 1 {
		t.Fatalf("held fragments = %d", len(e.Held()))
	}

	// The master is untouched
	master, _ := e.State("tax:" + ssn)
	if master.Canonical.Parties[0].Name.Last != "Smith" {
		t.Errorf("master party mutated: %+v", master.Canonical.Parties[0])
	}
	if len(master.Audit) != 1 {
		t.Errorf("audit grew to %d entries", len(master.Audit))
	}
}

func TestApplyResolvesByLoanNumber(t *testing.T) {
	e := NewEngine(testConfig())
	if _, err := e.Apply(applicationFragment()); err != nil {
		t.Fatal(err)
	}

	// A closing disclosure has no parties, only the loan number
	cd := &model.CanonicalFragment{
		DocType:    model.DocClosingDisclosure,
		SourceID:   "cd-1",
		FieldCount: 3,
		Canonical: model.CanonicalDocument{
			Loan:        model.LoanIdentifiers{LoanNumber: "L-100"},
			Terms:       model.TransactionTerms{InterestRate: money("7.125"), TermMonths: 360},
			Disclosures: model.Disclosures{APR: money("7.31")},
		},
	}
	report, err := e.Apply(cd)
	if err != nil {
		t.Fatal(err)
	}
	if report.Identity != "tax:"+ssn {
		t.Errorf("disclosure joined identity %q, want the application's loan", report.Identity)
	}

	master, _ := e.State("tax:" + ssn)
	if master.Canonical.Terms.TermMonths != 360 {
		t.Errorf("term months = %d", master.Canonical.Terms.TermMonths)
	}
	if master.Canonical.Disclosures.APR.String() != "7.31" {
		t.Errorf("apr = %s", master.Canonical.Disclosures.APR)
	}
}

func TestApplyNoIdentityHolds(t *testing.T) {
	e := NewEngine(testConfig())
	frag := &model.CanonicalFragment{
		DocType:    model.DocAppraisal,
		SourceID:   "apr-1",
		FieldCount: 1,
		Canonical: model.CanonicalDocument{
			Collateral: model.Collateral{AppraisedValue: money("310000")},
		},
	}
	report, err := e.Apply(frag)
	if err == nil {
		t.Fatal("fragment without tax id or loan number cannot be placed")
	}
	if !report.Held {
		t.Error("report should mark the fragment held")
	}
	if len(e.States()) != 0 {
		t.Errorf("no master state should be created, got %d", len(e.States()))
	}
}

func TestApplyMissingMandatoryPartialState(t *testing.T) {
	e := NewEngine(testConfig())
	frag := &model.CanonicalFragment{
		DocType:    model.DocApplication,
		SourceID:   "app-1",
		FieldCount: 2,
		Canonical: model.CanonicalDocument{
			Parties: []model.Party{borrower("John")},
			Summary: model.FinancialSummary{StatedMonthlyIncome: money("5000")},
		},
	}
	report, err := e.Apply(frag)
	if err != nil {
		t.Fatal(err)
	}

	master, _ := e.State("tax:" + ssn)
	if master.State != model.StatePartiallyPopulated {
		t.Errorf("state = %s", master.State)
	}

	missing := report.MissingMandatory()
	want := map[string]bool{
		"terms.loan_amount":         true,
		"loan.purpose":              true,
		"collateral.address.street": true,
		"parties[0].employment[0]":  true,
	}
	if len(missing) != len(want) {
		t.Fatalf("missing = %v", missing)
	}
	for _, p := range missing {
		if !want[p] {
			t.Errorf("unexpected missing path %q", p)
		}
	}

	// Filling the gaps promotes the loan
	if _, err := e.Apply(applicationFragment()); err != nil {
		t.Fatal(err)
	}
	master, _ = e.State("tax:" + ssn)
	if master.State != model.StateReadyForClosing {
		t.Errorf("state = %s after all mandatory fields arrived", master.State)
	}
}

func TestApplyDeduplication(t *testing.T) {
	e := NewEngine(testConfig())
	if _, err := e.Apply(applicationFragment()); err != nil {
		t.Fatal(err)
	}

	stmt := func() *model.CanonicalFragment {
		return &model.CanonicalFragment{
			DocType:    model.DocBankStatement,
			SourceID:   "stmt-1",
			FieldCount: 4,
			Canonical: model.CanonicalDocument{
				Parties: []model.Party{borrower("John")},
				Assets: []model.Asset{{
					Kind: "depository", Institution: "First National", AccountNumber: "****1234",
					Balance: money("9000"),
					Transactions: []model.Transaction{
						{Date: "2024-01-05", Description: "Payroll", Amount: money("2400"), Inbound: true},
					},
				}},
			},
		}
	}

	if _, err := e.Apply(stmt()); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Apply(stmt()); err != nil {
		t.Fatal(err)
	}

	master, _ := e.State("tax:" + ssn)
	if len(master.Canonical.Parties) != 1 {
		t.Errorf("parties duplicated: %d", len(master.Canonical.Parties))
	}
	if len(master.Canonical.Assets) != 1 {
		t.Errorf("assets duplicated: %d", len(master.Canonical.Assets))
	}
	if got := len(master.Canonical.Assets[0].Transactions); got != 1 {
		t.Errorf("transactions duplicated: %d", got)
	}
}

func TestApplyStatementRefreshesBalance(t *testing.T) {
	e := NewEngine(testConfig())

	app := applicationFragment()
	app.Canonical.Assets = []model.Asset{{
		Institution: "First National", AccountNumber: "****1234", Balance: money("9000"),
	}}
	if _, err := e.Apply(app); err != nil {
		t.Fatal(err)
	}

	stmt := &model.CanonicalFragment{
		DocType:    model.DocBankStatement,
		SourceID:   "stmt-2",
		FieldCount: 2,
		Canonical: model.CanonicalDocument{
			Parties: []model.Party{borrower("John")},
			Assets: []model.Asset{{
				Institution: "First National", AccountNumber: "****1234", Balance: money("11250"),
			}},
		},
	}
	report, err := e.Apply(stmt)
	if err != nil {
		t.Fatal(err)
	}

	master, _ := e.State("tax:" + ssn)
	if master.Canonical.Assets[0].Balance.String() != "11250" {
		t.Errorf("balance = %s, statements carry the current figure", master.Canonical.Assets[0].Balance)
	}
	var refreshed bool
	for _, ow := range report.Overwrites {
		if ow.Path == "assets[0].balance" {
			refreshed = true
		}
	}
	if !refreshed {
		t.Errorf("balance refresh should be recorded: %+v", report.Overwrites)
	}
}

func TestApplyLowConfidenceAndUnparsedReported(t *testing.T) {
	e := NewEngine(testConfig())
	frag := applicationFragment()
	frag.LowConfidence = false
	frag.UnparsedFields = []string{"terms.sale_price"}

	report, err := e.Apply(frag)
	if err != nil {
		t.Fatal(err)
	}
	var sawUnparsed bool
	for _, entry := range report.Entries {
		if entry.Kind == model.EntryUnparsedField && len(entry.Paths) == 1 && entry.Paths[0] == "terms.sale_price" {
			sawUnparsed = true
		}
	}
	if !sawUnparsed {
		t.Errorf("entries = %+v", report.Entries)
	}
}

func TestStateReturnsDetachedSnapshot(t *testing.T) {
	e := NewEngine(testConfig())
	if _, err := e.Apply(applicationFragment()); err != nil {
		t.Fatal(err)
	}

	snap, ok := e.State("tax:" + ssn)
	if !ok {
		t.Fatal("master state missing")
	}
	snap.Canonical.Loan.LoanNumber = "L-999"
	snap.Canonical.Parties[0].Name.Full = "Somebody Else"
	snap.Canonical.Terms.LoanAmount = money("1")

	master, _ := e.State("tax:" + ssn)
	if master.Canonical.Loan.LoanNumber != "L-100" {
		t.Errorf("loan number = %q, snapshot mutation reached the master", master.Canonical.Loan.LoanNumber)
	}
	if master.Canonical.Parties[0].Name.Full != "John Smith" {
		t.Errorf("name = %q", master.Canonical.Parties[0].Name.Full)
	}
	if master.Canonical.Terms.LoanAmount.String() != "250000" {
		t.Errorf("loan amount = %s", master.Canonical.Terms.LoanAmount)
	}
}

func TestStateSnapshotSafeDuringConcurrentMerges(t *testing.T) {
	e := NewEngine(testConfig())
	if _, err := e.Apply(applicationFragment()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%2 == 0 {
				_, _ = e.Apply(payStubFragment("4500"))
				return
			}
			if m, ok := e.State("tax:" + ssn); ok {
				_ = m.Canonical.Summary.DTI.String()
				_ = len(m.Canonical.Parties)
			}
		}(i)
	}
	wg.Wait()

	master, _ := e.State("tax:" + ssn)
	if master.Canonical.Summary.VerifiedMonthlyIncome.String() != "4500" {
		t.Errorf("verified income = %s", master.Canonical.Summary.VerifiedMonthlyIncome)
	}
}
