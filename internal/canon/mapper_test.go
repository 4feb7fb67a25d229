package canon

import (
	"errors"
	"testing"

	"github.com/mortgageiq/loanforge/internal/extract"
	"github.com/mortgageiq/loanforge/internal/model"
	"github.com/mortgageiq/loanforge/internal/rules"
)

func compiled(t *testing.T, set *rules.Set) *rules.Set {
	t.Helper()
	if err := rules.Compile(set, "test"); err != nil {
		t.Fatal(err)
	}
	return set
}

func mapFields(t *testing.T, m *Mapper, docType model.DocumentType, set *rules.Set, fields map[string]string) (*MapOutcome, error) {
	t.Helper()
	res := extract.NewExtractor().Extract(set, "", fields)
	return m.Map(docType, set, res)
}

func institutionSet(t *testing.T) *rules.Set {
	return compiled(t, &rules.Set{
		DocType: model.DocBankStatement,
		Rules: []*rules.Rule{
			{ID: "institutionName", Pattern: `(?im)^\s*institution\s*name[:\s]+(.+)$`, Target: "assets[0].institution", Priority: 1},
			{ID: "bankName", Literal: "Bank:", Target: "assets[0].institution", Priority: 2},
		},
	})
}

func TestMapPriorityPreferred(t *testing.T) {
	m := NewMapper(BuiltinScopeTable(), model.ScopePolicyReject)
	set := institutionSet(t)

	out, err := mapFields(t, m, model.DocBankStatement, set, map[string]string{
		"institutionName": "First National",
		"bankName":        "FNB",
	})
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := out.Fragment.GetString(MustParsePath("assets[0].institution")); v != "First National" {
		t.Errorf("priority 1 should win, got %q", v)
	}
}

func TestMapPriorityFallback(t *testing.T) {
	m := NewMapper(BuiltinScopeTable(), model.ScopePolicyReject)
	set := institutionSet(t)

	// institutionName absent; bankName supplies the value
	out, err := mapFields(t, m, model.DocBankStatement, set, map[string]string{
		"bankName": "Wells Fargo",
	})
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := out.Fragment.GetString(MustParsePath("assets[0].institution")); v != "Wells Fargo" {
		t.Errorf("fallback rule should fill the target, got %q", v)
	}
	if len(out.Applied) != 1 || out.Applied[0] != "assets[0].institution" {
		t.Errorf("applied = %v", out.Applied)
	}
}

func TestMapNoDefaultsInjected(t *testing.T) {
	m := NewMapper(BuiltinScopeTable(), model.ScopePolicyReject)
	set := institutionSet(t)

	out, err := mapFields(t, m, model.DocBankStatement, set, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Fragment.Empty() {
		t.Errorf("no rule matched, fragment should stay empty: %v", out.Fragment.Sections())
	}
	if len(out.Applied) != 0 {
		t.Errorf("applied = %v", out.Applied)
	}
}

func TestMapPriorityTieBrokenByDeclarationOrder(t *testing.T) {
	m := NewMapper(BuiltinScopeTable(), model.ScopePolicyReject)
	set := compiled(t, &rules.Set{
		DocType: model.DocBankStatement,
		Rules: []*rules.Rule{
			{ID: "first", Literal: "First:", Target: "assets[0].institution"},
			{ID: "second", Literal: "Second:", Target: "assets[0].institution"},
		},
	})

	out, err := mapFields(t, m, model.DocBankStatement, set, map[string]string{
		"first":  "Alpha",
		"second": "Beta",
	})
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := out.Fragment.GetString(MustParsePath("assets[0].institution")); v != "Alpha" {
		t.Errorf("declaration order should break the tie, got %q", v)
	}
}

func TestMapAppliesTransform(t *testing.T) {
	m := NewMapper(BuiltinScopeTable(), model.ScopePolicyReject)
	set := compiled(t, &rules.Set{
		DocType: model.DocBankStatement,
		Rules: []*rules.Rule{
			{ID: "endingBalance", Literal: "Ending Balance:", Transform: "currency-clean", Target: "assets[0].balance"},
		},
	})

	out, err := mapFields(t, m, model.DocBankStatement, set, map[string]string{
		"endingBalance": "$12,450.98",
	})
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := out.Fragment.GetString(MustParsePath("assets[0].balance")); v != "12450.98" {
		t.Errorf("transform not applied, got %q", v)
	}
}

func TestMapScopeViolationRejects(t *testing.T) {
	m := NewMapper(BuiltinScopeTable(), model.ScopePolicyReject)
	// A bank statement rule set that also targets the loan section
	set := compiled(t, &rules.Set{
		DocType: model.DocBankStatement,
		Rules: []*rules.Rule{
			{ID: "institutionName", Literal: "Bank:", Target: "assets[0].institution"},
			{ID: "loanAmount", Literal: "Loan Amount:", Target: "loan.loan_amount"},
		},
	})

	out, err := mapFields(t, m, model.DocBankStatement, set, map[string]string{
		"institutionName": "First National",
		"loanAmount":      "250000",
	})
	if err == nil {
		t.Fatal("expected scope violation")
	}

	var scopeErr *model.ScopeViolationError
	if !errors.As(err, &scopeErr) {
		t.Fatalf("expected ScopeViolationError, got %T: %v", err, err)
	}
	if len(scopeErr.Paths) != 1 || scopeErr.Paths[0] != "loan.loan_amount" {
		t.Errorf("offending paths = %v", scopeErr.Paths)
	}

	// The offending section is clipped; in-scope data survives
	if _, ok := out.Fragment.Section(model.SectionLoan); ok {
		t.Error("fragment must not contain the loan section")
	}
	if v, _ := out.Fragment.GetString(MustParsePath("assets[0].institution")); v != "First National" {
		t.Errorf("in-scope section should survive, got %q", v)
	}
	if len(out.Clipped) != 1 || out.Clipped[0] != "loan.loan_amount" {
		t.Errorf("clipped = %v", out.Clipped)
	}
}

func TestMapScopeViolationClipPolicy(t *testing.T) {
	m := NewMapper(BuiltinScopeTable(), model.ScopePolicyClip)
	set := compiled(t, &rules.Set{
		DocType: model.DocBankStatement,
		Rules: []*rules.Rule{
			{ID: "loanAmount", Literal: "Loan Amount:", Target: "loan.loan_amount"},
		},
	})

	out, err := mapFields(t, m, model.DocBankStatement, set, map[string]string{
		"loanAmount": "250000",
	})
	if err != nil {
		t.Fatalf("clip policy should not fail the document: %v", err)
	}
	if _, ok := out.Fragment.Section(model.SectionLoan); ok {
		t.Error("clip policy should still remove the offending section")
	}
	if len(out.Clipped) != 1 {
		t.Errorf("clipped = %v", out.Clipped)
	}
}

func TestMapRepeatGroupsMutuallyExclusive(t *testing.T) {
	m := NewMapper(BuiltinScopeTable(), model.ScopePolicyReject)
	fields := map[string]string{
		"deposits_1_amount": "100",
		"credits_1_amount":  "999",
		"credits_2_amount":  "888",
	}
	set := compiled(t, &rules.Set{
		DocType: model.DocBankStatement,
		Rules: []*rules.Rule{
			{ID: "deposits", Target: "assets[0].deposits", Priority: 1, Repeat: &rules.RepeatGroup{
				Prefix: "deposits", Fields: map[string]string{"amount": "amount"},
			}},
			{ID: "credits", Target: "assets[0].deposits", Priority: 2, Repeat: &rules.RepeatGroup{
				Prefix: "credits", Fields: map[string]string{"amount": "amount"},
			}},
		},
	})

	out, err := mapFields(t, m, model.DocBankStatement, set, fields)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := out.Fragment.Get(MustParsePath("assets[0].deposits"))
	if !ok {
		t.Fatal("deposits not written")
	}
	arr := v.([]any)
	if len(arr) != 1 {
		t.Fatalf("alternative groups must not concatenate: got %d items", len(arr))
	}
	if arr[0].(map[string]any)["amount"] != "100" {
		t.Errorf("higher-priority group should win: %v", arr[0])
	}
}

func TestMapRepeatGroupFallback(t *testing.T) {
	m := NewMapper(BuiltinScopeTable(), model.ScopePolicyReject)
	set := compiled(t, &rules.Set{
		DocType: model.DocBankStatement,
		Rules: []*rules.Rule{
			{ID: "deposits", Target: "assets[0].deposits", Priority: 1, Repeat: &rules.RepeatGroup{
				Prefix: "deposits", Fields: map[string]string{"amount": "amount"},
			}},
			{ID: "credits", Target: "assets[0].deposits", Priority: 2, Repeat: &rules.RepeatGroup{
				Prefix: "credits", Fields: map[string]string{"amount": "amount"},
			}},
		},
	})

	out, err := mapFields(t, m, model.DocBankStatement, set, map[string]string{
		"credits_1_amount": "42",
	})
	if err != nil {
		t.Fatal(err)
	}
	v, _ := out.Fragment.Get(MustParsePath("assets[0].deposits"))
	arr, _ := v.([]any)
	if len(arr) != 1 || arr[0].(map[string]any)["amount"] != "42" {
		t.Errorf("fallback repeat group should populate the array: %v", arr)
	}
}

func TestScopeTableBuiltin(t *testing.T) {
	table := BuiltinScopeTable()

	if !table.AllowedSection(model.SectionAssets, model.DocBankStatement) {
		t.Error("bank statements populate assets")
	}
	if table.AllowedSection(model.SectionLoan, model.DocBankStatement) {
		t.Error("bank statements never populate loan")
	}
	if !table.AllowedSection(model.SectionDisclosures, model.DocClosingDisclosure) {
		t.Error("closing disclosures populate disclosures")
	}
	if table.AllowedSection(model.SectionAssets, model.DocGovernmentID) {
		t.Error("government ids never populate assets")
	}
}

func TestNewScopeTableValidates(t *testing.T) {
	if _, err := NewScopeTable("1", map[model.DocumentType][]string{
		"fax_cover_sheet": {model.SectionLoan},
	}); err == nil {
		t.Error("unknown document type should be rejected")
	}
	if _, err := NewScopeTable("1", map[model.DocumentType][]string{
		model.DocApplication: {"budget"},
	}); err == nil {
		t.Error("unknown section should be rejected")
	}
}
