package canon

import (
	"fmt"
	"os"

	"github.com/mortgageiq/loanforge/internal/model"
	"gopkg.in/yaml.v3"
)

// ScopeTable maps each document type to the canonical sections it is
// permitted to populate. It is loaded once at startup and immutable
// afterwards; pass it explicitly, never through package state.
type ScopeTable struct {
	version string
	scopes  map[model.DocumentType]map[string]bool
}

// scopeFile is the YAML shape of a scope-table contract
type scopeFile struct {
	Version string                          `yaml:"version"`
	Scopes  map[model.DocumentType][]string `yaml:"scopes"`
}

// NewScopeTable builds a scope table from a section list per document type
func NewScopeTable(version string, scopes map[model.DocumentType][]string) (*ScopeTable, error) {
	t := &ScopeTable{version: version, scopes: make(map[model.DocumentType]map[string]bool)}
	for dt, sections := range scopes {
		if !dt.Valid() {
			return nil, &model.RuleConfigError{Reason: fmt.Sprintf("scope table: unknown document type %q", dt)}
		}
		set := make(map[string]bool, len(sections))
		for _, s := range sections {
			if !validSection(s) {
				return nil, &model.RuleConfigError{Reason: fmt.Sprintf("scope table: unknown section %q for %q", s, dt)}
			}
			set[s] = true
		}
		t.scopes[dt] = set
	}
	return t, nil
}

// LoadScopeTable reads a scope-table contract from a YAML file
func LoadScopeTable(path string) (*ScopeTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scope table: %w", err)
	}
	var sf scopeFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, &model.RuleConfigError{File: path, Reason: "invalid YAML: " + err.Error()}
	}
	return NewScopeTable(sf.Version, sf.Scopes)
}

// Version returns the contract version
func (t *ScopeTable) Version() string { return t.version }

// Allowed reports whether a document of the given type may populate the
// section the path addresses
func (t *ScopeTable) Allowed(p Path, docType model.DocumentType) bool {
	return t.AllowedSection(p.Section(), docType)
}

// AllowedSection reports whether a document type may populate a section
func (t *ScopeTable) AllowedSection(section string, docType model.DocumentType) bool {
	set, ok := t.scopes[docType]
	if !ok {
		return false
	}
	return set[section]
}

// Sections returns the allowed sections for a document type
func (t *ScopeTable) Sections(docType model.DocumentType) []string {
	var out []string
	for _, s := range model.AllSections {
		if t.scopes[docType][s] {
			out = append(out, s)
		}
	}
	return out
}

func validSection(s string) bool {
	for _, known := range model.AllSections {
		if s == known {
			return true
		}
	}
	return false
}

// BuiltinScopeTable returns the default document-scope contract
func BuiltinScopeTable() *ScopeTable {
	t, err := NewScopeTable("2024.1", map[model.DocumentType][]string{
		model.DocApplication: {
			model.SectionLoan, model.SectionTerms, model.SectionParties,
			model.SectionCollateral, model.SectionAssets,
			model.SectionLiabilities, model.SectionSummary,
		},
		model.DocBankStatement:     {model.SectionParties, model.SectionAssets},
		model.DocPayStub:           {model.SectionParties, model.SectionSummary},
		model.DocW2:                {model.SectionParties, model.SectionSummary},
		model.DocTaxReturn:         {model.SectionParties, model.SectionSummary},
		model.DocGovernmentID:      {model.SectionParties},
		model.DocSalesContract:     {model.SectionTerms, model.SectionParties, model.SectionCollateral},
		model.DocAppraisal:         {model.SectionParties, model.SectionCollateral},
		model.DocCreditReport:      {model.SectionParties, model.SectionLiabilities, model.SectionSummary},
		model.DocClosingDisclosure: {model.SectionLoan, model.SectionTerms, model.SectionDisclosures},
	})
	if err != nil {
		panic(err)
	}
	return t
}
