package model

import "time"

// CanonicalFragment is the canonical output of assembling one document.
// It is the unit handed to the reconciliation engine.
type CanonicalFragment struct {
	DocType     DocumentType      `json:"doc_type"`
	SourceID    string            `json:"source_id,omitempty"`
	AssembledAt time.Time         `json:"assembled_at"`
	Canonical   CanonicalDocument `json:"canonical"`

	// FieldCount is the number of canonical paths populated by the mapper.
	// A fragment with zero usable fields is still structurally valid but
	// carries the low-confidence marker.
	FieldCount     int      `json:"field_count"`
	LowConfidence  bool     `json:"low_confidence,omitempty"`
	UnparsedFields []string `json:"unparsed_fields,omitempty"`
}

// LoanIdentity returns the stable identity of the loan this fragment belongs
// to: primary-party tax-id when present, else loan/case number. Empty when
// neither is available.
func (f *CanonicalFragment) LoanIdentity() string {
	for _, p := range f.Canonical.Parties {
		if p.Role == RoleBorrower && p.TaxID != "" {
			return "tax:" + p.TaxID
		}
	}
	for _, p := range f.Canonical.Parties {
		if p.TaxID != "" && p.Role.Persisted() {
			return "tax:" + p.TaxID
		}
	}
	if n := f.Canonical.Loan.LoanNumber; n != "" {
		return "loan:" + n
	}
	if n := f.Canonical.Loan.CaseNumber; n != "" {
		return "case:" + n
	}
	return ""
}
