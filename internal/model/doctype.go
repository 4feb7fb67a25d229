package model

// DocumentType identifies the kind of source document a fragment came from
type DocumentType string

const (
	DocBankStatement     DocumentType = "bank_statement"
	DocPayStub           DocumentType = "pay_stub"
	DocW2                DocumentType = "w2"
	DocTaxReturn         DocumentType = "tax_return"
	DocApplication       DocumentType = "application"
	DocGovernmentID      DocumentType = "government_id"
	DocSalesContract     DocumentType = "sales_contract"
	DocAppraisal         DocumentType = "appraisal"
	DocCreditReport      DocumentType = "credit_report"
	DocClosingDisclosure DocumentType = "closing_disclosure"
)

// AllDocumentTypes lists every supported document type
var AllDocumentTypes = []DocumentType{
	DocBankStatement,
	DocPayStub,
	DocW2,
	DocTaxReturn,
	DocApplication,
	DocGovernmentID,
	DocSalesContract,
	DocAppraisal,
	DocCreditReport,
	DocClosingDisclosure,
}

// Valid reports whether t is a known document type
func (t DocumentType) Valid() bool {
	for _, dt := range AllDocumentTypes {
		if t == dt {
			return true
		}
	}
	return false
}

// IsIdentityVerification reports whether t may overwrite genesis-protected
// identity fields (name, tax-id, date of birth)
func (t DocumentType) IsIdentityVerification() bool {
	return t == DocGovernmentID
}

// IsIncomeVerification reports whether t carries verified (not stated) income
func (t DocumentType) IsIncomeVerification() bool {
	switch t {
	case DocPayStub, DocW2, DocTaxReturn:
		return true
	}
	return false
}

// IsLiabilityBearing reports whether t may introduce or revise liabilities
func (t DocumentType) IsLiabilityBearing() bool {
	return t == DocCreditReport || t == DocApplication
}

// IsAssetTransaction reports whether t carries asset/transaction activity
// subject to large-deposit sourcing checks
func (t DocumentType) IsAssetTransaction() bool {
	return t == DocBankStatement
}
