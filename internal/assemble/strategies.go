package assemble

import (
	"github.com/mortgageiq/loanforge/internal/model"
	"github.com/shopspring/decimal"
)

var twelve = decimal.NewFromInt(12)

// applicationStrategy handles the loan application (URLA). It is the genesis
// source for identity fields and stated income.
type applicationStrategy struct{}

func (s *applicationStrategy) DocType() model.DocumentType { return model.DocApplication }

func (s *applicationStrategy) Finish(doc *model.CanonicalDocument) {
	expandParties(doc, borrowerRoles)

	if !doc.Summary.StatedMonthlyIncome.Missing() && len(doc.Parties) > 0 {
		if doc.Parties[0].Income == nil {
			doc.Parties[0].Income = &model.Income{}
		}
		if doc.Parties[0].Income.Stated.Missing() {
			doc.Parties[0].Income.Stated = doc.Summary.StatedMonthlyIncome
		}
	}

	for i := range doc.Liabilities {
		if doc.Liabilities[i].Source == "" {
			doc.Liabilities[i].Source = string(model.DocApplication)
		}
	}
}

// bankStatementStrategy handles depository statements with their
// deposit/withdrawal activity
type bankStatementStrategy struct{}

func (s *bankStatementStrategy) DocType() model.DocumentType { return model.DocBankStatement }

func (s *bankStatementStrategy) Finish(doc *model.CanonicalDocument) {
	expandParties(doc, borrowerRoles)

	owner := ""
	if len(doc.Parties) > 0 {
		owner = doc.Parties[0].Name.Full
	}
	for i := range doc.Assets {
		if doc.Assets[i].Kind == "" {
			doc.Assets[i].Kind = "depository"
		}
		if doc.Assets[i].Owner == "" {
			doc.Assets[i].Owner = owner
		}
	}
}

// payStubStrategy derives verified monthly income from current-period
// figures
type payStubStrategy struct{}

func (s *payStubStrategy) DocType() model.DocumentType { return model.DocPayStub }

func (s *payStubStrategy) Finish(doc *model.CanonicalDocument) {
	expandParties(doc, borrowerRoles)
	if len(doc.Parties) == 0 || len(doc.Parties[0].Employment) == 0 {
		return
	}

	emp := doc.Parties[0].Employment[0]
	verified := addMoney(emp.MonthlyIncome, emp.Overtime)
	setVerifiedIncome(doc, verified)
}

// w2Strategy derives verified monthly income from annual wages
type w2Strategy struct{}

func (s *w2Strategy) DocType() model.DocumentType { return model.DocW2 }

func (s *w2Strategy) Finish(doc *model.CanonicalDocument) {
	expandParties(doc, borrowerRoles)
	setVerifiedIncome(doc, annualToMonthly(doc))
}

// taxReturnStrategy derives verified monthly income from adjusted gross
// income
type taxReturnStrategy struct{}

func (s *taxReturnStrategy) DocType() model.DocumentType { return model.DocTaxReturn }

func (s *taxReturnStrategy) Finish(doc *model.CanonicalDocument) {
	expandParties(doc, borrowerRoles)
	setVerifiedIncome(doc, annualToMonthly(doc))
}

// governmentIDStrategy handles identity-verification documents
type governmentIDStrategy struct{}

func (s *governmentIDStrategy) DocType() model.DocumentType { return model.DocGovernmentID }

func (s *governmentIDStrategy) Finish(doc *model.CanonicalDocument) {
	expandParties(doc, borrowerRoles)
}

// salesContractStrategy assigns buyer and seller roles: the first party
// field holds buyers, the second sellers
type salesContractStrategy struct{}

func (s *salesContractStrategy) DocType() model.DocumentType { return model.DocSalesContract }

func (s *salesContractStrategy) Finish(doc *model.CanonicalDocument) {
	expandParties(doc, func(index int) (model.Role, model.Role) {
		if index == 0 {
			return model.RoleBorrower, model.RoleCoBorrower
		}
		return model.RoleSeller, model.RoleSeller
	})
}

// appraisalStrategy tags its parties as appraisers
type appraisalStrategy struct{}

func (s *appraisalStrategy) DocType() model.DocumentType { return model.DocAppraisal }

func (s *appraisalStrategy) Finish(doc *model.CanonicalDocument) {
	expandParties(doc, func(int) (model.Role, model.Role) {
		return model.RoleAppraiser, model.RoleAppraiser
	})
}

// creditReportStrategy tags liabilities with their source
type creditReportStrategy struct{}

func (s *creditReportStrategy) DocType() model.DocumentType { return model.DocCreditReport }

func (s *creditReportStrategy) Finish(doc *model.CanonicalDocument) {
	expandParties(doc, borrowerRoles)
	for i := range doc.Liabilities {
		if doc.Liabilities[i].Source == "" {
			doc.Liabilities[i].Source = string(model.DocCreditReport)
		}
	}
}

// closingDisclosureStrategy carries no parties; terms and disclosures pass
// through the generic decode
type closingDisclosureStrategy struct{}

func (s *closingDisclosureStrategy) DocType() model.DocumentType { return model.DocClosingDisclosure }

func (s *closingDisclosureStrategy) Finish(doc *model.CanonicalDocument) {}

// annualToMonthly converts the first party's annual wages to a monthly
// figure, rounded to cents
func annualToMonthly(doc *model.CanonicalDocument) model.Money {
	if len(doc.Parties) == 0 || doc.Parties[0].Income == nil {
		return model.Money{}
	}
	annual := doc.Parties[0].Income.AnnualWages
	if annual.Missing() {
		return model.Money{}
	}
	return model.MoneyFromDecimal(annual.Amount.Div(twelve).Round(2))
}

// setVerifiedIncome records a verified monthly figure on both the party and
// the financial summary
func setVerifiedIncome(doc *model.CanonicalDocument, verified model.Money) {
	if verified.Missing() || len(doc.Parties) == 0 {
		return
	}
	if doc.Parties[0].Income == nil {
		doc.Parties[0].Income = &model.Income{}
	}
	doc.Parties[0].Income.Verified = verified
	doc.Summary.VerifiedMonthlyIncome = verified
}
