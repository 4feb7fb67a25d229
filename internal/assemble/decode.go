package assemble

import (
	"fmt"

	"github.com/mortgageiq/loanforge/internal/canon"
	"github.com/mortgageiq/loanforge/internal/model"
)

// decoder restructures the mapper's dynamic fragment into the typed
// canonical graph, collecting the paths whose numeric coercion failed
type decoder struct {
	unparsed []string
}

func (d *decoder) decode(frag *canon.Fragment) model.CanonicalDocument {
	var doc model.CanonicalDocument

	if m, ok := section(frag, model.SectionLoan); ok {
		doc.Loan = model.LoanIdentifiers{
			LoanNumber: str(m, "loan_number"),
			CaseNumber: str(m, "case_number"),
			Purpose:    str(m, "purpose"),
			LoanType:   str(m, "loan_type"),
		}
	}

	if m, ok := section(frag, model.SectionTerms); ok {
		doc.Terms = model.TransactionTerms{
			LoanAmount:    d.money(m, "loan_amount", "terms.loan_amount"),
			SalePrice:     d.money(m, "sale_price", "terms.sale_price"),
			InterestRate:  d.money(m, "interest_rate", "terms.interest_rate"),
			TermMonths:    CoerceInt(str(m, "term_months")),
			Product:       str(m, "product"),
			AmortType:     str(m, "amort_type"),
			ClosingDate:   str(m, "closing_date"),
			DownPayment:   d.money(m, "down_payment", "terms.down_payment"),
			EarnestMoney:  d.money(m, "earnest_money", "terms.earnest_money"),
			SellerCredits: d.money(m, "seller_credits", "terms.seller_credits"),
		}
		if doc.Terms.TermMonths == 0 {
			doc.Terms.TermMonths = 12 * CoerceInt(str(m, "term_years"))
		}
	}

	if v, ok := frag.Section(model.SectionParties); ok {
		if arr, ok := v.([]any); ok {
			for i, elem := range arr {
				m, ok := elem.(map[string]any)
				if !ok {
					continue
				}
				doc.Parties = append(doc.Parties, d.decodeParty(m, fmt.Sprintf("parties[%d]", i)))
			}
		}
	}

	if m, ok := section(frag, model.SectionCollateral); ok {
		doc.Collateral = model.Collateral{
			Address:        decodeAddress(m, "address"),
			PropertyType:   str(m, "property_type"),
			Units:          CoerceInt(str(m, "units")),
			YearBuilt:      CoerceInt(str(m, "year_built")),
			AppraisedValue: d.money(m, "appraised_value", "collateral.appraised_value"),
			AppraisalDate:  str(m, "appraisal_date"),
			Occupancy:      str(m, "occupancy"),
			LegalDesc:      str(m, "legal_description"),
		}
	}

	if m, ok := section(frag, model.SectionDisclosures); ok {
		doc.Disclosures = model.Disclosures{
			APR:            d.money(m, "apr", "disclosures.apr"),
			FinanceCharge:  d.money(m, "finance_charge", "disclosures.finance_charge"),
			AmountFinanced: d.money(m, "amount_financed", "disclosures.amount_financed"),
			TotalPayments:  d.money(m, "total_of_payments", "disclosures.total_of_payments"),
			ClosingCosts:   d.money(m, "closing_costs", "disclosures.closing_costs"),
			CashToClose:    d.money(m, "cash_to_close", "disclosures.cash_to_close"),
			IssueDate:      str(m, "issue_date"),
		}
	}

	if v, ok := frag.Section(model.SectionAssets); ok {
		if arr, ok := v.([]any); ok {
			for i, elem := range arr {
				m, ok := elem.(map[string]any)
				if !ok {
					continue
				}
				doc.Assets = append(doc.Assets, d.decodeAsset(m, fmt.Sprintf("assets[%d]", i)))
			}
		}
	}

	if v, ok := frag.Section(model.SectionLiabilities); ok {
		if arr, ok := v.([]any); ok {
			for i, elem := range arr {
				m, ok := elem.(map[string]any)
				if !ok {
					continue
				}
				doc.Liabilities = append(doc.Liabilities, d.decodeLiability(m, fmt.Sprintf("liabilities[%d]", i)))
			}
		}
	}

	if m, ok := section(frag, model.SectionSummary); ok {
		doc.Summary = model.FinancialSummary{
			StatedMonthlyIncome:   d.money(m, "stated_monthly_income", "summary.stated_monthly_income"),
			VerifiedMonthlyIncome: d.money(m, "verified_monthly_income", "summary.verified_monthly_income"),
			MonthlyDebt:           d.money(m, "monthly_debt", "summary.monthly_debt"),
			CreditScore:           CoerceInt(str(m, "credit_score")),
		}
	}

	return doc
}

func (d *decoder) decodeParty(m map[string]any, path string) model.Party {
	p := model.Party{
		TaxID:        str(m, "tax_id"),
		BirthDate:    str(m, "birth_date"),
		Phone:        str(m, "phone"),
		Email:        str(m, "email"),
		Company:      str(m, "company"),
		License:      str(m, "license"),
		IDNumber:     str(m, "id_number"),
		IDExpiration: str(m, "id_expiration"),
		IDIssuer:     str(m, "id_issuer"),
		Address:      decodeAddress(m, "address"),
	}

	if nm, ok := sub(m, "name"); ok {
		p.Name = model.PersonName{
			Full:   str(nm, "full"),
			First:  str(nm, "first"),
			Middle: str(nm, "middle"),
			Last:   str(nm, "last"),
		}
	}

	if arr, ok := m["employment"].([]any); ok {
		for i, elem := range arr {
			em, ok := elem.(map[string]any)
			if !ok {
				continue
			}
			p.Employment = append(p.Employment, d.decodeEmployment(em, fmt.Sprintf("%s.employment[%d]", path, i)))
		}
	}

	if im, ok := sub(m, "income"); ok {
		p.Income = &model.Income{
			Base:         d.money(im, "base", path+".income.base"),
			Overtime:     d.money(im, "overtime", path+".income.overtime"),
			Bonus:        d.money(im, "bonus", path+".income.bonus"),
			Other:        d.money(im, "other", path+".income.other"),
			Stated:       d.money(im, "stated", path+".income.stated"),
			Verified:     d.money(im, "verified", path+".income.verified"),
			AnnualWages:  d.money(im, "annual_wages", path+".income.annual_wages"),
			TaxYear:      str(im, "tax_year"),
			FilingStatus: str(im, "filing_status"),
		}
	}

	return p
}

func (d *decoder) decodeEmployment(m map[string]any, path string) model.Employment {
	e := model.Employment{
		Employer:   str(m, "employer"),
		Position:   str(m, "position"),
		StartDate:  str(m, "start_date"),
		YearsOnJob: str(m, "years_on_job"),
		Phone:      str(m, "phone"),
		EIN:        str(m, "ein"),
		PeriodEnd:  str(m, "period_end"),
		YTDGross:   d.money(m, "ytd_gross", path+".ytd_gross"),
		Address:    decodeAddress(m, "address"),
	}
	if im, ok := sub(m, "monthly_income"); ok {
		e.MonthlyIncome = d.money(im, "base", path+".monthly_income.base")
		e.Overtime = d.money(im, "overtime", path+".monthly_income.overtime")
	}
	return e
}

func (d *decoder) decodeAsset(m map[string]any, path string) model.Asset {
	a := model.Asset{
		Institution:   str(m, "institution"),
		AccountNumber: str(m, "account_number"),
		AccountType:   str(m, "account_type"),
		Owner:         str(m, "owner"),
		Kind:          str(m, "kind"),
		PeriodStart:   str(m, "period_start"),
		PeriodEnd:     str(m, "period_end"),
		Balance:       d.money(m, "balance", path+".balance"),
	}

	a.Transactions = append(a.Transactions,
		d.decodeTransactions(m, "deposits", path, true)...)
	a.Transactions = append(a.Transactions,
		d.decodeTransactions(m, "withdrawals", path, false)...)
	return a
}

func (d *decoder) decodeTransactions(m map[string]any, key, path string, inbound bool) []model.Transaction {
	arr, ok := m[key].([]any)
	if !ok {
		return nil
	}
	var out []model.Transaction
	for i, elem := range arr {
		tm, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, model.Transaction{
			Date:        str(tm, "date"),
			Description: str(tm, "description"),
			Amount:      d.money(tm, "amount", fmt.Sprintf("%s.%s[%d].amount", path, key, i)),
			Inbound:     inbound,
		})
	}
	return out
}

func (d *decoder) decodeLiability(m map[string]any, path string) model.Liability {
	return model.Liability{
		Creditor:       str(m, "creditor"),
		AccountNumber:  str(m, "account_number"),
		Type:           str(m, "type"),
		Balance:        d.money(m, "balance", path+".balance"),
		MonthlyPayment: d.money(m, "monthly_payment", path+".monthly_payment"),
	}
}

// money coerces a financial field, recording the path when unparsed
func (d *decoder) money(m map[string]any, key, path string) model.Money {
	raw := str(m, key)
	if raw == "" {
		return model.Money{}
	}
	money := CoerceMoney(raw)
	if money.Unparsed {
		d.unparsed = append(d.unparsed, path)
	}
	return money
}

func decodeAddress(m map[string]any, key string) model.Address {
	am, ok := sub(m, key)
	if !ok {
		return model.Address{}
	}
	return model.Address{
		Street: str(am, "street"),
		City:   str(am, "city"),
		State:  str(am, "state"),
		Zip:    str(am, "zip"),
	}
}

func section(frag *canon.Fragment, name string) (map[string]any, bool) {
	v, ok := frag.Section(name)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

func sub(m map[string]any, key string) (map[string]any, bool) {
	v, ok := m[key].(map[string]any)
	return v, ok
}

func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}
