package reconcile

import (
	"fmt"

	"github.com/mortgageiq/loanforge/internal/model"
	"github.com/shopspring/decimal"
)

// merge folds the fragment into the master: scalar sections fill empty
// fields only (genesis wins), joint assets/liabilities/parties merge by
// logical-identity key and are never duplicated, and identity fields are
// overwritten only by identity-verification documents.
func (m *merger) merge() {
	fillLoan(&m.master.Canonical.Loan, m.frag.Canonical.Loan)
	fillTerms(&m.master.Canonical.Terms, m.frag.Canonical.Terms)
	fillCollateral(&m.master.Canonical.Collateral, m.frag.Canonical.Collateral)
	fillDisclosures(&m.master.Canonical.Disclosures, m.frag.Canonical.Disclosures)

	m.mergeParties()
	m.mergeAssets()
	m.mergeLiabilities()
	m.recomputeSummary()

	if m.master.State == model.StateEmpty {
		m.master.State = model.StatePartiallyPopulated
	}
}

// mergeParties appends additional parties by identity key; the primary
// party is never replaced
func (m *merger) mergeParties() {
	for _, fp := range m.frag.Canonical.Parties {
		if fp.Name.Full == "" && fp.TaxID == "" {
			continue
		}
		idx := m.findParty(fp)
		if idx < 0 {
			m.master.Canonical.Parties = append(m.master.Canonical.Parties, fp)
			continue
		}
		m.mergeParty(idx, fp)
	}
}

// findParty matches by identity key, falling back to role for fragments
// whose party carries no tax id (a pay stub's employee is the borrower)
func (m *merger) findParty(fp model.Party) int {
	key := fp.IdentityKey()
	for i, mp := range m.master.Canonical.Parties {
		if mp.IdentityKey() == key {
			return i
		}
	}
	if fp.TaxID != "" {
		for i, mp := range m.master.Canonical.Parties {
			if mp.TaxID == fp.TaxID {
				return i
			}
		}
		return -1
	}
	// Same last name and a persisted role is the same person across
	// documents that mask or omit the tax id
	if fp.Role.Persisted() && fp.Name.Last != "" {
		for i, mp := range m.master.Canonical.Parties {
			if mp.Role.Persisted() && equalFold(mp.Name.Last, fp.Name.Last) && equalFold(mp.Name.First, fp.Name.First) {
				return i
			}
		}
	}
	return -1
}

func (m *merger) mergeParty(idx int, fp model.Party) {
	mp := &m.master.Canonical.Parties[idx]

	// Genesis-protected identity fields
	if m.frag.DocType.IsIdentityVerification() {
		if fp.Name.Full != "" && fp.Name.Full != mp.Name.Full && mp.Name.Full != "" {
			m.overwrite(fmt.Sprintf("parties[%d].name.full", idx), mp.Name.Full, fp.Name.Full,
				"identity verified by "+string(m.frag.DocType))
			mp.Name = fp.Name
		}
		if fp.BirthDate != "" && fp.BirthDate != mp.BirthDate && mp.BirthDate != "" {
			m.overwrite(fmt.Sprintf("parties[%d].birth_date", idx), mp.BirthDate, fp.BirthDate,
				"identity verified by "+string(m.frag.DocType))
			mp.BirthDate = fp.BirthDate
		}
		if fp.TaxID != "" && fp.TaxID != mp.TaxID && mp.TaxID != "" {
			m.overwrite(fmt.Sprintf("parties[%d].tax_id", idx), maskTaxID(mp.TaxID), maskTaxID(fp.TaxID),
				"identity verified by "+string(m.frag.DocType))
			mp.TaxID = fp.TaxID
		}
	}
	fillName(&mp.Name, fp.Name)
	fillStr(&mp.TaxID, fp.TaxID)
	fillStr(&mp.BirthDate, fp.BirthDate)

	fillStr(&mp.Phone, fp.Phone)
	fillStr(&mp.Email, fp.Email)
	fillStr(&mp.Company, fp.Company)
	fillStr(&mp.License, fp.License)
	fillStr(&mp.IDNumber, fp.IDNumber)
	fillStr(&mp.IDExpiration, fp.IDExpiration)
	fillStr(&mp.IDIssuer, fp.IDIssuer)
	fillAddress(&mp.Address, fp.Address)

	for _, fe := range fp.Employment {
		ei := findEmployment(mp.Employment, fe.Employer)
		if ei < 0 {
			mp.Employment = append(mp.Employment, fe)
			continue
		}
		me := &mp.Employment[ei]
		fillStr(&me.Position, fe.Position)
		fillStr(&me.StartDate, fe.StartDate)
		fillStr(&me.YearsOnJob, fe.YearsOnJob)
		fillStr(&me.EIN, fe.EIN)
		fillStr(&me.PeriodEnd, fe.PeriodEnd)
		fillMoney(&me.MonthlyIncome, fe.MonthlyIncome)
		fillMoney(&me.Overtime, fe.Overtime)
		fillMoney(&me.YTDGross, fe.YTDGross)
	}

	if fp.Income != nil {
		if mp.Income == nil {
			mp.Income = &model.Income{}
		}
		fillMoney(&mp.Income.Base, fp.Income.Base)
		fillMoney(&mp.Income.Overtime, fp.Income.Overtime)
		fillMoney(&mp.Income.Bonus, fp.Income.Bonus)
		fillMoney(&mp.Income.Other, fp.Income.Other)
		fillMoney(&mp.Income.Stated, fp.Income.Stated)
		fillMoney(&mp.Income.AnnualWages, fp.Income.AnnualWages)
		fillStr(&mp.Income.TaxYear, fp.Income.TaxYear)
		fillStr(&mp.Income.FilingStatus, fp.Income.FilingStatus)
		// Verified income is authoritative when present
		if !fp.Income.Verified.Missing() {
			mp.Income.Verified = fp.Income.Verified
		}
	}
}

func (m *merger) mergeAssets() {
	for _, fa := range m.frag.Canonical.Assets {
		idx := findAsset(m.master.Canonical.Assets, fa.IdentityKey())
		if idx < 0 {
			m.master.Canonical.Assets = append(m.master.Canonical.Assets, fa)
			continue
		}
		ma := &m.master.Canonical.Assets[idx]
		fillStr(&ma.AccountNumber, fa.AccountNumber)
		fillStr(&ma.AccountType, fa.AccountType)
		fillStr(&ma.Owner, fa.Owner)
		fillStr(&ma.Kind, fa.Kind)
		fillStr(&ma.PeriodStart, fa.PeriodStart)
		fillStr(&ma.PeriodEnd, fa.PeriodEnd)

		// Statements carry the current balance; other sources only fill gaps
		if m.frag.DocType.IsAssetTransaction() && !fa.Balance.Missing() &&
			!ma.Balance.Missing() && !ma.Balance.Amount.Equal(fa.Balance.Amount) {
			m.overwrite(fmt.Sprintf("assets[%d].balance", idx), ma.Balance.String(), fa.Balance.String(),
				"balance refreshed by "+string(m.frag.DocType))
			ma.Balance = fa.Balance
		} else {
			fillMoney(&ma.Balance, fa.Balance)
		}

		for _, tx := range fa.Transactions {
			if !containsTransaction(ma.Transactions, tx) {
				ma.Transactions = append(ma.Transactions, tx)
			}
		}
	}
}

func (m *merger) mergeLiabilities() {
	// Liability-bearing types already reconciled in checkLiabilities
	if m.frag.DocType.IsLiabilityBearing() {
		return
	}
	for _, fl := range m.frag.Canonical.Liabilities {
		if findLiability(m.master.Canonical.Liabilities, fl.IdentityKey()) < 0 {
			m.master.Canonical.Liabilities = append(m.master.Canonical.Liabilities, fl)
		}
	}
}

// recomputeSummary refreshes the derived qualifying figures after a merge
func (m *merger) recomputeSummary() {
	s := &m.master.Canonical.Summary
	fillMoney(&s.StatedMonthlyIncome, m.frag.Canonical.Summary.StatedMonthlyIncome)
	if cs := m.frag.Canonical.Summary.CreditScore; cs != 0 && s.CreditScore == 0 {
		s.CreditScore = cs
	}

	if len(m.master.Canonical.Liabilities) > 0 {
		total := decimal.Zero
		for _, l := range m.master.Canonical.Liabilities {
			if !l.MonthlyPayment.Unparsed {
				total = total.Add(l.MonthlyPayment.Amount)
			}
		}
		s.MonthlyDebt = model.MoneyFromDecimal(total)
	}
	if len(m.master.Canonical.Assets) > 0 {
		total := decimal.Zero
		for _, a := range m.master.Canonical.Assets {
			if !a.Balance.Unparsed {
				total = total.Add(a.Balance.Amount)
			}
		}
		s.TotalAssets = model.MoneyFromDecimal(total)
	}
	if len(m.master.Canonical.Liabilities) > 0 {
		total := decimal.Zero
		for _, l := range m.master.Canonical.Liabilities {
			if !l.Balance.Unparsed {
				total = total.Add(l.Balance.Amount)
			}
		}
		s.TotalLiabilities = model.MoneyFromDecimal(total)
	}

	if income := s.QualifyingIncome(); !income.Missing() && !s.MonthlyDebt.Missing() {
		s.DTI = model.MoneyFromDecimal(dti(s.MonthlyDebt.Amount, income.Amount).Round(2))
	}

	loan := m.master.Canonical.Terms.LoanAmount
	value := lesserValue(m.master.Canonical.Collateral.AppraisedValue, m.master.Canonical.Terms.SalePrice)
	if !loan.Missing() && !value.Missing() {
		s.LTV = model.MoneyFromDecimal(loan.Amount.Div(value.Amount).Mul(hundred).Round(2))
	}
}

func lesserValue(a, b model.Money) model.Money {
	switch {
	case a.Missing():
		return b
	case b.Missing():
		return a
	case a.Amount.LessThan(b.Amount):
		return a
	default:
		return b
	}
}

func findEmployment(es []model.Employment, employer string) int {
	for i, e := range es {
		if equalFold(e.Employer, employer) && employer != "" {
			return i
		}
	}
	return -1
}

func findAsset(as []model.Asset, key string) int {
	for i, a := range as {
		if a.IdentityKey() == key {
			return i
		}
	}
	return -1
}

func containsTransaction(txs []model.Transaction, tx model.Transaction) bool {
	for _, t := range txs {
		if t.Date == tx.Date && t.Description == tx.Description && t.Amount.String() == tx.Amount.String() {
			return true
		}
	}
	return false
}
