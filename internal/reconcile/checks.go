package reconcile

import (
	"fmt"
	"time"

	"github.com/mortgageiq/loanforge/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// merger carries the working set of one serialized merge
type merger struct {
	cfg    model.ReconcileConfig
	master *model.MasterLoanState
	frag   *model.CanonicalFragment
	report *model.ReconcileReport

	flagsRaised []model.FlagType
}

func (m *merger) raise(t model.FlagType, reason string, data map[string]any) {
	m.master.RaiseFlag(model.ReconciliationFlag{
		Type:     t,
		RaisedAt: time.Now().UTC(),
		DocType:  m.frag.DocType,
		Reason:   reason,
		Data:     data,
	})
	m.flagsRaised = append(m.flagsRaised, t)
	m.report.Add(model.ReportEntry{
		Kind:        model.EntryFlagRaised,
		Severity:    model.SeverityCritical,
		Description: fmt.Sprintf("%s: %s", t, reason),
		Data:        data,
	})
}

func (m *merger) overwrite(path, previous, current, reason string) {
	ow := model.FieldOverwrite{Path: path, Previous: previous, Current: current, Reason: reason}
	m.report.Overwrites = append(m.report.Overwrites, ow)
	m.report.Add(model.ReportEntry{
		Kind:        model.EntryFieldOverwritten,
		Severity:    model.SeverityInfo,
		Paths:       []string{path},
		Description: reason,
	})
}

// checkIncome compares verified income against the stated figure. A lower
// verified figure overwrites stated income on the master, and a DTI increase
// at or above the configured point threshold requires re-underwriting.
func (m *merger) checkIncome() {
	if !m.frag.DocType.IsIncomeVerification() {
		return
	}
	verified := m.frag.Canonical.Summary.VerifiedMonthlyIncome
	if verified.Missing() {
		return
	}

	stated := m.master.Canonical.Summary.StatedMonthlyIncome
	if stated.Missing() || verified.Amount.GreaterThanOrEqual(stated.Amount) {
		if m.master.Canonical.Summary.VerifiedMonthlyIncome.Missing() {
			m.master.Canonical.Summary.VerifiedMonthlyIncome = verified
		}
		return
	}

	debt := m.monthlyDebt()
	dtiBefore := dti(debt, stated.Amount)
	dtiAfter := dti(debt, verified.Amount)

	m.overwrite("summary.stated_monthly_income", stated.String(), verified.String(),
		"verified income below stated income")
	m.master.Canonical.Summary.StatedMonthlyIncome = verified
	m.master.Canonical.Summary.VerifiedMonthlyIncome = verified
	m.master.Canonical.Summary.DTI = model.MoneyFromDecimal(dtiAfter)

	delta := dtiAfter.Sub(dtiBefore)
	threshold := decimal.NewFromFloat(m.cfg.DTIReunderwritePoints)
	if delta.GreaterThanOrEqual(threshold) {
		m.raise(model.FlagReUnderwriteRequired,
			fmt.Sprintf("DTI rose %s points (%s%% to %s%%) after income verification",
				delta.Round(2), dtiBefore.Round(2), dtiAfter.Round(2)),
			map[string]any{
				"stated_income":   stated.String(),
				"verified_income": verified.String(),
				"dti_before":      dtiBefore.Round(2).String(),
				"dti_after":       dtiAfter.Round(2).String(),
				"threshold":       m.cfg.DTIReunderwritePoints,
			})
	}
}

// checkLiabilities appends fragment liabilities missing from the master and
// flags matches whose master balance or payment understates the fragment
func (m *merger) checkLiabilities() {
	if !m.frag.DocType.IsLiabilityBearing() {
		return
	}

	for _, fl := range m.frag.Canonical.Liabilities {
		idx := findLiability(m.master.Canonical.Liabilities, fl.IdentityKey())
		if idx < 0 {
			m.master.Canonical.Liabilities = append(m.master.Canonical.Liabilities, fl)
			continue
		}

		ml := &m.master.Canonical.Liabilities[idx]
		understated := lessThan(ml.Balance, fl.Balance) || lessThan(ml.MonthlyPayment, fl.MonthlyPayment)
		if !understated {
			continue
		}
		m.raise(model.FlagJustificationRequired,
			fmt.Sprintf("liability %q reports balance %s / payment %s, master had %s / %s",
				fl.Creditor, fl.Balance, fl.MonthlyPayment, ml.Balance, ml.MonthlyPayment),
			map[string]any{
				"creditor":         fl.Creditor,
				"master_balance":   ml.Balance.String(),
				"fragment_balance": fl.Balance.String(),
			})
		if lessThan(ml.Balance, fl.Balance) {
			m.overwrite(fmt.Sprintf("liabilities[%d].balance", idx), ml.Balance.String(), fl.Balance.String(),
				"liability balance raised by "+string(m.frag.DocType))
			ml.Balance = fl.Balance
		}
		if lessThan(ml.MonthlyPayment, fl.MonthlyPayment) {
			m.overwrite(fmt.Sprintf("liabilities[%d].monthly_payment", idx), ml.MonthlyPayment.String(), fl.MonthlyPayment.String(),
				"liability payment raised by "+string(m.frag.DocType))
			ml.MonthlyPayment = fl.MonthlyPayment
		}
	}
}

// checkAssetSourcing flags any single inbound amount exceeding the
// configured fraction of current qualifying monthly income and marks the
// transaction as requiring a sourcing document before final merge
func (m *merger) checkAssetSourcing() {
	if !m.frag.DocType.IsAssetTransaction() {
		return
	}
	income := m.qualifyingIncome()
	if income.IsZero() {
		return
	}
	limit := income.Mul(decimal.NewFromFloat(m.cfg.LargeDepositRatio))

	for ai := range m.frag.Canonical.Assets {
		asset := &m.frag.Canonical.Assets[ai]
		for ti := range asset.Transactions {
			tx := &asset.Transactions[ti]
			if !tx.Inbound || tx.Amount.Unparsed {
				continue
			}
			if tx.Amount.Amount.LessThanOrEqual(limit) {
				continue
			}
			tx.RequiresSourcing = true
			m.raise(model.FlagLargeDepositFound,
				fmt.Sprintf("deposit of %s on %s exceeds %.0f%% of qualifying monthly income %s",
					tx.Amount, tx.Date, m.cfg.LargeDepositRatio*100, income),
				map[string]any{
					"amount":            tx.Amount.String(),
					"date":              tx.Date,
					"qualifying_income": income.String(),
					"limit":             limit.String(),
				})
		}
	}
}

// monthlyDebt uses the summary figure when present, else the sum of
// liability payments on the master
func (m *merger) monthlyDebt() decimal.Decimal {
	if d := m.master.Canonical.Summary.MonthlyDebt; !d.Missing() {
		return d.Amount
	}
	total := decimal.Zero
	for _, l := range m.master.Canonical.Liabilities {
		if !l.Balance.Missing() || !l.MonthlyPayment.Missing() {
			total = total.Add(l.MonthlyPayment.Amount)
		}
	}
	return total
}

func (m *merger) qualifyingIncome() decimal.Decimal {
	return m.master.Canonical.Summary.QualifyingIncome().Amount
}

// dti returns debt-to-income in percentage points
func dti(debt, income decimal.Decimal) decimal.Decimal {
	if income.IsZero() {
		return decimal.Zero
	}
	return debt.Div(income).Mul(hundred)
}

func findLiability(ls []model.Liability, key string) int {
	for i, l := range ls {
		if l.IdentityKey() == key {
			return i
		}
	}
	return -1
}

// lessThan compares two amounts, treating unparsed or absent values as
// incomparable
func lessThan(a, b model.Money) bool {
	if a.Unparsed || b.Unparsed || b.Amount.IsZero() {
		return false
	}
	return a.Amount.LessThan(b.Amount)
}
