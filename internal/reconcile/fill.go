package reconcile

import (
	"strings"

	"github.com/mortgageiq/loanforge/internal/model"
)

// fill helpers implement the no-silent-overwrite rule: a field already set
// on the master keeps its first-seen value.

func fillStr(dst *string, src string) {
	if *dst == "" && src != "" {
		*dst = src
	}
}

func fillInt(dst *int, src int) {
	if *dst == 0 && src != 0 {
		*dst = src
	}
}

func fillMoney(dst *model.Money, src model.Money) {
	if dst.Missing() && dst.Raw == "" && !src.Missing() {
		*dst = src
	}
}

func fillName(dst *model.PersonName, src model.PersonName) {
	fillStr(&dst.Full, src.Full)
	fillStr(&dst.First, src.First)
	fillStr(&dst.Middle, src.Middle)
	fillStr(&dst.Last, src.Last)
	fillStr(&dst.Suffix, src.Suffix)
}

func fillAddress(dst *model.Address, src model.Address) {
	fillStr(&dst.Street, src.Street)
	fillStr(&dst.City, src.City)
	fillStr(&dst.State, src.State)
	fillStr(&dst.Zip, src.Zip)
}

func fillLoan(dst *model.LoanIdentifiers, src model.LoanIdentifiers) {
	fillStr(&dst.LoanNumber, src.LoanNumber)
	fillStr(&dst.CaseNumber, src.CaseNumber)
	fillStr(&dst.Purpose, src.Purpose)
	fillStr(&dst.LoanType, src.LoanType)
}

func fillTerms(dst *model.TransactionTerms, src model.TransactionTerms) {
	fillMoney(&dst.LoanAmount, src.LoanAmount)
	fillMoney(&dst.SalePrice, src.SalePrice)
	fillMoney(&dst.InterestRate, src.InterestRate)
	fillInt(&dst.TermMonths, src.TermMonths)
	fillStr(&dst.Product, src.Product)
	fillStr(&dst.AmortType, src.AmortType)
	fillStr(&dst.ClosingDate, src.ClosingDate)
	fillMoney(&dst.DownPayment, src.DownPayment)
	fillMoney(&dst.EarnestMoney, src.EarnestMoney)
	fillMoney(&dst.SellerCredits, src.SellerCredits)
}

func fillCollateral(dst *model.Collateral, src model.Collateral) {
	fillAddress(&dst.Address, src.Address)
	fillStr(&dst.PropertyType, src.PropertyType)
	fillInt(&dst.Units, src.Units)
	fillInt(&dst.YearBuilt, src.YearBuilt)
	fillMoney(&dst.AppraisedValue, src.AppraisedValue)
	fillStr(&dst.AppraisalDate, src.AppraisalDate)
	fillStr(&dst.Occupancy, src.Occupancy)
	fillStr(&dst.LegalDesc, src.LegalDesc)
}

func fillDisclosures(dst *model.Disclosures, src model.Disclosures) {
	fillMoney(&dst.APR, src.APR)
	fillMoney(&dst.FinanceCharge, src.FinanceCharge)
	fillMoney(&dst.AmountFinanced, src.AmountFinanced)
	fillMoney(&dst.TotalPayments, src.TotalPayments)
	fillMoney(&dst.ClosingCosts, src.ClosingCosts)
	fillMoney(&dst.CashToClose, src.CashToClose)
	fillStr(&dst.IssueDate, src.IssueDate)
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
