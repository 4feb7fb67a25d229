package relational

import (
	"github.com/google/uuid"
	"github.com/mortgageiq/loanforge/internal/model"
)

// Transformer walks a canonical document once and emits one row per entity
// occurrence, linked through synthetic references
type Transformer struct {
	schema   *Schema
	enforcer *Enforcer
}

// NewTransformer creates a transformer over a schema contract
func NewTransformer(schema *Schema) *Transformer {
	return &Transformer{schema: schema, enforcer: NewEnforcer(schema)}
}

// Project converts a canonical document into a relational row set. Every
// emitted row satisfies its table's required-column list; parties with
// non-persisted roles are diverted into the application row's
// related_parties side channel instead of being dropped.
func (t *Transformer) Project(doc *model.CanonicalDocument) (*model.RowSet, error) {
	rs := &model.RowSet{}

	appRef := newRef()
	appCols := map[string]any{
		"loan_number":             strVal(doc.Loan.LoanNumber),
		"case_number":             strVal(doc.Loan.CaseNumber),
		"loan_purpose":            strVal(doc.Loan.Purpose),
		"loan_type":               strVal(doc.Loan.LoanType),
		"loan_amount":             moneyVal(doc.Terms.LoanAmount),
		"interest_rate":           moneyVal(doc.Terms.InterestRate),
		"term_months":             intVal(doc.Terms.TermMonths),
		"sale_price":              moneyVal(doc.Terms.SalePrice),
		"closing_date":            strVal(doc.Terms.ClosingDate),
		"stated_monthly_income":   moneyVal(doc.Summary.StatedMonthlyIncome),
		"verified_monthly_income": moneyVal(doc.Summary.VerifiedMonthlyIncome),
		"dti":                     moneyVal(doc.Summary.DTI),
		"ltv":                     moneyVal(doc.Summary.LTV),
		"credit_score":            intVal(doc.Summary.CreditScore),
		"apr":                     moneyVal(doc.Disclosures.APR),
		"cash_to_close":           moneyVal(doc.Disclosures.CashToClose),
	}

	if !doc.Collateral.Address.Empty() || doc.Collateral.PropertyType != "" {
		propRef := newRef()
		rs.Rows = append(rs.Rows, model.Row{
			Table: model.TableProperty,
			Ref:   propRef,
			Columns: map[string]any{
				"street":          strVal(doc.Collateral.Address.Street),
				"city":            strVal(doc.Collateral.Address.City),
				"state":           strVal(doc.Collateral.Address.State),
				"zip":             strVal(doc.Collateral.Address.Zip),
				"property_type":   strVal(doc.Collateral.PropertyType),
				"units":           intVal(doc.Collateral.Units),
				"year_built":      intVal(doc.Collateral.YearBuilt),
				"appraised_value": moneyVal(doc.Collateral.AppraisedValue),
				"appraisal_date":  strVal(doc.Collateral.AppraisalDate),
				"occupancy":       strVal(doc.Collateral.Occupancy),
			},
		})
		appCols["property_ref"] = propRef
	}

	var sideChannel []map[string]any
	for _, p := range doc.Parties {
		if !p.Role.Persisted() {
			sideChannel = append(sideChannel, map[string]any{
				"role":    string(p.Role),
				"name":    p.Name.Full,
				"company": p.Company,
				"license": p.License,
			})
			continue
		}

		custRef := newRef()
		rs.Rows = append(rs.Rows, model.Row{
			Table: model.TableCustomer,
			Ref:   custRef,
			Columns: map[string]any{
				"first_name":  strVal(p.Name.First),
				"middle_name": strVal(p.Name.Middle),
				"last_name":   strVal(p.Name.Last),
				"suffix":      strVal(p.Name.Suffix),
				"full_name":   strVal(p.Name.Full),
				"tax_id":      strVal(p.TaxID),
				"birth_date":  strVal(p.BirthDate),
				"phone":       strVal(p.Phone),
				"email":       strVal(p.Email),
				"street":      strVal(p.Address.Street),
				"city":        strVal(p.Address.City),
				"state":       strVal(p.Address.State),
				"zip":         strVal(p.Address.Zip),
			},
		})
		rs.Rows = append(rs.Rows, model.Row{
			Table: model.TableApplicationCustomer,
			Ref:   newRef(),
			Columns: map[string]any{
				"application_ref": appRef,
				"customer_ref":    custRef,
				"role":            string(p.Role),
			},
		})

		for _, e := range p.Employment {
			rs.Rows = append(rs.Rows, model.Row{
				Table: model.TableEmployment,
				Ref:   newRef(),
				Columns: map[string]any{
					"customer_ref":   custRef,
					"employer":       strVal(e.Employer),
					"position":       strVal(e.Position),
					"start_date":     strVal(e.StartDate),
					"years_on_job":   strVal(e.YearsOnJob),
					"ein":            strVal(e.EIN),
					"monthly_income": moneyVal(e.MonthlyIncome),
					"self_employed":  e.SelfEmployed,
				},
			})
		}

		if p.Income != nil {
			rs.Rows = append(rs.Rows, model.Row{
				Table: model.TableIncome,
				Ref:   newRef(),
				Columns: map[string]any{
					"customer_ref": custRef,
					"base":         moneyVal(p.Income.Base),
					"overtime":     moneyVal(p.Income.Overtime),
					"bonus":        moneyVal(p.Income.Bonus),
					"other":        moneyVal(p.Income.Other),
					"stated":       moneyVal(p.Income.Stated),
					"verified":     moneyVal(p.Income.Verified),
					"annual_wages": moneyVal(p.Income.AnnualWages),
					"tax_year":     strVal(p.Income.TaxYear),
				},
			})
		}
	}
	if len(sideChannel) > 0 {
		appCols["related_parties"] = sideChannel
	}

	for _, l := range doc.Liabilities {
		rs.Rows = append(rs.Rows, model.Row{
			Table: model.TableLiability,
			Ref:   newRef(),
			Columns: map[string]any{
				"application_ref": appRef,
				"creditor":        strVal(l.Creditor),
				"account_number":  strVal(l.AccountNumber),
				"liability_type":  strVal(l.Type),
				"balance":         moneyVal(l.Balance),
				"monthly_payment": moneyVal(l.MonthlyPayment),
				"source":          strVal(l.Source),
				"to_be_paid_off":  l.ToBePaidOff,
			},
		})
	}

	for _, a := range doc.Assets {
		unsourced := 0
		for _, tx := range a.Transactions {
			if tx.RequiresSourcing {
				unsourced++
			}
		}
		rs.Rows = append(rs.Rows, model.Row{
			Table: model.TableAsset,
			Ref:   newRef(),
			Columns: map[string]any{
				"application_ref":    appRef,
				"institution":        strVal(a.Institution),
				"account_number":     strVal(a.AccountNumber),
				"account_type":       strVal(a.AccountType),
				"kind":               strVal(a.Kind),
				"owner":              strVal(a.Owner),
				"balance":            moneyVal(a.Balance),
				"unsourced_deposits": unsourced,
			},
		})
	}

	// The application row goes first so persistence can resolve its ref
	// before the rows that point at it
	rs.Rows = append([]model.Row{{Table: model.TableApplication, Ref: appRef, Columns: appCols}}, rs.Rows...)

	if err := t.enforcer.Enforce(rs); err != nil {
		return nil, err
	}
	return rs, nil
}

func newRef() string { return "_ref:" + uuid.NewString() }

// strVal maps an empty string to an explicit null
func strVal(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// intVal maps zero to an explicit null
func intVal(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

// moneyVal renders a parsed amount as a decimal string, keeps unparsed raw
// text, and maps absent values to an explicit null
func moneyVal(m model.Money) any {
	if m.Unparsed {
		return m.Raw
	}
	if m.Amount.IsZero() {
		return nil
	}
	return m.Amount.String()
}
