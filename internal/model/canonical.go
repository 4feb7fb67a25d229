package model

// Canonical section names. These are the top-level keys of the canonical
// document; the scope table is expressed in terms of them.
const (
	SectionLoan        = "loan"
	SectionTerms       = "terms"
	SectionParties     = "parties"
	SectionCollateral  = "collateral"
	SectionDisclosures = "disclosures"
	SectionAssets      = "assets"
	SectionLiabilities = "liabilities"
	SectionSummary     = "summary"
)

// AllSections lists every canonical top-level section
var AllSections = []string{
	SectionLoan,
	SectionTerms,
	SectionParties,
	SectionCollateral,
	SectionDisclosures,
	SectionAssets,
	SectionLiabilities,
	SectionSummary,
}

// Role identifies a party's relationship to the loan
type Role string

const (
	RoleBorrower    Role = "borrower"
	RoleCoBorrower  Role = "co_borrower"
	RoleLender      Role = "lender"
	RoleAppraiser   Role = "appraiser"
	RoleSeller      Role = "seller"
	RoleLoanOfficer Role = "loan_officer"
)

// Persisted reports whether parties with this role become customer rows.
// Non-persisted roles are diverted into a side channel at projection time.
func (r Role) Persisted() bool {
	return r == RoleBorrower || r == RoleCoBorrower
}

// CanonicalDocument is the unified nested representation of one loan's
// facts, independent of which source documents supplied them
type CanonicalDocument struct {
	Loan        LoanIdentifiers  `json:"loan"`
	Terms       TransactionTerms `json:"terms"`
	Parties     []Party          `json:"parties"`
	Collateral  Collateral       `json:"collateral"`
	Disclosures Disclosures      `json:"disclosures"`
	Assets      []Asset          `json:"assets"`
	Liabilities []Liability      `json:"liabilities"`
	Summary     FinancialSummary `json:"summary"`
}

// LoanIdentifiers holds deal identifiers
type LoanIdentifiers struct {
	LoanNumber string `json:"loan_number,omitempty"`
	CaseNumber string `json:"case_number,omitempty"`
	Purpose    string `json:"purpose,omitempty"`
	LoanType   string `json:"loan_type,omitempty"`
}

// TransactionTerms holds the negotiated terms of the transaction
type TransactionTerms struct {
	LoanAmount    Money  `json:"loan_amount,omitzero"`
	SalePrice     Money  `json:"sale_price,omitzero"`
	InterestRate  Money  `json:"interest_rate,omitzero"`
	TermMonths    int    `json:"term_months,omitempty"`
	Product       string `json:"product,omitempty"`
	AmortType     string `json:"amort_type,omitempty"`
	ClosingDate   string `json:"closing_date,omitempty"`
	DownPayment   Money  `json:"down_payment,omitzero"`
	EarnestMoney  Money  `json:"earnest_money,omitzero"`
	SellerCredits Money  `json:"seller_credits,omitzero"`
}

// PersonName holds a split name. Full is always retained as extracted.
type PersonName struct {
	Full   string `json:"full,omitempty"`
	First  string `json:"first,omitempty"`
	Middle string `json:"middle,omitempty"`
	Last   string `json:"last,omitempty"`
	Suffix string `json:"suffix,omitempty"`
}

// Address is a mailing or property address
type Address struct {
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
}

// Empty reports whether no component of the address is set
func (a Address) Empty() bool {
	return a.Street == "" && a.City == "" && a.State == "" && a.Zip == ""
}

// Party is one individual or organization attached to the loan
type Party struct {
	Role      Role       `json:"role"`
	Name      PersonName `json:"name"`
	TaxID     string     `json:"tax_id,omitempty"`
	BirthDate string     `json:"birth_date,omitempty"`
	Address   Address    `json:"address,omitzero"`
	Phone     string     `json:"phone,omitempty"`
	Email     string     `json:"email,omitempty"`
	Company   string     `json:"company,omitempty"`
	License   string     `json:"license,omitempty"`
	// Government-ID fields, populated only by identity-verification documents
	IDNumber     string       `json:"id_number,omitempty"`
	IDExpiration string       `json:"id_expiration,omitempty"`
	IDIssuer     string       `json:"id_issuer,omitempty"`
	Employment   []Employment `json:"employment,omitempty"`
	Income       *Income      `json:"income,omitempty"`
}

// IdentityKey returns the logical identity of the party: tax-id when present,
// else normalized full name. Used for deduplicated merge.
func (p Party) IdentityKey() string {
	if p.TaxID != "" {
		return "tax:" + p.TaxID
	}
	return "name:" + normalizeKey(p.Name.Full)
}

// Employment is one employment record for a party
type Employment struct {
	Employer      string  `json:"employer,omitempty"`
	Position      string  `json:"position,omitempty"`
	StartDate     string  `json:"start_date,omitempty"`
	YearsOnJob    string  `json:"years_on_job,omitempty"`
	Phone         string  `json:"phone,omitempty"`
	Address       Address `json:"address,omitzero"`
	MonthlyIncome Money   `json:"monthly_income,omitzero"`
	Overtime      Money   `json:"overtime,omitzero"`
	YTDGross      Money   `json:"ytd_gross,omitzero"`
	EIN           string  `json:"ein,omitempty"`
	PeriodEnd     string  `json:"period_end,omitempty"`
	SelfEmployed  bool    `json:"self_employed,omitempty"`
}

// Income breaks down a party's monthly income. Stated comes from the
// application; Verified from income-verification documents.
type Income struct {
	Base     Money `json:"base,omitzero"`
	Overtime Money `json:"overtime,omitzero"`
	Bonus    Money `json:"bonus,omitzero"`
	Other    Money `json:"other,omitzero"`
	Stated   Money `json:"stated,omitzero"`
	Verified Money `json:"verified,omitzero"`
	// Annual figures from W-2s and tax returns
	AnnualWages  Money  `json:"annual_wages,omitzero"`
	TaxYear      string `json:"tax_year,omitempty"`
	FilingStatus string `json:"filing_status,omitempty"`
}

// Collateral describes the subject property
type Collateral struct {
	Address        Address `json:"address,omitzero"`
	PropertyType   string  `json:"property_type,omitempty"`
	Units          int     `json:"units,omitempty"`
	YearBuilt      int     `json:"year_built,omitempty"`
	AppraisedValue Money   `json:"appraised_value,omitzero"`
	AppraisalDate  string  `json:"appraisal_date,omitempty"`
	Occupancy      string  `json:"occupancy,omitempty"`
	LegalDesc      string  `json:"legal_description,omitempty"`
}

// Disclosures holds closing-disclosure figures
type Disclosures struct {
	APR            Money  `json:"apr,omitzero"`
	FinanceCharge  Money  `json:"finance_charge,omitzero"`
	AmountFinanced Money  `json:"amount_financed,omitzero"`
	TotalPayments  Money  `json:"total_of_payments,omitzero"`
	ClosingCosts   Money  `json:"closing_costs,omitzero"`
	CashToClose    Money  `json:"cash_to_close,omitzero"`
	IssueDate      string `json:"issue_date,omitempty"`
}

// Transaction is one line item on an asset account
type Transaction struct {
	Date             string `json:"date,omitempty"`
	Amount           Money  `json:"amount,omitzero"`
	Description      string `json:"description,omitempty"`
	Inbound          bool   `json:"inbound,omitempty"`
	RequiresSourcing bool   `json:"requires_sourcing,omitempty"`
}

// Asset is one account or holding owned by a party
type Asset struct {
	Kind          string        `json:"kind,omitempty"`
	Institution   string        `json:"institution,omitempty"`
	AccountNumber string        `json:"account_number,omitempty"`
	AccountType   string        `json:"account_type,omitempty"`
	Balance       Money         `json:"balance,omitzero"`
	Owner         string        `json:"owner,omitempty"`
	PeriodStart   string        `json:"period_start,omitempty"`
	PeriodEnd     string        `json:"period_end,omitempty"`
	Transactions  []Transaction `json:"transactions,omitempty"`
}

// IdentityKey returns the logical identity used for deduplicated merge
func (a Asset) IdentityKey() string {
	if a.AccountNumber != "" {
		return "acct:" + normalizeKey(a.Institution) + ":" + lastN(a.AccountNumber, 4)
	}
	return "inst:" + normalizeKey(a.Institution) + ":" + normalizeKey(a.AccountType)
}

// Liability is one debt obligation
type Liability struct {
	Creditor       string `json:"creditor,omitempty"`
	AccountNumber  string `json:"account_number,omitempty"`
	Type           string `json:"type,omitempty"`
	Balance        Money  `json:"balance,omitzero"`
	MonthlyPayment Money  `json:"monthly_payment,omitzero"`
	MonthsLeft     int    `json:"months_left,omitempty"`
	ToBePaidOff    bool   `json:"to_be_paid_off,omitempty"`
	Source         string `json:"source,omitempty"`
}

// IdentityKey returns the logical identity used for deduplicated merge
func (l Liability) IdentityKey() string {
	if l.AccountNumber != "" {
		return "acct:" + normalizeKey(l.Creditor) + ":" + lastN(l.AccountNumber, 4)
	}
	return "cred:" + normalizeKey(l.Creditor) + ":" + normalizeKey(l.Type)
}

// FinancialSummary holds derived qualifying figures
type FinancialSummary struct {
	StatedMonthlyIncome   Money `json:"stated_monthly_income,omitzero"`
	VerifiedMonthlyIncome Money `json:"verified_monthly_income,omitzero"`
	MonthlyDebt           Money `json:"monthly_debt,omitzero"`
	DTI                   Money `json:"dti,omitzero"`
	LTV                   Money `json:"ltv,omitzero"`
	TotalAssets           Money `json:"total_assets,omitzero"`
	TotalLiabilities      Money `json:"total_liabilities,omitzero"`
	CreditScore           int   `json:"credit_score,omitempty"`
}

// QualifyingIncome returns verified income when available, else stated
func (s FinancialSummary) QualifyingIncome() Money {
	if !s.VerifiedMonthlyIncome.Missing() {
		return s.VerifiedMonthlyIncome
	}
	return s.StatedMonthlyIncome
}
