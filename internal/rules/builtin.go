package rules

import "github.com/mortgageiq/loanforge/internal/model"

// Builtin returns the default rule sets. They are compiled at startup; a
// compile failure here is a programming error.
func Builtin() Ruleset {
	rs := make(Ruleset)
	for _, set := range builtinSets() {
		if err := Compile(set, "builtin"); err != nil {
			panic(err)
		}
		rs[set.DocType] = set
	}
	return rs
}

func builtinSets() []*Set {
	return []*Set{
		{
			DocType: model.DocBankStatement,
			Version: "2024.1",
			Rules: []*Rule{
				{ID: "institutionName", Pattern: `(?im)^\s*(?:bank|institution)\s*name[:\s]+(.+)$`, Target: "assets[0].institution", Priority: 1},
				{ID: "bankName", Literal: "Bank:", Target: "assets[0].institution", Priority: 2},
				{ID: "accountHolder", Pattern: `(?im)^\s*account\s*holder[:\s]+(.+)$`, Target: "parties[0].name.full"},
				{ID: "accountNumber", Pattern: `(?i)account\s*(?:number|#|no\.?)[:\s]+([A-Za-z0-9*-]+)`, Target: "assets[0].account_number"},
				{ID: "accountType", Pattern: `(?i)account\s*type[:\s]+([A-Za-z ]+)`, Target: "assets[0].account_type"},
				{ID: "endingBalance", Pattern: `(?i)ending\s*balance[:\s]+\(?\$?([\d,]+(?:\.\d+)?)\)?`, Transform: "currency-clean", Target: "assets[0].balance"},
				{ID: "statementStart", Pattern: `(?i)statement\s*period[:\s]+(\S+)\s*(?:-|to|through)`, Transform: "date-normalize", Target: "assets[0].period_start"},
				{ID: "statementEnd", Pattern: `(?i)statement\s*period[:\s]+\S+\s*(?:-|to|through)\s*(\S+)`, Transform: "date-normalize", Target: "assets[0].period_end"},
				{ID: "deposits", Target: "assets[0].deposits", Priority: 1, Repeat: &RepeatGroup{
					Prefix:     "deposits",
					Fields:     map[string]string{"amount": "amount", "date": "date", "description": "description"},
					Transforms: map[string]string{"amount": "currency-clean", "date": "date-normalize"},
				}},
				{ID: "credits", Target: "assets[0].deposits", Priority: 2, Repeat: &RepeatGroup{
					Prefix:     "credits",
					Fields:     map[string]string{"amount": "amount", "date": "date", "description": "description"},
					Transforms: map[string]string{"amount": "currency-clean", "date": "date-normalize"},
				}},
				{ID: "withdrawals", Target: "assets[0].withdrawals", Priority: 1, Repeat: &RepeatGroup{
					Prefix:     "withdrawals",
					Fields:     map[string]string{"amount": "amount", "date": "date", "description": "description"},
					Transforms: map[string]string{"amount": "negative-currency-clean", "date": "date-normalize"},
				}},
				{ID: "debits", Target: "assets[0].withdrawals", Priority: 2, Repeat: &RepeatGroup{
					Prefix:     "debits",
					Fields:     map[string]string{"amount": "amount", "date": "date", "description": "description"},
					Transforms: map[string]string{"amount": "negative-currency-clean", "date": "date-normalize"},
				}},
			},
		},
		{
			DocType: model.DocPayStub,
			Version: "2024.1",
			Rules: []*Rule{
				{ID: "employeeName", Pattern: `(?im)^\s*employee(?:\s*name)?[:\s]+(.+)$`, Target: "parties[0].name.full"},
				{ID: "employerName", Pattern: `(?im)^\s*employer(?:\s*name)?[:\s]+(.+)$`, Target: "parties[0].employment[0].employer"},
				{ID: "payPeriodEnd", Pattern: `(?i)pay\s*period\s*end(?:ing)?[:\s]+(\S+)`, Transform: "date-normalize", Target: "parties[0].employment[0].period_end"},
				{ID: "grossMonthly", Pattern: `(?i)monthly\s*gross(?:\s*pay)?[:\s]+\$?([\d,]+(?:\.\d+)?)`, Transform: "currency-clean", Target: "parties[0].employment[0].monthly_income.base", Priority: 1},
				{ID: "grossPay", Pattern: `(?i)gross\s*pay[:\s]+\$?([\d,]+(?:\.\d+)?)`, Transform: "currency-clean", Target: "parties[0].employment[0].monthly_income.base", Priority: 2},
				{ID: "overtimePay", Pattern: `(?i)overtime[:\s]+\$?([\d,]+(?:\.\d+)?)`, Transform: "currency-clean", Target: "parties[0].employment[0].monthly_income.overtime"},
				{ID: "ytdGross", Pattern: `(?i)ytd\s*gross[:\s]+\$?([\d,]+(?:\.\d+)?)`, Transform: "currency-clean", Target: "parties[0].employment[0].ytd_gross"},
			},
		},
		{
			DocType: model.DocW2,
			Version: "2024.1",
			Rules: []*Rule{
				{ID: "employeeName", Pattern: `(?im)^\s*employee(?:'s name)?[:\s]+(.+)$`, Target: "parties[0].name.full"},
				{ID: "employeeSSN", Pattern: `(?i)social\s*security\s*number[:\s]+([\d-]+)`, Target: "parties[0].tax_id"},
				{ID: "employerName", Pattern: `(?im)^\s*employer(?:'s name)?[:\s]+(.+)$`, Target: "parties[0].employment[0].employer"},
				{ID: "employerEIN", Pattern: `(?i)employer.{0,20}\bEIN\b[:\s]+([\d-]+)`, Target: "parties[0].employment[0].ein"},
				{ID: "wagesTips", Pattern: `(?i)wages,?\s*tips[^:]*[:\s]+\$?([\d,]+(?:\.\d+)?)`, Transform: "currency-clean", Target: "parties[0].income.annual_wages"},
				{ID: "taxYear", Pattern: `(?i)tax\s*year[:\s]+(\d{4})`, Target: "parties[0].income.tax_year"},
			},
		},
		{
			DocType: model.DocTaxReturn,
			Version: "2024.1",
			Rules: []*Rule{
				{ID: "taxpayerName", Pattern: `(?im)^\s*(?:taxpayer|name)[:\s]+(.+)$`, Target: "parties[0].name.full"},
				{ID: "taxpayerSSN", Pattern: `(?i)(?:your\s*)?social\s*security\s*number[:\s]+([\d-]+)`, Target: "parties[0].tax_id"},
				{ID: "filingStatus", Pattern: `(?i)filing\s*status[:\s]+([A-Za-z ]+)`, Target: "parties[0].income.filing_status"},
				{ID: "adjustedGross", Pattern: `(?i)adjusted\s*gross\s*income[:\s]+\$?([\d,]+(?:\.\d+)?)`, Transform: "currency-clean", Target: "parties[0].income.annual_wages", Priority: 1},
				{ID: "totalIncome", Pattern: `(?i)total\s*income[:\s]+\$?([\d,]+(?:\.\d+)?)`, Transform: "currency-clean", Target: "parties[0].income.annual_wages", Priority: 2},
				{ID: "taxYear", Pattern: `(?i)(?:tax\s*year|form\s*1040.{0,10})[:\s]+(\d{4})`, Target: "parties[0].income.tax_year"},
			},
		},
		{
			DocType: model.DocApplication,
			Version: "2024.1",
			Rules: []*Rule{
				{ID: "borrowerName", Pattern: `(?im)^\s*borrower(?:\s*name)?[:\s]+(.+)$`, Target: "parties[0].name.full"},
				{ID: "borrowerSSN", Pattern: `(?i)(?:ssn|social\s*security)[:\s#]+([\d-]+)`, Target: "parties[0].tax_id"},
				{ID: "borrowerDOB", Pattern: `(?i)(?:dob|date\s*of\s*birth)[:\s]+(\S+)`, Transform: "date-normalize", Target: "parties[0].birth_date"},
				{ID: "borrowerPhone", Pattern: `(?i)(?:home\s*)?phone[:\s]+([\d() .-]+)`, Target: "parties[0].phone"},
				{ID: "loanAmount", Pattern: `(?i)loan\s*amount[:\s]+\$?([\d,]+(?:\.\d+)?)`, Transform: "currency-clean", Target: "terms.loan_amount"},
				{ID: "loanPurpose", Pattern: `(?i)(?:loan\s*)?purpose(?:\s*of\s*loan)?[:\s]+([A-Za-z /-]+)`, Target: "loan.purpose"},
				{ID: "loanNumber", Pattern: `(?i)(?:loan|application)\s*(?:number|#|no\.?)[:\s]+([A-Za-z0-9-]+)`, Target: "loan.loan_number"},
				{ID: "caseNumber", Pattern: `(?i)(?:agency\s*)?case\s*(?:number|#|no\.?)[:\s]+([A-Za-z0-9-]+)`, Target: "loan.case_number"},
				{ID: "propertyStreet", Pattern: `(?im)^\s*(?:subject\s*)?property\s*address[:\s]+(.+)$`, Target: "collateral.address.street"},
				{ID: "propertyCity", Pattern: `(?i)property\s*city[:\s]+([A-Za-z .-]+)`, Target: "collateral.address.city"},
				{ID: "propertyState", Pattern: `(?i)property\s*state[:\s]+([A-Z]{2})`, Target: "collateral.address.state"},
				{ID: "propertyZip", Pattern: `(?i)property\s*zip(?:\s*code)?[:\s]+(\d{5}(?:-\d{4})?)`, Target: "collateral.address.zip"},
				{ID: "employerName", Pattern: `(?i)(?:name\s*of\s*)?employer[:\s]+(.+)$`, Target: "parties[0].employment[0].employer"},
				{ID: "position", Pattern: `(?i)position(?:/title)?[:\s]+([A-Za-z ./-]+)`, Target: "parties[0].employment[0].position"},
				{ID: "yearsOnJob", Pattern: `(?i)(?:yrs\.?|years)\s*on\s*(?:this\s*)?job[:\s]+([\d.]+)`, Target: "parties[0].employment[0].years_on_job"},
				{ID: "statedMonthlyIncome", Pattern: `(?i)(?:total\s*)?monthly\s*income[:\s]+\$?([\d,]+(?:\.\d+)?)`, Transform: "currency-clean", Target: "summary.stated_monthly_income"},
				{ID: "liabilities", Target: "liabilities", Repeat: &RepeatGroup{
					Prefix: "liabilities",
					Fields: map[string]string{
						"creditor":      "creditor",
						"accountNumber": "account_number",
						"balance":       "balance",
						"payment":       "monthly_payment",
						"type":          "type",
					},
					Transforms: map[string]string{"balance": "currency-clean", "payment": "currency-clean"},
				}},
				{ID: "assets", Target: "assets", Repeat: &RepeatGroup{
					Prefix: "assets",
					Fields: map[string]string{
						"institution":   "institution",
						"accountNumber": "account_number",
						"type":          "account_type",
						"balance":       "balance",
					},
					Transforms: map[string]string{"balance": "currency-clean"},
				}},
			},
		},
		{
			DocType: model.DocGovernmentID,
			Version: "2024.1",
			Rules: []*Rule{
				{ID: "fullName", Pattern: `(?im)^\s*(?:full\s*)?name[:\s]+(.+)$`, Target: "parties[0].name.full"},
				{ID: "dateOfBirth", Pattern: `(?i)(?:dob|date\s*of\s*birth)[:\s]+(\S+)`, Transform: "date-normalize", Target: "parties[0].birth_date"},
				{ID: "idNumber", Pattern: `(?i)(?:id|license|document)\s*(?:number|#|no\.?)[:\s]+([A-Za-z0-9-]+)`, Target: "parties[0].id_number"},
				{ID: "expirationDate", Pattern: `(?i)exp(?:ires|iration)?[:\s.]+(\S+)`, Transform: "date-normalize", Target: "parties[0].id_expiration"},
				{ID: "issuingState", Pattern: `(?i)issu(?:ing|ed\s*by)\s*(?:state|authority)?[:\s]+([A-Za-z ]+)`, Target: "parties[0].id_issuer"},
				{ID: "street", Pattern: `(?im)^\s*address[:\s]+(.+)$`, Target: "parties[0].address.street"},
			},
		},
		{
			DocType: model.DocSalesContract,
			Version: "2024.1",
			Rules: []*Rule{
				{ID: "buyerName", Pattern: `(?im)^\s*buyer(?:\(s\))?[:\s]+(.+)$`, Target: "parties[0].name.full"},
				{ID: "sellerName", Pattern: `(?im)^\s*seller(?:\(s\))?[:\s]+(.+)$`, Target: "parties[1].name.full"},
				{ID: "salePrice", Pattern: `(?i)(?:purchase|sale[s]?)\s*price[:\s]+\$?([\d,]+(?:\.\d+)?)`, Transform: "currency-clean", Target: "terms.sale_price"},
				{ID: "earnestMoney", Pattern: `(?i)earnest\s*money(?:\s*deposit)?[:\s]+\$?([\d,]+(?:\.\d+)?)`, Transform: "currency-clean", Target: "terms.earnest_money"},
				{ID: "sellerCredits", Pattern: `(?i)seller\s*(?:credits?|concessions?)[:\s]+\$?([\d,]+(?:\.\d+)?)`, Transform: "currency-clean", Target: "terms.seller_credits"},
				{ID: "closingDate", Pattern: `(?i)closing\s*date[:\s]+(\S+)`, Transform: "date-normalize", Target: "terms.closing_date"},
				{ID: "propertyStreet", Pattern: `(?im)^\s*property(?:\s*address)?[:\s]+(.+)$`, Target: "collateral.address.street"},
			},
		},
		{
			DocType: model.DocAppraisal,
			Version: "2024.1",
			Rules: []*Rule{
				{ID: "appraisedValue", Pattern: `(?i)(?:appraised|market)\s*value[:\s]+\$?([\d,]+(?:\.\d+)?)`, Transform: "currency-clean", Target: "collateral.appraised_value"},
				{ID: "appraisalDate", Pattern: `(?i)(?:effective|appraisal)\s*date[:\s]+(\S+)`, Transform: "date-normalize", Target: "collateral.appraisal_date"},
				{ID: "propertyType", Pattern: `(?i)property\s*type[:\s]+([A-Za-z /-]+)`, Target: "collateral.property_type"},
				{ID: "yearBuilt", Pattern: `(?i)year\s*built[:\s]+(\d{4})`, Target: "collateral.year_built"},
				{ID: "propertyStreet", Pattern: `(?im)^\s*(?:subject\s*)?property(?:\s*address)?[:\s]+(.+)$`, Target: "collateral.address.street"},
				{ID: "appraiserName", Pattern: `(?im)^\s*appraiser(?:\s*name)?[:\s]+(.+)$`, Target: "parties[0].name.full"},
				{ID: "appraiserLicense", Pattern: `(?i)(?:appraiser\s*)?license\s*(?:number|#|no\.?)[:\s]+([A-Za-z0-9-]+)`, Target: "parties[0].license"},
			},
		},
		{
			DocType: model.DocCreditReport,
			Version: "2024.1",
			Rules: []*Rule{
				{ID: "borrowerName", Pattern: `(?im)^\s*(?:borrower|consumer)(?:\s*name)?[:\s]+(.+)$`, Target: "parties[0].name.full"},
				{ID: "borrowerSSN", Pattern: `(?i)(?:ssn|social\s*security)[:\s#]+([\d-]+)`, Target: "parties[0].tax_id"},
				{ID: "creditScore", Pattern: `(?i)(?:credit|fico)\s*score[:\s]+(\d{3})`, Target: "summary.credit_score"},
				{ID: "tradelines", Target: "liabilities", Priority: 1, Repeat: &RepeatGroup{
					Prefix: "tradelines",
					Fields: map[string]string{
						"creditor":      "creditor",
						"accountNumber": "account_number",
						"balance":       "balance",
						"payment":       "monthly_payment",
						"type":          "type",
					},
					Transforms: map[string]string{"balance": "currency-clean", "payment": "currency-clean"},
				}},
				{ID: "liabilities", Target: "liabilities", Priority: 2, Repeat: &RepeatGroup{
					Prefix: "liabilities",
					Fields: map[string]string{
						"creditor": "creditor",
						"balance":  "balance",
						"payment":  "monthly_payment",
					},
					Transforms: map[string]string{"balance": "currency-clean", "payment": "currency-clean"},
				}},
			},
		},
		{
			DocType: model.DocClosingDisclosure,
			Version: "2024.1",
			Rules: []*Rule{
				{ID: "loanNumber", Pattern: `(?i)loan\s*(?:id|number|#|no\.?)[:\s]+([A-Za-z0-9-]+)`, Target: "loan.loan_number"},
				{ID: "loanAmount", Pattern: `(?i)loan\s*amount[:\s]+\$?([\d,]+(?:\.\d+)?)`, Transform: "currency-clean", Target: "terms.loan_amount"},
				{ID: "interestRate", Pattern: `(?i)interest\s*rate[:\s]+([\d.]+)\s*%?`, Transform: "currency-clean", Target: "terms.interest_rate"},
				{ID: "loanTermMonths", Pattern: `(?i)loan\s*term[:\s]+(\d+)\s*months`, Target: "terms.term_months", Priority: 1},
				{ID: "loanTermYears", Pattern: `(?i)loan\s*term[:\s]+(\d+)\s*years`, Target: "terms.term_years", Priority: 2},
				{ID: "apr", Pattern: `(?i)annual\s*percentage\s*rate(?:\s*\(APR\))?[:\s]+([\d.]+)\s*%?`, Transform: "currency-clean", Target: "disclosures.apr"},
				{ID: "financeCharge", Pattern: `(?i)finance\s*charge[:\s]+\$?([\d,]+(?:\.\d+)?)`, Transform: "currency-clean", Target: "disclosures.finance_charge"},
				{ID: "totalPayments", Pattern: `(?i)total\s*of\s*payments[:\s]+\$?([\d,]+(?:\.\d+)?)`, Transform: "currency-clean", Target: "disclosures.total_of_payments"},
				{ID: "closingCosts", Pattern: `(?i)(?:total\s*)?closing\s*costs[:\s]+\$?([\d,]+(?:\.\d+)?)`, Transform: "currency-clean", Target: "disclosures.closing_costs"},
				{ID: "cashToClose", Pattern: `(?i)cash\s*to\s*close[:\s]+\$?([\d,]+(?:\.\d+)?)`, Transform: "currency-clean", Target: "disclosures.cash_to_close"},
				{ID: "issueDate", Pattern: `(?i)date\s*issued[:\s]+(\S+)`, Transform: "date-normalize", Target: "disclosures.issue_date"},
			},
		},
	}
}
