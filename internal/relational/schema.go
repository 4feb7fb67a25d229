// Package relational projects canonical documents into normalized table
// rows and enforces the relational schema contract.
package relational

import (
	"fmt"
	"os"

	"github.com/mortgageiq/loanforge/internal/model"
	"gopkg.in/yaml.v3"
)

// Table is the contract for one relational table: which columns are
// required, which are known, per-column defaults, and foreign-key edges.
// Schema evolution is absorbed here, never in canonical logic.
type Table struct {
	Name        string            `yaml:"name"`
	Required    []string          `yaml:"required"`
	Optional    []string          `yaml:"optional,omitempty"`
	Defaults    map[string]any    `yaml:"defaults,omitempty"`
	ForeignKeys map[string]string `yaml:"foreign_keys,omitempty"`
}

// known reports whether a column belongs to the table
func (t *Table) known(col string) bool {
	for _, c := range t.Required {
		if c == col {
			return true
		}
	}
	for _, c := range t.Optional {
		if c == col {
			return true
		}
	}
	_, fk := t.ForeignKeys[col]
	return fk
}

// Schema is the versioned relational schema contract
type Schema struct {
	Version string            `yaml:"version"`
	Tables  map[string]*Table `yaml:"tables"`
}

// LoadSchema reads a schema contract from a YAML file
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema contract: %w", err)
	}
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, &model.RuleConfigError{File: path, Reason: "invalid YAML: " + err.Error()}
	}
	for name, t := range s.Tables {
		if t.Name == "" {
			t.Name = name
		}
		if len(t.Required) == 0 {
			return nil, &model.RuleConfigError{File: path, Reason: fmt.Sprintf("table %q has no required columns", name)}
		}
	}
	return &s, nil
}

// BuiltinSchema returns the default relational schema contract
func BuiltinSchema() *Schema {
	return &Schema{
		Version: "2024.1",
		Tables: map[string]*Table{
			model.TableApplication: {
				Name:     model.TableApplication,
				Required: []string{"loan_number", "loan_purpose", "loan_amount", "loan_type"},
				Optional: []string{
					"case_number", "interest_rate", "term_months", "sale_price",
					"closing_date", "stated_monthly_income", "verified_monthly_income",
					"dti", "ltv", "credit_score", "apr", "cash_to_close",
					"related_parties", "flags",
				},
				ForeignKeys: map[string]string{"property_ref": model.TableProperty},
			},
			model.TableProperty: {
				Name:     model.TableProperty,
				Required: []string{"street", "city", "state", "zip"},
				Optional: []string{"property_type", "units", "year_built", "appraised_value", "appraisal_date", "occupancy"},
			},
			model.TableCustomer: {
				Name:     model.TableCustomer,
				Required: []string{"first_name", "last_name", "tax_id"},
				Optional: []string{"middle_name", "suffix", "full_name", "birth_date", "phone", "email", "street", "city", "state", "zip"},
			},
			model.TableApplicationCustomer: {
				Name:     model.TableApplicationCustomer,
				Required: []string{"role"},
				ForeignKeys: map[string]string{
					"application_ref": model.TableApplication,
					"customer_ref":    model.TableCustomer,
				},
			},
			model.TableEmployment: {
				Name:        model.TableEmployment,
				Required:    []string{"employer", "monthly_income"},
				Optional:    []string{"position", "start_date", "years_on_job", "ein", "self_employed"},
				ForeignKeys: map[string]string{"customer_ref": model.TableCustomer},
			},
			model.TableIncome: {
				Name:        model.TableIncome,
				Required:    []string{"stated", "verified"},
				Optional:    []string{"base", "overtime", "bonus", "other", "annual_wages", "tax_year"},
				ForeignKeys: map[string]string{"customer_ref": model.TableCustomer},
			},
			model.TableLiability: {
				Name:        model.TableLiability,
				Required:    []string{"creditor", "balance", "monthly_payment"},
				Optional:    []string{"account_number", "liability_type", "source", "to_be_paid_off"},
				ForeignKeys: map[string]string{"application_ref": model.TableApplication},
			},
			model.TableAsset: {
				Name:        model.TableAsset,
				Required:    []string{"institution", "balance"},
				Optional:    []string{"account_number", "account_type", "kind", "owner", "unsourced_deposits"},
				ForeignKeys: map[string]string{"application_ref": model.TableApplication},
			},
		},
	}
}
