package relational

import (
	"fmt"

	"github.com/mortgageiq/loanforge/internal/model"
)

// Enforcer guarantees every emitted row satisfies its table contract:
// required columns are present (value or explicit null, never absent) and
// unknown columns are dropped, not errored.
type Enforcer struct {
	schema *Schema
}

// NewEnforcer creates an enforcer over a schema contract
func NewEnforcer(schema *Schema) *Enforcer {
	return &Enforcer{schema: schema}
}

// Enforce normalizes every row in place. A row for a table the contract
// does not know is a configuration error.
func (e *Enforcer) Enforce(rs *model.RowSet) error {
	for i := range rs.Rows {
		if err := e.enforceRow(&rs.Rows[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Enforcer) enforceRow(row *model.Row) error {
	table, ok := e.schema.Tables[row.Table]
	if !ok {
		return &model.RuleConfigError{Reason: fmt.Sprintf("schema contract has no table %q", row.Table)}
	}

	if row.Columns == nil {
		row.Columns = make(map[string]any)
	}

	// Disallowed canonical fields are dropped, not errored
	for col := range row.Columns {
		if !table.known(col) {
			delete(row.Columns, col)
		}
	}

	for _, col := range table.Required {
		if _, ok := row.Columns[col]; ok && row.Columns[col] != nil {
			continue
		}
		if def, ok := table.Defaults[col]; ok {
			row.Columns[col] = def
			continue
		}
		row.Columns[col] = nil
	}
	for col := range table.ForeignKeys {
		if _, ok := row.Columns[col]; !ok {
			row.Columns[col] = nil
		}
	}

	return nil
}
