package model

// Table names of the fixed relational schema
const (
	TableApplication         = "application"
	TableProperty            = "property"
	TableCustomer            = "customer"
	TableEmployment          = "employment"
	TableIncome              = "income"
	TableLiability           = "liability"
	TableAsset               = "asset"
	TableApplicationCustomer = "application_customer"
)

// Row is one typed table row. Columns always carry every required column of
// the target table: missing source data is an explicit nil value, never an
// absent key. Refs are synthetic identifiers resolved to real foreign keys
// at persistence time.
type Row struct {
	Table   string         `json:"table"`
	Ref     string         `json:"_ref"`
	Columns map[string]any `json:"columns"`
}

// RowSet is the relational projection of one canonical document
type RowSet struct {
	Rows []Row `json:"rows"`
}

// ByTable returns the rows of one table in emission order
func (rs *RowSet) ByTable(table string) []Row {
	var out []Row
	for _, r := range rs.Rows {
		if r.Table == table {
			out = append(out, r)
		}
	}
	return out
}

// Find returns the row with the given synthetic ref
func (rs *RowSet) Find(ref string) (Row, bool) {
	for _, r := range rs.Rows {
		if r.Ref == ref {
			return r, true
		}
	}
	return Row{}, false
}
