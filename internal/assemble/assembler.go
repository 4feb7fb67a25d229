// Package assemble restructures mapper output into full canonical fragments,
// one strategy per document type.
package assemble

import (
	"github.com/mortgageiq/loanforge/internal/canon"
	"github.com/mortgageiq/loanforge/internal/extract"
	"github.com/mortgageiq/loanforge/internal/model"
	"github.com/mortgageiq/loanforge/internal/rules"
)

// Strategy finalizes the typed canonical document for one document type:
// role assignment, multi-borrower expansion, derived income figures.
type Strategy interface {
	DocType() model.DocumentType
	Finish(doc *model.CanonicalDocument)
}

// Input is one document (or merged multi-page document) to assemble. Text
// and Fields are the output contracts of the external OCR and structuring
// collaborators; either or both may be present.
type Input struct {
	DocType  model.DocumentType
	SourceID string
	Text     string
	Fields   map[string]string
}

// Assembler turns extraction input into canonical fragments. Assembly is a
// pure function of the input: identical input yields an identical fragment.
type Assembler struct {
	extractor  *extract.Extractor
	mapper     *canon.Mapper
	ruleset    rules.Ruleset
	strategies map[model.DocumentType]Strategy
}

// NewAssembler creates an assembler over a compiled rule set and scope table
func NewAssembler(ruleset rules.Ruleset, scope *canon.ScopeTable, policy model.ScopePolicy) *Assembler {
	a := &Assembler{
		extractor:  extract.NewExtractor(),
		mapper:     canon.NewMapper(scope, policy),
		ruleset:    ruleset,
		strategies: make(map[model.DocumentType]Strategy),
	}
	for _, s := range []Strategy{
		&applicationStrategy{},
		&bankStatementStrategy{},
		&payStubStrategy{},
		&w2Strategy{},
		&taxReturnStrategy{},
		&governmentIDStrategy{},
		&salesContractStrategy{},
		&appraisalStrategy{},
		&creditReportStrategy{},
		&closingDisclosureStrategy{},
	} {
		a.strategies[s.DocType()] = s
	}
	return a
}

// Assemble extracts, maps, and restructures one document. A scope violation
// under the reject policy returns the clipped fragment together with the
// error so the caller can report the offending paths; assembly of one
// document never fails a batch.
func (a *Assembler) Assemble(in Input) (*model.CanonicalFragment, *canon.MapOutcome, error) {
	set := a.ruleset.ForType(in.DocType)
	res := a.extractor.Extract(set, in.Text, in.Fields)

	out, mapErr := a.mapper.Map(in.DocType, set, res)
	if out == nil {
		return nil, nil, mapErr
	}

	d := &decoder{}
	doc := d.decode(out.Fragment)
	if s, ok := a.strategies[in.DocType]; ok {
		s.Finish(&doc)
	}

	frag := &model.CanonicalFragment{
		DocType:        in.DocType,
		SourceID:       in.SourceID,
		Canonical:      doc,
		FieldCount:     len(out.Applied),
		LowConfidence:  len(out.Applied) == 0,
		UnparsedFields: d.unparsed,
	}
	return frag, out, mapErr
}

// roleFunc returns the primary and co-role for the party at a given
// fragment index
type roleFunc func(index int) (primary, co model.Role)

// expandParties applies name splitting and role assignment: a connective in
// one name field expands into multiple Party records, the first keeping the
// primary role and the rest defaulting to the co-role with only their own
// name populated.
func expandParties(doc *model.CanonicalDocument, roles roleFunc) {
	if len(doc.Parties) == 0 {
		return
	}

	var out []model.Party
	for i, p := range doc.Parties {
		primary, co := roles(i)
		names := SplitFullNames(p.Name.Full)
		if len(names) == 0 {
			p.Role = primary
			out = append(out, p)
			continue
		}

		first := p
		first.Role = primary
		first.Name = names[0]
		out = append(out, first)

		for _, n := range names[1:] {
			out = append(out, model.Party{Role: co, Name: n})
		}
	}
	doc.Parties = out
}

func borrowerRoles(index int) (model.Role, model.Role) {
	if index == 0 {
		return model.RoleBorrower, model.RoleCoBorrower
	}
	return model.RoleCoBorrower, model.RoleCoBorrower
}

// addMoney sums two amounts, ignoring unparsed or empty operands
func addMoney(a, b model.Money) model.Money {
	switch {
	case a.Unparsed || a.Amount.IsZero():
		return b
	case b.Unparsed || b.Amount.IsZero():
		return a
	default:
		return model.MoneyFromDecimal(a.Amount.Add(b.Amount))
	}
}
