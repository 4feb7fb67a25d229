package canon

import (
	"sort"

	"github.com/mortgageiq/loanforge/internal/extract"
	"github.com/mortgageiq/loanforge/internal/model"
	"github.com/mortgageiq/loanforge/internal/rules"
)

// Mapper resolves priority-ranked field groups into a canonical fragment and
// validates the result against the document scope table.
type Mapper struct {
	scope  *ScopeTable
	policy model.ScopePolicy
}

// NewMapper creates a mapper over an immutable scope table
func NewMapper(scope *ScopeTable, policy model.ScopePolicy) *Mapper {
	if policy == "" {
		policy = model.ScopePolicyReject
	}
	return &Mapper{scope: scope, policy: policy}
}

// MapOutcome reports what the mapper wrote
type MapOutcome struct {
	Fragment *Fragment
	// Applied lists the target paths that received a value, in write order
	Applied []string
	// Clipped lists offending paths removed by scope validation
	Clipped []string
}

// Map applies a rule set's extraction output to a fresh fragment. Within a
// priority group the lowest priority number with a non-empty value wins,
// ties broken by declaration order. A target with no value is left unset;
// no defaults are ever injected. Scope violations clip the offending
// sections and, under the reject policy, fail the document.
func (m *Mapper) Map(docType model.DocumentType, set *rules.Set, res *extract.Result) (*MapOutcome, error) {
	out := &MapOutcome{Fragment: NewFragment()}
	if set == nil {
		return out, nil
	}

	scalarTargets, repeatTargets := groupByTarget(set)

	for _, group := range scalarTargets {
		rule, value := firstValue(group, res)
		if rule == nil {
			continue
		}
		if name := rule.Transform; name != "" {
			if f, ok := rules.LookupTransform(name); ok {
				value = f(value)
			}
		}
		if err := m.write(out, rule.Target, value); err != nil {
			return nil, err
		}
	}

	for _, group := range repeatTargets {
		// Repeat groups for one target are mutually exclusive alternatives:
		// only the highest-priority group yielding at least one item is used
		for _, rule := range group {
			items := extract.Reconstruct(res.Fields, rule.Repeat)
			if len(items) == 0 {
				continue
			}
			arr := make([]any, len(items))
			for i, item := range items {
				arr[i] = item
			}
			if err := m.write(out, rule.Target, arr); err != nil {
				return nil, err
			}
			break
		}
	}

	return out, m.validateScope(docType, out)
}

func (m *Mapper) write(out *MapOutcome, target string, value any) error {
	p, err := ParsePath(target)
	if err != nil {
		return &model.RuleConfigError{Reason: "invalid target path: " + err.Error()}
	}
	if err := out.Fragment.Set(p, value); err != nil {
		return &model.RuleConfigError{Reason: err.Error()}
	}
	out.Applied = append(out.Applied, target)
	return nil
}

// validateScope walks the produced fragment and clips every populated
// top-level section outside Scope(docType). Under the reject policy the
// violation is also a hard error naming the offending paths.
func (m *Mapper) validateScope(docType model.DocumentType, out *MapOutcome) error {
	var offending []string
	for _, section := range out.Fragment.Sections() {
		if m.scope.AllowedSection(section, docType) {
			continue
		}
		sec := section
		out.Fragment.Walk(func(path string, _ any) {
			if pathSection(path) == sec {
				offending = append(offending, path)
			}
		})
		out.Fragment.Remove(section)
	}
	if len(offending) == 0 {
		return nil
	}

	sort.Strings(offending)
	out.Clipped = append(out.Clipped, offending...)
	if m.policy == model.ScopePolicyClip {
		return nil
	}
	return &model.ScopeViolationError{DocType: docType, Paths: offending}
}

// groupByTarget partitions rules by target path, preserving declaration
// order of the groups and sorting each group by (priority, declaration)
func groupByTarget(set *rules.Set) (scalar [][]*rules.Rule, repeat [][]*rules.Rule) {
	scalarIdx := make(map[string]int)
	repeatIdx := make(map[string]int)

	for _, r := range set.Rules {
		if r.Repeat != nil {
			i, ok := repeatIdx[r.Target]
			if !ok {
				i = len(repeat)
				repeatIdx[r.Target] = i
				repeat = append(repeat, nil)
			}
			repeat[i] = append(repeat[i], r)
			continue
		}
		i, ok := scalarIdx[r.Target]
		if !ok {
			i = len(scalar)
			scalarIdx[r.Target] = i
			scalar = append(scalar, nil)
		}
		scalar[i] = append(scalar[i], r)
	}

	for _, g := range scalar {
		sortGroup(g)
	}
	for _, g := range repeat {
		sortGroup(g)
	}
	return scalar, repeat
}

func sortGroup(g []*rules.Rule) {
	sort.SliceStable(g, func(i, j int) bool {
		if g[i].EffectivePriority() != g[j].EffectivePriority() {
			return g[i].EffectivePriority() < g[j].EffectivePriority()
		}
		return g[i].Order() < g[j].Order()
	})
}

// firstValue returns the first rule in priority order that extracted a
// non-empty value
func firstValue(group []*rules.Rule, res *extract.Result) (*rules.Rule, string) {
	for _, r := range group {
		if v, ok := res.Value(r.ID); ok {
			return r, v
		}
	}
	return nil, ""
}

func pathSection(path string) string {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' || path[i] == '[' {
			return path[:i]
		}
	}
	return path
}
