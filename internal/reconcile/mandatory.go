package reconcile

import (
	"encoding/json"

	"github.com/mortgageiq/loanforge/internal/canon"
	"github.com/mortgageiq/loanforge/internal/model"
)

// checkMandatory verifies the fixed critical-field list after the merge.
// Missing paths are surfaced as report entries; the merge itself stands.
func (m *merger) checkMandatory() {
	missing := missingMandatory(&m.master.Canonical, m.cfg.MandatoryPaths)
	if len(missing) == 0 {
		m.master.State = model.StateReadyForClosing
		return
	}
	if m.master.State == model.StateReadyForClosing {
		m.master.State = model.StatePartiallyPopulated
	}
	m.report.Add(model.ReportEntry{
		Kind:        model.EntryMissingMandatory,
		Severity:    model.SeverityWarning,
		Paths:       missing,
		Description: "mandatory fields not yet populated",
	})
}

// missingMandatory evaluates the mandatory paths against the canonical
// document through its JSON projection, so the path language matches the
// one rule targets use
func missingMandatory(doc *model.CanonicalDocument, paths []string) []string {
	data, err := json.Marshal(doc)
	if err != nil {
		return paths
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return paths
	}

	var missing []string
	for _, raw := range paths {
		p, err := canon.ParsePath(raw)
		if err != nil {
			missing = append(missing, raw)
			continue
		}
		if !present(tree, p) {
			missing = append(missing, raw)
		}
	}
	return missing
}

func present(tree map[string]any, p canon.Path) bool {
	var cur any = tree
	for _, step := range p.Steps() {
		m, ok := cur.(map[string]any)
		if !ok {
			return false
		}
		cur, ok = m[step.Field]
		if !ok || cur == nil {
			return false
		}
		if step.Index >= 0 {
			arr, ok := cur.([]any)
			if !ok || step.Index >= len(arr) || arr[step.Index] == nil {
				return false
			}
			cur = arr[step.Index]
		}
	}

	switch v := cur.(type) {
	case string:
		return v != ""
	case map[string]any:
		// An unparsed amount keeps its raw text in the JSON projection but
		// is not usable data for closing
		if v["unparsed"] == true {
			return false
		}
		return len(v) > 0
	case []any:
		return len(v) > 0
	default:
		return cur != nil
	}
}
