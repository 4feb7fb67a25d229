// Package extract applies declarative rule sets to raw document text and
// reconstructs flattened list patterns. Extraction is a pure function of
// (document type, input); a rule that matches nothing contributes nothing.
package extract

import (
	"strings"

	"github.com/mortgageiq/loanforge/internal/rules"
)

// Match is one raw value extracted by a rule, with capture metadata
type Match struct {
	Value string `json:"value"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Result holds the flat extraction output for one document: per-rule matches
// from raw text plus any pre-structured flat fields supplied by the caller
// (the output contract of the external OCR/structuring collaborators).
type Result struct {
	Matches map[string][]Match
	Fields  map[string]string
}

// Value resolves the raw value for a rule id: the first text match wins,
// else the flat field of the same name. The boolean is false on a miss.
func (r *Result) Value(ruleID string) (string, bool) {
	if ms := r.Matches[ruleID]; len(ms) > 0 {
		return ms[0].Value, true
	}
	v, ok := r.Fields[ruleID]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Extractor evaluates rule sets against raw text
type Extractor struct{}

// NewExtractor creates a new field extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract evaluates every rule of the set independently against text and
// merges in the caller-provided flat fields. Repeat-group rules do not scan
// text; they are expanded later against the flat field space.
func (e *Extractor) Extract(set *rules.Set, text string, provided map[string]string) *Result {
	result := &Result{
		Matches: make(map[string][]Match),
		Fields:  make(map[string]string, len(provided)),
	}
	for k, v := range provided {
		result.Fields[k] = v
	}

	if set == nil || text == "" {
		return result
	}

	for _, rule := range set.Rules {
		if rule.Repeat != nil {
			continue
		}
		switch {
		case rule.Regexp() != nil:
			result.Matches[rule.ID] = matchPattern(rule, text)
		case rule.Literal != "":
			result.Matches[rule.ID] = matchLiteral(rule.Literal, text)
		}
	}

	return result
}

func matchPattern(rule *rules.Rule, text string) []Match {
	var out []Match
	group := rule.CaptureGroup()
	for _, loc := range rule.Regexp().FindAllStringSubmatchIndex(text, -1) {
		s, e := loc[2*group], loc[2*group+1]
		if s < 0 || e < 0 {
			continue
		}
		value := strings.TrimSpace(text[s:e])
		if value == "" {
			continue
		}
		out = append(out, Match{Value: value, Start: s, End: e})
	}
	return out
}

// matchLiteral anchors a label and captures the remainder of the line.
// Mortgage forms are overwhelmingly "Label: value" line layouts.
func matchLiteral(label string, text string) []Match {
	var out []Match
	lowerText := strings.ToLower(text)
	lowerLabel := strings.ToLower(label)

	offset := 0
	for {
		idx := strings.Index(lowerText[offset:], lowerLabel)
		if idx < 0 {
			break
		}
		start := offset + idx + len(label)
		end := strings.IndexByte(text[start:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += start
		}

		value := strings.TrimSpace(strings.TrimLeft(text[start:end], ": \t"))
		if value != "" {
			out = append(out, Match{Value: value, Start: start, End: end})
		}
		offset = end
		if offset >= len(text) {
			break
		}
	}
	return out
}
