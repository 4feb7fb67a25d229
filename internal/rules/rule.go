// Package rules defines the declarative, versioned extraction rule sets
// applied per document type.
package rules

import (
	"regexp"

	"github.com/mortgageiq/loanforge/internal/model"
)

// RepeatGroup reconstructs a flattened table from prefix_<index>_<field>
// keys. Fields maps the source field suffix to a path relative to one item
// of the target array.
type RepeatGroup struct {
	Prefix string            `yaml:"prefix"`
	Fields map[string]string `yaml:"fields"`
	// Transforms optionally names a transform per source field suffix
	Transforms map[string]string `yaml:"transforms,omitempty"`
}

// Rule is one declarative extraction rule. Exactly one of Pattern or Literal
// drives text extraction; the rule id doubles as the source key when the
// caller supplies pre-structured flat fields instead of raw text.
type Rule struct {
	ID string `yaml:"id"`
	// Pattern is a regular expression; the capture group Group (default 1)
	// is the extracted value
	Pattern string `yaml:"pattern,omitempty"`
	// Literal anchors a label; the remainder of the line, trimmed, is the
	// extracted value
	Literal string `yaml:"literal,omitempty"`
	Group   int    `yaml:"group,omitempty"`

	Target    string       `yaml:"target"`
	Priority  int          `yaml:"priority,omitempty"`
	Transform string       `yaml:"transform,omitempty"`
	Repeat    *RepeatGroup `yaml:"repeat,omitempty"`

	re    *regexp.Regexp
	order int
}

// Regexp returns the compiled pattern, nil for literal rules
func (r *Rule) Regexp() *regexp.Regexp { return r.re }

// Order returns the declaration order within the rule set, used to break
// priority ties
func (r *Rule) Order() int { return r.order }

// CaptureGroup returns the effective capture group index
func (r *Rule) CaptureGroup() int {
	if r.Group > 0 {
		return r.Group
	}
	return 1
}

// EffectivePriority returns the priority rank, defaulting to 1
func (r *Rule) EffectivePriority() int {
	if r.Priority > 0 {
		return r.Priority
	}
	return 1
}

// Set is the versioned rule set for one document type
type Set struct {
	DocType model.DocumentType `yaml:"doc_type"`
	Version string             `yaml:"version"`
	Rules   []*Rule            `yaml:"rules"`
}

// Ruleset maps each document type to its compiled rule set. It is built once
// at startup and read-only afterwards.
type Ruleset map[model.DocumentType]*Set

// ForType returns the rule set for a document type, nil if none is loaded
func (rs Ruleset) ForType(t model.DocumentType) *Set {
	return rs[t]
}
