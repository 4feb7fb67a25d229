package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/mortgageiq/loanforge/internal/model"
	"gopkg.in/yaml.v3"
)

// Load reads every *.yaml rule set under dir and merges it over the built-in
// defaults. A malformed rule set aborts the load: configuration errors are
// fatal at startup.
func Load(dir string) (Ruleset, error) {
	rs := Builtin()
	if dir == "" {
		return rs, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read rules dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		set, err := LoadSet(f)
		if err != nil {
			return nil, err
		}
		rs[set.DocType] = set
	}

	return rs, nil
}

// LoadSet reads and compiles a single rule-set file
func LoadSet(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule set: %w", err)
	}

	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, &model.RuleConfigError{File: path, Reason: "invalid YAML: " + err.Error()}
	}

	if err := Compile(&set, path); err != nil {
		return nil, err
	}
	return &set, nil
}

// Compile validates a rule set and compiles its patterns. Every violation is
// a RuleConfigError naming the file and rule.
func Compile(set *Set, file string) error {
	if !set.DocType.Valid() {
		return &model.RuleConfigError{File: file, Reason: fmt.Sprintf("unknown document type %q", set.DocType)}
	}

	seen := make(map[string]bool)
	for i, r := range set.Rules {
		r.order = i

		if r.ID == "" {
			return &model.RuleConfigError{File: file, Reason: fmt.Sprintf("rule %d has no id", i)}
		}
		if seen[r.ID] {
			return &model.RuleConfigError{File: file, RuleID: r.ID, Reason: "duplicate rule id"}
		}
		seen[r.ID] = true

		if r.Target == "" {
			return &model.RuleConfigError{File: file, RuleID: r.ID, Reason: "missing target path"}
		}
		if r.Pattern != "" && r.Literal != "" {
			return &model.RuleConfigError{File: file, RuleID: r.ID, Reason: "pattern and literal are mutually exclusive"}
		}

		if r.Pattern != "" {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return &model.RuleConfigError{File: file, RuleID: r.ID, Reason: "invalid pattern: " + err.Error()}
			}
			if re.NumSubexp() < r.CaptureGroup() {
				return &model.RuleConfigError{File: file, RuleID: r.ID,
					Reason: fmt.Sprintf("pattern has %d capture groups, rule wants group %d", re.NumSubexp(), r.CaptureGroup())}
			}
			r.re = re
		}

		if r.Transform != "" {
			if _, ok := LookupTransform(r.Transform); !ok {
				return &model.RuleConfigError{File: file, RuleID: r.ID, Reason: fmt.Sprintf("unknown transform %q", r.Transform)}
			}
		}

		if r.Repeat != nil {
			if r.Repeat.Prefix == "" {
				return &model.RuleConfigError{File: file, RuleID: r.ID, Reason: "repeat group has no prefix"}
			}
			if len(r.Repeat.Fields) == 0 {
				return &model.RuleConfigError{File: file, RuleID: r.ID, Reason: "repeat group has no field mapping"}
			}
			for field, name := range r.Repeat.Transforms {
				if _, ok := r.Repeat.Fields[field]; !ok {
					return &model.RuleConfigError{File: file, RuleID: r.ID, Reason: fmt.Sprintf("repeat transform for unmapped field %q", field)}
				}
				if _, ok := LookupTransform(name); !ok {
					return &model.RuleConfigError{File: file, RuleID: r.ID, Reason: fmt.Sprintf("unknown transform %q", name)}
				}
			}
		}
	}

	return nil
}
