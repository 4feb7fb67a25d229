// Package canon implements the canonical-document side of the pipeline:
// dot/bracket path addressing, the dynamic fragment tree, the document
// scope table, and the priority-resolving mapper.
package canon

import (
	"fmt"
	"strconv"
	"strings"
)

// Step is one instruction of a parsed path: a field access, optionally
// followed by an array index. Index -1 means no index.
type Step struct {
	Field string
	Index int
}

// Path is a parsed canonical path such as
// parties[0].employment[0].monthly_income.base. It is parsed once and reused
// for both writes and validation.
type Path struct {
	steps []Step
	raw   string
}

// ParsePath parses a dot/bracket path into its instruction list
func ParsePath(s string) (Path, error) {
	if strings.TrimSpace(s) == "" {
		return Path{}, fmt.Errorf("empty path")
	}

	var steps []Step
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return Path{}, fmt.Errorf("path %q: empty segment", s)
		}

		field := part
		index := -1
		if open := strings.IndexByte(part, '['); open >= 0 {
			if !strings.HasSuffix(part, "]") {
				return Path{}, fmt.Errorf("path %q: unterminated index in %q", s, part)
			}
			field = part[:open]
			idxStr := part[open+1 : len(part)-1]
			n, err := strconv.Atoi(idxStr)
			if err != nil || n < 0 {
				return Path{}, fmt.Errorf("path %q: invalid index %q", s, idxStr)
			}
			index = n
		}
		if field == "" {
			return Path{}, fmt.Errorf("path %q: missing field before index", s)
		}

		steps = append(steps, Step{Field: field, Index: index})
	}

	return Path{steps: steps, raw: s}, nil
}

// MustParsePath parses a path known to be valid at compile time
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Section returns the top-level section the path addresses
func (p Path) Section() string {
	if len(p.steps) == 0 {
		return ""
	}
	return p.steps[0].Field
}

// Steps returns the parsed instruction list
func (p Path) Steps() []Step { return p.steps }

// String returns the original path text
func (p Path) String() string { return p.raw }
