package canon

import (
	"fmt"
	"sort"
	"strconv"
)

// Fragment is the dynamic canonical tree the mapper writes into before the
// assembler restructures it into typed model objects. Intermediate maps and
// arrays are created on demand; array indices are stable within one
// assembly pass.
type Fragment struct {
	root map[string]any
}

// NewFragment creates an empty fragment
func NewFragment() *Fragment {
	return &Fragment{root: make(map[string]any)}
}

// Set writes a value at the parsed path, materializing intermediate
// containers as needed
func (f *Fragment) Set(p Path, value any) error {
	steps := p.Steps()
	if len(steps) == 0 {
		return fmt.Errorf("empty path")
	}

	container := f.root
	for i, step := range steps {
		last := i == len(steps)-1

		if step.Index < 0 {
			if last {
				container[step.Field] = value
				return nil
			}
			next, ok := container[step.Field].(map[string]any)
			if !ok {
				if container[step.Field] != nil {
					return fmt.Errorf("path %q: %s is not an object", p, step.Field)
				}
				next = make(map[string]any)
				container[step.Field] = next
			}
			container = next
			continue
		}

		arr, ok := container[step.Field].([]any)
		if !ok && container[step.Field] != nil {
			return fmt.Errorf("path %q: %s is not an array", p, step.Field)
		}
		for len(arr) <= step.Index {
			arr = append(arr, nil)
		}
		container[step.Field] = arr

		if last {
			arr[step.Index] = value
			return nil
		}
		elem, ok := arr[step.Index].(map[string]any)
		if !ok {
			if arr[step.Index] != nil {
				return fmt.Errorf("path %q: %s[%d] is not an object", p, step.Field, step.Index)
			}
			elem = make(map[string]any)
			arr[step.Index] = elem
		}
		container = elem
	}

	return nil
}

// Get reads the value at the parsed path
func (f *Fragment) Get(p Path) (any, bool) {
	var cur any = f.root
	for _, step := range p.Steps() {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[step.Field]
		if !ok {
			return nil, false
		}
		if step.Index >= 0 {
			arr, ok := cur.([]any)
			if !ok || step.Index >= len(arr) {
				return nil, false
			}
			cur = arr[step.Index]
		}
	}
	return cur, cur != nil
}

// GetString reads a string value at the parsed path
func (f *Fragment) GetString(p Path) (string, bool) {
	v, ok := f.Get(p)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Section returns the raw subtree of a top-level section
func (f *Fragment) Section(name string) (any, bool) {
	v, ok := f.root[name]
	return v, ok
}

// Sections returns the populated top-level section names, sorted
func (f *Fragment) Sections() []string {
	var names []string
	for k := range f.root {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Remove deletes an entire top-level section
func (f *Fragment) Remove(section string) {
	delete(f.root, section)
}

// Empty reports whether nothing has been written
func (f *Fragment) Empty() bool {
	return len(f.root) == 0
}

// Walk visits every leaf value with its dotted/bracketed path
func (f *Fragment) Walk(fn func(path string, value any)) {
	walkNode("", f.root, fn)
}

// Leaves returns the number of populated leaf values
func (f *Fragment) Leaves() int {
	n := 0
	f.Walk(func(string, any) { n++ })
	return n
}

func walkNode(prefix string, node any, fn func(string, any)) {
	switch v := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			walkNode(p, v[k], fn)
		}
	case []any:
		for i, elem := range v {
			if elem == nil {
				continue
			}
			walkNode(prefix+"["+strconv.Itoa(i)+"]", elem, fn)
		}
	default:
		if v != nil {
			fn(prefix, v)
		}
	}
}
