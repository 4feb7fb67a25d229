package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mortgageiq/loanforge/internal/rules"
)

// Reconstruct rebuilds a repeating table from flattened prefix_<n>_<field>
// keys. Items are ordered by numeric index ascending; gaps are allowed but
// never reordered. The result is deterministic for a given flat map and
// descriptor.
func Reconstruct(fields map[string]string, rg *rules.RepeatGroup) []map[string]any {
	if rg == nil || len(fields) == 0 {
		return nil
	}

	keyRE := regexp.MustCompile(`^` + regexp.QuoteMeta(rg.Prefix) + `_(\d+)_(.+)$`)

	items := make(map[int]map[string]any)
	for key, raw := range fields {
		m := keyRE.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		field := m[2]
		target, ok := rg.Fields[field]
		if !ok {
			continue
		}
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		if name, ok := rg.Transforms[field]; ok {
			if f, ok := rules.LookupTransform(name); ok {
				value = f(value)
			}
		}

		item, ok := items[idx]
		if !ok {
			item = make(map[string]any)
			items[idx] = item
		}
		setItemPath(item, target, value)
	}

	if len(items) == 0 {
		return nil
	}

	indices := make([]int, 0, len(items))
	for idx := range items {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	out := make([]map[string]any, 0, len(indices))
	for _, idx := range indices {
		out = append(out, items[idx])
	}
	return out
}

// setItemPath writes a dotted relative path inside one item
func setItemPath(item map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	for i, part := range parts {
		if i == len(parts)-1 {
			item[part] = value
			return
		}
		next, ok := item[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			item[part] = next
		}
		item = next
	}
}
