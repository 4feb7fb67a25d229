package assemble

import (
	"strings"

	"github.com/mortgageiq/loanforge/internal/model"
)

var nameSuffixes = map[string]bool{
	"jr": true, "sr": true, "ii": true, "iii": true, "iv": true,
}

// SplitFullNames expands a single name field into one name per person.
// Connective tokens (" and ", " & ") separate people; a comma inside one
// person's name is the "Last, First" layout.
func SplitFullNames(full string) []model.PersonName {
	full = strings.TrimSpace(full)
	if full == "" {
		return nil
	}

	var parts []string
	lower := strings.ToLower(full)
	switch {
	case strings.Contains(lower, " and "):
		parts = splitConnective(full, " and ")
	case strings.Contains(full, " & "):
		parts = splitConnective(full, " & ")
	default:
		parts = []string{full}
	}

	var names []model.PersonName
	for _, p := range parts {
		if n := SplitPersonName(p); n.Full != "" {
			names = append(names, n)
		}
	}
	return names
}

func splitConnective(full, sep string) []string {
	var out []string
	lower := strings.ToLower(full)
	lowerSep := strings.ToLower(sep)
	start := 0
	for {
		idx := strings.Index(lower[start:], lowerSep)
		if idx < 0 {
			out = append(out, strings.TrimSpace(full[start:]))
			return out
		}
		out = append(out, strings.TrimSpace(full[start:start+idx]))
		start += idx + len(sep)
	}
}

// SplitPersonName splits one person's name into components. "Last, First
// Middle" and "First Middle Last [Suffix]" layouts are both recognized.
func SplitPersonName(full string) model.PersonName {
	full = strings.TrimSpace(full)
	if full == "" {
		return model.PersonName{}
	}

	name := model.PersonName{Full: full}

	if comma := strings.IndexByte(full, ','); comma >= 0 {
		name.Last = strings.TrimSpace(full[:comma])
		rest := strings.Fields(full[comma+1:])
		if len(rest) > 0 {
			name.First = rest[0]
		}
		if len(rest) > 1 {
			name.Middle = strings.Join(rest[1:], " ")
		}
		return name
	}

	tokens := strings.Fields(full)
	if len(tokens) > 1 {
		last := strings.ToLower(strings.Trim(tokens[len(tokens)-1], "."))
		if nameSuffixes[last] {
			name.Suffix = tokens[len(tokens)-1]
			tokens = tokens[:len(tokens)-1]
		}
	}

	switch len(tokens) {
	case 0:
	case 1:
		name.First = tokens[0]
	case 2:
		name.First = tokens[0]
		name.Last = tokens[1]
	default:
		name.First = tokens[0]
		name.Middle = strings.Join(tokens[1:len(tokens)-1], " ")
		name.Last = tokens[len(tokens)-1]
	}
	return name
}
