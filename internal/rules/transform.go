package rules

import (
	"strings"
	"time"
)

// TransformFunc is a pure, total value transform. It must return the input
// unchanged when the value cannot be coerced, never an error.
type TransformFunc func(string) string

// transforms is the registry of named transforms. Unknown names are a
// configuration error at load time, not a runtime failure.
var transforms = map[string]TransformFunc{
	"currency-clean":          CurrencyClean,
	"negative-currency-clean": NegativeCurrencyClean,
	"date-normalize":          DateNormalize,
}

// LookupTransform resolves a transform by name
func LookupTransform(name string) (TransformFunc, bool) {
	f, ok := transforms[name]
	return f, ok
}

// CurrencyClean strips currency symbols, percent signs, and thousands
// separators: "$1,234.56" -> "1234.56". Non-numeric remainders are returned
// unchanged.
func CurrencyClean(v string) string {
	cleaned := stripMoney(v)
	if !looksNumeric(cleaned) {
		return v
	}
	return cleaned
}

// NegativeCurrencyClean additionally recognizes accounting negatives:
// "(1,234.56)" and "1,234.56-" both become "-1234.56"
func NegativeCurrencyClean(v string) string {
	s := strings.TrimSpace(v)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = s[1 : len(s)-1]
		negative = true
	}
	if strings.HasSuffix(s, "-") {
		s = strings.TrimSuffix(s, "-")
		negative = true
	}
	cleaned := stripMoney(s)
	if !looksNumeric(cleaned) {
		return v
	}
	if negative && !strings.HasPrefix(cleaned, "-") {
		cleaned = "-" + cleaned
	}
	return cleaned
}

// dateLayouts are the input formats accepted by DateNormalize, tried in order
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"01/02/06",
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan 02, 2006",
	"02 Jan 2006",
	"20060102",
}

// DateNormalize rewrites recognized date formats as ISO-8601 (2006-01-02).
// Unrecognized values are returned unchanged.
func DateNormalize(v string) string {
	s := strings.TrimSpace(v)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return v
}

func stripMoney(v string) string {
	s := strings.TrimSpace(v)
	s = strings.TrimPrefix(s, "-")
	neg := len(s) < len(strings.TrimSpace(v))
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '$', ',', '%', ' ':
			continue
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if neg {
		out = "-" + out
	}
	return out
}

func looksNumeric(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	dots := 0
	for _, r := range s {
		if r == '.' {
			dots++
			if dots > 1 {
				return false
			}
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != "."
}
