package assemble

import (
	"strconv"
	"strings"

	"github.com/mortgageiq/loanforge/internal/model"
	"github.com/mortgageiq/loanforge/internal/rules"
	"github.com/shopspring/decimal"
)

// CoerceMoney parses a financial field into a decimal, stripping currency
// and percent symbols and thousands separators. On failure the original
// string is retained and the value is flagged unparsed; coercion never
// fails an assembly.
func CoerceMoney(raw string) model.Money {
	s := strings.TrimSpace(raw)
	if s == "" {
		return model.Money{}
	}
	cleaned := rules.NegativeCurrencyClean(s)
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return model.UnparsedMoney(raw)
	}
	return model.MoneyFromDecimal(d)
}

// CoerceInt parses an integer field, returning 0 when not coercible
func CoerceInt(raw string) int {
	s := strings.TrimSpace(rules.CurrencyClean(raw))
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		s = s[:dot]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
