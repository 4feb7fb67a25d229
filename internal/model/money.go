package model

import "github.com/shopspring/decimal"

// Money is a monetary amount that survives failed coercion. When the source
// text cannot be parsed as a decimal the original string is retained and the
// value is marked unparsed instead of failing the assembly.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Raw      string          `json:"raw,omitempty"`
	Unparsed bool            `json:"unparsed,omitempty"`
}

// MoneyFromDecimal wraps a parsed decimal amount
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Amount: d}
}

// UnparsedMoney retains a value that could not be coerced
func UnparsedMoney(raw string) Money {
	return Money{Raw: raw, Unparsed: true}
}

// IsZero reports whether the value carries nothing worth serializing: no
// parsed amount and no retained raw text. encoding/json consults this for
// omitzero fields, so an unparsed value keeps its raw text in every
// artifact and across a cache round trip.
func (m Money) IsZero() bool {
	return !m.Unparsed && m.Raw == "" && m.Amount.IsZero()
}

// Missing reports whether the value carries no usable parsed amount. Fill
// and comparison logic treats unparsed values as missing data.
func (m Money) Missing() bool {
	return m.Unparsed || m.Amount.IsZero()
}

// String renders the amount, falling back to the retained raw text
func (m Money) String() string {
	if m.Unparsed {
		return m.Raw
	}
	return m.Amount.String()
}
