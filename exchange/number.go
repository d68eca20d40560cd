package exchange

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Numeric fields in venue payloads arrive as strings, numbers, or not at
// all. These helpers normalize them into *decimal.Decimal where nil means
// "unknown". An absent value must never collapse into zero, which would be
// a silently wrong financial quantity.

// Dec parses a gjson value into a decimal, nil when absent or malformed.
func Dec(v gjson.Result) *decimal.Decimal {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	s := v.String()
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// DecField returns the first of the named fields that parses, nil otherwise.
func DecField(v gjson.Result, paths ...string) *decimal.Decimal {
	for _, p := range paths {
		if d := Dec(v.Get(p)); d != nil {
			return d
		}
	}
	return nil
}

// IntField returns the first present integer field, 0 otherwise.
func IntField(v gjson.Result, paths ...string) int64 {
	for _, p := range paths {
		if r := v.Get(p); r.Exists() && r.Type != gjson.Null {
			return r.Int()
		}
	}
	return 0
}

// StrField returns the first present non-empty string field, "" otherwise.
func StrField(v gjson.Result, paths ...string) string {
	for _, p := range paths {
		if r := v.Get(p); r.Exists() && r.Type != gjson.Null {
			if s := r.String(); s != "" {
				return s
			}
		}
	}
	return ""
}

// FromScaled converts a fixed-point integer representation into a decimal,
// dividing by 10^scale. Some venues report amounts this way.
func FromScaled(v gjson.Result, scale int32) *decimal.Decimal {
	d := Dec(v)
	if d == nil {
		return nil
	}
	shifted := d.Shift(-scale)
	return &shifted
}

// TickFromDigits turns a decimal-place count into a tick size (2 -> 0.01).
func TickFromDigits(digits int64) *decimal.Decimal {
	d := decimal.New(1, -int32(digits))
	return &d
}

// DecPtr wraps a concrete decimal for optional fields.
func DecPtr(d decimal.Decimal) *decimal.Decimal { return &d }

// MulDec multiplies two optional decimals, nil when either is unknown.
func MulDec(a, b *decimal.Decimal) *decimal.Decimal {
	if a == nil || b == nil {
		return nil
	}
	p := a.Mul(*b)
	return &p
}

// SubDec subtracts optional decimals, nil when either is unknown.
func SubDec(a, b *decimal.Decimal) *decimal.Decimal {
	if a == nil || b == nil {
		return nil
	}
	d := a.Sub(*b)
	return &d
}
