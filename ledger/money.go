/*
Package ledger provides the core tuition ledger engine.

PURPOSE:
  This package contains the pure domain types and algorithms for tuition
  administration: the fixed-point Money type, school-year calendar
  enumeration, per-month payment status classification, outstanding
  balance calculation, and lump-payment allocation. Nothing in this
  package performs I/O; persistence and HTTP live in sibling packages.

KEY CONCEPTS IN THIS FILE (money.go):
  - Money: A fixed-point decimal monetary value (no floating-point drift)
  - Tolerance: A 0.001 currency-unit epsilon used when comparing a paid
    total against a fee, so rounding noise never flips a month's status

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all monetary math
  2. Convert once: Amounts are parsed to Money at system boundaries and
     never re-parsed downstream
  3. Fail loudly: An unparseable or negative fee is an error, never zero

SEE ALSO:
  - period.go: School-year calendar and obligation periods
  - balance.go: Per-month status and outstanding totals
  - allocation.go: Lump-payment distribution
*/
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Fixed-point monetary value
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

// tolerance absorbs sub-cent rounding noise when comparing paid vs owed.
var tolerance = decimal.NewFromFloat(0.001)

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int) Money {
	return Money{Value: decimal.NewFromInt(int64(value))}
}

// NewMoneyFromString parses a decimal string into Money.
// Returns a BadMoneyError for anything that does not parse.
func NewMoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, &BadMoneyError{Raw: s, Cause: err}
	}
	return Money{Value: d}, nil
}

// MustMoney parses a decimal string or panics. Test helper.
func MustMoney(s string) Money {
	m, err := NewMoneyFromString(s)
	if err != nil {
		panic(fmt.Sprintf("invalid money literal %q", s))
	}
	return m
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money              { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money              { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money    { return Money{Value: m.Value.Mul(s)} }
func (m Money) Div(s decimal.Decimal) Money    { return Money{Value: m.Value.Div(s)} }
func (m Money) Neg() Money                     { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool                   { return m.Value.IsZero() }
func (m Money) IsNegative() bool               { return m.Value.IsNegative() }
func (m Money) IsPositive() bool               { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool             { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool       { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool          { return m.Value.LessThan(o.Value) }
func (m Money) Min(o Money) Money              { if m.LessThan(o) { return m }; return o }
func (m Money) Max(o Money) Money              { if m.GreaterThan(o) { return m }; return o }

// Round2 rounds to 2 decimal places (currency cents).
func (m Money) Round2() Money { return Money{Value: m.Value.Round(2)} }

// FloorZero clamps negative values to zero. Cached student balances and
// per-month outstanding amounts are never negative.
func (m Money) FloorZero() Money {
	if m.IsNegative() {
		return ZeroMoney()
	}
	return m
}

// Covers reports whether m is at least fee, within the rounding tolerance.
// A month paid 499.999 against a 500.00 fee counts as covered.
func (m Money) Covers(fee Money) bool {
	return m.Value.Add(tolerance).GreaterThanOrEqual(fee.Value)
}

func (m Money) String() string { return m.Value.String() }

// JSON: Money travels as a decimal string so clients never see float drift.

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.Value.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return &BadMoneyError{Raw: s, Cause: err}
	}
	m.Value = d
	return nil
}
