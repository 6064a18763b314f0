// Package core provides amount parsing and handling utilities.
//
// This file contains the Amount type: a non-negative decimal that may also be
// explicitly empty while the user is still typing.
package core

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a non-negative money amount or the empty sentinel.
// The zero value is empty.
type Amount struct {
	value decimal.Decimal
	set   bool
}

// EmptyAmount returns the empty sentinel. It is distinct from zero.
func EmptyAmount() Amount {
	return Amount{}
}

// NewAmount wraps d. Negative values are rejected.
func NewAmount(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() {
		return Amount{}, ErrInvalidAmount
	}
	return Amount{value: d, set: true}, nil
}

// AmountFromInt is a convenience for whole amounts such as yen.
func AmountFromInt(n int64) Amount {
	a, err := NewAmount(decimal.NewFromInt(n))
	if err != nil {
		return Amount{}
	}
	return a
}

// ParseAmount converts user input into an Amount.
//
// An empty (or blank) string yields the empty sentinel, never zero.
// Examples:
//
//	ParseAmount("")     -> empty, nil
//	ParseAmount("1500") -> 1500, nil
//	ParseAmount("-1")   -> ErrInvalidAmount
//	ParseAmount("abc")  -> ErrInvalidAmount
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return EmptyAmount(), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, ErrInvalidAmount
	}
	return NewAmount(d)
}

// IsEmpty reports whether the amount is the empty sentinel.
func (a Amount) IsEmpty() bool {
	return !a.set
}

// Decimal returns the value; zero for the empty sentinel.
func (a Amount) Decimal() decimal.Decimal {
	return a.value
}

// Equal compares two amounts, treating empty as distinct from zero.
func (a Amount) Equal(b Amount) bool {
	if a.set != b.set {
		return false
	}
	return !a.set || a.value.Equal(b.value)
}

func (a Amount) String() string {
	if !a.set {
		return ""
	}
	return a.value.String()
}

// CellValue is the value written into a spreadsheet cell: an integer when the
// amount is whole and fits in int64, a float otherwise, and an empty string
// for the sentinel.
func (a Amount) CellValue() any {
	if !a.set {
		return ""
	}
	if a.value.IsInteger() && a.value.BigInt().IsInt64() {
		return a.value.IntPart()
	}
	return a.value.InexactFloat64()
}

// MarshalJSON encodes a number, or "" for the empty sentinel.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.set {
		return []byte(`""`), nil
	}
	return []byte(a.value.String()), nil
}

// UnmarshalJSON accepts a JSON number, a numeric string, "" or null.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = EmptyAmount()
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := ParseAmount(s)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	}
	parsed, err := ParseAmount(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
