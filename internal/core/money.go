// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and decimal representations. Amounts are
// exact decimals; floats never appear in monetary arithmetic.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits an amount may carry.
const AmountScale = 2

// ParseAmount converts a decimal string to an exact amount.
//
// It accepts an integer part with an optional dot and one or two fractional
// digits. Signs, separators other than the dot and empty parts are rejected
// with ErrInvalidAmount; three or more fractional digits are rejected with
// ErrInvalidAmountPrecision rather than rounded.
//
// Examples:
//
//	ParseAmount("12")     -> 12, nil
//	ParseAmount("12.5")   -> 12.5, nil
//	ParseAmount("12.345") -> 0, ErrInvalidAmountPrecision
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if intPart == "" || !allDigits(intPart) {
		return decimal.Zero, ErrInvalidAmount
	}
	if hasDot {
		if fracPart == "" || !allDigits(fracPart) {
			return decimal.Zero, ErrInvalidAmount
		}
		if len(fracPart) > AmountScale {
			return decimal.Zero, ErrInvalidAmountPrecision
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ValidateAmount checks the amount invariants: non-negative, at most two
// fractional digits, and a cent count that fits in an int64.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrInvalidAmount
	}
	if !d.Equal(d.Truncate(AmountScale)) {
		return ErrInvalidAmountPrecision
	}
	if !d.Shift(AmountScale).BigInt().IsInt64() {
		return fmt.Errorf("%w: %s exceeds the largest storable amount", ErrInvalidAmount, d)
	}
	return nil
}

// RoundHalfUp rounds d to places fractional digits, halves going up.
// Amounts are non-negative, so shopspring's half-away-from-zero rounding is
// half-up here.
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// FormatAmount renders an amount with exactly two fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}

// ToCents converts an amount to integer cents for storage.
func ToCents(d decimal.Decimal) int64 {
	return d.Shift(AmountScale).Round(0).IntPart()
}

// FromCents converts integer cents back to an exact amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -AmountScale)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
