// Package core contains the coffee tracker domain: catalog, ledger,
// aggregate statistics and the persisted application state.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and dollar representations.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (4.50) and comma (4,50) decimal separators and performs
// half-up rounding on the third decimal place. Zero is a valid amount (a
// catalog item may be free); negative values are rejected.
//
// Examples:
//
//	ParseDecimalToCents("4.50") -> 450, nil
//	ParseDecimalToCents("4,50") -> 450, nil
//	ParseDecimalToCents("4.505") -> 451, nil (rounds up)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidPrice
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only unsigned values allowed
		return 0, ErrInvalidPrice
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidPrice
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidPrice
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidPrice
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidPrice
	}
	// Take first two fractional digits; then half-up rounding on third
	var fracCents int64 = 0
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCents = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracCents += d2
			if len(fracPart) > 2 {
				if fracPart[2] >= '5' {
					fracCents++
				}
			}
		}
	}
	return iv*100 + fracCents, nil
}

// Money is an amount in integer cents. All arithmetic stays in cents;
// floats appear only at the display boundary.
type Money struct {
	Cents int64
}

// Validate rejects negative amounts. Zero is allowed: catalog prices may
// legitimately be zero, and orphaned ledger references resolve to zero.
func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativePrice
	}
	return nil
}

// MarshalJSON encodes the amount as a bare integer of cents.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.Cents, 10)), nil
}

// UnmarshalJSON accepts a bare integer of cents.
func (m *Money) UnmarshalJSON(b []byte) error {
	cents, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid money value %q: %w", b, ErrInvalidPrice)
	}
	m.Cents = cents
	return nil
}

// Mul returns the amount multiplied by a count.
func (m Money) Mul(n int) Money {
	return Money{Cents: m.Cents * int64(n)}
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Dollars returns the dollar value as a float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Dollars() float64 {
	return float64(m.Cents) / 100.0
}

// String formats the amount as "$4.50".
func (m Money) String() string {
	return fmt.Sprintf("$%d.%02d", m.Cents/100, m.Cents%100)
}
