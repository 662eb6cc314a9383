// Package domain defines core data structures used throughout the converter.
package domain

import (
	"fmt"
	"strings"
)

// Pair currency conversion pair.
type Pair struct {
	// From base currency code.
	From string
	// To target currency code.
	To string
}

// NewPair returns a pair with normalized (trimmed, upper-cased) codes.
func NewPair(from, to string) Pair {
	return Pair{From: NormalizeCode(from), To: NormalizeCode(to)}
}

// String returns the string representation.
func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.From, p.To)
}

// Swap returns the pair with both sides exchanged.
func (p Pair) Swap() Pair {
	return Pair{From: p.To, To: p.From}
}

// Same reports whether both sides name the same currency.
func (p Pair) Same() bool {
	return p.From != "" && p.From == p.To
}

// NormalizeCode trims and upper-cases an ISO 4217 code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Currencies offered by the presentation layers before a rate table is known.
var Currencies = []string{
	"USD", "EUR", "GBP", "JPY", "CHF", "CAD", "AUD", "NZD", "CNY", "HKD",
	"SGD", "SEK", "NOK", "DKK", "PLN", "CZK", "HUF", "TRY", "INR", "BRL",
	"MXN", "ZAR", "KRW",
}
