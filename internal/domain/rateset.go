package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateSet rate table fetched for a base currency.
type RateSet struct {
	Base      string
	Rates     map[string]decimal.Decimal
	FetchedAt time.Time
}

// Rate returns the rate for code and whether the table contains it.
func (r RateSet) Rate(code string) (decimal.Decimal, bool) {
	rate, ok := r.Rates[code]
	return rate, ok
}

// FreshAt reports whether the table is still inside its freshness window at now.
func (r RateSet) FreshAt(now time.Time, window time.Duration) bool {
	return now.Sub(r.FetchedAt) < window
}
