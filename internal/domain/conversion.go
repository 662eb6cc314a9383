package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ConversionRequest what the user asked to convert. Amount is the raw input text.
type ConversionRequest struct {
	Amount string `json:"amount"`
	From   string `json:"from" validate:"required,iso4217"`
	To     string `json:"to" validate:"required,iso4217"`
}

// Pair returns the normalized currency pair of the request.
func (r ConversionRequest) Pair() Pair {
	return NewPair(r.From, r.To)
}

// ConversionResult outcome of a successful conversion.
type ConversionResult struct {
	Amount          decimal.Decimal `json:"amount"`
	From            string          `json:"from"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
	To              string          `json:"to"`
	Rate            decimal.Decimal `json:"rate"`
	ComputedAt      time.Time       `json:"computed_at"`
}

// NewConversionResult computes the converted amount, rounded half-up to two places.
func NewConversionResult(amount decimal.Decimal, pair Pair, rate decimal.Decimal, now time.Time) ConversionResult {
	return ConversionResult{
		Amount:          amount,
		From:            pair.From,
		ConvertedAmount: amount.Mul(rate).Round(AmountPlaces),
		To:              pair.To,
		Rate:            rate,
		ComputedAt:      now,
	}
}

// InverseRate how many units of From one unit of To buys.
func (r ConversionResult) InverseRate() decimal.Decimal {
	if r.Rate.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).DivRound(r.Rate, 8)
}

// Summary one-line description, e.g. "100.00 USD = 92.00 EUR".
func (r ConversionResult) Summary() string {
	return fmt.Sprintf("%s %s = %s %s", FormatAmount(r.Amount), r.From, FormatAmount(r.ConvertedAmount), r.To)
}

// RateLine e.g. "1 USD = 0.9200 EUR".
func (r ConversionResult) RateLine() string {
	return fmt.Sprintf("1 %s = %s %s", r.From, FormatRate(r.Rate), r.To)
}

// InverseRateLine e.g. "1 EUR = 1.0870 USD".
func (r ConversionResult) InverseRateLine() string {
	return fmt.Sprintf("1 %s = %s %s", r.To, FormatRate(r.InverseRate()), r.From)
}
