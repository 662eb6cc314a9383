package domain

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.English)

// FormatGrouped renders d with thousands separators and exactly places decimals.
// d is rounded half-up first, so formatting an already rounded value is a no-op.
func FormatGrouped(d decimal.Decimal, places int32) string {
	rounded := d.Round(places)
	f, _ := rounded.Float64()
	return printer.Sprint(number.Decimal(f, number.Scale(int(places))))
}

// FormatAmount renders a money amount for display.
func FormatAmount(d decimal.Decimal) string {
	return FormatGrouped(d, AmountPlaces)
}

// FormatRate renders a rate with RatePlaces decimals, without grouping.
func FormatRate(d decimal.Decimal) string {
	return d.StringFixed(RatePlaces)
}
