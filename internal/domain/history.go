package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TimestampLayout ISO-8601 layout used for persisted history timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// HistoryEntry persisted record of a completed conversion.
type HistoryEntry struct {
	ID              string          `json:"id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	From            string          `json:"fromCurrency"`
	ConvertedAmount decimal.Decimal `json:"convertedAmount"`
	To              string          `json:"toCurrency"`
	Rate            decimal.Decimal `json:"rate"`
	Timestamp       string          `json:"timestamp"`
}

// NewHistoryEntry builds a ledger entry from result stamped with now (UTC).
func NewHistoryEntry(result ConversionResult, now time.Time) HistoryEntry {
	return HistoryEntry{
		ID:              uuid.NewString(),
		Amount:          result.Amount,
		From:            result.From,
		ConvertedAmount: result.ConvertedAmount,
		To:              result.To,
		Rate:            result.Rate,
		Timestamp:       now.UTC().Format(TimestampLayout),
	}
}

// Time parses Timestamp; the zero time is returned for malformed values.
func (e HistoryEntry) Time() time.Time {
	t, err := time.Parse(time.RFC3339, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}
