package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// CacheDuration is the freshness window of a fetched rate table.
	CacheDuration = 3_600_000 * time.Millisecond
	// MaxHistoryItems bounds the conversion ledger.
	MaxHistoryItems = 5

	// AmountPlaces is the number of decimals kept for converted amounts.
	AmountPlaces = 2
	// RatePlaces is the number of decimals used when displaying a rate.
	RatePlaces = 4
)

var (
	// MinAmount is the smallest amount accepted for conversion.
	MinAmount = decimal.RequireFromString("0.01")
	// MaxAmount is the largest amount accepted for conversion.
	MaxAmount = decimal.NewFromInt(1_000_000_000)
)
