package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"0", "0.00"},
		{"92", "92.00"},
		{"1234.5", "1,234.50"},
		{"1000000000", "1,000,000,000.00"},
		{"0.005", "0.01"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatAmount(decimal.RequireFromString(tt.in)), tt.in)
	}
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "0.9200", FormatRate(decimal.RequireFromString("0.92")))
	assert.Equal(t, "1.2346", FormatRate(decimal.RequireFromString("1.23456")))
}

func TestLimitMessages(t *testing.T) {
	assert.Equal(t, "Amount must be at least 0.01", BelowMinimumError().Error())
	assert.Equal(t, "Amount cannot exceed 1,000,000,000", AboveMaximumError().Error())
	assert.Equal(t, "Exchange rate for XYZ is not available", RateUnavailableError("XYZ").Error())
}
