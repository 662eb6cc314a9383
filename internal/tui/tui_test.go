package tui

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/fxconv/internal/domain"
)

func TestRenderResult(t *testing.T) {
	r := domain.NewConversionResult(decimal.NewFromInt(1500), domain.NewPair("usd", "eur"),
		decimal.RequireFromString("0.92"), time.Now())

	out := RenderResult(r)

	assert.Contains(t, out, "1,500.00 USD = 1,380.00 EUR")
	assert.Contains(t, out, "1 USD = 0.9200 EUR")
	assert.Contains(t, out, "1 EUR = 1.0870 USD")
}

func TestRenderError(t *testing.T) {
	assert.Contains(t, RenderError(domain.NewValidationError(domain.MsgSameCurrencies)), domain.MsgSameCurrencies)

	out := RenderError(domain.NewNetworkError(errors.New("dial tcp: refused")))
	assert.Contains(t, out, domain.NetworkErrorMessage)
	assert.NotContains(t, out, "refused")
}

func TestRenderHistory(t *testing.T) {
	assert.Contains(t, RenderHistory(nil), "No conversions yet")

	r := domain.NewConversionResult(decimal.NewFromInt(10), domain.NewPair("GBP", "JPY"),
		decimal.RequireFromString("190.5"), time.Now())
	out := RenderHistory([]domain.HistoryEntry{domain.NewHistoryEntry(r, time.Now())})

	assert.Contains(t, out, "10.00 GBP → 1,905.00 JPY")
}

func TestCurrencyOptions(t *testing.T) {
	options := currencyOptions()

	assert.Len(t, options, len(domain.Currencies))
	assert.Equal(t, "USD", options[0].Value)
}

// scriptedInput answers one prompt per Read so every huh prompt gets exactly one line.
// When the script runs out, done is called and EOF returned.
type scriptedInput struct {
	lines []string
	done  func()
}

func (s *scriptedInput) Read(p []byte) (int, error) {
	if len(s.lines) == 0 {
		if s.done != nil {
			s.done()
			s.done = nil
		}
		return 0, io.EOF
	}
	line := s.lines[0] + "\n"
	s.lines = s.lines[1:]
	return copy(p, line), nil
}

type fakeConverter struct {
	mu           sync.Mutex
	requests     []domain.ConversionRequest
	historyCalls int
	clearCalls   int
	saved        []domain.Pair
	history      []domain.HistoryEntry
}

func (f *fakeConverter) Convert(_ context.Context, req domain.ConversionRequest) (domain.ConversionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return domain.ConversionResult{}, domain.NewValidationError(domain.MsgInvalidNumber)
	}
	return domain.NewConversionResult(amount, domain.NewPair(req.From, req.To),
		decimal.RequireFromString("0.92"), time.Now()), nil
}

func (f *fakeConverter) History() []domain.HistoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	return f.history
}

func (f *fakeConverter) ClearHistory(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	f.history = nil
	return nil
}

func (f *fakeConverter) Preferences(context.Context) (domain.Preferences, error) {
	return domain.Preferences{}, nil
}

func (f *fakeConverter) SetPreferences(_ context.Context, from, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, domain.NewPair(from, to))
	return nil
}

// runScript drives Run in accessible mode. Each menu takes three answers:
// From, To and Action, where an empty line keeps the current selection.
func runScript(t *testing.T, api converterAPI, lines ...string) (string, error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	in := &scriptedInput{lines: lines, done: cancel}
	err := Run(ctx, api, domain.NewPair("USD", "EUR"), WithIO(in, &out), WithAccessible(true))
	return out.String(), err
}

func TestRun_MenuWorksWithoutAmount(t *testing.T) {
	r := domain.NewConversionResult(decimal.NewFromInt(10), domain.NewPair("GBP", "JPY"),
		decimal.RequireFromString("190.5"), time.Now())
	api := &fakeConverter{history: []domain.HistoryEntry{domain.NewHistoryEntry(r, time.Now())}}

	out, err := runScript(t, api,
		"", "", "3", // history
		"", "", "5", // quit
	)

	require.NoError(t, err)
	assert.Equal(t, 1, api.historyCalls)
	assert.Empty(t, api.requests)
	assert.Contains(t, out, "10.00 GBP → 1,905.00 JPY")
}

func TestRun_QuitOnFirstMenu(t *testing.T) {
	api := &fakeConverter{}

	_, err := runScript(t, api, "", "", "5")

	require.NoError(t, err)
	assert.Empty(t, api.requests)
	assert.Empty(t, api.saved)
}

func TestRun_ConvertAsksForAmount(t *testing.T) {
	api := &fakeConverter{}

	out, err := runScript(t, api,
		"", "", "1", // convert
		"abc", "100", // rejected, then accepted amount
		"", "", "5",
	)

	require.NoError(t, err)
	require.Len(t, api.requests, 1)
	assert.Equal(t, domain.ConversionRequest{Amount: "100", From: "USD", To: "EUR"}, api.requests[0])
	assert.Contains(t, out, "100.00 USD = 92.00 EUR")
}

func TestRun_SwapAndClear(t *testing.T) {
	r := domain.NewConversionResult(decimal.NewFromInt(1), domain.NewPair("USD", "EUR"),
		decimal.RequireFromString("0.92"), time.Now())
	api := &fakeConverter{history: []domain.HistoryEntry{domain.NewHistoryEntry(r, time.Now())}}

	out, err := runScript(t, api,
		"", "", "2", // swap
		"", "", "4", "y", // clear, confirmed
		"", "", "5",
	)

	require.NoError(t, err)
	assert.Equal(t, []domain.Pair{{From: "EUR", To: "USD"}}, api.saved)
	assert.Equal(t, 1, api.clearCalls)
	assert.Contains(t, out, "History cleared")
	assert.Empty(t, api.requests)
}

func TestRun_StopsWhenInputEnds(t *testing.T) {
	api := &fakeConverter{}

	_, err := runScript(t, api, "", "", "3")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, api.historyCalls)
	assert.Empty(t, api.requests)
}
