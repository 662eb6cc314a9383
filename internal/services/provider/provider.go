// Package provider fetches rate tables from the remote rate API.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"github.com/vadiminshakov/fxconv/internal/domain"
	"go.uber.org/zap"
)

// DefaultBaseURL public endpoint returning {"rates": {...}} for GET {base}/{currency}.
const DefaultBaseURL = "https://api.exchangerate-api.com/v4/latest"

const maxBodySize = 1 << 20

// RateProvider fetches the rate table of a base currency.
type RateProvider interface {
	Fetch(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

// HTTPProvider RateProvider over the JSON rate API. One attempt per call.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPProvider creates a provider for baseURL. A nil client means http.DefaultClient.
func NewHTTPProvider(baseURL string, client *http.Client, logger *zap.Logger) *HTTPProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// Fetch requests {baseURL}/{base}. Every failure is a *domain.NetworkError.
func (p *HTTPProvider) Fetch(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/%s", p.baseURL, url.PathEscape(base))

	rates, err := p.fetch(ctx, endpoint)
	if err != nil {
		p.logger.Warn("rate fetch failed", zap.String("base", base), zap.String("url", endpoint), zap.Error(err))
		return nil, domain.NewNetworkError(err)
	}

	p.logger.Debug("rates fetched", zap.String("base", base), zap.Int("currencies", len(rates)))
	return rates, nil
}

func (p *HTTPProvider) fetch(ctx context.Context, endpoint string) (map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("unexpected status %d", resp.StatusCode)
	}

	return ParseRates(body)
}

// ParseRates extracts the "rates" object of a provider response.
// Rates are read from their JSON text so no float rounding is introduced.
func ParseRates(body []byte) (map[string]decimal.Decimal, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("malformed JSON body")
	}

	node := gjson.GetBytes(body, "rates")
	if !node.IsObject() {
		return nil, errors.New("missing rates object")
	}

	rates := make(map[string]decimal.Decimal)
	var parseErr error
	node.ForEach(func(key, value gjson.Result) bool {
		code := domain.NormalizeCode(key.String())
		if value.Type != gjson.Number {
			parseErr = errors.Errorf("rate for %s is not a number", code)
			return false
		}
		rate, err := decimal.NewFromString(value.Raw)
		if err != nil {
			parseErr = errors.Wrapf(err, "parse rate for %s", code)
			return false
		}
		if !rate.IsPositive() {
			parseErr = errors.Errorf("rate for %s is not positive", code)
			return false
		}
		rates[code] = rate
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	if len(rates) == 0 {
		return nil, errors.New("empty rates object")
	}

	return rates, nil
}
