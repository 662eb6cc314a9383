// Package converter validates conversion requests and computes results from
// cached or freshly fetched rate tables.
package converter

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/fxconv/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type rateCache interface {
	Get(base string, now time.Time) (domain.RateSet, bool)
	Put(base string, rates map[string]decimal.Decimal, now time.Time)
}

type rateProvider interface {
	Fetch(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

// Observer is notified about cache lookups and provider calls.
type Observer interface {
	CacheLookup(hit bool)
	ObserveFetch(elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) CacheLookup(bool)                  {}
func (nopObserver) ObserveFetch(time.Duration, error) {}

// FetchFunc performs the provider call. Replaced by callers that add retries.
type FetchFunc func(ctx context.Context, base string) (map[string]decimal.Decimal, error)

// Engine turns a ConversionRequest into a ConversionResult.
type Engine struct {
	cache    rateCache
	fetch    FetchFunc
	validate *validator.Validate
	observer Observer
	logger   *zap.Logger

	shareFetches bool
	inflight     singleflight.Group
}

// Option defines a function to configure the Engine.
type Option func(*Engine)

// WithFetchFunc overrides how the provider is called on a cache miss.
func WithFetchFunc(fn FetchFunc) Option {
	return func(e *Engine) {
		e.fetch = fn
	}
}

// WithObserver reports cache and provider activity to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithSharedFetches makes concurrent cache misses for the same base wait for
// one provider call instead of fetching independently.
func WithSharedFetches() Option {
	return func(e *Engine) {
		e.shareFetches = true
	}
}

// New creates an Engine reading through cache into provider.
func New(cache rateCache, provider rateProvider, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		cache:    cache,
		fetch:    provider.Fetch,
		validate: validator.New(),
		observer: nopObserver{},
		logger:   logger,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Convert validates req, resolves the rate of req.From at now and computes the result.
// Validation failures are *domain.ValidationError and never reach the provider;
// provider failures are returned as *domain.NetworkError and leave the cache untouched.
func (e *Engine) Convert(ctx context.Context, req domain.ConversionRequest, now time.Time) (domain.ConversionResult, error) {
	amount, pair, err := e.Validate(req)
	if err != nil {
		return domain.ConversionResult{}, err
	}

	set, err := e.rates(ctx, pair.From, now)
	if err != nil {
		return domain.ConversionResult{}, err
	}

	rate, ok := set.Rate(pair.To)
	if !ok {
		return domain.ConversionResult{}, domain.RateUnavailableError(pair.To)
	}

	return domain.NewConversionResult(amount, pair, rate, now), nil
}

// Validate checks req and returns the parsed amount and normalized pair.
func (e *Engine) Validate(req domain.ConversionRequest) (decimal.Decimal, domain.Pair, error) {
	amount, err := ParseAmount(req.Amount)
	if err != nil {
		return decimal.Decimal{}, domain.Pair{}, err
	}

	pair := req.Pair()
	if pair.Same() {
		return decimal.Decimal{}, domain.Pair{}, domain.NewValidationError(domain.MsgSameCurrencies)
	}

	normalized := domain.ConversionRequest{Amount: req.Amount, From: pair.From, To: pair.To}
	if err := e.validate.Struct(normalized); err != nil {
		return decimal.Decimal{}, domain.Pair{}, domain.NewValidationError(domain.MsgInvalidCurrency)
	}

	return amount, pair, nil
}

// ParseAmount parses user input and checks it against the amount limits.
func ParseAmount(input string) (decimal.Decimal, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return decimal.Decimal{}, domain.NewValidationError(domain.MsgEmptyAmount)
	}

	amount, err := decimal.NewFromString(input)
	if err != nil {
		return decimal.Decimal{}, domain.NewValidationError(domain.MsgInvalidNumber)
	}

	if amount.LessThan(domain.MinAmount) {
		return decimal.Decimal{}, domain.BelowMinimumError()
	}
	if amount.GreaterThan(domain.MaxAmount) {
		return decimal.Decimal{}, domain.AboveMaximumError()
	}

	return amount, nil
}

func (e *Engine) rates(ctx context.Context, base string, now time.Time) (domain.RateSet, error) {
	if set, ok := e.cache.Get(base, now); ok {
		e.observer.CacheLookup(true)
		e.logger.Debug("rate cache hit", zap.String("base", base))
		return set, nil
	}
	e.observer.CacheLookup(false)
	e.logger.Debug("rate cache miss", zap.String("base", base))

	if !e.shareFetches {
		return e.fetchAndStore(ctx, base, now)
	}

	v, err, shared := e.inflight.Do(base, func() (any, error) {
		if set, ok := e.cache.Get(base, now); ok {
			return set, nil
		}
		return e.fetchAndStore(ctx, base, now)
	})
	if err != nil {
		return domain.RateSet{}, err
	}
	if shared {
		e.logger.Debug("rate fetch shared", zap.String("base", base))
	}

	return v.(domain.RateSet), nil
}

// fetchAndStore calls the provider and caches the table only on success.
func (e *Engine) fetchAndStore(ctx context.Context, base string, now time.Time) (domain.RateSet, error) {
	started := time.Now()
	rates, err := e.fetch(ctx, base)
	e.observer.ObserveFetch(time.Since(started), err)
	if err != nil {
		var netErr *domain.NetworkError
		if !errors.As(err, &netErr) {
			err = domain.NewNetworkError(err)
		}
		return domain.RateSet{}, err
	}
	if len(rates) == 0 {
		return domain.RateSet{}, domain.NewNetworkError(errors.Errorf("empty rate table for %s", base))
	}

	e.cache.Put(base, rates, now)
	return domain.RateSet{Base: base, Rates: rates, FetchedAt: now}, nil
}
