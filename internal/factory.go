package internal

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/fxconv/config"
	"github.com/vadiminshakov/fxconv/internal/domain"
	"github.com/vadiminshakov/fxconv/internal/metrics"
	"github.com/vadiminshakov/fxconv/internal/services/converter"
	"github.com/vadiminshakov/fxconv/internal/services/history"
	"github.com/vadiminshakov/fxconv/internal/services/preferences"
	"github.com/vadiminshakov/fxconv/internal/services/provider"
	"github.com/vadiminshakov/fxconv/internal/services/ratecache"
	"github.com/vadiminshakov/fxconv/internal/storage/journal"
	"github.com/vadiminshakov/fxconv/internal/storage/kv"
	"github.com/vadiminshakov/fxconv/pkg/retrier"
)

// NewStore opens the key-value backend selected in conf.
func NewStore(ctx context.Context, conf config.StorageConfig) (kv.Store, error) {
	switch conf.Backend {
	case config.BackendFile, "":
		return kv.NewFileStore(conf.Path)
	case config.BackendRedis:
		return kv.NewRedisStore(ctx, &redis.Options{
			Addr:     conf.RedisAddr,
			Password: conf.RedisPassword,
			DB:       conf.RedisDB,
		}, conf.RedisPrefix)
	case config.BackendMemory:
		return kv.NewMemoryStore(), nil
	default:
		return nil, errors.Errorf("unsupported storage backend %q", conf.Backend)
	}
}

// NewEngine builds the conversion engine with its cache and HTTP provider.
// With retries > 0 only network failures are retried. m may be nil.
func NewEngine(conf config.Config, logger *zap.Logger, m *metrics.Metrics) *converter.Engine {
	client := &http.Client{Timeout: conf.HTTPTimeout}
	rateProvider := provider.NewHTTPProvider(conf.APIBaseURL, client, logger.Named("provider"))

	opts := []converter.Option{converter.WithObserver(m)}
	if conf.ShareFetches {
		opts = append(opts, converter.WithSharedFetches())
	}
	if conf.Retries > 0 {
		r := retrier.New(
			retrier.WithMaxRetries(conf.Retries),
			retrier.WithRetryIf(isNetworkError),
			retrier.WithOnRetry(func(attempt int, wait time.Duration, err error) {
				logger.Warn("retrying rate fetch",
					zap.Int("attempt", attempt),
					zap.Duration("wait", wait),
					zap.Error(err))
			}),
		)
		opts = append(opts, converter.WithFetchFunc(func(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
			return retrier.DoWithData(r, ctx, func(ctx context.Context) (map[string]decimal.Decimal, error) {
				return rateProvider.Fetch(ctx, base)
			})
		}))
	}

	return converter.New(ratecache.New(), rateProvider, logger.Named("converter"), opts...)
}

func isNetworkError(err error) bool {
	var netErr *domain.NetworkError
	return errors.As(err, &netErr)
}

// NewWidgetFromConfig constructs the whole converter from configuration.
func NewWidgetFromConfig(ctx context.Context, conf config.Config, logger *zap.Logger) (*Widget, error) {
	store, err := NewStore(ctx, conf.Storage)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open storage")
	}

	m := metrics.New()
	opts := []Option{WithCloser(store.Close), WithMetrics(m)}
	var j *journal.WALStore
	if conf.JournalDir != "" {
		j, err = journal.NewWALStore(conf.JournalDir)
		if err != nil {
			_ = store.Close()
			return nil, errors.Wrap(err, "failed to open conversion journal")
		}
		opts = append(opts, WithJournal(j))
	}

	widget, err := NewWidget(ctx,
		NewEngine(conf, logger, m),
		history.NewLedger(store, logger.Named("history")),
		preferences.NewStore(store),
		logger,
		opts...,
	)
	if err != nil {
		if j != nil {
			_ = j.Close()
		}
		_ = store.Close()
		return nil, err
	}

	return widget, nil
}
