package internal

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/fxconv/internal/domain"
	"github.com/vadiminshakov/fxconv/internal/events"
	"github.com/vadiminshakov/fxconv/internal/metrics"
	"github.com/vadiminshakov/fxconv/internal/storage/journal"
	"go.uber.org/zap"
)

type conversionEngine interface {
	Convert(ctx context.Context, req domain.ConversionRequest, now time.Time) (domain.ConversionResult, error)
}

type historyLedger interface {
	Load(ctx context.Context) error
	Record(ctx context.Context, result domain.ConversionResult, now time.Time) ([]domain.HistoryEntry, error)
	Clear(ctx context.Context) error
	Entries() []domain.HistoryEntry
}

type preferenceStore interface {
	Save(ctx context.Context, from, to string) error
	Load(ctx context.Context) (domain.Preferences, error)
}

type conversionJournal interface {
	Append(result domain.ConversionResult) (uint64, error)
	RecordsAfter(index uint64) ([]journal.Record, error)
	Close() error
}

// Widget is the API the presentation layers talk to. It is constructed once at
// startup and owns the ledger, the preferences and the optional journal.
type Widget struct {
	engine  conversionEngine
	ledger  historyLedger
	prefs   preferenceStore
	journal conversionJournal
	events  *events.ConversionBroadcaster
	metrics *metrics.Metrics
	closers []func() error
	now     func() time.Time
	logger  *zap.Logger
}

// Option defines a function to configure the Widget.
type Option func(*Widget)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Widget) {
		w.now = now
	}
}

// WithJournal appends every conversion to j.
func WithJournal(j conversionJournal) Option {
	return func(w *Widget) {
		w.journal = j
	}
}

// WithMetrics counts conversions in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Widget) {
		w.metrics = m
	}
}

// WithCloser registers fn to run on Close, after the journal is closed.
func WithCloser(fn func() error) Option {
	return func(w *Widget) {
		w.closers = append(w.closers, fn)
	}
}

// NewWidget wires the collaborators and restores the persisted ledger.
func NewWidget(ctx context.Context, engine conversionEngine, ledger historyLedger, prefs preferenceStore,
	logger *zap.Logger, opts ...Option) (*Widget, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Widget{
		engine: engine,
		ledger: ledger,
		prefs:  prefs,
		events: events.NewConversionBroadcaster(0),
		now:    time.Now,
		logger: logger,
	}

	for _, opt := range opts {
		opt(w)
	}

	if err := w.ledger.Load(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to load history")
	}

	return w, nil
}

// Convert runs a conversion and records it in the history.
// Errors are *domain.ValidationError or *domain.NetworkError; failing to persist
// the history is logged and does not fail the conversion.
func (w *Widget) Convert(ctx context.Context, req domain.ConversionRequest) (domain.ConversionResult, error) {
	now := w.now()

	result, err := w.engine.Convert(ctx, req, now)
	w.metrics.ObserveConversion(err)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			w.logger.Debug("conversion rejected", zap.String("reason", vErr.Message))
		} else {
			w.logger.Warn("conversion failed", zap.String("from", req.From), zap.String("to", req.To), zap.Error(err))
		}
		return domain.ConversionResult{}, err
	}

	if _, err := w.ledger.Record(ctx, result, now); err != nil {
		w.logger.Error("failed to persist history", zap.Error(err))
	}

	if w.journal != nil {
		if _, err := w.journal.Append(result); err != nil {
			w.logger.Error("failed to journal conversion", zap.Error(err))
		}
	}

	w.events.Publish(result)

	w.logger.Info("converted",
		zap.String("from", result.From),
		zap.String("to", result.To),
		zap.String("amount", result.Amount.String()),
		zap.String("converted", result.ConvertedAmount.String()),
		zap.String("rate", result.Rate.String()))

	return result, nil
}

// History returns the recent conversions, newest first.
func (w *Widget) History() []domain.HistoryEntry {
	return w.ledger.Entries()
}

// ClearHistory empties the history. Confirmation is up to the caller.
func (w *Widget) ClearHistory(ctx context.Context) error {
	if err := w.ledger.Clear(ctx); err != nil {
		return errors.Wrap(err, "failed to clear history")
	}
	w.logger.Info("history cleared")
	return nil
}

// Preferences returns the last selected pair; fields may be empty on first run.
func (w *Widget) Preferences(ctx context.Context) (domain.Preferences, error) {
	return w.prefs.Load(ctx)
}

// SetPreferences persists the selected pair.
func (w *Widget) SetPreferences(ctx context.Context, from, to string) error {
	if err := w.prefs.Save(ctx, from, to); err != nil {
		return errors.Wrap(err, "failed to save preferences")
	}
	return nil
}

// Subscribe delivers conversions made after the call until cancel is invoked.
func (w *Widget) Subscribe() (<-chan domain.ConversionResult, func()) {
	return w.events.Subscribe()
}

// MetricsHandler serves the Prometheus metrics; nil without WithMetrics.
func (w *Widget) MetricsHandler() http.Handler {
	if w.metrics == nil {
		return nil
	}
	return w.metrics.Handler()
}

// ConversionsAfter streams journaled conversions; empty without a journal.
func (w *Widget) ConversionsAfter(index uint64) ([]journal.Record, error) {
	if w.journal == nil {
		return nil, nil
	}
	return w.journal.RecordsAfter(index)
}

// Close releases the journal and the storage.
func (w *Widget) Close() error {
	var firstErr error
	if w.journal != nil {
		if err := w.journal.Close(); err != nil {
			firstErr = errors.Wrap(err, "close journal")
		}
	}
	for _, closeFn := range w.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
