// Package history keeps the bounded, persisted list of recent conversions.
package history

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/fxconv/internal/domain"
	"github.com/vadiminshakov/fxconv/internal/storage/kv"
	"go.uber.org/zap"
)

// StorageKey key holding the serialized ledger.
const StorageKey = "conversionHistory"

// Ledger newest-first list of at most domain.MaxHistoryItems entries,
// mirrored to the store after every mutation.
type Ledger struct {
	store   kv.Store
	logger  *zap.Logger
	mu      sync.RWMutex
	entries []domain.HistoryEntry
}

// NewLedger creates an empty ledger. Call Load to restore persisted entries.
func NewLedger(store kv.Store, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{store: store, logger: logger}
}

// Load restores entries from the store. Corrupted data resets the ledger to empty
// and is only logged; store read failures are returned.
func (l *Ledger) Load(ctx context.Context) error {
	raw, found, err := l.store.Get(ctx, StorageKey)
	if err != nil {
		return errors.Wrap(err, "read history")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	if !found {
		return nil
	}

	entries, err := decode(raw)
	if err != nil {
		l.logger.Warn("persisted history is corrupted, starting empty", zap.Error(err))
		return nil
	}

	if len(entries) > domain.MaxHistoryItems {
		entries = entries[:domain.MaxHistoryItems]
	}
	l.entries = entries

	return nil
}

func decode(raw string) ([]domain.HistoryEntry, error) {
	var entries []domain.HistoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, &domain.CorruptionError{Key: StorageKey, Cause: err}
	}
	return entries, nil
}

// Record prepends result stamped with now, keeps the newest entries and persists.
// The in-memory ledger is updated even if persisting fails.
func (l *Ledger) Record(ctx context.Context, result domain.ConversionResult, now time.Time) ([]domain.HistoryEntry, error) {
	entry := domain.NewHistoryEntry(result, now)

	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]domain.HistoryEntry, 0, domain.MaxHistoryItems)
	entries = append(entries, entry)
	entries = append(entries, l.entries...)
	if len(entries) > domain.MaxHistoryItems {
		entries = entries[:domain.MaxHistoryItems]
	}
	l.entries = entries

	if err := l.persist(ctx); err != nil {
		return l.snapshot(), err
	}

	return l.snapshot(), nil
}

// Clear empties the ledger and removes its persisted form.
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	if err := l.store.Remove(ctx, StorageKey); err != nil {
		return errors.Wrap(err, "remove history")
	}
	return nil
}

// Entries returns a copy of the ledger, newest first.
func (l *Ledger) Entries() []domain.HistoryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.snapshot()
}

// Len number of entries held.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.entries)
}

func (l *Ledger) snapshot() []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// persist must be called with mu held.
func (l *Ledger) persist(ctx context.Context) error {
	payload, err := json.Marshal(l.entries)
	if err != nil {
		return errors.Wrap(err, "encode history")
	}
	if err := l.store.Set(ctx, StorageKey, string(payload)); err != nil {
		return errors.Wrap(err, "persist history")
	}
	return nil
}
