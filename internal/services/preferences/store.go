// Package preferences persists the last selected currency pair.
package preferences

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/fxconv/internal/domain"
	"github.com/vadiminshakov/fxconv/internal/storage/kv"
)

const (
	fromKey = "lastFromCurrency"
	toKey   = "lastToCurrency"
)

// Store reads and writes Preferences through a kv.Store.
type Store struct {
	kv kv.Store
}

// NewStore creates a preference store over store.
func NewStore(store kv.Store) *Store {
	return &Store{kv: store}
}

// Save overwrites both persisted currencies.
func (s *Store) Save(ctx context.Context, from, to string) error {
	if err := s.kv.Set(ctx, fromKey, domain.NormalizeCode(from)); err != nil {
		return errors.Wrap(err, "save from currency")
	}
	if err := s.kv.Set(ctx, toKey, domain.NormalizeCode(to)); err != nil {
		return errors.Wrap(err, "save to currency")
	}
	return nil
}

// Load returns whatever was persisted; missing keys leave fields empty.
func (s *Store) Load(ctx context.Context) (domain.Preferences, error) {
	var prefs domain.Preferences

	from, _, err := s.kv.Get(ctx, fromKey)
	if err != nil {
		return domain.Preferences{}, errors.Wrap(err, "load from currency")
	}
	to, _, err := s.kv.Get(ctx, toKey)
	if err != nil {
		return domain.Preferences{}, errors.Wrap(err, "load to currency")
	}

	prefs.From = from
	prefs.To = to
	return prefs, nil
}
