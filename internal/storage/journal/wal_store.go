// Package journal appends every completed conversion to a write-ahead log.
package journal

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/fxconv/internal/domain"
	"github.com/vadiminshakov/gowal"
)

const (
	DefaultDir     = "./wal/conversions"
	segmentLimit   = 1000
	maxSegments    = 100
	conversionKey  = "conversion_"
	dirPermissions = 0o755
)

// Record a journaled conversion with its WAL index.
type Record struct {
	Index  uint64                  `json:"index"`
	Result domain.ConversionResult `json:"result"`
}

// WALStore persists conversions in a WAL for streaming purposes.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed journal under dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, errors.Wrapf(err, "failed to ensure journal directory %s", dir)
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "conversion_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init conversion WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Append writes result to the WAL and returns its index.
func (s *WALStore) Append(result domain.ConversionResult) (uint64, error) {
	if s == nil || s.wal == nil {
		return 0, errors.New("conversion journal is not initialized")
	}
	if result.From == "" || result.To == "" {
		return 0, errors.New("conversion pair is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := Record{Index: s.wal.CurrentIndex() + 1, Result: result}
	payload, err := json.Marshal(record)
	if err != nil {
		return 0, errors.Wrap(err, "marshal conversion")
	}

	key := conversionKey + domain.NewPair(result.From, result.To).String()
	if err := s.wal.Write(record.Index, key, payload); err != nil {
		return 0, errors.Wrap(err, "write conversion")
	}

	return record.Index, nil
}

// RecordsAfter returns all conversions written after the provided WAL index, oldest first.
func (s *WALStore) RecordsAfter(index uint64) ([]Record, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("conversion journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]Record, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, conversionKey) {
			continue
		}

		var record Record
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, errors.Wrap(err, "decode conversion")
		}
		record.Index = idx
		records = append(records, record)
	}

	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("conversion journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
