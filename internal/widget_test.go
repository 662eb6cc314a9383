package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/fxconv/config"
	"github.com/vadiminshakov/fxconv/internal/domain"
)

// rateServer serves a USD table and counts requests; status can be switched.
type rateServer struct {
	*httptest.Server
	hits   atomic.Int32
	status atomic.Int32
}

func newRateServer(t *testing.T) *rateServer {
	t.Helper()
	rs := &rateServer{}
	rs.status.Store(http.StatusOK)
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.hits.Add(1)
		status := int(rs.status.Load())
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"base":"USD","rates":{"USD":1,"EUR":0.92,"GBP":0.79,"JPY":149.5}}`))
		}
	}))
	t.Cleanup(rs.Close)
	return rs
}

// fakeClock is advanced manually by tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func testConfig(rs *rateServer, statePath string) config.Config {
	conf := config.Config{
		Mode:        config.ModeOnce,
		APIBaseURL:  rs.URL,
		HTTPTimeout: time.Second,
		Storage:     config.StorageConfig{Backend: config.BackendMemory},
		Pair:        domain.Pair{From: "USD", To: "EUR"},
	}
	if statePath != "" {
		conf.Storage = config.StorageConfig{Backend: config.BackendFile, Path: statePath}
	}
	return conf
}

func newTestWidget(t *testing.T, conf config.Config, clock *fakeClock) *Widget {
	t.Helper()
	w, err := NewWidgetFromConfig(context.Background(), conf, zap.NewNop())
	require.NoError(t, err)
	WithClock(clock.Now)(w)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestWidget_ConvertExample(t *testing.T) {
	rs := newRateServer(t)
	clock := &fakeClock{now: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)}
	w := newTestWidget(t, testConfig(rs, ""), clock)

	res, err := w.Convert(context.Background(), domain.ConversionRequest{Amount: "100", From: "USD", To: "EUR"})
	require.NoError(t, err)

	assert.Equal(t, "92.00", res.ConvertedAmount.StringFixed(2))
	assert.Equal(t, "0.9200", domain.FormatRate(res.Rate))

	history := w.History()
	require.Len(t, history, 1)
	assert.Equal(t, "USD", history[0].From)
	assert.Equal(t, "EUR", history[0].To)
	assert.Equal(t, "2026-10-17T10:00:00.000Z", history[0].Timestamp)
}

func TestWidget_CacheWindow(t *testing.T) {
	rs := newRateServer(t)
	clock := &fakeClock{now: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)}
	w := newTestWidget(t, testConfig(rs, ""), clock)
	ctx := context.Background()

	_, err := w.Convert(ctx, domain.ConversionRequest{Amount: "1", From: "USD", To: "EUR"})
	require.NoError(t, err)
	clock.now = clock.now.Add(59 * time.Minute)
	_, err = w.Convert(ctx, domain.ConversionRequest{Amount: "2", From: "USD", To: "GBP"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), rs.hits.Load())

	clock.now = clock.now.Add(time.Minute)
	_, err = w.Convert(ctx, domain.ConversionRequest{Amount: "3", From: "USD", To: "JPY"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), rs.hits.Load())
}

func TestWidget_ValidationIssuesNoFetch(t *testing.T) {
	rs := newRateServer(t)
	w := newTestWidget(t, testConfig(rs, ""), &fakeClock{now: time.Now()})

	_, err := w.Convert(context.Background(), domain.ConversionRequest{Amount: "0", From: "USD", To: "EUR"})

	var vErr *domain.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "Amount must be at least 0.01", vErr.Message)
	assert.Equal(t, int32(0), rs.hits.Load())
	assert.Empty(t, w.History())
}

func TestWidget_ServerErrorAddsNothing(t *testing.T) {
	rs := newRateServer(t)
	rs.status.Store(http.StatusInternalServerError)
	clock := &fakeClock{now: time.Now()}
	w := newTestWidget(t, testConfig(rs, ""), clock)
	ctx := context.Background()

	_, err := w.Convert(ctx, domain.ConversionRequest{Amount: "100", From: "USD", To: "EUR"})

	var netErr *domain.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, domain.NetworkErrorMessage, err.Error())
	assert.Empty(t, w.History())

	// nothing was cached: the next call fetches again
	rs.status.Store(http.StatusOK)
	_, err = w.Convert(ctx, domain.ConversionRequest{Amount: "100", From: "USD", To: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), rs.hits.Load())
}

func TestWidget_HistoryBound(t *testing.T) {
	rs := newRateServer(t)
	clock := &fakeClock{now: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)}
	w := newTestWidget(t, testConfig(rs, ""), clock)

	for i := 1; i <= 7; i++ {
		clock.now = clock.now.Add(time.Second)
		_, err := w.Convert(context.Background(), domain.ConversionRequest{Amount: decimal.NewFromInt(int64(i)).String(), From: "USD", To: "EUR"})
		require.NoError(t, err)
	}

	history := w.History()
	require.Len(t, history, domain.MaxHistoryItems)
	for i, entry := range history {
		assert.True(t, entry.Amount.Equal(decimal.NewFromInt(int64(7-i))))
	}
}

func TestWidget_RestartRestoresState(t *testing.T) {
	rs := newRateServer(t)
	statePath := filepath.Join(t.TempDir(), "state.json")
	conf := testConfig(rs, statePath)
	conf.JournalDir = filepath.Join(t.TempDir(), "journal")
	clock := &fakeClock{now: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)}
	ctx := context.Background()

	first, err := NewWidgetFromConfig(ctx, conf, zap.NewNop())
	require.NoError(t, err)
	WithClock(clock.Now)(first)
	require.NoError(t, first.SetPreferences(ctx, "GBP", "JPY"))
	_, err = first.Convert(ctx, domain.ConversionRequest{Amount: "10", From: "USD", To: "GBP"})
	require.NoError(t, err)
	before := first.History()
	require.NoError(t, first.Close())

	second, err := NewWidgetFromConfig(ctx, conf, zap.NewNop())
	require.NoError(t, err)
	defer second.Close()

	prefs, err := second.Preferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Preferences{From: "GBP", To: "JPY"}, prefs)

	after := second.History()
	require.Len(t, after, 1)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.True(t, after[0].ConvertedAmount.Equal(decimal.RequireFromString("7.9")))

	records, err := second.ConversionsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "GBP", records[0].Result.To)
}

func TestWidget_ClearHistory(t *testing.T) {
	rs := newRateServer(t)
	w := newTestWidget(t, testConfig(rs, ""), &fakeClock{now: time.Now()})
	ctx := context.Background()

	_, err := w.Convert(ctx, domain.ConversionRequest{Amount: "5", From: "USD", To: "EUR"})
	require.NoError(t, err)
	require.NoError(t, w.ClearHistory(ctx))

	assert.Empty(t, w.History())
}

func TestWidget_ConversionsAfterWithoutJournal(t *testing.T) {
	rs := newRateServer(t)
	w := newTestWidget(t, testConfig(rs, ""), &fakeClock{now: time.Now()})

	records, err := w.ConversionsAfter(0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNewEngine_RetriesNetworkErrors(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"rates":{"EUR":0.5}}`))
	}))
	defer ts.Close()

	conf := config.Config{APIBaseURL: ts.URL, HTTPTimeout: time.Second, Retries: 1}
	engine := NewEngine(conf, zap.NewNop(), nil)

	res, err := engine.Convert(context.Background(), domain.ConversionRequest{Amount: "10", From: "USD", To: "EUR"}, time.Now())
	require.NoError(t, err)
	assert.True(t, res.ConvertedAmount.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, int32(2), hits.Load())
}

func TestNewStore_UnknownBackend(t *testing.T) {
	_, err := NewStore(context.Background(), config.StorageConfig{Backend: "etcd"})
	assert.Error(t, err)
}

func TestWidget_SubscribeReceivesConversions(t *testing.T) {
	rs := newRateServer(t)
	w := newTestWidget(t, testConfig(rs, ""), &fakeClock{now: time.Now()})
	ctx := context.Background()

	ch, cancel := w.Subscribe()
	defer cancel()

	_, err := w.Convert(ctx, domain.ConversionRequest{Amount: "0", From: "USD", To: "EUR"})
	require.Error(t, err)
	_, err = w.Convert(ctx, domain.ConversionRequest{Amount: "10", From: "USD", To: "GBP"})
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Equal(t, "GBP", got.To)
		assert.True(t, got.ConvertedAmount.Equal(decimal.RequireFromString("7.9")))
	case <-time.After(time.Second):
		t.Fatal("conversion not published")
	}
}

func TestWidget_Metrics(t *testing.T) {
	rs := newRateServer(t)
	w := newTestWidget(t, testConfig(rs, ""), &fakeClock{now: time.Now()})
	ctx := context.Background()

	_, err := w.Convert(ctx, domain.ConversionRequest{Amount: "10", From: "USD", To: "EUR"})
	require.NoError(t, err)
	_, err = w.Convert(ctx, domain.ConversionRequest{Amount: "10", From: "USD", To: "GBP"})
	require.NoError(t, err)
	_, err = w.Convert(ctx, domain.ConversionRequest{Amount: "", From: "USD", To: "GBP"})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	w.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body, `fxconv_conversions_total{outcome="ok"} 2`)
	assert.Contains(t, body, `fxconv_conversions_total{outcome="validation"} 1`)
	assert.Contains(t, body, `fxconv_rate_cache_lookups_total{result="hit"} 1`)
	assert.Contains(t, body, `fxconv_rate_cache_lookups_total{result="miss"} 1`)
	assert.Contains(t, body, `fxconv_rate_fetches_total{outcome="ok"} 1`)
}
