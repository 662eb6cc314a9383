package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vadiminshakov/fxconv/config"
)

func onceConfig(t *testing.T, apiURL, amount string) config.Config {
	t.Helper()
	conf, err := config.Parse([]string{
		"-mode", "once",
		"-api", apiURL,
		"-storage", "memory",
		"-journal", t.TempDir(),
		"-pair", "USD_EUR",
		"-amount", amount,
	})
	require.NoError(t, err)
	return conf
}

func TestServe_OnceSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"USD","rates":{"EUR":0.92}}`))
	}))
	defer ts.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	var out bytes.Buffer

	code := serve(context.Background(), onceConfig(t, ts.URL, "100"), zap.New(core), &out)

	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "100.00 USD = 92.00 EUR")
	assert.Equal(t, 1, logs.FilterMessage("converter closed").Len())
}

func TestServe_FailureClosesBeforeExitCode(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var out bytes.Buffer

	code := serve(context.Background(), onceConfig(t, "http://127.0.0.1:1", "abc"), zap.New(core), &out)

	assert.Equal(t, 1, code)
	assert.Empty(t, out.String())
	assert.Equal(t, 1, logs.FilterMessage("converter stopped").Len())
	assert.Equal(t, 1, logs.FilterMessage("converter closed").Len())
}
