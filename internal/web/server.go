package web

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vadiminshakov/fxconv/internal/domain"
	"github.com/vadiminshakov/fxconv/internal/storage/journal"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
)

const (
	journalPollInterval = 2 * time.Second
	maxRequestBody      = 1 << 16
	shutdownTimeout     = 5 * time.Second

	// DefaultCertCacheDir stores ACME certificates between restarts.
	DefaultCertCacheDir = "cert-cache"
)

type converterAPI interface {
	Convert(ctx context.Context, req domain.ConversionRequest) (domain.ConversionResult, error)
	History() []domain.HistoryEntry
	ClearHistory(ctx context.Context) error
	Preferences(ctx context.Context) (domain.Preferences, error)
	SetPreferences(ctx context.Context, from, to string) error
	ConversionsAfter(index uint64) ([]journal.Record, error)
}

// conversionNotifier is implemented by APIs that can push conversions as they happen.
type conversionNotifier interface {
	Subscribe() (<-chan domain.ConversionResult, func())
}

// Server exposes the converter over HTTP: a JSON API, an SSE stream of
// conversions and a small HTML page.
type Server struct {
	Addr   string
	API    converterAPI
	Logger *zap.Logger
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	pollInterval time.Duration
}

// NewServer creates a new web server instance.
func NewServer(addr string, api converterAPI, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Addr: addr, API: api, Logger: logger, pollInterval: journalPollInterval}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /api/convert", s.handleConvert)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("DELETE /api/history", s.handleClearHistory)
	mux.HandleFunc("GET /api/preferences", s.handleGetPreferences)
	mux.HandleFunc("PUT /api/preferences", s.handleSetPreferences)
	mux.HandleFunc("GET /api/conversions/stream", s.handleConversionStream)
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics)
	}
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go shutdownOnDone(ctx, server)

	s.Logger.Info("web server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS serves HTTPS on s.Addr with certificates obtained via ACME for
// domains. Port 80 answers HTTP-01 challenges and redirects everything else.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(domains) == 0 {
		return fmt.Errorf("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = DefaultCertCacheDir
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12
	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go shutdownOnDone(ctx, httpSrv)
	go shutdownOnDone(ctx, httpsSrv)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error("acme challenge server stopped", zap.Error(err))
		}
	}()

	s.Logger.Info("web server listening with automatic TLS",
		zap.String("addr", s.Addr), zap.Strings("domains", domains))
	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func shutdownOnDone(ctx context.Context, srv *http.Server) {
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

type convertRequest struct {
	Amount json.RawMessage `json:"amount"`
	From   string          `json:"from"`
	To     string          `json:"to"`
}

type conversionResponse struct {
	Amount          string    `json:"amount"`
	From            string    `json:"from"`
	ConvertedAmount string    `json:"converted_amount"`
	To              string    `json:"to"`
	Rate            string    `json:"rate"`
	InverseRate     string    `json:"inverse_rate"`
	Display         string    `json:"display"`
	ComputedAt      time.Time `json:"computed_at"`
}

func newConversionResponse(r domain.ConversionResult) conversionResponse {
	return conversionResponse{
		Amount:          r.Amount.String(),
		From:            r.From,
		ConvertedAmount: r.ConvertedAmount.StringFixed(domain.AmountPlaces),
		To:              r.To,
		Rate:            domain.FormatRate(r.Rate),
		InverseRate:     domain.FormatRate(r.InverseRate()),
		Display:         r.Summary(),
		ComputedAt:      r.ComputedAt,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type preferencesRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var body convertRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}

	req := domain.ConversionRequest{Amount: amountText(body.Amount), From: body.From, To: body.To}
	result, err := s.API.Convert(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newConversionResponse(result))
}

// amountText accepts the amount as a JSON string or number.
func amountText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.API.History())
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.API.ClearHistory(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.API.Preferences(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) handleSetPreferences(w http.ResponseWriter, r *http.Request) {
	var body preferencesRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	if err := s.API.SetPreferences(r.Context(), body.From, body.To); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConversionStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// send a comment heartbeat every 30s so proxies keep connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(s.pollInterval)
	defer pollTicker.Stop()

	var notify <-chan domain.ConversionResult
	if n, ok := s.API.(conversionNotifier); ok {
		ch, cancel := n.Subscribe()
		defer cancel()
		notify = ch
	}

	lastIndex := uint64(0)
	sendConversions := func() error {
		records, err := s.API.ConversionsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(newConversionResponse(record.Result))
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\n", record.Index)
			fmt.Fprintf(w, "event: conversion\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			lastIndex = record.Index
		}
		flusher.Flush()
		return nil
	}

	if err := sendConversions(); err != nil {
		s.Logger.Error("conversion stream initial load", zap.Error(err))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendConversions(); err != nil {
				s.Logger.Warn("conversion stream poll", zap.Error(err))
			}
		case _, ok := <-notify:
			if !ok {
				notify = nil
				continue
			}
			if err := sendConversions(); err != nil {
				s.Logger.Warn("conversion stream push", zap.Error(err))
			}
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	var netErr *domain.NetworkError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: vErr.Message})
	case errors.As(err, &netErr):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: netErr.Error()})
	default:
		s.Logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
