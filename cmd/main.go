// Command fxconv converts amounts between currencies using live exchange rates.
// Rates are cached for an hour; the last conversions and the selected pair
// survive restarts.
//
// Usage:
//
//	fxconv --config config.yaml
//	fxconv -mode once -pair USD_EUR -amount 100
//	fxconv -mode web -addr :8080
//	fxconv (interactive terminal UI)
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vadiminshakov/fxconv/config"
	"github.com/vadiminshakov/fxconv/internal"
	"github.com/vadiminshakov/fxconv/internal/domain"
	"github.com/vadiminshakov/fxconv/internal/tui"
	"github.com/vadiminshakov/fxconv/internal/web"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup finishes before os.Exit.
func run() int {
	conf, err := config.Get()
	if err != nil {
		log.Print(err)
		return 2
	}

	logger, err := newLogger(conf)
	if err != nil {
		log.Print(err)
		return 2
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, conf, logger, os.Stdout)
}

func serve(ctx context.Context, conf config.Config, logger *zap.Logger, out io.Writer) int {
	widget, err := internal.NewWidgetFromConfig(ctx, conf, logger)
	if err != nil {
		logger.Error("failed to start converter", zap.Error(err))
		return 1
	}
	defer func() {
		if err := widget.Close(); err != nil {
			logger.Warn("failed to close converter", zap.Error(err))
			return
		}
		logger.Debug("converter closed")
	}()

	switch conf.Mode {
	case config.ModeOnce:
		err = runOnce(ctx, widget, conf, out)
	case config.ModeWeb:
		srv := web.NewServer(conf.WebAddr, widget, logger.Named("web"))
		srv.Metrics = widget.MetricsHandler()
		if len(conf.TLSDomains) > 0 {
			err = srv.StartWithAutoTLS(ctx, conf.TLSDomains, conf.CertDir)
		} else {
			err = srv.Start(ctx)
		}
	default:
		err = tui.Run(ctx, widget, conf.Pair, tui.WithAccessible(os.Getenv("ACCESSIBLE") != ""))
	}
	if err != nil {
		logger.Error("converter stopped", zap.Error(err))
		return 1
	}
	return 0
}

func runOnce(ctx context.Context, widget *internal.Widget, conf config.Config, out io.Writer) error {
	result, err := widget.Convert(ctx, domain.ConversionRequest{
		Amount: conf.Amount,
		From:   conf.Pair.From,
		To:     conf.Pair.To,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, result.Summary())
	fmt.Fprintln(out, result.RateLine())
	fmt.Fprintln(out, result.InverseRateLine())
	return nil
}

// newLogger logs to stderr so the terminal UI and once-mode output stay clean.
func newLogger(conf config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(conf.LogLevel)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if level == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	if conf.Mode == config.ModeTUI {
		// keep the interactive screen free of log lines
		zc.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	}
	return zc.Build()
}
