// Package main provides the entry point for the trade journal server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tradetracker/journal-backend/internal/analytics"
	"github.com/tradetracker/journal-backend/internal/api"
	"github.com/tradetracker/journal-backend/internal/config"
	"github.com/tradetracker/journal-backend/internal/integrations"
	"github.com/tradetracker/journal-backend/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting trade journal server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("db", cfg.Storage.DBPath),
		zap.Bool("syncEnabled", cfg.Sync.Enabled),
	)

	passphrase, err := cfg.Passphrase()
	if err != nil {
		logger.Fatal("Failed to load credentials passphrase", zap.Error(err))
	}
	if passphrase == "" {
		logger.Warn("No credentials passphrase configured, broker credential storage is disabled")
	}

	st, err := store.Open(store.Config{
		Path:       cfg.Storage.DBPath,
		Passphrase: passphrase,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}

	analyticsCfg, err := cfg.Analytics.ToAnalytics()
	if err != nil {
		logger.Fatal("Invalid analytics configuration", zap.Error(err))
	}
	engine, err := analytics.NewMetricsEngine(analyticsCfg)
	if err != nil {
		logger.Fatal("Failed to build metrics engine", zap.Error(err))
	}

	syncMgr := integrations.NewManager(st, logger, cfg.Sync)
	syncMgr.Register("binance", integrations.BinanceFactory)
	if err := syncMgr.Start(); err != nil {
		logger.Fatal("Failed to start sync manager", zap.Error(err))
	}

	server := api.NewServer(logger, &cfg.Server, st, engine, syncMgr)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	var metricsServer *http.Server
	if cfg.Server.EnableMetrics {
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
			Handler: server.MetricsHandler(),
		}
		go func() {
			logger.Info("Metrics listener started", zap.String("addr", metricsServer.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics listener failed", zap.Error(err))
			}
		}()
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	syncMgr.Stop()
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics shutdown error", zap.Error(err))
		}
	}
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	if err := st.Close(); err != nil {
		logger.Error("Store close error", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}

func setupLogger(cfg config.LogConfig) *zap.Logger {
	var zapLevel zapcore.Level
	switch cfg.Level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: cfg.Development,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}
