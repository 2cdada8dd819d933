// Package main wires together the bulk email verifier service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mailsift/bulk-verifier/internal/api"
	"github.com/mailsift/bulk-verifier/internal/clock/system"
	"github.com/mailsift/bulk-verifier/internal/config"
	"github.com/mailsift/bulk-verifier/internal/gateway"
	"github.com/mailsift/bulk-verifier/internal/id/uuid"
	"github.com/mailsift/bulk-verifier/internal/logging"
	"github.com/mailsift/bulk-verifier/internal/metrics"
	"github.com/mailsift/bulk-verifier/internal/runner"
	localstore "github.com/mailsift/bulk-verifier/internal/store/local"
	"github.com/mailsift/bulk-verifier/internal/verify"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := localstore.New(localstore.Config{ResultsDir: cfg.Storage.ResultsDir})
	if err != nil {
		logger.Fatal("session store init failed", zap.Error(err))
	}
	if cfg.Storage.UploadsDir != "" {
		if err := os.MkdirAll(cfg.Storage.UploadsDir, 0o750); err != nil {
			logger.Fatal("uploads directory init failed", zap.Error(err))
		}
	}

	verifier := verify.New(verify.Config{
		APIKey:  cfg.Verification.APIKey,
		BaseURL: cfg.Verification.BaseURL,
		Timeout: cfg.VerifyTimeout(),
	}, logger.Named("verify"))

	clock := system.New()
	run := runner.New(store, verifier, clock, runner.Config{
		RatePerSecond: cfg.Verification.RatePerSecond,
	}, logger.Named("runner"))

	svc := gateway.New(store, run, uuid.New(), clock, gateway.Config{
		MaxEmails:  cfg.Limits.MaxEmails,
		UploadsDir: cfg.Storage.UploadsDir,
		APIKeySet:  cfg.Verification.APIKey != "",
	}, logger.Named("gateway"))

	apiServer := api.NewServer(svc, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
