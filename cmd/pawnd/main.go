package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"pawnhub/config"
	"pawnhub/native/pawn"
	"pawnhub/observability"
	"pawnhub/observability/logging"
	"pawnhub/observability/otel"
	"pawnhub/storage"
)

func main() {
	configPath := flag.String("config", "pawnd.toml", "path to the pawnd configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pawnd: failed to load config:", err)
		os.Exit(1)
	}

	logger := logging.Setup("pawnd", os.Getenv("PAWN_ENV"), cfg.LogFile)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to create data dir", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OtelEndpoint != "" {
		shutdown, err := otel.Init(ctx, otel.Config{
			ServiceName: "pawnd",
			Environment: os.Getenv("PAWN_ENV"),
			Endpoint:    cfg.OtelEndpoint,
			Insecure:    cfg.OtelInsecure,
		})
		if err != nil {
			logger.Error("failed to initialise telemetry", "err", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown failed", "err", err)
			}
		}()
	}

	store, err := storage.Open(filepath.Join(cfg.DataDir, "pawn.db"))
	if err != nil {
		logger.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	engine := pawn.NewEngine()
	engine.SetState(store)
	engine.SetFreezeAuthority(store)
	engine.SetMetrics(observability.Pawn())
	engine.SetAdminFeeBps(cfg.AdminFeeBps)
	engine.SetEmitter(&logEmitter{log: logger})

	srv := &server{log: logger, engine: engine, rps: cfg.RateLimitRPS}
	if collector, err := cfg.CollectorAddress(); err == nil {
		srv.treasury = pawn.NewTreasury(store, collector, newReserve(cfg.TreasuryReserve))
	} else {
		logger.Warn("fee collector not configured; treasury withdrawals disabled")
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           otelhttp.NewHandler(srv.routes(), "pawnd"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("pawnd listening", "addr", cfg.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
	logger.Info("pawnd stopped")
}
