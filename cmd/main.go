/*
Package main is the entry point for the HZ Presence server.

It loads configuration, initializes the global logger, wires the presence Hub to its Prometheus
collectors, serves HTTP and WebSocket traffic, and shuts everything down on SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"hzpresence/internal/app/metrics"
	"hzpresence/internal/app/presence"
	"hzpresence/internal/configs"
	"hzpresence/internal/handler"
	"hzpresence/internal/pkg/logx"
)

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment(), cfg.LogLevel)
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("metrics_path", cfg.MetricsPath).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	appMetrics := metrics.New(registry, metrics.Options{RuntimeCollectors: cfg.RuntimeMetrics})

	hub := presence.NewHub(presence.NewRegistry(), appMetrics)
	go hub.Run()

	router := handler.Router(ctx, &handler.AppDeps{
		Hub:      hub,
		Metrics:  appMetrics,
		Gatherer: registry,
		Config:   cfg,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("HZ Presence Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	// closes every client send queue; write pumps then close their sockets
	hub.Stop()

	logx.Info("Server gracefully stopped.")
}
