// Command server is the sullae event engine service: it consumes document
// changes from Postgres, derives domain events, delivers them to the push
// and webhook sinks, and runs the periodic reminder and rollup jobs.
//
// Usage:
//
//	sullae-server
//	API_PORT=8080 sullae-server

// @title Sullae Event Engine API
// @version 1.0.0
// @description Ops API for the sullae event-derivation engine: health checks and manual job invocation.
// @host localhost:8000
// @BasePath /
// @schemes http https
// @contact.name Sullae
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/khy0425/sullae/internal/api"
	"github.com/khy0425/sullae/internal/config"
	"github.com/khy0425/sullae/internal/event"
	"github.com/khy0425/sullae/internal/listener"
	"github.com/khy0425/sullae/internal/push"
	"github.com/khy0425/sullae/internal/schedule"
	"github.com/khy0425/sullae/internal/store"
	"github.com/khy0425/sullae/internal/webhook"

	_ "github.com/khy0425/sullae/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	st, err := store.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Push sink (nil when FCM is not configured)
	var pushSink event.PushSender
	sender, err := push.NewSender(ctx, cfg.FirebaseCredentialsFile, logger)
	if err != nil {
		logger.Error("Failed to initialize FCM sender", "error", err)
		os.Exit(1)
	}
	if sender != nil {
		pushSink = sender
		logger.Info("Push sink enabled")
	} else {
		logger.Info("Push sink disabled (no FIREBASE_CREDENTIALS_FILE)")
	}

	// Webhook sink (nil when no base URL is configured)
	var hookSink event.WebhookSink
	if client := webhook.NewClient(cfg.WebhookBaseURL, cfg.WebhookTimeout); client != nil {
		hookSink = client
		logger.Info("Webhook sink enabled")
	} else {
		logger.Info("Webhook sink disabled (no N8N_WEBHOOK_URL)")
	}

	// The engine: diff → guard → build → deliver
	engine := event.New(st, pushSink, hookSink, event.Config{
		ReminderLead:   cfg.ReminderLead,
		ReminderWindow: cfg.ReminderScanPeriod,
		Location:       cfg.Location(),
	}, logger)

	// Start the change listener (trigger boundary)
	go listener.Start(ctx, cfg.DatabaseURL, engine, logger)

	// Start periodic jobs (reminder scan, daily rollup)
	go schedule.Start(ctx, engine, schedule.Config{
		ReminderPeriod: cfg.ReminderScanPeriod,
		DailyHour:      cfg.DailyStatsHour,
		Location:       cfg.Location(),
	}, logger)

	// Create router
	router := api.NewRouter(st, engine, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Sullae event engine",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
