// Command sullaectl is the sullae ops CLI.
//
// Usage:
//
//	sullaectl remind          run one reminder window scan
//	sullaectl stats           run one daily rollup now
//	sullaectl health          check database connectivity
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/khy0425/sullae/internal/config"
	"github.com/khy0425/sullae/internal/event"
	"github.com/khy0425/sullae/internal/push"
	"github.com/khy0425/sullae/internal/store"
	"github.com/khy0425/sullae/internal/webhook"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "sullaectl",
		Short: "Sullae event engine ops CLI",
	}

	root.AddCommand(remindCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(healthCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Run one reminder window scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, engine *event.Engine) error {
				start := time.Now()
				if err := engine.RunReminderScan(ctx); err != nil {
					return err
				}
				logger.Info("Reminder scan finished", "duration", time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Run one daily stats rollup",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, engine *event.Engine) error {
				start := time.Now()
				if err := engine.RunDailyStats(ctx); err != nil {
					return err
				}
				logger.Info("Daily rollup finished", "duration", time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check database connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			st, err := store.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.HealthCheck(ctx); err != nil {
				return err
			}
			logger.Info("Database healthy")
			return nil
		},
	}
}

// withEngine wires the full sink stack and runs fn against the engine.
func withEngine(fn func(context.Context, *event.Engine) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	st, err := store.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var pushSink event.PushSender
	sender, err := push.NewSender(ctx, cfg.FirebaseCredentialsFile, logger)
	if err != nil {
		return err
	}
	if sender != nil {
		pushSink = sender
	}

	var hookSink event.WebhookSink
	if client := webhook.NewClient(cfg.WebhookBaseURL, cfg.WebhookTimeout); client != nil {
		hookSink = client
	}

	engine := event.New(st, pushSink, hookSink, event.Config{
		ReminderLead:   cfg.ReminderLead,
		ReminderWindow: cfg.ReminderScanPeriod,
		Location:       cfg.Location(),
	}, logger)

	return fn(ctx, engine)
}
