package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/summitline/keel/internal/anthropic"
	"github.com/summitline/keel/internal/api"
	"github.com/summitline/keel/internal/bus"
	"github.com/summitline/keel/internal/config"
	"github.com/summitline/keel/internal/extractor"
	"github.com/summitline/keel/internal/mailer"
	"github.com/summitline/keel/internal/processor"
	"github.com/summitline/keel/internal/reminder"
	"github.com/summitline/keel/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("keel starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database ready")

	// Anthropic client
	if cfg.AnthropicAPIKey == "" {
		slog.Error("ANTHROPIC_API_KEY is required")
		os.Exit(1)
	}
	llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	slog.Info("anthropic client ready", "model", cfg.AnthropicModel)

	// Extractor
	ext := extractor.New(llm, slog.Default())

	// NATS
	busClient, err := bus.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer busClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Mailer (optional; without Brevo the reminder loop logs and skips sends)
	var mail *mailer.Mailer
	if cfg.BrevoAPIKey != "" {
		mail = mailer.New(cfg.BrevoAPIKey, cfg.FromEmail, cfg.FromName, slog.Default())
		slog.Info("mailer ready", "from", cfg.FromEmail)
	} else {
		slog.Warn("BREVO_API_KEY not set, reminder emails disabled")
	}

	// Processor pipeline off the session bus
	proc := processor.New(ext, db, busClient, slog.Default())
	if err := busClient.Subscribe(bus.SubjectSessionStored, proc.HandleSessionStored); err != nil {
		slog.Error("failed to subscribe to session events", "error", err)
		os.Exit(1)
	}

	// Reminder scheduler
	var sched *reminder.Scheduler
	if mail != nil {
		sched = reminder.New(db, mail, busClient, cfg.CheckInDays, slog.Default())
		if err := sched.Start(cfg.ReminderCron); err != nil {
			slog.Error("failed to start reminder scheduler", "error", err)
			os.Exit(1)
		}
		defer sched.Stop()
	}

	// HTTP API
	var runner api.ReminderRunner = noopRunner{}
	if sched != nil {
		runner = sched
	}
	srv := api.NewServer(cfg.Port, cfg.APIToken, db, runner, ext, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("keel ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("keel stopped")
}

// noopRunner stands in when no mailer is configured.
type noopRunner struct{}

func (noopRunner) Run(ctx context.Context) error {
	slog.Warn("reminder run requested but no mailer is configured")
	return nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
