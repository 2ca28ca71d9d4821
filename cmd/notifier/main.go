package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evdb_notifier/internal/app"
	"evdb_notifier/internal/infra/config"
	idb "evdb_notifier/internal/infra/database"
	"evdb_notifier/internal/infra/logger"
	"evdb_notifier/internal/infra/scheduler"
	"evdb_notifier/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("EV database notifier starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	mainLogger := logger.Component(log, "main")
	mainLogger.WithFields(logrus.Fields{
		"log_level":     cfg.LogLevel,
		"environment":   cfg.Environment,
		"admin_id":      cfg.AdminTelegramID,
		"cron_spec":     cfg.CronSpecProcessDue,
		"auto_process":  cfg.AutoProcessEnabled(),
		"batch_size":    cfg.ProcessBatchSize,
		"process_limit": cfg.ProcessTimeout.String(),
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLogger.Info("Database connection established successfully")

	if cfg.RunMigrations {
		if err := idb.Migrate(ctx, db, logger.Component(log, "migrations")); err != nil {
			mainLogger.WithError(err).Fatal("Could not apply database migrations")
		}
	}

	// Initialize Repositories
	userRepo := idb.NewPostgresUserRepository(db)
	notificationRepo := idb.NewPostgresNotificationRepository(db)
	changelogRepo := idb.NewPostgresChangelogRepository(db)

	// Initialize Telegram Bot
	botLogger := logger.Component(log, "telebot")
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := botLogger.WithError(err)
			if c != nil && c.Sender() != nil {
				entry = entry.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "text": c.Text()})
			}
			entry.Error("Telegram handler error")
		},
	})
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}

	// Initialize Services
	scheduleService := app.NewScheduleService(
		notificationRepo,
		app.NewUserDirectory(userRepo),
		app.NewChatDeliverer(telegram.NewTelebotAdapter(bot)),
		logger.Component(log, "schedule_service"),
		app.WithBatchSize(cfg.ProcessBatchSize),
	)
	changelogService := app.NewChangelogService(changelogRepo, scheduleService, logger.Component(log, "changelog_service"))
	adminService := app.NewAdminService(userRepo, cfg.AdminTelegramID)

	// Initialize ProcessScheduler
	processScheduler := scheduler.NewProcessScheduler(
		scheduleService,
		logger.Component(log, "scheduler"),
		cfg.CronSpecProcessDue,
		cfg.ProcessTimeout,
	)

	// Register Handlers
	handlers := telegram.NewHandlers(ctx, adminService, scheduleService, changelogService, processScheduler, userRepo, logger.Component(log, "telegram"))
	handlers.Register(bot)
	mainLogger.Info("Bot command handlers registered")

	if err := processScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start notification scheduler")
	}

	// Start bot in a goroutine so it doesn't block graceful shutdown handling
	go bot.Start()
	mainLogger.Info("Application setup complete, bot is polling")

	<-ctx.Done()

	mainLogger.Info("Shutting down application...")
	bot.Stop()
	processScheduler.Stop()
	mainLogger.Info("Application shut down gracefully")
}
